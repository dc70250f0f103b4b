// Package broadcast provides the pub/sub hub that fans queue and transfer
// state changes out to any number of observers.
//
// Publishing is fire-and-forget: the hub never blocks the queue processor on
// a slow or disconnected observer. Each subscriber owns a bounded delivery
// channel; when it fills up, the oldest buffered event is dropped in favor
// of the new one. The event stream is informational; authoritative state is
// always available from the queue manager's status query.
package broadcast
