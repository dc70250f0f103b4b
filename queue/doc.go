// Package queue implements the preset download queue: a single-consumer
// FIFO of preset jobs drained by one long-lived processor goroutine, and the
// Manager façade other parts of the system call to enqueue, pause, resume,
// cancel, and query it.
//
// At most one preset job is active system-wide. Control operations are safe
// to call concurrently while the processor is mid-transfer and complete
// without touching the network; the single Manager mutex is the only
// shared-mutable-state boundary. State changes flow out through a
// broadcast.Hub and, for terminal jobs, into an optional history store.
package queue
