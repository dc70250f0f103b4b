// Package transfer implements the single-file transfer unit of the preset
// download engine and the retry policy that wraps it.
//
// The package defines:
//   - Task: the unit of work for downloading exactly one file
//   - HTTP: a Transferer that streams a task's URL to disk with cooperative
//     cancellation at chunk boundaries and an atomic rename on success
//   - RetryPolicy: bounded exponential-backoff retries around a Transferer
//   - TransferError: structured error type for classifying failures
//
// Tasks are owned by their parent preset job and are mutated only by the
// queue processor goroutine driving them; the types here carry no locks.
package transfer
