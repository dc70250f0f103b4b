// Package history persists a short log of terminal preset jobs to a local
// sqlite database.
//
// The log is strictly outside the download engine's hot path: the queue
// processor appends a record after broadcasting a job's terminal event, and
// an append failure is logged, never propagated. Live queue state is always
// answered from memory, not from here.
package history
