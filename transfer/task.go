package transfer

// Status represents the lifecycle state of a single file transfer
type Status int

const (
	StatusPending Status = iota
	StatusDownloading
	StatusRetrying
	StatusPaused
	StatusCompleted
	StatusFailed
	StatusCancelled
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloading:
		return "downloading"
	case StatusRetrying:
		return "retrying"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final per-file state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Task describes one file to fetch: where from, where to, and how far along
// the transfer is. A Task belongs to exactly one preset job and is mutated
// only by the queue processor goroutine handling that job.
type Task struct {
	// URL is the remote source of the file
	URL string

	// DestPath is the final local path the file is written to
	DestPath string

	// ExpectedSize is the advisory size in bytes; 0 means unknown
	ExpectedSize int64

	// Force requests a re-download even if DestPath already exists
	Force bool

	// BytesDone is the number of bytes written so far in the current attempt
	BytesDone int64

	// Status is the current lifecycle state of the task
	Status Status

	// LastError holds the most recent failure message, if any
	LastError string

	// Attempts counts how many transfer attempts have been started
	Attempts int
}

// Progress is invoked by a Transferer at chunk boundaries with the bytes
// written so far and the total size if known (0 otherwise).
type Progress func(bytesDone, total int64)
