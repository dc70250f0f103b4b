package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"preset-queue/transfer"
)

// JobStatus represents the lifecycle state of a preset job
type JobStatus int

const (
	JobQueued JobStatus = iota
	JobActive
	JobPaused
	JobCompleted
	JobFailed
	JobCancelled
)

// String returns the string representation of the job status
func (s JobStatus) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobActive:
		return "active"
	case JobPaused:
		return "paused"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is final; terminal jobs are evicted
// from the queue state and never retried automatically
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// FileSpec is one resolved file of a preset, as supplied by the
// preset-definition collaborator. The engine does not know or care how the
// list was computed.
type FileSpec struct {
	URL          string `json:"url"`
	DestPath     string `json:"dest_path"`
	ExpectedSize int64  `json:"expected_size"`
}

// interruptKind records why an active job's context was cancelled, so the
// processor can tell an operator pause apart from an operator cancel
type interruptKind int

const (
	interruptNone interruptKind = iota
	interruptPause
	interruptCancel
)

// Job is one preset installation request: the ordered tasks needed to place
// every file of the preset on disk, plus aggregate state.
type Job struct {
	// ID uniquely identifies this request
	ID string

	// PresetID names the preset being installed
	PresetID string

	// Tasks are processed strictly in order; no intra-job parallelism
	Tasks []*transfer.Task

	// Status is the aggregate job state
	Status JobStatus

	// CreatedAt is when the installation was requested
	CreatedAt time.Time

	// Control fields, guarded by the Manager mutex. cancel interrupts the
	// in-flight transfer or backoff sleep; interrupt says why.
	cancel    context.CancelFunc
	interrupt interruptKind
	keepFiles bool
}

// newJob builds a queued job for presetID from the given tasks
func newJob(presetID string, tasks []*transfer.Task) *Job {
	return &Job{
		ID:        uuid.NewString(),
		PresetID:  presetID,
		Tasks:     tasks,
		Status:    JobQueued,
		CreatedAt: time.Now(),
	}
}

// completedBytes sums the bytes of every completed task
func (j *Job) completedBytes() int64 {
	var total int64
	for _, t := range j.Tasks {
		if t.Status == transfer.StatusCompleted {
			total += t.BytesDone
		}
	}
	return total
}
