package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"preset-queue/broadcast"
	"preset-queue/history"
	"preset-queue/transfer"
)

// InstallOutcome classifies the synchronous result of an Install call
type InstallOutcome int

const (
	// InstallAccepted means a job was created and enqueued
	InstallAccepted InstallOutcome = iota

	// InstallDuplicate means the preset already has a tracked job
	InstallDuplicate

	// InstallNoOp means every requested file already exists on disk
	InstallNoOp
)

// String returns the string representation of the install outcome
func (o InstallOutcome) String() string {
	switch o {
	case InstallAccepted:
		return "accepted"
	case InstallDuplicate:
		return "duplicate"
	case InstallNoOp:
		return "no_op"
	default:
		return "unknown"
	}
}

// InstallResult is returned synchronously from Install; the download itself
// is asynchronous
type InstallResult struct {
	Outcome InstallOutcome `json:"outcome"`
	JobID   string         `json:"job_id,omitempty"`
	Message string         `json:"message"`
}

// Snapshot is an instant view of the queue taken from in-memory state
type Snapshot struct {
	Current        string   `json:"current"`
	Queue          []string `json:"queue"`
	ActiveJobCount int      `json:"active_job_count"`
}

// Options configures a Manager
type Options struct {
	// Transferer performs the per-file byte transfers
	Transferer transfer.Transferer

	// Retry wraps each transfer attempt; DefaultRetryPolicy if zero
	Retry transfer.RetryPolicy

	// Hub receives all state-change events; required
	Hub *broadcast.Hub

	// History, if non-nil, records terminal jobs
	History *history.Store

	// Logger receives structured queue logging; zap.NewNop() if nil
	Logger *zap.Logger
}

// Manager owns all queue state and is the only writer to it. Control
// operations (Install, Pause, Resume, Cancel, Status) are safe to call
// concurrently from request-handling contexts and never block on network
// I/O; the single processor goroutine started by Start is the only code
// that performs transfers.
type Manager struct {
	transferer transfer.Transferer
	retry      transfer.RetryPolicy
	hub        *broadcast.Hub
	hist       *history.Store
	logger     *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*Job // keyed by preset ID; queued, active, and paused jobs
	pending []string        // preset IDs in FIFO enqueue order
	current string          // preset ID of the active job, "" if none

	wake chan struct{}

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a queue manager; Start must be called before enqueued
// jobs are processed
func NewManager(opts Options) *Manager {
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = transfer.DefaultRetryPolicy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		transferer: opts.Transferer,
		retry:      retry,
		hub:        opts.Hub,
		hist:       opts.History,
		logger:     logger,
		jobs:       make(map[string]*Job),
		wake:       make(chan struct{}, 1),
	}
}

// Start launches the processor goroutine. Calling Start on a running
// manager is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return
	}
	procCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	go m.process(procCtx)
}

// Stop interrupts any in-flight transfer and waits for the processor to
// exit. The interrupted job is left paused so a later Resume can finish it.
func (m *Manager) Stop() {
	m.runMu.Lock()
	if !m.running {
		m.runMu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.runMu.Unlock()

	cancel()
	<-done
}

// Install requests installation of presetID from the given resolved file
// list. It returns synchronously; the transfer work happens on the
// processor goroutine. Files already on disk are filtered out up front
// unless force is set, and a request whose every file already exists
// completes immediately as a no-op success.
func (m *Manager) Install(presetID string, files []FileSpec, force bool) InstallResult {
	m.mu.Lock()

	if existing, ok := m.jobs[presetID]; ok {
		existingStatus := existing.Status
		existingID := existing.ID
		m.mu.Unlock()
		var msg string
		switch existingStatus {
		case JobActive:
			msg = fmt.Sprintf("preset %s is already being downloaded", presetID)
		case JobPaused:
			msg = fmt.Sprintf("preset %s has a paused download; resume or cancel it first", presetID)
		default:
			msg = fmt.Sprintf("preset %s is already queued", presetID)
		}
		return InstallResult{Outcome: InstallDuplicate, JobID: existingID, Message: msg}
	}

	tasks := make([]*transfer.Task, 0, len(files))
	for _, f := range files {
		if !force {
			if fi, err := os.Stat(f.DestPath); err == nil && fi.Mode().IsRegular() {
				continue
			}
		}
		tasks = append(tasks, &transfer.Task{
			URL:          f.URL,
			DestPath:     f.DestPath,
			ExpectedSize: f.ExpectedSize,
			Force:        force,
			Status:       transfer.StatusPending,
		})
	}

	if len(tasks) == 0 {
		m.mu.Unlock()
		m.logger.Info("all preset files already present, nothing to download",
			zap.String("preset_id", presetID))
		m.hub.Publish(broadcast.DownloadComplete(presetID))
		return InstallResult{
			Outcome: InstallNoOp,
			Message: fmt.Sprintf("all files for preset %s already exist", presetID),
		}
	}

	job := newJob(presetID, tasks)
	m.jobs[presetID] = job
	m.pending = append(m.pending, presetID)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("preset job enqueued",
		zap.String("preset_id", presetID),
		zap.String("job_id", job.ID),
		zap.Int("files", len(tasks)))
	m.hub.Publish(broadcast.QueueUpdated(snapshot.Current, snapshot.Queue))
	m.signalWake()

	return InstallResult{
		Outcome: InstallAccepted,
		JobID:   job.ID,
		Message: fmt.Sprintf("preset %s queued (%d files)", presetID, len(tasks)),
	}
}

// Pause interrupts presetID's in-flight transfer and parks the job. Returns
// false if the preset has no active or paused job.
func (m *Manager) Pause(presetID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[presetID]
	if !ok {
		return false
	}
	switch job.Status {
	case JobActive:
		job.interrupt = interruptPause
		if job.cancel != nil {
			job.cancel()
		}
		m.logger.Info("pause requested", zap.String("preset_id", presetID))
		return true
	case JobPaused:
		return true
	default:
		return false
	}
}

// Resume re-enqueues a paused job. Tasks that completed before the pause
// are skipped when the job runs again. Returns false if the preset has no
// paused job.
func (m *Manager) Resume(presetID string) bool {
	m.mu.Lock()
	job, ok := m.jobs[presetID]
	if !ok || job.Status != JobPaused {
		m.mu.Unlock()
		return false
	}
	job.Status = JobQueued
	job.interrupt = interruptNone
	for _, t := range job.Tasks {
		if t.Status == transfer.StatusPaused {
			// Fresh attempt budget; the pause was not a failure
			t.Status = transfer.StatusPending
			t.Attempts = 0
		}
	}
	m.pending = append(m.pending, presetID)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("paused job re-enqueued", zap.String("preset_id", presetID))
	m.hub.Publish(broadcast.QueueUpdated(snapshot.Current, snapshot.Queue))
	m.signalWake()
	return true
}

// Cancel marks presetID's job cancelled. With keepPartialFiles the
// destination files of already-completed tasks stay on disk and only the
// in-flight temp file is discarded; without it every file this job wrote is
// deleted. Returns false if the preset has no tracked job.
func (m *Manager) Cancel(presetID string, keepPartialFiles bool) bool {
	m.mu.Lock()
	job, ok := m.jobs[presetID]
	if !ok {
		m.mu.Unlock()
		return false
	}

	if job.Status == JobActive {
		job.interrupt = interruptCancel
		job.keepFiles = keepPartialFiles
		if job.cancel != nil {
			job.cancel()
		}
		m.mu.Unlock()
		m.logger.Info("cancel requested for active job",
			zap.String("preset_id", presetID),
			zap.Bool("keep_partial_files", keepPartialFiles))
		return true
	}

	// Queued or paused: the job never reaches the processor again, so all
	// bookkeeping happens here.
	for i, id := range m.pending {
		if id == presetID {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	job.Status = JobCancelled
	for _, t := range job.Tasks {
		if t.Status == transfer.StatusPending || t.Status == transfer.StatusPaused {
			t.Status = transfer.StatusCancelled
		}
	}
	delete(m.jobs, presetID)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if !keepPartialFiles {
		m.deleteCompletedFiles(job)
	}
	m.logger.Info("job cancelled",
		zap.String("preset_id", presetID),
		zap.Bool("keep_partial_files", keepPartialFiles))
	m.hub.Publish(broadcast.DownloadCancelled(presetID))
	m.hub.Publish(broadcast.QueueUpdated(snapshot.Current, snapshot.Queue))
	m.recordHistory(job, "")
	return true
}

// Status returns an instant snapshot of the queue from in-memory state; it
// never touches the network or the disk
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// snapshotLocked builds a Snapshot; the caller must hold m.mu
func (m *Manager) snapshotLocked() Snapshot {
	queued := make([]string, len(m.pending))
	copy(queued, m.pending)
	return Snapshot{
		Current:        m.current,
		Queue:          queued,
		ActiveJobCount: len(m.jobs),
	}
}

// signalWake nudges the processor without blocking
func (m *Manager) signalWake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// process is the queue processor: the single serial worker that drains
// preset jobs one at a time for the life of the manager
func (m *Manager) process(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		}

		for {
			job, jobCtx := m.nextJob(ctx)
			if job == nil {
				break
			}
			m.runJob(ctx, jobCtx, job)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// nextJob pops the head of the pending list and activates it, or returns
// nil if the queue is empty
func (m *Manager) nextJob(ctx context.Context) (*Job, context.Context) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil, nil
	}
	presetID := m.pending[0]
	m.pending = m.pending[1:]
	job := m.jobs[presetID]
	jobCtx, cancel := context.WithCancel(ctx)
	job.Status = JobActive
	job.cancel = cancel
	m.current = presetID
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("job activated",
		zap.String("preset_id", presetID),
		zap.String("job_id", job.ID))
	m.hub.Publish(broadcast.QueueUpdated(snapshot.Current, snapshot.Queue))
	return job, jobCtx
}

// runJob drives every task of the active job to a terminal per-file state
// and aggregates the result. A failure of one task fails the job and leaves
// the remaining tasks pending; the processor itself always survives.
func (m *Manager) runJob(ctx, jobCtx context.Context, job *Job) {
	for _, task := range job.Tasks {
		if task.Status == transfer.StatusCompleted {
			continue
		}

		err := m.runTask(jobCtx, job, task)
		if err == nil {
			m.logger.Info("file downloaded",
				zap.String("preset_id", job.PresetID),
				zap.String("file", filepath.Base(task.DestPath)),
				zap.String("size", humanize.Bytes(uint64(task.BytesDone))))
			continue
		}

		if transfer.IsCancelled(err) {
			m.finishInterrupted(ctx, job, task)
			return
		}

		task.Status = transfer.StatusFailed
		m.finishFailed(job, task)
		return
	}

	m.finishCompleted(job)
}

// runTask runs one task through the retry policy. A panic inside the
// transfer is treated as an immediate failure of the task, never as a
// processor crash.
func (m *Manager) runTask(jobCtx context.Context, job *Job, task *transfer.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("transfer panicked",
				zap.String("preset_id", job.PresetID),
				zap.String("file", filepath.Base(task.DestPath)),
				zap.Any("panic", r))
			err = transfer.NewTransferError(transfer.ErrorUnknown, fmt.Sprintf("transfer panicked: %v", r))
			task.Status = transfer.StatusFailed
			task.LastError = err.Error()
		}
	}()

	file := filepath.Base(task.DestPath)
	progress := func(bytes, total int64) {
		m.hub.Publish(broadcast.DownloadProgress(job.PresetID, file, bytes, total))
	}
	notify := func(attempt int, attemptErr error, delay time.Duration) {
		m.logger.Warn("transfer attempt failed, retrying",
			zap.String("preset_id", job.PresetID),
			zap.String("file", file),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", m.retry.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(attemptErr))
		m.hub.Publish(broadcast.DownloadRetrying(job.PresetID, file, attempt, m.retry.MaxAttempts))
	}

	return m.retry.Run(jobCtx, task, m.transferer, progress, notify)
}

// finishInterrupted resolves a job whose transfer was interrupted, deciding
// between pause and cancel from the recorded interrupt reason. A processor
// shutdown with no operator request is treated as a pause so the job stays
// resumable.
func (m *Manager) finishInterrupted(ctx context.Context, job *Job, task *transfer.Task) {
	m.mu.Lock()
	reason := job.interrupt
	keepFiles := job.keepFiles
	if reason == interruptNone && ctx.Err() != nil {
		reason = interruptPause
	}

	if reason == interruptCancel {
		task.Status = transfer.StatusCancelled
		for _, t := range job.Tasks {
			if t.Status == transfer.StatusPending {
				t.Status = transfer.StatusCancelled
			}
		}
		job.Status = JobCancelled
		job.cancel = nil
		delete(m.jobs, job.PresetID)
		m.current = ""
		snapshot := m.snapshotLocked()
		m.mu.Unlock()

		if !keepFiles {
			m.deleteCompletedFiles(job)
		}
		m.logger.Info("job cancelled mid-transfer",
			zap.String("preset_id", job.PresetID),
			zap.Bool("keep_partial_files", keepFiles))
		m.hub.Publish(broadcast.DownloadCancelled(job.PresetID))
		m.hub.Publish(broadcast.QueueUpdated(snapshot.Current, snapshot.Queue))
		m.recordHistory(job, "")
		return
	}

	task.Status = transfer.StatusPaused
	job.Status = JobPaused
	job.interrupt = interruptNone
	job.cancel = nil
	m.current = ""
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("job paused",
		zap.String("preset_id", job.PresetID),
		zap.String("file", filepath.Base(task.DestPath)))
	m.hub.Publish(broadcast.QueueUpdated(snapshot.Current, snapshot.Queue))
}

// finishFailed resolves a job whose task exhausted its retry budget.
// Remaining tasks stay pending and files that did complete stay on disk.
func (m *Manager) finishFailed(job *Job, task *transfer.Task) {
	m.mu.Lock()
	job.Status = JobFailed
	job.cancel = nil
	delete(m.jobs, job.PresetID)
	m.current = ""
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	file := filepath.Base(task.DestPath)
	m.logger.Error("job failed",
		zap.String("preset_id", job.PresetID),
		zap.String("file", file),
		zap.String("error", task.LastError))
	m.hub.Publish(broadcast.DownloadFailed(job.PresetID, file, task.LastError))
	m.hub.Publish(broadcast.QueueUpdated(snapshot.Current, snapshot.Queue))
	m.recordHistory(job, task.LastError)
}

// finishCompleted resolves a job whose every task completed
func (m *Manager) finishCompleted(job *Job) {
	m.mu.Lock()
	job.Status = JobCompleted
	job.cancel = nil
	delete(m.jobs, job.PresetID)
	m.current = ""
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("job completed",
		zap.String("preset_id", job.PresetID),
		zap.String("total", humanize.Bytes(uint64(job.completedBytes()))))
	m.hub.Publish(broadcast.DownloadComplete(job.PresetID))
	m.hub.Publish(broadcast.QueueUpdated(snapshot.Current, snapshot.Queue))
	m.recordHistory(job, "")
}

// deleteCompletedFiles removes the destination files of every completed
// task of job. Removal errors are logged and otherwise ignored.
func (m *Manager) deleteCompletedFiles(job *Job) {
	for _, t := range job.Tasks {
		if t.Status != transfer.StatusCompleted {
			continue
		}
		if err := os.Remove(t.DestPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("failed to delete file of cancelled job",
				zap.String("preset_id", job.PresetID),
				zap.String("file", t.DestPath),
				zap.Error(err))
		}
	}
}

// recordHistory appends a terminal job to the history store, if one is
// configured. History failures never affect the queue.
func (m *Manager) recordHistory(job *Job, errMsg string) {
	if m.hist == nil {
		return
	}
	rec := &history.Record{
		JobID:      job.ID,
		PresetID:   job.PresetID,
		Status:     job.Status.String(),
		Error:      errMsg,
		FileCount:  len(job.Tasks),
		BytesTotal: job.completedBytes(),
		CreatedAt:  job.CreatedAt,
		FinishedAt: time.Now(),
	}
	if err := m.hist.Append(rec); err != nil {
		m.logger.Warn("failed to record job history",
			zap.String("preset_id", job.PresetID),
			zap.Error(err))
	}
}
