package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/juju/ratelimit"
	"go.uber.org/zap"
)

// DefaultChunkSize is the copy buffer size used when none is configured.
// Cancellation is observed once per chunk, so this bounds cancel latency.
const DefaultChunkSize = 256 * 1024

// partSuffix is appended to the destination path for the in-flight temp file
const partSuffix = ".part"

// Transferer performs one file's byte transfer to a terminal outcome
type Transferer interface {
	// Transfer downloads task.URL to task.DestPath, invoking progress at
	// chunk boundaries. It returns nil on success and a *TransferError
	// otherwise; cancellation surfaces as a TransferError of type
	// ErrorCancelled.
	Transfer(ctx context.Context, task *Task, progress Progress) error
}

// HTTPOptions configures an HTTP transferer
type HTTPOptions struct {
	// Client is the HTTP client to use; http.DefaultClient if nil
	Client *http.Client

	// ChunkSize is the copy buffer size in bytes; DefaultChunkSize if <= 0
	ChunkSize int

	// RateLimit caps the download speed in bytes per second; 0 is unlimited
	RateLimit int64

	// Logger receives per-transfer debug logging; zap.NewNop() if nil
	Logger *zap.Logger
}

// HTTP downloads task bytes over HTTP(S) to a temporary file next to the
// destination and atomically renames it into place on success.
type HTTP struct {
	client    *http.Client
	chunkSize int
	bucket    *ratelimit.Bucket
	logger    *zap.Logger
}

// NewHTTP creates an HTTP transferer from the given options
func NewHTTP(opts HTTPOptions) *HTTP {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var bucket *ratelimit.Bucket
	if opts.RateLimit > 0 {
		bucket = ratelimit.NewBucketWithRate(float64(opts.RateLimit), opts.RateLimit)
	}
	return &HTTP{
		client:    client,
		chunkSize: chunkSize,
		bucket:    bucket,
		logger:    logger,
	}
}

// Transfer implements the Transferer interface
func (h *HTTP) Transfer(ctx context.Context, task *Task, progress Progress) error {
	if _, err := url.ParseRequestURI(task.URL); err != nil {
		return NewTransferErrorWithCause(ErrorInvalidURL, fmt.Sprintf("invalid source URL %q", task.URL), err)
	}

	// An existing complete destination file is a no-op success unless the
	// caller asked for a forced re-download.
	if !task.Force {
		if fi, err := os.Stat(task.DestPath); err == nil && fi.Mode().IsRegular() {
			h.logger.Debug("destination already exists, skipping transfer",
				zap.String("dest", task.DestPath),
				zap.Int64("size", fi.Size()))
			task.BytesDone = fi.Size()
			task.Status = StatusCompleted
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(task.DestPath), 0o755); err != nil {
		return NewTransferErrorWithCause(ErrorFilesystem, "failed to create destination directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return NewTransferErrorWithCause(ErrorInvalidURL, "failed to build request", err)
	}

	task.Status = StatusDownloading
	task.BytesDone = 0

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return NewTransferErrorWithCause(ErrorCancelled, "transfer cancelled", ctx.Err())
		}
		return NewTransferErrorWithCause(ErrorNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		te := NewTransferError(ErrorHTTPStatus, fmt.Sprintf("unexpected response %s", resp.Status))
		te.StatusCode = resp.StatusCode
		return te
	}

	total := resp.ContentLength
	if total <= 0 {
		total = task.ExpectedSize
	}

	tmpPath := task.DestPath + partSuffix
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return NewTransferErrorWithCause(ErrorFilesystem, "failed to create temporary file", err)
	}

	var src io.Reader = resp.Body
	if h.bucket != nil {
		src = ratelimit.Reader(resp.Body, h.bucket)
	}

	if err := h.copyChunks(ctx, task, tmp, src, total, progress); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return NewTransferErrorWithCause(ErrorFilesystem, "failed to flush temporary file", err)
	}
	if err := os.Rename(tmpPath, task.DestPath); err != nil {
		os.Remove(tmpPath)
		return NewTransferErrorWithCause(ErrorFilesystem, "failed to move file into place", err)
	}

	task.Status = StatusCompleted
	h.logger.Debug("transfer completed",
		zap.String("dest", task.DestPath),
		zap.Int64("bytes", task.BytesDone))
	return nil
}

// copyChunks streams src into tmp one chunk at a time, checking for
// cancellation and emitting progress at every chunk boundary
func (h *HTTP) copyChunks(ctx context.Context, task *Task, tmp *os.File, src io.Reader, total int64, progress Progress) error {
	buf := make([]byte, h.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return NewTransferErrorWithCause(ErrorCancelled, "transfer cancelled", err)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				return NewTransferErrorWithCause(ErrorFilesystem, "failed to write chunk", writeErr)
			}
			task.BytesDone += int64(n)
			if progress != nil {
				progress(task.BytesDone, total)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return NewTransferErrorWithCause(ErrorCancelled, "transfer cancelled", ctx.Err())
			}
			return NewTransferErrorWithCause(ErrorNetwork, "failed to read response body", readErr)
		}
	}
}
