package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"preset-queue/broadcast"
	"preset-queue/config"
	"preset-queue/history"
	"preset-queue/queue"
	"preset-queue/transfer"
)

func main() {
	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Additional validation
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <preset-id> <url> [url...]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	presetID := os.Args[1]
	urls := os.Args[2:]

	var hist *history.Store
	if cfg.HistoryDB != "" {
		hist, err = history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Fatal("failed to open history store", zap.Error(err))
		}
		defer hist.Close()
	}

	hub := broadcast.NewHub(cfg.ObserverBuffer, logger)
	manager := queue.NewManager(queue.Options{
		Transferer: transfer.NewHTTP(transfer.HTTPOptions{
			ChunkSize: cfg.ChunkSize,
			RateLimit: cfg.RateLimit,
			Logger:    logger,
		}),
		Retry: transfer.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		Hub:     hub,
		History: hist,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.Start(ctx)
	defer manager.Stop()

	files := make([]queue.FileSpec, 0, len(urls))
	for _, u := range urls {
		files = append(files, queue.FileSpec{
			URL:      u,
			DestPath: filepath.Join(cfg.DownloadDir, presetID, path.Base(u)),
		})
	}

	// Subscribe before installing so no event is missed
	sub := hub.Subscribe()
	defer sub.Close()

	result := manager.Install(presetID, files, false)
	fmt.Println(result.Message)
	switch result.Outcome {
	case queue.InstallNoOp:
		return
	case queue.InstallDuplicate:
		os.Exit(1)
	}

	if err := watch(ctx, sub, presetID); err != nil {
		logger.Error("download did not complete", zap.Error(err))
		os.Exit(1)
	}
}

// watch renders progress events for presetID until the job reaches a
// terminal state or ctx is cancelled
func watch(ctx context.Context, sub *broadcast.Subscriber, presetID string) error {
	var bar *progressbar.ProgressBar
	var barFile string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			if ev.PresetID != presetID {
				continue
			}

			switch ev.Type {
			case broadcast.EventDownloadProgress:
				if bar == nil || barFile != ev.File {
					var total int64 = -1
					if ev.Total != nil {
						total = *ev.Total
					}
					bar = newBar(total, ev.File)
					barFile = ev.File
				}
				bar.Set64(ev.Bytes)

			case broadcast.EventDownloadRetrying:
				fmt.Printf("\n%s: attempt %d/%d failed, retrying...\n", ev.File, ev.Attempt, ev.Max)

			case broadcast.EventDownloadComplete:
				if bar != nil {
					bar.Finish()
				}
				fmt.Printf("\npreset %s installed\n", presetID)
				return nil

			case broadcast.EventDownloadFailed:
				return fmt.Errorf("preset %s failed on %s: %s", presetID, ev.File, ev.Error)

			case broadcast.EventDownloadCancelled:
				return fmt.Errorf("preset %s was cancelled", presetID)
			}
		}
	}
}

// newBar builds a byte-count progress bar for one file
func newBar(total int64, file string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetDescription(file),
	)
}

// buildLogger creates a zap logger honoring the configured level
func buildLogger(level string) (*zap.Logger, error) {
	zapLevel := zapcore.InfoLevel
	switch level {
	case "DEBUG":
		zapLevel = zapcore.DebugLevel
	case "INFO":
		zapLevel = zapcore.InfoLevel
	case "WARN":
		zapLevel = zapcore.WarnLevel
	case "ERROR":
		zapLevel = zapcore.ErrorLevel
	case "FATAL":
		zapLevel = zapcore.FatalLevel
	}

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return zapCfg.Build()
}
