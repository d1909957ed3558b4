package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"picture-same/internal/batch"
	"picture-same/internal/env"
	"picture-same/internal/evaluator"
	"picture-same/internal/storage"
	"picture-same/internal/telemetry"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	"golang.org/x/xerrors"
)

type Worker struct {
	Log         logr.Logger
	Runner      *batch.Runner
	Manifest    string
	CallbackURL string
}

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	var manifest string
	var storageBackend string
	var directory string
	var bucket string
	var callbackURL string
	var schedule string
	var concurrency int
	var debug bool
	flag.StringVar(&manifest, "manifest", env.OrDefault("MANIFEST", "manifest.json"), "Manifest of picture pairs (file path or s3://bucket/key)")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend for difference images (file or s3)")
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory for the file backend")
	flag.StringVar(&bucket, "bucket", env.OrDefault("S3_BUCKET", ""), "Bucket for the s3 backend")
	flag.StringVar(&callbackURL, "callback-url", env.OrDefault("CALLBACK_URL", ""), "Callback URL to send reports to")
	flag.StringVar(&schedule, "schedule", env.OrDefault("SCHEDULE", ""), "Cron schedule (minute hour dom month dow); run once when empty")
	flag.IntVar(&concurrency, "concurrency", env.OrDefault("CONCURRENCY", 4), "Pairs evaluated at the same time")
	flag.BoolVar(&debug, "debug", env.OrDefault("DEBUG", false), "Log in text instead of JSON")
	flag.Parse()

	handler, err := telemetry.NewHandler(os.Stderr, debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	logger := logr.FromSlogHandler(handler).WithName("same-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var s storage.Storage
	switch storageBackend {
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: directory,
		})
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: bucket,
		})
	default:
		err = xerrors.Errorf("unknown storage backend: %s", storageBackend)
	}
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	worker := &Worker{
		Log: logger,
		Runner: &batch.Runner{
			Log:         logger.WithName("batch"),
			Evaluator:   evaluator.New(),
			Storage:     s,
			Concurrency: concurrency,
		},
		Manifest:    manifest,
		CallbackURL: callbackURL,
	}

	if schedule == "" {
		if err := worker.RunOnce(ctx); err != nil {
			log.Fatalf("Failed to run batch: %v", err)
		}
		return
	}

	if err := worker.RunScheduled(ctx, schedule); err != nil {
		log.Fatalf("Failed to run schedule: %v", err)
	}
}

// RunScheduled triggers RunOnce on every tick of schedule until ctx is done.
// A tick is skipped while the previous run is still in progress.
func (w *Worker) RunScheduled(ctx context.Context, schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return xerrors.Errorf("failed to parse schedule %q: %w", schedule, err)
	}

	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(w.Log),
		cron.WithChain(cron.Recover(w.Log), cron.SkipIfStillRunning(w.Log)),
	)
	if _, err := c.AddFunc(schedule, func() {
		if err := w.RunOnce(ctx); err != nil {
			w.Log.Error(err, "batch failed")
		}
	}); err != nil {
		return xerrors.Errorf("failed to register schedule: %w", err)
	}

	w.Log.Info("scheduled", "schedule", schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	return nil
}

func (w *Worker) RunOnce(ctx context.Context) error {
	data, err := storage.Read(ctx, w.Manifest)
	if err != nil {
		return xerrors.Errorf("failed to read manifest: %w", err)
	}
	m, err := batch.ParseManifest(data)
	if err != nil {
		return err
	}

	report, err := w.Runner.Run(ctx, m.Pairs)
	if err != nil {
		return xerrors.Errorf("failed to evaluate pairs: %w", err)
	}

	j, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal report: %w", err)
	}

	if w.CallbackURL == "" {
		fmt.Println(string(j))
		return nil
	}
	if err := batch.Callback(ctx, w.CallbackURL, j); err != nil {
		return xerrors.Errorf("failed to send callback: %w", err)
	}
	return nil
}
