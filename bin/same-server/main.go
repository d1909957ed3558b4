package main

import (
	"context"
	"flag"
	"log"
	"picture-same/internal/env"
	"picture-same/internal/runnable"
	"picture-same/internal/storage"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	var storageBackend string
	var directory string
	var bucket string
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "none"), "Where to keep difference images (none, file or s3)")
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory for the file backend")
	flag.StringVar(&bucket, "bucket", env.OrDefault("S3_BUCKET", ""), "Bucket for the s3 backend")
	flag.BoolVar(&runnable.Debug, "debug", env.OrDefault("DEBUG", false), "Enable text logs and pprof endpoints")
	flag.Parse()

	ctx := context.Background()

	var s storage.Storage
	var err error
	switch storageBackend {
	case "none":
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: directory,
		})
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: bucket,
		})
	default:
		log.Fatalf("Unknown storage backend: %s", storageBackend)
	}
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	if err := runnable.NewServer(s).Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
