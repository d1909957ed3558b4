package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"picture-same/internal/storage"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileStoragePutOverwrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := storage.NewFileStorage(ctx, storage.FileConfig{Directory: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := s.Put(ctx, "nested/ed.png", []byte("first, longer content"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(filepath.Join(dir, "nested", "ed.png"), path); diff != "" {
		t.Errorf("path (-want +got):\n%s", diff)
	}

	if _, err := s.Put(ctx, "nested/ed.png", []byte("second")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Get(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff("second", string(got)); diff != "" {
		t.Errorf("content (-want +got):\n%s", diff)
	}
}

func TestFileStorageAbsoluteKey(t *testing.T) {
	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "ed.png")

	s, err := storage.NewFileStorage(ctx, storage.FileConfig{Directory: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := s.Put(ctx, target, []byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != target {
		t.Errorf("expected %s, got %s", target, path)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("expected file at %s: %v", target, err)
	}
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(target, []byte("data"), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, key, err := storage.Open(ctx, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != target {
		t.Errorf("expected key %s, got %s", target, key)
	}

	data, err := storage.Read(ctx, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff("data", string(data)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestOpenInvalidS3Location(t *testing.T) {
	for _, location := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		if _, _, err := storage.Open(context.Background(), location); err == nil {
			t.Errorf("%s: expected error", location)
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := storage.Read(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenReusesS3Backend(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	ctx := context.Background()
	first, key, err := storage.Open(ctx, "s3://renders/baseline/a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff("baseline/a.png", key); diff != "" {
		t.Errorf("key (-want +got):\n%s", diff)
	}

	second, _, err := storage.Open(ctx, "s3://renders/target/b.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected the same backend for one bucket")
	}

	other, _, err := storage.Open(ctx, "s3://diffs/ed.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other == first {
		t.Errorf("expected a separate backend per bucket")
	}
}
