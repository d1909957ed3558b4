package main

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"picture-same/internal/batch"
	"picture-same/internal/evaluator"
	"picture-same/internal/imageio"
	"testing"

	"github.com/go-logr/logr"
)

func TestWorkerRunOnceCallback(t *testing.T) {
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	data, err := imageio.EncodeBytes(img, "a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	picture := filepath.Join(dir, "a.png")
	if err := os.WriteFile(picture, data, 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	manifest := filepath.Join(dir, "manifest.json")
	m, _ := json.Marshal(batch.Manifest{Pairs: []batch.Pair{{Name: "self", Baseline: picture, Target: picture}}})
	if err := os.WriteFile(manifest, m, 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var received batch.Report
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	worker := &Worker{
		Log: logr.Discard(),
		Runner: &batch.Runner{
			Log:       logr.Discard(),
			Evaluator: evaluator.New(),
		},
		Manifest:    manifest,
		CallbackURL: server.URL,
	}
	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Same != 1 || len(received.Outcomes) != 1 || received.Outcomes[0].Classification != evaluator.Same {
		t.Errorf("unexpected report %+v", received)
	}
}

func TestWorkerRunScheduledInvalid(t *testing.T) {
	worker := &Worker{Log: logr.Discard()}
	if err := worker.RunScheduled(context.Background(), "every minute"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWorkerRunOnceMissingManifest(t *testing.T) {
	worker := &Worker{
		Log:      logr.Discard(),
		Runner:   &batch.Runner{Log: logr.Discard(), Evaluator: evaluator.New()},
		Manifest: filepath.Join(t.TempDir(), "missing.json"),
	}
	if err := worker.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
