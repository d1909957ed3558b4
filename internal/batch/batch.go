// Package batch evaluates many baseline/target pairs and collects a report,
// for regression checks over rendered pictures.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"image"
	"picture-same/internal/evaluator"
	"picture-same/internal/imageio"
	"picture-same/internal/storage"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type Pair struct {
	Name     string `json:"name"`
	Baseline string `json:"baseline"`
	Target   string `json:"target"`
}

type Manifest struct {
	Pairs []Pair `json:"pairs"`
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, xerrors.Errorf("failed to parse manifest: %w", err)
	}
	for i, p := range m.Pairs {
		if p.Baseline == "" || p.Target == "" {
			return nil, xerrors.Errorf("pair %d (%q) needs both baseline and target", i, p.Name)
		}
		if p.Name == "" {
			m.Pairs[i].Name = fmt.Sprintf("%s..%s", p.Baseline, p.Target)
		}
	}
	return &m, nil
}

type Outcome struct {
	Name           string                   `json:"name"`
	Baseline       string                   `json:"baseline"`
	Target         string                   `json:"target"`
	Classification evaluator.Classification `json:"classification"`
	Reason         evaluator.Reason         `json:"reason,omitempty"`
	Message        string                   `json:"message,omitempty"`
	DiffAmount     float64                  `json:"diffAmount"`
	DiffURL        string                   `json:"diffURL,omitempty"`
	Error          string                   `json:"error,omitempty"`
}

type Report struct {
	StartedAt time.Time `json:"startedAt"`
	Same      int       `json:"same"`
	Different int       `json:"different"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Loader fetches the encoded picture at location.
type Loader func(ctx context.Context, location string) ([]byte, error)

type Runner struct {
	Log       logr.Logger
	Evaluator *evaluator.Evaluator
	// Storage receives the difference images of pairs that differ.
	Storage     storage.Storage
	Load        Loader
	Concurrency int
	Now         func() time.Time
}

// Run evaluates every pair. A pair that cannot be loaded or compared is
// reported as failed without stopping the others; only cancellation of ctx
// aborts the run.
func (r *Runner) Run(ctx context.Context, pairs []Pair) (*Report, error) {
	report := &Report{
		StartedAt: r.now(),
		Outcomes:  make([]Outcome, len(pairs)),
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(r.Concurrency, 1))

	for i, p := range pairs {
		eg.Go(func() error {
			outcome, err := r.evaluate(ctx, p, report.StartedAt)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.Log.Error(err, "failed to evaluate pair", "name", p.Name)
				outcome = Outcome{Name: p.Name, Baseline: p.Baseline, Target: p.Target, Error: err.Error()}
			}
			report.Outcomes[i] = outcome
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, o := range report.Outcomes {
		switch {
		case o.Error != "":
			report.Failed++
		case o.Classification == evaluator.Same:
			report.Same++
		default:
			report.Different++
		}
	}
	r.Log.Info("batch finished", "same", report.Same, "different", report.Different, "failed", report.Failed)

	return report, nil
}

func (r *Runner) evaluate(ctx context.Context, p Pair, startedAt time.Time) (Outcome, error) {
	baseline, target, err := LoadPair(ctx, r.loader(), p.Baseline, p.Target)
	if err != nil {
		return Outcome{}, err
	}

	result, err := r.Evaluator.Evaluate(ctx, baseline, target)
	if err != nil {
		return Outcome{}, xerrors.Errorf("failed to evaluate %s: %w", p.Name, err)
	}

	outcome := Outcome{
		Name:           p.Name,
		Baseline:       p.Baseline,
		Target:         p.Target,
		Classification: result.Classification,
		Reason:         result.Reason,
		DiffAmount:     result.DiffAmount,
	}
	r.Log.V(1).Info("evaluated pair", "name", p.Name, "classification", result.Classification.String(), "reason", string(result.Reason))

	if result.Classification == evaluator.Same {
		outcome.Message = result.Message("")
		return outcome, nil
	}
	if r.Storage == nil {
		return outcome, nil
	}

	data, err := imageio.EncodeBytes(result.Diff, "diff.png")
	if err != nil {
		return Outcome{}, err
	}
	url, err := r.Storage.Put(ctx, DiffKey(p, startedAt), data)
	if err != nil {
		return Outcome{}, xerrors.Errorf("failed to store difference of %s: %w", p.Name, err)
	}
	outcome.DiffURL = url
	outcome.Message = result.Message(url)

	return outcome, nil
}

// DiffKey names the stored difference of p for a run started at t.
func DiffKey(p Pair, t time.Time) string {
	h := sha256.New()
	h.Write([]byte(p.Baseline + p.Target))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]
	return fmt.Sprintf("same/diff/%s/%s.png", hash, t.Format("20060102150405"))
}

// LoadPair fetches and decodes both pictures concurrently.
func LoadPair(ctx context.Context, load Loader, baselineLocation string, targetLocation string) (image.Image, image.Image, error) {
	var baseline image.Image
	var target image.Image

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		img, err := loadImage(ctx, load, baselineLocation)
		if err != nil {
			return xerrors.Errorf("failed to load baseline image: %w", err)
		}
		baseline = img
		return nil
	})

	eg.Go(func() error {
		img, err := loadImage(ctx, load, targetLocation)
		if err != nil {
			return xerrors.Errorf("failed to load target image: %w", err)
		}
		target = img
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return baseline, target, nil
}

func loadImage(ctx context.Context, load Loader, location string) (image.Image, error) {
	data, err := load(ctx, location)
	if err != nil {
		return nil, err
	}
	img, _, err := imageio.Decode(data)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", location, err)
	}
	return img, nil
}

func (r *Runner) loader() Loader {
	if r.Load != nil {
		return r.Load
	}
	return storage.Read
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
