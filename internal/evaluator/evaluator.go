// Package evaluator decides whether two pictures are the same.
//
// A pair is the same when the saturating difference baseline ⊖ target is all
// zero, or when it passes the zero-border rule of tensor.HasZeroBorder.
// Evaluate has no side effects; callers decide how to report the result and
// where to persist the difference image.
package evaluator

import (
	"context"
	"fmt"
	"image"
	diffimage "picture-same/internal/diff/image"
	"picture-same/internal/tensor"

	"golang.org/x/xerrors"
)

type Classification int

const (
	Same Classification = iota
	Different
)

func (c Classification) String() string {
	switch c {
	case Same:
		return "same"
	case Different:
		return "different"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Classification) UnmarshalText(text []byte) error {
	switch string(text) {
	case "same":
		*c = Same
	case "different":
		*c = Different
	default:
		return xerrors.Errorf("unknown classification: %q", text)
	}
	return nil
}

// Reason records which rule produced the classification.
type Reason string

const (
	ReasonIdentical  Reason = "identical"
	ReasonZeroBorder Reason = "zero-border"
	ReasonDiffers    Reason = "differs"
)

const (
	sameMessage      = "Pictures are the same"
	differentMessage = "Pictures are different, the difference is stored as %s"
)

type Result struct {
	Classification Classification
	Reason         Reason
	DiffAmount     float64
	// Diff is the difference image. It is only set for Different results.
	Diff image.Image
}

// Message returns the console line for r. outputName is where the caller
// stored the difference image.
func (r *Result) Message(outputName string) string {
	if r.Classification == Same {
		return sameMessage
	}
	return fmt.Sprintf(differentMessage, outputName)
}

type Evaluator struct {
	differ diffimage.Differ
}

func New() *Evaluator {
	return &Evaluator{
		differ: diffimage.NewSaturatingDiff(),
	}
}

func NewWithDiffer(differ diffimage.Differ) *Evaluator {
	return &Evaluator{
		differ: differ,
	}
}

// Evaluate compares baseline against target. Images of different sizes are
// rejected with tensor.ErrShapeMismatch.
func (e *Evaluator) Evaluate(ctx context.Context, baseline image.Image, target image.Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diffResult, err := e.differ.Calculate(baseline, target)
	if err != nil {
		return nil, xerrors.Errorf("failed to compute difference: %w", err)
	}
	if diffResult == nil || diffResult.Tensor == nil {
		return nil, xerrors.Errorf("differ returned no difference: %w", tensor.ErrNotImage)
	}

	if diffResult.Tensor.IsZero() {
		return &Result{
			Classification: Same,
			Reason:         ReasonIdentical,
		}, nil
	}

	zeroBorder, err := diffResult.Tensor.HasZeroBorder()
	if err != nil {
		return nil, xerrors.Errorf("failed to check difference border: %w", err)
	}
	if zeroBorder {
		return &Result{
			Classification: Same,
			Reason:         ReasonZeroBorder,
			DiffAmount:     diffResult.DiffAmount,
		}, nil
	}

	return &Result{
		Classification: Different,
		Reason:         ReasonDiffers,
		DiffAmount:     diffResult.DiffAmount,
		Diff:           diffResult.Image,
	}, nil
}
