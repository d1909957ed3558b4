package image

import (
	"image"
	"picture-same/internal/tensor"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

// SaturatingDiff subtracts target from baseline channel by channel, clamping
// at zero, so that a channel darker in baseline than in target yields 0.
type SaturatingDiff struct{}

func NewSaturatingDiff() *SaturatingDiff {
	return &SaturatingDiff{}
}

func (s *SaturatingDiff) Calculate(baseline image.Image, target image.Image) (*DiffResult, error) {
	baselineBounds := baseline.Bounds()
	targetBounds := target.Bounds()
	if baselineBounds.Dx() != targetBounds.Dx() || baselineBounds.Dy() != targetBounds.Dy() {
		return nil, xerrors.Errorf("baseline is %dx%d but target is %dx%d: %w",
			baselineBounds.Dx(), baselineBounds.Dy(), targetBounds.Dx(), targetBounds.Dy(), tensor.ErrShapeMismatch)
	}

	a := tensor.FromImage(baseline)
	b := tensor.FromImage(target)

	diff, amount, err := s.subtract(a, b)
	if err != nil {
		return nil, err
	}

	img, err := diff.Image()
	if err != nil {
		return nil, xerrors.Errorf("failed to render difference: %w", err)
	}

	return &DiffResult{
		Image:      img,
		Tensor:     diff,
		DiffAmount: amount,
	}, nil
}

// subtract computes a ⊖ b over a (height, width, channel) tensor, splitting
// rows across workers, and returns the fraction of pixels with any non-zero
// channel.
func (s *SaturatingDiff) subtract(a *tensor.Tensor, b *tensor.Tensor) (*tensor.Tensor, float64, error) {
	if !a.SameShape(b) {
		return nil, 0.0, xerrors.Errorf("cannot subtract %v from %v: %w", b.Shape(), a.Shape(), tensor.ErrShapeMismatch)
	}

	shape := a.Shape()
	if len(shape) != 3 {
		return nil, 0.0, xerrors.Errorf("shape %v: %w", shape, tensor.ErrNotImage)
	}
	diff := tensor.New(shape...)
	height, width := shape[0], shape[1]
	rowLen := width * shape[2]

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = max(height, 1)
	}
	rowsPerWorker := height / numWorkers

	var changedPixelCount int64
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			tensor.SaturatingSubRange(diff, a, b, startY*rowLen, endY*rowLen)
			atomic.AddInt64(&changedPixelCount, countChangedPixels(diff.Data()[startY*rowLen:endY*rowLen], shape[2]))
		}(startY, endY)
	}

	wg.Wait()

	diffAmount := 0.0
	if totalPixelCount := int64(height * width); totalPixelCount > 0 {
		diffAmount = float64(changedPixelCount) / float64(totalPixelCount)
	}

	return diff, diffAmount, nil
}

func countChangedPixels(data []uint8, channels int) int64 {
	if channels == 0 {
		return 0
	}

	var count int64
	for p := 0; p+channels <= len(data); p += channels {
		for _, v := range data[p : p+channels] {
			if v != 0 {
				count++
				break
			}
		}
	}
	return count
}
