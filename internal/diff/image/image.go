package image

import (
	"image"
	"picture-same/internal/tensor"
)

type DiffResult struct {
	Image      image.Image
	Tensor     *tensor.Tensor
	DiffAmount float64
}

type Differ interface {
	Calculate(baseline image.Image, target image.Image) (*DiffResult, error)
}
