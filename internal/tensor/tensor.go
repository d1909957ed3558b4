// Package tensor implements a dense, row-major N-dimensional array of uint8
// values. Images are represented as (height, width, channel) tensors.
package tensor

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/xerrors"
)

var (
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrUnsupportedInput = errors.New("0-dimensional arrays not supported")
	ErrNotImage         = errors.New("tensor is not a (height, width, 3) image")
)

// Channels is the number of color channels kept per pixel.
const Channels = 3

type Tensor struct {
	shape []int
	data  []uint8
}

// New returns a zero-filled tensor. A call without extents yields a rank-0
// tensor holding a single element.
func New(shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		if s < 0 {
			panic(fmt.Sprintf("tensor: negative extent %d in shape %v", s, shape))
		}
		n *= s
	}

	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  make([]uint8, n),
	}
}

// FromData wraps data without copying it.
func FromData(data []uint8, shape ...int) (*Tensor, error) {
	t := &Tensor{shape: append([]int(nil), shape...)}
	n := 1
	for _, s := range shape {
		if s < 0 {
			return nil, xerrors.Errorf("negative extent %d in shape %v: %w", s, shape, ErrShapeMismatch)
		}
		n *= s
	}
	if n != len(data) {
		return nil, xerrors.Errorf("shape %v needs %d elements, got %d: %w", shape, n, len(data), ErrShapeMismatch)
	}
	t.data = data
	return t, nil
}

func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

func (t *Tensor) NDim() int {
	return len(t.shape)
}

func (t *Tensor) Len() int {
	return len(t.data)
}

// Data exposes the backing slice in row-major order.
func (t *Tensor) Data() []uint8 {
	return t.data
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index %v has rank %d, want %d", idx, len(idx), len(t.shape)))
	}
	off := 0
	for k, i := range idx {
		if i < 0 || i >= t.shape[k] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off = off*t.shape[k] + i
	}
	return off
}

func (t *Tensor) At(idx ...int) uint8 {
	return t.data[t.offset(idx)]
}

func (t *Tensor) Set(v uint8, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.shape) != len(o.shape) {
		return false
	}
	for k := range t.shape {
		if t.shape[k] != o.shape[k] {
			return false
		}
	}
	return true
}

func (t *Tensor) Equal(o *Tensor) bool {
	if !t.SameShape(o) {
		return false
	}
	for i := range t.data {
		if t.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether every element is exactly zero.
func (t *Tensor) IsZero() bool {
	for _, v := range t.data {
		if v != 0 {
			return false
		}
	}
	return true
}

// FromImage converts img into a (height, width, 3) tensor of its R, G and B
// channels. Alpha is dropped and RGBA/NRGBA pixels are taken as stored; other
// models are converted to non-premultiplied 8-bit color first.
func FromImage(img image.Image) *Tensor {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	t := New(height, width, Channels)

	switch src := img.(type) {
	case *image.RGBA:
		copyPix(t, src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), width, height)
	case *image.NRGBA:
		copyPix(t, src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), width, height)
	default:
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				t.data[i] = c.R
				t.data[i+1] = c.G
				t.data[i+2] = c.B
				i += Channels
			}
		}
	}

	return t
}

func copyPix(t *Tensor, pix []uint8, stride int, start int, width int, height int) {
	i := 0
	for y := 0; y < height; y++ {
		row := start + y*stride
		for x := 0; x < width; x++ {
			p := row + x*4
			t.data[i] = pix[p]
			t.data[i+1] = pix[p+1]
			t.data[i+2] = pix[p+2]
			i += Channels
		}
	}
}

// Image converts a (height, width, 3) tensor back into an opaque RGBA image.
func (t *Tensor) Image() (*image.RGBA, error) {
	if len(t.shape) != 3 || t.shape[2] != Channels {
		return nil, xerrors.Errorf("shape %v: %w", t.shape, ErrNotImage)
	}

	height, width := t.shape[0], t.shape[1]
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	i := 0
	for p := 0; p < len(img.Pix); p += 4 {
		img.Pix[p] = t.data[i]
		img.Pix[p+1] = t.data[i+1]
		img.Pix[p+2] = t.data[i+2]
		img.Pix[p+3] = 0xff
		i += Channels
	}

	return img, nil
}
