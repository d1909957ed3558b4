package tensor

import (
	"fmt"

	"golang.org/x/xerrors"
)

// SaturatingSub returns a new tensor holding max(a-b, 0) element-wise.
func SaturatingSub(a *Tensor, b *Tensor) (*Tensor, error) {
	if !a.SameShape(b) {
		return nil, xerrors.Errorf("cannot subtract %v from %v: %w", b.shape, a.shape, ErrShapeMismatch)
	}

	dst := New(a.shape...)
	SaturatingSubRange(dst, a, b, 0, len(a.data))
	return dst, nil
}

// SaturatingSubRange writes max(a-b, 0) into dst for the flat element range
// [from, to). All three tensors must already share a shape.
func SaturatingSubRange(dst *Tensor, a *Tensor, b *Tensor, from int, to int) {
	ad, bd, dd := a.data[from:to], b.data[from:to], dst.data[from:to]
	for i := range dd {
		if ad[i] > bd[i] {
			dd[i] = ad[i] - bd[i]
		} else {
			dd[i] = 0
		}
	}
}

// span describes how the elements with a fixed index along one axis are laid
// out: outer blocks of size inner, spaced stride elements apart.
type span struct {
	outer  int
	inner  int
	stride int
}

func (t *Tensor) span(axis int) span {
	if axis < 0 || axis >= len(t.shape) {
		panic(fmt.Sprintf("tensor: axis %d out of range for rank %d", axis, len(t.shape)))
	}
	s := span{outer: 1, inner: 1}
	for _, e := range t.shape[:axis] {
		s.outer *= e
	}
	for _, e := range t.shape[axis+1:] {
		s.inner *= e
	}
	s.stride = t.shape[axis] * s.inner
	return s
}

// Slice returns a copy of the sub-tensor at index i along axis, i.e. the i-th
// element of the array obtained by moving axis to the front.
func (t *Tensor) Slice(axis int, i int) *Tensor {
	s := t.span(axis)
	if i < 0 || i >= t.shape[axis] {
		panic(fmt.Sprintf("tensor: index %d out of range for axis %d of %v", i, axis, t.shape))
	}

	shape := make([]int, 0, len(t.shape)-1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, t.shape[axis+1:]...)
	out := New(shape...)

	n := 0
	for o := 0; o < s.outer; o++ {
		start := o*s.stride + i*s.inner
		n += copy(out.data[n:], t.data[start:start+s.inner])
	}
	return out
}

// AxisSlices returns every sub-tensor along axis, in index order.
func (t *Tensor) AxisSlices(axis int) []*Tensor {
	slices := make([]*Tensor, t.shape[axis])
	for i := range slices {
		slices[i] = t.Slice(axis, i)
	}
	return slices
}

func (t *Tensor) sliceIsZero(axis int, i int) bool {
	s := t.span(axis)
	for o := 0; o < s.outer; o++ {
		start := o*s.stride + i*s.inner
		for _, v := range t.data[start : start+s.inner] {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// HasZeroBorder reports whether, for every axis, every cross-section taken
// along that axis is entirely zero. This checks all cross-sections, not only
// the outermost ones, so for a tensor with no zero-extent axis it holds
// exactly when the tensor is all zero.
func (t *Tensor) HasZeroBorder() (bool, error) {
	if len(t.shape) == 0 {
		return false, ErrUnsupportedInput
	}

	for axis := range t.shape {
		for i := 0; i < t.shape[axis]; i++ {
			if !t.sliceIsZero(axis, i) {
				return false, nil
			}
		}
	}
	return true, nil
}
