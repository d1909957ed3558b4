package tensor_test

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"picture-same/internal/tensor"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustFromData(t *testing.T, data []uint8, shape ...int) *tensor.Tensor {
	t.Helper()
	v, err := tensor.FromData(data, shape...)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	return v
}

func TestSaturatingSub(t *testing.T) {
	type in struct {
		first  *tensor.Tensor
		second *tensor.Tensor
	}

	type want struct {
		first []uint8
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				mustFromData(t, []uint8{10, 20, 30}, 3),
				mustFromData(t, []uint8{5, 20, 40}, 3),
			},
			want{
				[]uint8{5, 0, 0},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				mustFromData(t, []uint8{0, 255, 255, 1}, 2, 2),
				mustFromData(t, []uint8{255, 0, 255, 0}, 2, 2),
			},
			want{
				[]uint8{0, 255, 0, 1},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				tensor.New(),
				tensor.New(),
			},
			want{
				[]uint8{0},
			},
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := tensor.SaturatingSub(in.first, in.second)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(want.first, got.Data()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestSaturatingSubShapeMismatch(t *testing.T) {
	_, err := tensor.SaturatingSub(tensor.New(2, 2, 3), tensor.New(3, 3, 3))
	if !errors.Is(err, tensor.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestSaturatingSubSelfIsZero(t *testing.T) {
	a := tensor.New(4, 5, 3)
	for i := range a.Data() {
		a.Data()[i] = uint8(i * 7)
	}

	got, err := tensor.SaturatingSub(a, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int{4, 5, 3}, got.Shape()); diff != "" {
		t.Errorf("shape (-want +got):\n%s", diff)
	}
	if !got.IsZero() {
		t.Errorf("expected all-zero difference, got %v", got.Data())
	}
}

func TestHasZeroBorder(t *testing.T) {
	type want struct {
		first bool
	}

	center := tensor.New(3, 3, 3)
	for c := 0; c < 3; c++ {
		center.Set(10, 1, 1, c)
	}

	corner := tensor.New(3, 3, 3)
	corner.Set(1, 0, 0, 0)

	tests := []struct {
		name     string
		receiver *tensor.Tensor
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			tensor.New(1, 1, 3),
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			center,
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			corner,
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustFromData(t, []uint8{0, 0, 0, 0, 7}, 5),
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			tensor.New(0, 4, 3),
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			tensor.New(2, 2, 2, 2),
			want{
				true,
			},
		},
	}

	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := receiver.HasZeroBorder()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(want.first, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

// Every cross-section being zero is stricter than an outer-ring rule: a
// difference confined to the interior still fails, and so does one confined
// to the edge.
func TestHasZeroBorderMatchesCrossSections(t *testing.T) {
	shapes := [][]int{{4}, {3, 4}, {2, 3, 3}, {2, 2, 3, 2}}
	for _, shape := range shapes {
		v := tensor.New(shape...)
		for i := range v.Data() {
			v.Data()[i] = 1

			got, err := v.HasZeroBorder()
			if err != nil {
				t.Fatalf("shape %v: unexpected error: %v", shape, err)
			}

			want := true
			for axis := range shape {
				for _, s := range v.AxisSlices(axis) {
					if !s.IsZero() {
						want = false
					}
				}
			}
			if got != want {
				t.Errorf("shape %v, element %d: got %v, cross-sections say %v", shape, i, got, want)
			}
			if got {
				t.Errorf("shape %v, element %d: non-zero element passed", shape, i)
			}

			v.Data()[i] = 0
		}
	}
}

func TestHasZeroBorderRankZero(t *testing.T) {
	_, err := tensor.New().HasZeroBorder()
	if !errors.Is(err, tensor.ErrUnsupportedInput) {
		t.Fatalf("expected ErrUnsupportedInput, got %v", err)
	}
}

func TestSlice(t *testing.T) {
	v := mustFromData(t, []uint8{
		1, 2, 3,
		4, 5, 6,
	}, 2, 3)

	if diff := cmp.Diff([]uint8{4, 5, 6}, v.Slice(0, 1).Data()); diff != "" {
		t.Errorf("axis 0 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint8{2, 5}, v.Slice(1, 1).Data()); diff != "" {
		t.Errorf("axis 1 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, v.Slice(1, 2).Shape()); diff != "" {
		t.Errorf("shape (-want +got):\n%s", diff)
	}
}

func TestImageRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, color.RGBA{A: 255})
		}
	}
	img.Set(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	img.Set(1, 1, color.RGBA{R: 250, G: 0, B: 9, A: 255})

	v := tensor.FromImage(img)
	if diff := cmp.Diff([]int{2, 2, 3}, v.Shape()); diff != "" {
		t.Fatalf("shape (-want +got):\n%s", diff)
	}
	if got := v.At(1, 1, 2); got != 9 {
		t.Errorf("expected blue channel 9 at (1,1), got %d", got)
	}

	back, err := v.Image()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(img.Pix, back.Pix); diff != "" {
		t.Errorf("pixels (-want +got):\n%s", diff)
	}
}

func TestFromImageGeneric(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 42})

	if diff := cmp.Diff([]uint8{42, 42, 42}, tensor.FromImage(img).Data()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestImageRejectsNonImageShape(t *testing.T) {
	_, err := tensor.New(2, 2).Image()
	if !errors.Is(err, tensor.ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}
