// Package tensor provides the concrete, host-resident tensor values used to feed and read back
// the graphs built by package graph. It plays the role gomlx's types/tensors package plays for
// the full framework, trimmed down to a single dense float64 backing store.
package tensor

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/qrexpand/shapes"
)

// Tensor is a host-resident, dense, row-major array of float64 values tagged with a DType. Values
// are always stored as float64 internally regardless of DType; the declared DType is carried as a
// tag and does not change how values are stored or computed (matmul rounding is chosen by
// graph.Precision, not by the DType).
type Tensor struct {
	shape shapes.Shape
	data  []float64
}

// New allocates a zero-filled Tensor of the given shape.
func New(shape shapes.Shape) *Tensor {
	return &Tensor{shape: shape, data: make([]float64, shape.Size())}
}

// FromFloat64 builds a Tensor from a flat row-major slice of float64 values.
func FromFloat64(shape shapes.Shape, data []float64) *Tensor {
	if len(data) != shape.Size() {
		exceptions.Panicf("tensor.FromFloat64: shape %s expects %d elements, got %d", shape, shape.Size(), len(data))
	}
	t := &Tensor{shape: shape, data: make([]float64, len(data))}
	copy(t.data, data)
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Data returns the flat row-major backing slice. Callers must not retain it across mutations.
func (t *Tensor) Data() []float64 { return t.data }

// At returns the value at the given multi-index.
func (t *Tensor) At(index ...int) float64 {
	return t.data[t.flatIndex(index)]
}

// Set writes the value at the given multi-index.
func (t *Tensor) Set(value float64, index ...int) {
	t.data[t.flatIndex(index)] = value
}

func (t *Tensor) flatIndex(index []int) int {
	if len(index) != t.shape.Rank() {
		exceptions.Panicf("tensor index %v does not match rank of shape %s", index, t.shape)
	}
	flat := 0
	for axis, idx := range index {
		if idx < 0 || idx >= t.shape.Dimensions[axis] {
			exceptions.Panicf("tensor index %v out of bounds for shape %s", index, t.shape)
		}
		flat = flat*t.shape.Dimensions[axis] + idx
	}
	return flat
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{shape: t.shape.Clone(), data: make([]float64, len(t.data))}
	copy(c.data, t.data)
	return c
}

// String renders a compact description, not the full contents, matching gomlx's convention of
// not dumping large tensors in String().
func (t *Tensor) String() string {
	const maxPrint = 5
	if t.shape.Size() <= maxPrint {
		return fmt.Sprintf("%s%v", t.shape, t.data)
	}
	return fmt.Sprintf("%s{...%d values}", t.shape, len(t.data))
}

// Tolerance returns a default testing tolerance for Q/R numerical checks, scaled by the matrix's
// leading dimension, using a looser bound for float32 than for float64.
func Tolerance(dtype dtypes.DType, m int) float64 {
	base := 1e-12
	if dtype == dtypes.Float32 {
		base = 1e-5
	}
	return base * float64(m)
}
