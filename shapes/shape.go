// Package shapes defines Shape, the static rank/dimensions/element-type description attached
// to every value that flows through the graph package: both concrete tensors and the node
// handles produced while building a computation graph.
//
// Shapes in this package are always fully static: every dimension, including the leading batch
// dimensions, is a compile-time (graph construction time) constant. This is the invariant the
// qr package leans on to avoid any shape-variant control flow.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// DType re-exports gopjrt's element-type enum, so callers never need to import gopjrt directly
// just to describe a Shape.
type DType = dtypes.DType

// Common DTypes re-exported for convenience.
const (
	Float32 = dtypes.Float32
	Float64 = dtypes.Float64
	Bool    = dtypes.Bool
	Int32   = dtypes.Int32
)

// Shape describes the element type and dimensions of a tensor or graph node. The last two
// dimensions (if any) are conventionally the "matrix" dimensions; anything before them is a
// batch dimension.
type Shape struct {
	DType      DType
	Dimensions []int
}

// Make builds a Shape, panicking if any dimension is non-positive.
func Make(dtype DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, d := range dimensions {
		if d <= 0 {
			exceptions.Panicf("shapes.Make(%s): dimensions must be positive, got %v", dtype, dimensions)
		}
	}
	return s
}

// Scalar returns a rank-0 Shape of the given DType.
func Scalar(dtype DType) Shape {
	return Shape{DType: dtype}
}

// Rank is the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar reports whether s has no dimensions.
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// Dim returns the size of the given axis; negative axes count from the end.
func (s Shape) Dim(axis int) int {
	a := s.adjust(axis)
	return s.Dimensions[a]
}

func (s Shape) adjust(axis int) int {
	a := axis
	if a < 0 {
		a += s.Rank()
	}
	if a < 0 || a >= s.Rank() {
		exceptions.Panicf("axis %d out of bounds for shape %s", axis, s)
	}
	return a
}

// BatchDims returns the dimensions before the last two (the "matrix" dimensions). For a rank-2
// shape this is empty.
func (s Shape) BatchDims() []int {
	if s.Rank() <= 2 {
		return nil
	}
	return slices.Clone(s.Dimensions[:s.Rank()-2])
}

// Size is the total number of elements.
func (s Shape) Size() int {
	size := 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return size
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// Equal reports whether dtype and dimensions both match.
func (s Shape) Equal(other Shape) bool {
	return s.DType == other.DType && slices.Equal(s.Dimensions, other.Dimensions)
}

// EqualDimensions reports whether dimensions match, ignoring DType.
func (s Shape) EqualDimensions(other Shape) bool {
	return slices.Equal(s.Dimensions, other.Dimensions)
}

// WithDimensions returns a copy of s with its dimensions replaced.
func (s Shape) WithDimensions(dims ...int) Shape {
	return Make(s.DType, dims...)
}

// String renders the shape the way gomlx's shapes.Shape does, e.g. "(float32)[2 3 3]".
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Signature renders a Shape into the canonical string used as the expander's cache key: a stable,
// order-preserving rendering of DType and dimensions, since sub-programs are cached per shape.
func (s Shape) Signature() string {
	return s.String()
}
