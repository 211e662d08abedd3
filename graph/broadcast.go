package graph

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/qrexpand/shapes"
)

// broadcastShapes computes the numpy-style broadcast of two dimension slices: dimensions are
// aligned from the right, and any axis of size 1 (or missing) stretches to match the other side.
func broadcastShapes(a, b []int) []int {
	rank := len(a)
	if len(b) > rank {
		rank = len(b)
	}
	out := make([]int, rank)
	for i := 0; i < rank; i++ {
		da, db := 1, 1
		if i < len(a) {
			da = a[len(a)-1-i]
		}
		if i < len(b) {
			db = b[len(b)-1-i]
		}
		switch {
		case da == db:
			out[rank-1-i] = da
		case da == 1:
			out[rank-1-i] = db
		case db == 1:
			out[rank-1-i] = da
		default:
			exceptions.Panicf("graph: shapes %v and %v are not broadcastable", a, b)
		}
	}
	return out
}

// broadcastAll computes the common numpy-style broadcast shape of any number of dimension slices.
func broadcastAll(dimsList ...[]int) []int {
	out := []int{}
	for _, d := range dimsList {
		out = broadcastShapes(out, d)
	}
	return out
}

// strides returns row-major strides for the given dimensions.
func strides(dims []int) []int {
	s := make([]int, len(dims))
	acc := 1
	for i := len(dims) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= dims[i]
	}
	return s
}

// broadcastIndex maps a flat index into outDims to a flat index into srcDims, under numpy
// broadcasting rules (srcDims is right-aligned against outDims, size-1 axes stay at index 0).
func broadcastIndex(flat int, outDims, srcDims []int) int {
	outStrides := strides(outDims)
	offset := len(outDims) - len(srcDims)
	srcStrides := strides(srcDims)
	idx := 0
	for i := range outDims {
		coord := (flat / outStrides[i]) % outDims[i]
		si := i - offset
		if si < 0 {
			continue
		}
		if srcDims[si] == 1 {
			continue
		}
		idx += coord * srcStrides[si]
	}
	return idx
}

func outputShapeFor(dtype shapes.DType, dims []int) shapes.Shape {
	if len(dims) == 0 {
		return shapes.Scalar(dtype)
	}
	return shapes.Make(dtype, dims...)
}
