package qr

import "github.com/gomlx/qrexpand/graph"

// sliceAxis extracts the half-open range [start, end) along axis, keeping every other axis whole.
func sliceAxis(x *graph.Node, axis, start, end int) *graph.Node {
	rank := x.Rank()
	starts := make([]int, rank)
	limits := append([]int(nil), x.Shape().Dimensions...)
	starts[axis] = start
	limits[axis] = end
	return graph.Slice(x, starts, limits)
}

// sliceRowsCols extracts rows [rowStart,rowEnd) and columns [colStart,colEnd) of x's last two
// axes, keeping every batch axis whole.
func sliceRowsCols(x *graph.Node, rowStart, rowEnd, colStart, colEnd int) *graph.Node {
	rank := x.Rank()
	starts := make([]int, rank)
	limits := append([]int(nil), x.Shape().Dimensions...)
	starts[rank-2], limits[rank-2] = rowStart, rowEnd
	starts[rank-1], limits[rank-1] = colStart, colEnd
	return graph.Slice(x, starts, limits)
}

// updateLastAxis returns x with the region of its last axis starting at start replaced by update.
func updateLastAxis(x, update *graph.Node, start int) *graph.Node {
	starts := make([]int, x.Rank())
	starts[x.Rank()-1] = start
	return graph.UpdateSlice(x, update, starts)
}

// updateRowsCols returns x with the rows/cols region starting at (rowStart, colStart) replaced by
// update (whose size along those two axes determines the extent of the region).
func updateRowsCols(x, update *graph.Node, rowStart, colStart int) *graph.Node {
	rank := x.Rank()
	starts := make([]int, rank)
	starts[rank-2], starts[rank-1] = rowStart, colStart
	return graph.UpdateSlice(x, update, starts)
}
