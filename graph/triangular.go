package graph

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/qrexpand/shapes"
)

// IdentityMatrix returns a square [dim, dim] identity matrix.
func IdentityMatrix(g *Graph, dtype shapes.DType, dim int) *Node {
	return RectangularIdentity(g, dtype, dim, dim)
}

// RectangularIdentity returns a [rows, cols] matrix with 1 where row == col and 0 elsewhere; it
// need not be square, which is what the QR block driver needs for the unit diagonal of a tall
// panel's reflector matrix.
func RectangularIdentity(g *Graph, dtype shapes.DType, rows, cols int) *Node {
	ishape := shapes.Make(shapes.Int32, rows, cols)
	rowIdx := Iota(g, ishape, 0)
	colIdx := Iota(g, ishape, 1)
	mask := Equal(rowIdx, colIdx)
	return ConvertType(mask, dtype)
}

// DiagonalBool returns a [dim, dim] boolean matrix with true on the diagonal, false elsewhere.
func DiagonalBool(g *Graph, dim int) *Node {
	ishape := shapes.Make(shapes.Int32, dim, dim)
	rowIdx := Iota(g, ishape, 0)
	colIdx := Iota(g, ishape, 1)
	return Equal(rowIdx, colIdx)
}

// ShapedLowerTriangular returns a [rows, cols] boolean matrix where the lower triangle (including
// the diagonal) is true and the rest false. k shifts the triangle: k < 0 moves it down (excludes
// more of the diagonal), k > 0 moves it up (includes more of the upper triangle).
func ShapedLowerTriangular(g *Graph, rows, cols, k int) *Node {
	ishape := shapes.Make(shapes.Int32, rows, cols)
	rowIdx := Iota(g, ishape, 0)
	rowIdx = Add(rowIdx, ScalarLike(rowIdx, float64(k)))
	colIdx := Iota(g, ishape, 1)
	return LessOrEqual(colIdx, rowIdx)
}

// TakeLowerTriangular zeroes out everything above the k-shifted lower triangle of the last two
// axes of x (x.Rank() must be >= 2); the result has the same shape as x.
func TakeLowerTriangular(x *Node, k int) *Node {
	if x.Rank() < 2 {
		exceptions.Panicf("graph.TakeLowerTriangular: x=%s must have rank >= 2", x.Shape())
	}
	mask := ShapedLowerTriangular(x.graph, x.Shape().Dim(-2), x.Shape().Dim(-1), k)
	return Where(mask, x, ScalarLike(x, 0))
}

// TakeUpperTriangular zeroes out everything below the k-shifted upper triangle of the last two
// axes of x (x.Rank() must be >= 2); the result has the same shape as x.
func TakeUpperTriangular(x *Node, k int) *Node {
	if x.Rank() < 2 {
		exceptions.Panicf("graph.TakeUpperTriangular: x=%s must have rank >= 2", x.Shape())
	}
	lower := ShapedLowerTriangular(x.graph, x.Shape().Dim(-2), x.Shape().Dim(-1), k-1)
	return Where(LogicalNot(lower), x, ScalarLike(x, 0))
}
