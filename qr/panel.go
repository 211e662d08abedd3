package qr

import (
	"github.com/gomlx/qrexpand/graph"
	"github.com/gomlx/qrexpand/shapes"
)

// QrBlock runs the unblocked Householder factorization over a single panel (shape [..., m, k],
// m rows by k <= m columns), one reflector per column, each applied in turn to the columns to its
// right before the next pivot is chosen.
//
// It returns aPacked (shape [..., m, k]): the panel with R's upper-triangular part on and above
// the diagonal, and the reflector vectors (minus their implicit leading 1) packed strictly below
// it; and tauPacked (shape [..., k]): the per-column scale factors needed to reconstruct Q from
// aPacked via CompactWY.
func QrBlock(panel *graph.Node, precision graph.Precision) (aPacked, tauPacked *graph.Node) {
	g := panel.Graph()
	dtype := panel.DType()
	m := panel.Shape().Dim(-2)
	k := panel.Shape().Dim(-1)
	batchDims := panel.Shape().BatchDims()

	aPacked = panel
	tauPacked = graph.Zeros(g, shapes.Make(dtype, append(append([]int(nil), batchDims...), k)...))

	rowIdx := graph.Iota(g, shapes.Make(dtype, m), 0)
	colIdx := graph.Iota(g, shapes.Make(dtype, k), 0)

	for j := 0; j < k; j++ {
		x := graph.Reshape(sliceAxis(aPacked, aPacked.Rank()-1, j, j+1), append(append([]int(nil), batchDims...), m)...)
		v, tau, beta := House(x, j, m)

		jScalar := graph.ScalarLike(colIdx, float64(j))
		colMask := graph.ConvertType(graph.GreaterThan(colIdx, jScalar), dtype)
		maskedCols := graph.Mul(aPacked, colMask)

		vRow := graph.InsertAxisBeforeLast(v)
		vCol := graph.ExpandLast(v)
		vta := graph.BatchMatMul(vRow, maskedCols, false, false, precision)
		outer := graph.BatchMatMul(vCol, vta, false, false, precision)
		tauScale := graph.ExpandLast(graph.ExpandLast(tau))
		aPacked = graph.Sub(aPacked, graph.Mul(tauScale, outer))

		jScalarRow := graph.ScalarLike(rowIdx, float64(j))
		predMask := graph.ConvertType(graph.LessThan(rowIdx, jScalarRow), dtype)
		pivotMask := graph.ConvertType(graph.Equal(rowIdx, jScalarRow), dtype)
		succMask := graph.GreaterThan(rowIdx, jScalarRow)

		newX := graph.Add(graph.Mul(x, predMask), graph.Mul(pivotMask, graph.ExpandLast(beta)))
		newX = graph.Add(newX, graph.Where(succMask, v, graph.ScalarLike(v, 0)))

		aPacked = updateRowsCols(aPacked, graph.ExpandLast(newX), 0, j)
		tauPacked = updateLastAxis(tauPacked, graph.ExpandLast(tau), j)
	}
	return aPacked, tauPacked
}
