package qr

import (
	"github.com/gomlx/qrexpand/graph"
)

// CompactWY builds the Compact-WY representation T (shape [..., k, k]) of the product of k
// Householder reflectors packed as columns of Y (shape [..., m, k], reflector vectors with their
// unit diagonal stored explicitly and zeros above it) and their scale factors tau (shape [..., k]),
// such that I - Y*T*Yᵀ equals the product of the individual reflectors (I - tau_j*v_j*v_jᵀ).
func CompactWY(y, tau *graph.Node, precision graph.Precision) *graph.Node {
	k := y.Shape().Dim(-1)

	strictUpper := graph.TakeUpperTriangular(graph.BatchMatMul(y, y, true, false, precision), 1)

	negTau := graph.Neg(tau)
	colScale := graph.InsertAxisBeforeLast(negTau)
	u := graph.Mul(strictUpper, colScale)

	diagMask := graph.DiagonalBool(y.Graph(), k)
	t := graph.Select(diagMask, graph.InsertAxisBeforeLast(tau), graph.ScalarLike(u, 0))

	for j := 1; j < k; j++ {
		uCol := sliceAxis(u, u.Rank()-1, j, j+1)
		z := graph.BatchMatMul(t, uCol, false, false, precision)
		zRows := sliceAxis(z, z.Rank()-2, 0, j)
		t = updateRowsCols(t, zRows, 0, j)
	}
	return t
}
