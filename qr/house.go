// Package qr expands a QR-decomposition custom call into a sub-graph of primitive graph.Node
// operations implementing blocked Householder QR with the Compact-WY representation of the
// accumulated reflectors, the way gomlx-gomlx/graph and pkg/core/graph build up composite ops out
// of primitives.
package qr

import (
	"github.com/gomlx/qrexpand/graph"
	"github.com/gomlx/qrexpand/shapes"
)

// House builds a single Householder reflector for column x (shape [..., m]) pivoting on row k (a
// Go-time constant, since every loop here is unrolled at graph-construction time).
//
// It returns v (shape [..., m], the reflector vector with v[k]=1 and v[i]=0 for i<k), tau (shape
// [...], the scale factor such that (I - tau*v*vᵀ) zeroes x below row k), and beta (shape [...],
// the new value x[k] takes after the reflection, i.e. R's diagonal entry).
//
// Rows before k are masked off arithmetically rather than sliced away, so v keeps the full
// length-m shape throughout a panel: every reflector in a panel stays comparable and stackable
// without ever reshaping.
func House(x *graph.Node, k, m int) (v, tau, beta *graph.Node) {
	g := x.Graph()
	dtype := x.DType()

	iotaM := graph.Iota(g, shapes.Make(dtype, m), 0)
	kScalar := graph.ScalarLike(iotaM, float64(k))
	tailMask := graph.ConvertType(graph.GreaterThan(iotaM, kScalar), dtype)
	pivotMask := graph.ConvertType(graph.Equal(iotaM, kScalar), dtype)

	alpha := graph.Reshape(sliceAxis(x, x.Rank()-1, k, k+1), x.Shape().Dimensions[:x.Rank()-1]...)
	xTail := graph.Mul(x, tailMask)
	sigma := graph.ReduceSum(graph.Square(xTail), -1)
	mu := graph.Sqrt(graph.Add(graph.Square(alpha), sigma))

	sigmaIsZero := graph.Equal(sigma, graph.ScalarLike(sigma, 0))
	signTerm := graph.Select(graph.LessThan(alpha, graph.ScalarLike(alpha, 0)), graph.ScalarLike(alpha, 1), graph.ScalarLike(alpha, -1))
	betaNonTrivial := graph.Mul(signTerm, mu)
	beta = graph.Select(sigmaIsZero, alpha, betaNonTrivial)

	tau = graph.Select(sigmaIsZero, graph.ScalarLike(alpha, 0), graph.Div(graph.Sub(beta, alpha), beta))
	divisor := graph.Select(sigmaIsZero, graph.ScalarLike(alpha, 1), graph.Sub(alpha, beta))

	v = graph.Add(pivotMask, graph.Div(xTail, graph.ExpandLast(divisor)))
	return v, tau, beta
}
