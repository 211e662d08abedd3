package qr

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/qrexpand/graph"
	"github.com/gomlx/qrexpand/shapes"
)

// DefaultBlockSize is the panel width used when a caller doesn't request a specific one. 128
// balances the O(m*n*k) cost of the trailing-matrix update against the O(m*k^2) cost of the
// unblocked panel factorization for the matrix sizes this expansion typically sees.
const DefaultBlockSize = 128

// BuildQR expands a into its Q (shape [..., m, m]) and R (shape [..., m, n]) factors using blocked
// Householder QR: the matrix is processed in column panels of width blockSize (the last panel may
// be narrower), each panel factorized by QrBlock, its reflectors accumulated into a Compact-WY
// pair via CompactWY, and then applied in one shot to both the remaining trailing columns of a and
// the accumulated Q.
func BuildQR(a *graph.Node, blockSize int, precision graph.Precision) (q, r *graph.Node) {
	if a.Rank() < 2 {
		exceptions.Panicf("qr.BuildQR: a must have rank >= 2, got shape %s", a.Shape())
	}
	if blockSize < 1 {
		exceptions.Panicf("qr.BuildQR: blockSize must be >= 1, got %d", blockSize)
	}
	g := a.Graph()
	dtype := a.DType()
	m := a.Shape().Dim(-2)
	n := a.Shape().Dim(-1)
	batchDims := a.Shape().BatchDims()
	p := m
	if n < p {
		p = n
	}

	qDims := append(append([]int(nil), batchDims...), m, m)
	q = graph.BroadcastToShape(graph.IdentityMatrix(g, dtype, m), shapes.Make(dtype, qDims...))
	work := a

	for i := 0; i < p; i += blockSize {
		k := blockSize
		if i+k > p {
			k = p - i
		}

		panel := sliceRowsCols(work, i, m, i, i+k)
		aPacked, tauPacked := QrBlock(panel, precision)
		work = updateRowsCols(work, aPacked, i, i)

		yEye := graph.RectangularIdentity(g, dtype, m-i, k)
		y := graph.Add(yEye, graph.TakeLowerTriangular(aPacked, -1))
		t := CompactWY(y, tauPacked, precision)
		// yT (= Y*Tᵀ) serves both updates: applied on the left it reduces the trailing columns by
		// the panel's combined reflector H(k-1)...H(0) = (I-Y*T*Yᵀ)ᵀ; applied (transposed again) on
		// the right of Q*Y it accumulates the panel's Q-contribution (I-Y*T*Yᵀ) into Q.
		yT := graph.BatchMatMul(y, t, false, true, precision)

		if i+k < n {
			trailing := sliceRowsCols(work, i, m, i+k, n)
			yTrailing := graph.BatchMatMul(y, trailing, true, false, precision)
			update := graph.BatchMatMul(yT, yTrailing, false, false, precision)
			work = updateRowsCols(work, graph.Sub(trailing, update), i, i+k)
		}

		qSlice := sliceRowsCols(q, 0, m, i, m)
		qy := graph.BatchMatMul(qSlice, y, false, false, precision)
		qUpdate := graph.BatchMatMul(qy, yT, false, true, precision)
		q = updateRowsCols(q, graph.Sub(qSlice, qUpdate), 0, i)
	}

	r = graph.TakeUpperTriangular(work, 0)
	return q, r
}
