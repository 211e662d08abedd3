package qr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/qrexpand/graph"
	"github.com/gomlx/qrexpand/qr"
	"github.com/gomlx/qrexpand/shapes"
	"github.com/gomlx/qrexpand/tensor"
)

func buildAndRun(t *testing.T, data []float64, dims []int, blockSize int) (qData, rData []float64, m, n int) {
	t.Helper()
	g := graph.NewGraph("qr")
	shape := shapes.Make(shapes.Float64, dims...)
	a := g.Parameter("a", shape)
	qNode, rNode := qr.BuildQR(a, blockSize, graph.PrecisionHighest)
	results, err := g.Run(map[string]*tensor.Tensor{"a": tensor.FromFloat64(shape, data)}, qNode, rNode)
	require.NoError(t, err)
	m = shape.Dim(-2)
	n = shape.Dim(-1)
	return results[0].Data(), results[1].Data(), m, n
}

func checkOrthogonalAndReconstructs(t *testing.T, a, q, r []float64, m, n int) {
	t.Helper()
	qt := transpose(q, m, m)
	qtq := matMul(qt, m, m, q, m, m)
	require.Less(t, frobeniusNormDiff(qtq, identity(m)), 1e-7)

	product := matMul(q, m, m, r, m, n)
	require.Less(t, frobeniusNormDiff(product, a), 1e-7*maxFloat(frobeniusNorm(a), 1))
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// TestBuildQRClassicExample uses the textbook Householder QR example, with a block size small
// enough (2) to force two panels and exercise the trailing-matrix update between them.
func TestBuildQRClassicExample(t *testing.T) {
	a := []float64{
		12, -51, 4,
		6, 167, -68,
		-4, 24, -41,
	}
	q, r, m, n := buildAndRun(t, a, []int{3, 3}, 2)

	require.InDelta(t, -14, r[0*3+0], 1e-9)
	require.InDelta(t, -175, r[1*3+1], 1e-9)
	require.InDelta(t, -35, r[2*3+2], 1e-9)
	require.InDelta(t, 0, r[1*3+0], 1e-9)
	require.InDelta(t, 0, r[2*3+0], 1e-9)
	require.InDelta(t, 0, r[2*3+1], 1e-9)

	checkOrthogonalAndReconstructs(t, a, q, r, m, n)
}

func TestBuildQRIdentity(t *testing.T) {
	a := identity(5)
	q, r, m, n := buildAndRun(t, a, []int{5, 5}, qr.DefaultBlockSize)
	checkOrthogonalAndReconstructs(t, a, q, r, m, n)
	for i := 0; i < 5; i++ {
		require.InDelta(t, 1, abs(r[i*5+i]), 1e-9)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestBuildQRZeroMatrix(t *testing.T) {
	a := make([]float64, 4*3)
	q, r, m, n := buildAndRun(t, a, []int{4, 3}, qr.DefaultBlockSize)
	require.Less(t, frobeniusNormDiff(q, identity(4)), 1e-12)
	require.Less(t, frobeniusNorm(r), 1e-12)
	checkOrthogonalAndReconstructs(t, a, q, r, m, n)
}

func TestBuildQRTall(t *testing.T) {
	a := make([]float64, 7*3)
	for i := range a {
		a[i] = float64(i%7) - float64(i%3) + 1
	}
	q, r, m, n := buildAndRun(t, a, []int{7, 3}, qr.DefaultBlockSize)
	checkOrthogonalAndReconstructs(t, a, q, r, m, n)
	require.InDelta(t, 0, r[1*3+0], 1e-9)
	require.InDelta(t, 0, r[2*3+0], 1e-9)
	require.InDelta(t, 0, r[2*3+1], 1e-9)
}

func TestBuildQRWide(t *testing.T) {
	a := make([]float64, 3*7)
	for i := range a {
		a[i] = float64(i%5) + 0.5*float64(i%3)
	}
	q, r, m, n := buildAndRun(t, a, []int{3, 7}, qr.DefaultBlockSize)
	checkOrthogonalAndReconstructs(t, a, q, r, m, n)
	require.InDelta(t, 0, r[1*7+0], 1e-9)
	require.InDelta(t, 0, r[2*7+0], 1e-9)
	require.InDelta(t, 0, r[2*7+1], 1e-9)
}

func TestBuildQRBatched(t *testing.T) {
	const batch, m, n = 2, 5, 3
	a := make([]float64, batch*m*n)
	for i := range a {
		a[i] = float64(i%11) + 1
	}
	g := graph.NewGraph("qrBatched")
	shape := shapes.Make(shapes.Float64, batch, m, n)
	aNode := g.Parameter("a", shape)
	qNode, rNode := qr.BuildQR(aNode, qr.DefaultBlockSize, graph.PrecisionHighest)
	results, err := g.Run(map[string]*tensor.Tensor{"a": tensor.FromFloat64(shape, a)}, qNode, rNode)
	require.NoError(t, err)

	qData, rData := results[0].Data(), results[1].Data()
	for b := 0; b < batch; b++ {
		aSlice := a[b*m*n : (b+1)*m*n]
		qSlice := qData[b*m*m : (b+1)*m*m]
		rSlice := rData[b*m*n : (b+1)*m*n]
		checkOrthogonalAndReconstructs(t, aSlice, qSlice, rSlice, m, n)
	}
}
