package qr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/qrexpand/graph"
	"github.com/gomlx/qrexpand/qr"
	"github.com/gomlx/qrexpand/shapes"
	"github.com/gomlx/qrexpand/tensor"
)

// TestQrBlockClassicPanel runs the unblocked factorization over the first two columns of the
// classic Householder QR example and checks the packed result against a hand-derived factorization.
func TestQrBlockClassicPanel(t *testing.T) {
	g := graph.NewGraph("qrBlockPanel")
	panel := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 3, 2), []float64{
		12, -51,
		6, 167,
		-4, 24,
	}))

	aPacked, tauPacked := qr.QrBlock(panel, graph.PrecisionHighest)
	results, err := g.Run(nil, aPacked, tauPacked)
	require.NoError(t, err)

	wantAPacked := []float64{
		-14, -21,
		3.0 / 13, -175,
		-2.0 / 13, 1.0 / 18,
	}
	require.InDeltaSlice(t, wantAPacked, results[0].Data(), 1e-9)
	require.InDeltaSlice(t, []float64{13.0 / 7, 648.0 / 325}, results[1].Data(), 1e-9)
}

func TestQrBlockSingleColumn(t *testing.T) {
	g := graph.NewGraph("qrBlockSingle")
	panel := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 3, 1), []float64{3, 4, 0}))

	aPacked, tauPacked := qr.QrBlock(panel, graph.PrecisionHighest)
	results, err := g.Run(nil, aPacked, tauPacked)
	require.NoError(t, err)

	require.InDeltaSlice(t, []float64{-5, 0.5, 0}, results[0].Data(), 1e-9)
	require.InDelta(t, 1.6, results[1].Data()[0], 1e-9)
}

func TestQrBlockBatched(t *testing.T) {
	g := graph.NewGraph("qrBlockBatched")
	panel := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 2, 3, 2), []float64{
		12, -51,
		6, 167,
		-4, 24,

		1, 0,
		0, 1,
		0, 0,
	}))

	aPacked, tauPacked := qr.QrBlock(panel, graph.PrecisionHighest)
	results, err := g.Run(nil, aPacked, tauPacked)
	require.NoError(t, err)

	data := results[0].Data()
	require.InDeltaSlice(t, []float64{
		-14, -21,
		3.0 / 13, -175,
		-2.0 / 13, 1.0 / 18,
	}, data[:6], 1e-9)
	// The second batch is the first two columns of the identity matrix: every reflector is
	// degenerate (zero tail), so beta keeps alpha's original sign and the panel is untouched.
	require.InDeltaSlice(t, []float64{
		1, 0,
		0, 1,
		0, 0,
	}, data[6:], 1e-9)
}
