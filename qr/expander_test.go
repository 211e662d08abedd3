package qr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/qrexpand/qr"
	"github.com/gomlx/qrexpand/shapes"
	"github.com/gomlx/qrexpand/tensor"
)

func TestMatchesPattern(t *testing.T) {
	require.True(t, qr.MatchesPattern("QrDecomposition", 2))
	require.True(t, qr.MatchesPattern("QrDecomposition", 3))
	require.False(t, qr.MatchesPattern("QrDecomposition", 1))
	require.False(t, qr.MatchesPattern("SomethingElse", 2))
}

func TestExpanderRejectsLowRankOperand(t *testing.T) {
	e := qr.NewExpander()
	_, err := e.Expand(shapes.Make(shapes.Float64, 5))
	require.Error(t, err)
	var invalidArg *qr.InvalidArgumentError
	require.ErrorAs(t, err, &invalidArg)
}

func TestExpanderCachesByShape(t *testing.T) {
	e := qr.NewExpander()
	shape := shapes.Make(shapes.Float64, 4, 4)

	prog1, err := e.Expand(shape)
	require.NoError(t, err)
	prog2, err := e.Expand(shape)
	require.NoError(t, err)
	require.Same(t, prog1, prog2)

	other, err := e.Expand(shapes.Make(shapes.Float64, 3, 3))
	require.NoError(t, err)
	require.NotSame(t, prog1, other)
}

func TestExpanderProgramRunsEndToEnd(t *testing.T) {
	e := qr.NewExpander()
	shape := shapes.Make(shapes.Float64, 3, 3)
	prog, err := e.Expand(shape)
	require.NoError(t, err)

	a := []float64{12, -51, 4, 6, 167, -68, -4, 24, -41}
	results, err := prog.Graph.Run(map[string]*tensor.Tensor{"a": tensor.FromFloat64(shape, a)}, prog.Q, prog.R)
	require.NoError(t, err)

	r := results[1].Data()
	require.InDelta(t, -14, r[0*3+0], 1e-9)
	require.InDelta(t, -175, r[1*3+1], 1e-9)
	require.InDelta(t, -35, r[2*3+2], 1e-9)
}
