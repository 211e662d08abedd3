package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/qrexpand/graph"
	"github.com/gomlx/qrexpand/shapes"
	"github.com/gomlx/qrexpand/tensor"
)

func TestIdentityMatrix(t *testing.T) {
	g := graph.NewGraph("identity")
	out := runOne(t, g, graph.IdentityMatrix(g, shapes.Float64, 3), nil)
	require.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, out.Data())
}

func TestRectangularIdentity(t *testing.T) {
	g := graph.NewGraph("rectIdentity")
	out := runOne(t, g, graph.RectangularIdentity(g, shapes.Float64, 3, 2), nil)
	require.Equal(t, []float64{1, 0, 0, 1, 0, 0}, out.Data())
}

func TestTakeUpperAndLowerTriangular(t *testing.T) {
	g := graph.NewGraph("triangular")
	x := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 3, 3), []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}))
	upper := runOne(t, g, graph.TakeUpperTriangular(x, 0), nil)
	require.Equal(t, []float64{1, 2, 3, 0, 5, 6, 0, 0, 9}, upper.Data())

	lower := runOne(t, g, graph.TakeLowerTriangular(x, -1), nil)
	require.Equal(t, []float64{0, 0, 0, 4, 0, 0, 7, 8, 0}, lower.Data())
}
