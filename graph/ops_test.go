package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/qrexpand/graph"
	"github.com/gomlx/qrexpand/shapes"
	"github.com/gomlx/qrexpand/tensor"
)

func runOne(t *testing.T, g *graph.Graph, out *graph.Node, feeds map[string]*tensor.Tensor) *tensor.Tensor {
	t.Helper()
	results, err := g.Run(feeds, out)
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}

func TestIota(t *testing.T) {
	g := graph.NewGraph("iota")
	n := graph.Iota(g, shapes.Make(shapes.Float64, 2, 3), 1)
	out := runOne(t, g, n, nil)
	require.Equal(t, []float64{0, 1, 2, 0, 1, 2}, out.Data())
}

func TestAddBroadcast(t *testing.T) {
	g := graph.NewGraph("add")
	a := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 2, 3), []float64{1, 2, 3, 4, 5, 6}))
	b := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 3), []float64{10, 20, 30}))
	out := runOne(t, g, graph.Add(a, b), nil)
	require.Equal(t, []float64{11, 22, 33, 14, 25, 36}, out.Data())
}

func TestSelect(t *testing.T) {
	g := graph.NewGraph("select")
	cond := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Bool, 3), []float64{1, 0, 1}))
	onTrue := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 3), []float64{1, 2, 3}))
	onFalse := graph.ScalarLike(onTrue, -1)
	out := runOne(t, g, graph.Select(cond, onTrue, onFalse), nil)
	require.Equal(t, []float64{1, -1, 3}, out.Data())
}

func TestSliceAndConcatenate(t *testing.T) {
	g := graph.NewGraph("slice")
	x := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 4), []float64{1, 2, 3, 4}))
	left := graph.Slice(x, []int{0}, []int{2})
	right := graph.Slice(x, []int{2}, []int{4})
	joined := graph.Concatenate([]*graph.Node{right, left}, 0)
	out := runOne(t, g, joined, nil)
	require.Equal(t, []float64{3, 4, 1, 2}, out.Data())
}

func TestUpdateSlice(t *testing.T) {
	g := graph.NewGraph("update")
	x := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 3, 3), []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}))
	update := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 2, 1), []float64{100, 200}))
	out := runOne(t, g, graph.UpdateSlice(x, update, []int{0, 1}), nil)
	require.Equal(t, []float64{
		1, 100, 3,
		4, 200, 6,
		7, 8, 9,
	}, out.Data())
}

func TestReduceSum(t *testing.T) {
	g := graph.NewGraph("reduce")
	x := graph.ConstTensor(g, tensor.FromFloat64(shapes.Make(shapes.Float64, 2, 3), []float64{1, 2, 3, 4, 5, 6}))
	out := runOne(t, g, graph.ReduceSum(x, -1), nil)
	require.Equal(t, []float64{6, 15}, out.Data())
}

func TestParameterFeed(t *testing.T) {
	g := graph.NewGraph("param")
	p := g.Parameter("x", shapes.Make(shapes.Float64, 2))
	out := runOne(t, g, graph.Add(p, p), map[string]*tensor.Tensor{
		"x": tensor.FromFloat64(shapes.Make(shapes.Float64, 2), []float64{3, 4}),
	})
	require.Equal(t, []float64{6, 8}, out.Data())
}
