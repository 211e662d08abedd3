package graph

import (
	"math"

	"github.com/gomlx/exceptions"

	"github.com/gomlx/qrexpand/shapes"
	"github.com/gomlx/qrexpand/tensor"
)

// Scalar creates a constant scalar-shaped Node.
func Scalar(g *Graph, dtype shapes.DType, value float64) *Node {
	shape := shapes.Scalar(dtype)
	return g.newNode(shape, "Scalar", nil, func([]*tensor.Tensor) *tensor.Tensor {
		return tensor.FromFloat64(shape, []float64{value})
	})
}

// ScalarLike creates a constant scalar Node with the same DType as x.
func ScalarLike(x *Node, value float64) *Node {
	return Scalar(x.graph, x.DType(), value)
}

// ConstTensor wraps a concrete host tensor as a constant Node.
func ConstTensor(g *Graph, t *tensor.Tensor) *Node {
	shape := t.Shape()
	data := append([]float64(nil), t.Data()...)
	return g.newNode(shape, "Const", nil, func([]*tensor.Tensor) *tensor.Tensor {
		return tensor.FromFloat64(shape, data)
	})
}

// Zeros creates a constant zero-filled Node of the given shape.
func Zeros(g *Graph, shape shapes.Shape) *Node {
	return g.newNode(shape, "Zeros", nil, func([]*tensor.Tensor) *tensor.Tensor {
		return tensor.New(shape)
	})
}

// Iota returns a Node of the given shape whose values along iotaAxis run 0, 1, 2, ..., broadcast
// across every other axis.
func Iota(g *Graph, shape shapes.Shape, iotaAxis int) *Node {
	axis := iotaAxis
	if axis < 0 {
		axis += shape.Rank()
	}
	if axis < 0 || axis >= shape.Rank() {
		exceptions.Panicf("graph.Iota: axis %d out of range for shape %s", iotaAxis, shape)
	}
	dims := append([]int(nil), shape.Dimensions...)
	return g.newNode(shape, "Iota", nil, func([]*tensor.Tensor) *tensor.Tensor {
		out := tensor.New(shape)
		data := out.Data()
		st := strides(dims)
		for flat := range data {
			coord := (flat / st[axis]) % dims[axis]
			data[flat] = float64(coord)
		}
		return out
	})
}

func elementwiseBinary(kind string, a, b *Node, dtype shapes.DType, fn func(x, y float64) float64) *Node {
	outDims := broadcastAll(a.Shape().Dimensions, b.Shape().Dimensions)
	shape := outputShapeFor(dtype, outDims)
	return a.graph.newNode(shape, kind, []*Node{a, b}, func(ins []*tensor.Tensor) *tensor.Tensor {
		x, y := ins[0], ins[1]
		out := tensor.New(shape)
		data := out.Data()
		xd, yd := x.Data(), y.Data()
		for flat := range data {
			xi := broadcastIndex(flat, outDims, x.Shape().Dimensions)
			yi := broadcastIndex(flat, outDims, y.Shape().Dimensions)
			data[flat] = fn(xd[xi], yd[yi])
		}
		return out
	})
}

func elementwiseUnary(kind string, x *Node, fn func(v float64) float64) *Node {
	shape := x.shape
	return x.graph.newNode(shape, kind, []*Node{x}, func(ins []*tensor.Tensor) *tensor.Tensor {
		out := tensor.New(shape)
		data, xd := out.Data(), ins[0].Data()
		for i, v := range xd {
			data[i] = fn(v)
		}
		return out
	})
}

// Add returns a+b with numpy-style broadcasting.
func Add(a, b *Node) *Node { return elementwiseBinary("Add", a, b, a.DType(), func(x, y float64) float64 { return x + y }) }

// Sub returns a-b with numpy-style broadcasting.
func Sub(a, b *Node) *Node { return elementwiseBinary("Sub", a, b, a.DType(), func(x, y float64) float64 { return x - y }) }

// Mul returns a*b with numpy-style broadcasting.
func Mul(a, b *Node) *Node { return elementwiseBinary("Mul", a, b, a.DType(), func(x, y float64) float64 { return x * y }) }

// Div returns a/b with numpy-style broadcasting.
func Div(a, b *Node) *Node { return elementwiseBinary("Div", a, b, a.DType(), func(x, y float64) float64 { return x / y }) }

// Neg returns -x.
func Neg(x *Node) *Node { return elementwiseUnary("Neg", x, func(v float64) float64 { return -v }) }

// Sqrt returns the elementwise square root.
func Sqrt(x *Node) *Node { return elementwiseUnary("Sqrt", x, math.Sqrt) }

// Square returns x*x elementwise.
func Square(x *Node) *Node { return elementwiseUnary("Square", x, func(v float64) float64 { return v * v }) }

// Abs returns |x| elementwise.
func Abs(x *Node) *Node { return elementwiseUnary("Abs", x, math.Abs) }

// LessThan returns a boolean-valued Node: a < b, elementwise with broadcasting.
func LessThan(a, b *Node) *Node {
	return elementwiseBinary("LessThan", a, b, shapes.Bool, func(x, y float64) float64 { return boolF(x < y) })
}

// GreaterThan returns a boolean-valued Node: a > b, elementwise with broadcasting.
func GreaterThan(a, b *Node) *Node {
	return elementwiseBinary("GreaterThan", a, b, shapes.Bool, func(x, y float64) float64 { return boolF(x > y) })
}

// Equal returns a boolean-valued Node: a == b, elementwise with broadcasting.
func Equal(a, b *Node) *Node {
	return elementwiseBinary("Equal", a, b, shapes.Bool, func(x, y float64) float64 { return boolF(x == y) })
}

// LessOrEqual returns a boolean-valued Node: a <= b, elementwise with broadcasting.
func LessOrEqual(a, b *Node) *Node {
	return elementwiseBinary("LessOrEqual", a, b, shapes.Bool, func(x, y float64) float64 { return boolF(x <= y) })
}

// GreaterOrEqual returns a boolean-valued Node: a >= b, elementwise with broadcasting.
func GreaterOrEqual(a, b *Node) *Node {
	return elementwiseBinary("GreaterOrEqual", a, b, shapes.Bool, func(x, y float64) float64 { return boolF(x >= y) })
}

// LogicalNot returns a boolean-valued Node: the elementwise negation of x (treated as nonzero ==
// true).
func LogicalNot(x *Node) *Node {
	return elementwiseUnary("LogicalNot", x, func(v float64) float64 { return boolF(v == 0) })
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ConvertType returns a Node with the same values as x but tagged with dtype. Since this package's
// interpreter always keeps values as float64 internally, this only rewrites the Shape's DType.
func ConvertType(x *Node, dtype shapes.DType) *Node {
	shape := shapes.Make(dtype, x.Shape().Dimensions...)
	if x.Rank() == 0 {
		shape = shapes.Scalar(dtype)
	}
	return x.graph.newNode(shape, "ConvertType", []*Node{x}, func(ins []*tensor.Tensor) *tensor.Tensor {
		return tensor.FromFloat64(shape, append([]float64(nil), ins[0].Data()...))
	})
}

// Select chooses elementwise between onTrue and onFalse according to cond (nonzero is true),
// broadcasting all three operands together, the way graph.Where works in the teacher package.
func Select(cond, onTrue, onFalse *Node) *Node {
	outDims := broadcastAll(cond.Shape().Dimensions, onTrue.Shape().Dimensions, onFalse.Shape().Dimensions)
	shape := outputShapeFor(onTrue.DType(), outDims)
	return cond.graph.newNode(shape, "Select", []*Node{cond, onTrue, onFalse}, func(ins []*tensor.Tensor) *tensor.Tensor {
		c, t, f := ins[0], ins[1], ins[2]
		out := tensor.New(shape)
		data := out.Data()
		cd, td, fd := c.Data(), t.Data(), f.Data()
		for flat := range data {
			ci := broadcastIndex(flat, outDims, c.Shape().Dimensions)
			if cd[ci] != 0 {
				ti := broadcastIndex(flat, outDims, t.Shape().Dimensions)
				data[flat] = td[ti]
			} else {
				fi := broadcastIndex(flat, outDims, f.Shape().Dimensions)
				data[flat] = fd[fi]
			}
		}
		return out
	})
}

// Where is an alias for Select, matching the name the teacher package uses at call sites.
func Where(cond, onTrue, onFalse *Node) *Node { return Select(cond, onTrue, onFalse) }

// Reshape returns x reshaped to the given dimensions; the total element count must be unchanged.
func Reshape(x *Node, dims ...int) *Node {
	shape := outputShapeFor(x.DType(), dims)
	if shape.Size() != x.Shape().Size() {
		exceptions.Panicf("graph.Reshape: cannot reshape %s into %v", x.Shape(), dims)
	}
	return x.graph.newNode(shape, "Reshape", []*Node{x}, func(ins []*tensor.Tensor) *tensor.Tensor {
		return tensor.FromFloat64(shape, append([]float64(nil), ins[0].Data()...))
	})
}

// BroadcastToShape broadcasts x (numpy-style) to the given target shape, materializing a Node of
// exactly that shape.
func BroadcastToShape(x *Node, target shapes.Shape) *Node {
	outDims := broadcastShapes(x.Shape().Dimensions, target.Dimensions)
	if !dimsEqual(outDims, target.Dimensions) {
		exceptions.Panicf("graph.BroadcastToShape: %s is not broadcastable to %s", x.Shape(), target)
	}
	shape := outputShapeFor(x.DType(), target.Dimensions)
	srcDims := append([]int(nil), x.Shape().Dimensions...)
	return x.graph.newNode(shape, "BroadcastToShape", []*Node{x}, func(ins []*tensor.Tensor) *tensor.Tensor {
		out := tensor.New(shape)
		od, xd := out.Data(), ins[0].Data()
		for flat := range od {
			od[flat] = xd[broadcastIndex(flat, target.Dimensions, srcDims)]
		}
		return out
	})
}

func dimsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ExpandLast appends a trailing axis of size 1.
func ExpandLast(x *Node) *Node {
	dims := append(append([]int(nil), x.Shape().Dimensions...), 1)
	return Reshape(x, dims...)
}

// InsertAxisBeforeLast inserts an axis of size 1 immediately before the last axis, turning
// [..., k] into [..., 1, k].
func InsertAxisBeforeLast(x *Node) *Node {
	dims := x.Shape().Dimensions
	if len(dims) == 0 {
		exceptions.Panicf("graph.InsertAxisBeforeLast: cannot apply to a scalar")
	}
	out := append(append([]int(nil), dims[:len(dims)-1]...), 1, dims[len(dims)-1])
	return Reshape(x, out...)
}

// ReduceSum sums x over the given axes, dropping them from the result's rank.
func ReduceSum(x *Node, axes ...int) *Node {
	rank := x.Rank()
	drop := make(map[int]bool, len(axes))
	for _, a := range axes {
		if a < 0 {
			a += rank
		}
		drop[a] = true
	}
	var outDims []int
	var keepAxes []int
	for i, d := range x.Shape().Dimensions {
		if !drop[i] {
			outDims = append(outDims, d)
			keepAxes = append(keepAxes, i)
		}
	}
	shape := outputShapeFor(x.DType(), outDims)
	inDims := append([]int(nil), x.Shape().Dimensions...)
	return x.graph.newNode(shape, "ReduceSum", []*Node{x}, func(ins []*tensor.Tensor) *tensor.Tensor {
		out := tensor.New(shape)
		od := out.Data()
		id := ins[0].Data()
		inStrides := strides(inDims)
		outStrides := strides(outDims)
		for flat, v := range id {
			outFlat := 0
			for j, axis := range keepAxes {
				coord := (flat / inStrides[axis]) % inDims[axis]
				outFlat += coord * outStrides[j]
			}
			od[outFlat] += v
		}
		return out
	})
}

// Slice extracts the half-open range [starts[i], limits[i]) along every axis i; len(starts) and
// len(limits) must equal x's rank.
func Slice(x *Node, starts, limits []int) *Node {
	inDims := x.Shape().Dimensions
	rank := len(inDims)
	if len(starts) != rank || len(limits) != rank {
		exceptions.Panicf("graph.Slice: starts/limits must have length %d, got %d/%d", rank, len(starts), len(limits))
	}
	outDims := make([]int, rank)
	for i := range inDims {
		if starts[i] < 0 || limits[i] > inDims[i] || starts[i] > limits[i] {
			exceptions.Panicf("graph.Slice: range [%d,%d) invalid for axis %d of size %d", starts[i], limits[i], i, inDims[i])
		}
		outDims[i] = limits[i] - starts[i]
	}
	shape := outputShapeFor(x.DType(), outDims)
	startsCopy := append([]int(nil), starts...)
	return x.graph.newNode(shape, "Slice", []*Node{x}, func(ins []*tensor.Tensor) *tensor.Tensor {
		out := tensor.New(shape)
		od := out.Data()
		inStrides := strides(inDims)
		outStrides := strides(outDims)
		id := ins[0].Data()
		for flat := range od {
			inFlat := 0
			for axis := range outDims {
				coord := (flat / outStrides[axis]) % outDims[axis]
				inFlat += (coord + startsCopy[axis]) * inStrides[axis]
			}
			od[flat] = id[inFlat]
		}
		return out
	})
}

// Concatenate joins nodes along axis; all other dimensions must match.
func Concatenate(nodes []*Node, axis int) *Node {
	if len(nodes) == 0 {
		exceptions.Panicf("graph.Concatenate: need at least one node")
	}
	rank := nodes[0].Rank()
	a := axis
	if a < 0 {
		a += rank
	}
	outDims := append([]int(nil), nodes[0].Shape().Dimensions...)
	outDims[a] = 0
	for _, n := range nodes {
		for i, d := range n.Shape().Dimensions {
			if i != a && d != outDims[i] {
				exceptions.Panicf("graph.Concatenate: shape %s incompatible with axis %d concatenation", n.Shape(), axis)
			}
		}
		outDims[a] += n.Shape().Dimensions[a]
	}
	shape := outputShapeFor(nodes[0].DType(), outDims)
	g := nodes[0].graph
	return g.newNode(shape, "Concatenate", nodes, func(ins []*tensor.Tensor) *tensor.Tensor {
		out := tensor.New(shape)
		od := out.Data()
		outStrides := strides(outDims)
		offset := 0
		for _, in := range ins {
			inDims := in.Shape().Dimensions
			inStrides := strides(inDims)
			id := in.Data()
			for flat, v := range id {
				outFlat := 0
				for axis := range inDims {
					coord := (flat / inStrides[axis]) % inDims[axis]
					if axis == a {
						coord += offset
					}
					outFlat += coord * outStrides[axis]
				}
				od[outFlat] = v
			}
			offset += inDims[a]
		}
		return out
	})
}

// UpdateSlice returns x with the sub-region starting at starts (and sized like update) replaced
// by update's values. Because every offset here is a Go-time constant, this is implemented as a
// structural slice-and-concatenate along each axis that update doesn't fully span, rather than as
// a dynamic-update-slice primitive.
//
// Axes are folded in one at a time, in increasing order: by the time axis i is folded, every
// earlier axis of result already spans the whole of x, so the "before"/"after" slices taken from
// x for axis i must still use update's own range on every axis after i (not yet folded) and x's
// full range on every axis before i (already folded).
func UpdateSlice(x, update *Node, starts []int) *Node {
	rank := x.Rank()
	if len(starts) != rank || update.Rank() != rank {
		exceptions.Panicf("graph.UpdateSlice: starts must have rank %d", rank)
	}
	sizes := append([]int(nil), update.Shape().Dimensions...)
	result := update
	for axis := 0; axis < rank; axis++ {
		full := x.Shape().Dimensions[axis]
		start := starts[axis]
		end := start + sizes[axis]
		if start < 0 || end > full {
			exceptions.Panicf("graph.UpdateSlice: axis %d range [%d,%d) out of bounds for size %d", axis, start, end, full)
		}
		if start == 0 && end == full {
			continue
		}
		var parts []*Node
		if start > 0 {
			parts = append(parts, sliceFoldedAxis(x, rank, axis, 0, start, starts, sizes))
		}
		parts = append(parts, result)
		if end < full {
			parts = append(parts, sliceFoldedAxis(x, rank, axis, end, full, starts, sizes))
		}
		result = Concatenate(parts, axis)
	}
	return result
}

func sliceFoldedAxis(x *Node, rank, axis, rangeStart, rangeEnd int, starts, sizes []int) *Node {
	s := make([]int, rank)
	l := make([]int, rank)
	for j := 0; j < rank; j++ {
		switch {
		case j < axis:
			s[j], l[j] = 0, x.Shape().Dimensions[j]
		case j == axis:
			s[j], l[j] = rangeStart, rangeEnd
		default:
			s[j], l[j] = starts[j], starts[j]+sizes[j]
		}
	}
	return Slice(x, s, l)
}
