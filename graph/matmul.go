package graph

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/qrexpand/shapes"
	"github.com/gomlx/qrexpand/tensor"
)

// Precision mirrors the precision-config levels a real matmul emission would accept: it governs
// what dtype the dot-product accumulation happens in, letting a program trade orthogonality for
// speed the same way XLA's PrecisionConfig does at the HLO level.
type Precision int

const (
	// PrecisionDefault accumulates each dot product in float32, same as XLA's DEFAULT precision on
	// accelerators with narrower native accumulators.
	PrecisionDefault Precision = iota
	// PrecisionHigh accumulates in float64.
	PrecisionHigh
	// PrecisionHighest accumulates in float64; this is what the QR expansion always requests, since
	// a narrower accumulator measurably degrades the orthogonality of the Q factor it emits.
	PrecisionHighest
)

func (p Precision) round(v float64) float64 {
	if p == PrecisionDefault {
		return float64(float32(v))
	}
	return v
}

// BatchMatMul computes a batched matrix multiplication of lhs and rhs, treating the last two axes
// of each as the matrix dimensions and every axis before that as a batch dimension (broadcast
// together with numpy rules, mirroring the teacher's BatchDot). transposeLhs/transposeRhs swap the
// last two axes of the corresponding operand before multiplying, without materializing a separate
// transposed tensor.
func BatchMatMul(lhs, rhs *Node, transposeLhs, transposeRhs bool, precision Precision) *Node {
	if lhs.Rank() < 2 || rhs.Rank() < 2 {
		exceptions.Panicf("graph.BatchMatMul: operands must have rank >= 2, got %s and %s", lhs.Shape(), rhs.Shape())
	}
	lm, lk := matDims(lhs.Shape(), transposeLhs)
	rk, rn := matDims(rhs.Shape(), transposeRhs)
	if lk != rk {
		exceptions.Panicf("graph.BatchMatMul: inner dimensions do not match: %s (transpose=%v) vs %s (transpose=%v)",
			lhs.Shape(), transposeLhs, rhs.Shape(), transposeRhs)
	}
	batch := broadcastShapes(lhs.Shape().Dimensions[:lhs.Rank()-2], rhs.Shape().Dimensions[:rhs.Rank()-2])
	outDims := append(append([]int(nil), batch...), lm, rn)
	shape := outputShapeFor(lhs.DType(), outDims)
	g := lhs.graph
	return g.newNode(shape, "BatchMatMul", []*Node{lhs, rhs}, func(ins []*tensor.Tensor) *tensor.Tensor {
		out := tensor.New(shape)
		computeBatchMatMul(out, ins[0], ins[1], batch, lm, lk, rn, transposeLhs, transposeRhs, precision)
		return out
	})
}

// matDims returns (rows, cols) of the last two axes of shape, after the logical transpose.
func matDims(shape shapes.Shape, transpose bool) (rows, cols int) {
	r := shape.Rank()
	rows, cols = shape.Dimensions[r-2], shape.Dimensions[r-1]
	if transpose {
		rows, cols = cols, rows
	}
	return
}

func computeBatchMatMul(out *tensor.Tensor, lhs, rhs *tensor.Tensor, batch []int, m, k, n int, transposeLhs, transposeRhs bool, precision Precision) {
	od := out.Data()
	ld, rd := lhs.Data(), rhs.Data()
	lDims, rDims := lhs.Shape().Dimensions, rhs.Shape().Dimensions
	batchSize := 1
	for _, d := range batch {
		batchSize *= d
	}
	for b := 0; b < batchSize; b++ {
		lBatchOffset := batchOffset(b, batch, lDims[:len(lDims)-2])
		rBatchOffset := batchOffset(b, batch, rDims[:len(rDims)-2])
		lRows, lCols := lDims[len(lDims)-2], lDims[len(lDims)-1]
		rRows, rCols := rDims[len(rDims)-2], rDims[len(rDims)-1]
		lMat := ld[lBatchOffset*lRows*lCols : (lBatchOffset+1)*lRows*lCols]
		rMat := rd[rBatchOffset*rRows*rCols : (rBatchOffset+1)*rRows*rCols]
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				var sum float64
				for p := 0; p < k; p++ {
					var lv, rv float64
					if transposeLhs {
						lv = lMat[p*lCols+i]
					} else {
						lv = lMat[i*lCols+p]
					}
					if transposeRhs {
						rv = rMat[j*rCols+p]
					} else {
						rv = rMat[p*rCols+j]
					}
					sum = precision.round(sum + precision.round(lv*rv))
				}
				od[(b*m+i)*n+j] = sum
			}
		}
	}
}

// batchOffset computes the flat batch-only offset into a tensor whose batch dims are srcBatch,
// given the flat batch index b into the broadcast batch shape outBatch.
func batchOffset(b int, outBatch, srcBatch []int) int {
	if len(srcBatch) == 0 {
		return 0
	}
	outStrides := strides(outBatch)
	srcStrides := strides(srcBatch)
	offset := len(outBatch) - len(srcBatch)
	idx := 0
	for i := range outBatch {
		coord := (b / outStrides[i]) % outBatch[i]
		si := i - offset
		if si < 0 {
			continue
		}
		if srcBatch[si] == 1 {
			continue
		}
		idx += coord * srcStrides[si]
	}
	return idx
}
