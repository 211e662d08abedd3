package qr

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/gomlx/qrexpand/graph"
	"github.com/gomlx/qrexpand/shapes"
)

// CustomCallName is the name a host graph's custom-call instruction must carry for Expander to
// recognize it as a candidate for expansion.
const CustomCallName = "QrDecomposition"

// MatchesPattern reports whether a custom-call instruction with the given name and operand rank
// is one this expander knows how to expand: exactly the name QrDecomposition, operating on an
// operand of rank 2 or higher (trailing two axes are the matrix, anything before is batch).
func MatchesPattern(callName string, operandRank int) bool {
	return callName == CustomCallName && operandRank >= 2
}

// Program is the compiled sub-graph substituted in place of a single QrDecomposition custom call:
// a self-contained Graph with one Parameter (the operand) and two outputs, Q and R.
type Program struct {
	Name  string
	Graph *graph.Graph
	Param *graph.Node
	Q, R  *graph.Node
	Shape shapes.Shape
}

// Expander holds the cache of sub-programs built so far, keyed by operand shape signature: two
// QrDecomposition call sites with identical operand shapes share one compiled Program rather than
// each getting their own copy of the expansion.
type Expander struct {
	mu        sync.Mutex
	cache     map[string]*Program
	BlockSize int
	Precision graph.Precision
}

// NewExpander creates an Expander with the default block size and the highest matmul precision;
// lower precision measurably degrades the orthogonality of the emitted Q factor, so expansions
// never ask for less.
func NewExpander() *Expander {
	return &Expander{
		cache:     make(map[string]*Program),
		BlockSize: DefaultBlockSize,
		Precision: graph.PrecisionHighest,
	}
}

// Expand returns the cached or newly built Program for a QrDecomposition call over an operand of
// the given shape. It is the expander's substitution contract: callers rewrite their host graph by
// replacing the matched custom-call node with a call into the returned Program, feeding it the same
// operand and reading back (Q, R) in its place.
func (e *Expander) Expand(operandShape shapes.Shape) (*Program, error) {
	if !MatchesPattern(CustomCallName, operandShape.Rank()) {
		return nil, invalidArgument("qr.Expand: operand shape %s has rank %d, QrDecomposition requires rank >= 2", operandShape, operandShape.Rank())
	}

	key := operandShape.Signature()
	e.mu.Lock()
	if prog, ok := e.cache[key]; ok {
		e.mu.Unlock()
		klog.V(2).Infof("qr.Expand: cache hit for operand shape %s (program %q)", operandShape, prog.Name)
		return prog, nil
	}
	e.mu.Unlock()

	prog, err := e.build(operandShape)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if existing, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return existing, nil
	}
	e.cache[key] = prog
	e.mu.Unlock()
	klog.V(2).Infof("qr.Expand: built new program %q for operand shape %s", prog.Name, operandShape)
	return prog, nil
}

func (e *Expander) build(operandShape shapes.Shape) (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ia, ok := r.(*InvalidArgumentError); ok {
				err = ia
				return
			}
			err = internalError(asError(r), "qr.Expand: failed to build program for shape %s", operandShape)
		}
	}()

	if operandShape.Dim(-2) < 1 || operandShape.Dim(-1) < 1 {
		panic(invalidArgument("qr.Expand: operand shape %s must have positive matrix dimensions", operandShape))
	}
	if e.BlockSize < 1 {
		panic(invalidArgument("qr.Expand: block size must be >= 1, got %d", e.BlockSize))
	}

	name := fmt.Sprintf("qr_%s_%s", operandShape.Signature(), uuid.NewString())
	g := graph.NewGraph(name)
	a := g.Parameter("a", operandShape)
	q, r := BuildQR(a, e.BlockSize, e.Precision)
	return &Program{Name: name, Graph: g, Param: a, Q: q, R: r, Shape: operandShape}, nil
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
