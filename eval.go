package formula

import (
	"math"
	"strings"
	"sync"
)

// Plan is a compiled expression. A Plan is immutable and safe for concurrent
// evaluation. It reads variables through the storage that was bound when it
// was compiled, so writes to that storage are seen by later evaluations.
// Expressions that assign to variables write that storage too, so concurrent
// evaluations of them race unless the caller synchronizes.
type Plan struct {
	expr string
	// roots are the unoptimized syntax trees of each subexpression.
	roots []*node
	prog  program
	// vars are the variables the expression uses, sorted by name.
	vars []Var
	// shortest is the length of the shortest array variable in the program,
	// or -1 if there are none.
	shortest int
	stacks   sync.Pool
}

func newPlan(expr string, roots []*node, names []string, optimize bool) *Plan {
	lowered := roots
	if optimize {
		lowered = make([]*node, len(roots))
		for i, n := range roots {
			lowered[i] = fold(n)
		}
	}
	pl := &Plan{
		expr:     expr,
		roots:    roots,
		prog:     lower(lowered),
		shortest: -1,
	}
	refs := make(map[string]varRef, len(names))
	for _, n := range roots {
		collectVars(n, refs)
	}
	pl.vars = make([]Var, 0, len(names))
	for _, name := range names {
		v := refs[name]
		pl.vars = append(pl.vars, Var{Name: name, Ptr: v.p, Array: v.arr})
	}
	for _, in := range pl.prog.code {
		if in.op == opArr && (pl.shortest < 0 || len(in.arr) < pl.shortest) {
			pl.shortest = len(in.arr)
		}
	}
	depth := pl.prog.depth
	pl.stacks.New = func() any {
		s := make([]float64, depth)
		return &s
	}
	return pl
}

func collectVars(n *node, refs map[string]varRef) {
	if n == nil {
		return
	}
	if n.kind == nodeVar {
		refs[n.name] = n.v
	}
	collectVars(n.left, refs)
	collectVars(n.right, refs)
}

// Expr returns the text the plan was compiled from.
func (pl *Plan) Expr() string {
	return pl.expr
}

// Vars returns the variables the expression uses, sorted by name.
func (pl *Plan) Vars() []Var {
	return append([]Var(nil), pl.vars...)
}

// NumResults returns the number of comma-separated subexpressions.
func (pl *Plan) NumResults() int {
	return pl.prog.nres
}

// String formats the expression fully parenthesized.
func (pl *Plan) String() string {
	var b strings.Builder
	for i, n := range pl.roots {
		if i > 0 {
			b.WriteString(", ")
		}
		n.fmt(&b)
	}
	return b.String()
}

// Eval evaluates the expression. For an expression with several
// subexpressions, the result is the value of the last. Array variables
// contribute their first element.
func (pl *Plan) Eval() (float64, error) {
	s := pl.stacks.Get().(*[]float64)
	defer pl.stacks.Put(s)
	r, err := pl.prog.run(*s, 0, 0)
	if err != nil {
		return 0, err
	}
	return r[len(r)-1], nil
}

// EvalMulti evaluates the expression and returns the value of each
// subexpression in order.
func (pl *Plan) EvalMulti() ([]float64, error) {
	s := pl.stacks.Get().(*[]float64)
	defer pl.stacks.Put(s)
	r, err := pl.prog.run(*s, 0, 0)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), r...), nil
}

// Diff returns the derivative of the expression with respect to the variable
// stored in v at x, using a five-point central difference with step eps.
// If eps is 0, a step relative to x is chosen. v is restored to its original
// value before Diff returns.
func (pl *Plan) Diff(v *float64, x, eps float64) (float64, error) {
	if v == nil {
		return 0, ErrNilVar
	}
	if eps == 0 {
		eps = 1e-7 * math.Abs(x)
		if x == 0 {
			eps = 1e-10
		}
	}
	old := *v
	defer func() { *v = old }()
	var f [4]float64
	for i, d := range [4]float64{2 * eps, eps, -eps, -2 * eps} {
		*v = x + d
		r, err := pl.Eval()
		if err != nil {
			return 0, err
		}
		f[i] = r
	}
	return (-f[0] + 8*f[1] - 8*f[2] + f[3]) / (12 * eps), nil
}
