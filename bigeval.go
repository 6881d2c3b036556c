package formula

import (
	"errors"
	"math"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// bigctx is a context for evaluating syntax trees in arbitrary precision. It
// is not safe to use a bigctx concurrently.
type bigctx struct {
	stack []*big.Float
	prec  uint
}

// EvalBig evaluates the plan using arithmetic at prec bits of precision and
// returns the value of the last subexpression. Earlier subexpressions are
// evaluated in order for their assignments. Default functions and operators
// that have arbitrary-precision implementations use them; other functions
// are evaluated in float64 and converted. Operations outside their domain, which
// produce NaN in float64 evaluation, return a *DomainError instead.
func (pl *Plan) EvalBig(prec uint) (*big.Float, error) {
	if prec == 0 {
		prec = 64
	}
	ctx := bigctx{prec: prec}
	for _, n := range pl.roots {
		ctx.stack = ctx.stack[:0]
		if err := ctx.eval(n); err != nil {
			return nil, err
		}
	}
	return ctx.pop(), nil
}

// eval evaluates a tree, converting NaN panics from math/big into domain
// errors.
func (ctx *bigctx) eval(n *node) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var nan big.ErrNaN
		e, _ := r.(error)
		if !errors.As(e, &nan) {
			panic(r)
		}
		err = &DomainError{Func: nan.Error()}
	}()
	return n.evalBig(ctx)
}

// push ensures a settable value on the stack.
func (ctx *bigctx) push() *big.Float {
	r := new(big.Float).SetPrec(ctx.prec)
	ctx.stack = append(ctx.stack, r)
	return r
}

// pop removes the top from the stack and returns it.
func (ctx *bigctx) pop() *big.Float {
	r := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return r
}

// top is a shortcut to get the top element of the stack.
func (ctx *bigctx) top() *big.Float {
	return ctx.stack[len(ctx.stack)-1]
}

// set converts a float64 to the top of the stack. NaN has no big.Float
// representation.
func (ctx *bigctx) set(z *big.Float, x float64, fn string) error {
	if math.IsNaN(x) {
		return &DomainError{Func: fn}
	}
	z.SetFloat64(x)
	return nil
}

// evalBig pushes the node's value to the context's stack.
func (n *node) evalBig(ctx *bigctx) error {
	switch n.kind {
	case nodeNum:
		r := ctx.push()
		switch {
		case n.lit:
			if _, _, err := r.Parse(n.name, 10); err != nil {
				// Out of range literals are infinite, as in float64.
				r.SetInf(false)
			}
		case n.name == "_pi" && n.val == math.Pi:
			bigfloat.Pi(r)
		case n.name == "_e" && n.val == math.E:
			one := new(big.Float).SetPrec(ctx.prec).SetInt64(1)
			bigfloat.Exp(r, one)
		default:
			return ctx.set(r, n.val, n.name)
		}
	case nodeVar:
		r := ctx.push()
		var x float64
		if n.v.arr != nil {
			x = n.v.arr[0]
		} else {
			x = *n.v.p
		}
		return ctx.set(r, x, n.name)
	case nodeCall:
		k := len(ctx.stack)
		for l := n.right; l != nil; l = l.right {
			if err := l.left.evalBig(ctx); err != nil {
				return err
			}
		}
		args := ctx.stack[k:]
		r := new(big.Float).SetPrec(ctx.prec)
		if b, ok := n.fn.fn.(builtin); ok && b.big != nil {
			if err := checkBigDomain(b.name, args); err != nil {
				return err
			}
			b.big(r, args)
		} else {
			vals := make([]float64, len(args))
			for i, a := range args {
				vals[i], _ = a.Float64()
			}
			var v float64
			var err error
			switch {
			case n.fn.bulk != nil:
				v, err = n.fn.bulk.CallBulk(0, 0, vals)
			case n.fn.str != nil:
				v, err = n.fn.str.CallStr(n.str, vals)
			default:
				v, err = n.fn.fn.Call(vals)
			}
			if err != nil {
				return &EvalError{Func: n.name, Err: err}
			}
			if err := ctx.set(r, v, n.name); err != nil {
				return err
			}
		}
		ctx.stack = append(ctx.stack[:k], r)
	case nodeArg:
		panic("formula: eval on nodeArg")
	case nodeInfix, nodePostfix:
		if err := n.left.evalBig(ctx); err != nil {
			return err
		}
		v := ctx.top()
		if n.un.big != nil {
			n.un.big(v, v)
			return nil
		}
		x, _ := v.Float64()
		return ctx.set(v, n.un.fn(x), n.name)
	case nodeIf:
		if err := n.left.evalBig(ctx); err != nil {
			return err
		}
		if ctx.pop().Sign() != 0 {
			return n.right.left.evalBig(ctx)
		}
		return n.right.right.evalBig(ctx)
	case nodeBinary:
		if n.bin.code == opAssign {
			if err := n.right.evalBig(ctx); err != nil {
				return err
			}
			*n.left.v.p, _ = ctx.top().Float64()
			return nil
		}
		if err := n.left.evalBig(ctx); err != nil {
			return err
		}
		if err := n.right.evalBig(ctx); err != nil {
			return err
		}
		r := ctx.pop()
		l := ctx.top()
		return binBig(n, l, r)
	default:
		panic("formula: invalid AST node " + n.kind.String())
	}
	return nil
}

// binBig sets l to l op r.
func binBig(n *node, l, r *big.Float) error {
	switch n.bin.code {
	case opAdd:
		if l.IsInf() && r.IsInf() && l.Signbit() != r.Signbit() {
			return &DomainError{X: r, Func: n.name}
		}
		l.Add(l, r)
	case opSub:
		if l.IsInf() && r.IsInf() && l.Signbit() == r.Signbit() {
			return &DomainError{X: r, Func: n.name}
		}
		l.Sub(l, r)
	case opMul:
		if l.IsInf() && r.Sign() == 0 || l.Sign() == 0 && r.IsInf() {
			return &DomainError{X: r, Func: n.name}
		}
		l.Mul(l, r)
	case opDiv:
		// Guard against invalid divisions, 0/0 or inf/inf.
		if l.Sign() == 0 && r.Sign() == 0 || l.IsInf() && r.IsInf() {
			return &DomainError{X: r, Func: n.name}
		}
		l.Quo(l, r)
	case opPow:
		return powBig(l, r)
	case opLT:
		l.SetInt64(int64(b2f(l.Cmp(r) < 0)))
	case opGT:
		l.SetInt64(int64(b2f(l.Cmp(r) > 0)))
	case opLE:
		l.SetInt64(int64(b2f(l.Cmp(r) <= 0)))
	case opGE:
		l.SetInt64(int64(b2f(l.Cmp(r) >= 0)))
	case opEQ:
		l.SetInt64(int64(b2f(l.Cmp(r) == 0)))
	case opNE:
		l.SetInt64(int64(b2f(l.Cmp(r) != 0)))
	case opAnd:
		l.SetInt64(int64(b2f(l.Sign() != 0 && r.Sign() != 0)))
	case opOr:
		l.SetInt64(int64(b2f(l.Sign() != 0 || r.Sign() != 0)))
	default:
		x, _ := l.Float64()
		y, _ := r.Float64()
		v := n.bin.fn(x, y)
		if math.IsNaN(v) {
			return &DomainError{X: r, Func: n.name}
		}
		l.SetFloat64(v)
	}
	return nil
}

// powBig sets l to l^r. Integer exponents allow negative bases, and small
// ones are exact by repeated squaring. Other exponents require a
// non-negative base.
func powBig(l, r *big.Float) error {
	if r.IsInt() {
		if e, acc := r.Int64(); acc == big.Exact && e >= -1<<20 && e <= 1<<20 {
			return powInt(l, e)
		}
		if l.Sign() < 0 {
			// (-x)^n = ±x^n by the parity of n.
			odd := new(big.Int)
			r.Int(odd)
			l.Neg(l)
			if err := powBig(l, r); err != nil {
				return err
			}
			if odd.Bit(0) != 0 {
				l.Neg(l)
			}
			return nil
		}
	}
	switch l.Sign() {
	case -1:
		return &DomainError{X: l, Func: "^"}
	case 0:
		if r.Sign() < 0 {
			l.SetInf(false)
		}
		return nil
	}
	if l.IsInf() {
		if r.Sign() < 0 {
			l.SetInt64(0)
		}
		return nil
	}
	l.Set(bigfloat.Pow(new(big.Float).SetPrec(l.Prec()), l, r))
	return nil
}

func powInt(l *big.Float, e int64) error {
	if e == 0 {
		l.SetInt64(1)
		return nil
	}
	neg := e < 0
	if neg {
		if l.Sign() == 0 {
			l.SetInf(false)
			return nil
		}
		e = -e
	}
	b := new(big.Float).Copy(l)
	l.SetInt64(1)
	for e > 0 {
		if e&1 != 0 {
			l.Mul(l, b)
		}
		b.Mul(b, b)
		e >>= 1
	}
	if neg {
		one := new(big.Float).SetPrec(l.Prec()).SetInt64(1)
		l.Quo(one, l)
	}
	return nil
}

// checkBigDomain rejects arguments that the big implementations of default
// functions cannot handle.
func checkBigDomain(name string, args []*big.Float) error {
	switch name {
	case "sqrt":
		if args[0].Sign() < 0 {
			return &DomainError{X: args[0], Func: name, Arg: 1}
		}
	case "log", "ln", "log2", "log10":
		if args[0].Sign() <= 0 {
			return &DomainError{X: args[0], Func: name, Arg: 1}
		}
	}
	return nil
}

// DomainError is an error returned when an operation is evaluated on
// arguments outside its domain in arbitrary precision.
type DomainError struct {
	// X is the out-of-domain argument, if known.
	X *big.Float
	// Arg is the 1-based index of the argument, or 0 if unknown.
	Arg int
	// Func is a name identifying the function or operator.
	Func string
}

func (err *DomainError) Error() string {
	r := "outside domain"
	if err.X != nil {
		r = err.X.String() + " " + r
	}
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return r
}
