package formula

import (
	"math"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// MaxArity is the largest fixed number of arguments a Func may take.
// Variadic functions are not limited.
const MaxArity = 10

// Func is a function from reals to reals.
type Func interface {
	// Call evaluates the function. args has a length within the bounds
	// returned by Arity. Call may modify the elements of args but must not
	// retain the slice. A non-nil error aborts evaluation; the caller
	// receives it wrapped in an *EvalError.
	Call(args []float64) (float64, error)

	// Arity returns the bounds on the number of arguments the function
	// accepts. max is negative for a variadic function.
	Arity() (min, max int)
}

// BulkFunc is a function that also receives the position of the current
// evaluation within a bulk evaluation. idx is the element index, and chunk
// identifies the unit of work, so that no two concurrent calls share a chunk.
// Scalar evaluation passes 0 for both.
type BulkFunc interface {
	CallBulk(idx, chunk int, args []float64) (float64, error)
	Arity() (min, max int)
}

type fixed struct {
	n int
	f func(args []float64) float64
}

func (f fixed) Call(args []float64) (float64, error) {
	return f.f(args), nil
}

func (f fixed) Arity() (min, max int) {
	return f.n, f.n
}

// Niladic wraps a function of no arguments into a Func. Such a function is
// called as f().
func Niladic(f func() float64) Func {
	return fixed{0, func([]float64) float64 { return f() }}
}

// Monadic wraps a function of one argument into a Func.
func Monadic(f func(x float64) float64) Func {
	return fixed{1, func(args []float64) float64 { return f(args[0]) }}
}

// Dyadic wraps a function of two arguments into a Func.
func Dyadic(f func(x, y float64) float64) Func {
	return fixed{2, func(args []float64) float64 { return f(args[0], args[1]) }}
}

// Triadic wraps a function of three arguments into a Func.
func Triadic(f func(x, y, z float64) float64) Func {
	return fixed{3, func(args []float64) float64 { return f(args[0], args[1], args[2]) }}
}

// NAry wraps a function of exactly n arguments into a Func. Panics if n is
// negative or greater than MaxArity.
func NAry(n int, f func(args []float64) float64) Func {
	if n < 0 || n > MaxArity {
		panic("formula: invalid arity " + strconv.Itoa(n))
	}
	return fixed{n, f}
}

type variadic struct {
	min int
	f   func(args []float64) float64
}

func (v variadic) Call(args []float64) (float64, error) {
	return v.f(args), nil
}

func (v variadic) Arity() (min, max int) {
	return v.min, -1
}

// Variadic wraps a function of at least min arguments into a Func. Panics if
// min is negative.
func Variadic(min int, f func(args []float64) float64) Func {
	if min < 0 {
		panic("formula: invalid minimum arity " + strconv.Itoa(min))
	}
	return variadic{min, f}
}

type fallible struct {
	n int
	f func(args []float64) (float64, error)
}

func (f fallible) Call(args []float64) (float64, error) {
	return f.f(args)
}

func (f fallible) Arity() (min, max int) {
	return f.n, f.n
}

// Fallible wraps a function of exactly n arguments that can fail into a Func.
// Panics if n is negative or greater than MaxArity. Calls to fallible
// functions are never folded during optimization.
func Fallible(n int, f func(args []float64) (float64, error)) Func {
	if n < 0 || n > MaxArity {
		panic("formula: invalid arity " + strconv.Itoa(n))
	}
	return fallible{n, f}
}

type bulk struct {
	n int
	f func(idx, chunk int, args []float64) float64
}

func (b bulk) CallBulk(idx, chunk int, args []float64) (float64, error) {
	return b.f(idx, chunk, args), nil
}

func (b bulk) Arity() (min, max int) {
	return b.n, b.n
}

// Bulk wraps a function of exactly n arguments that uses its bulk position
// into a BulkFunc. Panics if n is negative or greater than MaxArity.
func Bulk(n int, f func(idx, chunk int, args []float64) float64) BulkFunc {
	if n < 0 || n > MaxArity {
		panic("formula: invalid arity " + strconv.Itoa(n))
	}
	return bulk{n, f}
}

// StrFunc is a function whose first argument is a string, given in the
// expression as a quoted literal or a string constant. Arity counts only the
// numeric arguments after the string.
type StrFunc interface {
	CallStr(s string, args []float64) (float64, error)
	Arity() (min, max int)
}

type strfn struct {
	n int
	f func(s string, args []float64) (float64, error)
}

func (f strfn) CallStr(s string, args []float64) (float64, error) {
	return f.f(s, args)
}

func (f strfn) Arity() (min, max int) {
	return f.n, f.n
}

// StrFn wraps a function of a string and exactly n numbers into a StrFunc.
// Panics if n is negative or greater than MaxArity-1. Calls to string
// functions are never folded during optimization.
func StrFn(n int, f func(s string, args []float64) (float64, error)) StrFunc {
	if n < 0 || n >= MaxArity {
		panic("formula: invalid arity " + strconv.Itoa(n))
	}
	return strfn{n, f}
}

// ValIdent recognizes a literal at the start of src. It returns the number
// of runes the literal spans and its value, or ok false if src does not
// begin with one. Value identifiers are tried before decimal numbers.
type ValIdent func(src []rune) (n int, v float64, ok bool)

// HexIdent recognizes hexadecimal integers with a 0x or 0X prefix, like
// 0xff. Parsers have it by default.
func HexIdent(src []rune) (n int, v float64, ok bool) {
	if len(src) < 2 || src[0] != '0' || src[1] != 'x' && src[1] != 'X' {
		return 0, 0, false
	}
	return radix(src, 2, 16)
}

// BinIdent recognizes binary integers with a # prefix, like #101.
func BinIdent(src []rune) (n int, v float64, ok bool) {
	if len(src) < 1 || src[0] != '#' {
		return 0, 0, false
	}
	return radix(src, 1, 2)
}

// radix scans digits in base from src[start:].
func radix(src []rune, start int, base float64) (int, float64, bool) {
	var v float64
	n := start
	for ; n < len(src); n++ {
		var d float64
		switch r := src[n]; {
		case '0' <= r && r <= '9':
			d = float64(r - '0')
		case 'a' <= r && r <= 'f':
			d = float64(r-'a') + 10
		case 'A' <= r && r <= 'F':
			d = float64(r-'A') + 10
		default:
			d = base
		}
		if d >= base {
			break
		}
		v = v*base + d
	}
	if n == start {
		return 0, 0, false
	}
	return n, v, true
}

// builtin is a default function. Those with a big implementation evaluate in
// arbitrary precision under EvalBig.
type builtin struct {
	Func
	name string
	big  func(z *big.Float, args []*big.Float) *big.Float
}

func monadicBig(f func(z, x *big.Float) *big.Float) func(*big.Float, []*big.Float) *big.Float {
	return func(z *big.Float, args []*big.Float) *big.Float {
		return f(z, args[0])
	}
}

func defaultFuncs() map[string]Func {
	m := map[string]Func{
		"sin":   builtin{Func: Monadic(math.Sin)},
		"cos":   builtin{Func: Monadic(math.Cos)},
		"tan":   builtin{Func: Monadic(math.Tan)},
		"asin":  builtin{Func: Monadic(math.Asin)},
		"acos":  builtin{Func: Monadic(math.Acos)},
		"atan":  builtin{Func: Monadic(math.Atan)},
		"sinh":  builtin{Func: Monadic(math.Sinh)},
		"cosh":  builtin{Func: Monadic(math.Cosh)},
		"tanh":  builtin{Func: Monadic(math.Tanh)},
		"asinh": builtin{Func: Monadic(math.Asinh)},
		"acosh": builtin{Func: Monadic(math.Acosh)},
		"atanh": builtin{Func: Monadic(math.Atanh)},
		"log2":  builtin{Func: Monadic(math.Log2), big: monadicBig(bigLogBase(2))},
		"log10": builtin{Func: Monadic(math.Log10), big: monadicBig(bigLogBase(10))},
		"log":   builtin{Func: Monadic(math.Log), big: monadicBig(bigfloat.Log)},
		"ln":    builtin{Func: Monadic(math.Log), big: monadicBig(bigfloat.Log)},
		"exp":   builtin{Func: Monadic(math.Exp), big: monadicBig(bigfloat.Exp)},
		"sqrt":  builtin{Func: Monadic(math.Sqrt), big: monadicBig((*big.Float).Sqrt)},
		"sign":  builtin{Func: Monadic(sign), big: monadicBig(bigSign)},
		"rint":  builtin{Func: Monadic(rint)},
		"abs":   builtin{Func: Monadic(math.Abs), big: monadicBig((*big.Float).Abs)},
		"sum":   builtin{Func: Variadic(1, sum), big: bigSum},
		"avg":   builtin{Func: Variadic(1, avg), big: bigAvg},
		"min":   builtin{Func: Variadic(1, minimum), big: bigMin},
		"max":   builtin{Func: Variadic(1, maximum), big: bigMax},
	}
	for k, v := range m {
		b := v.(builtin)
		b.name = k
		m[k] = b
	}
	return m
}

func sign(x float64) float64 {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

func rint(x float64) float64 {
	return math.Floor(x + 0.5)
}

func sum(args []float64) float64 {
	var r float64
	for _, v := range args {
		r += v
	}
	return r
}

func avg(args []float64) float64 {
	return sum(args) / float64(len(args))
}

func minimum(args []float64) float64 {
	r := args[0]
	for _, v := range args[1:] {
		r = math.Min(r, v)
	}
	return r
}

func maximum(args []float64) float64 {
	r := args[0]
	for _, v := range args[1:] {
		r = math.Max(r, v)
	}
	return r
}

func bigLogBase(base float64) func(z, x *big.Float) *big.Float {
	return func(z, x *big.Float) *big.Float {
		var b big.Float
		b.SetPrec(z.Prec()).SetFloat64(base)
		bigfloat.Log(z, x)
		bigfloat.Log(&b, &b)
		return z.Quo(z, &b)
	}
}

func bigSign(z, x *big.Float) *big.Float {
	return z.SetInt64(int64(x.Sign()))
}

func bigSum(z *big.Float, args []*big.Float) *big.Float {
	z.SetInt64(0)
	for _, v := range args {
		z.Add(z, v)
	}
	return z
}

func bigAvg(z *big.Float, args []*big.Float) *big.Float {
	bigSum(z, args)
	var n big.Float
	n.SetInt64(int64(len(args)))
	return z.Quo(z, &n)
}

func bigMin(z *big.Float, args []*big.Float) *big.Float {
	z.Set(args[0])
	for _, v := range args[1:] {
		if v.Cmp(z) < 0 {
			z.Set(v)
		}
	}
	return z
}

func bigMax(z *big.Float, args []*big.Float) *big.Float {
	z.Set(args[0])
	for _, v := range args[1:] {
		if v.Cmp(z) > 0 {
			z.Set(v)
		}
	}
	return z
}
