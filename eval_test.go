package formula_test

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"testing"

	"github.com/zephyrtronium/formula"
)

// near reports whether a and b agree to within a relative tolerance, treating
// NaNs as equal to each other.
func near(a, b float64) bool {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return math.IsNaN(a) && math.IsNaN(b)
	case math.IsInf(a, 0) || math.IsInf(b, 0):
		return a == b
	case a == b:
		return true
	}
	return math.Abs(a-b) <= 1e-12*math.Max(math.Abs(a), math.Abs(b))
}

func TestEval(t *testing.T) {
	type vv struct {
		n string
		v float64
	}
	type vc struct {
		vars []vv
		r    float64
	}
	cases := []struct {
		name string
		src  string
		r    []vc
	}{
		{"num", "1", []vc{{nil, 1}}},
		{"frac", ".5", []vc{{nil, 0.5}}},
		{"exp", "1.5e3", []vc{{nil, 1500}}},
		{"ident", "x", []vc{
			{[]vv{{"x", 4}}, 4},
			{[]vv{{"x", 5}}, 5},
			{[]vv{{"x", 6}}, 6},
		}},
		{"plus", "+x", []vc{
			{[]vv{{"x", 4}}, 4},
			{[]vv{{"x", -5}}, -5},
		}},
		{"neg", "-x", []vc{
			{[]vv{{"x", 4}}, -4},
			{[]vv{{"x", 5}}, -5},
		}},
		{"arith", "2+3*4", []vc{{nil, 14}}},
		{"add", "4+5+6", []vc{{nil, 4 + 5 + 6}}},
		{"sub", "4-5-6", []vc{{nil, 4 - 5 - 6}}},
		{"mul", "4*5*6", []vc{{nil, 4 * 5 * 6}}},
		{"div", "4/5/6", []vc{{nil, 4.0 / 5.0 / 6.0}}},
		{"pow", "4^3^2", []vc{{nil, 262144}}},
		{"negpow", "-2^2", []vc{{nil, -4}}},
		{"powneg", "2^-2", []vc{{nil, 0.25}}},
		{"addnegpow", "3+-3^2", []vc{{nil, -6}}},
		{"parens", "(2+3)*4", []vc{{nil, 20}}},
		{"pi", "_pi", []vc{{nil, math.Pi}}},
		{"e", "_e", []vc{{nil, math.E}}},
		{"sin", "sin(_pi/2)", []vc{{nil, 1}}},
		{"cos", "cos(0)", []vc{{nil, 1}}},
		{"atan", "4*atan(1)", []vc{{nil, math.Pi}}},
		{"ln", "ln(_e)", []vc{{nil, 1}}},
		{"log", "log(1)", []vc{{nil, 0}}},
		{"log2", "log2(8)", []vc{{nil, 3}}},
		{"log10", "log10(100)", []vc{{nil, 2}}},
		{"expfn", "exp(0)", []vc{{nil, 1}}},
		{"sqrt", "sqrt(x)", []vc{
			{[]vv{{"x", 16}}, 4},
			{[]vv{{"x", 2}}, math.Sqrt2},
		}},
		{"sign", "sign(x)", []vc{
			{[]vv{{"x", -3}}, -1},
			{[]vv{{"x", 0}}, 0},
			{[]vv{{"x", 7}}, 1},
		}},
		{"rint", "rint(x)", []vc{
			{[]vv{{"x", 2.5}}, 3},
			{[]vv{{"x", 2.4}}, 2},
			{[]vv{{"x", -2.5}}, -2},
		}},
		{"abs", "abs(-3)", []vc{{nil, 3}}},
		{"sum", "sum(1, 2, 3)", []vc{{nil, 6}}},
		{"sum1", "sum(x)", []vc{{[]vv{{"x", 9}}, 9}}},
		{"avg", "avg(1, 2, 3)", []vc{{nil, 2}}},
		{"min", "min(3, 1, 2)", []vc{{nil, 1}}},
		{"max", "max(3, 1, 2)", []vc{{nil, 3}}},
		{"nested", "max(min(x, 3), sum(1, 1))", []vc{
			{[]vv{{"x", 0}}, 2},
			{[]vv{{"x", 5}}, 3},
		}},
		{"lt", "1 < 2", []vc{{nil, 1}}},
		{"gt", "1 > 2", []vc{{nil, 0}}},
		{"le", "2 <= 2", []vc{{nil, 1}}},
		{"ge", "1 >= 2", []vc{{nil, 0}}},
		{"eq", "3 == 3", []vc{{nil, 1}}},
		{"ne", "2 != 2", []vc{{nil, 0}}},
		{"and", "1 && 0", []vc{{nil, 0}}},
		{"or", "0 || 2", []vc{{nil, 1}}},
		{"logicprec", "1 || 0 && 0", []vc{{nil, 1}}},
		{"cmpprec", "1 + 1 == 2", []vc{{nil, 1}}},
		{"ternary", "x < 0 ? -x : x", []vc{
			{[]vv{{"x", -3}}, 3},
			{[]vv{{"x", 4}}, 4},
		}},
		{"ternarychain", "x < 0 ? -1 : x > 0 ? 1 : 0", []vc{
			{[]vv{{"x", -3}}, -1},
			{[]vv{{"x", 0}}, 0},
			{[]vv{{"x", 4}}, 1},
		}},
		{"ternarynest", "x > 0 ? x > 10 ? 2 : 1 : 0", []vc{
			{[]vv{{"x", -3}}, 0},
			{[]vv{{"x", 4}}, 1},
			{[]vv{{"x", 40}}, 2},
		}},
		{"ternaryarith", "1 + (x ? 10 : 20) * 2", []vc{
			{[]vv{{"x", 1}}, 21},
			{[]vv{{"x", 0}}, 41},
		}},
		{"multi", "1, 2, x", []vc{{[]vv{{"x", 3}}, 3}}},
		{"divzero", "1/0", []vc{{nil, math.Inf(1)}}},
		{"negdivzero", "-1/0", []vc{{nil, math.Inf(-1)}}},
		{"zerozero", "0/0", []vc{{nil, math.NaN()}}},
		{"sqrtneg", "sqrt(-1)", []vc{{nil, math.NaN()}}},
		{"nanpropagates", "1 + sqrt(-1)*0", []vc{{nil, math.NaN()}}},
		{"overflow", "1e999", []vc{{nil, math.Inf(1)}}},
	}
	var x float64
	p := formula.New()
	if err := p.DefineVar("x", &x); err != nil {
		t.Fatal(err)
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := p.SetExpr(c.src); err != nil {
				t.Fatal(c.src, "failed to compile:", err)
			}
			for _, v := range c.r {
				for _, w := range v.vars {
					x = w.v
				}
				r, err := p.Eval()
				if err != nil {
					t.Error("evaluation error:", err)
				}
				if !near(r, v.r) {
					t.Errorf("wrong result from %q with %v: want %g, got %g", c.src, v.vars, v.r, r)
				}
			}
		})
	}
}

func TestOptimizerEquivalence(t *testing.T) {
	srcs := []string{
		"2+3*4",
		"-2^2 + x",
		"sin(_pi/4) * x + cos(1)",
		"1 ? x : 2",
		"0 ? x : 2",
		"x > 1 ? 2*3 : 4/5",
		"sum(1, 2, x, 3*4)",
		"0/0 + x",
		"1/0 - x",
		"max(1, 2), x, 3^x",
	}
	var x float64
	a, b := formula.New(), formula.New(formula.WithCacheSize(0))
	b.EnableOptimizer(false)
	for _, p := range []*formula.Parser{a, b} {
		if err := p.DefineVar("x", &x); err != nil {
			t.Fatal(err)
		}
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			if err := a.SetExpr(src); err != nil {
				t.Fatal(err)
			}
			if err := b.SetExpr(src); err != nil {
				t.Fatal(err)
			}
			for _, v := range []float64{-2, 0, 0.5, 3} {
				x = v
				ra, err := a.EvalMulti()
				if err != nil {
					t.Fatal(err)
				}
				rb, err := b.EvalMulti()
				if err != nil {
					t.Fatal(err)
				}
				if len(ra) != len(rb) {
					t.Fatalf("different result counts: %v vs %v", ra, rb)
				}
				for i := range ra {
					if !near(ra[i], rb[i]) {
						t.Errorf("x=%g: optimized %v, unoptimized %v", v, ra, rb)
					}
				}
			}
		})
	}
}

func TestEvalMulti(t *testing.T) {
	x, y := 2.0, 3.0
	p := formula.New()
	if err := p.DefineVar("x", &x); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineVar("y", &y); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("x,y,x+y"); err != nil {
		t.Fatal(err)
	}
	r, err := p.EvalMulti()
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{2, 3, 5}; !reflect.DeepEqual(r, want) {
		t.Errorf("want %v, got %v", want, r)
	}
	pl, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	if pl.NumResults() != 3 {
		t.Errorf("want 3 results, got %d", pl.NumResults())
	}
	// Results are copies, not views of an evaluation stack.
	r[0] = 100
	s, _ := p.EvalMulti()
	if s[0] != 2 {
		t.Errorf("results alias: %v", s)
	}
	if v, _ := p.Eval(); v != 5 {
		t.Errorf("Eval should give the last value 5, got %g", v)
	}
}

func TestGetExpr(t *testing.T) {
	p := formula.New()
	if s := p.GetExpr(); s != "" {
		t.Errorf("new parser has expression %q", s)
	}
	const src = "  1 +\t2*  3 "
	if err := p.SetExpr(src); err != nil {
		t.Fatal(err)
	}
	if s := p.GetExpr(); s != src {
		t.Errorf("want %q, got %q", src, s)
	}
}

func TestNoExpr(t *testing.T) {
	p := formula.New()
	if _, err := p.Eval(); !errors.Is(err, formula.ErrNoExpr) {
		t.Errorf("Eval with no expression: want ErrNoExpr, got %v", err)
	}
	if _, err := p.EvalMulti(); !errors.Is(err, formula.ErrNoExpr) {
		t.Errorf("EvalMulti with no expression: want ErrNoExpr, got %v", err)
	}
	if err := p.EvalBulk(make([]float64, 3)); !errors.Is(err, formula.ErrNoExpr) {
		t.Errorf("EvalBulk with no expression: want ErrNoExpr, got %v", err)
	}
	if !errors.Is(p.Err(), formula.ErrNoExpr) {
		t.Errorf("Err should report ErrNoExpr, got %v", p.Err())
	}
}

func TestFailedSetExprKeepsState(t *testing.T) {
	p := formula.New()
	if err := p.SetExpr("1+2"); err != nil {
		t.Fatal(err)
	}
	if p.Err() != nil {
		t.Errorf("Err after success: %v", p.Err())
	}
	err := p.SetExpr("1+")
	if err == nil {
		t.Fatal("no error from 1+")
	}
	if p.Err() != err {
		t.Errorf("Err should be %v, got %v", err, p.Err())
	}
	if s := p.GetExpr(); s != "1+2" {
		t.Errorf("expression changed to %q", s)
	}
	r, err := p.Eval()
	if err != nil || r != 3 {
		t.Errorf("want 3, <nil>; got %g, %v", r, err)
	}
	if p.Err() != nil {
		t.Errorf("Err after successful Eval: %v", p.Err())
	}
}

func TestInputErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		err  formula.InputError
		pos  int
		tok  string
	}{
		{"unknown", "unknown_name", new(formula.UnknownTokenError), 0, "unknown_name"},
		{"unknownlater", "1 + nope", new(formula.UnknownTokenError), 4, "nope"},
		{"arity", "f(1)", new(formula.ArityError), 0, "f"},
		{"lex", "2 # 3", new(formula.LexError), 2, "#"},
		{"syntax", "(1", new(formula.SyntaxError), 2, ""},
		{"unicode", "ä + 1", new(formula.LexError), 0, "ä"},
		{"unicodepos", "1 + ä", new(formula.LexError), 4, "ä"},
	}
	p := formula.New()
	if err := p.DefineFun("f", formula.Dyadic(math.Hypot), true); err != nil {
		t.Fatal(err)
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := p.SetExpr(c.src)
			if reflect.TypeOf(err) != reflect.TypeOf(c.err) {
				t.Fatalf("wrong error type from %q: want %T, got %T (%v)", c.src, c.err, err, err)
			}
			var ierr formula.InputError
			if !errors.As(err, &ierr) {
				t.Fatalf("%T is not an InputError", err)
			}
			if ierr.Pos() != c.pos {
				t.Errorf("wrong position: want %d, got %d", c.pos, ierr.Pos())
			}
			if ierr.Expression() != c.src {
				t.Errorf("wrong expression: want %q, got %q", c.src, ierr.Expression())
			}
			if ierr.Token() != c.tok {
				t.Errorf("wrong token: want %q, got %q", c.tok, ierr.Token())
			}
			if c.tok != "" && !regexp.MustCompile(regexp.QuoteMeta(c.tok)).MatchString(err.Error()) {
				t.Errorf("%q doesn't mention %q", err.Error(), c.tok)
			}
		})
	}
}

func TestArity(t *testing.T) {
	p := formula.New()
	if err := p.DefineFun("f", formula.Dyadic(func(x, y float64) float64 { return x - y }), true); err != nil {
		t.Fatal(err)
	}
	err := p.SetExpr("f(1)")
	var aerr *formula.ArityError
	if !errors.As(err, &aerr) {
		t.Fatalf("want *ArityError, got %T (%v)", err, err)
	}
	if aerr.Func != "f" || aerr.Len != 1 || aerr.Min != 2 || aerr.Max != 2 {
		t.Errorf("wrong error details: %+v", aerr)
	}
	if !regexp.MustCompile(`(?i)\btoo few\b.*"f"`).MatchString(err.Error()) {
		t.Errorf("error message %q", err.Error())
	}
	err = p.SetExpr("f(1, 2, 3)")
	if !errors.As(err, &aerr) || aerr.Len != 3 {
		t.Fatalf("want *ArityError with 3 args, got %v", err)
	}
	if err := p.SetExpr("f(3, 2)"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 1 {
		t.Errorf("want 1, got %g", r)
	}
}

func TestLocale(t *testing.T) {
	p := formula.New()
	if err := p.DefineFun("f", formula.Dyadic(func(x, y float64) float64 { return x*10 + y }), true); err != nil {
		t.Fatal(err)
	}
	if err := p.SetArgSep(';'); err != nil {
		t.Fatal(err)
	}
	if err := p.SetDecSep(','); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		src string
		r   float64
	}{
		{"3,5+1", 4.5},
		{"f(1;2)", 12},
		{"f(1,5;2)", 17},
		{"1; 2,5", 2.5},
	}
	for _, c := range cases {
		if err := p.SetExpr(c.src); err != nil {
			t.Errorf("%q failed to compile: %v", c.src, err)
			continue
		}
		if r, err := p.Eval(); err != nil || r != c.r {
			t.Errorf("%q: want %g, got %g, %v", c.src, c.r, r, err)
		}
	}
	if err := p.SetExpr("f(1,2)"); err == nil {
		t.Error("f(1,2) compiled with ',' as decimal separator")
	} else if _, ok := err.(*formula.ArityError); !ok {
		t.Errorf("want *ArityError from f(1,2), got %T (%v)", err, err)
	}

	if err := p.SetThousandsSep('.'); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("1.000.000,25 + 1"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 1000001.25 {
		t.Errorf("want 1000001.25, got %g", r)
	}

	p.ResetLocale()
	if err := p.SetExpr("f(1.5, 2)"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 17 {
		t.Errorf("after reset: want 17, got %g", r)
	}
}

func TestLocaleConflict(t *testing.T) {
	p := formula.New()
	if err := p.SetExpr("1.5"); err != nil {
		t.Fatal(err)
	}
	if err := p.SetDecSep(','); err != nil {
		t.Fatal(err)
	}
	// The plan compiled under the old locale is stale now.
	_, err := p.Eval()
	var lerr *formula.LocaleError
	if !errors.As(err, &lerr) {
		t.Fatalf("want *LocaleError, got %T (%v)", err, err)
	}
	if lerr.Conflict != "argument" {
		t.Errorf("wrong conflict %q", lerr.Conflict)
	}
	if err := p.SetDecSep(' '); err == nil {
		t.Error("space accepted as decimal separator")
	}
	if err := p.SetArgSep('('); err == nil {
		t.Error("parenthesis accepted as argument separator")
	}
}

func TestGeneration(t *testing.T) {
	p := formula.New()
	if err := p.DefineConst("c", 2); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("c*2"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 4 {
		t.Errorf("want 4, got %g", r)
	}
	if err := p.DefineConst("c", 3); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 6 {
		t.Errorf("after redefining c: want 6, got %g", r)
	}
}

func TestRemoveVar(t *testing.T) {
	x := 1.0
	p := formula.New()
	if err := p.DefineVar("x", &x); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("x+1"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 2 {
		t.Errorf("want 2, got %g", r)
	}
	p.RemoveVar("x")
	_, err := p.Eval()
	var uerr *formula.UnknownTokenError
	if !errors.As(err, &uerr) || uerr.Text != "x" {
		t.Fatalf("want UnknownTokenError for x, got %v", err)
	}
	if s := p.GetExpr(); s != "x+1" {
		t.Errorf("expression changed to %q", s)
	}
	// Removing a name that isn't a variable does nothing.
	p.RemoveVar("_pi")
	if err := p.SetExpr("_pi"); err != nil {
		t.Errorf("_pi no longer compiles: %v", err)
	}
}

func TestClear(t *testing.T) {
	x := 1.0
	cases := []struct {
		name  string
		clear func(*formula.Parser)
		src   string
		err   error
	}{
		{"var", (*formula.Parser).ClearVar, "x", new(formula.UnknownTokenError)},
		{"const", (*formula.Parser).ClearConst, "_pi", new(formula.UnknownTokenError)},
		{"fun", (*formula.Parser).ClearFun, "sin(1)", new(formula.UnknownTokenError)},
		{"infix", (*formula.Parser).ClearInfixOprt, "-1", new(formula.SyntaxError)},
		{"oprt", (*formula.Parser).ClearOprt, "1 %% 2", new(formula.LexError)},
		{"postfix", (*formula.Parser).ClearPostfixOprt, "2 m", new(formula.UnknownTokenError)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := formula.New()
			if err := p.DefineVar("x", &x); err != nil {
				t.Fatal(err)
			}
			if err := p.DefineOprt("%%", math.Mod, formula.PrecMulDiv, formula.AssocLeft, true); err != nil {
				t.Fatal(err)
			}
			if err := p.DefinePostfixOprt("m", func(x float64) float64 { return x / 1000 }, true); err != nil {
				t.Fatal(err)
			}
			if err := p.SetExpr(c.src); err != nil {
				t.Fatalf("%q failed before clearing: %v", c.src, err)
			}
			c.clear(p)
			_, err := p.Eval()
			if reflect.TypeOf(err) != reflect.TypeOf(c.err) {
				t.Errorf("wrong error after clearing: want %T, got %T (%v)", c.err, err, err)
			}
		})
	}
}

func TestRedefinition(t *testing.T) {
	var v float64
	p := formula.New()
	if err := p.DefineConst("k", 1); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineVar("v", &v); err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		name string
		err  error
		want error
	}{
		{"var-over-const", p.DefineVar("k", &v), new(formula.RedefinitionError)},
		{"const-over-var", p.DefineConst("v", 2), new(formula.RedefinitionError)},
		{"fun-over-const", p.DefineFun("k", formula.Niladic(func() float64 { return 0 }), true), new(formula.RedefinitionError)},
		{"const-over-fun", p.DefineConst("sin", 0), new(formula.RedefinitionError)},
		{"builtin-oprt", p.DefineOprt("+", math.Max, formula.PrecAddSub, formula.AssocLeft, true), new(formula.RedefinitionError)},
		{"ternary", p.DefineOprt("?", math.Max, formula.PrecAddSub, formula.AssocLeft, true), new(formula.RedefinitionError)},
		{"oprt-over-var", p.DefineOprt("v", math.Max, formula.PrecAddSub, formula.AssocLeft, true), new(formula.RedefinitionError)},
		{"invalid-var", p.DefineVar("1x", &v), new(formula.InvalidNameError)},
		{"invalid-const", p.DefineConst("a-b", 0), new(formula.InvalidNameError)},
		{"invalid-oprt", p.DefineOprt("@", math.Max, formula.PrecAddSub, formula.AssocLeft, true), new(formula.InvalidNameError)},
		{"invalid-infix", p.DefineInfixOprt("{", math.Abs, formula.PrecInfix, true), new(formula.InvalidNameError)},
		{"nil-var", p.DefineVar("w", nil), formula.ErrNilVar},
		{"nil-array", p.DefineVarArray("w", nil), formula.ErrNilVar},
		{"nil-fun", p.DefineFun("g", nil, true), formula.ErrNilFunc},
		{"nil-oprt", p.DefineOprt("%%", nil, formula.PrecAddSub, formula.AssocLeft, true), formula.ErrNilFunc},
		{"neg-prec", p.DefineOprt("%%", math.Max, -1, formula.AssocLeft, true), formula.ErrPrecedence},
	}
	sentinels := []error{formula.ErrNilVar, formula.ErrNilFunc, formula.ErrPrecedence}
	for _, c := range checks {
		sentinel := false
		for _, s := range sentinels {
			sentinel = sentinel || c.want == s
		}
		if sentinel {
			if !errors.Is(c.err, c.want) {
				t.Errorf("%s: want %v, got %v", c.name, c.want, c.err)
			}
			continue
		}
		if reflect.TypeOf(c.err) != reflect.TypeOf(c.want) {
			t.Errorf("%s: want %T, got %T (%v)", c.name, c.want, c.err, c.err)
		}
	}

	// Same-category redefinition replaces.
	if err := p.DefineConst("k", 5); err != nil {
		t.Errorf("redefining a constant: %v", err)
	}
	if err := p.DefineFun("sin", formula.Monadic(func(x float64) float64 { return 7 }), false); err != nil {
		t.Errorf("redefining a function: %v", err)
	}
	if err := p.SetExpr("k + sin(0)"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 12 {
		t.Errorf("want 12, got %g", r)
	}
}

func TestUserOperators(t *testing.T) {
	fact := func(x float64) float64 {
		r := 1.0
		for i := 2.0; i <= x; i++ {
			r *= i
		}
		return r
	}
	p := formula.New()
	if err := p.DefineOprt("%", math.Mod, formula.PrecMulDiv, formula.AssocLeft, true); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineOprt("**", math.Pow, formula.PrecPow, formula.AssocRight, true); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineOprt("mod", math.Mod, formula.PrecMulDiv, formula.AssocLeft, true); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineOprt("|", func(x, y float64) float64 { return float64(int64(x) | int64(y)) }, formula.PrecLogic, formula.AssocLeft, true); err != nil {
		t.Fatal(err)
	}
	if err := p.DefinePostfixOprt("!", fact, true); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineInfixOprt("~", func(x float64) float64 { return b2f(x == 0) }, formula.PrecInfix, true); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		src string
		r   float64
	}{
		{"7 % 4 + 1", 4},
		{"1 + 7 % 4", 4},
		{"2**3**2", 512},
		{"7 mod 4", 3},
		{"3!", 6},
		{"3!!", 720},
		{"-3!", -6},
		{"2^3!", 64},
		{"3! != 6", 0},
		{"~0", 1},
		{"~3", 0},
		{"1 | 2 | 4", 7},
		{"1 | 2 == 2", 1},
		{"(1 | 2) == 2", 0},
	}
	for _, c := range cases {
		if err := p.SetExpr(c.src); err != nil {
			t.Errorf("%q failed to compile: %v", c.src, err)
			continue
		}
		if r, err := p.Eval(); err != nil || r != c.r {
			t.Errorf("%q: want %g, got %g, %v", c.src, c.r, r, err)
		}
	}
	// The name of an alphabetic operator can't be a value.
	if err := p.DefineVar("mod", new(float64)); err == nil {
		t.Error("defined variable named like an operator")
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func TestDisableBuiltInOprt(t *testing.T) {
	p := formula.New()
	p.EnableBuiltInOprt(false)
	if err := p.SetExpr("1 + 2"); err == nil {
		t.Error("+ compiled with built-in operators disabled")
	}
	if err := p.DefineOprt("+", func(x, y float64) float64 { return x * y }, formula.PrecAddSub, formula.AssocLeft, true); err != nil {
		t.Fatalf("couldn't replace disabled +: %v", err)
	}
	if err := p.SetExpr("2 + 3 ? 1 : 0"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 1 {
		t.Errorf("want 1, got %g", r)
	}
	if err := p.SetExpr("2 + 3"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 6 {
		t.Errorf("user + should multiply, got %g", r)
	}
}

func TestEnableBuiltInConflict(t *testing.T) {
	p := formula.New()
	if err := p.EnableBuiltInOprt(false); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineOprt("+", func(x, y float64) float64 { return x * y }, formula.PrecAddSub, formula.AssocLeft, true); err != nil {
		t.Fatal(err)
	}
	err := p.EnableBuiltInOprt(true)
	var rerr *formula.RedefinitionError
	if !errors.As(err, &rerr) || rerr.Name != "+" {
		t.Fatalf("want RedefinitionError for +, got %v", err)
	}
	if p.Err() != err {
		t.Errorf("Err() is %v, want %v", p.Err(), err)
	}
	// The user operator stays in effect and the built-ins stay off.
	if err := p.SetExpr("2 + 3"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 6 {
		t.Errorf("want 6 from user +, got %g", r)
	}
	if err := p.SetExpr("2 * 3"); err == nil {
		t.Error("built-in * compiled after failed enable")
	}
	p.ClearOprt()
	if err := p.EnableBuiltInOprt(true); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("2 + 3"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 5 {
		t.Errorf("want 5 from built-in +, got %g", r)
	}
}

func TestMisplacedNamedOperator(t *testing.T) {
	p := formula.New()
	and := func(x, y float64) float64 { return b2f(x != 0 && y != 0) }
	if err := p.DefineOprt("and", and, formula.PrecLogicAnd, formula.AssocLeft, true); err != nil {
		t.Fatal(err)
	}
	if err := p.DefinePostfixOprt("pct", func(x float64) float64 { return x / 100 }, true); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		src string
		pos int
		tok string
	}{
		{"and 1", 0, "and"},
		{"1 + and", 4, "and"},
		{"pct", 0, "pct"},
		{"(pct)", 1, "pct"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			err := p.SetExpr(c.src)
			var serr *formula.SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("want SyntaxError, got %T (%v)", err, err)
			}
			if serr.Reason != formula.UnexpectedOperator || serr.Pos() != c.pos || serr.Token() != c.tok {
				t.Errorf("want unexpected operator %q at %d, got %v", c.tok, c.pos, err)
			}
		})
	}
	if err := p.SetExpr("1 and 50 pct"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 1 {
		t.Errorf("want 1, got %g", r)
	}
}

func TestAssign(t *testing.T) {
	var a, b float64
	p := formula.New()
	if err := p.DefineVar("a", &a); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineVar("b", &b); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		src  string
		r    float64
		a, b float64
	}{
		{"simple", "a = 3", 3, 3, 0},
		{"chain", "a = b = 2", 2, 2, 2},
		{"multi", "a = 2, a*3", 6, 2, 0},
		{"ternary", "a = 1 < 2 ? 5 : 6", 5, 5, 0},
		{"sequence", "a = 4, b = a^2, a + b", 20, 4, 16},
		{"nested", "b = 1 + (a = 2)", 3, 2, 3},
		{"self", "a = a + 1", 1, 1, 0},
		{"branch", "b ? (a = 1) : (a = 2)", 2, 2, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, b = 0, 0
			if err := p.SetExpr(c.src); err != nil {
				t.Fatal(err)
			}
			r, err := p.Eval()
			if err != nil {
				t.Fatal(err)
			}
			if r != c.r || a != c.a || b != c.b {
				t.Errorf("want %g with a=%g b=%g, got %g with a=%g b=%g", c.r, c.a, c.b, r, a, b)
			}
		})
	}

	// Assignments are evaluated every time rather than folded.
	if err := p.SetExpr("a = 3"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		a = 10
		if r, _ := p.Eval(); r != 3 || a != 3 {
			t.Errorf("evaluation %d: want 3 with a=3, got %g with a=%g", i, r, a)
		}
	}
	if err := p.SetExpr("a = 2, a*3"); err != nil {
		t.Fatal(err)
	}
	r, err := p.EvalMulti()
	if err != nil || !reflect.DeepEqual(r, []float64{2, 6}) {
		t.Errorf("want [2 6], got %v, %v", r, err)
	}
}

func TestAssignErrors(t *testing.T) {
	var a float64
	p := formula.New()
	if err := p.DefineVar("a", &a); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineVarArray("arr", []float64{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := p.DefineFun("f", formula.Monadic(math.Abs), true); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		src string
		pos int
	}{
		{"1 = 2", 2},
		{"_pi = 2", 4},
		{"arr = 2", 4},
		{"f(a) = 2", 5},
		{"a + 1 = 2", 6},
		{"-a = 2", 3},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			err := p.SetExpr(c.src)
			var serr *formula.SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("want SyntaxError, got %T (%v)", err, err)
			}
			if serr.Reason != formula.UnexpectedOperator || serr.Pos() != c.pos || serr.Token() != "=" {
				t.Errorf("want unexpected \"=\" at %d, got %v", c.pos, err)
			}
		})
	}
	p.EnableBuiltInOprt(false)
	if err := p.SetExpr("a = 1"); err == nil {
		t.Error("assignment compiled with built-in operators disabled")
	}
}

func TestValIdent(t *testing.T) {
	p := formula.New()
	cases := []struct {
		src  string
		want float64
	}{
		{"0xff + 1", 256},
		{"0X10 * 2", 32},
		{"2 * 0x1p", -1},
		{"#101 + 0x1", 6},
	}
	if err := p.AddValIdent(formula.BinIdent); err != nil {
		t.Fatal(err)
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			err := p.SetExpr(c.src)
			if c.want < 0 {
				if err == nil {
					t.Errorf("%q compiled", c.src)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if r, _ := p.Eval(); r != c.want {
				t.Errorf("want %g, got %g", c.want, r)
			}
		})
	}

	if err := p.AddValIdent(nil); !errors.Is(err, formula.ErrNilFunc) {
		t.Errorf("want ErrNilFunc, got %v", err)
	}
	// Identifiers are only recognized where a parser has them.
	q := formula.New(formula.WithoutDefaults())
	if err := q.SetExpr("0xff"); err == nil {
		t.Error("hex literal compiled without defaults")
	}
	if err := p.SetExpr("0xff"); err != nil {
		t.Fatal(err)
	}
	pl, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	if pl.String() != "255" {
		t.Errorf("hex literal formats as %q", pl.String())
	}
}

func TestStrFuncs(t *testing.T) {
	var calls int
	p := formula.New()
	strlen := formula.StrFn(0, func(s string, _ []float64) (float64, error) {
		calls++
		return float64(len([]rune(s))), nil
	})
	scaled := formula.StrFn(1, func(s string, args []float64) (float64, error) {
		return float64(len(s)) * args[0], nil
	})
	num := formula.StrFn(0, func(s string, _ []float64) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
	for name, fn := range map[string]formula.StrFunc{"strlen": strlen, "scaled": scaled, "num": num} {
		if err := p.DefineStrFun(name, fn); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.DefineStrConst("greeting", "hello"); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		src  string
		want float64
	}{
		{`strlen("héllo")`, 5},
		{`strlen("")`, 0},
		{`scaled("ab", 3) + 1`, 7},
		{`scaled("ab", 1 + 2) * 2`, 12},
		{`strlen(greeting) * 2`, 10},
		{`strlen("a\"b")`, 3},
		{`strlen("a,b")`, 3},
		{`num("2.5") * 2`, 5},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if err := p.SetExpr(c.src); err != nil {
				t.Fatal(err)
			}
			r, err := p.Eval()
			if err != nil {
				t.Fatal(err)
			}
			if r != c.want {
				t.Errorf("want %g, got %g", c.want, r)
			}
			big, err := p.EvalBig(64)
			if err != nil {
				t.Fatal(err)
			}
			if v, _ := big.Float64(); v != c.want {
				t.Errorf("EvalBig: want %g, got %g", c.want, v)
			}
		})
	}

	// String calls run at every evaluation.
	if err := p.SetExpr(`strlen("ab")`); err != nil {
		t.Fatal(err)
	}
	calls = 0
	for i := 0; i < 3; i++ {
		p.Eval()
	}
	if calls != 3 {
		t.Errorf("want 3 calls, got %d", calls)
	}

	if err := p.SetExpr(`strlen("a\"b")`); err != nil {
		t.Fatal(err)
	}
	pl, _ := p.Plan()
	if pl.String() != `strlen("a\"b")` {
		t.Errorf("wrong formatting %q", pl.String())
	}

	if err := p.SetExpr(`num("x")`); err != nil {
		t.Fatal(err)
	}
	_, err := p.Eval()
	var eerr *formula.EvalError
	var nerr *strconv.NumError
	if !errors.As(err, &eerr) || eerr.Func != "num" || !errors.As(err, &nerr) {
		t.Errorf("want EvalError from num wrapping a NumError, got %v", err)
	}

	consts := p.StrConsts()
	if len(consts) != 1 || consts[0] != (formula.StrConst{Name: "greeting", Value: "hello"}) {
		t.Errorf("wrong string constants %+v", consts)
	}
	if err := p.DefineStrFun("bad", nil); !errors.Is(err, formula.ErrNilFunc) {
		t.Errorf("want ErrNilFunc, got %v", err)
	}
	var nerr2 *formula.InvalidNameError
	if err := p.DefineStrConst("1x", "a"); !errors.As(err, &nerr2) {
		t.Errorf("want InvalidNameError, got %v", err)
	}
	var rerr *formula.RedefinitionError
	if err := p.DefineStrConst("sin", "a"); !errors.As(err, &rerr) {
		t.Errorf("want RedefinitionError, got %v", err)
	}
	p.ClearConst()
	if len(p.StrConsts()) != 0 {
		t.Error("ClearConst left string constants")
	}
}

func TestDiff(t *testing.T) {
	var x float64
	p := formula.New()
	if err := p.DefineVar("x", &x); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		src  string
		at   float64
		eps  float64
		want float64
	}{
		{"x^3", 2, 0, 12},
		{"x^3", 0, 1e-3, 0},
		{"sin(x)", 0, 0, 1},
		{"exp(x)", 1, 1e-4, math.E},
		{"3*x + 1", -5, 0, 3},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			x = 42
			if err := p.SetExpr(c.src); err != nil {
				t.Fatal(err)
			}
			d, err := p.Diff(&x, c.at, c.eps)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(d-c.want) > 1e-6 {
				t.Errorf("d/dx %s at %g: want %g, got %g", c.src, c.at, c.want, d)
			}
			if x != 42 {
				t.Errorf("x not restored: %g", x)
			}
		})
	}

	pl, err := p.Compile("x*x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pl.Diff(nil, 1, 0); !errors.Is(err, formula.ErrNilVar) {
		t.Errorf("want ErrNilVar, got %v", err)
	}
	boom := errors.New("boom")
	p.DefineFun("f", formula.Fallible(1, func(args []float64) (float64, error) { return 0, boom }), true)
	if err := p.SetExpr("f(x)"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Diff(&x, 1, 0); !errors.Is(err, boom) {
		t.Errorf("want boom, got %v", err)
	}
}

func TestTernaryLazy(t *testing.T) {
	var calls int
	boom := errors.New("boom")
	p := formula.New()
	fail := formula.Fallible(1, func(args []float64) (float64, error) {
		calls++
		return 0, boom
	})
	if err := p.DefineFun("fail", fail, true); err != nil {
		t.Fatal(err)
	}
	var x float64
	if err := p.DefineVar("x", &x); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("x ? fail(1) : 2"); err != nil {
		t.Fatal(err)
	}
	if r, err := p.Eval(); err != nil || r != 2 {
		t.Errorf("want 2, <nil>; got %g, %v", r, err)
	}
	if calls != 0 {
		t.Errorf("untaken branch called fail %d times", calls)
	}
	x = 1
	_, err := p.Eval()
	if !errors.Is(err, boom) {
		t.Errorf("want boom, got %v", err)
	}
	var eerr *formula.EvalError
	if !errors.As(err, &eerr) || eerr.Func != "fail" {
		t.Errorf("want *EvalError from fail, got %#v", err)
	}
	if calls != 1 {
		t.Errorf("fail called %d times", calls)
	}
}

func TestFallibleNotFolded(t *testing.T) {
	var calls int
	p := formula.New()
	f := formula.Fallible(1, func(args []float64) (float64, error) {
		calls++
		return args[0] * 2, nil
	})
	if err := p.DefineFun("f", f, true); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("f(2) + 1"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if r, _ := p.Eval(); r != 5 {
			t.Errorf("want 5, got %g", r)
		}
	}
	if calls != 3 {
		t.Errorf("want 3 calls, got %d", calls)
	}
}

func TestNoOptimizeFlag(t *testing.T) {
	var calls int
	p := formula.New()
	counter := formula.Niladic(func() float64 {
		calls++
		return float64(calls)
	})
	if err := p.DefineFun("next", counter, false); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("next() * 10"); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if r, _ := p.Eval(); r != float64(i*10) {
			t.Errorf("evaluation %d: want %d, got %g", i, i*10, r)
		}
	}
}

func TestVarFactory(t *testing.T) {
	made := map[string]*float64{}
	p := formula.New()
	p.SetVarFactory(func(name string) (*float64, error) {
		v := new(float64)
		made[name] = v
		return v, nil
	})
	if err := p.SetExpr("a*b + a"); err != nil {
		t.Fatal(err)
	}
	if len(made) != 2 {
		t.Fatalf("want 2 variables, got %v", made)
	}
	*made["a"], *made["b"] = 3, 4
	if r, _ := p.Eval(); r != 15 {
		t.Errorf("want 15, got %g", r)
	}
	vars := p.Vars()
	if len(vars) != 2 || vars[0].Name != "a" || vars[0].Ptr != made["a"] || vars[1].Name != "b" {
		t.Errorf("wrong variables %+v", vars)
	}

	refuse := errors.New("no")
	p.SetVarFactory(func(name string) (*float64, error) { return nil, refuse })
	if err := p.SetExpr("c"); !errors.Is(err, refuse) {
		t.Errorf("want factory error, got %v", err)
	}
	p.SetVarFactory(func(name string) (*float64, error) { return nil, nil })
	if err := p.SetExpr("c"); reflect.TypeOf(err) != reflect.TypeOf(new(formula.UnknownTokenError)) {
		t.Errorf("want UnknownTokenError, got %T (%v)", err, err)
	}
}

func TestExprVars(t *testing.T) {
	var a, b, c float64
	p := formula.New()
	for _, v := range []struct {
		n string
		p *float64
	}{{"a", &a}, {"b", &b}, {"c", &c}} {
		if err := p.DefineVar(v.n, v.p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.ExprVars(); !errors.Is(err, formula.ErrNoExpr) {
		t.Errorf("ExprVars with no expression: %v", err)
	}
	if err := p.SetExpr("b + a*a + _pi"); err != nil {
		t.Fatal(err)
	}
	vars, err := p.ExprVars()
	if err != nil {
		t.Fatal(err)
	}
	want := []formula.Var{{Name: "a", Ptr: &a}, {Name: "b", Ptr: &b}}
	if !reflect.DeepEqual(vars, want) {
		t.Errorf("want %+v, got %+v", want, vars)
	}
	if err := p.SetExpr("1+2"); err != nil {
		t.Fatal(err)
	}
	if vars, _ := p.ExprVars(); len(vars) != 0 {
		t.Errorf("constant expression uses %+v", vars)
	}
}

func TestEnumerate(t *testing.T) {
	p := formula.New()
	want := []formula.Const{{Name: "_e", Value: math.E}, {Name: "_pi", Value: math.Pi}}
	if c := p.Consts(); !reflect.DeepEqual(c, want) {
		t.Errorf("default constants: want %v, got %v", want, c)
	}
	funcs := p.Funcs()
	for i := 1; i < len(funcs); i++ {
		if funcs[i-1] >= funcs[i] {
			t.Errorf("functions not sorted: %q", funcs)
			break
		}
	}
	for _, name := range []string{"sin", "cos", "sqrt", "sum", "avg", "min", "max", "rint", "log", "ln"} {
		found := false
		for _, f := range funcs {
			found = found || f == name
		}
		if !found {
			t.Errorf("missing default function %q", name)
		}
	}
	if v := p.Vars(); len(v) != 0 {
		t.Errorf("new parser has variables %v", v)
	}
	q := formula.New(formula.WithoutDefaults())
	if len(q.Consts()) != 0 || len(q.Funcs()) != 0 {
		t.Errorf("parser without defaults has %v and %q", q.Consts(), q.Funcs())
	}
	if err := q.SetExpr("-1"); err == nil {
		t.Error("prefix - without defaults")
	}
	if err := q.SetExpr("1 + 2*3"); err != nil {
		t.Errorf("built-in operators without defaults: %v", err)
	}
}

func TestArrayScalarEval(t *testing.T) {
	p := formula.New()
	if err := p.DefineVarArray("a", []float64{5, 6, 7}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetExpr("a*2"); err != nil {
		t.Fatal(err)
	}
	if r, _ := p.Eval(); r != 10 {
		t.Errorf("want 10, got %g", r)
	}
}

func TestCompile(t *testing.T) {
	var x float64
	p := formula.New()
	if err := p.DefineVar("x", &x); err != nil {
		t.Fatal(err)
	}
	a, err := p.Compile("x*2")
	if err != nil {
		t.Fatal(err)
	}
	if p.GetExpr() != "" {
		t.Errorf("Compile set the expression to %q", p.GetExpr())
	}
	b, err := p.Compile("x*2")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("repeated Compile didn't use the cache")
	}
	if err := p.DefineConst("k", 1); err != nil {
		t.Fatal(err)
	}
	c, err := p.Compile("x*2")
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Error("cache survived a symbol change")
	}
	x = 4
	for _, pl := range []*formula.Plan{a, b, c} {
		if r, _ := pl.Eval(); r != 8 {
			t.Errorf("want 8, got %g", r)
		}
	}
	if s := a.Expr(); s != "x*2" {
		t.Errorf("wrong plan text %q", s)
	}
	if s := a.String(); s != "(x * 2)" {
		t.Errorf("wrong plan format %q", s)
	}

	q := formula.New(formula.WithCacheSize(0))
	d, _ := q.Compile("1+2")
	e, _ := q.Compile("1+2")
	if d == e {
		t.Error("parser without cache returned the same plan")
	}
	rd, _ := d.Eval()
	re, _ := e.Eval()
	if rd != re || rd != 3 {
		t.Errorf("plans of the same expression differ: %g vs %g", rd, re)
	}
}

func TestPlanConcurrent(t *testing.T) {
	p := formula.New()
	if err := p.DefineVarArray("a", []float64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	pl, err := p.Compile("a ? sum(a, 2, 3) * sin(1) : 0")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := pl.Eval()
	done := make(chan float64)
	for i := 0; i < 8; i++ {
		go func() {
			var r float64
			for j := 0; j < 100; j++ {
				r, _ = pl.Eval()
			}
			done <- r
		}()
	}
	for i := 0; i < 8; i++ {
		if r := <-done; r != want {
			t.Errorf("concurrent evaluation gave %g, want %g", r, want)
		}
	}
}

func TestVersion(t *testing.T) {
	p := formula.New()
	if p.Version() != formula.Version {
		t.Errorf("want %q, got %q", formula.Version, p.Version())
	}
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(p.Version()) {
		t.Errorf("malformed version %q", p.Version())
	}
}

func BenchmarkEval(b *testing.B) {
	x, y, z := 2.0, 3.0, 4.0
	p := formula.New()
	p.DefineVar("x", &x)
	p.DefineVar("y", &y)
	p.DefineVar("z", &z)
	b.Run("nums", func(b *testing.B) {
		b.ReportAllocs()
		pl, err := p.Compile("2+3+4")
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			pl.Eval()
		}
	})
	b.Run("vars", func(b *testing.B) {
		b.ReportAllocs()
		pl, err := p.Compile("x+y+z")
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			pl.Eval()
		}
	})
	b.Run("funcs", func(b *testing.B) {
		b.ReportAllocs()
		pl, err := p.Compile("x < y ? sin(x)*cos(y) : sum(x, y, z)^2")
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < b.N; i++ {
			pl.Eval()
		}
	})
}

func Example() {
	var x float64
	p := formula.New()
	p.DefineVar("x", &x)
	a, _ := p.Compile("x^3/2 - x")
	b, _ := p.Compile("3*x^2/2 - 1")
	c, _ := p.Compile("3*x")

	for i := 0; i < 4; i++ {
		x = float64(i)
		y, _ := a.Eval()
		yp, _ := b.Eval()
		ypp, _ := c.Eval()
		fmt.Printf("x = %g   y = %-4g  y' = %-4g  y'' = %g\n", x, y, yp, ypp)
	}

	// Output:
	// x = 0   y = 0     y' = -1    y'' = 0
	// x = 1   y = -0.5  y' = 0.5   y'' = 3
	// x = 2   y = 2     y' = 5     y'' = 6
	// x = 3   y = 10.5  y' = 12.5  y'' = 9
}
