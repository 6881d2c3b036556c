package formula

import (
	"math/big"

	"github.com/rs/zerolog"

	"github.com/zephyrtronium/formula/internal/plancache"
)

// Version is the version of the expression language and its defaults.
const Version = "1.0.0"

// VarFactory creates storage for a variable that an expression uses but that
// is not defined. Returning nil storage leaves the name undefined.
type VarFactory func(name string) (*float64, error)

// Const is a named constant.
type Const struct {
	Name  string
	Value float64
}

// StrConst is a named string constant.
type StrConst struct {
	Name  string
	Value string
}

// Var is a named variable. Exactly one of Ptr and Array is set.
type Var struct {
	Name  string
	Ptr   *float64
	Array []float64
}

// Parser compiles and evaluates an expression against a set of symbols.
// A Parser is not safe for concurrent use, but the plans it compiles are.
type Parser struct {
	syms *symtab
	loc  locale
	cs   charsets

	expr string
	plan *Plan
	// gen is the symbol generation plan was compiled under.
	gen uint64
	err error

	factory VarFactory
	noopt   bool
	cache   *plancache.Cache[*Plan]
	log     zerolog.Logger
	bulk    bulkConfig
}

// New creates a parser with the default constants, functions, and operators.
func New(opts ...Option) *Parser {
	c := defaultConfig()
	for _, opt := range opts {
		c = opt.option(c)
	}
	return &Parser{
		syms:  newSymtab(!c.nodefaults),
		loc:   defaultLocale,
		cs:    defaultCharsets,
		cache: plancache.New[*Plan](c.cache),
		log:   c.log,
		bulk:  c.bulk,
	}
}

// Version returns the version of the expression language.
func (p *Parser) Version() string {
	return Version
}

// Err returns the error from the most recent operation, or nil if it
// succeeded.
func (p *Parser) Err() error {
	return p.err
}

// SetExpr compiles an expression for evaluation. If compilation fails, the
// previous expression remains in place.
func (p *Parser) SetExpr(expr string) error {
	pl, err := p.compile(expr)
	p.err = err
	if err != nil {
		return err
	}
	p.expr, p.plan, p.gen = expr, pl, p.syms.gen
	return nil
}

// GetExpr returns the current expression.
func (p *Parser) GetExpr() string {
	return p.expr
}

// Compile compiles an expression into a plan without changing the parser's
// current expression.
func (p *Parser) Compile(expr string) (*Plan, error) {
	pl, err := p.compile(expr)
	p.err = err
	return pl, err
}

func (p *Parser) compile(expr string) (*Plan, error) {
	pl, hit, err := p.cache.GetOrCompile(expr, func() (*Plan, error) {
		roots, names, err := parse(expr, p.syms, p.loc, &p.cs, p.factory)
		if err != nil {
			return nil, err
		}
		return newPlan(expr, roots, names, !p.noopt), nil
	})
	if err != nil {
		p.log.Debug().Err(err).Str("expr", expr).Msg("compile failed")
		return nil, err
	}
	p.log.Debug().Str("expr", expr).Bool("cached", hit).Int("values", pl.NumResults()).Msg("compiled")
	return pl, nil
}

// Plan returns the compiled plan of the current expression, recompiling it
// if symbols or settings have changed since it was compiled.
func (p *Parser) Plan() (*Plan, error) {
	pl, err := p.current()
	p.err = err
	return pl, err
}

func (p *Parser) current() (*Plan, error) {
	if p.plan == nil {
		return nil, ErrNoExpr
	}
	if p.gen == p.syms.gen {
		return p.plan, nil
	}
	pl, err := p.compile(p.expr)
	if err != nil {
		return nil, err
	}
	p.plan, p.gen = pl, p.syms.gen
	return pl, nil
}

// Eval evaluates the current expression. For an expression with several
// comma-separated subexpressions, the result is the value of the last.
func (p *Parser) Eval() (float64, error) {
	pl, err := p.current()
	if err != nil {
		p.err = err
		return 0, err
	}
	r, err := pl.Eval()
	p.err = err
	return r, err
}

// EvalMulti evaluates the current expression and returns the value of each
// subexpression.
func (p *Parser) EvalMulti() ([]float64, error) {
	pl, err := p.current()
	if err != nil {
		p.err = err
		return nil, err
	}
	r, err := pl.EvalMulti()
	p.err = err
	return r, err
}

// EvalBulk evaluates the current expression once per element of out. See
// Plan.EvalBulk.
func (p *Parser) EvalBulk(out []float64) error {
	pl, err := p.current()
	if err != nil {
		p.err = err
		return err
	}
	p.err = pl.evalBulk(out, p.bulk)
	return p.err
}

// EvalBig evaluates the current expression in arbitrary precision. See
// Plan.EvalBig.
func (p *Parser) EvalBig(prec uint) (*big.Float, error) {
	pl, err := p.current()
	if err != nil {
		p.err = err
		return nil, err
	}
	r, err := pl.EvalBig(prec)
	p.err = err
	return r, err
}

// Diff differentiates the current expression numerically with respect to the
// variable whose storage is v. See Plan.Diff.
func (p *Parser) Diff(v *float64, x, eps float64) (float64, error) {
	pl, err := p.current()
	if err != nil {
		p.err = err
		return 0, err
	}
	r, err := pl.Diff(v, x, eps)
	p.err = err
	return r, err
}

// mutated records the result of a change to symbols or settings.
func (p *Parser) mutated(err error) error {
	p.err = err
	if err == nil {
		p.cache.Purge()
		p.log.Debug().Uint64("gen", p.syms.gen).Msg("symbols changed")
	}
	return err
}

// settings marks a change to settings that affect compilation.
func (p *Parser) settings() {
	p.syms.changed()
	p.mutated(nil)
}

// DefineConst binds a constant. Constants are substituted during
// compilation, so changing a constant requires recompiling.
func (p *Parser) DefineConst(name string, v float64) error {
	if !p.cs.validName(name) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "constant"})
	}
	return p.mutated(p.syms.defineConst(name, v))
}

// DefineStrConst binds a string constant. String constants can only appear
// as the first argument of a string function.
func (p *Parser) DefineStrConst(name, v string) error {
	if !p.cs.validName(name) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "string constant"})
	}
	return p.mutated(p.syms.defineStrConst(name, v))
}

// DefineVar binds a variable to storage owned by the caller. Evaluation
// reads the storage each time.
func (p *Parser) DefineVar(name string, v *float64) error {
	if v == nil {
		return p.mutated(ErrNilVar)
	}
	if !p.cs.validName(name) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "variable"})
	}
	return p.mutated(p.syms.defineVar(name, varRef{p: v}))
}

// DefineVarArray binds a variable to an array owned by the caller. Bulk
// evaluation reads element i for index i; scalar evaluation reads element 0.
// The array must not be empty.
func (p *Parser) DefineVarArray(name string, v []float64) error {
	if len(v) == 0 {
		return p.mutated(ErrNilVar)
	}
	if !p.cs.validName(name) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "variable"})
	}
	return p.mutated(p.syms.defineVar(name, varRef{arr: v}))
}

// DefineFun binds a function. If optimize is true, calls with all-constant
// arguments may be evaluated once during compilation.
func (p *Parser) DefineFun(name string, fn Func, optimize bool) error {
	if fn == nil {
		return p.mutated(ErrNilFunc)
	}
	if !p.cs.validName(name) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "function"})
	}
	return p.mutated(p.syms.defineFunc(name, funcEntry{fn: fn, opt: optimize}))
}

// DefineBulkFun binds a function that receives its position in bulk
// evaluation. Such calls are never optimized.
func (p *Parser) DefineBulkFun(name string, fn BulkFunc) error {
	if fn == nil {
		return p.mutated(ErrNilFunc)
	}
	if !p.cs.validName(name) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "function"})
	}
	return p.mutated(p.syms.defineFunc(name, funcEntry{bulk: fn}))
}

// DefineStrFun binds a function whose first argument is a string. Such calls
// are never optimized.
func (p *Parser) DefineStrFun(name string, fn StrFunc) error {
	if fn == nil {
		return p.mutated(ErrNilFunc)
	}
	if !p.cs.validName(name) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "function"})
	}
	return p.mutated(p.syms.defineFunc(name, funcEntry{str: fn}))
}

// AddValIdent adds a recognizer for literal values. Recognizers are tried in
// the order they were added, after names of defined symbols and before
// decimal numbers. HexIdent is present by default.
func (p *Parser) AddValIdent(fn ValIdent) error {
	if fn == nil {
		return p.mutated(ErrNilFunc)
	}
	p.syms.addIdent(fn)
	return p.mutated(nil)
}

// DefineOprt binds a binary operator. Built-in operators cannot be redefined
// while they are enabled.
func (p *Parser) DefineOprt(name string, fn func(x, y float64) float64, prec int, assoc Assoc, optimize bool) error {
	if fn == nil {
		return p.mutated(ErrNilFunc)
	}
	if prec < 0 {
		return p.mutated(ErrPrecedence)
	}
	if !validOprt(name, p.cs.oprt) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "operator"})
	}
	op := binop{name: name, prec: prec, right: assoc == AssocRight, fn: fn, code: opBinary, opt: optimize}
	return p.mutated(p.syms.defineBinop(&op))
}

// DefineInfixOprt binds a prefix operator. Its operand extends over all
// operators of higher precedence, so with precedence PrecInfix, -2^2 is -4.
func (p *Parser) DefineInfixOprt(name string, fn func(x float64) float64, prec int, optimize bool) error {
	if fn == nil {
		return p.mutated(ErrNilFunc)
	}
	if prec < 0 {
		return p.mutated(ErrPrecedence)
	}
	if !validOprt(name, p.cs.infix) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "prefix operator"})
	}
	return p.mutated(p.syms.defineInfix(&unop{name: name, prec: prec, fn: fn, opt: optimize}))
}

// DefinePostfixOprt binds a postfix operator, which applies directly to the
// operand before it.
func (p *Parser) DefinePostfixOprt(name string, fn func(x float64) float64, optimize bool) error {
	if fn == nil {
		return p.mutated(ErrNilFunc)
	}
	if !validOprt(name, p.cs.oprt) {
		return p.mutated(&InvalidNameError{Name: name, Kind: "postfix operator"})
	}
	return p.mutated(p.syms.definePostfix(&unop{name: name, fn: fn, opt: optimize}))
}

// RemoveVar unbinds a variable. Expressions using it fail to compile
// afterward.
func (p *Parser) RemoveVar(name string) {
	p.syms.removeVar(name)
	p.mutated(nil)
}

// ClearVar unbinds all variables.
func (p *Parser) ClearVar() {
	p.syms.clearVars()
	p.mutated(nil)
}

// ClearConst unbinds all constants.
func (p *Parser) ClearConst() {
	p.syms.clearConsts()
	p.mutated(nil)
}

// ClearFun unbinds all functions.
func (p *Parser) ClearFun() {
	p.syms.clearFuncs()
	p.mutated(nil)
}

// ClearOprt unbinds all user-defined binary operators.
func (p *Parser) ClearOprt() {
	p.syms.clearBinops()
	p.mutated(nil)
}

// ClearInfixOprt unbinds all prefix operators.
func (p *Parser) ClearInfixOprt() {
	p.syms.clearInfix()
	p.mutated(nil)
}

// ClearPostfixOprt unbinds all postfix operators.
func (p *Parser) ClearPostfixOprt() {
	p.syms.clearPostfix()
	p.mutated(nil)
}

// Consts returns the defined constants sorted by name.
func (p *Parser) Consts() []Const {
	names := keys(p.syms.consts)
	sortstrs(names)
	r := make([]Const, len(names))
	for i, name := range names {
		r[i] = Const{Name: name, Value: p.syms.consts[name]}
	}
	return r
}

// StrConsts returns the defined string constants sorted by name.
func (p *Parser) StrConsts() []StrConst {
	names := keys(p.syms.strs)
	sortstrs(names)
	r := make([]StrConst, len(names))
	for i, name := range names {
		r[i] = StrConst{Name: name, Value: p.syms.strs[name]}
	}
	return r
}

// Vars returns the defined variables sorted by name, including those created
// by the variable factory.
func (p *Parser) Vars() []Var {
	names := keys(p.syms.vars)
	sortstrs(names)
	r := make([]Var, len(names))
	for i, name := range names {
		v := p.syms.vars[name]
		r[i] = Var{Name: name, Ptr: v.p, Array: v.arr}
	}
	return r
}

// Funcs returns the names of the defined functions in sorted order.
func (p *Parser) Funcs() []string {
	names := keys(p.syms.funcs)
	sortstrs(names)
	return names
}

// ExprVars returns the variables the current expression uses, sorted by
// name.
func (p *Parser) ExprVars() ([]Var, error) {
	pl, err := p.current()
	p.err = err
	if err != nil {
		return nil, err
	}
	return pl.Vars(), nil
}

// SetVarFactory sets a function to create variables for undefined names
// during compilation. A nil factory restores the default of rejecting them.
func (p *Parser) SetVarFactory(f VarFactory) {
	p.factory = f
}

// EnableOptimizer turns constant folding on or off. It is on by default.
func (p *Parser) EnableOptimizer(on bool) {
	p.noopt = !on
	p.settings()
}

// EnableBuiltInOprt turns the built-in binary operators on or off. The
// ternary operator is always available. Turning them back on returns a
// *RedefinitionError if an operator defined in the meantime shares a name
// with a built-in one; the built-in operators then stay off.
func (p *Parser) EnableBuiltInOprt(on bool) error {
	return p.mutated(p.syms.enableBuiltin(on))
}

// SetDecSep sets the decimal separator. If it equals the argument separator,
// compilation fails with a *LocaleError.
func (p *Parser) SetDecSep(r rune) error {
	if !validSep(r) {
		return p.mutated(&LocaleError{Dec: r, Arg: p.loc.arg, Thousands: p.loc.thousands, Conflict: "invalid"})
	}
	p.loc.dec = r
	p.settings()
	return nil
}

// SetArgSep sets the argument separator, which also separates top-level
// subexpressions.
func (p *Parser) SetArgSep(r rune) error {
	if !validSep(r) {
		return p.mutated(&LocaleError{Dec: p.loc.dec, Arg: r, Thousands: p.loc.thousands, Conflict: "invalid"})
	}
	p.loc.arg = r
	p.settings()
	return nil
}

// SetThousandsSep sets the separator that may group digits in the integer
// part of numbers. 0 means no thousands separator, the default.
func (p *Parser) SetThousandsSep(r rune) error {
	if r != 0 && !validSep(r) {
		return p.mutated(&LocaleError{Dec: p.loc.dec, Arg: p.loc.arg, Thousands: r, Conflict: "invalid"})
	}
	p.loc.thousands = r
	p.settings()
	return nil
}

// ResetLocale restores the default separators: '.' for decimals, ',' for
// arguments, and no thousands separator.
func (p *Parser) ResetLocale() {
	p.loc = defaultLocale
	p.settings()
}

// DefineNameChars sets the runes allowed in names of constants, variables,
// and functions.
func (p *Parser) DefineNameChars(chars string) {
	p.cs.name = chars
	p.settings()
}

// DefineOprtChars sets the runes allowed in binary and postfix operators.
func (p *Parser) DefineOprtChars(chars string) {
	p.cs.oprt = chars
	p.settings()
}

// DefineInfixOprtChars sets the runes allowed in prefix operators.
func (p *Parser) DefineInfixOprtChars(chars string) {
	p.cs.infix = chars
	p.settings()
}
