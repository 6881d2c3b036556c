package formula

import (
	"math"
	"math/big"
)

// Assoc is the associativity of a binary operator.
type Assoc int8

const (
	AssocLeft Assoc = iota
	AssocRight
)

// Precedences of the built-in operators. Higher precedences bind tighter.
// PrecLogic is unused by built-in operators and is meant for user-defined
// bitwise or logical operators. Only assignment binds more loosely than the
// ternary operator.
const (
	PrecAssign   = -1
	PrecTernary  = 0
	PrecLogicOr  = 1
	PrecLogicAnd = 2
	PrecLogic    = 3
	PrecCompare  = 4
	PrecAddSub   = 5
	PrecMulDiv   = 6
	PrecPow      = 7
	PrecInfix    = 6
)

// varRef is the storage of a variable. Exactly one of p and arr is set. The
// parser never owns the storage.
type varRef struct {
	p   *float64
	arr []float64
}

// binop is a binary operator.
type binop struct {
	name  string
	prec  int
	right bool
	fn    func(x, y float64) float64
	// code is the instruction for built-in operators and opBinary otherwise.
	code opcode
	opt  bool
}

// unop is a prefix or postfix operator.
type unop struct {
	name string
	prec int
	fn   func(x float64) float64
	opt  bool
	// big is the arbitrary-precision implementation of default operators.
	big func(z, x *big.Float) *big.Float
}

// funcEntry is a function binding. Exactly one of fn, bulk, and str is set.
type funcEntry struct {
	fn   Func
	bulk BulkFunc
	str  StrFunc
	opt  bool
}

func (e funcEntry) arity() (min, max int) {
	switch {
	case e.bulk != nil:
		return e.bulk.Arity()
	case e.str != nil:
		return e.str.Arity()
	}
	return e.fn.Arity()
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ternaryOps are always recognized, even with built-in operators disabled.
var ternaryOps = map[string]*binop{
	"?": {name: "?", prec: PrecTernary, right: true, code: opJz},
	":": {name: ":", prec: PrecTernary, right: true, code: opJmp},
}

var builtinOps = map[string]*binop{
	"||": {prec: PrecLogicOr, code: opOr, fn: func(x, y float64) float64 { return b2f(x != 0 || y != 0) }},
	"&&": {prec: PrecLogicAnd, code: opAnd, fn: func(x, y float64) float64 { return b2f(x != 0 && y != 0) }},
	"==": {prec: PrecCompare, code: opEQ, fn: func(x, y float64) float64 { return b2f(x == y) }},
	"!=": {prec: PrecCompare, code: opNE, fn: func(x, y float64) float64 { return b2f(x != y) }},
	"<":  {prec: PrecCompare, code: opLT, fn: func(x, y float64) float64 { return b2f(x < y) }},
	">":  {prec: PrecCompare, code: opGT, fn: func(x, y float64) float64 { return b2f(x > y) }},
	"<=": {prec: PrecCompare, code: opLE, fn: func(x, y float64) float64 { return b2f(x <= y) }},
	">=": {prec: PrecCompare, code: opGE, fn: func(x, y float64) float64 { return b2f(x >= y) }},
	"+":  {prec: PrecAddSub, code: opAdd, fn: func(x, y float64) float64 { return x + y }},
	"-":  {prec: PrecAddSub, code: opSub, fn: func(x, y float64) float64 { return x - y }},
	"*":  {prec: PrecMulDiv, code: opMul, fn: func(x, y float64) float64 { return x * y }},
	"/":  {prec: PrecMulDiv, code: opDiv, fn: func(x, y float64) float64 { return x / y }},
	"^":  {prec: PrecPow, right: true, code: opPow, fn: math.Pow},
	"=":  {prec: PrecAssign, right: true, code: opAssign},
}

func init() {
	for k, op := range builtinOps {
		op.name = k
		op.opt = op.code != opAssign
	}
}

func defaultInfix() map[string]*unop {
	return map[string]*unop{
		"-": {name: "-", prec: PrecInfix, opt: true, fn: func(x float64) float64 { return -x }, big: (*big.Float).Neg},
		"+": {name: "+", prec: PrecInfix, opt: true, fn: func(x float64) float64 { return x }, big: (*big.Float).Set},
	}
}

func defaultConsts() map[string]float64 {
	return map[string]float64{
		"_pi": math.Pi,
		"_e":  math.E,
	}
}

// symtab holds the bindings visible to compilation.
type symtab struct {
	consts  map[string]float64
	strs    map[string]string
	vars    map[string]varRef
	funcs   map[string]funcEntry
	binops  map[string]*binop
	infix   map[string]*unop
	postfix map[string]*unop
	// idents recognize literals other than decimal numbers, in the order
	// they were added.
	idents []ValIdent
	// nobuiltin disables the built-in binary operators.
	nobuiltin bool
	// gen counts mutations. Plans compiled under an older generation are
	// stale.
	gen uint64

	// Operator names ordered longest first, or nil when they must be
	// recomputed.
	bins, infs, posts []string
}

func newSymtab(defaults bool) *symtab {
	s := &symtab{
		consts:  map[string]float64{},
		strs:    map[string]string{},
		vars:    map[string]varRef{},
		funcs:   map[string]funcEntry{},
		binops:  map[string]*binop{},
		infix:   map[string]*unop{},
		postfix: map[string]*unop{},
	}
	if defaults {
		s.consts = defaultConsts()
		for k, fn := range defaultFuncs() {
			s.funcs[k] = funcEntry{fn: fn, opt: true}
		}
		s.infix = defaultInfix()
		s.idents = []ValIdent{HexIdent}
	}
	return s
}

func (s *symtab) changed() {
	s.gen++
	s.bins, s.infs, s.posts = nil, nil, nil
}

// kindOf returns the kind of value bound to name, or the empty string.
func (s *symtab) kindOf(name string) string {
	if _, ok := s.consts[name]; ok {
		return "constant"
	}
	if _, ok := s.strs[name]; ok {
		return "string constant"
	}
	if _, ok := s.vars[name]; ok {
		return "variable"
	}
	if _, ok := s.funcs[name]; ok {
		return "function"
	}
	return ""
}

func (s *symtab) isValue(name string) bool {
	return s.kindOf(name) != ""
}

func (s *symtab) isOprt(name string) bool {
	if ternaryOps[name] != nil || s.binops[name] != nil || s.infix[name] != nil || s.postfix[name] != nil {
		return true
	}
	return !s.nobuiltin && builtinOps[name] != nil
}

// checkValue checks that name may be bound as a value of kind want.
func (s *symtab) checkValue(name, want string) error {
	if have := s.kindOf(name); have != "" && have != want {
		return &RedefinitionError{Name: name, Have: have, Want: want}
	}
	if s.isOprt(name) {
		return &RedefinitionError{Name: name, Have: "operator", Want: want}
	}
	return nil
}

func (s *symtab) defineConst(name string, v float64) error {
	if err := s.checkValue(name, "constant"); err != nil {
		return err
	}
	s.consts[name] = v
	s.changed()
	return nil
}

func (s *symtab) defineStrConst(name, v string) error {
	if err := s.checkValue(name, "string constant"); err != nil {
		return err
	}
	s.strs[name] = v
	s.changed()
	return nil
}

func (s *symtab) addIdent(id ValIdent) {
	s.idents = append(s.idents, id)
	s.changed()
}

func (s *symtab) defineVar(name string, v varRef) error {
	if err := s.checkValue(name, "variable"); err != nil {
		return err
	}
	s.vars[name] = v
	s.changed()
	return nil
}

// addVar binds a variable created during compilation. Existing plans remain
// valid, so the generation is unchanged.
func (s *symtab) addVar(name string, p *float64) {
	s.vars[name] = varRef{p: p}
}

func (s *symtab) defineFunc(name string, e funcEntry) error {
	if err := s.checkValue(name, "function"); err != nil {
		return err
	}
	s.funcs[name] = e
	s.changed()
	return nil
}

// checkOprt checks that name may be bound as an operator.
func (s *symtab) checkOprt(name string) error {
	if have := s.kindOf(name); have != "" {
		return &RedefinitionError{Name: name, Have: have, Want: "operator"}
	}
	return nil
}

func (s *symtab) defineBinop(op *binop) error {
	if ternaryOps[op.name] != nil || !s.nobuiltin && builtinOps[op.name] != nil {
		return &RedefinitionError{Name: op.name, Have: "built-in operator", Want: "operator"}
	}
	if err := s.checkOprt(op.name); err != nil {
		return err
	}
	s.binops[op.name] = op
	s.changed()
	return nil
}

func (s *symtab) defineInfix(op *unop) error {
	if err := s.checkOprt(op.name); err != nil {
		return err
	}
	s.infix[op.name] = op
	s.changed()
	return nil
}

func (s *symtab) definePostfix(op *unop) error {
	if err := s.checkOprt(op.name); err != nil {
		return err
	}
	s.postfix[op.name] = op
	s.changed()
	return nil
}

// removeVar unbinds a variable. It is not an error to remove a name that is
// not a variable; nothing happens.
func (s *symtab) removeVar(name string) {
	if _, ok := s.vars[name]; ok {
		delete(s.vars, name)
		s.changed()
	}
}

func (s *symtab) clearVars() {
	clear(s.vars)
	s.changed()
}

// clearConsts unbinds numeric and string constants.
func (s *symtab) clearConsts() {
	clear(s.consts)
	clear(s.strs)
	s.changed()
}

func (s *symtab) clearFuncs() {
	clear(s.funcs)
	s.changed()
}

func (s *symtab) clearBinops() {
	clear(s.binops)
	s.changed()
}

func (s *symtab) clearInfix() {
	clear(s.infix)
	s.changed()
}

func (s *symtab) clearPostfix() {
	clear(s.postfix)
	s.changed()
}

// enableBuiltin turns the built-in binary operators on or off. Turning them
// on fails if a user operator defined while they were off has the name of
// one, leaving the table unchanged.
func (s *symtab) enableBuiltin(on bool) error {
	if on && s.nobuiltin {
		names := keys(s.binops)
		sortstrs(names)
		for _, name := range names {
			if builtinOps[name] != nil {
				return &RedefinitionError{Name: name, Have: "operator", Want: "built-in operator"}
			}
		}
	}
	s.nobuiltin = !on
	s.changed()
	return nil
}

// binop returns the binary operator with the given name.
func (s *symtab) binop(name string) *binop {
	if op := ternaryOps[name]; op != nil {
		return op
	}
	if !s.nobuiltin {
		if op := builtinOps[name]; op != nil {
			return op
		}
	}
	return s.binops[name]
}

func (s *symtab) binNames() []string {
	if s.bins == nil {
		s.bins = make([]string, 0, len(ternaryOps)+len(builtinOps)+len(s.binops))
		for k := range ternaryOps {
			s.bins = append(s.bins, k)
		}
		if !s.nobuiltin {
			for k := range builtinOps {
				s.bins = append(s.bins, k)
			}
		}
		for k := range s.binops {
			s.bins = append(s.bins, k)
		}
		sortoprs(s.bins)
	}
	return s.bins
}

func (s *symtab) infixNames() []string {
	if s.infs == nil {
		s.infs = keys(s.infix)
		sortoprs(s.infs)
	}
	return s.infs
}

func (s *symtab) postNames() []string {
	if s.posts == nil {
		s.posts = keys(s.postfix)
		sortoprs(s.posts)
	}
	return s.posts
}

func keys[V any](m map[string]V) []string {
	r := make([]string, 0, len(m))
	for k := range m {
		r = append(r, k)
	}
	return r
}

// sortstrs sorts a string slice without using package sort because that has
// a larger impact on binary size than this function.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// sortoprs sorts operator names longest first so that scanning finds the
// longest match, breaking ties alphabetically.
func sortoprs(names []string) {
	less := func(a, b string) bool {
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && less(names[j], names[j-1]); j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}
