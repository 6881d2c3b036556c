package formula

import (
	"errors"
	"strconv"
)

// where locates an input error within its expression.
type where struct {
	// Expr is the expression that was being compiled.
	Expr string
	// Offset is the 0-based rune offset of the token that caused the error.
	Offset int
}

func (w where) Pos() int {
	return w.Offset
}

func (w where) Expression() string {
	return w.Expr
}

// LexError indicates a run of input that is not a token. It implements
// InputError.
type LexError struct {
	where
	// Text is the invalid input. For malformed numbers, it is the whole
	// number as far as it was scanned.
	Text string
	// Kind is "number" when the lexer was scanning a number, "string" for an
	// unterminated string, or the empty string if no token kind had been
	// decided.
	Kind string
}

func (err *LexError) Error() string {
	if err.Kind == "" {
		return errpos(err.Offset, "unexpected character "+strconv.Quote(err.Text))
	}
	return errpos(err.Offset, "invalid "+err.Kind+" "+strconv.Quote(err.Text))
}

func (err *LexError) Token() string {
	return err.Text
}

// UnknownTokenError indicates a name that is not a constant, variable, or
// function, and that no variable factory would create. It implements
// InputError.
type UnknownTokenError struct {
	where
	// Text is the unknown name.
	Text string
}

func (err *UnknownTokenError) Error() string {
	return errpos(err.Offset, "unknown token "+strconv.Quote(err.Text))
}

func (err *UnknownTokenError) Token() string {
	return err.Text
}

// ArityError indicates a function call with the wrong number of arguments.
// It implements InputError.
type ArityError struct {
	where
	// Func is the name of the function.
	Func string
	// Len is the number of arguments in the call.
	Len int
	// Min and Max are the bounds on the number of arguments the function
	// accepts. Max is negative for variadic functions.
	Min, Max int
}

func (err *ArityError) Error() string {
	s := "too many"
	if err.Len < err.Min {
		s = "too few"
	}
	return errpos(err.Offset, s+" arguments for function "+strconv.Quote(err.Func)+" (got "+strconv.Itoa(err.Len)+")")
}

func (err *ArityError) Token() string {
	return err.Func
}

// Reason classifies a SyntaxError.
type Reason int

const (
	_ Reason = iota
	// UnexpectedEOF means the expression ended where an operand or a
	// closing parenthesis was required.
	UnexpectedEOF
	// UnexpectedOperator means an operator appeared where it cannot be
	// applied, such as a binary operator with no left operand or two prefix
	// operators in a row.
	UnexpectedOperator
	// UnexpectedValue means a number or constant followed an operand.
	UnexpectedValue
	// UnexpectedVar means a variable followed an operand.
	UnexpectedVar
	// UnexpectedFunc means a function name was not followed by its argument
	// list, or followed an operand.
	UnexpectedFunc
	// UnexpectedParens means a parenthesis appeared where it cannot match.
	UnexpectedParens
	// UnexpectedArgSep means an argument separator appeared outside of a
	// function call or the top level.
	UnexpectedArgSep
	// MissingParens means an open parenthesis was never closed.
	MissingParens
	// EmptyExpression means the expression contains no tokens.
	EmptyExpression
	// MisplacedColon means a : appeared with no matching ?.
	MisplacedColon
	// MissingElse means a ? had no matching :.
	MissingElse
	// StringExpected means a string function's first argument was not a
	// string.
	StringExpected
	// UnexpectedString means a string appeared outside of the first argument
	// of a string function.
	UnexpectedString
)

func (r Reason) String() string {
	switch r {
	case UnexpectedEOF:
		return "unexpected end of expression"
	case UnexpectedOperator:
		return "unexpected operator"
	case UnexpectedValue:
		return "unexpected value"
	case UnexpectedVar:
		return "unexpected variable"
	case UnexpectedFunc:
		return "unexpected function"
	case UnexpectedParens:
		return "unexpected parenthesis"
	case UnexpectedArgSep:
		return "unexpected argument separator"
	case MissingParens:
		return "missing parenthesis"
	case EmptyExpression:
		return "empty expression"
	case MisplacedColon:
		return "misplaced colon"
	case MissingElse:
		return "if-then-else without else"
	case StringExpected:
		return "string expected"
	case UnexpectedString:
		return "unexpected string"
	}
	return "Reason(" + strconv.Itoa(int(r)) + ")"
}

// SyntaxError indicates tokens in an order that does not form an expression.
// It implements InputError.
type SyntaxError struct {
	where
	// Reason describes the problem.
	Reason Reason
	// Text is the offending token, or the empty string at the end of input.
	Text string
}

func (err *SyntaxError) Error() string {
	if err.Text == "" {
		return errpos(err.Offset, err.Reason.String())
	}
	return errpos(err.Offset, err.Reason.String()+" "+strconv.Quote(err.Text))
}

func (err *SyntaxError) Token() string {
	return err.Text
}

// LocaleError indicates separator settings that cannot be scanned
// unambiguously.
type LocaleError struct {
	// Dec, Arg, and Thousands are the configured separators. Thousands is 0
	// when unset.
	Dec, Arg, Thousands rune
	// Conflict names the separator that collides with another: "argument"
	// when the decimal and argument separators are equal, "thousands" when
	// the thousands and decimal separators are equal, and
	// "thousands-argument" when the thousands and argument separators are
	// equal. It is "invalid" when a separator cannot be used at all.
	Conflict string
}

func (err *LocaleError) Error() string {
	switch err.Conflict {
	case "argument":
		return "decimal separator " + strconv.QuoteRune(err.Dec) + " is also the argument separator"
	case "thousands":
		return "thousands separator " + strconv.QuoteRune(err.Thousands) + " is also the decimal separator"
	case "thousands-argument":
		return "thousands separator " + strconv.QuoteRune(err.Thousands) + " is also the argument separator"
	}
	return "invalid separator configuration"
}

// RedefinitionError indicates an attempt to bind a name that is already
// bound to something of a different kind, or to override a built-in
// operator.
type RedefinitionError struct {
	// Name is the name being defined.
	Name string
	// Have is the kind of the existing binding, e.g. "constant" or
	// "built-in operator".
	Have string
	// Want is the kind of the new binding.
	Want string
}

func (err *RedefinitionError) Error() string {
	return "cannot define " + err.Want + " " + strconv.Quote(err.Name) + ": already a " + err.Have
}

// InvalidNameError indicates a name containing characters outside the
// configured character set for its kind.
type InvalidNameError struct {
	Name string
	// Kind is the kind of symbol being defined.
	Kind string
}

func (err *InvalidNameError) Error() string {
	return "invalid " + err.Kind + " name " + strconv.Quote(err.Name)
}

// EvalError wraps an error returned by a function or operator during
// evaluation.
type EvalError struct {
	// Func is the name of the function that failed.
	Func string
	Err  error
}

func (err *EvalError) Error() string {
	return "calling " + err.Func + ": " + err.Err.Error()
}

func (err *EvalError) Unwrap() error {
	return err.Err
}

// BulkError reports the first failing index of a bulk evaluation.
type BulkError struct {
	// Index is the lowest index at which evaluation failed.
	Index int
	Err   error
}

func (err *BulkError) Error() string {
	return "bulk evaluation at index " + strconv.Itoa(err.Index) + ": " + err.Err.Error()
}

func (err *BulkError) Unwrap() error {
	return err.Err
}

var (
	// ErrNilVar is returned when defining a variable with no storage.
	ErrNilVar = errors.New("formula: nil variable storage")
	// ErrNilFunc is returned when defining a function or operator with no
	// callback.
	ErrNilFunc = errors.New("formula: nil function")
	// ErrNoExpr is returned when evaluating a parser with no expression.
	ErrNoExpr = errors.New("formula: no expression set")
	// ErrBulkSize is returned when a bulk evaluation needs more elements
	// than an array variable holds.
	ErrBulkSize = errors.New("formula: bulk size exceeds array variable length")
	// ErrPrecedence is returned when defining an operator with a negative
	// precedence.
	ErrPrecedence = errors.New("formula: negative operator precedence")
)

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the 0-based rune offset of the token that caused the error.
	Pos() int
	// Expression returns the expression that contains the error.
	Expression() string
	// Token returns the text of the offending token, if any.
	Token() string
}

var (
	_ InputError = (*LexError)(nil)
	_ InputError = (*UnknownTokenError)(nil)
	_ InputError = (*ArityError)(nil)
	_ InputError = (*SyntaxError)(nil)
)
