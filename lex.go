package formula

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

type lexToken struct {
	// text is the token as written in the expression.
	text string
	kind tokenKind
	// pos is the 0-based rune offset of the start of the token.
	pos int
	// val and canon are the value and the canonical spelling of a number
	// token. canon uses '.' as the decimal separator and has no thousands
	// separators. For a string token, canon is the unescaped contents.
	val   float64
	canon string
}

func (t lexToken) String() string {
	return t.kind.String() + ":" + t.text + "@" + strconv.Itoa(t.pos)
}

type tokenKind int

const (
	tokenNone tokenKind = iota
	// tokenEOF indicates the end of the input.
	tokenEOF
	// tokenNum is a number literal.
	tokenNum
	// tokenIdent is a constant, variable, or function name, or an unknown
	// name.
	tokenIdent
	// tokenBinOp is a binary operator, including the ternary ? and :.
	tokenBinOp
	// tokenInfixOp is a prefix operator.
	tokenInfixOp
	// tokenPostfixOp is a postfix operator.
	tokenPostfixOp
	// tokenOpen is an open parenthesis.
	tokenOpen
	// tokenClose is a close parenthesis.
	tokenClose
	// tokenSep is the argument separator.
	tokenSep
	// tokenStr is a quoted string literal.
	tokenStr
)

func (k tokenKind) String() string {
	switch k {
	case tokenNone:
		return "None"
	case tokenEOF:
		return "EOF"
	case tokenNum:
		return "Num"
	case tokenIdent:
		return "Ident"
	case tokenBinOp:
		return "BinOp"
	case tokenInfixOp:
		return "InfixOp"
	case tokenPostfixOp:
		return "PostfixOp"
	case tokenOpen:
		return "Open"
	case tokenClose:
		return "Close"
	case tokenSep:
		return "Sep"
	case tokenStr:
		return "Str"
	}
	return "tokenKind(" + strconv.Itoa(int(k)) + ")"
}

// lexer scans tokens from an expression. It tracks whether an operand or an
// operator is expected next, because the same runes can mean different
// things in either position: a leading - is a prefix operator, a following
// one is subtraction.
type lexer struct {
	expr string
	src  []rune
	pos  int
	syms *symtab
	loc  locale
	cs   *charsets
	// operand is true when the next token should begin an operand.
	operand bool
	p       lexToken
}

func lex(expr string, syms *symtab, loc locale, cs *charsets) *lexer {
	return &lexer{
		expr:    expr,
		src:     []rune(expr),
		syms:    syms,
		loc:     loc,
		cs:      cs,
		operand: true,
	}
}

// push unreads a token so that it is the next token returned from next. Panics
// if there is already a pushed token.
func (l *lexer) push(tok lexToken) {
	if l.p.kind != tokenNone {
		panic("formula: double push")
	}
	l.p = tok
}

// must scans the pushed token. Panics if there is no pushed token.
func (l *lexer) must() lexToken {
	tok := l.p
	if tok.kind == tokenNone {
		panic("formula: no pushed token")
	}
	l.p = lexToken{}
	return tok
}

// next scans the next token from the input. Once the input is exhausted,
// every call returns an EOF token positioned at the end of the input.
func (l *lexer) next() (lexToken, error) {
	if l.p.kind != tokenNone {
		return l.must(), nil
	}
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	tok := lexToken{pos: l.pos}
	if l.pos >= len(l.src) {
		tok.kind = tokenEOF
		return tok, nil
	}
	var err error
	if l.operand {
		tok, err = l.scanOperand(tok)
	} else {
		tok, err = l.scanOperator(tok)
	}
	if err != nil {
		return tok, err
	}
	switch tok.kind {
	case tokenNum, tokenIdent, tokenClose, tokenPostfixOp, tokenStr:
		l.operand = false
	default:
		l.operand = true
	}
	return tok, nil
}

func isSpace(r rune) bool {
	return r <= ' ' || unicode.IsSpace(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// peek returns the rune k places after the current one, or -1.
func (l *lexer) peek(k int) rune {
	if l.pos+k < len(l.src) {
		return l.src[l.pos+k]
	}
	return -1
}

func (l *lexer) startsNum() bool {
	r := l.peek(0)
	return isDigit(r) || r == l.loc.dec && isDigit(l.peek(1))
}

// scanOperand scans a token where an operand is expected.
func (l *lexer) scanOperand(tok lexToken) (lexToken, error) {
	r := l.src[l.pos]
	switch {
	case r == '(':
		return l.single(tok, tokenOpen), nil
	case r == ')':
		return l.single(tok, tokenClose), nil
	case r == '"':
		return l.scanStr(tok)
	case r == l.loc.arg:
		return l.single(tok, tokenSep), nil
	}
	var name string
	if l.cs.isName(r) {
		name = l.name()
		if l.syms.isValue(name) {
			return l.take(tok, tokenIdent, len([]rune(name))), nil
		}
	}
	if t, ok := l.scanValIdent(tok); ok {
		return t, nil
	}
	if l.startsNum() {
		return l.scanNum(tok)
	}
	if name != "" {
		if op := l.match(l.syms.infixNames()); op != "" {
			return l.take(tok, tokenInfixOp, len([]rune(op))), nil
		}
		// Alphabetic operators are misplaced here rather than unknown names.
		if op := l.match(l.syms.binNames()); op == name {
			return l.take(tok, tokenBinOp, len([]rune(op))), nil
		}
		if op := l.match(l.syms.postNames()); op == name {
			return l.take(tok, tokenPostfixOp, len([]rune(op))), nil
		}
		return l.take(tok, tokenIdent, len([]rune(name))), nil
	}
	if op := l.match(l.syms.infixNames()); op != "" {
		return l.take(tok, tokenInfixOp, len([]rune(op))), nil
	}
	// Operators that can't begin an operand are still scanned so that the
	// parser can report them as misplaced.
	if op := l.match(l.syms.binNames()); op != "" {
		return l.take(tok, tokenBinOp, len([]rune(op))), nil
	}
	if op := l.match(l.syms.postNames()); op != "" {
		return l.take(tok, tokenPostfixOp, len([]rune(op))), nil
	}
	return tok, l.error(tok.pos, string(r), "")
}

// scanOperator scans a token where an operator is expected.
func (l *lexer) scanOperator(tok lexToken) (lexToken, error) {
	r := l.src[l.pos]
	switch r {
	case ')':
		return l.single(tok, tokenClose), nil
	case '(':
		return l.single(tok, tokenOpen), nil
	case '"':
		return l.scanStr(tok)
	case l.loc.arg:
		return l.single(tok, tokenSep), nil
	}
	post := l.match(l.syms.postNames())
	bin := l.match(l.syms.binNames())
	switch {
	case post != "" && len(post) >= len(bin):
		return l.take(tok, tokenPostfixOp, len([]rune(post))), nil
	case bin != "":
		return l.take(tok, tokenBinOp, len([]rune(bin))), nil
	}
	// Values where an operator belongs are scanned whole so that the parser
	// can name them in its error.
	if t, ok := l.scanValIdent(tok); ok {
		return t, nil
	}
	if l.startsNum() {
		return l.scanNum(tok)
	}
	if l.cs.isName(r) {
		return l.take(tok, tokenIdent, len([]rune(l.name()))), nil
	}
	return tok, l.error(tok.pos, string(r), "")
}

// scanValIdent tries each value identifier at the current position.
func (l *lexer) scanValIdent(tok lexToken) (lexToken, bool) {
	for _, id := range l.syms.idents {
		n, v, ok := id(l.src[l.pos:])
		if !ok || n <= 0 || l.pos+n > len(l.src) {
			continue
		}
		tok = l.take(tok, tokenNum, n)
		tok.val = v
		tok.canon = strconv.FormatFloat(v, 'g', -1, 64)
		return tok, true
	}
	return tok, false
}

// scanStr scans a double-quoted string. A backslash escapes the rune after
// it.
func (l *lexer) scanStr(tok lexToken) (lexToken, error) {
	var b strings.Builder
	start := l.pos
	for k := l.pos + 1; k < len(l.src); k++ {
		switch r := l.src[k]; r {
		case '\\':
			k++
			if k < len(l.src) {
				b.WriteRune(l.src[k])
			}
		case '"':
			tok = l.take(tok, tokenStr, k+1-start)
			tok.canon = b.String()
			return tok, nil
		default:
			b.WriteRune(r)
		}
	}
	l.pos = len(l.src)
	return tok, l.error(start, string(l.src[start:]), "string")
}

func (l *lexer) single(tok lexToken, kind tokenKind) lexToken {
	return l.take(tok, kind, 1)
}

// take consumes n runes as a token of the given kind.
func (l *lexer) take(tok lexToken, kind tokenKind, n int) lexToken {
	tok.kind = kind
	tok.text = string(l.src[l.pos : l.pos+n])
	l.pos += n
	return tok
}

// name returns the run of name runes at the current position without
// consuming it.
func (l *lexer) name() string {
	end := l.pos
	for end < len(l.src) && l.cs.isName(l.src[end]) {
		end++
	}
	return string(l.src[l.pos:end])
}

// match returns the first of names that appears at the current position.
// names must be ordered longest first.
func (l *lexer) match(names []string) string {
	for _, name := range names {
		if l.hasPrefix(name) {
			return name
		}
	}
	return ""
}

func (l *lexer) hasPrefix(s string) bool {
	k := l.pos
	for _, r := range s {
		if k >= len(l.src) || l.src[k] != r {
			return false
		}
		k++
	}
	return true
}

func (l *lexer) scanNum(tok lexToken) (lexToken, error) {
	var b strings.Builder
	start := l.pos
	var dig, dot bool
loop:
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		switch {
		case isDigit(r):
			dig = true
			b.WriteRune(r)
		case r == l.loc.dec:
			if dot {
				break loop
			}
			dot = true
			b.WriteByte('.')
		case r == l.loc.thousands && l.loc.thousands != 0:
			// Thousands separators group digits of the integer part only.
			if !dig || dot || !isDigit(l.peek(1)) {
				break loop
			}
		case r == 'e' || r == 'E':
			if !dig {
				break loop
			}
			n := 1
			if s := l.peek(1); s == '+' || s == '-' {
				n = 2
			}
			if !isDigit(l.peek(n)) {
				l.pos += n
				return tok, l.error(start, string(l.src[start:l.pos]), "number")
			}
			b.WriteRune('e')
			if n == 2 {
				b.WriteRune(l.peek(1))
			}
			l.pos += n
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				b.WriteRune(l.src[l.pos])
				l.pos++
			}
			break loop
		default:
			break loop
		}
		l.pos++
	}
	tok.kind = tokenNum
	tok.text = string(l.src[start:l.pos])
	tok.canon = b.String()
	v, err := strconv.ParseFloat(tok.canon, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return tok, l.error(start, tok.text, "number")
	}
	tok.val = v
	return tok, nil
}

func (l *lexer) error(off int, text, kind string) error {
	return &LexError{
		where: where{Expr: l.expr, Offset: off},
		Text:  text,
		Kind:  kind,
	}
}
