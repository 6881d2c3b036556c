package formula

// Expr = Term { binop Term } | Expr '?' Expr ':' Expr | var '=' Expr
// Term = Operand { postfixop } | infixop Term
// Operand = num | const | var | Call | '(' Expr ')'
// Call = funcname '(' [ Expr { sep Expr } ] ')' | strfunc '(' Str { sep Expr } ')'
// Str = string | strconst
// List = Expr { sep Expr }

type operator struct {
	// prec is the precedence value. Higher is more binding.
	prec int
	// right indicates right-associativity.
	right bool
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

var (
	// exprprec is the precedence required to parse an entire subexpression.
	exprprec = operator{-128, true}
	// elseprec is the precedence of the else branch of a ternary, which
	// extends as far right as possible.
	elseprec = operator{PrecTernary, true}
)

// parsectx holds general data for parsing.
type parsectx struct {
	expr    string
	scan    *lexer
	syms    *symtab
	cs      *charsets
	factory VarFactory
	// names is the set of variable names that have been seen this parse.
	names map[string]bool
}

// parse compiles an expression into one syntax tree per top-level
// subexpression. The second result is the sorted names of the variables the
// expression uses.
func parse(expr string, syms *symtab, loc locale, cs *charsets, factory VarFactory) ([]*node, []string, error) {
	if err := loc.check(); err != nil {
		return nil, nil, err
	}
	p := parsectx{
		expr:    expr,
		scan:    lex(expr, syms, loc, cs),
		syms:    syms,
		cs:      cs,
		factory: factory,
		names:   make(map[string]bool),
	}
	tok, err := p.scan.next()
	if err != nil {
		return nil, nil, err
	}
	if tok.kind == tokenEOF {
		return nil, nil, p.syntax(EmptyExpression, tok)
	}
	p.scan.push(tok)
	var roots []*node
	for {
		n, err := p.parseterm(exprprec)
		if err != nil {
			return nil, nil, err
		}
		roots = append(roots, n)
		switch tok := p.scan.must(); tok.kind {
		case tokenEOF:
			names := keys(p.names)
			sortstrs(names)
			return roots, names, nil
		case tokenSep:
			// Another subexpression.
		default:
			return nil, nil, p.unexpected(tok)
		}
	}
}

// parseterm parses a subexpression containing only operators more binding
// than until. If there is no error, then parseterm pushes the last token it
// scans, including EOF.
func (p *parsectx) parseterm(until operator) (*node, error) {
	n, err := p.parselhs(until)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.scan.next()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokenBinOp || tok.text == ":" {
			// End of subexpression. The caller decides whether the token
			// belongs here.
			p.scan.push(tok)
			return n, nil
		}
		op := p.syms.binop(tok.text)
		prec := operator{op.prec, op.right}
		if !prec.moreBinding(until) {
			p.scan.push(tok)
			return n, nil
		}
		if tok.text == "?" {
			n, err = p.parseternary(n, tok)
			if err != nil {
				return nil, err
			}
			continue
		}
		if op.code == opAssign && (n.kind != nodeVar || n.v.p == nil) {
			// Only scalar variables can be assigned.
			return nil, p.syntax(UnexpectedOperator, tok)
		}
		rhs, err := p.parseterm(prec)
		if err != nil {
			return nil, err
		}
		n = &node{kind: nodeBinary, name: op.name, pos: tok.pos, bin: op, left: n, right: rhs}
	}
}

// parseternary parses the branches of a conditional whose condition is cond.
func (p *parsectx) parseternary(cond *node, q lexToken) (*node, error) {
	a, err := p.parseterm(exprprec)
	if err != nil {
		return nil, err
	}
	end := p.scan.must()
	switch {
	case end.kind == tokenBinOp && end.text == ":":
	case end.kind == tokenEOF, end.kind == tokenSep, end.kind == tokenClose:
		return nil, p.syntax(MissingElse, q)
	default:
		return nil, p.unexpected(end)
	}
	b, err := p.parseterm(elseprec)
	if err != nil {
		return nil, err
	}
	n := &node{
		kind:  nodeIf,
		name:  "?",
		pos:   q.pos,
		left:  cond,
		right: &node{kind: nodeElse, name: ":", pos: end.pos, left: a, right: b},
	}
	return n, nil
}

// parselhs parses the first component of a term, where any operator must be
// a prefix operator.
func (p *parsectx) parselhs(until operator) (*node, error) {
	tok, err := p.scan.next()
	if err != nil {
		return nil, err
	}
	var n *node
	switch tok.kind {
	case tokenNum:
		n = &node{kind: nodeNum, name: tok.canon, pos: tok.pos, val: tok.val, lit: true}
	case tokenIdent:
		n, err = p.parseident(tok)
		if err != nil {
			return nil, err
		}
	case tokenInfixOp:
		op := p.syms.infix[tok.text]
		// Prefix operators don't stack: --x is an error rather than x.
		next, err := p.scan.next()
		if err != nil {
			return nil, err
		}
		if next.kind == tokenInfixOp {
			return nil, p.syntax(UnexpectedOperator, next)
		}
		p.scan.push(next)
		prec := operator{op.prec, false}
		if !prec.moreBinding(until) {
			// x^-y -> x^(-y)
			// Just use the enclosing operator's precedence to simplify.
			prec = until
		}
		rhs, err := p.parseterm(prec)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeInfix, name: op.name, pos: tok.pos, un: op, left: rhs}, nil
	case tokenOpen:
		rhs, err := p.parseterm(exprprec)
		if err != nil {
			return nil, err
		}
		switch end := p.scan.must(); end.kind {
		case tokenClose:
		case tokenEOF:
			return nil, p.syntax(MissingParens, end)
		default:
			return nil, p.unexpected(end)
		}
		n = rhs
	case tokenClose:
		return nil, p.syntax(UnexpectedParens, tok)
	case tokenSep:
		return nil, p.syntax(UnexpectedArgSep, tok)
	case tokenStr:
		return nil, p.syntax(UnexpectedString, tok)
	case tokenEOF:
		return nil, p.syntax(UnexpectedEOF, tok)
	case tokenBinOp, tokenPostfixOp:
		if tok.text == ":" {
			return nil, p.syntax(MisplacedColon, tok)
		}
		return nil, p.syntax(UnexpectedOperator, tok)
	default:
		panic("formula: unknown token: " + tok.String())
	}
	return p.parsepostfix(n)
}

// parsepostfix applies any postfix operators following an operand.
func (p *parsectx) parsepostfix(n *node) (*node, error) {
	for {
		tok, err := p.scan.next()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokenPostfixOp {
			p.scan.push(tok)
			return n, nil
		}
		op := p.syms.postfix[tok.text]
		n = &node{kind: nodePostfix, name: op.name, pos: tok.pos, un: op, left: n}
	}
}

// parseident resolves a name in operand position.
func (p *parsectx) parseident(tok lexToken) (*node, error) {
	name := tok.text
	if v, ok := p.syms.consts[name]; ok {
		return &node{kind: nodeNum, name: name, pos: tok.pos, val: v}, nil
	}
	if v, ok := p.syms.vars[name]; ok {
		p.names[name] = true
		return &node{kind: nodeVar, name: name, pos: tok.pos, v: v}, nil
	}
	if fn, ok := p.syms.funcs[name]; ok {
		return p.parsecall(tok, fn)
	}
	if _, ok := p.syms.strs[name]; ok {
		return nil, p.syntax(UnexpectedString, tok)
	}
	if p.factory != nil && p.cs.validName(name) && !p.syms.isOprt(name) {
		v, err := p.factory(name)
		if err != nil {
			return nil, err
		}
		if v != nil {
			p.syms.addVar(name, v)
			p.names[name] = true
			return &node{kind: nodeVar, name: name, pos: tok.pos, v: varRef{p: v}}, nil
		}
	}
	return nil, &UnknownTokenError{where: where{Expr: p.expr, Offset: tok.pos}, Text: name}
}

// parsecall parses the argument list of a call to fn.
func (p *parsectx) parsecall(name lexToken, fn funcEntry) (*node, error) {
	open, err := p.scan.next()
	if err != nil {
		return nil, err
	}
	switch open.kind {
	case tokenOpen:
	case tokenEOF:
		return nil, p.syntax(UnexpectedEOF, open)
	default:
		return nil, p.syntax(UnexpectedFunc, name)
	}
	if fn.str != nil {
		return p.parsestrcall(name, fn)
	}
	var args []*node
	tok, err := p.scan.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenClose {
		p.scan.push(tok)
	arglist:
		for {
			a, err := p.parseterm(exprprec)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			switch end := p.scan.must(); end.kind {
			case tokenClose:
				break arglist
			case tokenSep:
				// Next argument.
			case tokenEOF:
				return nil, p.syntax(MissingParens, end)
			default:
				return nil, p.unexpected(end)
			}
		}
	}
	if err := p.checkArity(name, fn, len(args)); err != nil {
		return nil, err
	}
	return &node{kind: nodeCall, name: name.text, pos: name.pos, fn: fn, right: arglist(args)}, nil
}

// parsestrcall parses the arguments of a call to a string function after the
// open parenthesis. The first argument is a string literal or constant.
func (p *parsectx) parsestrcall(name lexToken, fn funcEntry) (*node, error) {
	tok, err := p.scan.next()
	if err != nil {
		return nil, err
	}
	var str string
	switch tok.kind {
	case tokenStr:
		str = tok.canon
	case tokenIdent:
		v, ok := p.syms.strs[tok.text]
		if !ok {
			return nil, p.syntax(StringExpected, tok)
		}
		str = v
	case tokenEOF:
		return nil, p.syntax(UnexpectedEOF, tok)
	default:
		return nil, p.syntax(StringExpected, tok)
	}
	var args []*node
	for {
		end, err := p.scan.next()
		if err != nil {
			return nil, err
		}
		switch end.kind {
		case tokenClose:
			if err := p.checkArity(name, fn, len(args)); err != nil {
				return nil, err
			}
			return &node{kind: nodeCall, name: name.text, pos: name.pos, fn: fn, str: str, right: arglist(args)}, nil
		case tokenSep:
		case tokenEOF:
			return nil, p.syntax(MissingParens, end)
		default:
			return nil, p.unexpected(end)
		}
		a, err := p.parseterm(exprprec)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
}

func (p *parsectx) checkArity(name lexToken, fn funcEntry, n int) error {
	min, max := fn.arity()
	if n < min || max >= 0 && n > max {
		return &ArityError{
			where: where{Expr: p.expr, Offset: name.pos},
			Func:  name.text,
			Len:   n,
			Min:   min,
			Max:   max,
		}
	}
	return nil
}

// unexpected returns an error for a token that cannot end a subexpression.
func (p *parsectx) unexpected(tok lexToken) error {
	switch tok.kind {
	case tokenNum:
		return p.syntax(UnexpectedValue, tok)
	case tokenIdent:
		switch p.syms.kindOf(tok.text) {
		case "constant":
			return p.syntax(UnexpectedValue, tok)
		case "variable":
			return p.syntax(UnexpectedVar, tok)
		case "function":
			return p.syntax(UnexpectedFunc, tok)
		case "string constant":
			return p.syntax(UnexpectedString, tok)
		}
		return &UnknownTokenError{where: where{Expr: p.expr, Offset: tok.pos}, Text: tok.text}
	case tokenOpen, tokenClose:
		return p.syntax(UnexpectedParens, tok)
	case tokenSep:
		return p.syntax(UnexpectedArgSep, tok)
	case tokenStr:
		return p.syntax(UnexpectedString, tok)
	case tokenBinOp:
		if tok.text == ":" {
			return p.syntax(MisplacedColon, tok)
		}
		return p.syntax(UnexpectedOperator, tok)
	case tokenEOF:
		return p.syntax(UnexpectedEOF, tok)
	default:
		return p.syntax(UnexpectedOperator, tok)
	}
}

func (p *parsectx) syntax(r Reason, tok lexToken) error {
	return &SyntaxError{where: where{Expr: p.expr, Offset: tok.pos}, Reason: r, Text: tok.text}
}
