package formula

import (
	"strconv"
	"strings"
)

// node is a node in the syntax tree of an expression.
type node struct {
	kind nodeKind

	// name is the canonical text of a literal, the name of a constant,
	// variable, or function, or an operator.
	name string
	// pos is the offset of the token that produced the node.
	pos int

	val float64   // nodeNum
	lit bool      // nodeNum parsed from a literal
	v   varRef    // nodeVar
	fn  funcEntry // nodeCall
	str string    // nodeCall of a string function
	bin *binop    // nodeBinary
	un  *unop     // nodeInfix, nodePostfix

	left  *node
	right *node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeNum // push val
	nodeVar // push variable

	nodeCall // name is the function to call, right is link to nodeArg unless niladic
	nodeArg  // eval left, right is link to next arg

	nodeBinary  // evaluate left, then right, apply bin
	nodeInfix   // evaluate left, apply un
	nodePostfix // evaluate left, apply un
	nodeIf      // evaluate left, then one branch of right
	nodeElse    // left if the condition is nonzero, else right
)

func (k nodeKind) String() string {
	switch k {
	case nodeNone:
		return "None"
	case nodeNum:
		return "Num"
	case nodeVar:
		return "Var"
	case nodeCall:
		return "Call"
	case nodeArg:
		return "Arg"
	case nodeBinary:
		return "Binary"
	case nodeInfix:
		return "Infix"
	case nodePostfix:
		return "Postfix"
	case nodeIf:
		return "If"
	case nodeElse:
		return "Else"
	}
	return "nodeKind(" + strconv.Itoa(int(k)) + ")"
}

// args returns the argument expressions of a call node.
func (n *node) args() []*node {
	var r []*node
	for a := n.right; a != nil; a = a.right {
		r = append(r, a.left)
	}
	return r
}

// arglist links argument expressions into a list of nodeArg.
func arglist(args []*node) *node {
	var r *node
	for i := len(args) - 1; i >= 0; i-- {
		r = &node{kind: nodeArg, left: args[i], right: r}
	}
	return r
}

// isConst returns whether the node is a number.
func (n *node) isConst() bool {
	return n.kind == nodeNum
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b)
	return b.String()
}

// fmt writes the node fully parenthesized, so that the result compiles to
// the same tree.
func (n *node) fmt(b *strings.Builder) {
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteString("$#$")
	case nodeNum:
		switch {
		case n.lit, n.name != "":
			b.WriteString(n.name)
		case n.val < 0:
			b.WriteByte('(')
			b.WriteString(strconv.FormatFloat(n.val, 'g', -1, 64))
			b.WriteByte(')')
		default:
			b.WriteString(strconv.FormatFloat(n.val, 'g', -1, 64))
		}
	case nodeVar:
		b.WriteString(n.name)
	case nodeCall:
		b.WriteString(n.name)
		b.WriteByte('(')
		if n.fn.str != nil {
			quote(b, n.str)
			if n.right != nil {
				b.WriteString(", ")
			}
		}
		for a := n.right; a != nil; a = a.right {
			a.left.fmt(b)
			if a.right != nil {
				b.WriteString(", ")
			}
		}
		b.WriteByte(')')
	case nodeArg:
		// Args usually only appear inside calls.
		b.WriteByte(':')
		n.left.fmt(b)
	case nodeBinary:
		b.WriteByte('(')
		n.left.fmt(b)
		b.WriteByte(' ')
		b.WriteString(n.name)
		b.WriteByte(' ')
		n.right.fmt(b)
		b.WriteByte(')')
	case nodeInfix:
		b.WriteByte('(')
		b.WriteString(n.name)
		n.left.fmt(b)
		b.WriteByte(')')
	case nodePostfix:
		b.WriteByte('(')
		n.left.fmt(b)
		b.WriteString(n.name)
		b.WriteByte(')')
	case nodeIf:
		b.WriteByte('(')
		n.left.fmt(b)
		b.WriteString(" ? ")
		n.right.left.fmt(b)
		b.WriteString(" : ")
		n.right.right.fmt(b)
		b.WriteByte(')')
	default:
		panic("formula: invalid node kind " + n.kind.String() + " after writing " + b.String())
	}
}

// quote writes s as a string literal.
func quote(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
}
