package formula

// fold evaluates subtrees of optimizable operations whose operands are all
// numbers. It never modifies n; unchanged subtrees are shared.
func fold(n *node) *node {
	switch n.kind {
	case nodeNum, nodeVar:
		return n
	case nodeBinary:
		l, r := fold(n.left), fold(n.right)
		if n.bin.opt && l.isConst() && r.isConst() {
			return folded(n, n.bin.fn(l.val, r.val))
		}
		return n.with(l, r)
	case nodeInfix, nodePostfix:
		x := fold(n.left)
		if n.un.opt && x.isConst() {
			return folded(n, n.un.fn(x.val))
		}
		return n.with(x, nil)
	case nodeCall:
		args := n.args()
		all, changed := true, false
		for i, a := range args {
			f := fold(a)
			all = all && f.isConst()
			changed = changed || f != a
			args[i] = f
		}
		if all && foldable(n.fn) {
			vals := make([]float64, len(args))
			for i, a := range args {
				vals[i] = a.val
			}
			// Calls that fail are left for evaluation to report.
			if v, err := n.fn.fn.Call(vals); err == nil {
				return folded(n, v)
			}
		}
		if !changed {
			return n
		}
		return n.with(nil, arglist(args))
	case nodeIf:
		c := fold(n.left)
		a, b := fold(n.right.left), fold(n.right.right)
		if c.isConst() {
			if c.val != 0 {
				return a
			}
			return b
		}
		if c == n.left && a == n.right.left && b == n.right.right {
			return n
		}
		return n.with(c, n.right.with(a, b))
	default:
		panic("formula: cannot fold " + n.kind.String())
	}
}

func foldable(e funcEntry) bool {
	if !e.opt || e.bulk != nil {
		return false
	}
	_, ok := e.fn.(fallible)
	return !ok
}

func folded(n *node, v float64) *node {
	return &node{kind: nodeNum, pos: n.pos, val: v}
}

// with returns n if its children are already left and right, or else a copy
// of n with the given children.
func (n *node) with(left, right *node) *node {
	if n.left == left && n.right == right {
		return n
	}
	r := *n
	r.left, r.right = left, right
	return &r
}
