package formula

import (
	"math"
	"strconv"
)

type opcode uint8

const (
	opNum opcode = iota // push val
	opVar               // push *ptr
	opArr               // push arr[idx]

	opAdd
	opSub
	opMul
	opDiv
	opPow
	opLT
	opGT
	opLE
	opGE
	opEQ
	opNE
	opAnd
	opOr

	opBinary // pop y, x; push fn2(x, y)
	opUnary  // replace top x with fn1(x)
	opCall   // pop argc args; push fn.Call(args)
	opBulk   // pop argc args; push bfn.CallBulk(idx, chunk, args)
	opStr    // pop argc args; push sfn.CallStr(str, args)
	opAssign // store top in *ptr
	opJz     // pop; jump to argc if zero
	opJmp    // jump to argc
)

type instr struct {
	op opcode
	// argc is the argument count of a call or the target of a jump.
	argc int
	val  float64
	ptr  *float64
	arr  []float64
	fn1  func(float64) float64
	fn2  func(float64, float64) float64
	fn   Func
	bfn  BulkFunc
	sfn  StrFunc
	str  string
	// name is the function name, for errors.
	name string
}

// program is a syntax tree lowered to a linear stack machine. Each top-level
// subexpression leaves one value on the stack.
type program struct {
	code []instr
	// depth is the maximum stack size during a run.
	depth int
	// nres is the number of values left on the stack after a run.
	nres int
	// assigns is true if the program writes to variables.
	assigns bool
}

// lower compiles syntax trees into a program.
func lower(roots []*node) program {
	var c lowering
	for _, n := range roots {
		c.emit(n)
	}
	return program{code: c.code, depth: c.max, nres: len(roots), assigns: c.assigns}
}

type lowering struct {
	code    []instr
	cur     int
	max     int
	assigns bool
}

func (c *lowering) grow(k int) {
	c.cur += k
	if c.cur > c.max {
		c.max = c.cur
	}
}

func (c *lowering) emit(n *node) {
	switch n.kind {
	case nodeNum:
		c.code = append(c.code, instr{op: opNum, val: n.val})
		c.grow(1)
	case nodeVar:
		if n.v.arr != nil {
			c.code = append(c.code, instr{op: opArr, arr: n.v.arr, name: n.name})
		} else {
			c.code = append(c.code, instr{op: opVar, ptr: n.v.p, name: n.name})
		}
		c.grow(1)
	case nodeBinary:
		if n.bin.code == opAssign {
			c.emit(n.right)
			c.code = append(c.code, instr{op: opAssign, ptr: n.left.v.p, name: n.left.name})
			c.assigns = true
			return
		}
		c.emit(n.left)
		c.emit(n.right)
		c.code = append(c.code, instr{op: n.bin.code, fn2: n.bin.fn, name: n.name})
		c.grow(-1)
	case nodeInfix, nodePostfix:
		c.emit(n.left)
		c.code = append(c.code, instr{op: opUnary, fn1: n.un.fn, name: n.name})
	case nodeCall:
		args := n.args()
		for _, a := range args {
			c.emit(a)
		}
		in := instr{op: opCall, argc: len(args), fn: n.fn.fn, name: n.name}
		switch {
		case n.fn.bulk != nil:
			in.op, in.bfn = opBulk, n.fn.bulk
		case n.fn.str != nil:
			in.op, in.sfn, in.str = opStr, n.fn.str, n.str
		}
		c.code = append(c.code, in)
		c.grow(1 - len(args))
	case nodeIf:
		c.emit(n.left)
		jz := len(c.code)
		c.code = append(c.code, instr{op: opJz})
		c.grow(-1)
		base := c.cur
		c.emit(n.right.left)
		jmp := len(c.code)
		c.code = append(c.code, instr{op: opJmp})
		c.code[jz].argc = len(c.code)
		// Only one branch runs.
		c.cur = base
		c.emit(n.right.right)
		c.code[jmp].argc = len(c.code)
	default:
		panic("formula: cannot lower " + n.kind.String())
	}
}

// run executes the program using stack, which must have length at least
// pr.depth. idx and chunk are the bulk position. The result aliases stack.
func (pr *program) run(stack []float64, idx, chunk int) ([]float64, error) {
	s := stack[:pr.depth]
	sp := 0
	for pc := 0; pc < len(pr.code); pc++ {
		in := &pr.code[pc]
		switch in.op {
		case opNum:
			s[sp] = in.val
			sp++
		case opVar:
			s[sp] = *in.ptr
			sp++
		case opArr:
			s[sp] = in.arr[idx]
			sp++
		case opAdd:
			sp--
			s[sp-1] += s[sp]
		case opSub:
			sp--
			s[sp-1] -= s[sp]
		case opMul:
			sp--
			s[sp-1] *= s[sp]
		case opDiv:
			sp--
			s[sp-1] /= s[sp]
		case opPow:
			sp--
			s[sp-1] = math.Pow(s[sp-1], s[sp])
		case opLT:
			sp--
			s[sp-1] = b2f(s[sp-1] < s[sp])
		case opGT:
			sp--
			s[sp-1] = b2f(s[sp-1] > s[sp])
		case opLE:
			sp--
			s[sp-1] = b2f(s[sp-1] <= s[sp])
		case opGE:
			sp--
			s[sp-1] = b2f(s[sp-1] >= s[sp])
		case opEQ:
			sp--
			s[sp-1] = b2f(s[sp-1] == s[sp])
		case opNE:
			sp--
			s[sp-1] = b2f(s[sp-1] != s[sp])
		case opAnd:
			sp--
			s[sp-1] = b2f(s[sp-1] != 0 && s[sp] != 0)
		case opOr:
			sp--
			s[sp-1] = b2f(s[sp-1] != 0 || s[sp] != 0)
		case opBinary:
			sp--
			s[sp-1] = in.fn2(s[sp-1], s[sp])
		case opUnary:
			s[sp-1] = in.fn1(s[sp-1])
		case opCall:
			sp -= in.argc
			r, err := in.fn.Call(s[sp : sp+in.argc : sp+in.argc])
			if err != nil {
				return nil, &EvalError{Func: in.name, Err: err}
			}
			s[sp] = r
			sp++
		case opBulk:
			sp -= in.argc
			r, err := in.bfn.CallBulk(idx, chunk, s[sp:sp+in.argc:sp+in.argc])
			if err != nil {
				return nil, &EvalError{Func: in.name, Err: err}
			}
			s[sp] = r
			sp++
		case opStr:
			sp -= in.argc
			r, err := in.sfn.CallStr(in.str, s[sp:sp+in.argc:sp+in.argc])
			if err != nil {
				return nil, &EvalError{Func: in.name, Err: err}
			}
			s[sp] = r
			sp++
		case opAssign:
			*in.ptr = s[sp-1]
		case opJz:
			sp--
			if s[sp] == 0 {
				pc = in.argc - 1
			}
		case opJmp:
			pc = in.argc - 1
		default:
			panic("formula: invalid opcode " + strconv.Itoa(int(in.op)))
		}
	}
	return s[:sp], nil
}
