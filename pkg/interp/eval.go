package interp

import (
	"bytes"
	"fmt"

	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/ir"
	"github.com/xplshn/gprev/pkg/linear"
)

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (m *Machine) eval(act *activation, e ir.Expr) (int64, error) {
	switch e := e.(type) {
	case *ir.Const:
		return e.Value, nil

	case *ir.Name:
		addr, ok := m.prog.Data[e.Label]
		if !ok {
			return 0, m.fault(UnresolvedLabel, "no data at %s", e.Label)
		}
		return addr, nil

	case *ir.Temp:
		if e.Temp == frame.FP {
			return m.fp, nil
		}
		return act.temps[e.Temp], nil

	case *ir.Mem:
		addr, err := m.eval(act, e.Addr)
		if err != nil {
			return 0, err
		}
		return m.load(addr)

	case *ir.BinOp:
		x, err := m.eval(act, e.X)
		if err != nil {
			return 0, err
		}
		y, err := m.eval(act, e.Y)
		if err != nil {
			return 0, err
		}
		return m.binop(e.Op, x, y)

	case *ir.UnOp:
		x, err := m.eval(act, e.X)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ir.OpNeg:
			return -x, nil
		case ir.OpNot:
			return boolValue(x == 0), nil
		}
		panic(fmt.Sprintf("internal: unary operator %s", e.Op))

	case *ir.Call:
		args := make([]int64, len(e.Args))
		for i, a := range e.Args {
			v, err := m.eval(act, a)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return m.call(e.Func, args)

	case *ir.ESeq:
		block, ok := m.blocks[e]
		if !ok {
			block = linear.NewFunction(act.fn.Frame, linear.Flatten(e.Stmt))
			m.blocks[e] = block
		}
		// faults after the block belong to the enclosing instruction
		loc := m.loc
		if err := m.exec(act, block); err != nil {
			return 0, err
		}
		m.loc = loc
		return m.eval(act, e.Expr)
	}
	panic(fmt.Sprintf("internal: cannot evaluate %T", e))
}

func (m *Machine) binop(op ir.Op, x, y int64) (int64, error) {
	switch op {
	case ir.OpAdd:
		return x + y, nil
	case ir.OpSub:
		return x - y, nil
	case ir.OpMul:
		return x * y, nil
	case ir.OpDiv, ir.OpMod:
		if y == 0 {
			return 0, m.fault(DivideByZero, "%d %s 0", x, op)
		}
		if op == ir.OpDiv {
			return x / y, nil
		}
		return x % y, nil
	case ir.OpAnd:
		return boolValue(x != 0 && y != 0), nil
	case ir.OpOr:
		return boolValue(x != 0 || y != 0), nil
	case ir.OpEq:
		return boolValue(x == y), nil
	case ir.OpNe:
		return boolValue(x != y), nil
	case ir.OpLt:
		return boolValue(x < y), nil
	case ir.OpGt:
		return boolValue(x > y), nil
	case ir.OpLe:
		return boolValue(x <= y), nil
	case ir.OpGe:
		return boolValue(x >= y), nil
	}
	panic(fmt.Sprintf("internal: binary operator %s", op))
}

// call dispatches to a compiled function, or to a builtin when the label
// belongs to an external declaration. args[0] is the static link hop count.
func (m *Machine) call(label *frame.Label, args []int64) (int64, error) {
	fn, ok := m.prog.Funcs[label]
	if !ok {
		if b, ok := builtins[label.Name]; ok {
			m.stats.Calls++
			return b(m, args[1:])
		}
		return 0, m.fault(UnresolvedLabel, "call to %s", label)
	}
	staticLink := m.fp
	for i := int64(0); i < args[0]; i++ {
		var err error
		if staticLink, err = m.load(staticLink); err != nil {
			return 0, err
		}
	}
	return m.invoke(fn, staticLink, args[1:])
}

type builtin func(m *Machine, args []int64) (int64, error)

var builtins = map[string]builtin{
	"put_int": func(m *Machine, args []int64) (int64, error) {
		_, err := fmt.Fprint(m.opts.Output, args[0])
		return 0, err
	},
	"put_str": func(m *Machine, args []int64) (int64, error) {
		s, err := m.cString(args[0])
		if err != nil {
			return 0, err
		}
		_, err = m.opts.Output.Write(s)
		return 0, err
	},
	"put_nl": func(m *Machine, args []int64) (int64, error) {
		_, err := fmt.Fprintln(m.opts.Output)
		return 0, err
	},
}

// IsBuiltin reports whether calls to name are served by the machine
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func (m *Machine) cString(addr int64) ([]byte, error) {
	if addr < 0 || addr >= int64(len(m.mem)) {
		return nil, m.fault(BadAddress, "string at %d", addr)
	}
	end := bytes.IndexByte(m.mem[addr:], 0)
	if end < 0 {
		return nil, m.fault(BadAddress, "unterminated string at %d", addr)
	}
	return m.mem[addr : addr+int64(end)], nil
}
