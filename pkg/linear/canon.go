package linear

import (
	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/ir"
)

// canon rewrites tree IR so that no expression contains a statement. Calls
// are lifted to their own instruction unless they already sit directly under
// a MOVE into a temp or an EXP.
type canon struct {
	ctx *frame.Context
}

// commutes reports whether s can be moved before the evaluation of e without
// changing the result
func commutes(s ir.Stmt, e ir.Expr) bool {
	if isNop(s) {
		return true
	}
	switch e.(type) {
	case *ir.Const, *ir.Name:
		return true
	}
	return false
}

func isNop(s ir.Stmt) bool {
	if s == nil {
		return true
	}
	if seq, ok := s.(*ir.Seq); ok {
		for _, st := range seq.Stmts {
			if !isNop(st) {
				return false
			}
		}
		return true
	}
	return false
}

func (c *canon) seq(a, b ir.Stmt) ir.Stmt {
	switch {
	case isNop(a):
		return b
	case isNop(b):
		return a
	}
	return &ir.Seq{Stmts: []ir.Stmt{a, b}}
}

// reorder canonicalizes exprs left to right. The returned statement must run
// before the returned expressions are evaluated.
func (c *canon) reorder(exprs []ir.Expr) (ir.Stmt, []ir.Expr) {
	if len(exprs) == 0 {
		return nil, nil
	}
	first := exprs[0]
	if call, ok := first.(*ir.Call); ok {
		t := &ir.Temp{Temp: c.ctx.NewTemp()}
		first = &ir.ESeq{Stmt: &ir.Move{Dst: t, Src: call}, Expr: t}
	}
	s1, e1 := c.doExpr(first)
	s2, rest := c.reorder(exprs[1:])
	if commutes(s2, e1) {
		return c.seq(s1, s2), append([]ir.Expr{e1}, rest...)
	}
	t := &ir.Temp{Temp: c.ctx.NewTemp()}
	return c.seq(c.seq(s1, &ir.Move{Dst: t, Src: e1}), s2), append([]ir.Expr{t}, rest...)
}

func (c *canon) doExpr(e ir.Expr) (ir.Stmt, ir.Expr) {
	switch e := e.(type) {
	case *ir.Mem:
		s, es := c.reorder([]ir.Expr{e.Addr})
		return s, &ir.Mem{Addr: es[0]}
	case *ir.BinOp:
		s, es := c.reorder([]ir.Expr{e.X, e.Y})
		return s, &ir.BinOp{Op: e.Op, X: es[0], Y: es[1]}
	case *ir.UnOp:
		s, es := c.reorder([]ir.Expr{e.X})
		return s, &ir.UnOp{Op: e.Op, X: es[0]}
	case *ir.Call:
		s, es := c.reorder(e.Args)
		return s, &ir.Call{Func: e.Func, Args: es}
	case *ir.ESeq:
		s1 := c.doStmt(e.Stmt)
		s2, e2 := c.doExpr(e.Expr)
		return c.seq(s1, s2), e2
	}
	return nil, e
}

func (c *canon) doStmt(s ir.Stmt) ir.Stmt {
	switch s := s.(type) {
	case *ir.Seq:
		var out ir.Stmt
		for _, st := range s.Stmts {
			out = c.seq(out, c.doStmt(st))
		}
		return out

	case *ir.CJump:
		pre, es := c.reorder([]ir.Expr{s.Cond})
		return c.seq(pre, &ir.CJump{Cond: es[0], True: s.True, False: s.False})

	case *ir.ExprStmt:
		if call, ok := s.X.(*ir.Call); ok {
			pre, args := c.reorder(call.Args)
			return c.seq(pre, &ir.ExprStmt{X: &ir.Call{Func: call.Func, Args: args}})
		}
		pre, es := c.reorder([]ir.Expr{s.X})
		return c.seq(pre, &ir.ExprStmt{X: es[0]})

	case *ir.Move:
		switch dst := s.Dst.(type) {
		case *ir.Temp:
			if call, ok := s.Src.(*ir.Call); ok {
				pre, args := c.reorder(call.Args)
				return c.seq(pre, &ir.Move{Dst: dst, Src: &ir.Call{Func: call.Func, Args: args}})
			}
			pre, es := c.reorder([]ir.Expr{s.Src})
			return c.seq(pre, &ir.Move{Dst: dst, Src: es[0]})
		case *ir.Mem:
			pre, es := c.reorder([]ir.Expr{dst.Addr, s.Src})
			return c.seq(pre, &ir.Move{Dst: &ir.Mem{Addr: es[0]}, Src: es[1]})
		case *ir.ESeq:
			return c.doStmt(&ir.Seq{Stmts: []ir.Stmt{dst.Stmt, &ir.Move{Dst: dst.Expr, Src: s.Src}}})
		}
	}
	return s
}

// Flatten splices nested sequences into one instruction list
func Flatten(s ir.Stmt) []ir.Stmt {
	var out []ir.Stmt
	var walk func(ir.Stmt)
	walk = func(s ir.Stmt) {
		switch s := s.(type) {
		case nil:
		case *ir.Seq:
			for _, st := range s.Stmts {
				walk(st)
			}
		default:
			out = append(out, s)
		}
	}
	walk(s)
	return out
}
