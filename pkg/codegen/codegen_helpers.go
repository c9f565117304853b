package codegen

import (
	"fmt"

	"github.com/xplshn/gprev/pkg/ast"
	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/ir"
)

// framePointer returns the address of the frame at the given nesting level,
// reached from the current frame by following level differences static links
func (ctx *Context) framePointer(level int) ir.Expr {
	if level > ctx.cur.Level {
		panic(fmt.Sprintf("internal: frame at level %d is not visible from '%s'", level, ctx.cur.Label))
	}
	var fp ir.Expr = &ir.Temp{Temp: frame.FP}
	for i := 0; i < ctx.cur.Level-level; i++ {
		fp = &ir.Mem{Addr: fp}
	}
	return fp
}

func offset(base ir.Expr, off int64) ir.Expr {
	if off == 0 {
		return base
	}
	return &ir.BinOp{Op: ir.OpAdd, X: base, Y: &ir.Const{Value: off}}
}

// codegenLvalue returns the address of a storage location
func (ctx *Context) codegenLvalue(node *ast.Node) ir.Expr {
	switch node.Type {
	case ast.Ident:
		decl := node.Data.(ast.IdentNode).Decl
		switch a := ctx.layout.Access(decl).(type) {
		case *frame.GlobalAccess:
			return &ir.Name{Label: a.Label}
		case *frame.LocalAccess:
			return offset(ctx.framePointer(ctx.layout.Frame(a.Frame).Level), a.Offset)
		case *frame.ParamAccess:
			slot := offset(ctx.framePointer(ctx.layout.Frame(a.Frame).Level), a.Offset)
			if a.ByRef {
				return &ir.Mem{Addr: slot}
			}
			return slot
		}

	case ast.BinaryOp:
		d := node.Data.(ast.BinaryOpNode)
		if d.Op == ast.OpIndex {
			elem := node.Typ.Size()
			idx := ctx.codegenExpr(d.Right)
			return &ir.BinOp{Op: ir.OpAdd, X: ctx.codegenLvalue(d.Left), Y: &ir.BinOp{Op: ir.OpMul, X: idx, Y: &ir.Const{Value: elem}}}
		}

	case ast.Member:
		d := node.Data.(ast.MemberNode)
		off, _, _ := d.Expr.Typ.FieldOffset(d.Field)
		return offset(ctx.codegenLvalue(d.Expr), off)

	case ast.UnaryOp:
		d := node.Data.(ast.UnaryOpNode)
		if d.Op == ast.OpDeref {
			return ctx.codegenExpr(d.Expr)
		}

	case ast.Where:
		d := node.Data.(ast.WhereNode)
		ctx.codegenDefs(d.Defs)
		return ctx.codegenLvalue(d.Expr)
	}
	panic(fmt.Sprintf("internal: %s is not addressable", node.Type))
}

// load yields the value stored at an lvalue. Aggregates are represented by
// their address.
func (ctx *Context) load(node *ast.Node) ir.Expr {
	addr := ctx.codegenLvalue(node)
	if node.Typ.IsAggregate() {
		return addr
	}
	return &ir.Mem{Addr: addr}
}

func (ctx *Context) checkAssignable(dst *ast.Node) {
	if dst.Typ.IsAggregate() {
		panic(fmt.Sprintf("internal: assignment to aggregate of type %s", dst.Typ))
	}
}

func (ctx *Context) codegenAssign(dst, src *ast.Node) ir.Stmt {
	ctx.checkAssignable(dst)
	return &ir.Move{Dst: &ir.Mem{Addr: ctx.codegenLvalue(dst)}, Src: ctx.codegenExpr(src)}
}

// codegenAssignExpr lowers an assignment whose value is used. The target
// address is computed before the source, as in codegenAssign.
func (ctx *Context) codegenAssignExpr(dst, src *ast.Node) ir.Expr {
	ctx.checkAssignable(dst)
	addr, t := ctx.newTemp(), ctx.newTemp()
	return &ir.ESeq{
		Stmt: ir.Seqs(
			&ir.Move{Dst: addr, Src: ctx.codegenLvalue(dst)},
			&ir.Move{Dst: t, Src: ctx.codegenExpr(src)},
			&ir.Move{Dst: &ir.Mem{Addr: addr}, Src: t},
		),
		Expr: t,
	}
}

// codegenCall passes the static link hop count first, then the arguments in
// source order. Aggregate arguments are passed by address.
func (ctx *Context) codegenCall(node *ast.Node) ir.Expr {
	d := node.Data.(ast.FuncCallNode)
	callee := ctx.layout.FrameOf(d.Func)
	hops := ctx.cur.Level - (callee.Level - 1)
	args := make([]ir.Expr, 0, len(d.Args)+1)
	args = append(args, &ir.Const{Value: int64(hops)})
	for _, a := range d.Args {
		if a.Typ.IsAggregate() {
			args = append(args, ctx.codegenLvalue(a))
		} else {
			args = append(args, ctx.codegenExpr(a))
		}
	}
	return &ir.Call{Func: callee.Label, Args: args}
}

func (ctx *Context) codegenString(s string) ir.Expr {
	init := append([]byte(s), 0)
	size := (int64(len(init)) + frame.WordSize - 1) / frame.WordSize * frame.WordSize
	label := ctx.fctx.NewStringLabel()
	ctx.chunks = append(ctx.chunks, &ir.DataChunk{Label: label, Size: size, Init: init})
	return &ir.Name{Label: label}
}

func (ctx *Context) codegenIf(node *ast.Node) ir.Stmt {
	d := node.Data.(ast.IfNode)
	thenLabel, elseLabel := ctx.newLabel(), ctx.newLabel()
	cond := &ir.CJump{Cond: ctx.codegenExpr(d.Cond), True: thenLabel, False: elseLabel}

	if d.Else == nil {
		return ir.Seqs(
			cond,
			&ir.LabelStmt{Label: thenLabel},
			ctx.codegenStmt(d.Then),
			&ir.LabelStmt{Label: elseLabel},
		)
	}
	endLabel := ctx.newLabel()
	return ir.Seqs(
		cond,
		&ir.LabelStmt{Label: thenLabel},
		ctx.codegenStmt(d.Then),
		&ir.Jump{Target: endLabel},
		&ir.LabelStmt{Label: elseLabel},
		ctx.codegenStmt(d.Else),
		&ir.LabelStmt{Label: endLabel},
	)
}

// codegenCond lowers a valued if-then-else; both arms move into one temp
func (ctx *Context) codegenCond(node *ast.Node) ir.Expr {
	d := node.Data.(ast.IfNode)
	if d.Else == nil {
		panic("internal: conditional expression without else")
	}
	t := ctx.newTemp()
	thenLabel, elseLabel, endLabel := ctx.newLabel(), ctx.newLabel(), ctx.newLabel()
	return &ir.ESeq{
		Stmt: ir.Seqs(
			&ir.CJump{Cond: ctx.codegenExpr(d.Cond), True: thenLabel, False: elseLabel},
			&ir.LabelStmt{Label: thenLabel},
			&ir.Move{Dst: t, Src: ctx.codegenExpr(d.Then)},
			&ir.Jump{Target: endLabel},
			&ir.LabelStmt{Label: elseLabel},
			&ir.Move{Dst: t, Src: ctx.codegenExpr(d.Else)},
			&ir.LabelStmt{Label: endLabel},
		),
		Expr: t,
	}
}

func (ctx *Context) codegenWhile(node *ast.Node) ir.Stmt {
	d := node.Data.(ast.WhileNode)
	startLabel, bodyLabel, endLabel := ctx.newLabel(), ctx.newLabel(), ctx.newLabel()
	return ir.Seqs(
		&ir.LabelStmt{Label: startLabel},
		&ir.CJump{Cond: ctx.codegenExpr(d.Cond), True: bodyLabel, False: endLabel},
		&ir.LabelStmt{Label: bodyLabel},
		ctx.codegenStmt(d.Body),
		&ir.Jump{Target: startLabel},
		&ir.LabelStmt{Label: endLabel},
	)
}

// codegenFor lowers {for i = lo, hi, step: body} to the while shape with the
// condition i < hi and the increment appended to the body
func (ctx *Context) codegenFor(node *ast.Node) ir.Stmt {
	d := node.Data.(ast.ForNode)
	counter := func() ir.Expr { return &ir.Mem{Addr: ctx.codegenLvalue(d.Counter)} }
	startLabel, bodyLabel, endLabel := ctx.newLabel(), ctx.newLabel(), ctx.newLabel()
	return ir.Seqs(
		&ir.Move{Dst: counter(), Src: ctx.codegenExpr(d.Lo)},
		&ir.LabelStmt{Label: startLabel},
		&ir.CJump{Cond: &ir.BinOp{Op: ir.OpLt, X: counter(), Y: ctx.codegenExpr(d.Hi)}, True: bodyLabel, False: endLabel},
		&ir.LabelStmt{Label: bodyLabel},
		ctx.codegenStmt(d.Body),
		&ir.Move{Dst: counter(), Src: &ir.BinOp{Op: ir.OpAdd, X: counter(), Y: ctx.codegenExpr(d.Step)}},
		&ir.Jump{Target: startLabel},
		&ir.LabelStmt{Label: endLabel},
	)
}
