package codegen

import (
	"fmt"

	"github.com/xplshn/gprev/pkg/ast"
	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/ir"
)

// Context carries the state of one tree IR generation
type Context struct {
	fctx   *frame.Context
	layout *frame.Layout
	chunks []ir.Chunk
	cur    *frame.Frame
}

func NewContext(fctx *frame.Context, layout *frame.Layout) *Context {
	return &Context{fctx: fctx, layout: layout}
}

// GenerateIR lowers the program into one CodeChunk per defined function and
// one DataChunk per global variable and string literal
func (ctx *Context) GenerateIR(prog *ast.Program) []ir.Chunk {
	ctx.codegenDefs(prog.Defs)
	return ctx.chunks
}

func (ctx *Context) newTemp() *ir.Temp      { return &ir.Temp{Temp: ctx.fctx.NewTemp()} }
func (ctx *Context) newLabel() *frame.Label { return ctx.fctx.NewLabel() }

func (ctx *Context) codegenDefs(defs []*ast.Node) {
	for _, def := range defs {
		switch def.Type {
		case ast.VarDecl:
			if g, ok := ctx.layout.Access(def).(*frame.GlobalAccess); ok {
				ctx.chunks = append(ctx.chunks, &ir.DataChunk{Label: g.Label, Size: g.Size})
			}
		case ast.FuncDecl:
			ctx.codegenFunc(def)
		}
	}
}

func (ctx *Context) codegenFunc(decl *ast.Node) {
	d := decl.Data.(ast.FuncDeclNode)
	if d.Body == nil {
		return
	}
	f := ctx.layout.FrameOf(decl)
	chunk := &ir.CodeChunk{Frame: f}
	ctx.chunks = append(ctx.chunks, chunk)

	saved := ctx.cur
	ctx.cur = f
	defer func() { ctx.cur = saved }()

	if decl.Typ.IsVoid() {
		chunk.Body = ctx.codegenStmt(d.Body)
		return
	}
	chunk.Body = &ir.Move{Dst: &ir.Temp{Temp: frame.RV}, Src: ctx.codegenExpr(d.Body)}
}

// codegenExpr lowers a node used for its value
func (ctx *Context) codegenExpr(node *ast.Node) ir.Expr {
	switch node.Type {
	case ast.Number:
		return &ir.Const{Value: node.Data.(ast.NumberNode).Value}

	case ast.Logical:
		if node.Data.(ast.LogicalNode).Value {
			return &ir.Const{Value: 1}
		}
		return &ir.Const{Value: 0}

	case ast.String:
		return ctx.codegenString(node.Data.(ast.StringNode).Value)

	case ast.Ident, ast.Member:
		return ctx.load(node)

	case ast.BinaryOp:
		d := node.Data.(ast.BinaryOpNode)
		switch d.Op {
		case ast.OpIndex:
			return ctx.load(node)
		case ast.OpAssign:
			return ctx.codegenAssignExpr(d.Left, d.Right)
		}
		return &ir.BinOp{Op: binaryOps[d.Op], X: ctx.codegenExpr(d.Left), Y: ctx.codegenExpr(d.Right)}

	case ast.UnaryOp:
		d := node.Data.(ast.UnaryOpNode)
		switch d.Op {
		case ast.OpPlus:
			return ctx.codegenExpr(d.Expr)
		case ast.OpNeg:
			return &ir.UnOp{Op: ir.OpNeg, X: ctx.codegenExpr(d.Expr)}
		case ast.OpNot:
			return &ir.UnOp{Op: ir.OpNot, X: ctx.codegenExpr(d.Expr)}
		case ast.OpAddr:
			return ctx.codegenLvalue(d.Expr)
		case ast.OpDeref:
			return ctx.load(node)
		}

	case ast.FuncCall:
		return ctx.codegenCall(node)

	case ast.Sequence:
		exprs := node.Data.(ast.SequenceNode).Exprs
		if len(exprs) == 0 {
			return &ir.Const{Value: 0}
		}
		last := exprs[len(exprs)-1]
		if last.Typ.IsVoid() {
			break
		}
		stmts := make([]ir.Stmt, 0, len(exprs)-1)
		for _, e := range exprs[:len(exprs)-1] {
			stmts = append(stmts, ctx.codegenStmt(e))
		}
		return &ir.ESeq{Stmt: ir.Seqs(stmts...), Expr: ctx.codegenExpr(last)}

	case ast.Where:
		d := node.Data.(ast.WhereNode)
		ctx.codegenDefs(d.Defs)
		return ctx.codegenExpr(d.Expr)

	case ast.If:
		if !node.Typ.IsVoid() {
			return ctx.codegenCond(node)
		}
	}

	if node.Typ.IsVoid() {
		return &ir.ESeq{Stmt: ctx.codegenStmt(node), Expr: &ir.Const{Value: 0}}
	}
	panic(fmt.Sprintf("internal: cannot generate value for %s", node.Type))
}

// codegenStmt lowers a node evaluated only for its effects
func (ctx *Context) codegenStmt(node *ast.Node) ir.Stmt {
	switch node.Type {
	case ast.Sequence:
		exprs := node.Data.(ast.SequenceNode).Exprs
		stmts := make([]ir.Stmt, 0, len(exprs))
		for _, e := range exprs {
			stmts = append(stmts, ctx.codegenStmt(e))
		}
		return &ir.Seq{Stmts: stmts}

	case ast.Where:
		d := node.Data.(ast.WhereNode)
		ctx.codegenDefs(d.Defs)
		return ctx.codegenStmt(d.Expr)

	case ast.BinaryOp:
		if d := node.Data.(ast.BinaryOpNode); d.Op == ast.OpAssign {
			return ctx.codegenAssign(d.Left, d.Right)
		}

	case ast.If:
		return ctx.codegenIf(node)

	case ast.While:
		return ctx.codegenWhile(node)

	case ast.For:
		return ctx.codegenFor(node)
	}
	return &ir.ExprStmt{X: ctx.codegenExpr(node)}
}

var binaryOps = map[ast.Op]ir.Op{
	ast.OpOr: ir.OpOr, ast.OpAnd: ir.OpAnd,
	ast.OpEq: ir.OpEq, ast.OpNe: ir.OpNe, ast.OpLe: ir.OpLe, ast.OpGe: ir.OpGe, ast.OpLt: ir.OpLt, ast.OpGt: ir.OpGt,
	ast.OpAdd: ir.OpAdd, ast.OpSub: ir.OpSub, ast.OpMul: ir.OpMul, ast.OpDiv: ir.OpDiv, ast.OpMod: ir.OpMod,
}
