package frame

import (
	"fmt"

	"github.com/xplshn/gprev/pkg/ast"
)

// Layout is the arena of frames plus the storage assigned to each
// declaration. It is built once and not modified afterwards.
type Layout struct {
	Frames   []*Frame
	Globals  []*ast.Node
	accesses map[*ast.Node]Access
	funcs    map[*ast.Node]*Frame
}

func (l *Layout) Frame(id int) *Frame { return l.Frames[id] }

// FrameOf returns the frame of a function declaration
func (l *Layout) FrameOf(fn *ast.Node) *Frame {
	f, ok := l.funcs[fn]
	if !ok {
		panic(fmt.Sprintf("internal: no frame for function '%s'", fn.Name()))
	}
	return f
}

// Access returns the storage of a variable or parameter declaration
func (l *Layout) Access(decl *ast.Node) Access {
	a, ok := l.accesses[decl]
	if !ok {
		panic(fmt.Sprintf("internal: no storage for '%s'", decl.Name()))
	}
	return a
}

// Level returns the nesting level of the frame owning an access; globals are
// at level 0
func (l *Layout) Level(a Access) int {
	switch a := a.(type) {
	case *LocalAccess:
		return l.Frames[a.Frame].Level
	case *ParamAccess:
		return l.Frames[a.Frame].Level
	}
	return 0
}

type builder struct {
	ctx    *Context
	layout *Layout
	cur    *Frame
}

// Build lays out every function and variable of the program in a single
// traversal
func Build(ctx *Context, prog *ast.Program) *Layout {
	b := &builder{
		ctx: ctx,
		layout: &Layout{
			accesses: make(map[*ast.Node]Access),
			funcs:    make(map[*ast.Node]*Frame),
		},
	}
	b.visitDefs(prog.Defs)
	return b.layout
}

func (b *builder) visitDefs(defs []*ast.Node) {
	// Frames are created before any body is visited so that mutually
	// recursive functions see each other's frame.
	for _, def := range defs {
		if def.Type == ast.FuncDecl {
			b.declareFunc(def)
		}
	}
	for _, def := range defs {
		switch def.Type {
		case ast.VarDecl:
			b.declareVar(def)
		case ast.FuncDecl:
			b.visitFunc(def)
		case ast.TypeDecl:
		default:
			panic(fmt.Sprintf("internal: unexpected %s among definitions", def.Type))
		}
	}
}

func (b *builder) declareVar(decl *ast.Node) {
	size := decl.Typ.Size()
	if b.cur == nil {
		b.layout.accesses[decl] = &GlobalAccess{Label: b.ctx.NamedLabel(decl.Name()), Size: size}
		b.layout.Globals = append(b.layout.Globals, decl)
		return
	}
	b.layout.accesses[decl] = &LocalAccess{Frame: b.cur.ID, Offset: b.cur.allocLocal(size), Size: size}
}

func (b *builder) declareFunc(decl *ast.Node) {
	if _, ok := b.layout.funcs[decl]; ok {
		panic(fmt.Sprintf("internal: function '%s' declared twice", decl.Name()))
	}
	f := &Frame{ID: len(b.layout.Frames), Parent: -1, Level: 1, Decl: decl}
	name := decl.Name()
	if b.cur != nil {
		f.Parent, f.Level = b.cur.ID, b.cur.Level+1
		name = b.cur.Label.Name + "." + name
	}
	f.Label = b.ctx.NamedLabel(name)

	d := decl.Data.(ast.FuncDeclNode)
	for i, p := range d.Params {
		pa := &ParamAccess{Frame: f.ID, Offset: WordSize * int64(i+1), ByRef: p.Typ.IsAggregate()}
		f.Params = append(f.Params, pa)
		b.layout.accesses[p] = pa
	}
	b.layout.Frames = append(b.layout.Frames, f)
	b.layout.funcs[decl] = f
}

func (b *builder) visitFunc(decl *ast.Node) {
	f := b.layout.funcs[decl]
	d := decl.Data.(ast.FuncDeclNode)
	if d.Body != nil {
		saved := b.cur
		b.cur = f
		b.visitExpr(d.Body)
		b.cur = saved
	}
	f.seal()
}

func (b *builder) visitExpr(n *ast.Node) {
	if n == nil {
		return
	}
	if n.Type == ast.Where {
		d := n.Data.(ast.WhereNode)
		b.visitDefs(d.Defs)
		b.visitExpr(d.Expr)
		return
	}
	for _, c := range n.Children() {
		b.visitExpr(c)
	}
}
