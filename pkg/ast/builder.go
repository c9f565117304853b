package ast

import "fmt"

// The constructors below produce already resolved nodes: identifiers link to
// their declaration and every expression gets its semantic type.

func NewNumber(v int64) *Node {
	return &Node{Type: Number, Data: NumberNode{Value: v}, Typ: TypeInteger}
}

func NewLogical(v bool) *Node {
	return &Node{Type: Logical, Data: LogicalNode{Value: v}, Typ: TypeLogical}
}

func NewString(s string) *Node {
	return &Node{Type: String, Data: StringNode{Value: s}, Typ: TypeString}
}

func NewVarDecl(name string, typ *Type) *Node {
	return &Node{Type: VarDecl, Data: VarDeclNode{Name: name}, Typ: typ}
}

func NewParDecl(name string, typ *Type) *Node {
	return &Node{Type: ParDecl, Data: ParDeclNode{Name: name}, Typ: typ}
}

func NewTypeDecl(name string, typ *Type) *Node {
	return &Node{Type: TypeDecl, Data: TypeDeclNode{Name: name}, Typ: typ}
}

// NewFuncDecl declares a function without a body. Use SetBody to define it
// once the body, which may refer to the function itself, is built.
func NewFuncDecl(name string, result *Type, params ...*Node) *Node {
	for _, p := range params {
		if p.Type != ParDecl {
			panic(fmt.Sprintf("internal: parameter of '%s' is a %s", name, p.Type))
		}
	}
	return &Node{Type: FuncDecl, Data: FuncDeclNode{Name: name, Params: params}, Typ: result}
}

// SetBody attaches the body expression of a function declaration
func SetBody(fn, body *Node) {
	d := fn.Data.(FuncDeclNode)
	d.Body = body
	fn.Data = d
}

// NewIdent references a variable or parameter declaration
func NewIdent(decl *Node) *Node {
	if decl.Type != VarDecl && decl.Type != ParDecl {
		panic(fmt.Sprintf("internal: '%s' is not a variable", decl.Name()))
	}
	return &Node{Type: Ident, Data: IdentNode{Name: decl.Name(), Decl: decl}, Typ: decl.Typ}
}

func NewBinary(op Op, left, right *Node) *Node {
	var typ *Type
	switch {
	case op == OpIndex:
		typ = left.Typ.Base
	case op == OpAssign:
		typ = left.Typ
	case op.IsLogical():
		typ = TypeLogical
	default:
		typ = TypeInteger
	}
	return &Node{Type: BinaryOp, Data: BinaryOpNode{Op: op, Left: left, Right: right}, Typ: typ}
}

func NewUnary(op Op, expr *Node) *Node {
	var typ *Type
	switch op {
	case OpNot:
		typ = TypeLogical
	case OpAddr:
		typ = PointerTo(expr.Typ)
	case OpDeref:
		typ = expr.Typ.Base
	default:
		typ = TypeInteger
	}
	return &Node{Type: UnaryOp, Data: UnaryOpNode{Op: op, Expr: expr}, Typ: typ}
}

func NewIndex(arr, idx *Node) *Node  { return NewBinary(OpIndex, arr, idx) }
func NewAssign(dst, src *Node) *Node { return NewBinary(OpAssign, dst, src) }

func NewMember(expr *Node, field string) *Node {
	_, typ, ok := expr.Typ.FieldOffset(field)
	if !ok {
		panic(fmt.Sprintf("internal: type %s has no field '%s'", expr.Typ, field))
	}
	return &Node{Type: Member, Data: MemberNode{Expr: expr, Field: field}, Typ: typ}
}

func NewCall(fn *Node, args ...*Node) *Node {
	return &Node{Type: FuncCall, Data: FuncCallNode{Func: fn, Args: args}, Typ: fn.Typ}
}

// NewSequence builds (e1; ...; en), whose value is the value of en
func NewSequence(exprs ...*Node) *Node {
	typ := TypeVoid
	if len(exprs) > 0 {
		typ = exprs[len(exprs)-1].Typ
	}
	return &Node{Type: Sequence, Data: SequenceNode{Exprs: exprs}, Typ: typ}
}

// NewWhere builds {expr where defs}
func NewWhere(expr *Node, defs ...*Node) *Node {
	return &Node{Type: Where, Data: WhereNode{Expr: expr, Defs: defs}, Typ: expr.Typ}
}

// NewIf builds a statement-like conditional; els may be nil
func NewIf(cond, then, els *Node) *Node {
	return &Node{Type: If, Data: IfNode{Cond: cond, Then: then, Else: els}, Typ: TypeVoid}
}

// NewCond builds a conditional expression whose value is that of the taken arm
func NewCond(cond, then, els *Node) *Node {
	return &Node{Type: If, Data: IfNode{Cond: cond, Then: then, Else: els}, Typ: then.Typ}
}

func NewWhile(cond, body *Node) *Node {
	return &Node{Type: While, Data: WhileNode{Cond: cond, Body: body}, Typ: TypeVoid}
}

// NewFor builds {for counter = lo, hi, step: body}
func NewFor(counter, lo, hi, step, body *Node) *Node {
	return &Node{Type: For, Data: ForNode{Counter: counter, Lo: lo, Hi: hi, Step: step, Body: body}, Typ: TypeVoid}
}
