// Package ast defines the resolved syntax tree handed to the back end. Every
// identifier already points at its declaration and every expression carries
// its semantic type.
package ast

import "fmt"

// NodeType defines the kind of a node in the tree
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	Logical
	String
	Ident
	BinaryOp
	UnaryOp
	Member
	FuncCall
	Sequence
	Where
	If
	While
	For

	// Declarations
	FuncDecl
	VarDecl
	ParDecl
	TypeDecl
)

var nodeTypeNames = [...]string{
	Number: "Number", Logical: "Logical", String: "String", Ident: "Ident",
	BinaryOp: "BinaryOp", UnaryOp: "UnaryOp", Member: "Member", FuncCall: "FuncCall",
	Sequence: "Sequence", Where: "Where", If: "If", While: "While", For: "For",
	FuncDecl: "FuncDecl", VarDecl: "VarDecl", ParDecl: "ParDecl", TypeDecl: "TypeDecl",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node represents a node in the resolved tree
type Node struct {
	Type NodeType
	Data interface{}
	Typ  *Type // semantic type; the result type for FuncDecl
}

// Op is a source-level operator
type Op int

const (
	OpOr Op = iota
	OpAnd
	OpEq
	OpNe
	OpLe
	OpGe
	OpLt
	OpGt
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpIndex
	OpAssign

	// Unary
	OpPlus
	OpNeg
	OpNot
	OpAddr
	OpDeref
)

var opNames = [...]string{
	OpOr: "|", OpAnd: "&", OpEq: "==", OpNe: "!=", OpLe: "<=", OpGe: ">=", OpLt: "<", OpGt: ">",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpIndex: "[]", OpAssign: "=",
	OpPlus: "+", OpNeg: "-", OpNot: "!", OpAddr: "^", OpDeref: "@",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// IsLogical reports whether the operator yields a logical value
func (o Op) IsLogical() bool { return o <= OpGt || o == OpNot }

// --- Node Data Structs ---
type NumberNode struct {
	Value int64
}

type LogicalNode struct {
	Value bool
}

type StringNode struct {
	Value string
}

type IdentNode struct {
	Name string
	Decl *Node
}

type BinaryOpNode struct {
	Op          Op
	Left, Right *Node
}

type UnaryOpNode struct {
	Op   Op
	Expr *Node
}

type MemberNode struct {
	Expr  *Node
	Field string
}

type FuncCallNode struct {
	Func *Node
	Args []*Node
}

type SequenceNode struct {
	Exprs []*Node
}

type WhereNode struct {
	Expr *Node
	Defs []*Node
}

type IfNode struct {
	Cond, Then, Else *Node
}

type WhileNode struct {
	Cond, Body *Node
}

type ForNode struct {
	Counter, Lo, Hi, Step, Body *Node
}

type FuncDeclNode struct {
	Name   string
	Params []*Node
	Body   *Node // nil for external functions
}

type VarDeclNode struct {
	Name string
}

type ParDeclNode struct {
	Name string
}

type TypeDeclNode struct {
	Name string
}

// Program is the root of a resolved compilation unit
type Program struct {
	Defs []*Node
}

// Name returns the declared name of a declaration node
func (n *Node) Name() string {
	switch d := n.Data.(type) {
	case FuncDeclNode:
		return d.Name
	case VarDeclNode:
		return d.Name
	case ParDeclNode:
		return d.Name
	case TypeDeclNode:
		return d.Name
	case IdentNode:
		return d.Name
	}
	return ""
}

// Children returns the direct sub-expressions and nested definitions of a
// node, in evaluation order
func (n *Node) Children() []*Node {
	var out []*Node
	add := func(ns ...*Node) {
		for _, c := range ns {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch d := n.Data.(type) {
	case BinaryOpNode:
		add(d.Left, d.Right)
	case UnaryOpNode:
		add(d.Expr)
	case MemberNode:
		add(d.Expr)
	case FuncCallNode:
		add(d.Args...)
	case SequenceNode:
		add(d.Exprs...)
	case WhereNode:
		add(d.Defs...)
		add(d.Expr)
	case IfNode:
		add(d.Cond, d.Then, d.Else)
	case WhileNode:
		add(d.Cond, d.Body)
	case ForNode:
		add(d.Counter, d.Lo, d.Hi, d.Step, d.Body)
	case FuncDeclNode:
		add(d.Params...)
		add(d.Body)
	}
	return out
}

// Walk visits n and every node below it in pre-order, stopping descent when
// fn returns false
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
