package ir

import (
	"fmt"
	"strings"

	"github.com/xplshn/gprev/pkg/frame"
)

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpNeg
	OpNot
)

var opNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpAnd: "&", OpOr: "|",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpGt: ">", OpLe: "<=", OpGe: ">=", OpNeg: "neg", OpNot: "not",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Expr is a tree IR expression
type Expr interface {
	isExpr()
	String() string
}

type Const struct {
	Value int64
}

type Name struct {
	Label *frame.Label
}

type Temp struct {
	Temp frame.Temp
}

type Mem struct {
	Addr Expr
}

type BinOp struct {
	Op   Op
	X, Y Expr
}

type UnOp struct {
	Op Op
	X  Expr
}

type Call struct {
	Func *frame.Label
	Args []Expr
}

// ESeq runs Stmt for its effects and then yields Expr. It only occurs before
// linearization.
type ESeq struct {
	Stmt Stmt
	Expr Expr
}

func (e *Const) isExpr() {}
func (e *Name) isExpr()  {}
func (e *Temp) isExpr()  {}
func (e *Mem) isExpr()   {}
func (e *BinOp) isExpr() {}
func (e *UnOp) isExpr()  {}
func (e *Call) isExpr()  {}
func (e *ESeq) isExpr()  {}

func (e *Const) String() string { return fmt.Sprintf("CONST %d", e.Value) }
func (e *Name) String() string  { return "NAME " + e.Label.Name }
func (e *Temp) String() string  { return "TEMP " + e.Temp.String() }
func (e *Mem) String() string   { return "MEM(" + e.Addr.String() + ")" }
func (e *BinOp) String() string { return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y) }
func (e *UnOp) String() string  { return fmt.Sprintf("%s(%s)", e.Op, e.X) }
func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("CALL %s(%s)", e.Func, strings.Join(args, ", "))
}
func (e *ESeq) String() string { return fmt.Sprintf("ESEQ(%s; %s)", e.Stmt, e.Expr) }

// Stmt is a tree IR statement
type Stmt interface {
	isStmt()
	String() string
}

type ExprStmt struct {
	X Expr
}

// Move stores Src into Dst, which is either a *Temp or a *Mem
type Move struct {
	Dst, Src Expr
}

type Seq struct {
	Stmts []Stmt
}

// CJump branches to True when Cond is non-zero and to False otherwise
type CJump struct {
	Cond        Expr
	True, False *frame.Label
}

type Jump struct {
	Target *frame.Label
}

type LabelStmt struct {
	Label *frame.Label
}

func (s *ExprStmt) isStmt()  {}
func (s *Move) isStmt()      {}
func (s *Seq) isStmt()       {}
func (s *CJump) isStmt()     {}
func (s *Jump) isStmt()      {}
func (s *LabelStmt) isStmt() {}

func (s *ExprStmt) String() string  { return "EXP " + s.X.String() }
func (s *Move) String() string      { return fmt.Sprintf("MOVE %s <- %s", s.Dst, s.Src) }
func (s *CJump) String() string     { return fmt.Sprintf("CJUMP %s ? %s : %s", s.Cond, s.True, s.False) }
func (s *Jump) String() string      { return "JUMP " + s.Target.Name }
func (s *LabelStmt) String() string { return s.Label.Name + ":" }
func (s *Seq) String() string {
	parts := make([]string, len(s.Stmts))
	for i, st := range s.Stmts {
		parts[i] = st.String()
	}
	return "SEQ(" + strings.Join(parts, "; ") + ")"
}

// Seqs joins statements into one, dropping nils
func Seqs(stmts ...Stmt) Stmt {
	out := make([]Stmt, 0, len(stmts))
	for _, s := range stmts {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return &Seq{Stmts: out}
}

// Chunk is a unit of generated output
type Chunk interface {
	isChunk()
	ChunkLabel() *frame.Label
}

// CodeChunk holds the body of one function. Linearization replaces Body with
// a flat *Seq.
type CodeChunk struct {
	Frame *frame.Frame
	Body  Stmt
}

// DataChunk is a statically allocated block; bytes past len(Init) are zero
type DataChunk struct {
	Label *frame.Label
	Size  int64
	Init  []byte
}

func (c *CodeChunk) isChunk() {}
func (c *DataChunk) isChunk() {}

func (c *CodeChunk) ChunkLabel() *frame.Label { return c.Frame.Label }
func (c *DataChunk) ChunkLabel() *frame.Label { return c.Label }
