// Package compiler drives the back end: entry point validation, storage
// layout, tree IR generation and linearization.
package compiler

import (
	"errors"
	"fmt"

	"github.com/xplshn/gprev/pkg/ast"
	"github.com/xplshn/gprev/pkg/codegen"
	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/ir"
	"github.com/xplshn/gprev/pkg/linear"
)

// EntryName is the function execution starts from
const EntryName = "_main"

// ErrEntry reports a missing or malformed entry function
var ErrEntry = errors.New("invalid entry function")

// Unit holds every intermediate result of one compilation
type Unit struct {
	Program *ast.Program
	Entry   *ast.Node
	Context *frame.Context
	Layout  *frame.Layout
	Chunks  []ir.Chunk
	Tree    *linear.Program // tree IR, indexed but not canonicalized
	Linear  *linear.Program
}

// CheckEntry finds the entry function among the top-level definitions. It
// must be defined, and take exactly one integer parameter.
func CheckEntry(prog *ast.Program) (*ast.Node, error) {
	var entry *ast.Node
	for _, def := range prog.Defs {
		if def.Type != ast.FuncDecl || def.Name() != EntryName {
			continue
		}
		if entry != nil {
			return nil, fmt.Errorf("%w: '%s' is defined more than once", ErrEntry, EntryName)
		}
		entry = def
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: no top-level function '%s'", ErrEntry, EntryName)
	}
	d := entry.Data.(ast.FuncDeclNode)
	if d.Body == nil {
		return nil, fmt.Errorf("%w: '%s' has no body", ErrEntry, EntryName)
	}
	if len(d.Params) != 1 {
		return nil, fmt.Errorf("%w: '%s' takes %d parameters, want 1", ErrEntry, EntryName, len(d.Params))
	}
	if p := d.Params[0]; p.Typ == nil || p.Typ.Kind != ast.TYPE_INTEGER {
		return nil, fmt.Errorf("%w: parameter '%s' of '%s' is %s, want integer", ErrEntry, p.Name(), EntryName, p.Typ)
	}
	return entry, nil
}

// New validates the entry function and prepares a compilation. No code is
// generated when the entry function is invalid.
func New(prog *ast.Program) (*Unit, error) {
	entry, err := CheckEntry(prog)
	if err != nil {
		return nil, err
	}
	return &Unit{Program: prog, Entry: entry, Context: frame.NewContext()}, nil
}

func (u *Unit) LayOut() {
	u.Layout = frame.Build(u.Context, u.Program)
}

func (u *Unit) Generate() {
	u.Chunks = codegen.NewContext(u.Context, u.Layout).GenerateIR(u.Program)
	u.Tree = linear.Index(u.Chunks)
}

func (u *Unit) Linearize() {
	u.Linear = linear.Linearize(u.Context, u.Chunks)
}

// Compile runs every stage
func Compile(prog *ast.Program) (*Unit, error) {
	u, err := New(prog)
	if err != nil {
		return nil, err
	}
	u.LayOut()
	u.Generate()
	u.Linearize()
	return u, nil
}
