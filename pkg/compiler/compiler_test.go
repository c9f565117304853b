package compiler

import (
	"errors"
	"testing"

	"github.com/xplshn/gprev/pkg/ast"
	"github.com/xplshn/gprev/pkg/samples"
)

func mainWith(params ...*ast.Node) *ast.Node {
	m := ast.NewFuncDecl(EntryName, ast.TypeInteger, params...)
	ast.SetBody(m, ast.NewNumber(0))
	return m
}

func TestCheckEntry(t *testing.T) {
	integer := func() *ast.Node { return ast.NewParDecl("i", ast.TypeInteger) }
	tests := []struct {
		name string
		defs []*ast.Node
		ok   bool
	}{
		{"valid", []*ast.Node{mainWith(integer())}, true},
		{"missing", []*ast.Node{ast.NewVarDecl(EntryName, ast.TypeInteger)}, false},
		{"external", []*ast.Node{ast.NewFuncDecl(EntryName, ast.TypeInteger, integer())}, false},
		{"no parameters", []*ast.Node{mainWith()}, false},
		{"two parameters", []*ast.Node{mainWith(integer(), integer())}, false},
		{"logical parameter", []*ast.Node{mainWith(ast.NewParDecl("b", ast.TypeLogical))}, false},
		{"defined twice", []*ast.Node{mainWith(integer()), mainWith(integer())}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := CheckEntry(&ast.Program{Defs: tt.defs})
			if tt.ok {
				if err != nil || entry != tt.defs[0] {
					t.Errorf("CheckEntry = %v, %v; want the first definition", entry, err)
				}
				return
			}
			if !errors.Is(err, ErrEntry) {
				t.Errorf("err = %v, want ErrEntry", err)
			}
		})
	}
}

func TestNestedMainIsNotAnEntry(t *testing.T) {
	i := ast.NewParDecl("i", ast.TypeInteger)
	f := ast.NewFuncDecl("f", ast.TypeInteger, i)
	ast.SetBody(f, ast.NewWhere(ast.NewNumber(0), mainWith(ast.NewParDecl("j", ast.TypeInteger))))
	if _, err := New(&ast.Program{Defs: []*ast.Node{f}}); !errors.Is(err, ErrEntry) {
		t.Errorf("err = %v, want ErrEntry", err)
	}
}

func TestCompileStages(t *testing.T) {
	s, _ := samples.Lookup("factorial")
	u, err := New(s.Build())
	if err != nil {
		t.Fatal(err)
	}
	if u.Entry.Name() != EntryName {
		t.Errorf("entry = %s", u.Entry.Name())
	}
	u.LayOut()
	if len(u.Layout.Frames) != 2 {
		t.Errorf("%d frames, want 2", len(u.Layout.Frames))
	}
	u.Generate()
	if len(u.Chunks) != 2 || u.Tree == nil {
		t.Fatalf("%d chunks, tree %v", len(u.Chunks), u.Tree)
	}
	u.Linearize()
	for _, name := range []string{"fact", EntryName} {
		if _, ok := u.Linear.Lookup(name); !ok {
			t.Errorf("%s missing from the linear program", name)
		}
	}
}

func TestCompileAllSamples(t *testing.T) {
	for _, s := range samples.All() {
		u, err := Compile(s.Build())
		if err != nil {
			t.Errorf("%s: %v", s.Name, err)
			continue
		}
		if u.Linear == nil || u.Tree == nil {
			t.Errorf("%s: missing program", s.Name)
		}
	}
}
