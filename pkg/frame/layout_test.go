package frame_test

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/gprev/pkg/ast"
	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/samples"
)

func build(t *testing.T, name string) (*ast.Program, *frame.Layout) {
	t.Helper()
	s, ok := samples.Lookup(name)
	if !ok {
		t.Fatalf("no sample %q", name)
	}
	prog := s.Build()
	return prog, frame.Build(frame.NewContext(), prog)
}

func funcsByName(l *frame.Layout) map[string]*frame.Frame {
	out := make(map[string]*frame.Frame)
	for _, f := range l.Frames {
		out[f.Label.Name] = f
	}
	return out
}

func TestNestingLevels(t *testing.T) {
	_, l := build(t, "nested")
	got := map[string]int{}
	for name, f := range funcsByName(l) {
		got[name] = f.Level
	}
	want := map[string]int{
		"outer":              1,
		"outer.middle":       2,
		"outer.middle.inner": 3,
		"_main":              1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}

	frames := funcsByName(l)
	if p := frames["outer.middle.inner"].Parent; p != frames["outer.middle"].ID {
		t.Errorf("inner's parent = %d, want middle (%d)", p, frames["outer.middle"].ID)
	}
	if p := frames["outer"].Parent; p != -1 {
		t.Errorf("outer's parent = %d, want -1", p)
	}
}

type span struct {
	name     string
	lo, size int64
}

// TestOffsetsFitAndDoNotOverlap checks every frame of every sample: each
// parameter and local lies within [0, size) and no two slots overlap,
// counting the static link and the saved frame pointer.
func TestOffsetsFitAndDoNotOverlap(t *testing.T) {
	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			prog := s.Build()
			l := frame.Build(frame.NewContext(), prog)

			spans := make(map[int][]span)
			for _, f := range l.Frames {
				spans[f.ID] = append(spans[f.ID],
					span{"<static link>", 0, frame.WordSize},
					span{"<saved fp>", f.LinkOffset, frame.WordSize})
			}
			for _, def := range prog.Defs {
				ast.Walk(def, func(n *ast.Node) bool {
					switch n.Type {
					case ast.VarDecl:
						if a, ok := l.Access(n).(*frame.LocalAccess); ok {
							spans[a.Frame] = append(spans[a.Frame], span{n.Name(), a.Offset, a.Size})
						}
					case ast.ParDecl:
						a := l.Access(n).(*frame.ParamAccess)
						spans[a.Frame] = append(spans[a.Frame], span{n.Name(), a.Offset, frame.WordSize})
					}
					return true
				})
			}

			for id, ss := range spans {
				f := l.Frame(id)
				sort.Slice(ss, func(i, j int) bool { return ss[i].lo < ss[j].lo })
				for i, sp := range ss {
					if sp.lo < 0 || sp.lo+sp.size > f.Size {
						t.Errorf("%s: %s at [%d,%d) outside frame of size %d", f.Label, sp.name, sp.lo, sp.lo+sp.size, f.Size)
					}
					if i > 0 && ss[i-1].lo+ss[i-1].size > sp.lo {
						t.Errorf("%s: %s overlaps %s", f.Label, sp.name, ss[i-1].name)
					}
				}
			}
		})
	}
}

func TestFrameConvention(t *testing.T) {
	_, l := build(t, "arraysum")
	frames := funcsByName(l)

	// _main(i) with local a: arr[4] integer
	main := frames["_main"]
	if main.Size != 8+8+32+8 {
		t.Errorf("_main size = %d, want 56", main.Size)
	}
	if main.LinkOffset != main.Size-frame.WordSize {
		t.Errorf("_main link offset = %d, want %d", main.LinkOffset, main.Size-frame.WordSize)
	}
	if got := main.Params[0].Offset; got != frame.WordSize {
		t.Errorf("first parameter offset = %d, want %d", got, frame.WordSize)
	}

	// sum(v: arr[4] integer) receives its argument by address
	sum := frames["sum"]
	if !sum.Params[0].ByRef {
		t.Errorf("aggregate parameter of sum is not passed by reference")
	}
	if sum.Size != 8+8+16+8 {
		t.Errorf("sum size = %d, want 40", sum.Size)
	}
}

func TestWhereLocalsBelongToEnclosingFunction(t *testing.T) {
	prog, l := build(t, "nested")
	outer := prog.Defs[0]
	if outer.Name() != "outer" {
		t.Fatalf("unexpected first definition %q", outer.Name())
	}
	where := outer.Data.(ast.FuncDeclNode).Body.Data.(ast.WhereNode)
	var y *ast.Node
	for _, d := range where.Defs {
		if d.Type == ast.VarDecl {
			y = d
		}
	}
	a, ok := l.Access(y).(*frame.LocalAccess)
	if !ok {
		t.Fatalf("y has %T, want *frame.LocalAccess", l.Access(y))
	}
	if a.Frame != l.FrameOf(outer).ID {
		t.Errorf("y lives in frame %d, want outer's frame %d", a.Frame, l.FrameOf(outer).ID)
	}
	if got := len(l.Frames); got != 4 {
		t.Errorf("%d frames, want 4 (where-clauses must not create frames)", got)
	}
}

func TestGlobals(t *testing.T) {
	prog, l := build(t, "globals")
	table := prog.Defs[0]
	g, ok := l.Access(table).(*frame.GlobalAccess)
	if !ok {
		t.Fatalf("table has %T, want *frame.GlobalAccess", l.Access(table))
	}
	if g.Label.Name != "table" || g.Size != 40 {
		t.Errorf("table = %s, want label table of 40 bytes", g)
	}
	if l.Level(g) != 0 {
		t.Errorf("global level = %d, want 0", l.Level(g))
	}
}

func TestExternalFunctionsGetFrames(t *testing.T) {
	_, l := build(t, "hello")
	f := funcsByName(l)["put_int"]
	if f == nil || !f.External() {
		t.Fatalf("put_int has no external frame")
	}
	if f.Level != 1 {
		t.Errorf("put_int level = %d, want 1", f.Level)
	}
}

func TestDump(t *testing.T) {
	_, l := build(t, "hello")
	var buf bytes.Buffer
	frame.Dump(&buf, l)
	for _, want := range []string{"extern put_str level=1 size=24", "fun _main level=1 size=24", "param frame#"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("dump lacks %q:\n%s", want, buf.String())
		}
	}
}

func labelNames(l *frame.Layout) map[string]int {
	names := make(map[string]int)
	for _, f := range l.Frames {
		names[f.Label.Name]++
	}
	for _, g := range l.Globals {
		names[l.Access(g).(*frame.GlobalAccess).Label.Name]++
	}
	return names
}

func TestLabelsAreDistinct(t *testing.T) {
	for _, s := range samples.All() {
		l := frame.Build(frame.NewContext(), s.Build())
		for name, n := range labelNames(l) {
			if n > 1 {
				t.Errorf("%s: label %s used %d times", s.Name, name, n)
			}
		}
	}
}

func TestSameNameInSiblingWheres(t *testing.T) {
	integer := ast.TypeInteger
	h1 := ast.NewFuncDecl("h", integer)
	ast.SetBody(h1, ast.NewNumber(1))
	h2 := ast.NewFuncDecl("h", integer)
	ast.SetBody(h2, ast.NewNumber(2))

	i := ast.NewParDecl("i", integer)
	main := ast.NewFuncDecl("_main", integer, i)
	ast.SetBody(main, ast.NewSequence(
		ast.NewWhere(ast.NewCall(h1), h1),
		ast.NewWhere(ast.NewCall(h2), h2),
	))

	l := frame.Build(frame.NewContext(), &ast.Program{Defs: []*ast.Node{main}})
	want := map[string]int{"_main": 1, "_main.h": 1, "_main.h#1": 1}
	if diff := cmp.Diff(want, labelNames(l)); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if l.FrameOf(h1).Label == l.FrameOf(h2).Label {
		t.Error("sibling functions share a label")
	}
}

func TestGeneratedLabelsSkipDeclaredNames(t *testing.T) {
	ctx := frame.NewContext()
	s0, l0 := ctx.NamedLabel("S0"), ctx.NamedLabel("L0")
	str, jump := ctx.NewStringLabel(), ctx.NewLabel()
	if str.Name != "S1" || jump.Name != "L1" {
		t.Errorf("generated %s and %s, want S1 and L1", str, jump)
	}
	if again := ctx.NamedLabel("S0"); again.Name != "S0#1" || again == s0 {
		t.Errorf("second S0 = %s, want S0#1", again)
	}
	if l0.Name != "L0" {
		t.Errorf("declared label renamed to %s", l0)
	}
}
