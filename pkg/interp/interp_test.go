package interp_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/gprev/pkg/ast"
	"github.com/xplshn/gprev/pkg/compiler"
	"github.com/xplshn/gprev/pkg/interp"
	"github.com/xplshn/gprev/pkg/ir"
	"github.com/xplshn/gprev/pkg/linear"
	"github.com/xplshn/gprev/pkg/samples"
)

type outcome struct {
	Return int64
	Fault  string
	Output string
	Digest uint64
}

func compile(t *testing.T, prog *ast.Program) *compiler.Unit {
	t.Helper()
	u, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return u
}

func compileSample(t *testing.T, name string) *compiler.Unit {
	t.Helper()
	s, ok := samples.Lookup(name)
	if !ok {
		t.Fatalf("no sample %q", name)
	}
	return compile(t, s.Build())
}

func execute(t *testing.T, p *linear.Program, opts interp.Options, arg int64) (outcome, *interp.Machine) {
	t.Helper()
	var out bytes.Buffer
	opts.Output = &out
	m, err := interp.New(p, opts)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	ret, err := m.Run(compiler.EntryName, arg)
	o := outcome{Return: ret, Output: out.String(), Digest: m.Digest()}
	var fault *interp.Fault
	if errors.As(err, &fault) {
		o.Fault = fault.Kind.String()
	} else if err != nil {
		t.Fatalf("run: %v", err)
	}
	return o, m
}

func TestSamples(t *testing.T) {
	tests := []struct {
		name   string
		ret    int64
		fault  string
		output string
	}{
		{name: "factorial", ret: 120},
		{name: "arraysum", ret: 10},
		{name: "nested", ret: 123},
		{name: "siblings", ret: 14107},
		{name: "globals", ret: 30},
		{name: "divzero", fault: interp.DivideByZero.String()},
		{name: "while", ret: 5},
		{name: "order", ret: 1212},
		{name: "hello", ret: 0, output: "hello, world\n42\n"},
		{name: "records", ret: 13},
		{name: "primes", ret: 10},
		{name: "runaway", fault: interp.StackOverflow.String()},
		{name: "wild", fault: interp.BadAddress.String()},
	}
	if len(tests) != len(samples.All()) {
		t.Fatalf("%d samples registered, %d tested", len(samples.All()), len(tests))
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := samples.Lookup(tt.name)
			u := compileSample(t, tt.name)

			got, m := execute(t, u.Linear, interp.Options{}, s.Arg)
			want := outcome{Return: tt.ret, Output: tt.output, Digest: got.Digest}
			wantState := interp.Halted
			if tt.fault != "" {
				want.Fault, wantState = tt.fault, interp.Faulted
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("linear run mismatch (-want +got):\n%s", diff)
			}
			if m.State() != wantState {
				t.Errorf("state = %s, want %s", m.State(), wantState)
			}

			tree, _ := execute(t, u.Tree, interp.Options{}, s.Arg)
			if diff := cmp.Diff(got, tree); diff != "" {
				t.Errorf("tree and linear runs differ (-linear +tree):\n%s", diff)
			}
		})
	}
}

func TestNestedRecursion(t *testing.T) {
	u := compileSample(t, "nested")
	for i, want := range []int64{0, 1, 12, 123, 1234} {
		got, _ := execute(t, u.Linear, interp.Options{}, int64(i))
		if got.Fault != "" || got.Return != want {
			t.Errorf("outer(%d) = %d (%s), want %d", i, got.Return, got.Fault, want)
		}
	}
}

func TestWhileIterations(t *testing.T) {
	u := compileSample(t, "while")
	for _, n := range []int64{-3, 0, 1, 17} {
		want := max(n, 0)
		got, _ := execute(t, u.Linear, interp.Options{}, n)
		if got.Return != want {
			t.Errorf("while(%d) = %d, want %d", n, got.Return, want)
		}
	}
}

func TestFactorial(t *testing.T) {
	u := compileSample(t, "factorial")
	got, m := execute(t, u.Linear, interp.Options{}, 10)
	if got.Return != 3628800 {
		t.Errorf("10! = %d, want 3628800", got.Return)
	}
	st := m.Stats()
	if st.Calls != 11 || st.MaxDepth != 11 {
		t.Errorf("calls=%d depth=%d, want 11 and 11", st.Calls, st.MaxDepth)
	}
	if st.Instructions == 0 || st.PeakStack == 0 {
		t.Errorf("statistics not collected: %+v", st)
	}
}

func TestFaultKeepsEarlierStores(t *testing.T) {
	u := compileSample(t, "divzero")
	for _, p := range []*linear.Program{u.Linear, u.Tree} {
		m, err := interp.New(p, interp.Options{})
		if err != nil {
			t.Fatal(err)
		}
		_, err = m.Run(compiler.EntryName, 9)
		var fault *interp.Fault
		if !errors.As(err, &fault) || fault.Kind != interp.DivideByZero {
			t.Fatalf("err = %v, want a divide by zero fault", err)
		}
		if fault.Location.Function != "div" {
			t.Errorf("fault in %s, want div", fault.Location.Function)
		}
		addr, ok := m.AddressOf("guard")
		if !ok {
			t.Fatal("guard has no address")
		}
		if v, err := m.Word(addr); err != nil || v != 42 {
			t.Errorf("guard = %d (%v), want 42", v, err)
		}
	}
}

func TestStackOverflowBySize(t *testing.T) {
	u := compileSample(t, "runaway")
	got, m := execute(t, u.Linear, interp.Options{MemorySize: 1024, MaxDepth: 1 << 20}, 0)
	if got.Fault != interp.StackOverflow.String() {
		t.Errorf("fault = %q, want stack overflow", got.Fault)
	}
	// 1024 bytes hold 42 frames of 24 bytes
	if d := m.Stats().MaxDepth; d != 42 {
		t.Errorf("reached depth %d, want 42", d)
	}
}

func TestStackOverflowByDepth(t *testing.T) {
	u := compileSample(t, "runaway")
	_, m := execute(t, u.Linear, interp.Options{MaxDepth: 100}, 0)
	if d := m.Stats().MaxDepth; d != 100 {
		t.Errorf("reached depth %d, want 100", d)
	}
}

func TestFaultLocation(t *testing.T) {
	u := compileSample(t, "wild")
	m, _ := interp.New(u.Linear, interp.Options{})
	_, err := m.Run(compiler.EntryName, 1<<40)
	var fault *interp.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want a fault", err)
	}
	want := interp.Location{Function: "_main", Index: 0}
	if diff := cmp.Diff(want, fault.Location); diff != "" {
		t.Errorf("location mismatch (-want +got):\n%s", diff)
	}
	if fault.Kind != interp.BadAddress {
		t.Errorf("kind = %s, want bad address", fault.Kind)
	}
	if fault.FP >= int64(interp.DefaultMemorySize) || fault.FP != fault.SP {
		t.Errorf("fp=%d sp=%d, want both inside _main's frame", fault.FP, fault.SP)
	}
}

func TestUnresolvedExternal(t *testing.T) {
	launch := ast.NewFuncDecl("launch", ast.TypeVoid)
	i := ast.NewParDecl("i", ast.TypeInteger)
	main := ast.NewFuncDecl("_main", ast.TypeInteger, i)
	ast.SetBody(main, ast.NewSequence(ast.NewCall(launch), ast.NewIdent(i)))

	u := compile(t, &ast.Program{Defs: []*ast.Node{launch, main}})
	got, _ := execute(t, u.Linear, interp.Options{}, 1)
	if got.Fault != interp.UnresolvedLabel.String() {
		t.Errorf("fault = %q, want unresolved label", got.Fault)
	}
}

func TestRunOnlyOnce(t *testing.T) {
	u := compileSample(t, "factorial")
	m, _ := interp.New(u.Linear, interp.Options{})
	if _, err := m.Run(compiler.EntryName, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Run(compiler.EntryName, 3); !errors.Is(err, interp.ErrAlreadyRun) {
		t.Errorf("second run: err = %v, want ErrAlreadyRun", err)
	}
}

func TestMemoryTooSmall(t *testing.T) {
	u := compileSample(t, "globals")
	if _, err := interp.New(u.Linear, interp.Options{MemorySize: 32}); err == nil {
		t.Error("accepted a memory smaller than the data area")
	}
}

func TestMissingEntry(t *testing.T) {
	u := compileSample(t, "factorial")
	m, _ := interp.New(u.Linear, interp.Options{})
	_, err := m.Run("main", 0)
	var fault *interp.Fault
	if !errors.As(err, &fault) || fault.Kind != interp.UnresolvedLabel {
		t.Errorf("err = %v, want an unresolved label fault", err)
	}
}

func TestTrace(t *testing.T) {
	u := compileSample(t, "while")
	var trace bytes.Buffer
	_, m := execute(t, u.Linear, interp.Options{Trace: &trace}, 2)
	lines := bytes.Count(trace.Bytes(), []byte("\n"))
	if int64(lines) != m.Stats().Instructions {
		t.Errorf("%d trace lines for %d instructions", lines, m.Stats().Instructions)
	}
}

func TestBuiltins(t *testing.T) {
	for _, name := range []string{"put_int", "put_str", "put_nl"} {
		if !interp.IsBuiltin(name) {
			t.Errorf("%s is not a builtin", name)
		}
	}
	if interp.IsBuiltin("_main") {
		t.Error("_main is a builtin")
	}
}

func TestGlobalNamedLikeStringLiteral(t *testing.T) {
	integer := ast.TypeInteger
	g := ast.NewVarDecl("S0", integer)
	putStr := ast.NewFuncDecl("put_str", ast.TypeVoid, ast.NewParDecl("s", ast.TypeString))
	i := ast.NewParDecl("i", integer)
	main := ast.NewFuncDecl("_main", integer, i)
	ast.SetBody(main, ast.NewSequence(
		ast.NewAssign(ast.NewIdent(g), ast.NewNumber(99)),
		ast.NewCall(putStr, ast.NewString("hi")),
		ast.NewIdent(g),
	))

	u := compile(t, &ast.Program{Defs: []*ast.Node{g, putStr, main}})
	for _, p := range []*linear.Program{u.Linear, u.Tree} {
		got, m := execute(t, p, interp.Options{}, 0)
		if got.Return != 99 || got.Output != "hi" {
			t.Errorf("returned %d and printed %q, want 99 and hi", got.Return, got.Output)
		}
		addr, ok := m.AddressOf("S0")
		if !ok {
			t.Fatal("S0 has no address")
		}
		if v, err := m.Word(addr); err != nil || v != 99 {
			t.Errorf("S0 = %d (%v), want 99", v, err)
		}
	}
}

func TestSiblingFunctionsWithOneName(t *testing.T) {
	integer := ast.TypeInteger
	h1 := ast.NewFuncDecl("h", integer)
	ast.SetBody(h1, ast.NewNumber(1))
	h2 := ast.NewFuncDecl("h", integer)
	ast.SetBody(h2, ast.NewNumber(2))
	i := ast.NewParDecl("i", integer)
	main := ast.NewFuncDecl("_main", integer, i)
	ast.SetBody(main, ast.NewBinary(ast.OpAdd,
		ast.NewBinary(ast.OpMul, ast.NewWhere(ast.NewCall(h1), h1), ast.NewNumber(10)),
		ast.NewWhere(ast.NewCall(h2), h2),
	))

	u := compile(t, &ast.Program{Defs: []*ast.Node{main}})
	for _, p := range []*linear.Program{u.Linear, u.Tree} {
		if got, _ := execute(t, p, interp.Options{}, 0); got.Return != 12 {
			t.Errorf("_main = %d (%s), want 12", got.Return, got.Fault)
		}
	}
}

// Both assignment forms compute the target address before the source.
func TestAssignmentOrder(t *testing.T) {
	integer := ast.TypeInteger
	log := ast.NewVarDecl("log", integer)
	tbl := ast.NewVarDecl("tbl", ast.ArrayOf(3, integer))
	mark := func(name string, digit int64) *ast.Node {
		fn := ast.NewFuncDecl(name, integer)
		ast.SetBody(fn, ast.NewSequence(
			ast.NewAssign(ast.NewIdent(log), ast.NewBinary(ast.OpAdd,
				ast.NewBinary(ast.OpMul, ast.NewIdent(log), ast.NewNumber(10)), ast.NewNumber(digit))),
			ast.NewNumber(digit),
		))
		return fn
	}
	a, b := mark("a", 1), mark("b", 2)
	slot := func() *ast.Node { return ast.NewIndex(ast.NewIdent(tbl), ast.NewCall(a)) }

	x := ast.NewVarDecl("x", integer)
	i := ast.NewParDecl("i", integer)
	main := ast.NewFuncDecl("_main", integer, i)
	ast.SetBody(main, ast.NewWhere(ast.NewSequence(
		ast.NewAssign(ast.NewIdent(log), ast.NewNumber(0)),
		ast.NewAssign(slot(), ast.NewCall(b)),
		ast.NewAssign(ast.NewIdent(x), ast.NewAssign(slot(), ast.NewCall(b))),
		ast.NewBinary(ast.OpAdd, ast.NewBinary(ast.OpMul, ast.NewIdent(log), ast.NewNumber(10)), ast.NewIdent(x)),
	), x))

	u := compile(t, &ast.Program{Defs: []*ast.Node{log, tbl, a, b, main}})
	for _, p := range []*linear.Program{u.Linear, u.Tree} {
		if got, _ := execute(t, p, interp.Options{}, 0); got.Return != 12122 {
			t.Errorf("_main = %d (%s), want 12122", got.Return, got.Fault)
		}
	}
}

func TestTreeFaultAfterBlock(t *testing.T) {
	integer := ast.TypeInteger
	x := ast.NewVarDecl("x", integer)
	i := ast.NewParDecl("i", integer)
	main := ast.NewFuncDecl("_main", integer, i)
	block := ast.NewSequence(
		ast.NewAssign(ast.NewIdent(x), ast.NewNumber(1)),
		ast.NewAssign(ast.NewIdent(x), ast.NewNumber(2)),
		ast.NewIdent(i),
	)
	ast.SetBody(main, ast.NewWhere(ast.NewBinary(ast.OpDiv, block, ast.NewNumber(0)), x))

	u := compile(t, &ast.Program{Defs: []*ast.Node{main}})
	m, _ := interp.New(u.Tree, interp.Options{})
	_, err := m.Run(compiler.EntryName, 7)
	var fault *interp.Fault
	if !errors.As(err, &fault) || fault.Kind != interp.DivideByZero {
		t.Fatalf("err = %v, want a divide by zero fault", err)
	}
	fn, _ := u.Tree.Lookup(compiler.EntryName)
	if fault.Location.Function != compiler.EntryName || fault.Location.Index >= len(fn.Body) {
		t.Fatalf("fault at %v", fault.Location)
	}
	// the location names the instruction holding the division
	mv, ok := fn.Body[fault.Location.Index].(*ir.Move)
	if !ok {
		t.Fatalf("fault at %s, want the division", fn.Body[fault.Location.Index])
	}
	if bin, ok := mv.Src.(*ir.BinOp); !ok || bin.Op != ir.OpDiv {
		t.Errorf("fault at %s, want the division", mv)
	}
}
