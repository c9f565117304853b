// Package samples holds ready-made resolved programs. They are what a front
// end would hand to the back end, and serve as the driver's inputs.
package samples

import (
	"sort"

	"github.com/xplshn/gprev/pkg/ast"
)

type Sample struct {
	Name        string
	Description string
	Arg         int64 // default argument of _main
	Build       func() *ast.Program
}

var registry = map[string]Sample{}

func register(s Sample) { registry[s.Name] = s }

func Lookup(name string) (Sample, bool) {
	s, ok := registry[name]
	return s, ok
}

// All returns every sample sorted by name
func All() []Sample {
	out := make([]Sample, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// shorthands for building trees
var (
	integer = ast.TypeInteger
	logical = ast.TypeLogical
	num     = ast.NewNumber
	ref     = ast.NewIdent
	call    = ast.NewCall
	seq     = ast.NewSequence
	assign  = ast.NewAssign
	index   = ast.NewIndex
)

func bin(op ast.Op, l, r *ast.Node) *ast.Node { return ast.NewBinary(op, l, r) }

func add(l, r *ast.Node) *ast.Node { return bin(ast.OpAdd, l, r) }
func sub(l, r *ast.Node) *ast.Node { return bin(ast.OpSub, l, r) }
func mul(l, r *ast.Node) *ast.Node { return bin(ast.OpMul, l, r) }

func par(name string) *ast.Node   { return ast.NewParDecl(name, integer) }
func local(name string) *ast.Node { return ast.NewVarDecl(name, integer) }

// mainFunc declares _main(i:integer):integer with the body built by fn
func mainFunc(fn func(i *ast.Node) *ast.Node) *ast.Node {
	i := par("i")
	m := ast.NewFuncDecl("_main", integer, i)
	ast.SetBody(m, fn(i))
	return m
}

func init() {
	register(Sample{Name: "factorial", Description: "recursive factorial", Arg: 5, Build: factorial})
	register(Sample{Name: "arraysum", Description: "sum of a local array passed by address", Arg: 0, Build: arraySum})
	register(Sample{Name: "nested", Description: "non-local access two levels deep across recursion", Arg: 3, Build: nested})
	register(Sample{Name: "siblings", Description: "sibling functions with same-named locals", Arg: 7, Build: siblings})
	register(Sample{Name: "globals", Description: "global array filled by one function and summed by another", Arg: 3, Build: globals})
	register(Sample{Name: "divzero", Description: "division by zero inside a called function", Arg: 9, Build: divZero})
	register(Sample{Name: "while", Description: "counting loop", Arg: 5, Build: whileLoop})
	register(Sample{Name: "order", Description: "left-to-right evaluation of call arguments", Arg: 0, Build: order})
	register(Sample{Name: "hello", Description: "string literals and output builtins", Arg: 42, Build: hello})
	register(Sample{Name: "records", Description: "struct members reached through a pointer", Arg: 4, Build: records})
	register(Sample{Name: "primes", Description: "prime counting with logical operators", Arg: 30, Build: primes})
	register(Sample{Name: "runaway", Description: "unbounded recursion", Arg: 0, Build: runaway})
	register(Sample{Name: "wild", Description: "array index far outside memory", Arg: 1 << 40, Build: wild})
}

func factorial() *ast.Program {
	n := par("n")
	fact := ast.NewFuncDecl("fact", integer, n)
	ast.SetBody(fact, ast.NewCond(
		bin(ast.OpLe, ref(n), num(1)),
		num(1),
		mul(ref(n), call(fact, sub(ref(n), num(1)))),
	))
	return &ast.Program{Defs: []*ast.Node{
		fact,
		mainFunc(func(i *ast.Node) *ast.Node { return call(fact, ref(i)) }),
	}}
}

func arraySum() *ast.Program {
	vec := ast.ArrayOf(4, integer)

	v, t, j := ast.NewParDecl("v", vec), local("t"), local("j")
	sum := ast.NewFuncDecl("sum", integer, v)
	ast.SetBody(sum, ast.NewWhere(seq(
		assign(ref(t), num(0)),
		ast.NewFor(ref(j), num(0), num(4), num(1), assign(ref(t), add(ref(t), index(ref(v), ref(j))))),
		ref(t),
	), t, j))

	a := ast.NewVarDecl("a", vec)
	return &ast.Program{Defs: []*ast.Node{
		sum,
		mainFunc(func(i *ast.Node) *ast.Node {
			return ast.NewWhere(seq(
				assign(index(ref(a), num(0)), num(1)),
				assign(index(ref(a), num(1)), num(2)),
				assign(index(ref(a), num(2)), num(3)),
				assign(index(ref(a), num(3)), num(4)),
				call(sum, ref(a)),
			), a)
		}),
	}}
}

// nested: outer(x) = { (y = if x > 0 then outer(x-1) else 0; middle())
//
//	where var y; fun middle() = { inner() where fun inner() = x + y*10 } }
func nested() *ast.Program {
	x, y := par("x"), local("y")
	outer := ast.NewFuncDecl("outer", integer, x)
	middle := ast.NewFuncDecl("middle", integer)
	inner := ast.NewFuncDecl("inner", integer)

	ast.SetBody(inner, add(ref(x), mul(ref(y), num(10))))
	ast.SetBody(middle, ast.NewWhere(call(inner), inner))
	ast.SetBody(outer, ast.NewWhere(seq(
		assign(ref(y), ast.NewCond(bin(ast.OpGt, ref(x), num(0)), call(outer, sub(ref(x), num(1))), num(0))),
		call(middle),
	), y, middle))

	return &ast.Program{Defs: []*ast.Node{
		outer,
		mainFunc(func(i *ast.Node) *ast.Node { return call(outer, ref(i)) }),
	}}
}

func siblings() *ast.Program {
	ga, gx := par("a"), local("x")
	g := ast.NewFuncDecl("g", integer, ga)
	ast.SetBody(g, ast.NewWhere(seq(assign(ref(gx), add(ref(ga), num(100))), ref(gx)), gx))

	fa, fx := par("a"), local("x")
	f := ast.NewFuncDecl("f", integer, fa)
	ast.SetBody(f, ast.NewWhere(seq(
		assign(ref(fx), mul(ref(fa), num(2))),
		call(g, ref(fa)),
		ref(fx),
	), fx))

	return &ast.Program{Defs: []*ast.Node{
		f, g,
		mainFunc(func(i *ast.Node) *ast.Node {
			return add(mul(call(f, ref(i)), num(1000)), call(g, ref(i)))
		}),
	}}
}

func globals() *ast.Program {
	table := ast.NewVarDecl("table", ast.ArrayOf(5, integer))

	n, k := par("n"), local("k")
	fill := ast.NewFuncDecl("fill", ast.TypeVoid, n)
	ast.SetBody(fill, ast.NewWhere(
		ast.NewFor(ref(k), num(0), num(5), num(1), assign(index(ref(table), ref(k)), mul(ref(k), ref(n)))),
		k,
	))

	s, k2 := local("s"), local("k")
	total := ast.NewFuncDecl("total", integer)
	ast.SetBody(total, ast.NewWhere(seq(
		assign(ref(s), num(0)),
		ast.NewFor(ref(k2), num(0), num(5), num(1), assign(ref(s), add(ref(s), index(ref(table), ref(k2))))),
		ref(s),
	), s, k2))

	return &ast.Program{Defs: []*ast.Node{
		table, fill, total,
		mainFunc(func(i *ast.Node) *ast.Node { return seq(call(fill, ref(i)), call(total)) }),
	}}
}

func divZero() *ast.Program {
	guard := ast.NewVarDecl("guard", integer)
	a, b := par("a"), par("b")
	div := ast.NewFuncDecl("div", integer, a, b)
	ast.SetBody(div, bin(ast.OpDiv, ref(a), ref(b)))

	return &ast.Program{Defs: []*ast.Node{
		guard, div,
		mainFunc(func(i *ast.Node) *ast.Node {
			return seq(
				assign(ref(guard), num(42)),
				call(div, ref(i), sub(ref(i), ref(i))),
			)
		}),
	}}
}

func whileLoop() *ast.Program {
	n := local("n")
	return &ast.Program{Defs: []*ast.Node{
		mainFunc(func(i *ast.Node) *ast.Node {
			return ast.NewWhere(seq(
				assign(ref(n), num(0)),
				ast.NewWhile(bin(ast.OpLt, ref(n), ref(i)), assign(ref(n), add(ref(n), num(1)))),
				ref(n),
			), n)
		}),
	}}
}

func order() *ast.Program {
	log := ast.NewVarDecl("log", integer)
	mark := func(name string, digit int64) *ast.Node {
		fn := ast.NewFuncDecl(name, integer)
		ast.SetBody(fn, seq(assign(ref(log), add(mul(ref(log), num(10)), num(digit))), num(digit)))
		return fn
	}
	a, b := mark("a", 1), mark("b", 2)

	x, y := par("x"), par("y")
	pair := ast.NewFuncDecl("pair", integer, x, y)
	ast.SetBody(pair, add(mul(ref(x), num(10)), ref(y)))

	return &ast.Program{Defs: []*ast.Node{
		log, a, b, pair,
		mainFunc(func(i *ast.Node) *ast.Node {
			return seq(
				assign(ref(log), num(0)),
				add(mul(call(pair, call(a), call(b)), num(100)), ref(log)),
			)
		}),
	}}
}

func hello() *ast.Program {
	putStr := ast.NewFuncDecl("put_str", ast.TypeVoid, ast.NewParDecl("s", ast.TypeString))
	putInt := ast.NewFuncDecl("put_int", ast.TypeVoid, par("v"))
	putNl := ast.NewFuncDecl("put_nl", ast.TypeVoid)

	return &ast.Program{Defs: []*ast.Node{
		putStr, putInt, putNl,
		mainFunc(func(i *ast.Node) *ast.Node {
			return seq(
				call(putStr, ast.NewString("hello, world")),
				call(putNl),
				call(putInt, ref(i)),
				call(putNl),
				num(0),
			)
		}),
	}}
}

func records() *ast.Program {
	point := ast.StructOf(ast.Field{Name: "x", Typ: integer}, ast.Field{Name: "y", Typ: integer})
	point.Name = "point"
	p := ast.NewVarDecl("p", point)
	q := ast.NewVarDecl("q", ast.PointerTo(point))
	deref := func() *ast.Node { return ast.NewUnary(ast.OpDeref, ref(q)) }

	return &ast.Program{Defs: []*ast.Node{
		ast.NewTypeDecl("point", point),
		p,
		mainFunc(func(i *ast.Node) *ast.Node {
			return ast.NewWhere(seq(
				assign(ast.NewMember(ref(p), "x"), ref(i)),
				assign(ast.NewMember(ref(p), "y"), mul(ref(i), num(2))),
				assign(ref(q), ast.NewUnary(ast.OpAddr, ref(p))),
				assign(ast.NewMember(deref(), "y"), add(ast.NewMember(deref(), "y"), num(1))),
				add(ast.NewMember(ref(p), "x"), ast.NewMember(ref(p), "y")),
			), q)
		}),
	}}
}

func primes() *ast.Program {
	n, d, r := par("n"), local("d"), ast.NewVarDecl("r", logical)
	isPrime := ast.NewFuncDecl("isprime", logical, n)
	ast.SetBody(isPrime, ast.NewWhere(seq(
		assign(ref(d), num(2)),
		assign(ref(r), bin(ast.OpGe, ref(n), num(2))),
		ast.NewWhile(
			bin(ast.OpAnd, bin(ast.OpLe, mul(ref(d), ref(d)), ref(n)), ref(r)),
			seq(
				ast.NewIf(bin(ast.OpEq, bin(ast.OpMod, ref(n), ref(d)), num(0)), assign(ref(r), ast.NewLogical(false)), nil),
				assign(ref(d), add(ref(d), num(1))),
			),
		),
		ref(r),
	), d, r))

	c, k := local("c"), local("k")
	return &ast.Program{Defs: []*ast.Node{
		isPrime,
		mainFunc(func(i *ast.Node) *ast.Node {
			return ast.NewWhere(seq(
				assign(ref(c), num(0)),
				ast.NewFor(ref(k), num(0), ref(i), num(1),
					ast.NewIf(call(isPrime, ref(k)), assign(ref(c), add(ref(c), num(1))), nil)),
				ref(c),
			), c, k)
		}),
	}}
}

func runaway() *ast.Program {
	n := par("n")
	down := ast.NewFuncDecl("down", integer, n)
	ast.SetBody(down, call(down, add(ref(n), num(1))))
	return &ast.Program{Defs: []*ast.Node{
		down,
		mainFunc(func(i *ast.Node) *ast.Node { return call(down, ref(i)) }),
	}}
}

func wild() *ast.Program {
	a := ast.NewVarDecl("a", ast.ArrayOf(4, integer))
	return &ast.Program{Defs: []*ast.Node{
		mainFunc(func(i *ast.Node) *ast.Node { return ast.NewWhere(index(ref(a), ref(i)), a) }),
	}}
}
