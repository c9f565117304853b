// Package frame assigns storage to every declaration of a resolved program:
// nesting levels and activation record layouts for functions, labels for
// globals, and offsets for locals and parameters.
//
// Every frame follows one convention, shared with the interpreter's call
// sequence. Offsets are relative to the frame pointer, which is the lowest
// address of the record:
//
//	0                 static link
//	8 .. 8*n          parameters 1..n, one word each
//	8*(n+1) ..        locals, in declaration order
//	Size-8            caller's saved frame pointer
package frame

import (
	"fmt"

	"github.com/xplshn/gprev/pkg/ast"
)

const WordSize = ast.WordSize

// Label names a code or data location. Labels compare by identity.
type Label struct{ Name string }

func (l *Label) String() string { return l.Name }

// Temp is a virtual register local to one activation
type Temp int

const (
	FP Temp = iota // frame pointer
	RV             // return value
	firstFreeTemp
)

func (t Temp) String() string {
	switch t {
	case FP:
		return "FP"
	case RV:
		return "RV"
	}
	return fmt.Sprintf("T%d", int(t))
}

// Context hands out fresh labels and temps for one compilation. Label names
// are unique within a context: a name already handed out gets a "#n" suffix,
// and generated names skip over any taken by a declaration.
type Context struct {
	labelCount  int
	stringCount int
	tempCount   int
	taken       map[string]int
}

func NewContext() *Context {
	return &Context{tempCount: int(firstFreeTemp), taken: make(map[string]int)}
}

func (c *Context) claim(name string) *Label {
	if _, ok := c.taken[name]; !ok {
		c.taken[name] = 0
		return &Label{Name: name}
	}
	for {
		c.taken[name]++
		alt := fmt.Sprintf("%s#%d", name, c.taken[name])
		if _, ok := c.taken[alt]; !ok {
			c.taken[alt] = 0
			return &Label{Name: alt}
		}
	}
}

func (c *Context) fresh(prefix string, count *int) *Label {
	for {
		name := fmt.Sprintf("%s%d", prefix, *count)
		*count++
		if _, ok := c.taken[name]; !ok {
			return c.claim(name)
		}
	}
}

func (c *Context) NewLabel() *Label { return c.fresh("L", &c.labelCount) }

func (c *Context) NewStringLabel() *Label { return c.fresh("S", &c.stringCount) }

// NamedLabel returns a label for a declared name, renamed if it is taken
func (c *Context) NamedLabel(name string) *Label { return c.claim(name) }

func (c *Context) NewTemp() Temp {
	t := Temp(c.tempCount)
	c.tempCount++
	return t
}

// Frame describes the activation record of one function
type Frame struct {
	ID     int
	Parent int // -1 for top-level functions
	Level  int // 1 for top-level functions
	Label  *Label
	Decl   *ast.Node
	Params []*ParamAccess

	// LocalSize is the number of bytes taken by locals, including those
	// declared in nested where-scopes.
	LocalSize  int64
	Size       int64
	LinkOffset int64

	sealed bool
}

// External reports whether the function has no body to run
func (f *Frame) External() bool {
	return f.Decl.Data.(ast.FuncDeclNode).Body == nil
}

func (f *Frame) localBase() int64 { return WordSize * int64(len(f.Params)+1) }

func (f *Frame) allocLocal(size int64) int64 {
	if f.sealed {
		panic(fmt.Sprintf("internal: local allocated in sealed frame '%s'", f.Label))
	}
	off := f.localBase() + f.LocalSize
	f.LocalSize += size
	return off
}

func (f *Frame) seal() {
	f.LinkOffset = f.localBase() + f.LocalSize
	f.Size = f.LinkOffset + WordSize
	f.sealed = true
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s(level=%d size=%d)", f.Label, f.Level, f.Size)
}

// Access describes where a declared variable lives
type Access interface {
	isAccess()
	String() string
}

type GlobalAccess struct {
	Label *Label
	Size  int64
}

type LocalAccess struct {
	Frame  int
	Offset int64
	Size   int64
}

// ParamAccess is a parameter slot. When ByRef is set the slot holds the
// address of an aggregate argument rather than its value.
type ParamAccess struct {
	Frame  int
	Offset int64
	ByRef  bool
}

func (a *GlobalAccess) isAccess() {}
func (a *LocalAccess) isAccess()  {}
func (a *ParamAccess) isAccess()  {}

func (a *GlobalAccess) String() string { return fmt.Sprintf("global %s [%d]", a.Label, a.Size) }
func (a *LocalAccess) String() string {
	return fmt.Sprintf("local frame#%d +%d [%d]", a.Frame, a.Offset, a.Size)
}
func (a *ParamAccess) String() string {
	if a.ByRef {
		return fmt.Sprintf("param frame#%d +%d (ref)", a.Frame, a.Offset)
	}
	return fmt.Sprintf("param frame#%d +%d", a.Frame, a.Offset)
}
