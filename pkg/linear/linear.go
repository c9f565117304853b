// Package linear turns tree IR into flat instruction lists and assigns every
// data chunk its place in memory.
package linear

import (
	"fmt"
	"io"

	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/ir"
)

// Function is the executable form of one code chunk
type Function struct {
	Frame  *frame.Frame
	Body   []ir.Stmt
	Labels map[*frame.Label]int
}

// Program is the output of linearization, indexed for the interpreter
type Program struct {
	Chunks   []ir.Chunk
	Funcs    map[*frame.Label]*Function
	ByName   map[string]*frame.Label
	Data     map[*frame.Label]int64
	DataSize int64
}

// NewFunction indexes the labels of an instruction list
func NewFunction(f *frame.Frame, body []ir.Stmt) *Function {
	fn := &Function{Frame: f, Body: body, Labels: make(map[*frame.Label]int)}
	for i, s := range body {
		if l, ok := s.(*ir.LabelStmt); ok {
			fn.Labels[l.Label] = i
		}
	}
	return fn
}

// Linearize canonicalizes every code chunk, replacing its body in place with
// a flat sequence, and lays out the data chunks
func Linearize(ctx *frame.Context, chunks []ir.Chunk) *Program {
	c := &canon{ctx: ctx}
	for _, ch := range chunks {
		if code, ok := ch.(*ir.CodeChunk); ok {
			code.Body = &ir.Seq{Stmts: Flatten(c.doStmt(code.Body))}
		}
	}
	return Index(chunks)
}

// Index builds the program tables without rewriting the chunks. Bodies that
// still contain ESEQ nodes remain executable by the interpreter.
func Index(chunks []ir.Chunk) *Program {
	p := &Program{
		Chunks: chunks,
		Funcs:  make(map[*frame.Label]*Function),
		ByName: make(map[string]*frame.Label),
		Data:   make(map[*frame.Label]int64),
	}
	for _, ch := range chunks {
		switch ch := ch.(type) {
		case *ir.CodeChunk:
			p.Funcs[ch.Frame.Label] = NewFunction(ch.Frame, Flatten(ch.Body))
		case *ir.DataChunk:
			p.Data[ch.Label] = p.DataSize
			p.DataSize += ch.Size
		}
		name := ch.ChunkLabel().Name
		if _, dup := p.ByName[name]; dup {
			panic(fmt.Sprintf("internal: label '%s' defined twice", name))
		}
		p.ByName[name] = ch.ChunkLabel()
	}
	return p
}

// Lookup finds a function by label name
func (p *Program) Lookup(name string) (*Function, bool) {
	l, ok := p.ByName[name]
	if !ok {
		return nil, false
	}
	fn, ok := p.Funcs[l]
	return fn, ok
}

// Image returns the initial contents of the data area
func (p *Program) Image() []byte {
	img := make([]byte, p.DataSize)
	for _, ch := range p.Chunks {
		if d, ok := ch.(*ir.DataChunk); ok {
			copy(img[p.Data[d.Label]:p.Data[d.Label]+d.Size], d.Init)
		}
	}
	return img
}

// Dump writes the data layout and the instructions of every function
func Dump(w io.Writer, p *Program) {
	for _, ch := range p.Chunks {
		switch ch := ch.(type) {
		case *ir.DataChunk:
			fmt.Fprintf(w, "%-12s @%-6d [%d]\n", ch.Label, p.Data[ch.Label], ch.Size)
		case *ir.CodeChunk:
			fn := p.Funcs[ch.Frame.Label]
			fmt.Fprintf(w, "%s: (level=%d size=%d)\n", ch.Frame.Label, ch.Frame.Level, ch.Frame.Size)
			for i, s := range fn.Body {
				if _, ok := s.(*ir.LabelStmt); ok {
					fmt.Fprintf(w, "%4d %s\n", i, s)
					continue
				}
				fmt.Fprintf(w, "%4d     %s\n", i, s)
			}
		}
	}
}
