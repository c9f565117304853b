// Package interp executes linearized (or tree form) IR over a flat byte
// memory. Global data occupies the bottom of memory, starting at address 0,
// and the call stack grows down from the top.
package interp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/ir"
	"github.com/xplshn/gprev/pkg/linear"
)

const (
	DefaultMemorySize = 1 << 20
	DefaultMaxDepth   = 4096
)

type State int

const (
	Running State = iota
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Options struct {
	MemorySize int64
	MaxDepth   int
	Output     io.Writer // destination of the put_* builtins
	Trace      io.Writer // when set, every executed instruction is logged
}

type Stats struct {
	Instructions int64
	Calls        int64
	MaxDepth     int
	PeakStack    int64
}

// Machine is the state of one execution. It is not safe for concurrent use.
type Machine struct {
	prog    *linear.Program
	opts    Options
	mem     []byte
	fp, sp  int64
	depth   int
	loc     Location
	state   State
	started bool
	stats   Stats
	blocks  map[*ir.ESeq]*linear.Function
}

// activation holds the temps of one function invocation
type activation struct {
	fn    *linear.Function
	temps map[frame.Temp]int64
}

var ErrAlreadyRun = errors.New("machine has already run")

func New(prog *linear.Program, opts Options) (*Machine, error) {
	if opts.MemorySize == 0 {
		opts.MemorySize = DefaultMemorySize
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.MemorySize < prog.DataSize {
		return nil, fmt.Errorf("memory size %d is smaller than the data area (%d bytes)", opts.MemorySize, prog.DataSize)
	}
	m := &Machine{
		prog:   prog,
		opts:   opts,
		mem:    make([]byte, opts.MemorySize),
		fp:     opts.MemorySize,
		sp:     opts.MemorySize,
		blocks: make(map[*ir.ESeq]*linear.Function),
	}
	copy(m.mem, prog.Image())
	return m, nil
}

func (m *Machine) State() State   { return m.state }
func (m *Machine) Stats() Stats   { return m.stats }
func (m *Machine) Memory() []byte { return m.mem }

// Digest hashes the whole memory image
func (m *Machine) Digest() uint64 { return xxhash.Sum64(m.mem) }

// Run calls the entry function with arg as its only parameter and returns
// its result. A runtime fault is returned as a *Fault.
func (m *Machine) Run(entry string, arg int64) (int64, error) {
	if m.started {
		return 0, ErrAlreadyRun
	}
	m.started = true
	m.state = Running

	fn, ok := m.prog.Lookup(entry)
	if !ok {
		return 0, m.fault(UnresolvedLabel, "entry function '%s' not found", entry)
	}
	ret, err := m.invoke(fn, 0, []int64{arg})
	if err != nil {
		return 0, err
	}
	m.state = Halted
	return ret, nil
}

// Word reads the word stored at addr
func (m *Machine) Word(addr int64) (int64, error) { return m.load(addr) }

// AddressOf returns the address of a data label
func (m *Machine) AddressOf(name string) (int64, bool) {
	l, ok := m.prog.ByName[name]
	if !ok {
		return 0, false
	}
	addr, ok := m.prog.Data[l]
	return addr, ok
}

func (m *Machine) load(addr int64) (int64, error) {
	if addr < 0 || addr > int64(len(m.mem))-frame.WordSize {
		return 0, m.fault(BadAddress, "load from %d", addr)
	}
	return int64(binary.LittleEndian.Uint64(m.mem[addr:])), nil
}

func (m *Machine) store(addr, v int64) error {
	if addr < 0 || addr > int64(len(m.mem))-frame.WordSize {
		return m.fault(BadAddress, "store to %d", addr)
	}
	binary.LittleEndian.PutUint64(m.mem[addr:], uint64(v))
	return nil
}

// invoke runs fn in a new frame. The frame is laid out as the frame package
// describes: static link, parameters, locals, then the caller's frame
// pointer.
func (m *Machine) invoke(fn *linear.Function, staticLink int64, args []int64) (int64, error) {
	f := fn.Frame
	if m.depth >= m.opts.MaxDepth {
		return 0, m.fault(StackOverflow, "call depth limit %d reached calling %s", m.opts.MaxDepth, f.Label)
	}
	newFP := m.sp - f.Size
	if newFP < m.prog.DataSize {
		return 0, m.fault(StackOverflow, "frame of %s (%d bytes) does not fit", f.Label, f.Size)
	}
	if len(args) != len(f.Params) {
		panic(fmt.Sprintf("internal: %s takes %d arguments, got %d", f.Label, len(f.Params), len(args)))
	}

	if err := m.store(newFP, staticLink); err != nil {
		return 0, err
	}
	for i, a := range args {
		if err := m.store(newFP+f.Params[i].Offset, a); err != nil {
			return 0, err
		}
	}
	if err := m.store(newFP+f.LinkOffset, m.fp); err != nil {
		return 0, err
	}

	callerLoc := m.loc
	m.fp, m.sp = newFP, newFP
	m.depth++
	m.stats.Calls++
	if m.depth > m.stats.MaxDepth {
		m.stats.MaxDepth = m.depth
	}
	if used := m.opts.MemorySize - m.sp; used > m.stats.PeakStack {
		m.stats.PeakStack = used
	}

	act := &activation{fn: fn, temps: make(map[frame.Temp]int64)}
	if err := m.exec(act, fn); err != nil {
		return 0, err
	}

	savedFP, err := m.load(m.fp + f.LinkOffset)
	if err != nil {
		return 0, err
	}
	m.sp = m.fp + f.Size
	m.fp = savedFP
	m.depth--
	m.loc = callerLoc
	return act.temps[frame.RV], nil
}

// exec runs an instruction list until control falls off its end
func (m *Machine) exec(act *activation, fn *linear.Function) error {
	name := act.fn.Frame.Label.Name
	for pc := 0; pc < len(fn.Body); {
		s := fn.Body[pc]
		m.loc = Location{Function: name, Index: pc}
		m.stats.Instructions++
		if m.opts.Trace != nil {
			fmt.Fprintf(m.opts.Trace, "%-24s fp=%-8d sp=%-8d %s\n", m.loc, m.fp, m.sp, s)
		}

		switch s := s.(type) {
		case *ir.LabelStmt:
			pc++

		case *ir.Jump:
			target, err := m.resolve(fn, s.Target)
			if err != nil {
				return err
			}
			pc = target

		case *ir.CJump:
			v, err := m.eval(act, s.Cond)
			if err != nil {
				return err
			}
			label := s.False
			if v != 0 {
				label = s.True
			}
			target, err := m.resolve(fn, label)
			if err != nil {
				return err
			}
			pc = target

		case *ir.Move:
			if err := m.move(act, s); err != nil {
				return err
			}
			pc++

		case *ir.ExprStmt:
			if _, err := m.eval(act, s.X); err != nil {
				return err
			}
			pc++

		default:
			panic(fmt.Sprintf("internal: unexpected %T in instruction list", s))
		}
	}
	return nil
}

func (m *Machine) resolve(fn *linear.Function, l *frame.Label) (int, error) {
	target, ok := fn.Labels[l]
	if !ok {
		return 0, m.fault(UnresolvedLabel, "jump to %s", l)
	}
	return target, nil
}

func (m *Machine) move(act *activation, s *ir.Move) error {
	switch dst := s.Dst.(type) {
	case *ir.Temp:
		if dst.Temp == frame.FP {
			panic("internal: move into the frame pointer")
		}
		v, err := m.eval(act, s.Src)
		if err != nil {
			return err
		}
		act.temps[dst.Temp] = v
		return nil
	case *ir.Mem:
		addr, err := m.eval(act, dst.Addr)
		if err != nil {
			return err
		}
		v, err := m.eval(act, s.Src)
		if err != nil {
			return err
		}
		return m.store(addr, v)
	}
	panic(fmt.Sprintf("internal: move into %T", s.Dst))
}
