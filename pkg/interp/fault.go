package interp

import "fmt"

// FaultKind classifies a runtime fault
type FaultKind int

const (
	BadAddress FaultKind = iota
	UnresolvedLabel
	DivideByZero
	StackOverflow
)

var faultNames = [...]string{
	BadAddress:      "bad address",
	UnresolvedLabel: "unresolved label",
	DivideByZero:    "divide by zero",
	StackOverflow:   "stack overflow",
}

func (k FaultKind) String() string {
	if int(k) < len(faultNames) {
		return faultNames[k]
	}
	return fmt.Sprintf("FaultKind(%d)", int(k))
}

// Location is a program counter: a function and an instruction index in it
type Location struct {
	Function string
	Index    int
}

func (l Location) String() string { return fmt.Sprintf("%s+%d", l.Function, l.Index) }

// Fault is a fatal runtime error. Execution cannot continue after one.
type Fault struct {
	Kind     FaultKind
	Detail   string
	Location Location
	FP, SP   int64
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at %s (fp=%d sp=%d): %s", f.Kind, f.Location, f.FP, f.SP, f.Detail)
}

func (m *Machine) fault(kind FaultKind, format string, args ...interface{}) *Fault {
	m.state = Faulted
	return &Fault{Kind: kind, Detail: fmt.Sprintf(format, args...), Location: m.loc, FP: m.fp, SP: m.sp}
}
