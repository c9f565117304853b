package ir

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Dump writes chunks as indented trees
func Dump(w io.Writer, chunks []Chunk) {
	for _, c := range chunks {
		switch c := c.(type) {
		case *CodeChunk:
			fmt.Fprintf(w, "CODE %s (level=%d size=%d)\n", c.Frame.Label, c.Frame.Level, c.Frame.Size)
			dumpStmt(w, c.Body, 1)
		case *DataChunk:
			fmt.Fprintf(w, "DATA %s [%d]", c.Label, c.Size)
			if len(c.Init) > 0 {
				fmt.Fprintf(w, " %q", printable(c.Init))
			}
			fmt.Fprintln(w)
		}
	}
}

func printable(b []byte) string {
	return strings.Map(func(r rune) rune {
		if r == 0 || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, string(b))
}

func dumpStmt(w io.Writer, s Stmt, depth int) {
	pad := strings.Repeat("  ", depth)
	switch s := s.(type) {
	case *Seq:
		fmt.Fprintf(w, "%sSEQ\n", pad)
		for _, st := range s.Stmts {
			dumpStmt(w, st, depth+1)
		}
	case *Move:
		fmt.Fprintf(w, "%sMOVE\n", pad)
		dumpExpr(w, s.Dst, depth+1)
		dumpExpr(w, s.Src, depth+1)
	case *ExprStmt:
		fmt.Fprintf(w, "%sEXP\n", pad)
		dumpExpr(w, s.X, depth+1)
	case *CJump:
		fmt.Fprintf(w, "%sCJUMP %s %s\n", pad, s.True, s.False)
		dumpExpr(w, s.Cond, depth+1)
	case *Jump:
		fmt.Fprintf(w, "%sJUMP %s\n", pad, s.Target)
	case *LabelStmt:
		fmt.Fprintf(w, "%sLABEL %s\n", pad, s.Label)
	}
}

func dumpExpr(w io.Writer, e Expr, depth int) {
	pad := strings.Repeat("  ", depth)
	switch e := e.(type) {
	case *Const, *Name, *Temp:
		fmt.Fprintf(w, "%s%s\n", pad, e)
	case *Mem:
		fmt.Fprintf(w, "%sMEM\n", pad)
		dumpExpr(w, e.Addr, depth+1)
	case *BinOp:
		fmt.Fprintf(w, "%sBINOP %s\n", pad, e.Op)
		dumpExpr(w, e.X, depth+1)
		dumpExpr(w, e.Y, depth+1)
	case *UnOp:
		fmt.Fprintf(w, "%sUNOP %s\n", pad, e.Op)
		dumpExpr(w, e.X, depth+1)
	case *Call:
		fmt.Fprintf(w, "%sCALL %s\n", pad, e.Func)
		for _, a := range e.Args {
			dumpExpr(w, a, depth+1)
		}
	case *ESeq:
		fmt.Fprintf(w, "%sESEQ\n", pad)
		dumpStmt(w, e.Stmt, depth+1)
		dumpExpr(w, e.Expr, depth+1)
	}
}
