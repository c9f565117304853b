package frame

import (
	"fmt"
	"io"
	"strings"

	"github.com/xplshn/gprev/pkg/ast"
)

// Dump writes the layout in a readable form: globals first, then each frame
// with the storage of its parameters and locals.
func Dump(w io.Writer, l *Layout) {
	for _, g := range l.Globals {
		fmt.Fprintf(w, "%-16s %s\n", g.Name(), l.accesses[g])
	}
	for _, f := range l.Frames {
		indent := strings.Repeat("  ", f.Level-1)
		kind := "fun"
		if f.External() {
			kind = "extern"
		}
		fmt.Fprintf(w, "%s%s %s level=%d size=%d link=+%d\n", indent, kind, f.Label, f.Level, f.Size, f.LinkOffset)
		d := f.Decl.Data.(ast.FuncDeclNode)
		for _, p := range d.Params {
			fmt.Fprintf(w, "%s  %-14s %s\n", indent, p.Name(), l.accesses[p])
		}
		if d.Body == nil {
			continue
		}
		ast.Walk(d.Body, func(n *ast.Node) bool {
			if n.Type == ast.FuncDecl {
				return false
			}
			if n.Type == ast.VarDecl {
				fmt.Fprintf(w, "%s  %-14s %s\n", indent, n.Name(), l.accesses[n])
			}
			return true
		})
	}
}
