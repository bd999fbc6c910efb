package driver

import (
	"fmt"
	"io"

	"github.com/gorse-io/goatc/internal/ast"
	"modernc.org/strutil"
)

// DumpAST prints decls as an indented tree to w, for `-fdump-ast`. Indent
// tracking goes through modernc.org/strutil's IndentFormatter, which
// treats the "%i"/"%u" verbs in a Fprintf call as indent/unindent markers
// rather than argument placeholders, the same pretty-printer idiom
// modernc.org/cc's own AST dumper uses.
func DumpAST(w io.Writer, decls []*ast.Node) error {
	f := strutil.IndentFormatter(w, "    ")
	for _, n := range decls {
		if err := dumpNode(f, n); err != nil {
			return err
		}
	}
	return nil
}

func dumpNode(f io.Writer, n *ast.Node) error {
	if n == nil {
		_, err := fmt.Fprintf(f, "<nil>\n")
		return err
	}
	switch n.Kind {
	case ast.FuncDef:
		if _, err := fmt.Fprintf(f, "FuncDef %s%i\n", n.FName); err != nil {
			return err
		}
		for _, p := range n.Params {
			if err := dumpNode(f, p); err != nil {
				return err
			}
		}
		if err := dumpNode(f, n.Body); err != nil {
			return err
		}
		_, err := fmt.Fprintf(f, "%u")
		return err
	case ast.Decl:
		_, err := fmt.Fprintf(f, "Decl %s\n", n.DeclVar.VarName)
		return err
	case ast.CompoundStmt:
		if _, err := fmt.Fprintf(f, "CompoundStmt%i\n"); err != nil {
			return err
		}
		for _, s := range n.Stmts {
			if err := dumpNode(f, s); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(f, "%u")
		return err
	case ast.LocalVar:
		_, err := fmt.Fprintf(f, "LocalVar %s\n", n.VarName)
		return err
	case ast.GlobalVar:
		_, err := fmt.Fprintf(f, "GlobalVar %s\n", n.VarName)
		return err
	case ast.Binary:
		if _, err := fmt.Fprintf(f, "Binary op=%d%i\n", n.Op); err != nil {
			return err
		}
		if err := dumpNode(f, n.Left); err != nil {
			return err
		}
		if err := dumpNode(f, n.Right); err != nil {
			return err
		}
		_, err := fmt.Fprintf(f, "%u")
		return err
	case ast.Return:
		if _, err := fmt.Fprintf(f, "Return%i\n"); err != nil {
			return err
		}
		if err := dumpNode(f, n.Operand); err != nil {
			return err
		}
		_, err := fmt.Fprintf(f, "%u")
		return err
	case ast.Literal:
		_, err := fmt.Fprintf(f, "Literal ival=%d fval=%g\n", n.IVal, n.FVal)
		return err
	default:
		_, err := fmt.Fprintf(f, "Node kind=%d\n", n.Kind)
		return err
	}
}
