package extract

import "fmt"

// Syntax tags which language a Selector is written in.
type Syntax int

const (
	// SyntaxCSS selects HTML nodes with a CSS selector group.
	SyntaxCSS Syntax = iota + 1
	// SyntaxKeyPath navigates JSON with dot-separated keys and indexes.
	SyntaxKeyPath
)

func (s Syntax) String() string {
	switch s {
	case SyntaxCSS:
		return "css"
	case SyntaxKeyPath:
		return "path"
	default:
		return fmt.Sprintf("syntax(%d)", int(s))
	}
}

// Selector picks the table-shaped part of a document. It is a plain value.
type Selector struct {
	Syntax Syntax
	Expr   string
}

// CSS returns a CSS selector.
func CSS(expr string) Selector { return Selector{Syntax: SyntaxCSS, Expr: expr} }

// KeyPath returns a JSON key-path selector such as "data.items" or
// "pages.*.rows". An empty path selects the document root.
func KeyPath(expr string) Selector { return Selector{Syntax: SyntaxKeyPath, Expr: expr} }

func (s Selector) String() string {
	return s.Syntax.String() + ":" + s.Expr
}
