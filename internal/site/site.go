// Package site describes recognized codegen sites. The set of site kinds is closed:
// every Site is one of the concrete types in this package, and consumers switch over
// them exhaustively.
package site

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jscodegen/go-codegen/internal/syntax"
)

// Kind identifies which syntactic shape a site takes.
type Kind uint8

const (
	// None is the zero Kind; no Site reports it.
	None Kind = 0

	// ProgramMarker is a marker comment leading the first statement of a file.
	ProgramMarker Kind = 1

	// IdentifierCall is codegen(...).
	IdentifierCall Kind = 2

	// IdentifierTag is codegen`...`.
	IdentifierTag Kind = 3

	// IdentifierJSX is <codegen>{...}</codegen>.
	IdentifierJSX Kind = 4

	// IdentifierImportCall is codegen.require(...).
	IdentifierImportCall Kind = 5

	// ImportDeclarationMarker is an import whose source carries a marker comment.
	ImportDeclarationMarker Kind = 6
)

func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case ProgramMarker:
		return "ProgramMarker"
	case IdentifierCall:
		return "IdentifierCall"
	case IdentifierTag:
		return "IdentifierTag"
	case IdentifierJSX:
		return "IdentifierJSX"
	case IdentifierImportCall:
		return "IdentifierImportCall"
	case ImportDeclarationMarker:
		return "ImportDeclarationMarker"
	default:
		return "Unknown"
	}
}

// Directive is a parsed marker comment.
type Directive struct {
	Keyword string
	Text    string // trimmed comment value
	Args    string // argument list source without the surrounding parentheses
}

// Bare reports whether the directive is the keyword alone.
func (d Directive) Bare() bool {
	return strings.TrimPrefix(d.Text, "@") == d.Keyword
}

// Site is a recognized codegen location.
type Site interface {
	Kind() Kind

	// Anchor is the node the site replaces, and the node errors are reported at.
	Anchor() *sitter.Node

	isSite()
}

// Program is a whole-file site. Its anchor is the program node; the body is replaced.
type Program struct {
	Root      *sitter.Node
	Marker    *sitter.Node // the directive comment
	Directive Directive
}

// Call is codegen(<code>).
type Call struct {
	Expression *sitter.Node // call_expression
	Arguments  *sitter.Node // arguments
}

// Tag is codegen`<code>`.
type Tag struct {
	Expression *sitter.Node // call_expression
	Template   *sitter.Node // template_string
}

// JSX is <codegen>{<code>}</codegen>.
type JSX struct {
	Element *sitter.Node // jsx_element
	Opening *sitter.Node // jsx_opening_element
}

// ImportCall is codegen.require(<module>, ...args).
type ImportCall struct {
	Expression *sitter.Node // call_expression
	Arguments  *sitter.Node // arguments
}

// ImportDeclaration is import /* codegen */ '<module>'.
type ImportDeclaration struct {
	Statement *sitter.Node // import_statement
	Source    *sitter.Node // string
	Marker    *sitter.Node // the directive comment
	Directive Directive
}

func (Program) Kind() Kind           { return ProgramMarker }
func (Call) Kind() Kind              { return IdentifierCall }
func (Tag) Kind() Kind               { return IdentifierTag }
func (JSX) Kind() Kind               { return IdentifierJSX }
func (ImportCall) Kind() Kind        { return IdentifierImportCall }
func (ImportDeclaration) Kind() Kind { return ImportDeclarationMarker }

func (s Program) Anchor() *sitter.Node           { return s.Root }
func (s Call) Anchor() *sitter.Node              { return s.Expression }
func (s Tag) Anchor() *sitter.Node               { return s.Expression }
func (s JSX) Anchor() *sitter.Node               { return s.Element }
func (s ImportCall) Anchor() *sitter.Node        { return s.Expression }
func (s ImportDeclaration) Anchor() *sitter.Node { return s.Statement }

func (Program) isSite()           {}
func (Call) isSite()              {}
func (Tag) isSite()               {}
func (JSX) isSite()               {}
func (ImportCall) isSite()        {}
func (ImportDeclaration) isSite() {}

// Key identifies a node within one tree.
type Key struct {
	Start, End int
	Type       string
}

// KeyOf returns n's identity key.
func KeyOf(n *sitter.Node) Key {
	return Key{Start: syntax.Start(n), End: syntax.End(n), Type: n.Type()}
}

// Processed records which nodes of the tree being transformed have been handled. It
// replaces any reliance on rewritten comment text to detect completed work. Keys are
// offsets, so a reparsed tree starts from Reparsed.
type Processed map[Key]bool

// Mark records n as processed.
func (p Processed) Mark(n *sitter.Node) {
	p[KeyOf(n)] = true
}

// Has reports whether n was processed.
func (p Processed) Has(n *sitter.Node) bool {
	return p[KeyOf(n)]
}

// Reparsed returns the table for a tree parsed from the output of replacing a
// processed comment at start with text of length n. Only that comment carries over.
func (p Processed) Reparsed(start, n int) Processed {
	next := Processed{}
	for k := range p {
		if k.Start == start && k.Type == syntax.NodeComment {
			next[Key{Start: start, End: start + n, Type: syntax.NodeComment}] = true
		}
	}
	return next
}
