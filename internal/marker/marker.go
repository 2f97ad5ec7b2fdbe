// Package marker recognizes codegen markers: comments carrying the directive keyword
// and identifiers named exactly as the keyword.
package marker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jscodegen/go-codegen/internal/site"
	"github.com/jscodegen/go-codegen/internal/syntax"
)

const (
	// DefaultKeyword is the directive keyword used when none is configured.
	DefaultKeyword = "codegen"

	// GeneratedAnnotation replaces a processed program marker in generated output.
	GeneratedAnnotation = "// this file was codegened"

	requireProperty = "require"
)

// IsMarker reports whether raw comment text is a codegen directive: its first word,
// with an optional leading '@', is the keyword itself or a call of it.
func IsMarker(raw, keyword string) bool {
	fields := strings.Fields(syntax.CommentValue(raw))
	if len(fields) == 0 {
		return false
	}
	word := strings.TrimPrefix(fields[0], "@")
	return word == keyword || strings.HasPrefix(word, keyword+"(")
}

// ParseDirective parses raw marker comment text. It reports false when raw is not a
// marker.
func ParseDirective(raw, keyword string) (site.Directive, bool) {
	if !IsMarker(raw, keyword) {
		return site.Directive{}, false
	}
	text := strings.TrimSpace(syntax.CommentValue(raw))
	d := site.Directive{Keyword: keyword, Text: text}

	open := strings.Index(text, keyword+"(")
	if open < 0 {
		return d, true
	}
	inner := text[open+len(keyword)+1:]
	if end := strings.LastIndex(inner, ")"); end >= 0 {
		inner = inner[:end]
	}
	d.Args = strings.TrimSpace(inner)
	return d, true
}

// Outcome is the result of classifying a node.
type Outcome uint8

const (
	// NotSite means the node is not a marker at all.
	NotSite Outcome = iota

	// Found means the node marks a site, returned alongside.
	Found

	// Handled means the node is a marker owned by a site found elsewhere, such as
	// the closing tag of a codegen JSX element.
	Handled

	// Unhandled means the node is a marker identifier in a position that is not a
	// codegen site. It is left untouched.
	Unhandled
)

func (o Outcome) String() string {
	switch o {
	case NotSite:
		return "NotSite"
	case Found:
		return "Found"
	case Handled:
		return "Handled"
	case Unhandled:
		return "Unhandled"
	default:
		return "Unknown"
	}
}

// Detector classifies nodes of one tree against a keyword.
type Detector struct {
	Keyword string
	Source  []byte
}

// NewDetector returns a Detector for keyword, defaulting to DefaultKeyword.
func NewDetector(keyword string, source []byte) *Detector {
	if keyword == "" {
		keyword = DefaultKeyword
	}
	return &Detector{Keyword: keyword, Source: source}
}

// Program reports whether the first statement of root is led by a marker comment.
// Markers in done are ignored.
func (d *Detector) Program(root *sitter.Node, done site.Processed) (site.Program, bool) {
	stmts := syntax.Statements(root)
	if len(stmts) == 0 {
		return site.Program{}, false
	}
	for _, c := range syntax.LeadingComments(stmts[0]) {
		if done.Has(c) {
			continue
		}
		if dir, ok := ParseDirective(c.Content(d.Source), d.Keyword); ok {
			return site.Program{Root: root, Marker: c, Directive: dir}, true
		}
	}
	return site.Program{}, false
}

// Classify inspects an identifier or import statement.
func (d *Detector) Classify(n *sitter.Node) (site.Site, Outcome) {
	switch n.Type() {
	case syntax.NodeIdentifier:
		if n.Content(d.Source) != d.Keyword {
			return nil, NotSite
		}
		return d.identifier(n)
	case syntax.NodeImportStatement:
		return d.importStatement(n)
	default:
		return nil, NotSite
	}
}

func (d *Detector) identifier(ident *sitter.Node) (site.Site, Outcome) {
	parent := ident.Parent()
	if parent == nil {
		return nil, Unhandled
	}

	switch parent.Type() {
	case syntax.NodeCallExpression:
		if !syntax.Same(parent.ChildByFieldName("function"), ident) {
			return nil, Unhandled
		}
		args := parent.ChildByFieldName("arguments")
		if args == nil {
			return nil, Unhandled
		}
		if args.Type() == syntax.NodeTemplateString {
			return site.Tag{Expression: parent, Template: args}, Found
		}
		return site.Call{Expression: parent, Arguments: args}, Found

	case syntax.NodeJSXOpeningElement:
		element := parent.Parent()
		if element == nil || element.Type() != syntax.NodeJSXElement {
			return nil, Unhandled
		}
		return site.JSX{Element: element, Opening: parent}, Found

	case syntax.NodeJSXClosingElement:
		return nil, Handled

	case syntax.NodeMemberExpression:
		if !syntax.Same(parent.ChildByFieldName("object"), ident) {
			return nil, Unhandled
		}
		call := parent.Parent()
		if !isPropertyCall(call, parent, requireProperty, d.Source) {
			return nil, Unhandled
		}
		return site.ImportCall{Expression: call, Arguments: call.ChildByFieldName("arguments")}, Found

	default:
		return nil, Unhandled
	}
}

// isPropertyCall reports whether call invokes member and member's property is name.
func isPropertyCall(call, member *sitter.Node, name string, src []byte) bool {
	if call == nil || call.Type() != syntax.NodeCallExpression {
		return false
	}
	if !syntax.Same(call.ChildByFieldName("function"), member) {
		return false
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != syntax.NodeArguments {
		return false
	}
	prop := member.ChildByFieldName("property")
	return prop != nil && prop.Content(src) == name
}

func (d *Detector) importStatement(stmt *sitter.Node) (site.Site, Outcome) {
	source := stmt.ChildByFieldName("source")
	if source == nil {
		return nil, NotSite
	}
	for _, c := range syntax.LeadingComments(source) {
		if dir, ok := ParseDirective(c.Content(d.Source), d.Keyword); ok {
			return site.ImportDeclaration{Statement: stmt, Source: source, Marker: c, Directive: dir}, Found
		}
	}
	return nil, NotSite
}
