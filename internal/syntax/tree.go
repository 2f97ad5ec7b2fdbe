// Package syntax is the boundary to the host parser. Files are parsed with tree-sitter
// grammars for JavaScript (including JSX), TypeScript and TSX; printing a tree is its
// source text, and changes are expressed as non-overlapping text edits.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/jscodegen/go-codegen/internal/diag"
)

// Language selects the grammar a file is parsed with.
type Language uint8

const (
	JavaScript Language = iota
	TypeScript
	TSX
)

func (l Language) String() string {
	switch l {
	case JavaScript:
		return "javascript"
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	default:
		return "unknown"
	}
}

// LanguageFor picks a grammar from a file name's extension. Unknown extensions are
// parsed as JavaScript.
func LanguageFor(filename string) Language {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ts", ".mts", ".cts":
		return TypeScript
	case ".tsx":
		return TSX
	default:
		return JavaScript
	}
}

func (l Language) grammar() *sitter.Language {
	switch l {
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// parsers are not safe for concurrent use, so each language keeps a pool.
var parsers = map[Language]*sync.Pool{}

func init() {
	for _, l := range []Language{JavaScript, TypeScript, TSX} {
		lang := l
		parsers[lang] = &sync.Pool{
			New: func() any {
				p := sitter.NewParser()
				p.SetLanguage(lang.grammar())
				return p
			},
		}
	}
}

// Tree is a parsed source file.
type Tree struct {
	File   string
	Source []byte
	Lang   Language
	tree   *sitter.Tree
}

// Parse parses src as the language implied by filename. The returned tree may contain
// error nodes; callers decide whether that is fatal via FirstError.
func Parse(ctx context.Context, filename string, src []byte) (*Tree, error) {
	return ParseAs(ctx, LanguageFor(filename), filename, src)
}

// ParseAs parses src with an explicit language.
func ParseAs(ctx context.Context, lang Language, filename string, src []byte) (*Tree, error) {
	pool := parsers[lang]
	p := pool.Get().(*sitter.Parser)
	defer pool.Put(p)

	t, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return &Tree{File: filename, Source: src, Lang: lang, tree: t}, nil
}

// Root returns the program node.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Text returns the source text spanned by n.
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(t.Source)
}

// String prints the tree, which for a text-backed tree is its source.
func (t *Tree) String() string {
	return string(t.Source)
}

// Location returns the 1-based position of n's first byte.
func (t *Tree) Location(n *sitter.Node) diag.Location {
	loc := diag.Location{File: t.File}
	if n == nil {
		return loc
	}
	p := n.StartPoint()
	row, err := safecast.Conv[int](p.Row)
	if err != nil {
		return loc
	}
	col, err := safecast.Conv[int](p.Column)
	if err != nil {
		return loc
	}
	loc.Line = row + 1
	loc.Column = col + 1
	return loc
}

// FirstError returns the first error or missing node in document order, or nil.
func (t *Tree) FirstError() *sitter.Node {
	root := t.Root()
	if !root.HasError() {
		return nil
	}
	var found *sitter.Node
	Walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// SyntaxError returns a diag error describing the first parse error, or nil.
func (t *Tree) SyntaxError(keyword string) error {
	n := t.FirstError()
	if n == nil {
		if t.Root().HasError() {
			return diag.New(diag.Syntax, t.Location(t.Root()), keyword, "unable to parse source")
		}
		return nil
	}
	msg := "unexpected token"
	if n.IsMissing() {
		msg = fmt.Sprintf("missing %s", n.Type())
	}
	e := diag.New(diag.Syntax, t.Location(n), keyword, "%s", msg)
	e.Source = t.Source
	return e
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
	}
}

// Start returns n's first byte offset.
func Start(n *sitter.Node) int {
	return offset(n.StartByte())
}

// End returns the offset just past n's last byte.
func End(n *sitter.Node) int {
	return offset(n.EndByte())
}

func offset(b uint32) int {
	n, err := safecast.Conv[int](b)
	if err != nil {
		panic(fmt.Sprintf("syntax: byte offset %d overflows int", b))
	}
	return n
}

// Same reports whether a and b denote the same node of one tree.
func Same(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
