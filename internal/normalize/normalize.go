// Package normalize turns snippet results into source fragments that fit the slot a
// codegen site occupies.
package normalize

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jscodegen/go-codegen/internal/diag"
	"github.com/jscodegen/go-codegen/internal/execute"
	"github.com/jscodegen/go-codegen/internal/syntax"
	"github.com/jscodegen/go-codegen/internal/value"
)

// Shape is the replacement arity a site expects.
type Shape uint8

const (
	// Single replaces the anchor with exactly one fragment.
	Single Shape = iota
	// Statements replaces the anchor with a list of statement fragments.
	Statements
)

func (s Shape) String() string {
	if s == Statements {
		return "statements"
	}
	return "single"
}

// Slot is the syntactic position of a Single anchor.
type Slot uint8

const (
	// Expression is any position that takes an expression.
	Expression Slot = iota
	// Statement is an anchor that makes up a whole expression statement.
	Statement
	// JSXChild is a child of a JSX element.
	JSXChild
)

// Target describes where fragments are spliced.
type Target struct {
	File string
	Lang syntax.Language
	Slot Slot
}

// Fragment is replacement source text.
type Fragment struct {
	Text string
}

// Normalize converts res into fragments for shape. Results that do not fit are a diag
// ShapeError without location; callers attach the site's.
func Normalize(ctx context.Context, res execute.Result, shape Shape, t Target) ([]Fragment, error) {
	switch shape {
	case Single:
		f, err := single(ctx, res, t)
		if err != nil {
			return nil, err
		}
		return []Fragment{f}, nil
	case Statements:
		return statements(ctx, res, t)
	default:
		return nil, fmt.Errorf("unknown shape %d", shape)
	}
}

func shapeError(format string, args ...any) error {
	return diag.New(diag.Shape, diag.Location{}, "", format, args...)
}

func single(ctx context.Context, res execute.Result, t Target) (Fragment, error) {
	switch r := res.(type) {
	case execute.Text:
		return singleText(ctx, string(r), t)
	case execute.Node:
		return literal(r.Value, t.Slot)
	case execute.Module:
		return literal(r.Exports, t.Slot)
	case execute.Sequence:
		if len(r) != 1 {
			return Fragment{}, shapeError("expected a single replacement, got a sequence of %d", len(r))
		}
		return single(ctx, r[0], t)
	default:
		return Fragment{}, shapeError("expected a single replacement, got %s", execute.Describe(res))
	}
}

func singleText(ctx context.Context, text string, t Target) (Fragment, error) {
	tree, err := parse(ctx, text, t)
	if err != nil {
		return Fragment{}, err
	}
	defer tree.Close()

	stmts := syntax.Statements(tree.Root())
	if len(stmts) != 1 {
		return Fragment{}, shapeError("expected generated code to be a single expression or statement, got %d statements", len(stmts))
	}
	stmt := stmts[0]
	if t.Slot == Statement {
		return Fragment{Text: terminate(tree.Text(stmt))}, nil
	}

	if stmt.Type() != syntax.NodeExpressionStatement {
		return Fragment{}, shapeError("expected generated code to be an expression, got %s", strings.ReplaceAll(stmt.Type(), "_", " "))
	}
	expr := syntax.Expressions(stmt)
	if len(expr) != 1 {
		return Fragment{}, shapeError("expected generated code to be an expression")
	}
	return Fragment{Text: wrap(tree.Text(expr[0]), isPrimary(expr[0]), t.Slot)}, nil
}

// parse parses generated text and rejects empty or malformed code.
func parse(ctx context.Context, text string, t Target) (*syntax.Tree, error) {
	if strings.TrimSpace(text) == "" {
		return nil, shapeError("generated code is empty")
	}
	tree, err := syntax.ParseAs(ctx, t.Lang, t.File, []byte(text))
	if err != nil {
		return nil, diag.Wrap(diag.Shape, diag.Location{}, "", err, "")
	}
	if serr := tree.SyntaxError(""); serr != nil {
		tree.Close()
		return nil, diag.Wrap(diag.Shape, diag.Location{}, "", serr, "generated code does not parse")
	}
	return tree, nil
}

// terminate ends a statement that relied on automatic semicolon insertion.
func terminate(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if strings.HasSuffix(stmt, ";") || strings.HasSuffix(stmt, "}") {
		return stmt
	}
	return stmt + ";"
}

// primaryTypes are expressions that need no parentheses in any expression slot.
var primaryTypes = map[string]bool{
	"identifier":               true,
	"this":                     true,
	"number":                   true,
	"string":                   true,
	"template_string":          true,
	"regex":                    true,
	"true":                     true,
	"false":                    true,
	"null":                     true,
	"undefined":                true,
	"array":                    true,
	"parenthesized_expression": true,
	"call_expression":          true,
	"member_expression":        true,
	"subscript_expression":     true,
	"jsx_element":              true,
	"jsx_self_closing_element": true,
}

func isPrimary(n *sitter.Node) bool {
	return primaryTypes[n.Type()]
}

func isJSX(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "<")
}

// wrap adapts expression text to its slot.
func wrap(text string, primary bool, slot Slot) string {
	switch slot {
	case JSXChild:
		if primary && isJSX(text) {
			return text
		}
		return "{" + text + "}"
	case Statement:
		if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "function") || strings.HasPrefix(text, "class") {
			return "(" + text + ");"
		}
		return text + ";"
	default:
		if primary {
			return text
		}
		return "(" + text + ")"
	}
}

// literal renders literal data as an expression.
func literal(v any, slot Slot) (Fragment, error) {
	text, err := value.Render(v)
	if err != nil {
		return Fragment{}, diag.Wrap(diag.Shape, diag.Location{}, "", err, "")
	}
	primary := !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "-")
	return Fragment{Text: wrap(text, primary, slot)}, nil
}

func statements(ctx context.Context, res execute.Result, t Target) ([]Fragment, error) {
	switch r := res.(type) {
	case execute.Sequence:
		out := make([]Fragment, 0, len(r))
		for i, e := range r {
			f, err := statementElement(ctx, e, t)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, f)
		}
		return out, nil
	case execute.Module:
		out := make([]Fragment, 0, r.Exports.Len())
		for _, name := range r.Exports.Keys() {
			v, _ := r.Exports.Get(name)
			f, err := exportConst(name, v)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	default:
		f, err := statementElement(ctx, res, t)
		if err != nil {
			return nil, err
		}
		return []Fragment{f}, nil
	}
}

// statementElement normalizes one element of a statement list into one fragment.
func statementElement(ctx context.Context, res execute.Result, t Target) (Fragment, error) {
	switch r := res.(type) {
	case execute.Text:
		if strings.TrimSpace(string(r)) == "" {
			return Fragment{}, nil
		}
		tree, err := parse(ctx, string(r), t)
		if err != nil {
			return Fragment{}, err
		}
		defer tree.Close()
		return Fragment{Text: strings.TrimSpace(tree.String())}, nil
	case execute.Node:
		return literal(r.Value, Statement)
	case execute.Module:
		parts := make([]string, 0, r.Exports.Len())
		for _, name := range r.Exports.Keys() {
			v, _ := r.Exports.Get(name)
			f, err := exportConst(name, v)
			if err != nil {
				return Fragment{}, err
			}
			parts = append(parts, f.Text)
		}
		return Fragment{Text: strings.Join(parts, "\n")}, nil
	case execute.Sequence:
		return Fragment{}, shapeError("expected a statement, got a nested sequence of %d", len(r))
	default:
		return Fragment{}, shapeError("expected a statement, got %s", execute.Describe(res))
	}
}

// exportConst renders one named export as a declaration.
func exportConst(name string, v any) (Fragment, error) {
	text, err := value.Render(v)
	if err != nil {
		return Fragment{}, diag.Wrap(diag.Shape, diag.Location{}, "", err, "export %q", name)
	}
	if name == "default" {
		return Fragment{Text: "export default " + text + ";"}, nil
	}
	if !value.IsIdentifier(name) {
		return Fragment{}, shapeError("export %q is not a valid identifier", name)
	}
	return Fragment{Text: "export const " + name + " = " + text + ";"}, nil
}

// Join concatenates statement fragments into one block of source.
func Join(fragments []Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f.Text != "" {
			parts = append(parts, f.Text)
		}
	}
	return strings.Join(parts, "\n")
}
