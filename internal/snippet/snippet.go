// Package snippet extracts the code a codegen site asks to run, together with the file
// it runs relative to and the arguments it receives.
package snippet

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jscodegen/go-codegen/internal/diag"
	"github.com/jscodegen/go-codegen/internal/evaluate"
	"github.com/jscodegen/go-codegen/internal/execute"
	"github.com/jscodegen/go-codegen/internal/marker"
	"github.com/jscodegen/go-codegen/internal/resolve"
	"github.com/jscodegen/go-codegen/internal/site"
	"github.com/jscodegen/go-codegen/internal/syntax"
)

// Error messages shown for values that cannot be determined at build time.
const (
	msgUndetermined    = "Unable to determine the value of your codegen string"
	msgUndeterminedArg = "codegen cannot determine the value of an argument in codegen.require"
)

// Snippet is code to execute for one site.
type Snippet struct {
	Code   string
	Origin string // absolute path the code is rooted at
	Args   []any  // evaluated literal arguments, in order
}

// Resolver produces snippets for sites of one tree.
type Resolver struct {
	Keyword string
	Modules *resolve.Resolver
	Runner  execute.Runner
}

// Resolve extracts the snippet of s. Trees must carry absolute file names.
func (r *Resolver) Resolve(ctx context.Context, tree *syntax.Tree, s site.Site) (Snippet, error) {
	switch s := s.(type) {
	case site.Program:
		return r.program(tree, s), nil
	case site.Tag:
		return r.tag(tree, s)
	case site.Call:
		return r.call(tree, s)
	case site.JSX:
		return r.jsx(tree, s)
	case site.ImportCall:
		return r.importCall(tree, s)
	case site.ImportDeclaration:
		return r.importDeclaration(ctx, tree, s)
	default:
		return Snippet{}, fmt.Errorf("unknown codegen site %T", s)
	}
}

// program runs the whole file, with its marker replaced by the generated annotation so
// the code does not describe itself as a codegen program.
func (r *Resolver) program(tree *syntax.Tree, s site.Program) Snippet {
	src := tree.Source
	start, end := syntax.Start(s.Marker), syntax.End(s.Marker)
	code := string(src[:start]) + marker.GeneratedAnnotation + string(src[end:])
	return Snippet{Code: code, Origin: tree.File}
}

func (r *Resolver) tag(tree *syntax.Tree, s site.Tag) (Snippet, error) {
	code, err := r.codeString(tree, s.Template, s.Expression)
	if err != nil {
		return Snippet{}, err
	}
	return Snippet{Code: code, Origin: tree.File}, nil
}

func (r *Resolver) call(tree *syntax.Tree, s site.Call) (Snippet, error) {
	args := syntax.Expressions(s.Arguments)
	if len(args) == 0 {
		return Snippet{}, r.undetermined(tree, s.Expression, msgUndetermined)
	}
	code, err := r.codeString(tree, args[0], s.Expression)
	if err != nil {
		return Snippet{}, err
	}
	return Snippet{Code: code, Origin: tree.File}, nil
}

// jsx takes the element's first non-blank child, an expression container holding a
// string or template literal.
func (r *Resolver) jsx(tree *syntax.Tree, s site.JSX) (Snippet, error) {
	var child *sitter.Node
children:
	for _, c := range syntax.NamedChildren(s.Element) {
		switch c.Type() {
		case syntax.NodeJSXOpeningElement, syntax.NodeJSXClosingElement:
			continue
		case syntax.NodeJSXText:
			if strings.TrimSpace(tree.Text(c)) == "" {
				continue
			}
		}
		child = c
		break children
	}
	if child == nil || child.Type() != syntax.NodeJSXExpression {
		return Snippet{}, r.undetermined(tree, s.Element, msgUndetermined)
	}

	inner := syntax.Expressions(child)
	if len(inner) != 1 {
		return Snippet{}, r.undetermined(tree, s.Element, msgUndetermined)
	}
	switch inner[0].Type() {
	case syntax.NodeString, syntax.NodeTemplateString:
	default:
		return Snippet{}, r.undetermined(tree, s.Element, msgUndetermined)
	}
	code, err := r.codeString(tree, inner[0], s.Element)
	if err != nil {
		return Snippet{}, err
	}
	return Snippet{Code: code, Origin: tree.File}, nil
}

func (r *Resolver) importCall(tree *syntax.Tree, s site.ImportCall) (Snippet, error) {
	args := syntax.Expressions(s.Arguments)
	if len(args) == 0 || args[0].Type() != syntax.NodeString {
		return Snippet{}, r.undetermined(tree, s.Expression, "%s.require expects a string literal module path", r.Keyword)
	}
	request, err := evaluate.Unquote(tree.Text(args[0]))
	if err != nil {
		return Snippet{}, r.undetermined(tree, args[0], "%s", err.Error())
	}
	code, origin, err := r.load(tree, args[0], request)
	if err != nil {
		return Snippet{}, err
	}

	ev := evaluate.New(tree.Source)
	extra := make([]any, 0, len(args)-1)
	for _, a := range args[1:] {
		v, ok := ev.Evaluate(a)
		if !ok {
			return Snippet{}, r.undetermined(tree, a, msgUndeterminedArg)
		}
		extra = append(extra, v)
	}
	return Snippet{Code: code, Origin: origin, Args: extra}, nil
}

func (r *Resolver) importDeclaration(ctx context.Context, tree *syntax.Tree, s site.ImportDeclaration) (Snippet, error) {
	request, err := evaluate.Unquote(tree.Text(s.Source))
	if err != nil {
		return Snippet{}, r.undetermined(tree, s.Source, "%s", err.Error())
	}
	code, origin, err := r.load(tree, s.Source, request)
	if err != nil {
		return Snippet{}, err
	}
	snip := Snippet{Code: code, Origin: origin}
	if s.Directive.Bare() || s.Directive.Args == "" {
		return snip, nil
	}

	// Directive arguments are ordinary code evaluated next to the importing file.
	res, err := r.Runner.Run(ctx, "module.exports = ["+s.Directive.Args+"];", tree.File, nil)
	if err != nil {
		return Snippet{}, diag.Wrap(diag.Evaluation, tree.Location(s.Marker), r.Keyword, err,
			"cannot evaluate the arguments of %s", s.Directive.Text)
	}
	seq, ok := res.(execute.Sequence)
	if !ok {
		return Snippet{}, diag.New(diag.Evaluation, tree.Location(s.Marker), r.Keyword,
			"arguments of %s evaluated to %s", s.Directive.Text, execute.Describe(res))
	}
	for _, e := range seq {
		snip.Args = append(snip.Args, execute.ToValue(e))
	}
	return snip, nil
}

// load resolves request relative to the tree's file and reads the module.
func (r *Resolver) load(tree *syntax.Tree, at *sitter.Node, request string) (string, string, error) {
	abs, err := r.Modules.Resolve(request, path.Dir(tree.File))
	if err != nil {
		return "", "", diag.Wrap(diag.Resolution, tree.Location(at), r.Keyword, err, "")
	}
	data, err := r.Modules.ReadFile(abs)
	if err != nil {
		return "", "", diag.Wrap(diag.Resolution, tree.Location(at), r.Keyword, err, "reading %s", abs)
	}
	return string(data), abs, nil
}

// codeString statically evaluates n to a non-empty string.
func (r *Resolver) codeString(tree *syntax.Tree, n, anchor *sitter.Node) (string, error) {
	v, ok := evaluate.New(tree.Source).Evaluate(n)
	if !ok {
		return "", r.undetermined(tree, anchor, msgUndetermined)
	}
	code, isString := v.(string)
	if !isString || strings.TrimSpace(code) == "" {
		return "", r.undetermined(tree, anchor, msgUndetermined)
	}
	return code, nil
}

func (r *Resolver) undetermined(tree *syntax.Tree, at *sitter.Node, format string, args ...any) error {
	e := diag.New(diag.Evaluation, tree.Location(at), r.Keyword, format, args...)
	e.Source = tree.Source
	return e
}
