// Package transform expands the codegen sites of JavaScript, JSX and TypeScript files.
//
// A Dispatcher handles one file at a time: it finds the sites, runs each snippet and
// splices the normalized result in place of the site. A Manager drives a Dispatcher
// over a directory tree and writes the result as a diff or back to the files.
package transform

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"goa.design/clue/log"

	"github.com/jscodegen/go-codegen/internal/comment"
	"github.com/jscodegen/go-codegen/internal/diag"
	"github.com/jscodegen/go-codegen/internal/execute"
	"github.com/jscodegen/go-codegen/internal/marker"
	"github.com/jscodegen/go-codegen/internal/normalize"
	"github.com/jscodegen/go-codegen/internal/resolve"
	"github.com/jscodegen/go-codegen/internal/site"
	"github.com/jscodegen/go-codegen/internal/snippet"
	"github.com/jscodegen/go-codegen/internal/syntax"
	"github.com/jscodegen/go-codegen/internal/telemetry"
)

// Dispatcher expands the codegen sites of single files. It holds no per-file state
// and may be shared by goroutines transforming different files.
type Dispatcher struct {
	keyword  string
	snippets *snippet.Resolver
	runner   execute.Runner
	reporter *telemetry.Reporter
}

// NewDispatcher returns a Dispatcher for keyword that resolves modules with modules
// and runs snippets with runner. A nil reporter disables telemetry.
func NewDispatcher(keyword string, modules *resolve.Resolver, runner execute.Runner, reporter *telemetry.Reporter) *Dispatcher {
	if keyword == "" {
		keyword = marker.DefaultKeyword
	}
	return &Dispatcher{
		keyword: keyword,
		snippets: &snippet.Resolver{
			Keyword: keyword,
			Modules: modules,
			Runner:  runner,
		},
		runner:   runner,
		reporter: reporter,
	}
}

// Applied records one expanded site.
type Applied struct {
	Kind      site.Kind
	Location  diag.Location
	Fragments int
}

// Output is the result of transforming one file.
type Output struct {
	File     string
	Original []byte
	Code     []byte
	Sites    []Applied
}

// Changed reports whether any site was expanded.
func (o Output) Changed() bool {
	return len(o.Sites) > 0
}

// TransformFile expands every codegen site of source, read from the absolute path
// filename. The first failing site aborts the file: the error is a *diag.Error
// carrying the site's location and no output is produced.
func (d *Dispatcher) TransformFile(ctx context.Context, filename string, source []byte) (Output, error) {
	ctx, txn := d.reporter.StartFile(ctx, filename)
	defer txn.End()
	start := time.Now()

	out, err := d.transform(ctx, filename, source)
	if err != nil {
		telemetry.NoticeError(ctx, err)
		log.Error(ctx, err, log.KV{K: "msg", V: "transform failed"}, log.KV{K: "file", V: filename})
		return Output{}, err
	}
	log.Debug(ctx,
		log.KV{K: "msg", V: "transformed"},
		log.KV{K: "file", V: filename},
		log.KV{K: "sites", V: len(out.Sites)},
		log.KV{K: "duration", V: time.Since(start).String()},
	)
	return out, nil
}

func (d *Dispatcher) transform(ctx context.Context, filename string, source []byte) (Output, error) {
	out := Output{File: filename, Original: source, Code: source}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	tree, err := d.parse(ctx, filename, source)
	if err != nil {
		return Output{}, err
	}
	defer func() { tree.Close() }()

	// The program site replaces the whole body, so it runs first on its own, and the
	// generated body is parsed again before the remaining sites are looked for.
	done := site.Processed{}
	det := marker.NewDetector(d.keyword, tree.Source)
	if p, ok := det.Program(tree.Root(), done); ok {
		edits, applied, err := d.program(ctx, tree, p)
		if err != nil {
			return Output{}, err
		}
		code, err := syntax.Apply(tree.Source, edits)
		if err != nil {
			return Output{}, err
		}
		out.Sites = append(out.Sites, applied)
		done.Mark(p.Marker)
		at := syntax.Start(p.Marker)

		previous := tree
		tree, err = d.parse(ctx, filename, code)
		previous.Close()
		if err != nil {
			return Output{}, diag.Attach(err, diag.Shape, applied.Location, d.keyword, source)
		}
		done = done.Reparsed(at, len(marker.GeneratedAnnotation))

		// One program expansion per run; any further program marker waits for the next.
		again := marker.NewDetector(d.keyword, tree.Source)
		if p, ok := again.Program(tree.Root(), done); ok {
			comment.Warn(tree.Location(p.Marker), fmt.Sprintf("another %s program marker is left for the next run", d.keyword))
		}
	}

	var edits []syntax.Edit
	err = d.walk(ctx, tree, done, func(s site.Site) error {
		edit, applied, err := d.expand(ctx, tree, s)
		if err != nil {
			return err
		}
		edits = append(edits, edit)
		out.Sites = append(out.Sites, applied)
		return nil
	})
	if err != nil {
		return Output{}, err
	}

	code, err := syntax.Apply(tree.Source, edits)
	if err != nil {
		return Output{}, err
	}
	out.Code = code
	return out, nil
}

func (d *Dispatcher) parse(ctx context.Context, filename string, source []byte) (*syntax.Tree, error) {
	tree, err := syntax.Parse(ctx, filename, source)
	if err != nil {
		return nil, err
	}
	if serr := tree.SyntaxError(d.keyword); serr != nil {
		tree.Close()
		return nil, diag.Attach(serr, diag.Syntax, diag.Location{File: filename}, d.keyword, source)
	}
	return tree, nil
}

// walk visits the identifier and import sites of tree in source order and marks them
// in done. Processed nodes and nodes inside the anchor of a visited site are not
// classified.
func (d *Dispatcher) walk(ctx context.Context, tree *syntax.Tree, done site.Processed, visit func(site.Site) error) error {
	det := marker.NewDetector(d.keyword, tree.Source)
	var (
		err       error
		skipUntil int
	)
	syntax.Walk(tree.Root(), func(n *sitter.Node) bool {
		if err != nil || syntax.Start(n) < skipUntil || done.Has(n) {
			return false
		}
		if err = ctx.Err(); err != nil {
			return false
		}
		s, outcome := det.Classify(n)
		switch outcome {
		case marker.Found:
			skipUntil = syntax.End(spliced(s))
			done.Mark(s.Anchor())
			err = visit(s)
			return false
		case marker.Handled:
			log.Debug(ctx, log.KV{K: "msg", V: "marker handled by its element"}, log.KV{K: "at", V: tree.Location(n).String()})
			return false
		case marker.Unhandled:
			comment.Warn(tree.Location(n), fmt.Sprintf("%s is not used as a codegen site and was left untouched", d.keyword))
		}
		return true
	})
	return err
}

// program expands a whole-file site. The marker comment becomes the generated
// annotation, comments leading the body are kept, and the statements are replaced.
func (d *Dispatcher) program(ctx context.Context, tree *syntax.Tree, p site.Program) ([]syntax.Edit, Applied, error) {
	loc := tree.Location(p.Marker)
	fail := func(err error) ([]syntax.Edit, Applied, error) {
		return nil, Applied{}, diag.Attach(err, diag.Execution, loc, d.keyword, tree.Source)
	}
	defer telemetry.StartSite(ctx, p.Kind().String())()

	fragments, err := d.fragments(ctx, tree, p, normalize.Statements, normalize.Statement)
	if err != nil {
		return fail(err)
	}

	stmts := syntax.Statements(p.Root)
	children := syntax.NamedChildren(p.Root)
	body := syntax.Edit{
		Start: syntax.Start(stmts[0]),
		End:   syntax.End(children[len(children)-1]),
		Text:  normalize.Join(fragments),
	}
	edits := []syntax.Edit{syntax.Replace(p.Marker, marker.GeneratedAnnotation), body}

	d.note(ctx, loc, p.Kind(), len(fragments))
	return edits, Applied{Kind: p.Kind(), Location: loc, Fragments: len(fragments)}, nil
}

// expand runs one identifier or import site and returns the edit splicing its result.
func (d *Dispatcher) expand(ctx context.Context, tree *syntax.Tree, s site.Site) (syntax.Edit, Applied, error) {
	loc := tree.Location(s.Anchor())
	defer telemetry.StartSite(ctx, s.Kind().String())()

	shape, slot := placement(s)
	fragments, err := d.fragments(ctx, tree, s, shape, slot)
	if err != nil {
		return syntax.Edit{}, Applied{}, diag.Attach(err, diag.Execution, loc, d.keyword, tree.Source)
	}

	d.note(ctx, loc, s.Kind(), len(fragments))
	edit := syntax.Replace(spliced(s), normalize.Join(fragments))
	return edit, Applied{Kind: s.Kind(), Location: loc, Fragments: len(fragments)}, nil
}

// fragments resolves, runs and normalizes the snippet of s.
func (d *Dispatcher) fragments(ctx context.Context, tree *syntax.Tree, s site.Site, shape normalize.Shape, slot normalize.Slot) ([]normalize.Fragment, error) {
	snip, err := d.snippets.Resolve(ctx, tree, s)
	if err != nil {
		return nil, err
	}
	res, err := d.runner.Run(ctx, snip.Code, snip.Origin, snip.Args)
	if err != nil {
		return nil, err
	}
	return normalize.Normalize(ctx, res, shape, normalize.Target{File: tree.File, Lang: tree.Lang, Slot: slot})
}

func (d *Dispatcher) note(ctx context.Context, loc diag.Location, kind site.Kind, fragments int) {
	log.Debug(ctx,
		log.KV{K: "msg", V: "site expanded"},
		log.KV{K: "kind", V: kind.String()},
		log.KV{K: "at", V: loc.String()},
		log.KV{K: "fragments", V: fragments},
	)
	comment.Info(loc, fmt.Sprintf("expanded %s site", kind), fmt.Sprintf("%d fragment(s) spliced", fragments))
}

// placement picks the expected result shape of s and the slot its fragment fills.
func placement(s site.Site) (normalize.Shape, normalize.Slot) {
	switch v := s.(type) {
	case site.Program, site.ImportDeclaration:
		return normalize.Statements, normalize.Statement
	case site.JSX:
		if syntax.ParentIs(v.Element, syntax.NodeJSXElement) {
			return normalize.Single, normalize.JSXChild
		}
		return normalize.Single, slotOf(v.Element)
	case site.Call:
		return normalize.Single, slotOf(v.Expression)
	case site.Tag:
		return normalize.Single, slotOf(v.Expression)
	case site.ImportCall:
		return normalize.Single, slotOf(v.Expression)
	default:
		panic(fmt.Sprintf("transform: unknown site %T", s))
	}
}

// slotOf reports whether anchor makes up a whole expression statement.
func slotOf(anchor *sitter.Node) normalize.Slot {
	if syntax.ParentIs(anchor, syntax.NodeExpressionStatement) {
		return normalize.Statement
	}
	return normalize.Expression
}

// spliced returns the node a site's fragments replace: the enclosing statement when
// the anchor is a whole expression statement, otherwise the anchor itself.
func spliced(s site.Site) *sitter.Node {
	anchor := s.Anchor()
	if _, ok := s.(site.Program); ok {
		return anchor
	}
	if _, slot := placement(s); slot == normalize.Statement && syntax.ParentIs(anchor, syntax.NodeExpressionStatement) {
		return anchor.Parent()
	}
	return anchor
}

// Found is a site listed without being expanded.
type Found struct {
	Kind     site.Kind
	Location diag.Location
}

// Sites lists the codegen sites of source in source order without running them.
func (d *Dispatcher) Sites(ctx context.Context, filename string, source []byte) ([]Found, error) {
	tree, err := d.parse(ctx, filename, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var found []Found
	done := site.Processed{}
	det := marker.NewDetector(d.keyword, tree.Source)
	if p, ok := det.Program(tree.Root(), done); ok {
		found = append(found, Found{Kind: p.Kind(), Location: tree.Location(p.Marker)})
		done.Mark(p.Marker)
	}
	err = d.walk(ctx, tree, done, func(s site.Site) error {
		found = append(found, Found{Kind: s.Kind(), Location: tree.Location(s.Anchor())})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
