package snippet

import (
	"context"
	"errors"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscodegen/go-codegen/internal/diag"
	"github.com/jscodegen/go-codegen/internal/execute"
	"github.com/jscodegen/go-codegen/internal/marker"
	"github.com/jscodegen/go-codegen/internal/resolve"
	"github.com/jscodegen/go-codegen/internal/site"
	"github.com/jscodegen/go-codegen/internal/syntax"
	"github.com/jscodegen/go-codegen/internal/testkit"
)

const project = `
-- /app/src/gen.js --
module.exports = (a, b) => 'const v = ' + JSON.stringify([a, b]) + ';';
-- /app/src/consts.js --
module.exports = 'z';
`

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	modules := testkit.Load(t, project).Resolver()
	return &Resolver{
		Keyword: marker.DefaultKeyword,
		Modules: modules,
		Runner:  execute.NewGojaRunner(modules),
	}
}

// firstSite parses src as /app/src/<name> and returns its first codegen site.
func firstSite(t *testing.T, name, src string) (*syntax.Tree, site.Site) {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), "/app/src/"+name, []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	d := marker.NewDetector("", tree.Source)
	if p, ok := d.Program(tree.Root(), site.Processed{}); ok {
		return tree, p
	}
	var found site.Site
	syntax.Walk(tree.Root(), func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if s, o := d.Classify(n); o == marker.Found {
			found = s
			return false
		}
		return true
	})
	require.NotNil(t, found, "no site in %s", src)
	return tree, found
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		src    string
		want   string
		origin string
		args   []any
	}{
		{
			name:   "program",
			file:   "app.js",
			src:    "// codegen\nmodule.exports = 'const x = 1;';\n",
			want:   marker.GeneratedAnnotation + "\nmodule.exports = 'const x = 1;';\n",
			origin: "/app/src/app.js",
		},
		{
			name:   "tag",
			file:   "app.js",
			src:    "const x = codegen`module.exports = ${'1' + '2'}`;",
			want:   "module.exports = 12",
			origin: "/app/src/app.js",
		},
		{
			name:   "tag with const binding",
			file:   "app.js",
			src:    "const n = 3;\nconst x = codegen`module.exports = ${n}`;",
			want:   "module.exports = 3",
			origin: "/app/src/app.js",
		},
		{
			name:   "call",
			file:   "app.js",
			src:    "const x = codegen('module.exports = 1', 'ignored');",
			want:   "module.exports = 1",
			origin: "/app/src/app.js",
		},
		{
			name:   "jsx",
			file:   "app.jsx",
			src:    "const el = <codegen>\n  {'module.exports = \"<div />\"'}\n</codegen>;",
			want:   `module.exports = "<div />"`,
			origin: "/app/src/app.jsx",
		},
		{
			name:   "import call threads arguments",
			file:   "app.js",
			src:    "const x = codegen.require('./gen', 'a', 2);",
			want:   "module.exports = (a, b) => 'const v = ' + JSON.stringify([a, b]) + ';';\n",
			origin: "/app/src/gen.js",
			args:   []any{"a", 2.0},
		},
		{
			name:   "bare import declaration",
			file:   "app.js",
			src:    "import x from /* codegen */ './gen';",
			want:   "module.exports = (a, b) => 'const v = ' + JSON.stringify([a, b]) + ';';\n",
			origin: "/app/src/gen.js",
		},
		{
			name:   "import declaration with arguments",
			file:   "app.js",
			src:    "import x from /* codegen(require('./consts'), 1 + 1) */ './gen';",
			want:   "module.exports = (a, b) => 'const v = ' + JSON.stringify([a, b]) + ';';\n",
			origin: "/app/src/gen.js",
			args:   []any{"z", 2.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, s := firstSite(t, tt.file, tt.src)
			got, err := newResolver(t).Resolve(context.Background(), tree, s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.origin, got.Origin)
			assert.Equal(t, tt.args, got.Args)
		})
	}
}

func TestResolve_EvaluationErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		src     string
		message string
	}{
		{name: "tag with runtime interpolation", file: "app.js", src: "const x = codegen`module.exports = ${process.env.X}`;", message: msgUndetermined},
		{name: "empty tag", file: "app.js", src: "const x = codegen`  `;", message: msgUndetermined},
		{name: "call with variable", file: "app.js", src: "let s = '';\nconst x = codegen(s);", message: msgUndetermined},
		{name: "call without arguments", file: "app.js", src: "const x = codegen();", message: msgUndetermined},
		{name: "call with number", file: "app.js", src: "const x = codegen(1);", message: msgUndetermined},
		{name: "jsx with text child", file: "app.jsx", src: "const el = <codegen>text</codegen>;", message: msgUndetermined},
		{name: "import call argument", file: "app.js", src: "const x = codegen.require('./gen', someValue);", message: msgUndeterminedArg},
		{name: "import call dynamic path", file: "app.js", src: "const x = codegen.require(name);", message: "codegen.require expects a string literal module path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, s := firstSite(t, tt.file, tt.src)
			_, err := newResolver(t).Resolve(context.Background(), tree, s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, diag.ErrEvaluation), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), "/app/src/"+tt.file+":")
		})
	}
}

func TestResolve_ImportDirectiveFailure(t *testing.T) {
	tree, s := firstSite(t, "app.js", "import x from /* codegen(notDefined) */ './gen';")
	_, err := newResolver(t).Resolve(context.Background(), tree, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrEvaluation))

	inner := errors.Unwrap(err)
	require.NotNil(t, inner)
	assert.Equal(t, diag.Execution, diag.KindOf(inner))
	assert.Contains(t, inner.Error(), "notDefined")
}

func TestResolve_ResolutionErrors(t *testing.T) {
	for _, src := range []string{
		"const x = codegen.require('./missing');",
		"import x from /* codegen */ './missing';",
	} {
		tree, s := firstSite(t, "app.js", src)
		_, err := newResolver(t).Resolve(context.Background(), tree, s)
		require.Error(t, err, src)
		assert.True(t, errors.Is(err, diag.ErrResolution), src)
		assert.True(t, errors.Is(err, resolve.ErrModuleNotFound), src)
	}
}

func TestResolve_ArgumentsAreNotExecuted(t *testing.T) {
	tree, s := firstSite(t, "app.js", "const x = codegen.require('./gen', 'a', 2);")
	calls := 0
	r := newResolver(t)
	r.Runner = execute.FuncRunner(func(context.Context, string, string, []any) (execute.Result, error) {
		calls++
		return nil, nil
	})
	_, err := r.Resolve(context.Background(), tree, s)
	require.NoError(t, err)
	assert.Zero(t, calls)
}
