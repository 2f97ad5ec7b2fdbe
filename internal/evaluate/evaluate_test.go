package evaluate

import (
	"context"
	"math"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscodegen/go-codegen/internal/syntax"
	"github.com/jscodegen/go-codegen/internal/value"
)

// lastExpression parses src and returns the expression of its final statement.
func lastExpression(t *testing.T, src string) (*syntax.Tree, *sitter.Node) {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), "test.js", []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	require.Nil(t, tree.FirstError(), "fixture must parse: %s", src)

	stmts := syntax.Statements(tree.Root())
	require.NotEmpty(t, stmts)
	last := stmts[len(stmts)-1]
	require.Equal(t, syntax.NodeExpressionStatement, last.Type())
	return tree, last.NamedChild(0)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{name: "double quoted string", src: `"hello";`, want: "hello"},
		{name: "single quoted string with escapes", src: `'a\tbA';`, want: "a\tbA"},
		{name: "number", src: `42;`, want: 42.0},
		{name: "hex number", src: `0xff;`, want: 255.0},
		{name: "separators", src: `1_000;`, want: 1000.0},
		{name: "true", src: `true;`, want: true},
		{name: "null", src: `null;`, want: nil},
		{name: "undefined", src: `undefined;`, want: value.Undefined{}},
		{name: "template without substitutions", src: "`module.exports = 1`;", want: "module.exports = 1"},
		{name: "template with confident substitution", src: "`a${1 + 2}b`;", want: "a3b"},
		{name: "template escapes", src: "`line\\nnext`;", want: "line\nnext"},
		{name: "negation", src: `-5;`, want: -5.0},
		{name: "not", src: `!0;`, want: true},
		{name: "bitwise not", src: `~1;`, want: -2.0},
		{name: "typeof", src: `typeof "x";`, want: "string"},
		{name: "void", src: `void 0;`, want: value.Undefined{}},
		{name: "string concatenation", src: `"a" + 1;`, want: "a1"},
		{name: "arithmetic precedence", src: `2 + 3 * 4;`, want: 14.0},
		{name: "exponent", src: `2 ** 10;`, want: 1024.0},
		{name: "strict equality", src: `1 === 1;`, want: true},
		{name: "loose equality", src: `null == undefined;`, want: true},
		{name: "comparison of strings", src: `"a" < "b";`, want: true},
		{name: "logical or", src: `0 || "fallback";`, want: "fallback"},
		{name: "nullish", src: `null ?? 3;`, want: 3.0},
		{name: "shift", src: `1 << 4;`, want: 16.0},
		{name: "unsigned shift", src: `-1 >>> 28;`, want: 15.0},
		{name: "parenthesized", src: `(1 + 1) * 3;`, want: 6.0},
		{name: "array", src: `["a", 2];`, want: []any{"a", 2.0}},
		{name: "string length", src: `"abc".length;`, want: 3.0},
		{name: "const binding", src: "const n = 3;\n`x${n}`;", want: "x3"},
		{name: "chained const bindings", src: "const a = 'p';\nconst b = a + 'q';\nb;", want: "pq"},
		{name: "const in enclosing block", src: "const v = 1;\n{ const w = v + 1; }\nv;", want: 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, expr := lastExpression(t, tt.src)
			got, ok := New(tree.Source).Evaluate(expr)
			require.True(t, ok, "expected a confident value")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Object(t *testing.T) {
	tree, expr := lastExpression(t, "const k = 'z';\n({ a: 1, 'b-c': 'two', [k]: true, k });")
	got, ok := New(tree.Source).Evaluate(expr)
	require.True(t, ok)

	obj, isObj := got.(*value.Object)
	require.True(t, isObj)
	assert.Equal(t, []string{"a", "b-c", "z", "k"}, obj.Keys())
	v, _ := obj.Get("z")
	assert.Equal(t, true, v)
	v, _ = obj.Get("k")
	assert.Equal(t, "z", v)
}

func TestEvaluate_NaNAndInfinity(t *testing.T) {
	tree, expr := lastExpression(t, "NaN;")
	got, ok := New(tree.Source).Evaluate(expr)
	require.True(t, ok)
	assert.True(t, math.IsNaN(got.(float64)))

	tree, expr = lastExpression(t, "-Infinity;")
	got, ok = New(tree.Source).Evaluate(expr)
	require.True(t, ok)
	assert.True(t, math.IsInf(got.(float64), -1))
}

func TestEvaluate_NotConfident(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "free identifier", src: `someValue;`},
		{name: "let binding", src: "let n = 1;\nn;"},
		{name: "template with unknown substitution", src: "`a${someValue}`;"},
		{name: "call", src: `compute();`},
		{name: "array with unknown element", src: `[1, someValue];`},
		{name: "spread", src: `[...items];`},
		{name: "member of unknown", src: `foo.length;`},
		{name: "binding cycle", src: "const a = b;\nconst b = a;\na;"},
		{name: "logical with unknown right", src: `1 && someValue;`},
		{name: "arrow function", src: `() => 1;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, expr := lastExpression(t, tt.src)
			_, ok := New(tree.Source).Evaluate(expr)
			assert.False(t, ok)
		})
	}
}

// lastReference parses src and returns the last identifier named name.
func lastReference(t *testing.T, src, name string) (*syntax.Tree, *sitter.Node) {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), "test.js", []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	require.Nil(t, tree.FirstError(), "fixture must parse: %s", src)

	var ref *sitter.Node
	syntax.Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Type() == syntax.NodeIdentifier && tree.Text(n) == name {
			ref = n
		}
		return true
	})
	require.NotNil(t, ref, "no reference to %s", name)
	return tree, ref
}

func TestEvaluate_Shadowing(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		want      any
		confident bool
	}{
		{name: "parameter", src: "const n = 1;\nfunction f(n) { return n; }"},
		{name: "arrow parameter", src: "const n = 1;\nconst g = n => n;"},
		{name: "destructured parameter", src: "const n = 1;\nfunction f({ n }) { return n; }"},
		{name: "default parameter", src: "const n = 1;\nfunction f(n = 2) { return n; }"},
		{name: "rest parameter", src: "const n = 1;\nfunction f(...n) { return n; }"},
		{name: "block let", src: "const n = 1;\n{ let n = Math.random(); use(n); }"},
		{name: "catch parameter", src: "const n = 1;\ntry { run(); } catch (n) { use(n); }"},
		{name: "for of binding", src: "const n = 1;\nfor (const n of items) { use(n); }"},
		{name: "for binding", src: "const n = 1;\nfor (let n = 0; n < 3; n++) { use(n); }"},
		{name: "hoisted var", src: "const n = 1;\nfunction f() { if (x) { var n = 2; } return n; }"},
		{name: "function declaration", src: "const n = 1;\n{ function n() {} use(n); }"},
		{name: "named function expression", src: "const n = 1;\nconst g = function n() { return n; };"},
		{name: "import", src: "import { n } from './n';\nuse(n);"},
		{name: "shadowed global", src: "function f(NaN) { return NaN; }"},
		{name: "outer const through unrelated function", src: "const n = 1;\nfunction f(m) { return n; }", want: 1.0, confident: true},
		{name: "inner const", src: "const n = 1;\nfunction f() { const n = 2; return n; }", want: 2.0, confident: true},
		{name: "sibling block let", src: "const n = 1;\n{ let n = 2; }\nuse(n);", want: 1.0, confident: true},
		{name: "default value is a reference", src: "const n = 1;\nfunction f({ m = n }) { return m; }", want: 1.0, confident: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := "n"
			if tt.name == "shadowed global" {
				ref = "NaN"
			}
			tree, expr := lastReference(t, tt.src, ref)
			got, ok := New(tree.Source).Evaluate(expr)
			require.Equal(t, tt.confident, ok)
			if tt.confident {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
