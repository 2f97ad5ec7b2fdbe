package execute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscodegen/go-codegen/internal/diag"
	"github.com/jscodegen/go-codegen/internal/testkit"
	"github.com/jscodegen/go-codegen/internal/value"
)

const project = `
-- /app/src/app.js --
// placeholder
-- /app/src/values.js --
module.exports = ['a', 'b'];
-- /app/src/esm.js --
import {join} from './helpers';
export const first = join('x', 'y');
export const second = 2;
-- /app/src/helpers.ts --
export function join(a: string, b: string): string {
  return a + '-' + b;
}
-- /app/src/lib/usehelper.js --
const double = require('./helper');
module.exports = (n) => double(n) + ' ' + __filename + ' ' + __dirname;
-- /app/src/lib/helper.js --
module.exports = (n) => n * 2;
-- /app/src/data.json --
{"name": "codegen", "tags": [1, 2]}
-- /app/src/template.txt --
const fromFile = true;
-- /app/node_modules/upper/index.js --
module.exports = (s) => s.toUpperCase();
`

func newRunner(t *testing.T) *GojaRunner {
	t.Helper()
	return NewGojaRunner(testkit.Load(t, project).Resolver())
}

func run(t *testing.T, code string, args ...any) (Result, error) {
	t.Helper()
	return newRunner(t).Run(context.Background(), code, "/app/src/app.js", args)
}

func TestGojaRunner_Results(t *testing.T) {
	obj := value.NewObject()
	obj.Set("a", 1.0)
	obj.Set("b", []any{true, nil})

	tests := []struct {
		name string
		code string
		args []any
		want Result
	}{
		{
			name: "module.exports string",
			code: "module.exports = 'const x = 1;'",
			want: Text("const x = 1;"),
		},
		{
			name: "top-level return",
			code: `return Array.from({length: 3}).map((_, i) => i).join(",")`,
			want: Text("0,1,2"),
		},
		{
			name: "array of strings",
			code: "module.exports = ['const a = 1;', 'const b = 2;']",
			want: Sequence{Text("const a = 1;"), Text("const b = 2;")},
		},
		{
			name: "plain data",
			code: "module.exports = {a: 1, b: [true, null]}",
			want: Node{Value: obj},
		},
		{
			name: "number",
			code: "module.exports = 1.5",
			want: Node{Value: 1.5},
		},
		{
			name: "function export receives args",
			code: "module.exports = (s, n) => s.repeat(n)",
			args: []any{"ab", 2.0},
			want: Text("abab"),
		},
		{
			name: "args ignored for values",
			code: "module.exports = 'fixed'",
			args: []any{"ignored"},
			want: Text("fixed"),
		},
		{
			name: "default export",
			code: "export default 'from default'",
			want: Text("from default"),
		},
		{
			name: "default function export",
			code: "export default function (x) { return `value: ${x.n}` }",
			args: []any{objectOf("n", 3.0)},
			want: Text("value: 3"),
		},
		{
			name: "relative require",
			code: "module.exports = require('./values').join('')",
			want: Text("ab"),
		},
		{
			name: "json require",
			code: "module.exports = require('./data.json').name",
			want: Text("codegen"),
		},
		{
			name: "package require",
			code: "module.exports = require('upper')('shout')",
			want: Text("SHOUT"),
		},
		{
			name: "fs and path builtins",
			code: "const fs = require('fs'); const path = require('path');\n" +
				"module.exports = fs.readFileSync(path.join(__dirname, 'template.txt'), 'utf8')",
			want: Text("const fromFile = true;\n"),
		},
		{
			name: "nested relative require",
			code: "module.exports = require('./lib/usehelper')(2)",
			want: Text("4 /app/src/lib/usehelper.js /app/src/lib"),
		},
		{
			name: "relative fs path",
			code: "const fs = require('fs'); module.exports = fs.existsSync('values.js') && fs.readFileSync('template.txt', 'utf8')",
			want: Text("const fromFile = true;\n"),
		},
		{
			name: "relative path.resolve",
			code: "module.exports = require('path').resolve('lib', 'helper.js')",
			want: Text("/app/src/lib/helper.js"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.code, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func objectOf(k string, v any) *value.Object {
	o := value.NewObject()
	o.Set(k, v)
	return o
}

func TestGojaRunner_ModuleShape(t *testing.T) {
	got, err := run(t, "module.exports = require('./esm')")
	require.NoError(t, err)

	mod, ok := got.(Module)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, []string{"first", "second"}, mod.Exports.Keys())
	first, _ := mod.Exports.Get("first")
	assert.Equal(t, "x-y", first)
}

func TestGojaRunner_TypeScriptOrigin(t *testing.T) {
	r := newRunner(t)
	got, err := r.Run(context.Background(), "const n: number = 4; module.exports = `n = ${n}`", "/app/src/app.ts", nil)
	require.NoError(t, err)
	assert.Equal(t, Text("n = 4"), got)
}

func TestGojaRunner_Isolation(t *testing.T) {
	r := newRunner(t)
	_, err := r.Run(context.Background(), "globalThis.leaked = 1; module.exports = ''", "/app/src/app.js", nil)
	require.NoError(t, err)

	got, err := r.Run(context.Background(), "module.exports = typeof leaked", "/app/src/app.js", nil)
	require.NoError(t, err)
	assert.Equal(t, Text("undefined"), got)
}

func TestGojaRunner_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		kind    diag.Kind
		message string
	}{
		{name: "thrown error", code: "throw new Error('boom')", kind: diag.Execution, message: "boom"},
		{name: "reference error", code: "module.exports = missing", kind: diag.Execution, message: "missing"},
		{name: "syntax error", code: "module.exports = (", kind: diag.Execution},
		{name: "missing module", code: "require('./nope')", kind: diag.Resolution, message: "./nope"},
		{name: "function result", code: "module.exports = {f() {}}", kind: diag.Shape, message: "function"},
		{name: "rejected promise", code: "module.exports = Promise.reject(new Error('no'))", kind: diag.Execution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.code)
			require.Error(t, err)
			assert.Equal(t, tt.kind, diag.KindOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestGojaRunner_ExceptionIsCause(t *testing.T) {
	_, err := run(t, "throw new TypeError('bad input')")
	require.Error(t, err)

	var de *diag.Error
	require.True(t, errors.As(err, &de))
	require.NotNil(t, de.Cause)
	assert.Contains(t, de.Cause.Error(), "TypeError: bad input")
}

func TestGojaRunner_Cancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newRunner(t).Run(ctx, "for (;;) {}", "/app/src/app.js", nil)
	require.Error(t, err)
	assert.Equal(t, diag.Execution, diag.KindOf(err))
}

func TestFuncRunner(t *testing.T) {
	var gotArgs []any
	r := FuncRunner(func(_ context.Context, code, origin string, args []any) (Result, error) {
		gotArgs = args
		return Text(code + "@" + origin), nil
	})
	res, err := r.Run(context.Background(), "x", "/f.js", []any{"a", 2.0})
	require.NoError(t, err)
	assert.Equal(t, Text("x@/f.js"), res)
	assert.Equal(t, []any{"a", 2.0}, gotArgs)
}

func TestFromValue(t *testing.T) {
	assert.Equal(t, Text("s"), FromValue("s"))
	assert.Equal(t, Sequence{Text("a"), Node{Value: 1.0}}, FromValue([]any{"a", 1.0}))
	assert.Equal(t, Node{Value: nil}, FromValue(nil))
}

var _ Runner = (*GojaRunner)(nil)

func TestParseTarget(t *testing.T) {
	for _, name := range []string{"", "es2015", "ES2020", "esnext"} {
		_, err := ParseTarget(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseTarget("es3")
	assert.ErrorContains(t, err, `unknown target "es3"`)
}

func TestGojaRunner_WithTarget(t *testing.T) {
	target, err := ParseTarget("esnext")
	require.NoError(t, err)
	r := NewGojaRunner(testkit.Load(t, project).Resolver(), WithTarget(target))

	got, err := r.Run(context.Background(), "const o = {a: {b: 'x'}};\nmodule.exports = o?.a?.b ?? 'none';", "/app/src/app.js", nil)
	require.NoError(t, err)
	assert.Equal(t, Text("x"), got)
}
