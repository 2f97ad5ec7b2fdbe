package execute

import (
	"path"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/jscodegen/go-codegen/internal/resolve"
)

// builtinModules are the core modules snippets may require besides console. They
// read through the resolver's file system, so tests see the same in-memory project.
// Relative paths resolve against cwd, the directory of the file being transformed.
func builtinModules(res *resolve.Resolver, cwd string) map[string]require.ModuleLoader {
	return map[string]require.ModuleLoader{
		"fs":   fsModule(res, cwd),
		"path": pathModule(cwd),
	}
}

func absolute(cwd, name string) string {
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(cwd, name)
}

// builtinName maps a request to a core module name, accepting the node: scheme.
func builtinName(request string) string {
	return strings.TrimPrefix(request, "node:")
}

func fsModule(res *resolve.Resolver, cwd string) require.ModuleLoader {
	return func(vm *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)

		_ = exports.Set("readFileSync", func(call goja.FunctionCall) goja.Value {
			data, err := res.ReadFile(absolute(cwd, call.Argument(0).String()))
			if err != nil {
				panic(vm.NewGoError(err))
			}
			if encoding(call.Argument(1)) == "" {
				return vm.ToValue(vm.NewArrayBuffer(data))
			}
			return vm.ToValue(string(data))
		})

		_ = exports.Set("existsSync", func(call goja.FunctionCall) goja.Value {
			_, err := res.Stat(absolute(cwd, call.Argument(0).String()))
			return vm.ToValue(err == nil)
		})

		_ = exports.Set("readdirSync", func(call goja.FunctionCall) goja.Value {
			entries, err := res.ReadDir(absolute(cwd, call.Argument(0).String()))
			if err != nil {
				panic(vm.NewGoError(err))
			}
			names := make([]any, len(entries))
			for i, e := range entries {
				names[i] = e.Name()
			}
			return vm.NewArray(names...)
		})
	}
}

// encoding returns the encoding named by a readFileSync options argument.
func encoding(opt goja.Value) string {
	if opt == nil || goja.IsUndefined(opt) || goja.IsNull(opt) {
		return ""
	}
	if obj, ok := opt.(*goja.Object); ok {
		enc := obj.Get("encoding")
		if enc == nil || goja.IsUndefined(enc) || goja.IsNull(enc) {
			return ""
		}
		return enc.String()
	}
	return opt.String()
}

func pathModule(cwd string) require.ModuleLoader {
	return func(vm *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)

		strs := func(call goja.FunctionCall) []string {
			out := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				out[i] = a.String()
			}
			return out
		}

		_ = exports.Set("sep", "/")
		_ = exports.Set("join", func(call goja.FunctionCall) goja.Value {
			joined := path.Join(strs(call)...)
			if joined == "" {
				joined = "."
			}
			return vm.ToValue(joined)
		})
		_ = exports.Set("resolve", func(call goja.FunctionCall) goja.Value {
			resolved := cwd
			for _, p := range strs(call) {
				if path.IsAbs(p) {
					resolved = p
				} else {
					resolved = path.Join(resolved, p)
				}
			}
			return vm.ToValue(path.Clean(resolved))
		})
		_ = exports.Set("dirname", func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(path.Dir(call.Argument(0).String()))
		})
		_ = exports.Set("basename", func(call goja.FunctionCall) goja.Value {
			base := path.Base(call.Argument(0).String())
			if ext := call.Argument(1); !goja.IsUndefined(ext) {
				base = strings.TrimSuffix(base, ext.String())
			}
			return vm.ToValue(base)
		})
		_ = exports.Set("extname", func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(path.Ext(call.Argument(0).String()))
		})
		_ = exports.Set("isAbsolute", func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(path.IsAbs(call.Argument(0).String()))
		})
	}
}
