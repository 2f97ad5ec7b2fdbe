package execute

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/evanw/esbuild/pkg/api"
	"goa.design/clue/log"

	"github.com/jscodegen/go-codegen/internal/diag"
	"github.com/jscodegen/go-codegen/internal/resolve"
	"github.com/jscodegen/go-codegen/internal/value"
)

// requireHook is the global through which every module's require is routed to the
// resolver.
const requireHook = "__codegen_require"

// GojaRunner executes snippets in a fresh goja runtime per run. Module code is
// compiled to CommonJS with esbuild; nested requires are resolved by the resolver and
// loaded through a goja_nodejs registry reading the resolver's file system.
type GojaRunner struct {
	resolver *resolve.Resolver
	target   api.Target
}

// Option configures a GojaRunner.
type Option func(*GojaRunner)

// WithTarget sets the language level snippets and their modules are lowered to.
func WithTarget(t api.Target) Option {
	return func(g *GojaRunner) {
		g.target = t
	}
}

// NewGojaRunner returns a runner resolving modules with res.
func NewGojaRunner(res *resolve.Resolver, opts ...Option) *GojaRunner {
	g := &GojaRunner{resolver: res, target: api.ES2015}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run implements Runner.
func (g *GojaRunner) Run(ctx context.Context, code, originFile string, args []any) (Result, error) {
	compiled, err := compile(code, originFile, g.target)
	if err != nil {
		return nil, diag.Wrap(diag.Execution, diag.Location{}, "", err, "")
	}

	x := g.newExecution(ctx, originFile)
	stop := context.AfterFunc(ctx, func() {
		x.vm.Interrupt(ctx.Err())
	})
	defer stop()

	v, err := x.run(compiled, args)
	if err != nil {
		return nil, x.classify(err)
	}

	res, err := toResult(x.vm, v)
	if err != nil {
		return nil, diag.Wrap(diag.Shape, diag.Location{}, "", err, "snippet produced a value that cannot be spliced")
	}
	return res, nil
}

// classify wraps a failure raised while running a snippet. An uncaught failure to
// resolve a require is a resolution error; the exception stays the cause.
func (x *execution) classify(err error) error {
	var de *diag.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, resolve.ErrModuleNotFound) ||
		(x.unresolved != nil && strings.Contains(err.Error(), x.unresolved.Error())) {
		return diag.Wrap(diag.Resolution, diag.Location{}, "", err, "")
	}
	return diag.Wrap(diag.Execution, diag.Location{}, "", err, "")
}

// execution is the state of one run.
type execution struct {
	ctx      context.Context
	origin   string
	vm       *goja.Runtime
	modules  *require.RequireModule
	resolver *resolve.Resolver
	builtins map[string]require.ModuleLoader
	target   api.Target

	// unresolved is the last require that could not be resolved.
	unresolved error
}

func (g *GojaRunner) newExecution(ctx context.Context, origin string) *execution {
	x := &execution{
		ctx:      ctx,
		origin:   origin,
		vm:       goja.New(),
		resolver: g.resolver,
		builtins: builtinModules(g.resolver, path.Dir(origin)),
		target:   g.target,
	}

	registry := require.NewRegistry(require.WithLoader(x.load))
	for name, loader := range x.builtins {
		registry.RegisterNativeModule(name, loader)
	}
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(printer{ctx: ctx, origin: origin}))
	x.modules = registry.Enable(x.vm)
	console.Enable(x.vm)

	_ = x.vm.Set(requireHook, func(call goja.FunctionCall) goja.Value {
		return x.vm.ToValue(x.requireFrom(call.Argument(0).String()))
	})
	return x
}

// run evaluates the root module and returns its value, applying ES module interop and
// calling function exports with args.
func (x *execution) run(compiled string, args []any) (goja.Value, error) {
	wrapped := "(function (exports, require, module, __filename, __dirname) {" + compiled + "\n})"
	prog, err := goja.Compile(x.origin, wrapped, false)
	if err != nil {
		return nil, err
	}
	fnValue, err := x.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return nil, fmt.Errorf("module wrapper of %s is not a function", x.origin)
	}

	module := x.vm.NewObject()
	exports := x.vm.NewObject()
	_ = module.Set("exports", exports)
	dir := path.Dir(x.origin)

	ret, err := fn(goja.Undefined(), exports, x.vm.ToValue(x.requireFrom(dir)), module, x.vm.ToValue(x.origin), x.vm.ToValue(dir))
	if err != nil {
		return nil, err
	}

	v := ret
	if v == nil || goja.IsUndefined(v) {
		v = module.Get("exports")
	}
	if obj, ok := v.(*goja.Object); ok && isESModule(obj) {
		if def := obj.Get("default"); def != nil && !goja.IsUndefined(def) {
			v = def
		}
	}

	if f, ok := goja.AssertFunction(v); ok {
		jsArgs := make([]goja.Value, len(args))
		for i, a := range args {
			jsArgs[i] = toJS(x.vm, a)
		}
		v, err = f(goja.Undefined(), jsArgs...)
		if err != nil {
			return nil, err
		}
	}
	return settle(v)
}

// settle unwraps a promise that has already settled.
func settle(v goja.Value) (goja.Value, error) {
	if v == nil {
		return v, nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("snippet promise rejected: %s", p.Result().String())
	default:
		return nil, errors.New("snippet returned a promise that never settled")
	}
}

// requireFrom returns the require function for modules in dir.
func (x *execution) requireFrom(dir string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		v, err := x.require(call.Argument(0).String(), dir)
		if err != nil {
			panic(x.vm.NewGoError(err))
		}
		return v
	}
}

func (x *execution) require(request, dir string) (goja.Value, error) {
	if name := builtinName(request); x.builtins[name] != nil || name == console.ModuleName {
		return x.modules.Require(name)
	}
	abs, err := x.resolver.Resolve(request, dir)
	if err != nil {
		x.unresolved = err
		return nil, err
	}
	log.Debug(x.ctx, log.KV{K: "msg", V: "require"}, log.KV{K: "request", V: request}, log.KV{K: "file", V: abs})
	return x.modules.Require(abs)
}

// load is the registry's source loader. JavaScript and TypeScript sources are
// compiled and prefixed with modulePrelude; JSON is returned as is.
func (x *execution) load(name string) ([]byte, error) {
	data, err := x.resolver.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDir(x.resolver, name) {
			return nil, require.ModuleFileDoesNotExistError
		}
		return nil, err
	}
	if strings.EqualFold(path.Ext(name), ".json") {
		return data, nil
	}
	compiled, err := compile(string(data), name, x.target)
	if err != nil {
		return nil, err
	}
	return []byte(modulePrelude(name) + compiled), nil
}

// modulePrelude defines the CommonJS file globals the registry's wrapper leaves out
// and rebinds require to resolve from the module's directory. It stays on the first
// line so compiled positions are unchanged.
func modulePrelude(name string) string {
	return "var __filename = " + value.Quote(name) + ", __dirname = " + value.Quote(path.Dir(name)) +
		"; require = " + requireHook + "(__dirname); "
}

func isDir(res *resolve.Resolver, name string) bool {
	info, err := res.Stat(name)
	return err == nil && info.IsDir()
}

// printer forwards snippet console output to the structured log.
type printer struct {
	ctx    context.Context
	origin string
}

func (p printer) Log(s string) {
	log.Info(p.ctx, log.KV{K: "msg", V: s}, log.KV{K: "snippet", V: p.origin})
}

func (p printer) Warn(s string) {
	log.Warn(p.ctx, log.KV{K: "msg", V: s}, log.KV{K: "snippet", V: p.origin})
}

func (p printer) Error(s string) {
	log.Error(p.ctx, nil, log.KV{K: "msg", V: s}, log.KV{K: "snippet", V: p.origin})
}
