package execute

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dop251/goja"

	"github.com/jscodegen/go-codegen/internal/value"
)

// errUnsupported marks values that have no literal representation.
var errUnsupported = errors.New("unsupported value")

// maxDepth bounds conversion of self-referencing structures.
const maxDepth = 64

// toResult converts a module value into a Result. Objects flagged __esModule without a
// default export are module shapes.
func toResult(vm *goja.Runtime, v goja.Value) (Result, error) {
	if obj, ok := v.(*goja.Object); ok && isESModule(obj) {
		exports := value.NewObject()
		for _, k := range obj.Keys() {
			e, err := toLiteral(vm, obj.Get(k), 0)
			if err != nil {
				return nil, fmt.Errorf("export %q: %w", k, err)
			}
			exports.Set(k, e)
		}
		return Module{Exports: exports}, nil
	}
	lit, err := toLiteral(vm, v, 0)
	if err != nil {
		return nil, err
	}
	return FromValue(lit), nil
}

func isESModule(obj *goja.Object) bool {
	flag := obj.Get("__esModule")
	return flag != nil && flag.ToBoolean()
}

// toLiteral converts a JavaScript value into the value model.
func toLiteral(vm *goja.Runtime, v goja.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", errUnsupported, maxDepth)
	}
	if v == nil || goja.IsUndefined(v) {
		return value.Undefined{}, nil
	}
	if goja.IsNull(v) {
		return nil, nil
	}
	if _, ok := v.(*goja.Symbol); ok {
		return nil, fmt.Errorf("%w: symbol", errUnsupported)
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		switch x := v.Export().(type) {
		case bool:
			return x, nil
		case string:
			return x, nil
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		default:
			return nil, fmt.Errorf("%w: %s", errUnsupported, v.String())
		}
	}

	if _, isFn := goja.AssertFunction(obj); isFn {
		return nil, fmt.Errorf("%w: function", errUnsupported)
	}
	switch obj.ClassName() {
	case "Array":
		n := obj.Get("length").ToInteger()
		out := make([]any, 0, n)
		for i := int64(0); i < n; i++ {
			e, err := toLiteral(vm, obj.Get(strconv.FormatInt(i, 10)), depth+1)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, e)
		}
		return out, nil
	case "Object":
		out := value.NewObject()
		for _, k := range obj.Keys() {
			e, err := toLiteral(vm, obj.Get(k), depth+1)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", k, err)
			}
			out.Set(k, e)
		}
		return out, nil
	case "String", "Number", "Boolean":
		return toLiteral(vm, primitive(obj), depth)
	default:
		return nil, fmt.Errorf("%w: %s object", errUnsupported, obj.ClassName())
	}
}

// primitive unwraps a boxed String, Number or Boolean.
func primitive(obj *goja.Object) goja.Value {
	if valueOf, ok := goja.AssertFunction(obj.Get("valueOf")); ok {
		if v, err := valueOf(obj); err == nil {
			return v
		}
	}
	return goja.Undefined()
}

// toJS converts a value-model value into a JavaScript value.
func toJS(vm *goja.Runtime, v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case value.Undefined:
		return goja.Undefined()
	case []any:
		items := make([]any, len(x))
		for i, e := range x {
			items[i] = toJS(vm, e)
		}
		return vm.NewArray(items...)
	case *value.Object:
		obj := vm.NewObject()
		for _, k := range x.Keys() {
			e, _ := x.Get(k)
			_ = obj.Set(k, toJS(vm, e))
		}
		return obj
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 && !(x == 0 && math.Signbit(x)) {
			return vm.ToValue(int64(x))
		}
		return vm.ToValue(x)
	default:
		if n, ok := value.Number(v); ok {
			return vm.ToValue(n)
		}
		return vm.ToValue(v)
	}
}
