// Package value is the literal data model shared by static evaluation, snippet
// execution and result rendering.
//
// A value is one of: nil (JavaScript null), Undefined, bool, float64, string, []any, or
// *Object. Integers of Go kinds are accepted wherever a value is read and treated as
// float64.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Undefined is JavaScript's undefined.
type Undefined struct{}

// Object is a JavaScript object with insertion-ordered keys.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: map[string]any{}}
}

// Set adds or overwrites key. Overwriting keeps the key's original position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return o.keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Number converts Go numeric kinds to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// TypeOf returns the result of JavaScript's typeof operator.
func TypeOf(v any) string {
	if _, ok := Number(v); ok {
		return "number"
	}
	switch v.(type) {
	case Undefined:
		return "undefined"
	case bool:
		return "boolean"
	case string:
		return "string"
	default:
		return "object"
	}
}

// Truthy implements JavaScript's ToBoolean.
func Truthy(v any) bool {
	if n, ok := Number(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	switch x := v.(type) {
	case nil, Undefined:
		return false
	case bool:
		return x
	case string:
		return x != ""
	default:
		return true
	}
}

// ToNumber implements JavaScript's ToNumber for primitive values.
func ToNumber(v any) float64 {
	if n, ok := Number(v); ok {
		return n
	}
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		if i, err := strconv.ParseInt(s, 0, 64); err == nil && strings.HasPrefix(strings.ToLower(s), "0") {
			return float64(i)
		}
		return math.NaN()
	case []any:
		switch len(x) {
		case 0:
			return 0
		case 1:
			return ToNumber(ToString(x[0]))
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

// ToString implements JavaScript's ToString for the value model.
func ToString(v any) string {
	if n, ok := Number(v); ok {
		return FormatNumber(n)
	}
	switch x := v.(type) {
	case nil:
		return "null"
	case Undefined:
		return "undefined"
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			switch e.(type) {
			case nil, Undefined:
			default:
				parts[i] = ToString(e)
			}
		}
		return strings.Join(parts, ",")
	case *Object:
		return "[object Object]"
	default:
		return fmt.Sprint(x)
	}
}

// FormatNumber formats f the way JavaScript's Number.prototype.toString does.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// StrictEqual implements JavaScript's === for the value model. Arrays and objects
// compare by identity.
func StrictEqual(a, b any) bool {
	an, aok := Number(a)
	bn, bok := Number(b)
	if aok || bok {
		return aok && bok && an == bn
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		return ok && len(x) == len(y) && (len(x) == 0 || &x[0] == &y[0])
	}
	return false
}

// LooseEqual implements JavaScript's == for primitive values.
func LooseEqual(a, b any) bool {
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}
	if TypeOf(a) == TypeOf(b) {
		return StrictEqual(a, b)
	}
	return ToNumber(a) == ToNumber(b)
}

// IsNullish reports whether v is null or undefined.
func IsNullish(v any) bool {
	switch v.(type) {
	case nil, Undefined:
		return true
	}
	return false
}
