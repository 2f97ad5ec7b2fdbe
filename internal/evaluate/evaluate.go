// Package evaluate computes the value of expressions that are fully determined at
// compile time: literals, templates and operators over them, and const bindings with
// such initializers. An expression that depends on anything else, including a name
// shadowed by a parameter or a let, is not confident.
package evaluate

import (
	"math"
	"strings"
	"unicode/utf16"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jscodegen/go-codegen/internal/site"
	"github.com/jscodegen/go-codegen/internal/syntax"
	"github.com/jscodegen/go-codegen/internal/value"
)

// Evaluator evaluates expressions of one source file.
type Evaluator struct {
	src []byte

	// resolving guards against cycles through const bindings.
	resolving map[site.Key]bool
}

// New returns an Evaluator over src.
func New(src []byte) *Evaluator {
	return &Evaluator{src: src, resolving: map[site.Key]bool{}}
}

// Evaluate returns n's value and whether it is known with confidence.
func (e *Evaluator) Evaluate(n *sitter.Node) (any, bool) {
	if n == nil {
		return nil, false
	}

	switch n.Type() {
	case syntax.NodeString:
		s, err := Unquote(n.Content(e.src))
		return s, err == nil
	case syntax.NodeTemplateString:
		return e.template(n)
	case syntax.NodeNumber:
		f, err := ParseNumber(n.Content(e.src))
		return f, err == nil
	case syntax.NodeTrue:
		return true, true
	case syntax.NodeFalse:
		return false, true
	case syntax.NodeNull:
		return nil, true
	case syntax.NodeUndefined:
		return value.Undefined{}, true
	case syntax.NodeIdentifier:
		return e.identifier(n)
	case syntax.NodeParenthesized:
		inner := syntax.Expressions(n)
		if len(inner) != 1 {
			return nil, false
		}
		return e.Evaluate(inner[0])
	case syntax.NodeUnary:
		return e.unary(n)
	case syntax.NodeBinary:
		return e.binary(n)
	case syntax.NodeArray:
		return e.array(n)
	case syntax.NodeObject:
		return e.object(n)
	case syntax.NodeMemberExpression:
		return e.member(n)
	default:
		return nil, false
	}
}

// template evaluates a template literal, substituting confident expressions.
func (e *Evaluator) template(n *sitter.Node) (any, bool) {
	start, end := syntax.Start(n)+1, syntax.End(n)-1
	b := strings.Builder{}
	cursor := start
	for _, c := range syntax.NamedChildren(n) {
		if c.Type() != syntax.NodeTemplateSubstitution {
			continue
		}
		seg, err := Cook(string(e.src[cursor:syntax.Start(c)]))
		if err != nil {
			return nil, false
		}
		b.WriteString(seg)

		exprs := syntax.Expressions(c)
		if len(exprs) != 1 {
			return nil, false
		}
		v, ok := e.Evaluate(exprs[0])
		if !ok {
			return nil, false
		}
		b.WriteString(value.ToString(v))
		cursor = syntax.End(c)
	}
	if cursor > end {
		return nil, false
	}
	seg, err := Cook(string(e.src[cursor:end]))
	if err != nil {
		return nil, false
	}
	b.WriteString(seg)
	return b.String(), true
}

func (e *Evaluator) identifier(n *sitter.Node) (any, bool) {
	name := n.Content(e.src)
	init, declared := e.binding(n, name)
	if init != nil {
		key := site.KeyOf(init)
		if e.resolving[key] {
			return nil, false
		}
		e.resolving[key] = true
		defer delete(e.resolving, key)
		return e.Evaluate(init)
	}
	if declared {
		return nil, false
	}

	switch name {
	case "undefined":
		return value.Undefined{}, true
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		return math.Inf(1), true
	}
	return nil, false
}

func (e *Evaluator) unary(n *sitter.Node) (any, bool) {
	op := n.ChildByFieldName("operator")
	arg := n.ChildByFieldName("argument")
	if op == nil || arg == nil {
		return nil, false
	}
	v, ok := e.Evaluate(arg)
	if !ok {
		return nil, false
	}
	switch op.Content(e.src) {
	case "-":
		return -value.ToNumber(v), true
	case "+":
		return value.ToNumber(v), true
	case "!":
		return !value.Truthy(v), true
	case "~":
		return float64(^toInt32(value.ToNumber(v))), true
	case "typeof":
		return value.TypeOf(v), true
	case "void":
		return value.Undefined{}, true
	default:
		return nil, false
	}
}

func (e *Evaluator) binary(n *sitter.Node) (any, bool) {
	opNode := n.ChildByFieldName("operator")
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if opNode == nil || left == nil || right == nil {
		return nil, false
	}
	op := opNode.Content(e.src)

	l, lok := e.Evaluate(left)
	if !lok {
		return nil, false
	}
	switch op {
	case "&&":
		if !value.Truthy(l) {
			return l, true
		}
		return e.Evaluate(right)
	case "||":
		if value.Truthy(l) {
			return l, true
		}
		return e.Evaluate(right)
	case "??":
		if !value.IsNullish(l) {
			return l, true
		}
		return e.Evaluate(right)
	}

	r, rok := e.Evaluate(right)
	if !rok {
		return nil, false
	}
	return applyBinary(op, l, r)
}

func applyBinary(op string, l, r any) (any, bool) {
	switch op {
	case "+":
		if isStringish(l) || isStringish(r) {
			return value.ToString(l) + value.ToString(r), true
		}
		return value.ToNumber(l) + value.ToNumber(r), true
	case "-":
		return value.ToNumber(l) - value.ToNumber(r), true
	case "*":
		return value.ToNumber(l) * value.ToNumber(r), true
	case "/":
		return value.ToNumber(l) / value.ToNumber(r), true
	case "%":
		return math.Mod(value.ToNumber(l), value.ToNumber(r)), true
	case "**":
		return math.Pow(value.ToNumber(l), value.ToNumber(r)), true
	case "===":
		return value.StrictEqual(l, r), true
	case "!==":
		return !value.StrictEqual(l, r), true
	case "==":
		return value.LooseEqual(l, r), true
	case "!=":
		return !value.LooseEqual(l, r), true
	case "<", ">", "<=", ">=":
		return compare(op, l, r), true
	case "&":
		return float64(toInt32(value.ToNumber(l)) & toInt32(value.ToNumber(r))), true
	case "|":
		return float64(toInt32(value.ToNumber(l)) | toInt32(value.ToNumber(r))), true
	case "^":
		return float64(toInt32(value.ToNumber(l)) ^ toInt32(value.ToNumber(r))), true
	case "<<":
		return float64(toInt32(value.ToNumber(l)) << (uint32(toInt32(value.ToNumber(r))) & 31)), true
	case ">>":
		return float64(toInt32(value.ToNumber(l)) >> (uint32(toInt32(value.ToNumber(r))) & 31)), true
	case ">>>":
		return float64(uint32(toInt32(value.ToNumber(l))) >> (uint32(toInt32(value.ToNumber(r))) & 31)), true
	default:
		return nil, false
	}
}

// isStringish reports whether v converts to a string under the + operator.
func isStringish(v any) bool {
	switch v.(type) {
	case string, []any, *value.Object:
		return true
	}
	return false
}

func compare(op string, l, r any) bool {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs
		case ">":
			return ls > rs
		case "<=":
			return ls <= rs
		default:
			return ls >= rs
		}
	}
	a, b := value.ToNumber(l), value.ToNumber(r)
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	default:
		return a >= b
	}
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(math.Trunc(math.Mod(f, 1<<32)))))
}

func (e *Evaluator) array(n *sitter.Node) (any, bool) {
	out := []any{}
	for _, c := range syntax.Expressions(n) {
		v, ok := e.Evaluate(c)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

func (e *Evaluator) object(n *sitter.Node) (any, bool) {
	obj := value.NewObject()
	for _, c := range syntax.Expressions(n) {
		switch c.Type() {
		case syntax.NodePair:
			key, ok := e.propertyKey(c.ChildByFieldName("key"))
			if !ok {
				return nil, false
			}
			v, ok := e.Evaluate(c.ChildByFieldName("value"))
			if !ok {
				return nil, false
			}
			obj.Set(key, v)
		case syntax.NodeShorthandProperty:
			name := c.Content(e.src)
			init, _ := e.binding(c, name)
			if init == nil {
				return nil, false
			}
			v, ok := e.Evaluate(init)
			if !ok {
				return nil, false
			}
			obj.Set(name, v)
		default:
			return nil, false
		}
	}
	return obj, true
}

func (e *Evaluator) propertyKey(k *sitter.Node) (string, bool) {
	if k == nil {
		return "", false
	}
	switch k.Type() {
	case syntax.NodePropertyIdentifier:
		return k.Content(e.src), true
	case syntax.NodeComputedProperty:
		inner := syntax.Expressions(k)
		if len(inner) != 1 {
			return "", false
		}
		v, ok := e.Evaluate(inner[0])
		return value.ToString(v), ok
	default:
		v, ok := e.Evaluate(k)
		return value.ToString(v), ok
	}
}

// member evaluates property reads on confident strings, arrays and objects.
func (e *Evaluator) member(n *sitter.Node) (any, bool) {
	prop := n.ChildByFieldName("property")
	if prop == nil || prop.Type() != syntax.NodePropertyIdentifier {
		return nil, false
	}
	obj, ok := e.Evaluate(n.ChildByFieldName("object"))
	if !ok {
		return nil, false
	}
	name := prop.Content(e.src)
	switch o := obj.(type) {
	case string:
		if name == "length" {
			return float64(len(utf16.Encode([]rune(o)))), true
		}
	case []any:
		if name == "length" {
			return float64(len(o)), true
		}
	case *value.Object:
		if v, ok := o.Get(name); ok {
			return v, true
		}
		return value.Undefined{}, true
	}
	return nil, false
}
