// Package execute runs codegen snippets at build time and reports their value as a
// Result.
package execute

import (
	"context"

	"github.com/jscodegen/go-codegen/internal/value"
)

// Runner runs snippet code as a module rooted at originFile. When the module's value is
// a function it is called with args; otherwise args are ignored.
//
// Implementations must honor ctx cancellation. Errors raised by the code itself are
// returned wrapped in a diag ExecutionError whose cause is the original exception.
type Runner interface {
	Run(ctx context.Context, code, originFile string, args []any) (Result, error)
}

// FuncRunner adapts a function to the Runner interface.
type FuncRunner func(ctx context.Context, code, originFile string, args []any) (Result, error)

// Run calls f.
func (f FuncRunner) Run(ctx context.Context, code, originFile string, args []any) (Result, error) {
	return f(ctx, code, originFile, args)
}

// Result is the value produced by a snippet. It is one of Text, Node, Sequence or
// Module.
type Result interface {
	isResult()
}

// Text is source text to be parsed in the context of the site.
type Text string

// Node is structured literal data in the value model, spliced as a literal.
type Node struct {
	Value any
}

// Sequence is an ordered list of results.
type Sequence []Result

// Module is a module shape: named exports in declaration order.
type Module struct {
	Exports *value.Object
}

func (Text) isResult()     {}
func (Node) isResult()     {}
func (Sequence) isResult() {}
func (Module) isResult()   {}

// FromValue converts a value-model value into a Result: strings become Text, arrays a
// Sequence of converted elements, anything else a Node.
func FromValue(v any) Result {
	switch x := v.(type) {
	case string:
		return Text(x)
	case []any:
		seq := make(Sequence, len(x))
		for i, e := range x {
			seq[i] = FromValue(e)
		}
		return seq
	default:
		return Node{Value: v}
	}
}

// ToValue converts a Result back into the value model.
func ToValue(r Result) any {
	switch x := r.(type) {
	case Text:
		return string(x)
	case Node:
		return x.Value
	case Sequence:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToValue(e)
		}
		return out
	case Module:
		return x.Exports
	default:
		return value.Undefined{}
	}
}

// Describe names the shape of r for error messages.
func Describe(r Result) string {
	switch x := r.(type) {
	case Text:
		return "text"
	case Node:
		return value.TypeOf(x.Value) + " value"
	case Sequence:
		return "sequence"
	case Module:
		return "module"
	case nil:
		return "nothing"
	default:
		return "unknown result"
	}
}
