// Package diag defines the failure kinds a codegen site can end in, and renders them
// with enough context for a user to find the failing marker in their own source.
package diag

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies why a codegen site failed.
type Kind uint8

const (
	// None is the zero Kind and is never attached to a returned error.
	None Kind = 0

	// Evaluation means a marked expression has no statically known value.
	Evaluation Kind = 1

	// Resolution means a referenced module could not be located.
	Resolution Kind = 2

	// Execution means the executed snippet threw.
	Execution Kind = 3

	// Shape means the execution result does not fit the site's splice slot.
	Shape Kind = 4

	// Syntax means the input file itself could not be parsed.
	Syntax Kind = 5
)

func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case Evaluation:
		return "EvaluationError"
	case Resolution:
		return "ResolutionError"
	case Execution:
		return "ExecutionError"
	case Shape:
		return "ShapeError"
	case Syntax:
		return "SyntaxError"
	default:
		return "Unknown"
	}
}

// Sentinels usable with errors.Is against any *Error of the matching Kind.
var (
	ErrEvaluation = errors.New("evaluation error")
	ErrResolution = errors.New("resolution error")
	ErrExecution  = errors.New("execution error")
	ErrShape      = errors.New("shape error")
	ErrSyntax     = errors.New("syntax error")
)

func (k Kind) sentinel() error {
	switch k {
	case Evaluation:
		return ErrEvaluation
	case Resolution:
		return ErrResolution
	case Execution:
		return ErrExecution
	case Shape:
		return ErrShape
	case Syntax:
		return ErrSyntax
	default:
		return nil
	}
}

// Location is a 1-based position in a source file.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	b := strings.Builder{}
	b.WriteString(l.File)
	if l.Line != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(l.Line))
		if l.Column != 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(l.Column))
		}
	}
	return b.String()
}

// Error is the single error type returned for a failed codegen site.
type Error struct {
	Kind     Kind
	Location Location
	Keyword  string // directive keyword of the failing site
	Message  string
	Cause    error

	// Source is the text of Location.File, when known, used to render a code frame.
	Source []byte
}

func (e *Error) Error() string {
	b := strings.Builder{}
	if loc := e.Location.String(); loc != "" {
		b.WriteString(loc)
		b.WriteString(": ")
	}
	if e.Keyword != "" {
		b.WriteString(e.Keyword)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		if e.Message != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New returns an *Error without a cause.
func New(kind Kind, loc Location, keyword, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Location: loc,
		Keyword:  keyword,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap returns an *Error carrying cause. The cause's message is kept verbatim.
func Wrap(kind Kind, loc Location, keyword string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Location: loc,
		Keyword:  keyword,
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or None.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return None
}

// Attach fills in location, keyword and source on err when it is an *Error that lacks
// them. Errors of other types are wrapped as kind.
func Attach(err error, kind Kind, loc Location, keyword string, source []byte) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: kind, Location: loc, Keyword: keyword, Cause: err, Source: source}
	}
	if e.Location.File == "" {
		e.Location = loc
	}
	if e.Keyword == "" {
		e.Keyword = keyword
	}
	if e.Source == nil {
		e.Source = source
	}
	return e
}
