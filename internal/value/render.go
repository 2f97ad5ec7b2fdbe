package value

import (
	"fmt"
	"strings"
)

// Render returns JavaScript source for a literal expression that evaluates to v.
func Render(v any) (string, error) {
	b := strings.Builder{}
	if err := render(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func render(b *strings.Builder, v any) error {
	if n, ok := Number(v); ok {
		b.WriteString(FormatNumber(n))
		return nil
	}
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case Undefined:
		b.WriteString("undefined")
	case bool:
		if x {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		b.WriteString(Quote(x))
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := render(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case *Object:
		if x.Len() == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteString("{ ")
		for i, k := range x.Keys() {
			if i > 0 {
				b.WriteString(", ")
			}
			if IsIdentifier(k) {
				b.WriteString(k)
			} else {
				b.WriteString(Quote(k))
			}
			b.WriteString(": ")
			e, _ := x.Get(k)
			if err := render(b, e); err != nil {
				return err
			}
		}
		b.WriteString(" }")
	default:
		return fmt.Errorf("cannot render %T as a literal", v)
	}
	return nil
}

// Quote returns s as a double-quoted JavaScript string literal.
func Quote(s string) string {
	b := strings.Builder{}
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\v':
			b.WriteString(`\v`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// IsIdentifier reports whether s can be written as a bare property name or binding.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return !reserved[s]
}

var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "export": true, "extends": true, "false": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "new": true, "null": true, "return": true, "super": true,
	"switch": true, "this": true, "throw": true, "true": true, "try": true,
	"typeof": true, "var": true, "void": true, "while": true, "with": true,
	"let": true, "static": true, "yield": true, "await": true, "enum": true,
}
