package evaluate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Unquote returns the value of a JavaScript string literal, quotes included in s.
func Unquote(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("invalid string literal %q", s)
	}
	q := s[0]
	if (q != '"' && q != '\'') || s[len(s)-1] != q {
		return "", fmt.Errorf("invalid string literal %q", s)
	}
	return Cook(s[1 : len(s)-1])
}

// Cook resolves the escape sequences of a string literal body or template segment.
func Cook(raw string) (string, error) {
	if !strings.Contains(raw, `\`) {
		return raw, nil
	}

	b := strings.Builder{}
	b.Grow(len(raw))
	var pending []uint16 // UTF-16 code units from \u escapes awaiting a surrogate pair

	flush := func() {
		if len(pending) > 0 {
			b.WriteString(string(utf16.Decode(pending)))
			pending = pending[:0]
		}
	}

	for i := 0; i < len(raw); {
		c := raw[i]
		if c != '\\' {
			flush()
			r, size := utf8.DecodeRuneInString(raw[i:])
			b.WriteRune(r)
			i += size
			continue
		}
		if i+1 >= len(raw) {
			return "", fmt.Errorf("unterminated escape sequence")
		}
		e := raw[i+1]
		i += 2
		switch e {
		case 'n':
			flush()
			b.WriteByte('\n')
		case 'r':
			flush()
			b.WriteByte('\r')
		case 't':
			flush()
			b.WriteByte('\t')
		case 'b':
			flush()
			b.WriteByte('\b')
		case 'f':
			flush()
			b.WriteByte('\f')
		case 'v':
			flush()
			b.WriteByte('\v')
		case '\n':
			flush()
		case '\r':
			flush()
			if i < len(raw) && raw[i] == '\n' {
				i++
			}
		case 'x':
			flush()
			if i+2 > len(raw) {
				return "", fmt.Errorf("invalid hexadecimal escape sequence")
			}
			v, err := strconv.ParseUint(raw[i:i+2], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid hexadecimal escape sequence")
			}
			b.WriteRune(rune(v))
			i += 2
		case 'u':
			var v uint64
			var err error
			if i < len(raw) && raw[i] == '{' {
				end := strings.IndexByte(raw[i:], '}')
				if end < 0 {
					return "", fmt.Errorf("invalid unicode escape sequence")
				}
				v, err = strconv.ParseUint(raw[i+1:i+end], 16, 32)
				i += end + 1
			} else {
				if i+4 > len(raw) {
					return "", fmt.Errorf("invalid unicode escape sequence")
				}
				v, err = strconv.ParseUint(raw[i:i+4], 16, 16)
				i += 4
			}
			if err != nil || v > utf8.MaxRune {
				return "", fmt.Errorf("invalid unicode escape sequence")
			}
			if v <= 0xFFFF {
				pending = append(pending, uint16(v))
			} else {
				flush()
				b.WriteRune(rune(v))
			}
		default:
			flush()
			if e >= '0' && e <= '7' {
				// \0 and legacy octal escapes
				j := i
				for j < len(raw) && j < i+2 && raw[j] >= '0' && raw[j] <= '7' {
					j++
				}
				v, _ := strconv.ParseUint(string(e)+raw[i:j], 8, 16)
				b.WriteRune(rune(v))
				i = j
				continue
			}
			r, size := utf8.DecodeRuneInString(raw[i-1:])
			if r == '\u2028' || r == '\u2029' {
				i += size - 1
				continue
			}
			b.WriteRune(r)
			i += size - 1
		}
	}
	flush()
	return b.String(), nil
}

// ParseNumber returns the value of a JavaScript numeric literal. BigInt literals are
// rejected.
func ParseNumber(text string) (float64, error) {
	s := strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(s, "n") {
		return 0, fmt.Errorf("bigint literal %s has no number value", text)
	}
	lower := strings.ToLower(s)
	if len(lower) > 1 && lower[0] == '0' && strings.ContainsAny(lower[1:2], "xob01234567") {
		if v, err := strconv.ParseUint(lower, 0, 64); err == nil {
			return float64(v), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number literal %s", text)
	}
	return f, nil
}
