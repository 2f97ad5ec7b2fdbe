package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCook(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: "abc", want: "abc"},
		{name: "simple escapes", raw: `a\nb\tc\\d`, want: "a\nb\tc\\d"},
		{name: "escaped quotes", raw: `\'\"`, want: `'"`},
		{name: "hex", raw: `\x41`, want: "A"},
		{name: "unicode", raw: `\u00e9`, want: "\u00e9"},
		{name: "code point", raw: `\u{1F600}`, want: "😀"},
		{name: "surrogate pair", raw: `\ud83d\ude00`, want: "\U0001F600"},
		{name: "null escape", raw: `a\0b`, want: "a\x00b"},
		{name: "legacy octal", raw: `\101`, want: "A"},
		{name: "line continuation", raw: "a\\\nb", want: "ab"},
		{name: "identity escape", raw: `\q`, want: "q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cook(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCook_Invalid(t *testing.T) {
	for _, raw := range []string{`\x4`, `\uZZZZ`, `\u{110000}`, `trailing\`} {
		_, err := Cook(raw)
		assert.Error(t, err, raw)
	}
}

func TestUnquote(t *testing.T) {
	got, err := Unquote(`"it's"`)
	require.NoError(t, err)
	assert.Equal(t, "it's", got)

	_, err = Unquote("`template`")
	assert.Error(t, err)
	_, err = Unquote(`"unterminated`)
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{text: "0", want: 0},
		{text: "3.25", want: 3.25},
		{text: ".5", want: 0.5},
		{text: "1e3", want: 1000},
		{text: "0x1F", want: 31},
		{text: "0o17", want: 15},
		{text: "0b101", want: 5},
		{text: "017", want: 15},
		{text: "089", want: 89},
		{text: "1_000_000", want: 1e6},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseNumber(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseNumber("10n")
	assert.Error(t, err)
}
