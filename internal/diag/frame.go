package diag

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// frameContext is the number of lines shown above and below the failing line.
const frameContext = 2

// Frame renders the lines around loc with a gutter and a caret under loc's column.
//
//	  2 | const a = 1
//	> 3 | const b = codegen`${a}`
//	    |           ^
//	  4 | export default b
func Frame(w io.Writer, source []byte, loc Location, colored bool) {
	if loc.Line <= 0 || len(source) == 0 {
		return
	}

	mark := color.New(color.FgRed, color.Bold)
	gutter := color.New(color.Faint)
	if colored {
		mark.EnableColor()
		gutter.EnableColor()
	} else {
		mark.DisableColor()
		gutter.DisableColor()
	}

	lines := strings.Split(string(source), "\n")
	if loc.Line > len(lines) {
		return
	}
	first := max(1, loc.Line-frameContext)
	last := min(len(lines), loc.Line+frameContext)
	width := len(strconv.Itoa(last))

	for n := first; n <= last; n++ {
		number := fmt.Sprintf("%*d |", width, n)
		text := strings.TrimRight(lines[n-1], "\r")
		if n != loc.Line {
			fmt.Fprintf(w, "  %s %s\n", gutter.Sprint(number), text)
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", mark.Sprint(">"), gutter.Sprint(number), text)
		if loc.Column > 0 {
			pad := strings.Repeat(" ", width)
			indent := caretIndent(text, loc.Column)
			fmt.Fprintf(w, "  %s %s%s\n", gutter.Sprint(pad+" |"), indent, mark.Sprint("^"))
		}
	}
}

// caretIndent keeps tabs from the source line so the caret lines up in a terminal.
func caretIndent(line string, column int) string {
	b := strings.Builder{}
	for i, r := range line {
		if i >= column-1 {
			break
		}
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Render writes err's message and, when err is an *Error with source attached, its
// code frame.
func Render(w io.Writer, err error, colored bool) {
	if err == nil {
		return
	}
	var e *Error
	if !errors.As(err, &e) {
		fmt.Fprintln(w, err.Error())
		return
	}
	label := color.New(color.FgRed, color.Bold)
	if colored {
		label.EnableColor()
	} else {
		label.DisableColor()
	}
	fmt.Fprintf(w, "%s %s\n", label.Sprint(e.Kind.String()+":"), e.Error())
	Frame(w, e.Source, e.Location, colored)
}
