package comment

import (
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jscodegen/go-codegen/internal/diag"
)

type ConsolePrinter struct {
	appRoot string

	mu       sync.Mutex
	comments []string
}

// initialize this if you want to use it at the start of the program
var printer *ConsolePrinter

func EnableConsolePrinter(applicationPath string) {
	printer = &ConsolePrinter{
		appRoot: filepath.Base(applicationPath),
	}
}

// DisableConsolePrinter drops the printer and anything it buffered.
func DisableConsolePrinter() {
	printer = nil
}

func WriteAll() {
	if printer != nil {
		printer.Flush()
	}
}

// Add appends a new note to the buffered console output. It is safe to call from
// goroutines transforming different files.
// The message is the main note, and additionalInfo is a list of optional
// lines that will be printed below it.
func (p *ConsolePrinter) Add(loc diag.Location, header, message string, additionalInfo ...string) {
	if p == nil {
		return
	}

	pos := getPosition(loc, p.appRoot)

	b := strings.Builder{}
	b.WriteString(header)
	b.WriteByte(':')
	b.WriteByte(' ')

	if pos != "" {
		b.WriteString(pos)
		b.WriteByte(' ')
	}
	b.WriteString(message)
	for _, info := range additionalInfo {
		b.WriteString("\n\t")
		b.WriteString(info)
	}

	p.mu.Lock()
	p.comments = append(p.comments, b.String())
	p.mu.Unlock()
}

// Flush logs all the buffered notes.
func (p *ConsolePrinter) Flush() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.comments {
		log.Println(c)
	}
	p.comments = []string{}
}
