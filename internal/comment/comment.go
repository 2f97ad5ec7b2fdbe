package comment

import "github.com/jscodegen/go-codegen/internal/diag"

const (
	InfoHeader string = "CODEGEN INFO"
	WarnHeader string = "CODEGEN WARN"
)

// Info records a note about a processed codegen site for the console.
// The message is the main note, and additionalInfo is a list of optional
// lines that will be printed below it.
func Info(loc diag.Location, message string, additionalInfo ...string) {
	printer.Add(loc, InfoHeader, message, additionalInfo...)
}

// Warn records a warning about a codegen site that was left untouched.
func Warn(loc diag.Location, message string, additionalInfo ...string) {
	printer.Add(loc, WarnHeader, message, additionalInfo...)
}
