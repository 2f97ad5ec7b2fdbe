package comment

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jscodegen/go-codegen/internal/diag"
)

// getPosition creates a human readable string representing a site location in an application.
// In order to improve readability, the filename will be localized to the root of the application.
// The format of the string is as follows based on the positional info available:
//
// Info 					|		Formatting
// ------------------------------------------------------------------
// filename,line, column	|	filename line:column
// filename, line			|	filename line
// filename					|	filename
// empty					|	""
func getPosition(loc diag.Location, appRoot string) string {
	if loc.File == "" {
		return ""
	}

	name := filepath.ToSlash(loc.File)
	split := strings.Split(name, "/")
	path := strings.Builder{}
	for _, segment := range split {
		if path.Len() != 0 {
			path.WriteByte('/')
			path.WriteString(segment)
		} else if segment == appRoot && appRoot != "" {
			path.WriteString(segment)
		}
	}
	if path.Len() == 0 {
		path.WriteString(filepath.Base(name))
	}

	if loc.Line != 0 {
		path.WriteByte(' ')
		path.WriteString(strconv.Itoa(loc.Line))
		if loc.Column != 0 {
			path.WriteByte(':')
			path.WriteString(strconv.Itoa(loc.Column))
		}
	}

	return path.String()
}
