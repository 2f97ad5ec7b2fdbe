package execute

import (
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// loaderFor picks the esbuild loader for a file name.
func loaderFor(name string) api.Loader {
	switch strings.ToLower(path.Ext(name)) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	case ".json":
		return api.LoaderJSON
	default:
		return api.LoaderJS
	}
}

// DefaultTarget is the language level snippets are lowered to.
const DefaultTarget = "es2015"

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"esnext": api.ESNext,
}

// ParseTarget maps a target name such as "es2017" to its esbuild target.
func ParseTarget(name string) (api.Target, error) {
	if name == "" {
		name = DefaultTarget
	}
	t, ok := targets[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown target %q", name)
	}
	return t, nil
}

// compile turns module source into CommonJS the runtime can evaluate. ES module
// syntax, TypeScript and JSX are lowered; a top-level return is kept.
func compile(code, filename string, target api.Target) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:     loaderFor(filename),
		Format:     api.FormatCommonJS,
		Target:     target,
		Sourcefile: filename,
		Charset:    api.CharsetUTF8,
	})
	if len(result.Errors) > 0 {
		return "", compileError(filename, result.Errors)
	}
	return stripHashBang(string(result.Code)), nil
}

func compileError(filename string, msgs []api.Message) error {
	first := msgs[0]
	if loc := first.Location; loc != nil {
		return fmt.Errorf("compiling %s:%d:%d: %s", filename, loc.Line, loc.Column+1, first.Text)
	}
	return fmt.Errorf("compiling %s: %s", filename, first.Text)
}

// stripHashBang blanks a leading #! line, keeping line numbers intact.
func stripHashBang(code string) string {
	if !strings.HasPrefix(code, "#!") {
		return code
	}
	if i := strings.IndexByte(code, '\n'); i >= 0 {
		return code[i:]
	}
	return ""
}
