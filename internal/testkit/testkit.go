// Package testkit builds in-memory projects for tests. A project is written as a txtar
// archive whose file names are absolute slash paths:
//
//	-- /project/src/app.js --
//	const x = codegen`module.exports = 1`;
//	-- /project/src/values.js --
//	module.exports = ['a', 'b'];
package testkit

import (
	"strings"
	"testing"
	"testing/fstest"

	"golang.org/x/tools/txtar"

	"github.com/jscodegen/go-codegen/internal/resolve"
)

// Project is a parsed txtar project.
type Project struct {
	Comment string
	FS      fstest.MapFS
}

// Parse parses a txtar archive into a Project. Leading slashes of file names are
// dropped so the archive root stands for "/".
func Parse(archive string) *Project {
	a := txtar.Parse([]byte(archive))
	fsys := fstest.MapFS{}
	for _, f := range a.Files {
		name := strings.TrimPrefix(strings.TrimSpace(f.Name), "/")
		fsys[name] = &fstest.MapFile{Data: f.Data, Mode: 0o644}
	}
	return &Project{Comment: string(a.Comment), FS: fsys}
}

// Load parses archive and fails the test when it holds no files.
func Load(t testing.TB, archive string) *Project {
	t.Helper()
	p := Parse(archive)
	if len(p.FS) == 0 {
		t.Fatalf("testkit: archive has no files")
	}
	return p
}

// Resolver returns a resolver over the project.
func (p *Project) Resolver() *resolve.Resolver {
	return resolve.New(p.FS)
}

// Source returns the contents of an absolute path, or nil when it is absent.
func (p *Project) Source(name string) []byte {
	f, ok := p.FS[strings.TrimPrefix(name, "/")]
	if !ok {
		return nil
	}
	return f.Data
}
