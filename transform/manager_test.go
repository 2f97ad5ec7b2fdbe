package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscodegen/go-codegen/internal/config"
	"github.com/jscodegen/go-codegen/internal/diag"
	"github.com/jscodegen/go-codegen/internal/execute"
	"github.com/jscodegen/go-codegen/internal/resolve"
)

// writeApp lays out files relative to a temporary application root.
func writeApp(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newManager(t *testing.T, root, diffFile string) *Manager {
	t.Helper()
	modules := resolve.NewOS()
	d := NewDispatcher("", modules, execute.NewGojaRunner(modules), nil)
	return NewManager(d, config.Default(), root, diffFile)
}

func TestManager_LoadFiles(t *testing.T) {
	root := writeApp(t, map[string]string{
		"src/a.js":                  "",
		"src/b.tsx":                 "",
		"src/notes.md":              "",
		"node_modules/dep/index.js": "",
	})
	m := newManager(t, root, "")

	files, err := m.LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "a.js"),
		filepath.Join(root, "src", "b.tsx"),
	}, files)

	single := newManager(t, filepath.Join(root, "src", "notes.md"), "")
	files, err = single.LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "notes.md")}, files)
}

func TestManager_WriteDiff(t *testing.T) {
	root := writeApp(t, map[string]string{
		"src/app.js":   "const x = codegen`module.exports = '1 + 1'`;\n",
		"src/plain.js": "const y = 2;\n",
	})
	diffFile := filepath.Join(t.TempDir(), "codegen.diff")
	m := newManager(t, root, diffFile)

	files, err := m.LoadFiles()
	require.NoError(t, err)
	require.NoError(t, m.TransformAll(context.Background(), files))
	require.NoError(t, m.CreateDiffFile())
	require.NoError(t, m.WriteDiff())

	patch, err := os.ReadFile(diffFile)
	require.NoError(t, err)
	assert.Contains(t, string(patch), "src/app.js")
	assert.Contains(t, string(patch), "-const x = codegen`module.exports = '1 + 1'`;")
	assert.Contains(t, string(patch), "+const x = (1 + 1);")
	assert.NotContains(t, string(patch), "plain.js")

	original, err := os.ReadFile(filepath.Join(root, "src", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "const x = codegen`module.exports = '1 + 1'`;\n", string(original))
}

func TestManager_WriteFiles(t *testing.T) {
	root := writeApp(t, map[string]string{
		"src/gen.js": "module.exports = () => 'export const answer = 42;';\n",
		"src/app.js": "// codegen\nmodule.exports = require('./gen');\n",
	})
	m := newManager(t, root, "")

	require.NoError(t, m.TransformAll(context.Background(), []string{filepath.Join(root, "src", "app.js")}))
	require.NoError(t, m.WriteFiles())

	got, err := os.ReadFile(filepath.Join(root, "src", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "// this file was codegened\nexport const answer = 42;\n", string(got))
}

func TestManager_TransformAllKeepsGoodFiles(t *testing.T) {
	root := writeApp(t, map[string]string{
		"a.js": "const a = codegen`module.exports = '1'`;\n",
		"b.js": "const b = codegen`module.exports = ${runtime}`;\n",
		"c.js": "const c = codegen`throw new Error('c failed')`;\n",
	})
	m := newManager(t, root, "")

	files, err := m.LoadFiles()
	require.NoError(t, err)
	err = m.TransformAll(context.Background(), files)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrEvaluation))
	assert.True(t, errors.Is(err, diag.ErrExecution))
	assert.Contains(t, err.Error(), filepath.Join(root, "b.js"))
	assert.Contains(t, err.Error(), "c failed")

	outputs := m.Outputs()
	require.Len(t, outputs, 1)
	assert.Equal(t, filepath.Join(root, "a.js"), outputs[0].File)
	assert.Equal(t, "const a = 1;\n", string(outputs[0].Code))
}
