package site

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscodegen/go-codegen/internal/syntax"
)

func TestProcessed_Reparsed(t *testing.T) {
	src := []byte("// codegen\nrun();\n")
	tree, err := syntax.Parse(context.Background(), "/app/a.js", src)
	require.NoError(t, err)
	defer tree.Close()

	stmts := syntax.Statements(tree.Root())
	require.Len(t, stmts, 1)
	marker := syntax.LeadingComments(stmts[0])[0]

	done := Processed{}
	done.Mark(marker)
	done.Mark(stmts[0])
	assert.True(t, done.Has(marker))

	const annotation = "// generated"
	next := done.Reparsed(0, len(annotation))

	out, err := syntax.Apply(src, []syntax.Edit{syntax.Replace(marker, annotation)})
	require.NoError(t, err)
	reparsed, err := syntax.Parse(context.Background(), "/app/a.js", out)
	require.NoError(t, err)
	defer reparsed.Close()

	stmts = syntax.Statements(reparsed.Root())
	require.Len(t, stmts, 1)
	assert.True(t, next.Has(syntax.LeadingComments(stmts[0])[0]))
	assert.False(t, next.Has(stmts[0]))
	assert.Len(t, next, 1)
}
