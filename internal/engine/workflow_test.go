package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
)

// TestEditingWorkflow drives a full agent session over the wire-level command
// surface: author a document from scratch, revise it, annotate it, and verify
// every mutation forced a save.
func TestEditingWorkflow(t *testing.T) {
	saver := &countingSaver{}
	e := New(docmodel.New(), nil, saver, zerolog.Nop())

	exec := func(cmd string, args map[string]any) Result {
		res := e.Execute(cmd, args)
		require.True(t, res.Success, "%s failed: %s", cmd, res.Error)
		return res
	}

	exec("insertContent", map[string]any{"content": "Project Plan"})
	exec("insertContent", map[string]any{
		"content":  "The plan has three phases.\nEach phase takes a week.",
		"position": map[string]any{"after": "Project Plan"},
	})
	require.Equal(t, "Project Plan\nThe plan has three phases.\nEach phase takes a week.", e.Doc().Text())

	res := exec("replaceText", map[string]any{"search": "week", "replacement": "month", "author": "Planner"})
	out := res.Result.(*ReplaceTextOutput)
	require.Equal(t, 1, out.ReplacedCount)
	require.NotEmpty(t, e.Doc().Changes, "replacement should be tracked")

	tracked := len(e.Doc().Changes)
	exec("formatText", map[string]any{"bold": true, "scope": "document"})
	require.Len(t, e.Doc().Changes, tracked, "formatting must not add tracked changes")

	exec("insertTable", map[string]any{
		"data":     []any{[]any{"Phase", "Duration"}, []any{"One", "A month"}},
		"position": map[string]any{"after": "three phases"},
	})
	cells := e.Doc().NodesByType(docmodel.NodeTableCell)
	require.Len(t, cells, 4)
	require.Equal(t, "Phase", cells[0].Text)

	exec("addComment", map[string]any{"search": "three phases", "comment": "confirm with the team"})
	require.Len(t, e.Doc().Comments, 1)

	gt := exec("getText", map[string]any{"format": "both"})
	both := gt.Result.(*GetTextOutput)
	require.NotNil(t, both.Text)
	require.NotNil(t, both.HTML)
	require.Contains(t, *both.Text, "month")
	require.Contains(t, *both.HTML, "<p>")

	// 6 mutating commands, each saved synchronously before reporting
	require.Equal(t, 6, saver.saves)

	exec("undo", nil)
	require.Equal(t, 7, saver.saves, "undo is a mutation and saves too")
}
