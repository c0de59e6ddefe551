package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/planner"
	"github.com/sanadlab/migmate/internal/textedit"
	"github.com/sanadlab/migmate/model"
)

func hunks(t *testing.T, original, updated string) []model.Hunk {
	t.Helper()
	change, err := hunk.Build("f", original, updated, hunk.Options{})
	require.NoError(t, err)
	return change.Hunks
}

func TestDetectApplied_Replacement(t *testing.T) {
	before := "import requests\nx=1"
	after := "import httpx\nx=1"
	hs := hunks(t, before, after)
	require.Len(t, hs, 2)

	require.Equal(t, model.Result{Applied: 1, Total: 1}, DetectApplied(hs, before, after))
}

func TestDetectApplied_NothingApplied(t *testing.T) {
	before := "import requests\nx=1"
	hs := hunks(t, before, "import httpx\nx=1")
	require.Equal(t, model.Result{Applied: 0, Total: 1}, DetectApplied(hs, before, before))
}

func TestDetectApplied_NormalizesLineEndings(t *testing.T) {
	before := "a\r\nb\r\nc\r\n"
	hs := hunks(t, before, "a\nb\nB2\nc\n")
	require.Equal(t, model.Result{Applied: 1, Total: 1}, DetectApplied(hs, before, "a\r\nb\r\nB2\r\nc\r\n"))
}

func TestDetectAppliedSelected_AfterPartialApply(t *testing.T) {
	before := "import requests\nx = 1\ny = 2\n"
	updated := "import httpx\nx = 1\n"
	hs := hunks(t, before, updated)
	require.Len(t, hs, 3)

	// apply the import replacement but not the deletion of y
	sel := planner.IDs(0, 1)
	snap := textedit.New(before)
	edits, err := planner.Plan(sel, hs, snap)
	require.NoError(t, err)
	after, err := snap.Apply(edits)
	require.NoError(t, err)

	require.Equal(t, model.Result{Applied: 1, Total: 1}, DetectAppliedSelected(hs, sel, before, after))
	require.Equal(t, model.Result{Applied: 1, Total: 2}, DetectApplied(hs, before, after))
}

func TestDetectAppliedSelected_OneHalfOfPair(t *testing.T) {
	before := "old\nkeep\n"
	hs := hunks(t, before, "new\nkeep\n")
	removed := hs[0]
	require.Equal(t, model.HunkRemoved, removed.Type)

	res := DetectAppliedSelected(hs, planner.IDs(removed.ID), before, "keep\n")
	require.Equal(t, model.Result{Applied: 1, Total: 1}, res)
}

func TestDetectApplied_DuplicateLinesUndercount(t *testing.T) {
	before := "x\ndup\ny\ndup\n"
	after := "x\ny\ndup\n"
	hs := hunks(t, before, after)

	// the removed line still occurs elsewhere, so the heuristic misses it
	require.Equal(t, model.Result{Applied: 0, Total: 1}, DetectApplied(hs, before, after))
}

func applyAll(t *testing.T, hs []model.Hunk, doc string) string {
	t.Helper()
	snap := textedit.New(doc)
	edits, err := planner.Plan(planner.All(), hs, snap)
	require.NoError(t, err)
	out, err := snap.Apply(edits)
	require.NoError(t, err)
	return out
}

func TestDetectApplied_TrailingNewlineRemoval(t *testing.T) {
	before := "a\nb\n"
	hs := hunks(t, before, "a\nb")
	require.Len(t, hs, 1)
	require.Equal(t, []string{""}, hs[0].Lines)

	after := applyAll(t, hs, before)
	require.Equal(t, "a\nb", after)
	require.Equal(t, model.Result{Applied: 1, Total: 1}, DetectApplied(hs, before, after))
	require.Equal(t, model.Result{Applied: 0, Total: 1}, DetectApplied(hs, before, before))
}

func TestDetectApplied_TrailingNewlineAddition(t *testing.T) {
	before := "a\nb"
	hs := hunks(t, before, "a\nb\n")
	require.Len(t, hs, 1)

	after := applyAll(t, hs, before)
	require.Equal(t, "a\nb\n", after)
	require.Equal(t, model.Result{Applied: 1, Total: 1}, DetectApplied(hs, before, after))
	require.Equal(t, model.Result{Applied: 0, Total: 1}, DetectApplied(hs, before, before))
}

func TestDetectApplied_BlankLineRemoval(t *testing.T) {
	before := "a\n\nb\n"
	hs := hunks(t, before, "a\nb\n")
	require.Len(t, hs, 1)

	require.Equal(t, model.Result{Applied: 1, Total: 1}, DetectApplied(hs, before, "a\nb\n"))
	require.Equal(t, model.Result{Applied: 0, Total: 1}, DetectApplied(hs, before, before))
}
