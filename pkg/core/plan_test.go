package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/bibvault/pkg/core"
)

func noNotes(string) (string, bool) { return "", false }

func TestBuildPlan(t *testing.T) {
	layout := memLayout{}
	alpha := entry("a1", "Alpha")

	t.Run("Unknown Entry Is Created", func(t *testing.T) {
		plan := core.BuildPlan([]core.Entry{alpha}, newMemArchive(), layout, noNotes)
		require.Len(t, plan.Actions, 1)
		assert.Equal(t, core.ActionCreate, plan.Actions[0].Kind)
		assert.Equal(t, "Alpha (a1).md", plan.Actions[0].To)
		assert.False(t, plan.Actions[0].Restore)
	})

	t.Run("Unchanged Entry Is Skipped", func(t *testing.T) {
		archive := newMemArchive()
		archive.Set("a1", core.Record{Hash: core.Fingerprint(alpha, layout.Signature()), Filename: "Alpha (a1).md"})
		locate := func(string) (string, bool) { return "Alpha (a1).md", true }

		plan := core.BuildPlan([]core.Entry{alpha}, archive, layout, locate)
		require.Len(t, plan.Actions, 1)
		assert.Equal(t, core.ActionSkip, plan.Actions[0].Kind)
		assert.Zero(t, plan.Changes())
	})

	t.Run("Legacy Record Forces Update", func(t *testing.T) {
		archive := newMemArchive()
		archive.Set("a1", core.Record{Filename: "Alpha (a1).md"})
		locate := func(string) (string, bool) { return "Alpha (a1).md", true }

		plan := core.BuildPlan([]core.Entry{alpha}, archive, layout, locate)
		assert.Equal(t, core.ActionUpdate, plan.Actions[0].Kind)
		assert.False(t, plan.Actions[0].Renames())
	})

	t.Run("Layout Change Forces Update", func(t *testing.T) {
		archive := newMemArchive()
		archive.Set("a1", core.Record{Hash: core.Fingerprint(alpha, layout.Signature())})
		locate := func(string) (string, bool) { return "Alpha (a1).md", true }

		plan := core.BuildPlan([]core.Entry{alpha}, archive, memLayout{sig: "-v2"}, locate)
		assert.Equal(t, core.ActionUpdate, plan.Actions[0].Kind)
	})

	t.Run("Title Change Renames", func(t *testing.T) {
		archive := newMemArchive()
		archive.Set("a1", core.Record{Hash: core.Fingerprint(alpha, layout.Signature())})
		locate := func(string) (string, bool) { return "Alpha (a1).md", true }

		plan := core.BuildPlan([]core.Entry{entry("a1", "Gamma")}, archive, layout, locate)
		a := plan.Actions[0]
		assert.Equal(t, core.ActionUpdate, a.Kind)
		assert.True(t, a.Renames())
		assert.Equal(t, "Alpha (a1).md", a.From)
		assert.Equal(t, "Gamma (a1).md", a.To)
	})

	t.Run("Missing Note Is Restored", func(t *testing.T) {
		archive := newMemArchive()
		archive.Set("a1", core.Record{Hash: core.Fingerprint(alpha, layout.Signature())})

		plan := core.BuildPlan([]core.Entry{alpha}, archive, layout, noNotes)
		assert.Equal(t, core.ActionCreate, plan.Actions[0].Kind)
		assert.True(t, plan.Actions[0].Restore)
	})

	t.Run("Archived Entry Absent From Bibliography Is Removed", func(t *testing.T) {
		archive := newMemArchive()
		archive.Set("zz", core.Record{Hash: "x", Filename: "Old (zz).md"})
		locate := func(id string) (string, bool) { return "Old (" + id + ").md", id == "zz" }

		plan := core.BuildPlan([]core.Entry{alpha}, archive, layout, locate)
		require.Len(t, plan.Actions, 2)
		assert.Equal(t, 1, plan.Count(core.ActionRemove))
		remove := plan.Actions[1]
		assert.Equal(t, "zz", remove.RefID)
		assert.Equal(t, "Old (zz).md", remove.From)
	})

	t.Run("Duplicates And Empty Ids Are Ignored", func(t *testing.T) {
		entries := []core.Entry{alpha, entry("a1", "Second"), {Title: "No id"}}
		plan := core.BuildPlan(entries, newMemArchive(), layout, noNotes)
		require.Len(t, plan.Actions, 1)
		assert.Equal(t, "Alpha", plan.Actions[0].Entry.Title)
	})

	t.Run("Actions Are Ordered By Reference Id", func(t *testing.T) {
		entries := []core.Entry{entry("c", "C"), entry("a", "A"), entry("b", "B")}
		plan := core.BuildPlan(entries, newMemArchive(), layout, noNotes)
		var ids []string
		for _, a := range plan.Actions {
			ids = append(ids, a.RefID)
		}
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})
}

func TestFingerprint(t *testing.T) {
	e := entry("a1", "Alpha")
	assert.Equal(t, core.Fingerprint(e, "s"), core.Fingerprint(e, "s"))
	assert.NotEqual(t, core.Fingerprint(e, "s"), core.Fingerprint(e, "t"))

	changed := e
	changed.Abstract = "new abstract"
	assert.NotEqual(t, core.Fingerprint(e, "s"), core.Fingerprint(changed, "s"))
}
