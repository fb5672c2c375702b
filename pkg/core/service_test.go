package core_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/bibvault/pkg/core"
)

// memSource returns a fixed bibliography.
type memSource struct {
	bib core.Bibliography
	err error
}

func (m *memSource) Read(ctx context.Context) (core.Bibliography, error) {
	return m.bib, m.err
}

// memArchive keeps records in memory and counts saves that had something to write.
type memArchive struct {
	records map[string]core.Record
	dirty   bool
	saves   int
}

func newMemArchive() *memArchive {
	return &memArchive{records: make(map[string]core.Record)}
}

func (m *memArchive) Load(ctx context.Context) error { m.dirty = false; return nil }

func (m *memArchive) Get(id string) (core.Record, bool) {
	r, ok := m.records[id]
	return r, ok
}

func (m *memArchive) Set(id string, r core.Record) { m.records[id] = r; m.dirty = true }

func (m *memArchive) Delete(id string) { delete(m.records, id); m.dirty = true }

func (m *memArchive) IDs() []string {
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *memArchive) Save(ctx context.Context, runID string) error {
	if m.dirty {
		m.saves++
		m.dirty = false
	}
	return nil
}

// memLayout renders a minimal header.
type memLayout struct{ sig string }

func (l memLayout) FileName(e core.Entry) string {
	if e.Title == "" {
		return e.RefID + ".md"
	}
	return fmt.Sprintf("%s (%s).md", e.Title, e.RefID)
}

func (l memLayout) Header(e core.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("---\ntitle: %q\nyear: %s\nref_id: %q\n---\n", e.Title, e.Year, e.RefID)), nil
}

func (l memLayout) Placeholder() []byte { return []byte("\n<!-- notes -->\n") }

func (l memLayout) Signature() string { return "mem" + l.sig }

// memNotes is a flat in-memory folder.
type memNotes struct {
	files   map[string]core.Note
	retired map[string]core.Note
	writes  int
	failOn  string
}

func newMemNotes() *memNotes {
	return &memNotes{files: make(map[string]core.Note), retired: make(map[string]core.Note)}
}

func (m *memNotes) Initialize(ctx context.Context) error { return nil }

func (m *memNotes) Locate(ctx context.Context, refID string) (string, error) {
	for name := range m.files {
		if strings.HasSuffix(name, "("+refID+").md") || name == refID+".md" {
			return name, nil
		}
	}
	return "", core.ErrNoteNotFound
}

func (m *memNotes) Read(ctx context.Context, name string) (core.Note, error) {
	n, ok := m.files[name]
	if !ok {
		return core.Note{}, core.ErrNoteNotFound
	}
	return n, nil
}

func (m *memNotes) Write(ctx context.Context, n core.Note) (bool, error) {
	if m.failOn != "" && strings.Contains(n.Name, m.failOn) {
		return false, errors.New("disk full")
	}
	if cur, ok := m.files[n.Name]; ok && string(cur.Bytes()) == string(n.Bytes()) {
		return false, nil
	}
	m.files[n.Name] = n
	m.writes++
	return true, nil
}

func (m *memNotes) Rename(ctx context.Context, from, to, refID string) error {
	n, ok := m.files[from]
	if !ok {
		return core.ErrNoteNotFound
	}
	delete(m.files, from)
	n.Name = to
	m.files[to] = n
	m.writes++
	return nil
}

func (m *memNotes) Retire(ctx context.Context, name string) (string, error) {
	n, ok := m.files[name]
	if !ok {
		return "", core.ErrNoteNotFound
	}
	delete(m.files, name)
	m.retired[name] = n
	m.writes++
	return "Removed/" + name, nil
}

type fixture struct {
	source  *memSource
	archive *memArchive
	notes   *memNotes
	service *core.Service
}

func newFixture(entries ...core.Entry) *fixture {
	f := &fixture{
		source:  &memSource{bib: core.Bibliography{Entries: entries}},
		archive: newMemArchive(),
		notes:   newMemNotes(),
	}
	f.service = core.NewService(f.source, f.archive, memLayout{}, f.notes, nil)
	return f
}

func entry(id, title string) core.Entry {
	return core.Entry{RefID: id, Type: "article", Title: title, Year: "2020"}
}

func TestService_FirstRunCreatesNotes(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"), entry("b2", "Beta"))

	summary, err := f.service.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 2, summary.Entries)
	assert.Contains(t, f.notes.files, "Alpha (a1).md")
	assert.Contains(t, f.notes.files, "Beta (b2).md")
	assert.Equal(t, "\n<!-- notes -->\n", string(f.notes.files["Alpha (a1).md"].Body))

	rec, ok := f.archive.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "Alpha (a1).md", rec.Filename)
	assert.NotEmpty(t, rec.Hash)
}

func TestService_Idempotent(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"), entry("b2", "Beta"))
	ctx := context.Background()

	_, err := f.service.Sync(ctx)
	require.NoError(t, err)
	writes, saves := f.notes.writes, f.archive.saves

	summary, err := f.service.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Unchanged)
	assert.Zero(t, summary.Changes())
	assert.Equal(t, writes, f.notes.writes, "no note should be touched")
	assert.Equal(t, saves, f.archive.saves, "archive should not be rewritten")
}

func TestService_TitleChangeRenamesAndKeepsBody(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"))
	ctx := context.Background()

	_, err := f.service.Sync(ctx)
	require.NoError(t, err)

	body := []byte("\nMy own notes.\n\n- with a list\n")
	n := f.notes.files["Alpha (a1).md"]
	n.Body = body
	f.notes.files[n.Name] = n

	f.source.bib.Entries = []core.Entry{entry("a1", "Alpha Revised")}
	summary, err := f.service.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Renamed)
	assert.Equal(t, 1, summary.Updated)
	assert.NotContains(t, f.notes.files, "Alpha (a1).md")
	renamed, ok := f.notes.files["Alpha Revised (a1).md"]
	require.True(t, ok)
	assert.Equal(t, body, renamed.Body)
	assert.Contains(t, string(renamed.Header), "Alpha Revised")

	rec, _ := f.archive.Get("a1")
	assert.Equal(t, "Alpha Revised (a1).md", rec.Filename)
}

func TestService_RemovedEntryIsRetired(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"), entry("b2", "Beta"))
	ctx := context.Background()

	_, err := f.service.Sync(ctx)
	require.NoError(t, err)

	f.source.bib.Entries = []core.Entry{entry("a1", "Alpha")}
	summary, err := f.service.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Removed)
	assert.Contains(t, f.notes.retired, "Beta (b2).md")
	_, known := f.archive.Get("b2")
	assert.False(t, known)
}

func TestService_MissingNoteIsRestored(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"))
	ctx := context.Background()

	_, err := f.service.Sync(ctx)
	require.NoError(t, err)
	delete(f.notes.files, "Alpha (a1).md")

	summary, err := f.service.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Restored)
	assert.Contains(t, f.notes.files, "Alpha (a1).md")
}

func TestService_AdoptsExistingNote(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"))
	body := []byte("\nwritten before the archive existed\n")
	f.notes.files["Old Title (a1).md"] = core.Note{
		Name:   "Old Title (a1).md",
		Header: []byte("---\ntitle: old\n---\n"),
		Body:   body,
	}

	summary, err := f.service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.NotContains(t, f.notes.files, "Old Title (a1).md")
	assert.Equal(t, body, f.notes.files["Alpha (a1).md"].Body)
}

func TestService_FailedEntryKeepsRecord(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"), entry("b2", "Beta"))
	ctx := context.Background()
	_, err := f.service.Sync(ctx)
	require.NoError(t, err)
	before, _ := f.archive.Get("b2")

	f.source.bib.Entries = []core.Entry{entry("a1", "Alpha"), {RefID: "b2", Title: "Beta", Year: "2021"}}
	f.notes.failOn = "b2"

	summary, err := f.service.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	after, _ := f.archive.Get("b2")
	assert.Equal(t, before.Hash, after.Hash, "failed entry must be retried next run")
}

func TestService_AnomaliesAreCounted(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"))
	f.source.bib.Anomalies = []error{errors.New("bad record")}

	summary, err := f.service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Created)
}

func TestService_SourceErrorIsFatal(t *testing.T) {
	f := newFixture()
	f.source.err = fmt.Errorf("open refs.bib: %w", core.ErrBibNotFound)

	_, err := f.service.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBibNotFound))
}

func TestService_PlanWritesNothing(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"))

	plan, summary, err := f.service.Plan(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, plan.Changes())
	assert.Empty(t, f.notes.files)
	assert.Zero(t, f.archive.saves)
}

func TestService_State(t *testing.T) {
	f := newFixture(entry("a1", "Alpha"))
	_, err := f.service.Sync(context.Background())
	require.NoError(t, err)

	state, ok := f.service.State().(core.ServiceState)
	require.True(t, ok)
	assert.Equal(t, 1, state.Runs)
	require.NotNil(t, state.LastRun)
	assert.Equal(t, 1, state.LastRun.Created)
	assert.Equal(t, "service", f.service.ComponentType())
}
