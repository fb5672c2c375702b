package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// ArchiveState exposes internal state for observability.
type ArchiveState struct {
	Path      string     `json:"path"`
	Version   int        `json:"version"`
	Records   int        `json:"records"`
	Dirty     bool       `json:"dirty"`
	Legacy    bool       `json:"legacy,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	LastRunID string     `json:"last_run_id,omitempty"`
}

// State implements introspection.Introspectable.
func (a *ArchiveStore) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	state := ArchiveState{
		Path:      a.Path,
		Version:   a.state.Version,
		Records:   len(a.state.Records),
		Dirty:     a.dirty,
		Legacy:    a.legacy,
		LastRunID: a.state.RunID,
	}
	if !a.state.UpdatedAt.IsZero() {
		updated := a.state.UpdatedAt
		state.UpdatedAt = &updated
	}
	return state
}

// ComponentType implements introspection.Component.
func (a *ArchiveStore) ComponentType() string {
	return "archive"
}

// NoteStoreState exposes internal state for observability.
type NoteStoreState struct {
	Dir        string `json:"dir"`
	RemovedDir string `json:"removed_dir"`
	Indexed    int    `json:"indexed"`
}

// State implements introspection.Introspectable.
func (s *NoteStore) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NoteStoreState{
		Dir:        s.Dir,
		RemovedDir: s.removedDir,
		Indexed:    len(s.byRef),
	}
}

// ComponentType implements introspection.Component.
func (s *NoteStore) ComponentType() string {
	return "notes"
}

var _ introspection.Introspectable = (*ArchiveStore)(nil)
var _ introspection.Component = (*ArchiveStore)(nil)
var _ introspection.Introspectable = (*NoteStore)(nil)
var _ introspection.Component = (*NoteStore)(nil)
