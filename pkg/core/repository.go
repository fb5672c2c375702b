package core

import "context"

// Source yields the current bibliography.
type Source interface {
	// Read parses the bibliography. A missing source returns ErrBibNotFound.
	Read(ctx context.Context) (Bibliography, error)
}

// Archive persists the state of the previous run.
// Implementations track whether they were modified and only write when they were.
type Archive interface {
	// Load reads the persisted state, replacing what is in memory.
	Load(ctx context.Context) error
	// Get returns the record of a reference id.
	Get(refID string) (Record, bool)
	// Set records a successful sync of an entry.
	Set(refID string, rec Record)
	// Delete forgets a reference id.
	Delete(refID string)
	// IDs returns all known reference ids, sorted.
	IDs() []string
	// Save persists the state if it changed since Load.
	Save(ctx context.Context, runID string) error
}

// Locker is implemented by archives that can be held exclusively by one run.
type Locker interface {
	// Lock blocks until the archive is held or the wait times out with ErrArchiveLocked.
	Lock(ctx context.Context) (unlock func(), err error)
}

// Layout decides how entries look on disk.
type Layout interface {
	// FileName derives the note file name of an entry.
	FileName(e Entry) string
	// Header renders the generated frontmatter block of an entry.
	Header(e Entry) ([]byte, error)
	// Placeholder is the body of a freshly created note.
	Placeholder() []byte
	// Signature identifies the rendering settings, so changing them re-renders every note.
	Signature() string
}

// NoteStore reads and writes the note files of one folder.
// Names are bare file names inside that folder.
type NoteStore interface {
	// Initialize makes sure the folder exists.
	Initialize(ctx context.Context) error
	// Locate finds the note of a reference id. It returns ErrNoteNotFound when there is none.
	Locate(ctx context.Context, refID string) (string, error)
	// Read loads a note and splits its header from its body.
	Read(ctx context.Context, name string) (Note, error)
	// Write stores a note. It reports false when the file already had that content.
	Write(ctx context.Context, n Note) (bool, error)
	// Rename moves a note to a new name, setting aside any unrelated file in the way.
	Rename(ctx context.Context, from, to, refID string) error
	// Retire moves a note into the removal folder and returns its new relative path.
	Retire(ctx context.Context, name string) (string, error)
}
