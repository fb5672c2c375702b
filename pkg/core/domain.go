// Package core holds the domain of bibvault: bibliography entries, the
// archive of previous runs, the note files they map to, and the planner that
// reconciles one against the others.
package core

import "time"

// Entry is a bibliography record after field extraction and cleaning.
// It is keyed by RefID (the BibTeX cite key) and never mutated during a run.
type Entry struct {
	RefID     string `json:"ref_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Authors   string `json:"authors,omitempty"`
	Year      string `json:"year,omitempty"`
	Journal   string `json:"journal,omitempty"`
	Booktitle string `json:"booktitle,omitempty"`
	Abstract  string `json:"abstract,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Bibliography is the result of reading a bibliography source.
// Anomalies are records that could not be turned into an Entry; they are
// reported but never abort the read.
type Bibliography struct {
	Entries   []Entry
	Anomalies []error
}

// Record is what the archive remembers about an entry after a successful sync.
type Record struct {
	// Hash is the fingerprint of the entry and the layout it was rendered with.
	// An empty hash (legacy archives) never matches, forcing a rewrite.
	Hash     string    `json:"hash"`
	Filename string    `json:"filename"`
	Entry    *Entry    `json:"entry,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

// Note is a markdown file in the papers folder.
// Header is the generated frontmatter block, delimiters included.
// Body is everything after it and belongs to the user.
type Note struct {
	Name   string
	Header []byte
	Body   []byte
}

// Bytes returns the full file content.
func (n Note) Bytes() []byte {
	out := make([]byte, 0, len(n.Header)+len(n.Body))
	out = append(out, n.Header...)
	return append(out, n.Body...)
}

// Summary counts what a sync run did.
type Summary struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Entries   int       `json:"entries"`
	Created   int       `json:"created"`
	Restored  int       `json:"restored"`
	Updated   int       `json:"updated"`
	Renamed   int       `json:"renamed"`
	Unchanged int       `json:"unchanged"`
	Removed   int       `json:"removed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	DryRun    bool      `json:"dry_run,omitempty"`
}

// Changes reports how many notes were written, renamed or moved.
func (s Summary) Changes() int {
	return s.Created + s.Restored + s.Updated + s.Removed
}
