package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/bibvault/pkg/core"
)

const (
	// ArchiveVersion is the layout version written by ArchiveStore.
	ArchiveVersion = 2

	// DefaultLockTimeout bounds how long a run waits for another one to finish.
	DefaultLockTimeout = 5 * time.Second

	lockRetry = 25 * time.Millisecond
)

// archiveFile is the persisted layout.
type archiveFile struct {
	Version   int                    `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
	RunID     string                 `json:"run_id,omitempty"`
	Records   map[string]core.Record `json:"records"`
}

// legacyRecord is the flat layout of archives written by earlier releases:
// {"<ref>": {"entry": {...}, "notes": "..."}}.
type legacyRecord struct {
	Entry struct {
		Title     string `json:"title"`
		Authors   string `json:"authors"`
		Year      string `json:"year"`
		RefID     string `json:"ref_id"`
		Link      string `json:"link"`
		Abstract  string `json:"abstract"`
		Journal   string `json:"journal"`
		Booktitle string `json:"booktitle"`
	} `json:"entry"`
}

// ArchiveStore implements core.Archive as a JSON file.
type ArchiveStore struct {
	Path        string
	LockTimeout time.Duration

	mu     sync.RWMutex
	state  archiveFile
	dirty  bool
	legacy bool
	now    func() time.Time
}

// NewArchiveStore creates a store for the archive at path.
func NewArchiveStore(path string, lockTimeout time.Duration) *ArchiveStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &ArchiveStore{
		Path:        path,
		LockTimeout: lockTimeout,
		state:       emptyArchive(),
		now:         time.Now,
	}
}

func emptyArchive() archiveFile {
	return archiveFile{Version: ArchiveVersion, Records: make(map[string]core.Record)}
}

// Load reads the archive from disk. A missing file is an empty archive.
// A legacy archive is converted and marked dirty so the next Save upgrades it.
func (a *ArchiveStore) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = emptyArchive()
	a.dirty = false
	a.legacy = false

	data, err := os.ReadFile(a.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("invalid archive %s: %w", a.Path, err)
	}
	if len(probe) == 0 {
		return nil
	}

	if _, ok := probe["version"]; ok {
		var state archiveFile
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("invalid archive %s: %w", a.Path, err)
		}
		if state.Version > ArchiveVersion {
			return fmt.Errorf("archive %s has version %d, newer than supported %d", a.Path, state.Version, ArchiveVersion)
		}
		if state.Records == nil {
			state.Records = make(map[string]core.Record)
		}
		a.state = state
		return nil
	}

	for refID, raw := range probe {
		var legacy legacyRecord
		if err := json.Unmarshal(raw, &legacy); err != nil {
			// Older still: no entry to recover, the id alone is enough to track removals.
			a.state.Records[refID] = core.Record{}
			continue
		}
		e := &core.Entry{
			RefID:     refID,
			Title:     legacy.Entry.Title,
			Authors:   legacy.Entry.Authors,
			Year:      legacy.Entry.Year,
			Journal:   legacy.Entry.Journal,
			Booktitle: legacy.Entry.Booktitle,
			Abstract:  legacy.Entry.Abstract,
			URL:       legacy.Entry.Link,
		}
		a.state.Records[refID] = core.Record{Entry: e}
	}
	a.dirty = true
	a.legacy = true
	return nil
}

// Get implements core.Archive.
func (a *ArchiveStore) Get(refID string) (core.Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.state.Records[refID]
	return rec, ok
}

// Set implements core.Archive.
func (a *ArchiveStore) Set(refID string, rec core.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Records[refID] = rec
	a.dirty = true
}

// Delete implements core.Archive.
func (a *ArchiveStore) Delete(refID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.state.Records[refID]; ok {
		delete(a.state.Records, refID)
		a.dirty = true
	}
}

// IDs implements core.Archive.
func (a *ArchiveStore) IDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.state.Records))
	for id := range a.state.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of records.
func (a *ArchiveStore) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.state.Records)
}

// Save writes the archive atomically if it changed since Load.
func (a *ArchiveStore) Save(ctx context.Context, runID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.dirty {
		return nil
	}
	a.state.Version = ArchiveVersion
	a.state.UpdatedAt = a.now().UTC()
	a.state.RunID = runID

	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(a.Path), 0755); err != nil {
		return err
	}
	if _, err := replaceFile(a.Path, data); err != nil {
		return err
	}
	a.dirty = false
	a.legacy = false
	return nil
}

// Lock acquires the archive lock file, retrying until LockTimeout.
// The lock holds the pid of its owner. A lock whose owner no longer runs is
// stale: it is removed and acquiring starts over.
func (a *ArchiveStore) Lock(ctx context.Context) (func(), error) {
	lockPath := a.Path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive folder: %w", err)
	}

	deadline := time.Now().Add(a.LockTimeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
			f.Close()
			return func() {
				os.Remove(lockPath)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if breakStaleLock(lockPath) {
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", core.ErrArchiveLocked, lockPath)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}

// breakStaleLock removes the lock file when the pid it holds is dead.
// A lock without a readable pid may be in the middle of being written and is
// left alone.
func breakStaleLock(lockPath string) bool {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() || processAlive(pid) {
		return false
	}
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false
	}
	return true
}

var _ core.Archive = (*ArchiveStore)(nil)
var _ core.Locker = (*ArchiveStore)(nil)
