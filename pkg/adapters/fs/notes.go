package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/adrg/frontmatter"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/bibvault/pkg/core"
)

// DefaultRemovedDir is the subfolder notes of removed entries are moved to.
const DefaultRemovedDir = "Removed"

// NoteConfig holds the configuration of a NoteStore.
type NoteConfig struct {
	Dir        string // Folder holding the notes, e.g. "<vault>/Papers".
	RemovedDir string // Subfolder of Dir for retired notes.
	Logger     *slog.Logger
}

// NoteStore implements core.NoteStore on a folder of markdown files.
// Only files directly inside the folder are considered notes; the removal
// subfolder and anything else nested is left alone.
type NoteStore struct {
	Dir        string
	removedDir string
	logger     *slog.Logger

	mu sync.Mutex
	// byRef maps ref_id frontmatter values to file names. Built on the first
	// lookup that the file name pattern cannot answer.
	byRef map[string]string
}

// NewNoteStore creates a store for the given folder.
func NewNoteStore(config NoteConfig) *NoteStore {
	removed := config.RemovedDir
	if removed == "" {
		removed = DefaultRemovedDir
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NoteStore{
		Dir:        config.Dir,
		removedDir: removed,
		logger:     logger,
	}
}

// Initialize creates the notes folder and forgets what was indexed before.
func (s *NoteStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	s.byRef = nil
	s.mu.Unlock()

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create notes folder: %w", err)
	}
	return nil
}

// Locate finds the note of a reference id.
//
// Strategy:
//  1. "*(<ref>).md", the name SafeFileName gives titled notes.
//  2. "<ref>.md", the name of untitled notes.
//  3. Any note whose frontmatter ref_id is the reference id.
//
// A name match whose frontmatter names another reference id is never
// returned. A name match without a ref_id (a note written by hand) is used
// only when no note claims the id in its frontmatter.
func (s *NoteStore) Locate(ctx context.Context, refID string) (string, error) {
	var unclaimed string
	if ref := SanitizeRef(refID); ref != "" {
		matches, err := doublestar.Glob(os.DirFS(s.Dir), "*("+escapeGlob(ref)+")"+noteExt)
		if err != nil {
			return "", fmt.Errorf("failed to search notes: %w", err)
		}
		matches = filterNotes(matches)
		sort.Strings(matches)
		for _, name := range []string{ref + noteExt, "_" + ref + noteExt} {
			if s.isFile(name) {
				matches = append(matches, name)
			}
		}

		for _, name := range matches {
			owner, err := readRefID(filepath.Join(s.Dir, name))
			switch {
			case err == nil && owner == refID:
				return name, nil
			case err == nil && owner != "":
				s.logger.Debug("note belongs to another reference id", "ref_id", refID, "file", name, "owner", owner)
			case unclaimed == "":
				unclaimed = name
			}
		}
	}

	index, err := s.frontmatterIndex()
	if err != nil {
		return "", err
	}
	if name, ok := index[refID]; ok && s.isFile(name) {
		return name, nil
	}
	if unclaimed != "" {
		return unclaimed, nil
	}
	return "", core.ErrNoteNotFound
}

// Read loads a note.
func (s *NoteStore) Read(ctx context.Context, name string) (core.Note, error) {
	path, err := s.path(name)
	if err != nil {
		return core.Note{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Note{}, fmt.Errorf("%s: %w", name, core.ErrNoteNotFound)
		}
		return core.Note{}, err
	}
	header, body, err := SplitNote(data)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to parse note %s: %w", name, err)
	}
	return core.Note{Name: name, Header: header, Body: body}, nil
}

// Write stores a note atomically, unless the file already holds those bytes.
func (s *NoteStore) Write(ctx context.Context, n core.Note) (bool, error) {
	path, err := s.path(n.Name)
	if err != nil {
		return false, err
	}
	written, err := replaceFile(path, n.Bytes())
	if err != nil {
		return false, fmt.Errorf("failed to write note %s: %w", n.Name, err)
	}
	return written, nil
}

// Rename moves a note to a new name. An unrelated file already at the target
// is kept as "<name>_backup_<ref>.md".
func (s *NoteStore) Rename(ctx context.Context, from, to, refID string) error {
	if from == to {
		return nil
	}
	src, err := s.path(from)
	if err != nil {
		return err
	}
	dst, err := s.path(to)
	if err != nil {
		return err
	}

	if dstInfo, err := os.Stat(dst); err == nil {
		srcInfo, srcErr := os.Stat(src)
		// A case-only rename on a case-insensitive filesystem sees the source at the target.
		if srcErr != nil || !os.SameFile(srcInfo, dstInfo) {
			stem := strings.TrimSuffix(to, noteExt)
			backup := freeName(s.Dir, stem+"_backup_"+SanitizeRef(refID)+noteExt)
			s.logger.Warn("rename target exists, backing it up", "target", to, "backup", backup)
			if err := os.Rename(dst, filepath.Join(s.Dir, backup)); err != nil {
				return fmt.Errorf("failed to back up %s: %w", to, err)
			}
			s.reindex(to, backup)
		}
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", from, to, err)
	}
	s.reindex(from, to)
	return nil
}

// Retire moves a note into the removal subfolder without overwriting anything there.
func (s *NoteStore) Retire(ctx context.Context, name string) (string, error) {
	src, err := s.path(name)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.Dir, s.removedDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create removal folder: %w", err)
	}

	dest := freeName(dir, name)
	if err := os.Rename(src, filepath.Join(dir, dest)); err != nil {
		return "", fmt.Errorf("failed to move %s: %w", name, err)
	}
	s.reindex(name, "")
	return filepath.ToSlash(filepath.Join(s.removedDir, dest)), nil
}

// frontmatterIndex reads the ref_id of every note once.
// Unreadable notes are skipped.
func (s *NoteStore) frontmatterIndex() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byRef != nil {
		return s.byRef, nil
	}

	names, err := doublestar.Glob(os.DirFS(s.Dir), "*"+noteExt)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	index := make(map[string]string)
	for _, name := range filterNotes(names) {
		refID, err := readRefID(filepath.Join(s.Dir, name))
		if err != nil {
			s.logger.Debug("skipping unreadable note", "file", name, "error", err)
			continue
		}
		if refID == "" {
			continue
		}
		if _, dup := index[refID]; !dup {
			index[refID] = name
		}
	}
	s.byRef = index
	return index, nil
}

func readRefID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var meta struct {
		RefID string `yaml:"ref_id"`
	}
	if _, err := frontmatter.Parse(f, &meta); err != nil {
		return "", err
	}
	return meta.RefID, nil
}

// reindex keeps the frontmatter index in step with a move. An empty to drops the file.
func (s *NoteStore) reindex(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ref, name := range s.byRef {
		if name != from {
			continue
		}
		if to == "" {
			delete(s.byRef, ref)
		} else {
			s.byRef[ref] = to
		}
	}
}

func (s *NoteStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid note name %q", name)
	}
	return filepath.Join(s.Dir, name), nil
}

func (s *NoteStore) isFile(name string) bool {
	info, err := os.Stat(filepath.Join(s.Dir, name))
	return err == nil && info.Mode().IsRegular()
}

// filterNotes drops temp files left by interrupted writes.
func filterNotes(names []string) []string {
	out := names[:0]
	for _, n := range names {
		if !isTempFile(n) {
			out = append(out, n)
		}
	}
	return out
}

// freeName returns name, or name with a numeric suffix, so that nothing in dir is overwritten.
func freeName(dir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; ; i++ {
		if _, err := os.Lstat(filepath.Join(dir, candidate)); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = stem + "-" + strconv.Itoa(i) + ext
	}
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ core.NoteStore = (*NoteStore)(nil)
