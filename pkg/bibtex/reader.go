// Package bibtex reads BibTeX exports into bibliography entries.
//
// An export is cut into records first, and each record is handed to the
// parser on its own, so a single malformed record costs that record only.
package bibtex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/bibvault/pkg/core"
)

// Common errors.
var (
	ErrUnterminated    = errors.New("unterminated record")
	ErrUnsupportedType = errors.New("unsupported entry type")
	ErrMissingKey      = errors.New("missing cite key")
	ErrDuplicateKey    = errors.New("duplicate cite key")
)

// RecordError describes a record that could not be read.
type RecordError struct {
	Line int
	Key  string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("line %d (%s): %v", e.Line, e.Key, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// StandardTypes are the entry types turned into notes.
var StandardTypes = map[string]bool{
	"article": true, "book": true, "booklet": true, "conference": true,
	"inbook": true, "incollection": true, "inproceedings": true, "manual": true,
	"mastersthesis": true, "misc": true, "phdthesis": true, "proceedings": true,
	"techreport": true, "unpublished": true,
	"online": true, "software": true, "dataset": true,
}

var months = []struct{ key, name string }{
	{"jan", "January"}, {"feb", "February"}, {"mar", "March"}, {"apr", "April"},
	{"may", "May"}, {"jun", "June"}, {"jul", "July"}, {"aug", "August"},
	{"sep", "September"}, {"oct", "October"}, {"nov", "November"}, {"dec", "December"},
}

// Reader implements core.Source for a BibTeX file.
type Reader struct {
	Path string
}

// NewReader creates a Reader for the file at path.
func NewReader(path string) *Reader {
	return &Reader{Path: path}
}

// Read implements core.Source.
func (r *Reader) Read(ctx context.Context) (core.Bibliography, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Bibliography{}, fmt.Errorf("%w: %s", core.ErrBibNotFound, r.Path)
		}
		return core.Bibliography{}, fmt.Errorf("failed to open bibliography: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f)
}

// Parse reads every entry of a BibTeX export. Records that cannot be read
// are returned as *RecordError anomalies; the error is reserved for failures
// to read the input at all.
func Parse(ctx context.Context, r io.Reader) (core.Bibliography, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Bibliography{}, fmt.Errorf("failed to read bibliography: %w", err)
	}

	var bib core.Bibliography
	records, err := splitRecords(string(data))
	if err != nil {
		bib.Anomalies = append(bib.Anomalies, err)
	}

	macros := make(map[string]bool)
	var prelude strings.Builder
	for _, rec := range records {
		if rec.Kind != "string" {
			continue
		}
		name, _, ok := strings.Cut(rec.Body, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			bib.Anomalies = append(bib.Anomalies, &RecordError{Line: rec.Line, Err: errors.New("malformed @string")})
			continue
		}
		_, value, _ := strings.Cut(braceBareValues(rec.Body, macros), "=")
		fmt.Fprintf(&prelude, "@string{%s = %s}\n", name, atEscaper.Replace(strings.TrimSpace(value)))
		macros[name] = true
	}
	for _, m := range months {
		if !macros[m.key] {
			fmt.Fprintf(&prelude, "@string{%s = {%s}}\n", m.key, m.name)
			macros[m.key] = true
		}
	}

	seen := make(map[string]int)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return core.Bibliography{}, err
		}
		switch rec.Kind {
		case "string", "comment", "preamble":
			continue
		}

		key := rec.Key()
		fail := func(err error) {
			bib.Anomalies = append(bib.Anomalies, &RecordError{Line: rec.Line, Key: key, Err: err})
		}
		if !StandardTypes[rec.Kind] {
			fail(fmt.Errorf("%w: @%s", ErrUnsupportedType, rec.Kind))
			continue
		}
		if key == "" || strings.Contains(key, "=") {
			fail(ErrMissingKey)
			continue
		}
		if line, dup := seen[key]; dup {
			fail(fmt.Errorf("%w, first seen on line %d", ErrDuplicateKey, line))
			continue
		}
		// The first record of a key wins even when it turns out malformed.
		seen[key] = rec.Line

		body := strings.TrimSuffix(strings.TrimSpace(braceBareValues(rec.Body, macros)), ",")
		text := prelude.String() + "@" + rec.Kind + "{" + atEscaper.Replace(body) + "}\n"
		fields, err := parseEntry(text)
		if err != nil {
			fail(err)
			continue
		}
		bib.Entries = append(bib.Entries, Extract(key, rec.Kind, fields))
	}
	return bib, nil
}

var _ core.Source = (*Reader)(nil)
