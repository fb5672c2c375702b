package bibtex

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	bibparse "github.com/nickng/bibtex"
)

// nickng/bibtex accumulates every parse into one package-level BibTex and
// keeps a scanner flag across calls. Parse returns that same BibTex, so it is
// captured once and cleared before every call; calls are serialized.
var (
	parseMu     sync.Mutex
	parserState *bibparse.BibTex
)

// atEscaper hides '@' inside values: the scanner exits the process on a bare
// '@' in a braced value, but keeps one that follows a backslash.
var (
	atEscaper   = strings.NewReplacer("@", `\@`)
	atUnescaper = strings.NewReplacer(`\@`, "@")
)

// parseEntry runs the parser on a single record (plus macro definitions)
// and returns its fields with lowercased names.
func parseEntry(text string) (fields map[string]string, err error) {
	parseMu.Lock()
	defer parseMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	if parserState == nil {
		state, err := bibparse.Parse(strings.NewReader(""))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize parser: %w", err)
		}
		parserState = state
	}
	resetParser()

	parsed, err := bibparse.Parse(strings.NewReader(text))
	if err != nil {
		resetParser()
		return nil, err
	}
	if parsed == nil || len(parsed.Entries) != 1 {
		resetParser()
		return nil, errors.New("record did not parse as a single entry")
	}

	entry := parsed.Entries[0]
	fields = make(map[string]string, len(entry.Fields))
	for name, value := range entry.Fields {
		if value != nil {
			fields[strings.ToLower(name)] = atUnescaper.Replace(value.String())
		}
	}
	resetParser()
	return fields, nil
}

// resetParser drops everything the previous call left behind.
func resetParser() {
	*parserState = *bibparse.NewBibTex()
	// A lone '}' clears the scanner's "inside a field value" flag, which a
	// failed parse leaves set.
	bibparse.NewScanner(strings.NewReader("}")).Scan()
}
