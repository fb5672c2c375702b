package fs

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goliatone/go-slug"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/bibvault/pkg/core"
)

// FilenameStyle selects how the title part of a note file name is written.
type FilenameStyle string

const (
	// StyleTitle keeps the title as written, minus invalid characters.
	StyleTitle FilenameStyle = "title"
	// StyleSlug lowercases and hyphenates the title.
	StyleSlug FilenameStyle = "slug"
)

const (
	// DefaultNoteType is written to the "type" frontmatter key.
	DefaultNoteType = "paper"
	// Placeholder is the body of a note that has no user content yet.
	Placeholder = "<!-- Add your notes here -->"

	delimiter = "---"
)

// Layout renders entries as markdown notes with a YAML frontmatter header.
type Layout struct {
	NoteType    string
	Style       FilenameStyle
	MaxFileName int
}

// NewLayout returns a Layout with defaults filled in.
func NewLayout(noteType string, style FilenameStyle, maxFileName int) Layout {
	if noteType == "" {
		noteType = DefaultNoteType
	}
	if style == "" {
		style = StyleTitle
	}
	if maxFileName <= 0 {
		maxFileName = MaxFileName
	}
	return Layout{NoteType: noteType, Style: style, MaxFileName: maxFileName}
}

// FileName implements core.Layout.
func (l Layout) FileName(e core.Entry) string {
	title := e.Title
	if l.Style == StyleSlug && title != "" {
		if s, err := slug.Normalize(title); err == nil && s != "" {
			title = s
		}
	}
	return SafeFileName(title, e.RefID, l.MaxFileName)
}

// Placeholder implements core.Layout.
func (l Layout) Placeholder() []byte {
	return []byte("\n" + Placeholder + "\n")
}

// Signature implements core.Layout.
func (l Layout) Signature() string {
	return fmt.Sprintf("md/v1;type=%s;style=%s;max=%d", l.NoteType, l.Style, l.MaxFileName)
}

// Header implements core.Layout.
// Keys come out in a fixed order; empty optional fields are left out.
func (l Layout) Header(e core.Entry) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	}
	quoted := func(v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Style: yaml.DoubleQuotedStyle}
	}
	addOptional := func(key, value string) {
		if value != "" {
			add(key, quoted(value))
		}
	}

	add("title", quoted(e.Title))
	addOptional("authors", e.Authors)
	if e.Year != "" {
		if _, err := strconv.Atoi(e.Year); err == nil {
			add("year", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: e.Year})
		} else {
			add("year", quoted(e.Year))
		}
	}
	addOptional("journal", e.Journal)
	addOptional("conference", e.Booktitle)
	addOptional("abstract", e.Abstract)
	addOptional("url", e.URL)
	add("ref_id", quoted(e.RefID))
	add("type", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: l.NoteType})
	if e.Type != "" {
		add("entry_type", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Type})
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.WriteString(delimiter + "\n")
	return buf.Bytes(), nil
}

// SplitNote separates the frontmatter header (delimiter lines included) from
// the body. The body is returned exactly as stored. A file without a header
// is all body; a header that is never closed is an error, so the file is left alone.
func SplitNote(data []byte) (header, body []byte, err error) {
	first, rest := cutLine(data)
	if !isDelimiter(first) {
		return nil, data, nil
	}

	for len(rest) > 0 {
		var line []byte
		line, rest = cutLine(rest)
		if isDelimiter(line) {
			offset := len(data) - len(rest)
			return data[:offset], data[offset:], nil
		}
	}
	return nil, nil, core.ErrNoFrontmatterEnd
}

// cutLine splits off the first line, keeping its line ending with it.
func cutLine(data []byte) (line, rest []byte) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return data, nil
	}
	return data[:i+1], data[i+1:]
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimRight(line, "\r\n")) == delimiter
}

var _ core.Layout = Layout{}
