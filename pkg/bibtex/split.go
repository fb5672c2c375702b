package bibtex

import (
	"strings"
	"unicode"
)

// record is one top-level "@kind{...}" or "@kind(...)" block of an export.
type record struct {
	Kind string // lowercased entry type
	Body string // text between the outer delimiters
	Line int    // 1-based line of the '@'
}

// Key returns the cite key of an entry record.
func (r record) Key() string {
	key := strings.TrimSpace(r.Body)
	if i := strings.IndexAny(key, ",\n"); i >= 0 {
		key = key[:i]
	}
	return strings.TrimSpace(key)
}

// splitRecords cuts an export into records by delimiter balancing. Text
// outside records is a comment in BibTeX and is dropped. An unterminated
// record is reported and ends the scan, since everything after it belongs to it.
func splitRecords(text string) ([]record, error) {
	var records []record
	line := 1
	i := 0
	for i < len(text) {
		at := strings.IndexByte(text[i:], '@')
		if at < 0 {
			break
		}
		line += strings.Count(text[i:i+at], "\n")
		start := i + at
		j := start + 1

		k := j
		for k < len(text) && isIdentByte(text[k]) {
			k++
		}
		kind := strings.ToLower(text[j:k])
		for k < len(text) && isSpace(text[k]) {
			k++
		}
		if kind == "" || k >= len(text) || (text[k] != '{' && text[k] != '(') {
			line += strings.Count(text[start:k], "\n")
			i = k
			continue
		}

		end := closing(text, k)
		if end < 0 {
			return records, &RecordError{Line: line, Key: record{Body: text[k+1:]}.Key(), Err: ErrUnterminated}
		}
		records = append(records, record{Kind: kind, Body: text[k+1 : end], Line: line})
		line += strings.Count(text[start:end+1], "\n")
		i = end + 1
	}
	return records, nil
}

// closing returns the index of the delimiter matching the one at open, or -1.
// Inside a parenthesized record, braces still nest and only a ')' at brace
// depth zero closes it.
func closing(text string, open int) int {
	depth := 0
	paren := text[open] == '('
	for i := open + 1; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				if paren {
					continue
				}
				return i
			}
			depth--
		case ')':
			if paren && depth == 0 {
				return i
			}
		}
	}
	return -1
}

// braceBareValues wraps bare field values in braces unless they name a known
// macro, so numbers and unknown identifiers read as literals. Known macros are
// lowercased to match their definitions.
func braceBareValues(body string, macros map[string]bool) string {
	var b strings.Builder
	b.Grow(len(body) + 16)

	depth := 0
	quoted := false
	expectValue := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quoted:
			if c == '"' && depth == 0 {
				quoted = false
			}
			if c == '{' {
				depth++
			} else if c == '}' && depth > 0 {
				depth--
			}
		case depth > 0:
			if c == '{' {
				depth++
			} else if c == '}' {
				depth--
			}
		case c == '{':
			depth++
			expectValue = false
		case c == '"':
			quoted = true
			expectValue = false
		case c == '=' || c == '#':
			expectValue = true
		case c == ',':
			expectValue = false
		case expectValue && !isSpace(c):
			j := i
			for j < len(body) && !isSpace(body[j]) && !strings.ContainsRune(",#}", rune(body[j])) {
				j++
			}
			token := body[i:j]
			if name := strings.ToLower(token); macros[name] {
				b.WriteString(name)
			} else {
				b.WriteString("{" + token + "}")
			}
			expectValue = false
			i = j - 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isIdentByte(c byte) bool {
	return c < 0x80 && (unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || c == '_' || c == '-')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
