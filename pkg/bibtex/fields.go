package bibtex

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/aretw0/bibvault/pkg/core"
)

// allowedPunct is the punctuation Clean keeps besides letters, digits and whitespace.
const allowedPunct = `&.,-/:;?()"'`

var (
	// \"o, \'{e}, \c{c}, \v s ...: the accent goes, the letter stays.
	latexAccent = regexp.MustCompile(`\\(?:["'^~=.` + "`" + `]|[cvuHkrdbt](?:\s+|\b))\s*\{?\s*(\\?[A-Za-z])\s*\}?`)
	latexCmd    = regexp.MustCompile(`\\([A-Za-z]+)\s*`)
	authorSep   = regexp.MustCompile(`(?i)\s+and\s+`)
)

// latexLetters are commands that stand for a letter of their own.
var latexLetters = map[string]string{
	"ss": "ss", "o": "o", "O": "O", "ae": "ae", "AE": "AE", "oe": "oe", "OE": "OE",
	"aa": "a", "AA": "A", "l": "l", "L": "L", "i": "i", "j": "j",
}

// Clean prepares a field value for frontmatter: LaTeX accents are decoded,
// diacritics folded, unexpected characters dropped and whitespace collapsed.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = decodeLatex(s)
	s = fold(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		case strings.ContainsRune(allowedPunct, r):
			return r
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// FormatAuthors turns a BibTeX author list into "First Last, First Last".
func FormatAuthors(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	var out []string
	for _, name := range authorSep.Split(s, -1) {
		name = Clean(name)
		if name == "" {
			continue
		}
		parts := strings.Split(name, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch len(parts) {
		case 1:
			out = append(out, parts[0])
		case 2:
			out = append(out, strings.TrimSpace(parts[1]+" "+parts[0]))
		default:
			out = append(out, strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
		}
	}
	return strings.Join(out, ", ")
}

// Extract builds an Entry from raw, lowercased-key fields.
func Extract(refID, entryType string, fields map[string]string) core.Entry {
	return core.Entry{
		RefID:     refID,
		Type:      strings.ToLower(entryType),
		Title:     Clean(fields["title"]),
		Authors:   FormatAuthors(fields["author"]),
		Year:      Clean(fields["year"]),
		Journal:   Clean(fields["journal"]),
		Booktitle: Clean(fields["booktitle"]),
		Abstract:  Clean(fields["abstract"]),
		URL:       strings.Trim(strings.TrimSpace(fields["url"]), `{}"`),
	}
}

func decodeLatex(s string) string {
	s = latexAccent.ReplaceAllString(s, "$1")
	s = strings.NewReplacer(`\&`, "&", `\%`, "%", `\_`, "_", `\$`, "$", `\#`, "#", "~", " ", "--", "-").Replace(s)
	return latexCmd.ReplaceAllStringFunc(s, func(m string) string {
		name := latexCmd.FindStringSubmatch(m)[1]
		if letter, ok := latexLetters[name]; ok {
			return letter
		}
		return m[len(name)+1:]
	})
}

// fold strips combining marks, so "é" becomes "e".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
