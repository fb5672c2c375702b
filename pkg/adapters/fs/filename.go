package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxFileName is the default byte limit of a note file name, kept below
	// the 255 bytes most filesystems allow.
	MaxFileName = 250

	noteExt = ".md"

	refHashSep = "-"
	refHashLen = 6
)

// invalidNameChars cannot appear in file names on at least one common filesystem.
const invalidNameChars = `<>:"/\|?*`

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SafeFileName derives the note file name of an entry: "<title> (<ref>).md",
// or "<ref>.md" when there is no title. The result holds no character invalid
// on common filesystems and is at most max bytes long. It only depends on its
// arguments, so the same title always yields the same name.
func SafeFileName(title, refID string, max int) string {
	if max <= len(noteExt) {
		max = MaxFileName
	}
	ref := SanitizeRef(refID)
	if ref == "" {
		ref = "untitled"
	}
	title = sanitizeName(title)

	var name string
	suffix := " (" + ref + ")" + noteExt
	if avail := max - len(suffix); title != "" && avail > 0 {
		title = trimName(truncateBytes(title, avail))
	}
	if title == "" {
		name = ref + noteExt
		if reservedNames[strings.ToUpper(ref)] {
			name = "_" + name
		}
	} else {
		name = title + suffix
	}

	if len(name) > max {
		base := strings.TrimSuffix(name, noteExt)
		name = trimName(truncateBytes(base, max-len(noteExt))) + noteExt
	}
	return name
}

// SanitizeRef makes a reference id usable inside a file name.
// Parentheses are dropped too, since they delimit the id in the name.
// When cleaning changes the id, a short hash of the original is appended,
// so "smith:2020" and "smith2020" never share a file name.
func SanitizeRef(refID string) string {
	ref := sanitizeName(refID)
	ref = strings.Map(func(r rune) rune {
		if r == '(' || r == ')' {
			return -1
		}
		return r
	}, ref)
	ref = trimName(ref)
	if ref != refID && strings.TrimSpace(refID) != "" {
		sum := sha256.Sum256([]byte(refID))
		ref += refHashSep + hex.EncodeToString(sum[:])[:refHashLen]
		ref = strings.TrimPrefix(ref, refHashSep)
	}
	return ref
}

func sanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(invalidNameChars, r):
		case unicode.IsControl(r):
			b.WriteByte(' ')
		case r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.TrimLeft(out, ".")
	return trimName(out)
}

// trimName strips what Windows silently drops from the end of a name.
func trimName(s string) string {
	return strings.TrimRight(s, ". ")
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	cut := 0
	for i, r := range s {
		size := utf8.RuneLen(r)
		if size < 0 {
			size = 1
		}
		if i+size > n {
			break
		}
		cut = i + size
	}
	return s[:cut]
}
