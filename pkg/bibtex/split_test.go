package bibtex

import (
	"errors"
	"testing"
)

func TestSplitRecords(t *testing.T) {
	t.Run("Braces and Parentheses", func(t *testing.T) {
		text := "Exported by a tool.\n\n@article{a1,\n  title = {Nested {Braces} Here}\n}\n\n@Book(b1, title = {With ) inside})\n"
		records, err := splitRecords(text)
		if err != nil {
			t.Fatalf("splitRecords failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Kind != "article" || records[0].Key() != "a1" || records[0].Line != 3 {
			t.Errorf("unexpected first record: %+v", records[0])
		}
		if records[1].Kind != "book" || records[1].Key() != "b1" || records[1].Line != 7 {
			t.Errorf("unexpected second record: %+v", records[1])
		}
		if records[1].Body != "b1, title = {With ) inside}" {
			t.Errorf("unexpected body %q", records[1].Body)
		}
	})

	t.Run("Ignores Stray At Signs", func(t *testing.T) {
		records, err := splitRecords("mail me @ home\n@misc{m, note = {x@y.org}}")
		if err != nil {
			t.Fatalf("splitRecords failed: %v", err)
		}
		if len(records) != 1 || records[0].Key() != "m" {
			t.Errorf("expected one misc record, got %+v", records)
		}
	})

	t.Run("Unterminated Record", func(t *testing.T) {
		records, err := splitRecords("@article{ok, title={A}}\n@article{broken,\n title = {never closed\n")
		if len(records) != 1 {
			t.Errorf("expected the complete record to survive, got %d", len(records))
		}
		var recErr *RecordError
		if !errors.As(err, &recErr) || !errors.Is(err, ErrUnterminated) {
			t.Fatalf("expected unterminated RecordError, got %v", err)
		}
		if recErr.Line != 2 || recErr.Key != "broken" {
			t.Errorf("unexpected error location: %+v", recErr)
		}
	})
}

func TestBraceBareValues(t *testing.T) {
	macros := map[string]bool{"jan": true, "acm": true}
	tests := []struct {
		in, want string
	}{
		{"k, year = 2020, month = Jan", "k, year = {2020}, month = jan"},
		{"k, publisher = ACM # { Press}", "k, publisher = acm # { Press}"},
		{"k, note = unknown}", "k, note = {unknown}}"},
		{`k, title = "a = b, c", url = {http://x.org/?a=1,b}`, `k, title = "a = b, c", url = {http://x.org/?a=1,b}`},
	}
	for _, tt := range tests {
		if got := braceBareValues(tt.in, macros); got != tt.want {
			t.Errorf("braceBareValues(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
