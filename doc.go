// Package bibvault keeps a folder of markdown notes in step with a BibTeX
// bibliography.
//
// Every entry of the bibliography gets a note named after its title and cite
// key, with a generated YAML frontmatter header. Everything below the header
// belongs to the user and survives every sync: when a title changes the note
// is renamed, and when an entry disappears its note is moved to a removal
// folder rather than deleted. A JSON archive remembers what the previous run
// wrote, so re-running on unchanged input touches nothing.
//
// Usage:
//
//	v, err := bibvault.New("~/Documents/Obsidian Vault",
//		bibvault.WithBibliography("references.bib"),
//		bibvault.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	summary, err := v.Sync(ctx)
package bibvault
