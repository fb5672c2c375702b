package bibvault

import (
	"log/slog"
	"time"

	"github.com/aretw0/bibvault/internal/config"
	"github.com/aretw0/bibvault/internal/platform"
	"github.com/aretw0/bibvault/pkg/core"
)

// --- Types ---

// Vault is a wired bibvault instance.
type Vault = platform.Vault

// Status describes a vault and the state of its components.
type Status = platform.Status

// Config is the resolved configuration of a run.
type Config = config.Config

// --- Configuration ---

// Option defines a functional option for configuring bibvault.
type Option = platform.Option

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithBibliography sets the path of the BibTeX export.
func WithBibliography(path string) Option {
	return platform.WithBibliography(path)
}

// WithArchivePath sets where the sync state is kept.
func WithArchivePath(path string) Option {
	return platform.WithArchivePath(path)
}

// WithFolder sets the notes folder, relative to the vault.
func WithFolder(folder string) Option {
	return platform.WithFolder(folder)
}

// WithRemovedFolder sets the subfolder receiving notes of removed entries.
func WithRemovedFolder(name string) Option {
	return platform.WithRemovedFolder(name)
}

// WithNoteType sets the value written to the "type" frontmatter key.
func WithNoteType(noteType string) Option {
	return platform.WithNoteType(noteType)
}

// WithFilenameStyle selects "title" or "slug" file names.
func WithFilenameStyle(style string) Option {
	return platform.WithFilenameStyle(style)
}

// WithMaxFileName sets the byte limit of note file names.
func WithMaxFileName(n int) Option {
	return platform.WithMaxFileName(n)
}

// WithLockTimeout bounds how long a sync waits for a concurrent one.
func WithLockTimeout(d time.Duration) Option {
	return platform.WithLockTimeout(d)
}

// WithSource injects a bibliography source.
func WithSource(source core.Source) Option {
	return platform.WithSource(source)
}

// WithArchive injects an archive.
func WithArchive(archive core.Archive) Option {
	return platform.WithArchive(archive)
}

// WithConfig applies every setting of a loaded configuration.
func WithConfig(cfg Config) Option {
	return platform.WithConfig(cfg)
}

// --- Factory ---

// New wires a Vault rooted at path.
func New(path string, opts ...Option) (*Vault, error) {
	return platform.New(path, opts...)
}
