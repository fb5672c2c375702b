package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/bibvault/internal/config"
	"github.com/aretw0/bibvault/pkg/adapters/fs"
	"github.com/aretw0/bibvault/pkg/core"
)

// options holds the internal configuration for the bibvault service.
type options struct {
	logger        *slog.Logger
	bibPath       string
	archivePath   string
	folder        string
	removedFolder string
	noteType      string
	filenameStyle fs.FilenameStyle
	maxFileName   int
	lockTimeout   time.Duration

	source  core.Source
	archive core.Archive
}

// Option defines a functional option for configuring bibvault.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		bibPath:       "references.bib",
		archivePath:   "obsidian_archive.json",
		folder:        "Papers",
		removedFolder: fs.DefaultRemovedDir,
		noteType:      fs.DefaultNoteType,
		filenameStyle: fs.StyleTitle,
		maxFileName:   fs.MaxFileName,
		lockTimeout:   fs.DefaultLockTimeout,
	}
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBibliography sets the path of the BibTeX export.
func WithBibliography(path string) Option {
	return func(o *options) {
		o.bibPath = path
	}
}

// WithArchivePath sets where the sync state is kept.
func WithArchivePath(path string) Option {
	return func(o *options) {
		o.archivePath = path
	}
}

// WithFolder sets the notes folder, relative to the vault.
func WithFolder(folder string) Option {
	return func(o *options) {
		o.folder = folder
	}
}

// WithRemovedFolder sets the subfolder, inside the notes folder, that
// receives the notes of removed entries.
func WithRemovedFolder(name string) Option {
	return func(o *options) {
		o.removedFolder = name
	}
}

// WithNoteType sets the value written to the "type" frontmatter key.
func WithNoteType(noteType string) Option {
	return func(o *options) {
		o.noteType = noteType
	}
}

// WithFilenameStyle selects "title" or "slug" file names.
func WithFilenameStyle(style string) Option {
	return func(o *options) {
		o.filenameStyle = fs.FilenameStyle(style)
	}
}

// WithMaxFileName sets the byte limit of note file names.
func WithMaxFileName(n int) Option {
	return func(o *options) {
		o.maxFileName = n
	}
}

// WithLockTimeout bounds how long a sync waits for a concurrent one.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithSource injects a bibliography source in place of the BibTeX reader.
func WithSource(source core.Source) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithArchive injects an archive in place of the JSON archive file.
func WithArchive(archive core.Archive) Option {
	return func(o *options) {
		o.archive = archive
	}
}

// WithConfig applies every setting of a loaded configuration.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		for _, opt := range fromConfig(cfg) {
			opt(o)
		}
	}
}

func fromConfig(cfg config.Config) []Option {
	return []Option{
		WithBibliography(cfg.Bib),
		WithArchivePath(cfg.Archive),
		WithFolder(cfg.Folder),
		WithRemovedFolder(cfg.RemovedFolder),
		WithNoteType(cfg.NoteType),
		WithFilenameStyle(cfg.FilenameStyle),
		WithMaxFileName(cfg.MaxFilename),
		WithLockTimeout(cfg.LockTimeout),
	}
}
