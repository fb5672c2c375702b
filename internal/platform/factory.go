package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/bibvault/internal/config"
	"github.com/aretw0/bibvault/pkg/adapters/fs"
	"github.com/aretw0/bibvault/pkg/bibtex"
	"github.com/aretw0/bibvault/pkg/core"
	"github.com/aretw0/bibvault/pkg/git"
)

// Vault is a wired bibvault instance: one bibliography, one archive and one
// notes folder inside a vault.
type Vault struct {
	Root        string
	NotesDir    string
	BibPath     string
	ArchivePath string
	Service     *core.Service

	archive core.Archive
	logger  *slog.Logger
}

// New wires a Vault rooted at root.
//
//	v, err := bibvault.New("~/Documents/Obsidian Vault", bibvault.WithFolder("Papers"))
//
// A leading "~" is expanded in every path. Relative bibliography and archive
// paths are resolved against the working directory. The vault itself must
// exist; the notes folder is created on the first sync.
func New(root string, opts ...Option) (*Vault, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	absRoot, err := filepath.Abs(config.ExpandHome(root))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", core.ErrVaultNotFound, absRoot)
	}

	bibPath, err := filepath.Abs(config.ExpandHome(o.bibPath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bibliography path: %w", err)
	}
	archivePath, err := filepath.Abs(config.ExpandHome(o.archivePath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive path: %w", err)
	}

	notesDir := filepath.Join(absRoot, o.folder)
	notes := fs.NewNoteStore(fs.NoteConfig{
		Dir:        notesDir,
		RemovedDir: o.removedFolder,
		Logger:     logger,
	})

	source := o.source
	if source == nil {
		source = bibtex.NewReader(bibPath)
	}
	archive := o.archive
	if archive == nil {
		archive = fs.NewArchiveStore(archivePath, o.lockTimeout)
	}
	layout := fs.NewLayout(o.noteType, o.filenameStyle, o.maxFileName)

	return &Vault{
		Root:        absRoot,
		NotesDir:    notesDir,
		BibPath:     bibPath,
		ArchivePath: archivePath,
		Service:     core.NewService(source, archive, layout, notes, logger),
		archive:     archive,
		logger:      logger,
	}, nil
}

// Sync runs one reconcile pass.
func (v *Vault) Sync(ctx context.Context) (core.Summary, error) {
	return v.Service.Sync(ctx)
}

// Plan reports what Sync would do.
func (v *Vault) Plan(ctx context.Context) (core.Plan, core.Summary, error) {
	return v.Service.Plan(ctx)
}

// Watch syncs on start and after every change to the bibliography, until ctx
// is done. Each result is passed to report.
func (v *Vault) Watch(ctx context.Context, debounce time.Duration, report func(core.Summary, error)) error {
	w := fs.NewWatcher(v.BibPath, debounce, v.logger)
	v.logger.Info("watching bibliography", "file", v.BibPath)
	return w.Run(ctx, func(ctx context.Context) error {
		summary, err := v.Sync(ctx)
		if report != nil {
			report(summary, err)
		}
		return err
	})
}

// Commit stages and commits the notes folder, and the archive when it lives
// in the vault. It reports false when there was nothing to commit.
func (v *Vault) Commit(ctx context.Context, summary core.Summary) (bool, error) {
	if !git.IsInstalled() {
		return false, fmt.Errorf("git is not installed")
	}
	paths := []string{v.rel(v.NotesDir)}
	if rel := v.rel(v.ArchivePath); rel != "" && !strings.HasPrefix(rel, "..") {
		paths = append(paths, rel)
	}

	msg := fmt.Sprintf("bibvault: sync %d created, %d restored, %d updated, %d removed\n\nRun: %s",
		summary.Created, summary.Restored, summary.Updated, summary.Removed, summary.RunID)
	committed, err := git.NewClient(v.Root, v.logger).CommitPaths(ctx, msg, paths...)
	if err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	if committed {
		v.logger.Info("committed notes", "run_id", summary.RunID)
	}
	return committed, nil
}

// Status describes the vault and the state of its components.
type Status struct {
	Vault        string `json:"vault"`
	Notes        string `json:"notes"`
	Bibliography string `json:"bibliography"`
	Service      any    `json:"service"`
}

// Status loads the archive and reports the state of every component.
func (v *Vault) Status(ctx context.Context) (Status, error) {
	if err := v.archive.Load(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to load archive: %w", err)
	}
	return Status{
		Vault:        v.Root,
		Notes:        v.NotesDir,
		Bibliography: v.BibPath,
		Service:      v.Service.State(),
	}, nil
}

func (v *Vault) rel(path string) string {
	rel, err := filepath.Rel(v.Root, path)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}
