package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service reconciles a bibliography with a folder of notes.
type Service struct {
	source  Source
	archive Archive
	layout  Layout
	notes   NoteStore
	logger  *slog.Logger

	now   func() time.Time
	newID func() string

	mu   sync.RWMutex
	runs int
	last *Summary
}

// NewService creates a new Service. A nil logger discards output.
func NewService(source Source, archive Archive, layout Layout, notes NoteStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		source:  source,
		archive: archive,
		layout:  layout,
		notes:   notes,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Plan computes what a sync would do without touching the filesystem.
func (s *Service) Plan(ctx context.Context) (Plan, Summary, error) {
	summary := Summary{RunID: s.newID(), StartedAt: s.now(), DryRun: true}
	logger := s.logger.With("run_id", summary.RunID)

	bib, plan, err := s.prepare(ctx, logger)
	if err != nil {
		return Plan{}, summary, err
	}
	summary.Entries = len(bib.Entries)
	summary.Skipped = len(bib.Anomalies)
	for _, a := range plan.Actions {
		switch a.Kind {
		case ActionCreate:
			if a.Restore {
				summary.Restored++
			} else {
				summary.Created++
			}
		case ActionUpdate:
			summary.Updated++
			if a.Renames() {
				summary.Renamed++
			}
		case ActionSkip:
			summary.Unchanged++
		case ActionRemove:
			summary.Removed++
		}
	}
	s.record(summary)
	return plan, summary, nil
}

// Sync performs one reconcile pass and persists the archive.
//
// Workflow:
//  1. Lock the archive (when supported) and load it.
//  2. Read the bibliography; malformed records are logged and skipped.
//  3. Build the plan.
//  4. Apply each action. A failed action is logged and leaves its record untouched.
//  5. Save the archive if anything changed.
func (s *Service) Sync(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: s.newID(), StartedAt: s.now()}
	logger := s.logger.With("run_id", summary.RunID)

	if l, ok := s.archive.(Locker); ok {
		unlock, err := l.Lock(ctx)
		if err != nil {
			return summary, err
		}
		defer unlock()
	}

	if err := s.notes.Initialize(ctx); err != nil {
		return summary, fmt.Errorf("failed to initialize notes folder: %w", err)
	}

	bib, plan, err := s.prepare(ctx, logger)
	if err != nil {
		return summary, err
	}
	summary.Entries = len(bib.Entries)
	summary.Skipped = len(bib.Anomalies)

	var runErr error
	for _, a := range plan.Actions {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := s.apply(ctx, logger, a, &summary); err != nil {
			summary.Failed++
			logger.Error("failed to sync entry", "ref_id", a.RefID, "action", a.Kind, "error", err)
		}
	}

	if err := s.archive.Save(ctx, summary.RunID); err != nil {
		return summary, errors.Join(runErr, fmt.Errorf("failed to save archive: %w", err))
	}

	logger.Info("sync finished",
		"entries", summary.Entries,
		"created", summary.Created,
		"updated", summary.Updated,
		"removed", summary.Removed,
		"failed", summary.Failed,
	)
	s.record(summary)
	return summary, runErr
}

func (s *Service) prepare(ctx context.Context, logger *slog.Logger) (Bibliography, Plan, error) {
	if err := s.archive.Load(ctx); err != nil {
		return Bibliography{}, Plan{}, fmt.Errorf("failed to load archive: %w", err)
	}

	bib, err := s.source.Read(ctx)
	if err != nil {
		return Bibliography{}, Plan{}, err
	}
	for _, anomaly := range bib.Anomalies {
		logger.Warn("skipping bibliography record", "error", anomaly)
	}

	locate := func(refID string) (string, bool) {
		name, err := s.notes.Locate(ctx, refID)
		if err != nil {
			if !errors.Is(err, ErrNoteNotFound) {
				logger.Warn("failed to locate note", "ref_id", refID, "error", err)
			}
			return "", false
		}
		return name, true
	}

	return bib, BuildPlan(bib.Entries, s.archive, s.layout, locate), nil
}

func (s *Service) apply(ctx context.Context, logger *slog.Logger, a Action, summary *Summary) error {
	switch a.Kind {
	case ActionSkip:
		summary.Unchanged++
		return nil

	case ActionCreate:
		body := s.layout.Placeholder()
		if a.From != "" {
			existing, err := s.notes.Read(ctx, a.From)
			if err != nil {
				return fmt.Errorf("failed to read existing note %s: %w", a.From, err)
			}
			body = existing.Body
			if a.Renames() {
				if err := s.notes.Rename(ctx, a.From, a.To, a.RefID); err != nil {
					return err
				}
			}
		}
		if _, err := s.write(ctx, *a.Entry, a.To, body); err != nil {
			return err
		}
		s.archive.Set(a.RefID, Record{Hash: a.Hash, Filename: a.To, Entry: a.Entry, SyncedAt: s.now()})
		if a.Restore {
			summary.Restored++
			logger.Info("restored note", "ref_id", a.RefID, "file", a.To)
		} else {
			summary.Created++
			logger.Info("created note", "ref_id", a.RefID, "file", a.To, "adopted", a.From != "")
		}
		return nil

	case ActionUpdate:
		existing, err := s.notes.Read(ctx, a.From)
		if err != nil {
			return fmt.Errorf("failed to read note %s: %w", a.From, err)
		}
		if a.Renames() {
			if err := s.notes.Rename(ctx, a.From, a.To, a.RefID); err != nil {
				return err
			}
			summary.Renamed++
			logger.Info("title changed, renamed note", "ref_id", a.RefID, "from", a.From, "to", a.To)
		}
		written, err := s.write(ctx, *a.Entry, a.To, existing.Body)
		if err != nil {
			return err
		}
		s.archive.Set(a.RefID, Record{Hash: a.Hash, Filename: a.To, Entry: a.Entry, SyncedAt: s.now()})
		if written || a.Renames() {
			summary.Updated++
			logger.Info("updated note", "ref_id", a.RefID, "file", a.To)
		} else {
			summary.Unchanged++
		}
		return nil

	case ActionRemove:
		if a.From == "" {
			logger.Debug("removed entry has no note left", "ref_id", a.RefID)
			s.archive.Delete(a.RefID)
			summary.Removed++
			return nil
		}
		dest, err := s.notes.Retire(ctx, a.From)
		if err != nil {
			return err
		}
		s.archive.Delete(a.RefID)
		summary.Removed++
		logger.Info("moved removed entry", "ref_id", a.RefID, "file", dest)
		return nil
	}
	return fmt.Errorf("unknown action %q", a.Kind)
}

func (s *Service) write(ctx context.Context, e Entry, name string, body []byte) (bool, error) {
	header, err := s.layout.Header(e)
	if err != nil {
		return false, fmt.Errorf("failed to render header: %w", err)
	}
	return s.notes.Write(ctx, Note{Name: name, Header: header, Body: body})
}

func (s *Service) record(summary Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.last = &summary
}
