package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/bibvault/pkg/core"
)

func TestArchiveStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		a := NewArchiveStore(filepath.Join(t.TempDir(), "archive.json"), 0)
		if err := a.Load(ctx); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if a.Len() != 0 {
			t.Errorf("expected empty archive, got %d records", a.Len())
		}
	})

	t.Run("Fails on Corrupted JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "archive.json")
		os.WriteFile(path, []byte("{ invalid json"), 0644)

		a := NewArchiveStore(path, 0)
		if err := a.Load(ctx); err == nil {
			t.Fatal("expected an error for a corrupted archive")
		}
	})

	t.Run("Upgrades Legacy Layout", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "archive.json")
		legacy := `{
			"smith2020": {"entry": {"title": "A Study", "ref_id": "smith2020", "link": "https://x"}, "notes": ""},
			"odd": "not an object"
		}`
		os.WriteFile(path, []byte(legacy), 0644)

		a := NewArchiveStore(path, 0)
		if err := a.Load(ctx); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		rec, ok := a.Get("smith2020")
		if !ok || rec.Entry == nil {
			t.Fatal("expected legacy record smith2020")
		}
		if rec.Hash != "" {
			t.Errorf("expected empty hash to force a rewrite, got %q", rec.Hash)
		}
		if rec.Entry.URL != "https://x" {
			t.Errorf("expected link to become URL, got %q", rec.Entry.URL)
		}
		if _, ok := a.Get("odd"); !ok {
			t.Error("expected malformed legacy record to be kept by id")
		}
		if !a.dirty {
			t.Error("expected legacy archive to be marked dirty")
		}
	})

	t.Run("Rejects Newer Version", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "archive.json")
		os.WriteFile(path, []byte(`{"version": 99, "records": {}}`), 0644)

		a := NewArchiveStore(path, 0)
		if err := a.Load(ctx); err == nil {
			t.Fatal("expected an error for a newer archive version")
		}
	})
}

func TestArchiveStore_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("Does Not Save if Not Dirty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "archive.json")
		a := NewArchiveStore(path, 0)
		a.Load(ctx)

		if err := a.Save(ctx, "run"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected no file to be written")
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "archive.json")
		a := NewArchiveStore(path, 0)
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		a.now = func() time.Time { return fixed }
		a.Load(ctx)

		entry := &core.Entry{RefID: "k1", Type: "article", Title: "T"}
		a.Set("k1", core.Record{Hash: "h1", Filename: "T (k1).md", Entry: entry, SyncedAt: fixed})
		if err := a.Save(ctx, "run-1"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected archive file: %v", err)
		}
		var raw archiveFile
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("invalid archive written: %v", err)
		}
		if raw.Version != ArchiveVersion || raw.RunID != "run-1" || !raw.UpdatedAt.Equal(fixed) {
			t.Errorf("unexpected archive metadata: %+v", raw)
		}

		b := NewArchiveStore(path, 0)
		if err := b.Load(ctx); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		rec, ok := b.Get("k1")
		if !ok || rec.Hash != "h1" || rec.Filename != "T (k1).md" || rec.Entry == nil || rec.Entry.Title != "T" {
			t.Errorf("unexpected record after reload: %+v", rec)
		}
		if b.dirty {
			t.Error("expected freshly loaded archive to be clean")
		}
	})

	t.Run("Delete of Unknown Id Keeps Clean", func(t *testing.T) {
		a := NewArchiveStore(filepath.Join(t.TempDir(), "archive.json"), 0)
		a.Load(ctx)
		a.Delete("nope")
		if a.dirty {
			t.Error("expected deleting an unknown id to keep the archive clean")
		}
	})
}

func TestArchiveStore_Lock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.json")

	first := NewArchiveStore(path, time.Second)
	unlock, err := first.Lock(ctx)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	t.Run("Times Out While Held", func(t *testing.T) {
		second := NewArchiveStore(path, 100*time.Millisecond)
		_, err := second.Lock(ctx)
		if !errors.Is(err, core.ErrArchiveLocked) {
			t.Errorf("expected ErrArchiveLocked, got %v", err)
		}
	})

	t.Run("Honors Context", func(t *testing.T) {
		second := NewArchiveStore(path, time.Minute)
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := second.Lock(cctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context deadline, got %v", err)
		}
	})

	unlock()

	t.Run("Acquires After Release", func(t *testing.T) {
		second := NewArchiveStore(path, 100*time.Millisecond)
		unlock, err := second.Lock(ctx)
		if err != nil {
			t.Fatalf("expected lock after release: %v", err)
		}
		unlock()
		if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
			t.Error("expected lock file to be removed")
		}
	})
}

func TestArchiveStore_StaleLock(t *testing.T) {
	ctx := context.Background()

	t.Run("Dead Owner Is Replaced", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "archive.json")

		// A test binary that runs no test exits at once, leaving a dead pid.
		cmd := exec.Command(os.Args[0], "-test.run=^$")
		if err := cmd.Run(); err != nil {
			t.Fatalf("failed to run helper process: %v", err)
		}
		dead := cmd.Process.Pid
		if err := os.WriteFile(path+".lock", []byte(strconv.Itoa(dead)+"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		a := NewArchiveStore(path, 100*time.Millisecond)
		unlock, err := a.Lock(ctx)
		if err != nil {
			t.Fatalf("expected stale lock to be replaced, got %v", err)
		}
		defer unlock()

		data, err := os.ReadFile(path + ".lock")
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.TrimSpace(string(data)); got != strconv.Itoa(os.Getpid()) {
			t.Errorf("expected lock to hold our pid, got %q", got)
		}
	})

	t.Run("Lock Without Pid Is Kept", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "archive.json")
		if err := os.WriteFile(path+".lock", nil, 0644); err != nil {
			t.Fatal(err)
		}

		a := NewArchiveStore(path, 100*time.Millisecond)
		if _, err := a.Lock(ctx); !errors.Is(err, core.ErrArchiveLocked) {
			t.Errorf("expected ErrArchiveLocked, got %v", err)
		}
	})
}
