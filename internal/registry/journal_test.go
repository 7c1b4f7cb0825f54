// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func openTestJournal(t *testing.T, path string) *Journal {
	t.Helper()
	j, err := OpenJournal(JournalConfig{Path: path, SyncWrites: true})
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	return j
}

func TestJournalAppendConfirm(t *testing.T) {
	t.Parallel()

	j, err := OpenJournal(JournalConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	defer j.Close()

	first, err := j.Append(JournalEntry{Op: OpDelete, ID: 1})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	second, err := j.Append(JournalEntry{Op: OpDelete, ID: 2})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if second.Seq <= first.Seq {
		t.Errorf("sequence not increasing: %d then %d", first.Seq, second.Seq)
	}

	pending, err := j.Pending()
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 2 || pending[0].ID != 1 || pending[1].ID != 2 {
		t.Fatalf("Pending() = %+v, want ids 1, 2 in order", pending)
	}

	if err := j.Confirm(first); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	pending, _ = j.Pending()
	if len(pending) != 1 || pending[0].ID != 2 {
		t.Errorf("Pending() after confirm = %+v, want only id 2", pending)
	}
}

func TestJournalClosed(t *testing.T) {
	t.Parallel()

	j, err := OpenJournal(JournalConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := j.Append(JournalEntry{Op: OpDelete, ID: 1}); !errors.Is(err, ErrJournalClosed) {
		t.Errorf("Append() after Close error = %v, want ErrJournalClosed", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStoreConfirmsJournalEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j := openTestJournal(t, filepath.Join(dir, "journal"))
	defer j.Close()

	s, err := Open(Options{Path: filepath.Join(dir, "clients.json"), Journal: j})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !s.JournalEnabled() {
		t.Error("JournalEnabled() = false with a journal configured")
	}
	a := mustCreate(t, s, "Acme", "a@acme.com")
	if _, err := s.RotateCredential(a.ID); err != nil {
		t.Fatalf("RotateCredential() error = %v", err)
	}

	pending, err := j.Pending()
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Pending() = %d entries after successful writes, want 0", len(pending))
	}
}

func TestStoreReplaysPendingEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	regPath := filepath.Join(dir, "clients.json")
	journalPath := filepath.Join(dir, "journal")

	s := openTestStore(t, regPath)
	keep := mustCreate(t, s, "Keep", "keep@x.io")
	drop := mustCreate(t, s, "Drop", "drop@x.io")

	// Simulate a crash after journaling but before the file write.
	j := openTestJournal(t, journalPath)
	lost := Identity{ID: 9, Name: "Lost", Contact: "lost@x.io", Credential: "feedface", RequestsPerMinute: 3, MaxConcurrent: 1}
	if _, err := j.Append(JournalEntry{Op: OpUpsert, Identity: &lost, ID: lost.ID, NextID: lost.ID + 1}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := j.Append(JournalEntry{Op: OpDelete, ID: drop.ID}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	j = openTestJournal(t, journalPath)
	defer j.Close()
	recovered, err := Open(Options{Path: regPath, Journal: j})
	if err != nil {
		t.Fatalf("Open() with pending journal error = %v", err)
	}

	if got, ok := recovered.Get(lost.ID); !ok || got != lost {
		t.Errorf("replayed identity = %+v, %v, want %+v", got, ok, lost)
	}
	if _, ok := recovered.Get(drop.ID); ok {
		t.Error("replayed delete did not remove identity")
	}
	if _, ok := recovered.Get(keep.ID); !ok {
		t.Error("untouched identity missing after replay")
	}
	if next := mustCreate(t, recovered, "After", "after@x.io"); next.ID != 10 {
		t.Errorf("id after replay = %d, want 10", next.ID)
	}

	pending, _ := j.Pending()
	if len(pending) != 0 {
		t.Errorf("Pending() after replay = %d, want 0", len(pending))
	}

	// The replayed state reached the registry file.
	plain := openTestStore(t, regPath)
	if _, ok := plain.Get(lost.ID); !ok {
		t.Error("replayed identity not written to registry file")
	}
}

func TestJournalConfirmThrough(t *testing.T) {
	t.Parallel()

	j, err := OpenJournal(JournalConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	defer j.Close()

	var seqs []uint64
	for id := int64(1); id <= 3; id++ {
		e, err := j.Append(JournalEntry{Op: OpDelete, ID: id})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		seqs = append(seqs, e.Seq)
	}

	if err := j.ConfirmThrough(seqs[1]); err != nil {
		t.Fatalf("ConfirmThrough() error = %v", err)
	}
	pending, err := j.Pending()
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Seq != seqs[2] {
		t.Errorf("Pending() = %+v, want only seq %d", pending, seqs[2])
	}
}

// failingFileRenamer fails the registry file write while fail is set: the
// rename errors and path becomes a directory so the fallback copy fails too.
// Other files are renamed normally.
func failingFileRenamer(path string, fail *atomic.Bool) Renamer {
	return renamerFunc(func(oldpath, newpath string) error {
		if fail.Load() && newpath == path {
			_ = os.Remove(newpath)
			_ = os.Mkdir(newpath, 0o750)
			return errors.New("rename unsupported")
		}
		return os.Rename(oldpath, newpath)
	})
}

func TestReopenAfterFailedWriteKeepsLatestState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(t *testing.T, s *Store, fail *atomic.Bool, regPath string)
		check  func(t *testing.T, s *Store)
	}{
		{
			name: "rate limit change",
			mutate: func(t *testing.T, s *Store, fail *atomic.Bool, regPath string) {
				a := mustCreate(t, s, "Acme", "a@acme.com")

				fail.Store(true)
				if _, err := s.SetRateLimit(a.ID, 10); !errors.Is(err, ErrPersistence) {
					t.Fatalf("SetRateLimit(10) error = %v, want ErrPersistence", err)
				}
				fail.Store(false)
				if err := os.Remove(regPath); err != nil {
					t.Fatalf("remove blocking directory: %v", err)
				}

				if _, err := s.SetRateLimit(a.ID, 20); err != nil {
					t.Fatalf("SetRateLimit(20) error = %v", err)
				}
			},
			check: func(t *testing.T, s *Store) {
				got, ok := s.Get(1)
				if !ok {
					t.Fatal("identity missing after reopen")
				}
				if got.RequestsPerMinute != 20 {
					t.Errorf("RequestsPerMinute after reopen = %d, want 20", got.RequestsPerMinute)
				}
			},
		},
		{
			name: "removed identity",
			mutate: func(t *testing.T, s *Store, fail *atomic.Bool, regPath string) {
				mustCreate(t, s, "Acme", "a@acme.com")

				fail.Store(true)
				victim, err := s.Create("Victim", "v@x.io")
				if !errors.Is(err, ErrPersistence) {
					t.Fatalf("Create(Victim) error = %v, want ErrPersistence", err)
				}
				fail.Store(false)
				if err := os.Remove(regPath); err != nil {
					t.Fatalf("remove blocking directory: %v", err)
				}

				if removed, err := s.Remove(victim.ID); err != nil || !removed {
					t.Fatalf("Remove(%d) = %v, %v", victim.ID, removed, err)
				}
			},
			check: func(t *testing.T, s *Store) {
				if _, ok := s.Get(2); ok {
					t.Error("removed identity came back after reopen")
				}
				if s.Len() != 1 {
					t.Errorf("Len() after reopen = %d, want 1", s.Len())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			regPath := filepath.Join(dir, "clients.json")
			journalPath := filepath.Join(dir, "journal")

			var fail atomic.Bool
			j := openTestJournal(t, journalPath)
			s, err := Open(Options{Path: regPath, Journal: j, Renamer: failingFileRenamer(regPath, &fail)})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			tt.mutate(t, s, &fail, regPath)

			pending, err := j.Pending()
			if err != nil {
				t.Fatalf("Pending() error = %v", err)
			}
			if len(pending) != 0 {
				t.Errorf("Pending() after successful write = %d entries, want 0", len(pending))
			}
			if err := j.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			j = openTestJournal(t, journalPath)
			defer j.Close()
			reopened, err := Open(Options{Path: regPath, Journal: j})
			if err != nil {
				t.Fatalf("reopen error = %v", err)
			}
			tt.check(t, reopened)
		})
	}
}
