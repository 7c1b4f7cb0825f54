// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package registry

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tarsgate/internal/logging"
)

// Journal operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

const (
	prefixPending = "pending:"
	keySequence   = "meta:seq"
)

// JournalConfig configures the badger-backed write-ahead journal.
type JournalConfig struct {
	Path       string
	SyncWrites bool

	// InMemory keeps the journal in memory only. Used by tests.
	InMemory bool
}

// JournalEntry is one registry mutation recorded before it is applied.
type JournalEntry struct {
	Seq       uint64    `json:"seq"`
	Op        string    `json:"op"`
	Identity  *Identity `json:"identity,omitempty"`
	ID        int64     `json:"id"`
	NextID    int64     `json:"nextId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *JournalEntry) key() []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixPending, e.Seq))
}

// Journal records registry mutations ahead of the file write. Entries stay
// pending until the file write they belong to succeeds; pending entries left
// behind by a crash are replayed when the Store opens.
type Journal struct {
	db  *badger.DB
	seq *badger.Sequence

	mu     sync.RWMutex
	closed bool
}

// OpenJournal opens (or creates) the journal.
func OpenJournal(cfg JournalConfig) (*Journal, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("journal path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	seq, err := db.GetSequence([]byte(keySequence), 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal sequence: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Bool("in_memory", cfg.InMemory).
		Msg("Registry journal opened")

	return &Journal{db: db, seq: seq}, nil
}

// Append writes a pending entry and returns it with its sequence number set.
func (j *Journal) Append(entry JournalEntry) (JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return entry, ErrJournalClosed
	}

	seq, err := j.seq.Next()
	if err != nil {
		return entry, fmt.Errorf("next journal sequence: %w", err)
	}
	entry.Seq = seq
	entry.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(&entry)
	if err != nil {
		return entry, fmt.Errorf("marshal journal entry: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entry.key(), data)
	})
	if err != nil {
		return entry, fmt.Errorf("write journal entry: %w", err)
	}
	return entry, nil
}

// Confirm removes entries whose mutation has reached the registry file.
func (j *Journal) Confirm(entries ...JournalEntry) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	return j.db.Update(func(txn *badger.Txn) error {
		for i := range entries {
			if err := txn.Delete(entries[i].key()); err != nil {
				return fmt.Errorf("delete journal entry %d: %w", entries[i].Seq, err)
			}
		}
		return nil
	})
}

// ConfirmThrough removes every pending entry with a sequence number up to and
// including seq. A registry file write carries the full in-memory state, so
// it covers all mutations journaled before it, including ones whose own
// write failed.
func (j *Journal) ConfirmThrough(seq uint64) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	last := (&JournalEntry{Seq: seq}).key()
	return j.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, last) > 0 {
				break
			}
			keys = append(keys, key)
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete journal entry %s: %w", key, err)
			}
		}
		return nil
	})
}

// Pending returns unconfirmed entries in append order.
func (j *Journal) Pending() ([]JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}

	var entries []JournalEntry
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry JournalEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return fmt.Errorf("decode journal entry %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Close releases the sequence lease and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true

	var errs []error
	if err := j.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release sequence: %w", err))
	}
	if err := j.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close journal: %w", err))
	}
	return errors.Join(errs...)
}
