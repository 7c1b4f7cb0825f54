// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package registry

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tarsgate/internal/logging"
	"github.com/tomtom215/tarsgate/internal/metrics"
)

// Defaults applied to new identities and to stored rows missing a value.
const (
	DefaultRequestsPerMinute = 60
	DefaultMaxConcurrent     = 5
)

// metaSuffix names the sidecar file that holds the id high-water mark.
const metaSuffix = ".meta"

// Options configures a Store.
type Options struct {
	// Path is the registry file. It is created with an empty array if missing.
	Path string

	DefaultRequestsPerMinute int
	DefaultMaxConcurrent     int

	// Journal is optional. When set, mutations are journaled before they
	// are applied and pending entries are replayed by Open.
	Journal *Journal

	// Renamer defaults to os.Rename.
	Renamer Renamer

	// NewCredential defaults to NewCredential.
	NewCredential func() (string, error)
}

// Store is the durable table of client identities. All methods are safe for
// concurrent use and exchange Identity values, never references into the
// stored rows.
type Store struct {
	mu         sync.RWMutex
	identities []Identity // ordered by ID
	nextID     int64

	path          string
	metaPath      string
	defaultRPM    int
	defaultMaxCon int
	journal       *Journal
	journalSeq    uint64 // last sequence appended or replayed
	renamer       Renamer
	newCredential func() (string, error)
}

type storeMeta struct {
	NextID int64 `json:"nextId"`
}

// Open loads the registry at opts.Path, creating an empty one if needed, and
// replays any journal entries left pending by a previous run.
func Open(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("registry path is required")
	}

	s := &Store{
		identities:    []Identity{},
		nextID:        1,
		path:          opts.Path,
		metaPath:      opts.Path + metaSuffix,
		defaultRPM:    opts.DefaultRequestsPerMinute,
		defaultMaxCon: opts.DefaultMaxConcurrent,
		journal:       opts.Journal,
		renamer:       opts.Renamer,
		newCredential: opts.NewCredential,
	}
	if s.defaultRPM <= 0 {
		s.defaultRPM = DefaultRequestsPerMinute
	}
	if s.defaultMaxCon <= 0 {
		s.defaultMaxCon = DefaultMaxConcurrent
	}
	if s.renamer == nil {
		s.renamer = osRenamer{}
	}
	if s.newCredential == nil {
		s.newCredential = NewCredential
	}

	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	if s.journal != nil {
		if err := s.replay(); err != nil {
			return nil, err
		}
	}

	metrics.RegistryIdentities.Set(float64(len(s.identities)))
	logging.Info().
		Str("path", s.path).
		Int("identities", len(s.identities)).
		Int64("next_id", s.nextID).
		Bool("journal", s.journal != nil).
		Msg("Client registry loaded")

	return s, nil
}

func (s *Store) ensureFile() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat registry file: %w", err)
	}
	if err := writeFile(s.path, []byte("[]\n"), s.renamer); err != nil {
		return fmt.Errorf("create registry file: %w", err)
	}
	logging.Info().Str("path", s.path).Msg("Created empty client registry")
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read registry file: %w", err)
	}

	var rows []Identity
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("decode registry file %s: %w", s.path, err)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if row.ID <= 0 {
			return fmt.Errorf("registry file %s: identity %q has non-positive id %d", s.path, row.Name, row.ID)
		}
		if _, dup := seen[row.ID]; dup {
			logging.Warn().Int64("id", row.ID).Str("path", s.path).Msg("Duplicate identity id in registry file, keeping first")
			continue
		}
		seen[row.ID] = struct{}{}
		if row.ID >= s.nextID {
			s.nextID = row.ID + 1
		}
		if field, dup := s.duplicateFieldLocked(&row); dup {
			logging.Warn().
				Int64("id", row.ID).
				Str("field", field).
				Str("path", s.path).
				Msg("Duplicate identity in registry file, keeping first")
			continue
		}
		s.identities = append(s.identities, s.withDefaults(row))
	}

	metaData, err := os.ReadFile(s.metaPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read registry meta: %w", err)
	default:
		var m storeMeta
		if err := json.Unmarshal(metaData, &m); err != nil {
			return fmt.Errorf("decode registry meta %s: %w", s.metaPath, err)
		}
		if m.NextID > s.nextID {
			s.nextID = m.NextID
		}
	}
	return nil
}

func (s *Store) replay() error {
	entries, err := s.journal.Pending()
	if err != nil {
		return fmt.Errorf("read registry journal: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	for i := range entries {
		s.applyEntry(&entries[i])
	}

	if err := s.writeMeta(); err != nil {
		return fmt.Errorf("persist replayed registry meta: %w", err)
	}
	if err := s.writeRegistry(); err != nil {
		return fmt.Errorf("persist replayed registry: %w", err)
	}
	s.journalSeq = entries[len(entries)-1].Seq
	if err := s.journal.ConfirmThrough(s.journalSeq); err != nil {
		return fmt.Errorf("confirm replayed journal entries: %w", err)
	}

	logging.Warn().Int("entries", len(entries)).Msg("Replayed pending registry journal entries")
	return nil
}

func (s *Store) applyEntry(e *JournalEntry) {
	switch e.Op {
	case OpUpsert:
		if e.Identity == nil {
			return
		}
		ident := s.withDefaults(*e.Identity)
		if idx := s.indexLocked(ident.ID); idx >= 0 {
			s.identities[idx] = ident
		} else {
			s.identities = append(s.identities, ident)
			sort.SliceStable(s.identities, func(i, j int) bool { return s.identities[i].ID < s.identities[j].ID })
		}
		if ident.ID >= s.nextID {
			s.nextID = ident.ID + 1
		}
	case OpDelete:
		if idx := s.indexLocked(e.ID); idx >= 0 {
			s.identities = append(s.identities[:idx], s.identities[idx+1:]...)
		}
	}
	if e.NextID > s.nextID {
		s.nextID = e.NextID
	}
}

func (s *Store) withDefaults(ident Identity) Identity {
	if ident.RequestsPerMinute <= 0 {
		ident.RequestsPerMinute = s.defaultRPM
	}
	if ident.MaxConcurrent <= 0 {
		ident.MaxConcurrent = s.defaultMaxCon
	}
	return ident
}

// FindByCredential returns the identity holding credential.
func (s *Store) FindByCredential(credential string) (Identity, bool) {
	if credential == "" {
		return Identity{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := []byte(credential)
	for i := range s.identities {
		if subtle.ConstantTimeCompare([]byte(s.identities[i].Credential), want) == 1 {
			return s.identities[i], true
		}
	}
	return Identity{}, false
}

// Get returns the identity with the given id.
func (s *Store) Get(id int64) (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexLocked(id); idx >= 0 {
		return s.identities[idx], true
	}
	return Identity{}, false
}

// List returns a copy of all identities ordered by id.
func (s *Store) List() []Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Identity, len(s.identities))
	copy(out, s.identities)
	return out
}

// Len returns the number of identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}

// JournalEnabled reports whether mutations go through the write-ahead journal.
func (s *Store) JournalEnabled() bool {
	return s.journal != nil
}

// Create registers a new identity with a fresh credential and the default
// limits. name and contact must be non-blank and unique, ignoring case.
//
// A returned error matching ErrPersistence means the identity was created
// but not durably stored; the returned Identity is valid in that case.
func (s *Store) Create(name, contact string) (Identity, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if name == "" {
		return Identity{}, invalid("client name cannot be blank")
	}
	if contact == "" {
		return Identity{}, invalid("client contact cannot be blank")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTakenLocked(name, 0) {
		return Identity{}, conflict("client name already exists")
	}
	if s.contactTakenLocked(contact, 0) {
		return Identity{}, conflict("client contact already exists")
	}

	credential, err := s.uniqueCredentialLocked()
	if err != nil {
		return Identity{}, err
	}

	ident := Identity{
		ID:                s.nextID,
		Name:              name,
		Contact:           contact,
		Credential:        credential,
		RequestsPerMinute: s.defaultRPM,
		MaxConcurrent:     s.defaultMaxCon,
	}

	err = s.commit("create", JournalEntry{Op: OpUpsert, Identity: &ident, ID: ident.ID, NextID: ident.ID + 1}, true, func() {
		s.identities = append(s.identities, ident)
		s.nextID = ident.ID + 1
	})
	return ident, err
}

// Update replaces the mutable fields of an existing identity. Name is
// required. Blank Contact or Credential and zero limits keep the stored value.
func (s *Store) Update(in Identity) (Identity, error) {
	name := strings.TrimSpace(in.Name)
	contact := strings.TrimSpace(in.Contact)
	if name == "" {
		return Identity{}, invalid("client name cannot be blank")
	}
	if in.RequestsPerMinute < 0 {
		return Identity{}, invalid("requestsPerMinute must be a positive integer")
	}
	if in.MaxConcurrent < 0 {
		return Identity{}, invalid("maxConcurrent must be a positive integer")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(in.ID)
	if idx < 0 {
		return Identity{}, notFound(in.ID)
	}
	if s.nameTakenLocked(name, in.ID) {
		return Identity{}, conflict("client name already exists")
	}

	updated := s.identities[idx]
	updated.Name = name
	if contact != "" {
		if s.contactTakenLocked(contact, in.ID) {
			return Identity{}, conflict("client contact already exists")
		}
		updated.Contact = contact
	}
	if in.Credential != "" {
		if s.credentialTakenLocked(in.Credential, in.ID) {
			return Identity{}, conflict("credential already in use")
		}
		updated.Credential = in.Credential
	}
	if in.RequestsPerMinute > 0 {
		updated.RequestsPerMinute = in.RequestsPerMinute
	}
	if in.MaxConcurrent > 0 {
		updated.MaxConcurrent = in.MaxConcurrent
	}

	err := s.commit("update", JournalEntry{Op: OpUpsert, Identity: &updated, ID: updated.ID}, false, func() {
		s.identities[idx] = updated
	})
	return updated, err
}

// Remove deletes the identity with the given id. Its id is never reissued.
func (s *Store) Remove(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false, nil
	}

	err := s.commit("remove", JournalEntry{Op: OpDelete, ID: id}, false, func() {
		s.identities = append(s.identities[:idx], s.identities[idx+1:]...)
	})
	return true, err
}

// RotateCredential replaces the credential of an identity and returns the new value.
func (s *Store) RotateCredential(id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return "", notFound(id)
	}

	credential, err := s.uniqueCredentialLocked()
	if err != nil {
		return "", err
	}

	updated := s.identities[idx]
	updated.Credential = credential
	err = s.commit("rotate_credential", JournalEntry{Op: OpUpsert, Identity: &updated, ID: id}, false, func() {
		s.identities[idx] = updated
	})
	return credential, err
}

// SetRateLimit changes the per-minute request allowance of an identity.
func (s *Store) SetRateLimit(id int64, limit int) (Identity, error) {
	if limit <= 0 {
		return Identity{}, invalid("rate limit must be a positive integer")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Identity{}, notFound(id)
	}

	updated := s.identities[idx]
	updated.RequestsPerMinute = limit
	err := s.commit("set_rate_limit", JournalEntry{Op: OpUpsert, Identity: &updated, ID: id}, false, func() {
		s.identities[idx] = updated
	})
	return updated, err
}

// commit journals entry, applies the in-memory change and persists the
// registry. Must be called with s.mu held for writing. The change is applied
// even when journaling or persisting fails; those failures are returned as
// PersistenceErrors.
func (s *Store) commit(op string, entry JournalEntry, nextIDChanged bool, apply func()) error {
	var errs []error

	if s.journal != nil {
		e, err := s.journal.Append(entry)
		if err != nil {
			errs = append(errs, s.persistFailure("journal", "", err))
		} else {
			s.journalSeq = e.Seq
		}
	}

	apply()
	metrics.RegistryMutations.WithLabelValues(op).Inc()
	metrics.RegistryIdentities.Set(float64(len(s.identities)))

	// The high-water mark goes first so a crash between the two writes can
	// only skip an id, never reissue one.
	if nextIDChanged {
		if err := s.writeMeta(); err != nil {
			errs = append(errs, s.persistFailure("meta", s.metaPath, err))
		}
	}

	if err := s.writeRegistry(); err != nil {
		errs = append(errs, s.persistFailure("file", s.path, err))
	} else if s.journal != nil && s.journalSeq > 0 {
		// The file now holds every journaled mutation, including earlier
		// ones whose own write failed. Left pending they would be replayed
		// over newer state on the next open.
		if err := s.journal.ConfirmThrough(s.journalSeq); err != nil {
			logging.Warn().Err(err).Uint64("seq", s.journalSeq).Msg("Failed to confirm registry journal entries")
		}
	}

	return errors.Join(errs...)
}

func (s *Store) persistFailure(stage, path string, err error) error {
	metrics.RegistryPersistFailures.WithLabelValues(stage).Inc()
	logging.Error().
		Err(err).
		Str("stage", stage).
		Str("path", path).
		Msg("Registry mutation applied in memory but not persisted")
	return &PersistenceError{Stage: stage, Path: path, Err: err}
}

func (s *Store) writeRegistry() error {
	start := time.Now()
	data, err := json.MarshalIndent(s.identities, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := writeFile(s.path, append(data, '\n'), s.renamer); err != nil {
		return err
	}
	metrics.RegistryPersistDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (s *Store) writeMeta() error {
	data, err := json.Marshal(storeMeta{NextID: s.nextID})
	if err != nil {
		return fmt.Errorf("encode registry meta: %w", err)
	}
	return writeFile(s.metaPath, data, s.renamer)
}

func (s *Store) indexLocked(id int64) int {
	i := sort.Search(len(s.identities), func(i int) bool { return s.identities[i].ID >= id })
	if i < len(s.identities) && s.identities[i].ID == id {
		return i
	}
	return -1
}

// duplicateFieldLocked names the first unique field of row already held by
// a loaded identity.
func (s *Store) duplicateFieldLocked(row *Identity) (string, bool) {
	switch {
	case s.nameTakenLocked(row.Name, 0):
		return "name", true
	case s.contactTakenLocked(row.Contact, 0):
		return "contact", true
	case row.Credential != "" && s.credentialTakenLocked(row.Credential, 0):
		return "credential", true
	}
	return "", false
}

func (s *Store) nameTakenLocked(name string, exceptID int64) bool {
	for i := range s.identities {
		if s.identities[i].ID != exceptID && strings.EqualFold(s.identities[i].Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) contactTakenLocked(contact string, exceptID int64) bool {
	for i := range s.identities {
		if s.identities[i].ID != exceptID && strings.EqualFold(s.identities[i].Contact, contact) {
			return true
		}
	}
	return false
}

func (s *Store) credentialTakenLocked(credential string, exceptID int64) bool {
	for i := range s.identities {
		if s.identities[i].ID != exceptID && s.identities[i].Credential == credential {
			return true
		}
	}
	return false
}

func (s *Store) uniqueCredentialLocked() (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		credential, err := s.newCredential()
		if err != nil {
			return "", err
		}
		if !s.credentialTakenLocked(credential, 0) {
			return credential, nil
		}
	}
	return "", errors.New("could not generate a unique credential")
}
