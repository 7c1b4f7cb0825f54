// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped) by Store operations.
var (
	ErrNotFound        = errors.New("identity not found")
	ErrConflict        = errors.New("identity conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrPersistence     = errors.New("registry persistence failure")
	ErrJournalClosed   = errors.New("journal closed")
)

// Error is a caller-facing rejection. Message is safe to return to clients;
// Kind is one of the sentinels above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func conflict(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

func invalid(msg string) error { return &Error{Kind: ErrInvalidArgument, Message: msg} }

func notFound(id int64) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("client %d not found", id)}
}

// PersistenceError reports a write that did not complete. The in-memory
// mutation that triggered it has already been applied.
type PersistenceError struct {
	Stage string // "journal", "meta" or "file"
	Path  string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist registry %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) true for any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
