// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomtom215/tarsgate/internal/logging"
	"github.com/tomtom215/tarsgate/internal/metrics"
)

// Renamer moves a finished temp file over its destination.
type Renamer interface {
	Rename(oldpath, newpath string) error
}

type osRenamer struct{}

func (osRenamer) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

const fileMode = 0o600

// writeFile replaces path with data. The data is written and fsynced to a
// temp file in the same directory, then renamed over path so readers see
// either the old or the new content. If the rename fails the content is
// copied over path in place, which is not atomic.
func writeFile(path string, data []byte, renamer Renamer) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, fileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	renameErr := renamer.Rename(tmpPath, path)
	if renameErr == nil {
		return nil
	}

	logging.Warn().
		Err(renameErr).
		Str("path", path).
		Msg("Atomic rename not supported for registry file, falling back to copy")
	metrics.RegistryRenameFallbacks.Inc()

	if err := copyReplace(path, data); err != nil {
		return fmt.Errorf("fallback copy after rename failure (%v): %w", renameErr, err)
	}
	return nil
}

func copyReplace(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
