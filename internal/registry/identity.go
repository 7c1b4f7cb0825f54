// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Identity is one registered caller. It holds only scalar fields, so every
// copy handed out by the Store is independent of the stored row.
type Identity struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Contact           string `json:"contact"`
	Credential        string `json:"credential"`
	RequestsPerMinute int    `json:"requestsPerMinute"`
	MaxConcurrent     int    `json:"maxConcurrent"`
}

// credentialBytes is the size of a generated credential before hex encoding.
const credentialBytes = 16

// NewCredential returns a random 128-bit credential rendered as lowercase hex.
func NewCredential() (string, error) {
	buf := make([]byte, credentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate credential: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
