// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package logging

import "strings"

// RedactCredential masks a caller credential for logging, keeping only the
// first four characters.
// Example: "9f86d081884c7d659a2feaa0c55ad015" -> "9f86****"
func RedactCredential(credential string) string {
	if credential == "" {
		return ""
	}
	if len(credential) <= 8 {
		return "****"
	}
	return credential[:4] + "****"
}

// RedactContact masks an email-style contact, keeping the first two
// characters of the local part and the domain.
// Example: "ops@acme.com" -> "op***@acme.com"
func RedactContact(contact string) string {
	if contact == "" {
		return ""
	}
	at := strings.Index(contact, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := contact[:at], contact[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}
