// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

// Package validation validates administrative request bodies with
// go-playground/validator v10.
//
// The validator is a process-wide singleton so struct metadata is cached
// once. Besides the built-in tags it registers "notblank", which rejects
// strings made only of whitespace. Error messages name fields by their JSON
// names:
//
//	type createClientRequest struct {
//	    Name    string `json:"name" validate:"notblank,max=200"`
//	    Contact string `json:"contact" validate:"notblank,email,max=320"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // verr.Error() == "contact must be a valid email address"
//	}
package validation
