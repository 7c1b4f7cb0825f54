// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return the same non-nil instance")
	}
}

type clientBody struct {
	Name    string `json:"name" validate:"notblank,max=20"`
	Contact string `json:"contact" validate:"notblank,email"`
	Limit   int    `json:"limit" validate:"gt=0"`
	Note    string `validate:"omitempty,min=3"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	valid := clientBody{Name: "Acme", Contact: "a@acme.com", Limit: 1}

	tests := []struct {
		name       string
		mutate     func(b *clientBody)
		wantFields []string
		wantMsg    string
	}{
		{name: "valid", mutate: func(*clientBody) {}},
		{
			name:       "blank name",
			mutate:     func(b *clientBody) { b.Name = "   " },
			wantFields: []string{"name"},
			wantMsg:    "name cannot be blank",
		},
		{
			name:       "bad email",
			mutate:     func(b *clientBody) { b.Contact = "not-an-email" },
			wantFields: []string{"contact"},
			wantMsg:    "contact must be a valid email address",
		},
		{
			name:       "name too long",
			mutate:     func(b *clientBody) { b.Name = strings.Repeat("x", 21) },
			wantFields: []string{"name"},
			wantMsg:    "name must be at most 20 characters",
		},
		{
			name:       "non-positive limit",
			mutate:     func(b *clientBody) { b.Limit = 0 },
			wantFields: []string{"limit"},
			wantMsg:    "limit must be greater than 0",
		},
		{
			name:       "field without json tag uses go name",
			mutate:     func(b *clientBody) { b.Note = "ab" },
			wantFields: []string{"Note"},
			wantMsg:    "Note must be at least 3 characters",
		},
		{
			name: "multiple errors keep declaration order",
			mutate: func(b *clientBody) {
				b.Name = ""
				b.Contact = ""
			},
			wantFields: []string{"name", "contact"},
			wantMsg:    "name cannot be blank; contact cannot be blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := valid
			tt.mutate(&body)
			verr := ValidateStruct(&body)

			if len(tt.wantFields) == 0 {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Fatalf("got %d field errors, want %d: %v", len(verr.Fields), len(tt.wantFields), verr)
			}
			for i, f := range tt.wantFields {
				if verr.Fields[i].Field != f {
					t.Errorf("Fields[%d].Field = %q, want %q", i, verr.Fields[i].Field, f)
				}
			}
			if verr.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", verr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	t.Parallel()

	if got := (&RequestValidationError{}).Error(); got != "validation failed" {
		t.Errorf("Error() = %q", got)
	}
}
