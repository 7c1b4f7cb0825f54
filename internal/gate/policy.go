// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package gate

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// privilegeModel grants by path pattern with deny taking precedence.
// keyMatch treats a trailing "*" as a prefix wildcard.
const privilegeModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj, eft

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj)
`

// Privileges decides which role may reach which path. Administrators may
// reach everything; clients may reach everything outside the admin namespace.
type Privileges struct {
	enforcer *casbin.SyncedEnforcer
}

// NewPrivileges builds the policy for an admin namespace made of exact
// paths and path prefixes.
func NewPrivileges(adminPaths, adminPrefixes []string) (*Privileges, error) {
	m, err := model.NewModelFromString(privilegeModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load privilege model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create privilege enforcer: %w", err)
	}

	rules := [][]string{
		{RoleAdmin, "*", "allow"},
		{RoleClient, "*", "allow"},
	}
	seen := make(map[string]bool)
	deny := func(pattern string) {
		if pattern == "" || seen[pattern] {
			return
		}
		seen[pattern] = true
		rules = append(rules, []string{RoleClient, pattern, "deny"})
	}
	for _, p := range adminPaths {
		deny(p)
	}
	for _, p := range adminPrefixes {
		if p = strings.TrimSuffix(p, "*"); p != "" {
			deny(p + "*")
		}
	}
	if _, err := enforcer.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("failed to add privilege policies: %w", err)
	}

	return &Privileges{enforcer: enforcer}, nil
}

// Allowed reports whether role may access path.
func (p *Privileges) Allowed(role, path string) (bool, error) {
	allowed, err := p.enforcer.Enforce(role, path)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}
