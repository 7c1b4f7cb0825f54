// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/tarsgate/internal/logging"
)

// MinAdminCredentialLength is the shortest administrator credential accepted.
const MinAdminCredentialLength = 16

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateGate(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateAdmission(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateGate() error {
	g := c.Gate
	if strings.TrimSpace(g.HeaderName) == "" {
		return fmt.Errorf("API_KEY_HEADER must not be empty")
	}

	for _, cred := range g.AdminCredentials {
		if len(cred) < MinAdminCredentialLength {
			return fmt.Errorf("ADMIN_API_KEYS entries must be at least %d characters", MinAdminCredentialLength)
		}
	}

	if len(g.AdminPaths) == 0 && len(g.AdminPrefixes) == 0 {
		return fmt.Errorf("administrator namespace must not be empty")
	}

	for _, p := range g.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("public path %q must start with '/'", p)
		}
		if g.isAdminPath(p) {
			return fmt.Errorf("public path %q overlaps the administrator namespace", p)
		}
	}
	for _, pre := range g.PublicPrefixes {
		if !strings.HasPrefix(pre, "/") {
			return fmt.Errorf("public prefix %q must start with '/'", pre)
		}
		for _, adminPre := range g.AdminPrefixes {
			if strings.HasPrefix(pre, adminPre) || strings.HasPrefix(adminPre, pre) {
				return fmt.Errorf("public prefix %q overlaps administrator prefix %q", pre, adminPre)
			}
		}
		for _, adminPath := range g.AdminPaths {
			if strings.HasPrefix(adminPath, pre) {
				return fmt.Errorf("public prefix %q overlaps administrator path %q", pre, adminPath)
			}
		}
	}

	if !g.IPFloodDisabled {
		if g.IPFloodLimit <= 0 {
			return fmt.Errorf("IP_FLOOD_LIMIT must be positive")
		}
		if g.IPFloodWindow < time.Second {
			return fmt.Errorf("IP_FLOOD_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (g GateConfig) isAdminPath(p string) bool {
	for _, a := range g.AdminPaths {
		if p == a {
			return true
		}
	}
	for _, pre := range g.AdminPrefixes {
		if strings.HasPrefix(p, pre) {
			return true
		}
	}
	return false
}

func (c *Config) validateRegistry() error {
	r := c.Registry
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("REGISTRY_PATH must not be empty")
	}
	if r.DefaultRequestsPerMinute <= 0 {
		return fmt.Errorf("DEFAULT_REQUESTS_PER_MINUTE must be positive, got %d", r.DefaultRequestsPerMinute)
	}
	if r.DefaultMaxConcurrent <= 0 {
		return fmt.Errorf("DEFAULT_MAX_CONCURRENT must be positive, got %d", r.DefaultMaxConcurrent)
	}
	if r.JournalEnabled && strings.TrimSpace(r.JournalPath) == "" {
		return fmt.Errorf("REGISTRY_JOURNAL_PATH is required when REGISTRY_JOURNAL_ENABLED=true")
	}
	return nil
}

func (c *Config) validateAdmission() error {
	if c.Admission.IdleTTL < time.Minute {
		return fmt.Errorf("ADMISSION_IDLE_TTL must be at least 1m, got %s", c.Admission.IdleTTL)
	}
	if c.Admission.SweepInterval <= 0 {
		return fmt.Errorf("ADMISSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize <= 0 || c.Audit.MaxEvents <= 0 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE and AUDIT_MAX_EVENTS must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error, disabled", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
