// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration. It is loaded once at startup
// and treated as immutable for the lifetime of the process.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Gate      GateConfig      `koanf:"gate"`
	Registry  RegistryConfig  `koanf:"registry"`
	Admission AdmissionConfig `koanf:"admission"`
	Audit     AuditConfig     `koanf:"audit"`
	CORS      CORSConfig      `koanf:"cors"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// GateConfig is the request gate policy.
//
// Paths in PublicPaths and AdminPaths match exactly; entries in PublicPrefixes
// and AdminPrefixes match any path that starts with them.
type GateConfig struct {
	Enabled          bool     `koanf:"enabled"`
	HeaderName       string   `koanf:"header_name"`
	PublicPaths      []string `koanf:"public_paths"`
	PublicPrefixes   []string `koanf:"public_prefixes"`
	AdminCredentials []string `koanf:"admin_credentials"`
	AdminPaths       []string `koanf:"admin_paths"`
	AdminPrefixes    []string `koanf:"admin_prefixes"`

	// IP flood guard in front of credential checks (per remote address).
	IPFloodLimit    int           `koanf:"ip_flood_limit"`
	IPFloodWindow   time.Duration `koanf:"ip_flood_window"`
	IPFloodDisabled bool          `koanf:"ip_flood_disabled"`
}

// RegistryConfig controls the client registry store.
type RegistryConfig struct {
	Path                     string `koanf:"path"`
	DefaultRequestsPerMinute int    `koanf:"default_requests_per_minute"`
	DefaultMaxConcurrent     int    `koanf:"default_max_concurrent"`

	// Optional badger write-ahead journal for registry mutations.
	JournalEnabled    bool   `koanf:"journal_enabled"`
	JournalPath       string `koanf:"journal_path"`
	JournalSyncWrites bool   `koanf:"journal_sync_writes"`
}

// AdmissionConfig controls eviction of idle rate windows. The window length
// itself is fixed at one minute.
type AdmissionConfig struct {
	IdleTTL       time.Duration `koanf:"idle_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// AuditConfig controls the in-memory security audit trail.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	MaxEvents  int  `koanf:"max_events"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
