// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tarsgate/config.yaml",
	"/etc/tarsgate/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Gate: GateConfig{
			Enabled:          true,
			HeaderName:       "X-API-Key",
			PublicPaths:      []string{"/", "/index", "/health", "/health/live", "/health/ready"},
			PublicPrefixes:   []string{"/static/", "/assets/", "/favicon"},
			AdminCredentials: []string{},
			AdminPaths:       []string{"/clients"},
			AdminPrefixes:    []string{"/clients/", "/client/", "/admin/"},
			IPFloodLimit:     600,
			IPFloodWindow:    time.Minute,
			IPFloodDisabled:  false,
		},
		Registry: RegistryConfig{
			Path:                     "./data/clients.json",
			DefaultRequestsPerMinute: 60,
			DefaultMaxConcurrent:     5,
			JournalEnabled:           false,
			JournalPath:              "./data/journal",
			JournalSyncWrites:        true,
		},
		Admission: AdmissionConfig{
			IdleTTL:       10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			MaxEvents:  10000,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in defaults
//  2. Config file: optional YAML file
//  3. Environment variables: override any mapped setting
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// API_KEY_HEADER -> gate.header_name, REGISTRY_PATH -> registry.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file found, or empty string if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as strings.
var sliceConfigPaths = []string{
	"gate.public_paths",
	"gate.public_prefixes",
	"gate.admin_credentials",
	"gate.admin_paths",
	"gate.admin_prefixes",
	"cors.allowed_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Gate
	"security_enabled":       "gate.enabled",
	"api_key_header":         "gate.header_name",
	"public_paths":           "gate.public_paths",
	"public_prefixes":        "gate.public_prefixes",
	"admin_api_keys":         "gate.admin_credentials",
	"admin_paths":            "gate.admin_paths",
	"admin_prefixes":         "gate.admin_prefixes",
	"ip_flood_limit":         "gate.ip_flood_limit",
	"ip_flood_window":        "gate.ip_flood_window",
	"disable_ip_flood_limit": "gate.ip_flood_disabled",

	// Registry
	"registry_path":               "registry.path",
	"default_requests_per_minute": "registry.default_requests_per_minute",
	"default_max_concurrent":      "registry.default_max_concurrent",
	"registry_journal_enabled":    "registry.journal_enabled",
	"registry_journal_path":       "registry.journal_path",
	"registry_journal_sync":       "registry.journal_sync_writes",

	// Admission
	"admission_idle_ttl":       "admission.idle_ttl",
	"admission_sweep_interval": "admission.sweep_interval",

	// Audit
	"audit_enabled":     "audit.enabled",
	"audit_buffer_size": "audit.buffer_size",
	"audit_max_events":  "audit.max_events",

	// CORS
	"cors_origins": "cors.allowed_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return empty string and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
