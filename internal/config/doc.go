// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

/*
Package config provides centralized configuration management for Tarsgate.

Configuration is layered with Koanf v2: struct defaults, then an optional YAML
file (CONFIG_PATH, ./config.yaml, /etc/tarsgate/config.yaml), then environment
variables. The resulting Config is validated once and never mutated afterwards.

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8080)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT

Gate:
  - SECURITY_ENABLED: enable the request gate (default: true)
  - API_KEY_HEADER: credential header name (default: X-API-Key)
  - PUBLIC_PATHS: comma-separated exact public paths (default: /,/index,/health,...)
  - PUBLIC_PREFIXES: comma-separated public prefixes (default: /static/,/assets/,/favicon)
  - ADMIN_API_KEYS: comma-separated administrator credentials
  - ADMIN_PATHS, ADMIN_PREFIXES: administrator namespace
  - IP_FLOOD_LIMIT, IP_FLOOD_WINDOW, DISABLE_IP_FLOOD_LIMIT

Registry:
  - REGISTRY_PATH (default: ./data/clients.json)
  - DEFAULT_REQUESTS_PER_MINUTE (default: 60), DEFAULT_MAX_CONCURRENT (default: 5)
  - REGISTRY_JOURNAL_ENABLED, REGISTRY_JOURNAL_PATH, REGISTRY_JOURNAL_SYNC

Admission:
  - ADMISSION_IDLE_TTL (default: 10m), ADMISSION_SWEEP_INTERVAL (default: 1m)

Audit:
  - AUDIT_ENABLED, AUDIT_BUFFER_SIZE, AUDIT_MAX_EVENTS

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Other:
  - CORS_ORIGINS: comma-separated allowed origins (default: *)
*/
package config
