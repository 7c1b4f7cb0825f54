// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

/*
Package main is the entry point for the tarsgate server.

Tarsgate keeps a persistent registry of API clients and puts every HTTP
request through a gate that authenticates the caller credential, keeps
clients out of the admin namespace and enforces each client's per-minute
request allowance.

# Startup

 1. Configuration: Koanf v2 (defaults, optional YAML file, environment)
 2. Logging: zerolog, JSON or console
 3. Registry: JSON file, optional badger journal replayed on open
 4. Admission controller and audit logger
 5. Gate and chi router
 6. Supervisor tree with the HTTP server and the idle window sweeper

The supervisor tree:

	RootSupervisor ("tarsgate")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── SweeperService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

# Configuration

	HTTP_HOST=0.0.0.0
	HTTP_PORT=8080
	HTTP_SHUTDOWN_TIMEOUT=10s

	SECURITY_ENABLED=true
	API_KEY_HEADER=X-API-Key
	ADMIN_API_KEYS=key1,key2
	PUBLIC_PATHS=/,/index,/health,/health/live,/health/ready
	PUBLIC_PREFIXES=/static/,/assets/,/favicon
	ADMIN_PATHS=/clients
	ADMIN_PREFIXES=/clients/,/client/,/admin/
	IP_FLOOD_LIMIT=600
	IP_FLOOD_WINDOW=1m

	REGISTRY_PATH=./data/clients.json
	DEFAULT_REQUESTS_PER_MINUTE=60
	DEFAULT_MAX_CONCURRENT=5
	REGISTRY_JOURNAL_ENABLED=false
	REGISTRY_JOURNAL_PATH=./data/journal

	ADMISSION_IDLE_TTL=10m
	ADMISSION_SWEEP_INTERVAL=1m

	AUDIT_ENABLED=true
	AUDIT_MAX_EVENTS=10000

	CORS_ORIGINS=*
	LOG_LEVEL=info
	LOG_FORMAT=json

CONFIG_PATH points at a YAML file with the same keys in nested form.

# Signals

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
in-flight requests for up to HTTP_SHUTDOWN_TIMEOUT, then the audit buffer is
flushed and the journal is closed.

# Example

	export ADMIN_API_KEYS=$(openssl rand -hex 32)
	./tarsgate &
	curl -s -H "X-API-Key: $ADMIN_API_KEYS" -d '{"name":"Acme","contact":"ops@acme.com"}' \
	    http://localhost:8080/clients
*/
package main
