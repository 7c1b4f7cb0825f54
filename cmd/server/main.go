// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/tomtom215/tarsgate/internal/admission"
	"github.com/tomtom215/tarsgate/internal/api"
	"github.com/tomtom215/tarsgate/internal/audit"
	"github.com/tomtom215/tarsgate/internal/config"
	"github.com/tomtom215/tarsgate/internal/gate"
	"github.com/tomtom215/tarsgate/internal/logging"
	"github.com/tomtom215/tarsgate/internal/registry"
	"github.com/tomtom215/tarsgate/internal/supervisor"
	"github.com/tomtom215/tarsgate/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("addr", cfg.Server.Addr()).
		Str("registry_path", cfg.Registry.Path).
		Bool("journal_enabled", cfg.Registry.JournalEnabled).
		Bool("gate_enabled", cfg.Gate.Enabled).
		Msg("Starting tarsgate")

	journal, store := openRegistry(&cfg.Registry)
	defer func() {
		if journal == nil {
			return
		}
		if err := journal.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing registry journal")
		}
	}()

	windows := admission.New()

	auditLogger := audit.NewLogger(audit.NewMemoryStore(cfg.Audit.MaxEvents), audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
	})
	defer func() {
		if err := auditLogger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit logger")
		}
	}()

	requestGate, err := gate.New(cfg.Gate, store, windows, gate.WithAuditLogger(auditLogger))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build request gate")
	}
	if len(cfg.Gate.AdminCredentials) == 0 && cfg.Gate.Enabled {
		logging.Warn().Msg("No administrator credentials configured (ADMIN_API_KEYS): the admin API is unreachable")
	}
	logging.Info().Str("gate", requestGate.String()).Msg("Request gate configured")

	handler := api.NewHandler(store, windows, auditLogger)
	router := api.NewRouter(handler, requestGate, api.NewChiMiddleware(chiMiddlewareConfig(cfg, requestGate.HeaderName())))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddMaintenanceService(services.NewSweeperService(windows, cfg.Admission.IdleTTL, cfg.Admission.SweepInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	for err := range tree.ServeBackground(ctx) {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Tarsgate stopped")
}

// openRegistry opens the optional journal and loads the registry file,
// replaying any journal entries that never reached it.
func openRegistry(cfg *config.RegistryConfig) (*registry.Journal, *registry.Store) {
	var journal *registry.Journal
	if cfg.JournalEnabled {
		j, err := registry.OpenJournal(registry.JournalConfig{
			Path:       cfg.JournalPath,
			SyncWrites: cfg.JournalSyncWrites,
		})
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.JournalPath).Msg("Failed to open registry journal")
		}
		journal = j
	}

	store, err := registry.Open(registry.Options{
		Path:                     cfg.Path,
		DefaultRequestsPerMinute: cfg.DefaultRequestsPerMinute,
		DefaultMaxConcurrent:     cfg.DefaultMaxConcurrent,
		Journal:                  journal,
	})
	if err != nil {
		if journal != nil {
			_ = journal.Close()
		}
		logging.Fatal().Err(err).Str("path", cfg.Path).Msg("Failed to load client registry")
	}
	return journal, store
}

func chiMiddlewareConfig(cfg *config.Config, credentialHeader string) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.CORS.AllowedOrigins
	if !slices.Contains(mw.CORSAllowedHeaders, credentialHeader) {
		mw.CORSAllowedHeaders = append(mw.CORSAllowedHeaders, credentialHeader)
	}
	mw.FloodLimit = cfg.Gate.IPFloodLimit
	mw.FloodWindow = cfg.Gate.IPFloodWindow
	mw.FloodDisabled = cfg.Gate.IPFloodDisabled
	return mw
}
