// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tarsgate/internal/logging"
)

// Config configures the audit logger.
type Config struct {
	Enabled    bool
	BufferSize int
}

// Logger records audit events asynchronously. A nil *Logger is valid and
// discards everything.
type Logger struct {
	enabled   bool
	store     Store
	eventChan chan *Event
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLogger starts a logger writing to store.
func NewLogger(store Store, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}

	l := &Logger{
		enabled:   cfg.Enabled,
		store:     store,
		eventChan: make(chan *Event, cfg.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain what is already buffered.
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to save audit event")
	}
}

// Log queues an event. It never blocks; when the buffer is full the event
// is dropped with a warning.
func (l *Logger) Log(event *Event) {
	if l == nil || !l.enabled {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// Close stops the writer after flushing buffered events.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Query returns stored events matching filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	if l == nil {
		return []Event{}, nil
	}
	return l.store.Query(ctx, filter)
}

// Enabled reports whether events are recorded.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// LogGateDenial records a request rejected by the gate.
//
//nolint:gocritic // hugeParam: Actor and Source passed by value for API simplicity
func (l *Logger) LogGateDenial(ctx context.Context, eventType EventType, actor Actor, source Source, reason string) {
	severity := SeverityWarning
	if eventType == EventTypeAuthzDenied {
		severity = SeverityCritical
	}
	l.Log(&Event{
		Type:        eventType,
		Severity:    severity,
		Outcome:     OutcomeFailure,
		Actor:       actor,
		Source:      source,
		Action:      "access",
		Description: reason,
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogClientChange records an administrative mutation of the registry.
//
//nolint:gocritic // hugeParam: Actor and Source passed by value for API simplicity
func (l *Logger) LogClientChange(ctx context.Context, eventType EventType, actor Actor, target Target, source Source, description string, metadata map[string]any) {
	l.Log(&Event{
		Type:        eventType,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Target:      &target,
		Source:      source,
		Action:      string(eventType),
		Description: description,
		Metadata:    mustJSON(metadata),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

func mustJSON(v map[string]any) json.RawMessage {
	if len(v) == 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
