package audit

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Backend is the capability set an audit sink backend implements: accept a
// serialised event, flush any buffering, and report a name for
// diagnostics.
type Backend interface {
	Log(data []byte) error
	Flush() error
	Name() string
}

// Logger accepts Events, filters by a minimum severity, and fans each
// surviving event out to every registered backend. Backend errors are
// reported through BackendErrors but never propagate to the caller.
type Logger struct {
	backends    []Backend
	minSeverity Severity
	metrics     *Metrics
	log         *logrus.Entry

	mu     sync.Mutex
	errors []BackendError
}

// BackendError records one backend's failure to accept an event.
type BackendError struct {
	Backend string
	EventID string
	Err     error
}

// NewLogger builds a Logger fanning events out to backends, dropping events
// below minSeverity.
func NewLogger(minSeverity Severity, backends ...Backend) *Logger {
	return &Logger{
		backends:    backends,
		minSeverity: minSeverity,
		log:         logrus.WithField("component", "audit.logger"),
	}
}

// WithMetrics attaches a Metrics collector so every accepted event also
// increments its Prometheus counter.
func (l *Logger) WithMetrics(m *Metrics) *Logger {
	l.metrics = m
	return l
}

// Log serialises event and dispatches it to every backend, recording (but
// not returning) any backend error.
func (l *Logger) Log(event Event) {
	if event.Severity < l.minSeverity {
		return
	}
	data, err := json.Marshal(eventDocument(event))
	if err != nil {
		l.log.WithError(err).Error("failed to marshal audit event")
		return
	}
	if l.metrics != nil {
		l.metrics.Observe(event)
	}

	for _, b := range l.backends {
		if err := b.Log(data); err != nil {
			l.mu.Lock()
			l.errors = append(l.errors, BackendError{Backend: b.Name(), EventID: event.ID, Err: err})
			l.mu.Unlock()
			l.log.WithError(err).WithField("backend", b.Name()).Warn("audit backend rejected event")
		}
	}
}

// Flush flushes every backend, collecting (not returning) failures the same
// way Log does.
func (l *Logger) Flush() {
	for _, b := range l.backends {
		if err := b.Flush(); err != nil {
			l.mu.Lock()
			l.errors = append(l.errors, BackendError{Backend: b.Name(), Err: err})
			l.mu.Unlock()
			l.log.WithError(err).WithField("backend", b.Name()).Warn("audit backend flush failed")
		}
	}
}

// Errors returns every backend failure recorded so far.
func (l *Logger) Errors() []BackendError {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]BackendError, len(l.errors))
	copy(out, l.errors)
	return out
}

// eventDocument flattens event into a JSON-friendly map, keyed per its
// event-type-specific field layout.
func eventDocument(e Event) map[string]any {
	doc := map[string]any{
		"id":        e.ID,
		"timestamp": e.Timestamp.Format("2006-01-02T15:04:05.999999999Z07:00"),
		"severity":  e.Severity.String(),
	}
	if e.CorrelationID != "" {
		doc["correlation_id"] = e.CorrelationID
	}
	switch e.Kind {
	case EventPolicy:
		doc["type"] = "policy"
		doc["policy"] = e.Policy
	case EventBundle:
		doc["type"] = "bundle"
		doc["bundle"] = e.Bundle
	case EventDistribution:
		doc["type"] = "distribution"
		doc["distribution"] = e.Distribution
	case EventAuthorization:
		doc["type"] = "authorization"
		doc["authorization"] = e.Authorization
	}
	return doc
}
