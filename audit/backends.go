package audit

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// LogBackend forwards audit events to a structured logger, the minimum
// reference backend every deployment gets for free.
type LogBackend struct {
	log *logrus.Entry
}

// NewLogBackend builds a LogBackend writing through log.
func NewLogBackend(log *logrus.Entry) *LogBackend {
	return &LogBackend{log: log}
}

func (b *LogBackend) Log(data []byte) error {
	b.log.WithField("event", string(data)).Info("audit event")
	return nil
}

func (b *LogBackend) Flush() error { return nil }
func (b *LogBackend) Name() string { return "log" }

// InMemoryBackend retains every accepted event's raw bytes, for tests and
// for short-lived local inspection.
type InMemoryBackend struct {
	mu      sync.Mutex
	entries [][]byte
}

// NewInMemoryBackend builds an empty InMemoryBackend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{}
}

func (b *InMemoryBackend) Log(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	b.entries = append(b.entries, cp)
	return nil
}

func (b *InMemoryBackend) Flush() error { return nil }
func (b *InMemoryBackend) Name() string { return "memory" }

// Entries returns every event logged so far, in order.
func (b *InMemoryBackend) Entries() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.entries))
	copy(out, b.entries)
	return out
}
