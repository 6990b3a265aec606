package domain

import (
	"context"
	"time"
)

// CoolDownCache remembers when each opportunity identity was last reported so
// the orchestrator can suppress repeats inside the cool-down window. It is
// the only state shared across scan cycles.
type CoolDownCache interface {
	// LastReportedAt returns when the identity was last reported. It returns
	// ErrNotFound when the identity has never been reported or has expired.
	LastReportedAt(ctx context.Context, identityKey string) (time.Time, error)
	// MarkReported records that the identity was reported at the given time.
	// Entries may be evicted once ttl has elapsed.
	MarkReported(ctx context.Context, identityKey string, at time.Time, ttl time.Duration) error
}

// StreamMessage is a single entry read back from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub fan-out and durable streams for downstream
// consumers (dashboard WebSocket hub, alerting).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
