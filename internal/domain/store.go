package domain

import (
	"context"
	"io"
	"time"
)

// OpportunityStore persists opportunity history for the external consumer.
// The stable identity key on each row lets consumers deduplicate
// independently of the scanner's cool-down cache.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	InsertBatch(ctx context.Context, opps []Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	ListBefore(ctx context.Context, before time.Time) ([]Opportunity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BlobWriter uploads serialized objects to blob storage (opportunity history
// archives).
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
