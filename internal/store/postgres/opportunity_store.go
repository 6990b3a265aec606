package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acremel/arbscan/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given
// connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, identity_key, type, symbols, markets,
	gross_spread_pct, estimated_fees_pct, net_profit_pct,
	confidence, volume_usd, detected_at`

const oppInsert = `
	INSERT INTO opportunities (
		id, identity_key, type, symbols, markets,
		gross_spread_pct, estimated_fees_pct, net_profit_pct,
		confidence, volume_usd, detected_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8,
		$9, $10, $11
	)`

func oppInsertArgs(opp domain.Opportunity) []any {
	return []any{
		opp.ID, opp.IdentityKey, string(opp.Type), opp.Symbols, opp.Markets,
		opp.GrossSpreadPct, opp.EstimatedFeesPct, opp.NetProfitPct,
		opp.Confidence, opp.VolumeUSD, opp.DetectedAt,
	}
}

// Insert stores a single detection record.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	if _, err := s.pool.Exec(ctx, oppInsert, oppInsertArgs(opp)...); err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// InsertBatch stores all records from one scan cycle in a single transaction,
// so a cycle's history is persisted all-or-nothing.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, opp := range opps {
		batch.Queue(oppInsert, oppInsertArgs(opp)...)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin opportunity batch: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: insert opportunity batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit opportunity batch: %w", err)
	}
	return nil
}

// ListRecent returns the most recent detections ordered by detection time
// descending. A non-positive limit returns all rows.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities ORDER BY detected_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// ListBefore returns all detections older than the given cutoff, oldest
// first. The archiver uses this to page history out to blob storage.
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + `
		FROM opportunities
		WHERE detected_at < $1
		ORDER BY detected_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// DeleteBefore removes all detections older than the cutoff and returns how
// many rows were deleted.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanOpportunities(rows pgx.Rows) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var typ string

		if err := rows.Scan(
			&opp.ID, &opp.IdentityKey, &typ, &opp.Symbols, &opp.Markets,
			&opp.GrossSpreadPct, &opp.EstimatedFeesPct, &opp.NetProfitPct,
			&opp.Confidence, &opp.VolumeUSD, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Type = domain.OpportunityType(typ)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: opportunity rows: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
