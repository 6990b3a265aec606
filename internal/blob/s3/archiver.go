package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/acremel/arbscan/internal/domain"
)

// HistoryStore is the narrow slice of the opportunity store the archiver
// needs: paging old detections out and, once archived, pruning them.
type HistoryStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver pages old opportunity history out of the primary store into blob
// storage as newline-delimited JSON, partitioned by the cutoff's year-month.
type Archiver struct {
	writer *Writer
	store  HistoryStore
	logger *slog.Logger

	// Prune deletes archived rows from the primary store after a successful
	// upload. Left false, the archiver is a pure export.
	Prune bool
}

// NewArchiver creates an Archiver writing through the given blob Writer.
func NewArchiver(writer *Writer, store HistoryStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		store:  store,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveBefore queries all detections older than the cutoff, uploads them as
// one JSONL object at archive/opportunities/YYYY-MM.jsonl, and returns the
// number of records archived. When Prune is set the archived rows are deleted
// from the primary store after the upload succeeds.
func (a *Archiver) ArchiveBefore(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(before)
	if int64(len(buf)) > minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	count := int64(len(opps))
	a.logger.Info("history archived",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before))

	if a.Prune {
		deleted, err := a.store.DeleteBefore(ctx, before)
		if err != nil {
			return count, fmt.Errorf("s3blob: archive prune: %w", err)
		}
		a.logger.Info("history pruned", slog.Int64("deleted", deleted))
	}

	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time, e.g. archive/opportunities/2026-08.jsonl.
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/opportunities/%s.jsonl", before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// object per line.
func marshalJSONL(opps []domain.Opportunity) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, opp := range opps {
		if err := enc.Encode(opp); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
