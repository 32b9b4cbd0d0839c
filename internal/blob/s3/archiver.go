package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// Archive batch size. Each pass moves at most this many rows so one cron run
// stays bounded.
const archiveBatchSize = 5000

// Archiver implements domain.Archiver by draining old rows from the primary
// stores into JSONL files on S3, then deleting the archived rows. Deletion
// only happens after the upload succeeded, so a failed run leaves the rows in
// place for the next pass.
type Archiver struct {
	writer  domain.BlobWriter
	opps    domain.OpportunityStore
	history domain.HistoryStore
	now     func() time.Time
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, opps domain.OpportunityStore, history domain.HistoryStore) *Archiver {
	return &Archiver{
		writer:  writer,
		opps:    opps,
		history: history,
		now:     time.Now,
	}
}

// ArchiveOpportunities uploads opportunities detected before the cutoff as a
// JSONL batch and removes them from the database. It returns the number of
// rows archived.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.opps.ListBefore(ctx, before, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", before, a.now())
	if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	ids := make([]string, 0, len(opps))
	for _, opp := range opps {
		ids = append(ids, opp.ID)
	}
	deleted, err := a.opps.DeleteByIDs(ctx, ids)
	if err != nil {
		return deleted, fmt.Errorf("s3blob: archive opportunities delete: %w", err)
	}

	return int64(len(opps)), nil
}

// ArchiveHistory uploads settled predictions older than the cutoff as a
// JSONL batch and removes them from the database. Pending predictions are
// never archived. It returns the number of rows archived.
func (a *Archiver) ArchiveHistory(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.history.ListSettledBefore(ctx, before, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history marshal: %w", err)
	}

	path := archivePath("predictions", before, a.now())
	if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0); err != nil {
		return 0, fmt.Errorf("s3blob: archive history upload: %w", err)
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	deleted, err := a.history.DeleteByIDs(ctx, ids)
	if err != nil {
		return deleted, fmt.Errorf("s3blob: archive history delete: %w", err)
	}

	return int64(len(recs)), nil
}

// archivePath builds the S3 key for one archive batch, partitioned by the
// year-month of the cutoff and suffixed with the run time so successive
// passes in the same month never overwrite each other.
//
//	archive/opportunities/2026-08/20260826T031500Z.jsonl
func archivePath(kind string, before, runAt time.Time) string {
	return fmt.Sprintf("archive/%s/%s/%s.jsonl",
		kind,
		before.Format("2006-01"),
		runAt.UTC().Format("20060102T150405Z"),
	)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
