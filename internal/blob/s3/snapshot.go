package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// snapshotPrefix roots every snapshot key; OpenSnapshot refuses paths
// outside it.
const snapshotPrefix = "snapshots/"

// Snapshots stores each raw odds response as a JSON document, partitioned by
// sport and capture day, and serves them back for replay and backtesting.
//
// Key schema:
//
//	snapshots/{sport_key}/2026-08-26/150405.json
type Snapshots struct {
	writer domain.BlobWriter
	reader domain.BlobReader
}

// NewSnapshots creates a write-only Snapshots store.
func NewSnapshots(writer domain.BlobWriter) *Snapshots {
	return &Snapshots{writer: writer}
}

// WithReader enables the browse and replay side.
func (s *Snapshots) WithReader(reader domain.BlobReader) *Snapshots {
	s.reader = reader
	return s
}

// WriteSnapshot stores one scan cycle's events for a sport. Empty cycles are
// skipped.
func (s *Snapshots) WriteSnapshot(ctx context.Context, sportKey string, takenAt time.Time, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	doc := struct {
		SportKey string         `json:"sport_key"`
		TakenAt  time.Time      `json:"taken_at"`
		Events   []domain.Event `json:"events"`
	}{
		SportKey: sportKey,
		TakenAt:  takenAt.UTC(),
		Events:   events,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("s3blob: marshal snapshot %s: %w", sportKey, err)
	}

	path := fmt.Sprintf("%s%s/%s/%s.json",
		snapshotPrefix,
		sportKey,
		takenAt.UTC().Format("2006-01-02"),
		takenAt.UTC().Format("150405"),
	)

	if err := s.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: write snapshot %s: %w", sportKey, err)
	}
	return nil
}

// ListSnapshots returns metadata for the stored snapshots of one sport,
// optionally narrowed to a single capture day (YYYY-MM-DD). It returns
// domain.ErrNotConfigured when no reader is attached.
func (s *Snapshots) ListSnapshots(ctx context.Context, sportKey, day string) ([]domain.BlobInfo, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("s3blob: list snapshots: %w", domain.ErrNotConfigured)
	}

	prefix := snapshotPrefix + sportKey + "/"
	if day != "" {
		prefix += day + "/"
	}

	infos, err := s.reader.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("s3blob: list snapshots %s: %w", sportKey, err)
	}
	return infos, nil
}

// OpenSnapshot streams one stored snapshot document. The path must come from
// ListSnapshots; anything outside the snapshot prefix is rejected.
func (s *Snapshots) OpenSnapshot(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("s3blob: open snapshot: %w", domain.ErrNotConfigured)
	}
	if !strings.HasPrefix(path, snapshotPrefix) || strings.Contains(path, "..") {
		return nil, fmt.Errorf("s3blob: open snapshot %s: %w", path, domain.ErrNotFound)
	}
	return s.reader.Get(ctx, path)
}

// Compile-time interface check.
var _ domain.SnapshotWriter = (*Snapshots)(nil)
