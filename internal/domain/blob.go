package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage. Put is a single-shot upload for
// small documents such as odds snapshots; PutMultipart streams large archive
// batches in parts.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// Archiver moves old rows from the database to cold storage.
type Archiver interface {
	ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error)
	ArchiveHistory(ctx context.Context, before time.Time) (int64, error)
}

// SnapshotWriter stores raw odds snapshots for later backtesting.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, sportKey string, takenAt time.Time, events []Event) error
}
