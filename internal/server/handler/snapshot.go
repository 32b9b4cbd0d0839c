package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// SnapshotBrowser defines the snapshot store methods the handler needs.
type SnapshotBrowser interface {
	ListSnapshots(ctx context.Context, sportKey, day string) ([]domain.BlobInfo, error)
	OpenSnapshot(ctx context.Context, path string) (io.ReadCloser, error)
}

// SnapshotHandler serves the archived raw-odds snapshots for replay and
// backtesting.
type SnapshotHandler struct {
	snapshots SnapshotBrowser
	logger    *slog.Logger
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(snapshots SnapshotBrowser, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots, logger: logger}
}

type snapshotInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// List returns the stored snapshots for one sport, optionally narrowed to a
// capture day via the `date` query parameter (YYYY-MM-DD).
// GET /api/snapshots?sport=soccer_epl&date=2026-08-26
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	sport := r.URL.Query().Get("sport")
	if sport == "" {
		writeError(w, http.StatusBadRequest, "sport query parameter is required")
		return
	}

	infos, err := h.snapshots.ListSnapshots(r.Context(), sport, r.URL.Query().Get("date"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list snapshots failed",
			slog.String("sport", sport),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}

	out := make([]snapshotInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, snapshotInfo{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"snapshots": out})
}

// Get streams one snapshot document. The path is the key returned by List.
// GET /api/snapshots/{path...}
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing snapshot path")
		return
	}

	body, err := h.snapshots.OpenSnapshot(r.Context(), "snapshots/"+path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get snapshot failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get snapshot")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
