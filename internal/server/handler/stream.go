package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// Stream replay bounds.
const (
	defaultStreamCount = 50
	maxStreamCount     = 500
)

// streamNames maps the public channel names onto their durable stream keys.
var streamNames = map[string]string{
	"opportunities": "stream:opportunities",
	"predictions":   "stream:predictions",
}

// StreamReader defines the bus method the stream handler needs.
type StreamReader interface {
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error)
}

// StreamHandler replays the durable event streams so clients that missed
// live WebSocket fan-out can catch up.
type StreamHandler struct {
	bus    StreamReader
	logger *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(bus StreamReader, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{bus: bus, logger: logger}
}

type streamMessage struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Replay returns entries from one durable stream, oldest first. The `after`
// query parameter is the last stream ID the client has seen ("0-0" replays
// from the beginning); `count` caps the batch.
// GET /api/streams/{channel}
func (h *StreamHandler) Replay(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	stream, ok := streamNames[channel]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown stream")
		return
	}

	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0-0"
	}

	count := defaultStreamCount
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = n
	}
	if count > maxStreamCount {
		count = maxStreamCount
	}

	msgs, err := h.bus.StreamRead(r.Context(), stream, after, count)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: stream replay failed",
			slog.String("stream", stream),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read stream")
		return
	}

	out := make([]streamMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, streamMessage{ID: m.ID, Payload: json.RawMessage(m.Payload)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channel":  channel,
		"messages": out,
	})
}
