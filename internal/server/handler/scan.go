package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// ScanHandler serves the manual scan trigger endpoint.
type ScanHandler struct {
	logger    *slog.Logger
	triggerCh chan<- struct{} // when non-nil, sending triggers one scan cycle
}

// NewScanHandler creates a ScanHandler with the given logger.
func NewScanHandler(logger *slog.Logger) *ScanHandler {
	return &ScanHandler{logger: logger}
}

// WithTriggerChannel sets the channel to send on when a trigger is requested.
// The scan loop must receive from this channel to run one cycle.
func (h *ScanHandler) WithTriggerChannel(ch chan<- struct{}) *ScanHandler {
	h.triggerCh = ch
	return h
}

// Trigger enqueues one scan cycle. The send is non-blocking so repeated
// triggers collapse into a single pending cycle.
// POST /api/scan/trigger
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: scan trigger requested")
	if h.triggerCh != nil {
		select {
		case h.triggerCh <- struct{}{}:
		default:
			// already triggered and not yet consumed
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"message":      "scan trigger enqueued",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
