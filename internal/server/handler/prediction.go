package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// PredictionLister defines the store methods the prediction handler needs.
type PredictionLister interface {
	ListByChat(ctx context.Context, chatID int64, opts domain.ListOpts) ([]domain.PredictionRecord, error)
}

// PredictionHandler serves prediction history endpoints.
type PredictionHandler struct {
	history PredictionLister
	logger  *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(history PredictionLister, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{history: history, logger: logger}
}

// listPredictionsResponse wraps the prediction history response.
type listPredictionsResponse struct {
	Predictions []domain.PredictionRecord `json:"predictions"`
}

// List returns prediction history for one chat, newest first.
// GET /api/predictions?chat_id=123&limit=50&offset=0
func (h *PredictionHandler) List(w http.ResponseWriter, r *http.Request) {
	chatParam := r.URL.Query().Get("chat_id")
	if chatParam == "" {
		writeError(w, http.StatusBadRequest, "missing chat_id parameter")
		return
	}
	chatID, err := strconv.ParseInt(chatParam, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chat_id must be an integer")
		return
	}

	records, err := h.history.ListByChat(r.Context(), chatID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list predictions failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}

	if records == nil {
		records = []domain.PredictionRecord{}
	}

	writeJSON(w, http.StatusOK, listPredictionsResponse{Predictions: records})
}
