// Package handler contains the REST endpoints for the scanner API: health,
// recent opportunities, prediction history, job status, scan triggers, and
// the snapshot and stream replay surfaces.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// Pagination bounds shared by the list endpoints.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// writeJSON sends v as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt reads an integer query parameter, returning def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// parseListOpts extracts limit/offset pagination from the query string and
// clamps them to sane bounds.
func parseListOpts(r *http.Request) domain.ListOpts {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	return domain.ListOpts{Limit: limit, Offset: offset}
}
