package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/authgrid/authgrid/internal/fault"
	"github.com/authgrid/authgrid/internal/observability/logger"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, map[string]any{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// respondFault renders a classified error. The kind-to-status mapping lives
// only here; internal detail never reaches the caller.
func respondFault(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case fault.KindUnauthorized:
		status = http.StatusUnauthorized
	case fault.KindForbidden:
		status = http.StatusForbidden
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindConflict:
		status = http.StatusConflict
	case fault.KindBadRequest:
		status = http.StatusBadRequest
	}

	if kind == fault.KindInternal {
		slog.Error("internal failure", logger.Error(err))
	}
	respondError(w, status, fault.MessageOf(err))
}
