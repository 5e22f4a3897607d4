package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"envirogram/internal/utils"
)

// Pinger reports whether the history database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthchecker struct {
	db     Pinger
	logger *slog.Logger
}

func (h *healthchecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
