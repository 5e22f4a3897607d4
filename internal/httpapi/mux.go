package httpapi

import (
	"log/slog"
	"net/http"
)

// Routes are the handlers mounted next to the feature routes.
type Routes struct {
	DB      Pinger
	Feed    http.Handler
	Metrics http.Handler
}

func NewMux(routes Routes, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	hc := &healthchecker{db: routes.DB, logger: logger}
	mux.HandleFunc("GET /healthz", hc.handleHealthz)

	if routes.Feed != nil {
		mux.Handle("GET /ws", routes.Feed)
	}
	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}
	return mux
}
