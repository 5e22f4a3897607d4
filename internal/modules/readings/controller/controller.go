package controller

import (
	"context"
	"net/http"

	"envirogram/internal/derived"
	"envirogram/internal/modules/readings/repository"
)

// Ingester computes and distributes a derived record.
type Ingester interface {
	Handle(ctx context.Context, in derived.InputRecord) (derived.OutputRecord, bool)
}

type ReadingsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type readingsControllerImpl struct {
	repository repository.ReadingsRepository
	ingester   Ingester
}

func NewReadingsController(repository repository.ReadingsRepository, ingester Ingester) ReadingsController {
	return &readingsControllerImpl{repository: repository, ingester: ingester}
}

func (c *readingsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/readings/latest", c.handleLatest)
	mux.HandleFunc("GET /api/v1/readings", c.handleReadings)
	mux.HandleFunc("POST /api/v1/readings", c.handleIngest)
}
