package readings

import (
	"net/http"

	"envirogram/internal/modules/readings/controller"
	"envirogram/internal/modules/readings/repository"
)

func RegisterFeature(mux *http.ServeMux, repo repository.ReadingsRepository, ingester controller.Ingester) {
	readingsController := controller.NewReadingsController(repo, ingester)
	readingsController.RegisterRoutes(mux)
}
