package controller

import (
	"log/slog"
	"net/http"
	"strconv"

	"envirogram/internal/derived"
	"envirogram/internal/utils"
)

func (c *readingsControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLatestQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	latest, err := c.repository.GetLatestReadings(r.Context(), limit)
	if err != nil {
		slog.Error("latest: get readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	utils.WriteJSON(w, http.StatusOK, latest)
}

func (c *readingsControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	q, err := parseReadingsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := c.repository.GetReadingsCount(r.Context(), q.from, q.to)
	if err != nil {
		slog.Error("readings: count failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	readings, err := c.repository.GetReadings(r.Context(), q.from, q.to, q.limit, q.offset)
	if err != nil {
		slog.Error("readings: get readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(count))
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *readingsControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	var in derived.InputRecord
	if err := utils.ReadJSON(w, r, &in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, ok := c.ingester.Handle(r.Context(), in)
	if !ok {
		// Rejected input has already been reported by the calculator.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, out)
}
