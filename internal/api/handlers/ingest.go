// Package handlers contains the HTTP handlers for the ingestion endpoint and
// the dashboard surface.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plantwatch/internal/core"
	"plantwatch/internal/ingest"
	"plantwatch/internal/types"
)

// Submitter is the ingestion contract the handler depends on.
type Submitter interface {
	Submit(ctx context.Context, req ingest.SubmitRequest) (string, error)
}

// IngestResponse is the sensor-facing envelope. Sensors in the field parse
// this exact shape, so it does not use the core error envelope.
type IngestResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// IngestHandler serves POST /endpoint.
type IngestHandler struct {
	svc    Submitter
	logger *slog.Logger
}

// NewIngestHandler creates an IngestHandler.
func NewIngestHandler(svc Submitter, l *slog.Logger) *IngestHandler {
	if l == nil {
		l = slog.Default()
	}
	return &IngestHandler{svc: svc, logger: l}
}

// RegisterRoutes mounts the ingestion route.
func (h *IngestHandler) RegisterRoutes(r chi.Router) {
	r.Post("/endpoint", h.Submit)
}

// Submit handles POST /endpoint.
//
//   - 201 {"status":"success","id":...} when the reading is stored.
//   - 400 {"status":"error","message":"Invalid data"} when the body is not a
//     JSON object with numeric temperature and humidity.
//   - 500 {"status":"error","message":<cause>} when the store rejects it.
func (h *IngestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ingest.SubmitRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "rejected sensor payload",
			"error", err,
			"request_id", types.GetRequestID(r.Context()),
		)
		core.JSON(w, r, http.StatusBadRequest, invalidData())
		return
	}

	id, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		status, body := ingestFailure(err)
		core.JSON(w, r, status, body)
		return
	}

	core.JSON(w, r, http.StatusCreated, IngestResponse{Status: "success", ID: id})
}

func invalidData() IngestResponse {
	return IngestResponse{Status: "error", Message: "Invalid data"}
}

// ingestFailure maps a Submit error onto the sensor envelope.
func ingestFailure(err error) (int, IngestResponse) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, IngestResponse{Status: "error", Message: err.Error()}
	}
	if appErr.HTTPStatus() == http.StatusBadRequest {
		return http.StatusBadRequest, invalidData()
	}
	return appErr.HTTPStatus(), IngestResponse{Status: "error", Message: appErr.Cause()}
}
