package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/commentorder/internal/domain"
	"github.com/joao-fontenele/commentorder/internal/pipeline"
	"github.com/joao-fontenele/commentorder/internal/telemetry"
	"github.com/joao-fontenele/commentorder/internal/validation"
)

type Processor interface {
	Handle(ctx context.Context, ev domain.CommentEvent) (pipeline.Outcome, error)
}

// Handler receives the comment-created callback and runs the pipeline for
// it before answering.
type Handler struct {
	processor Processor
	validate  *validatorv10.Validate
	logger    *slog.Logger
}

func NewHandler(processor Processor, validate *validatorv10.Validate, logger *slog.Logger) *Handler {
	return &Handler{
		processor: processor,
		validate:  validate,
		logger:    logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /callbacks/comments", telemetry.WithHTTPRoute(h.HandleComment))
}

func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	var ev domain.CommentEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&ev); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(ev); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validation.Fields(err),
		})
		return
	}

	outcome, err := h.processor.Handle(r.Context(), ev)
	if err != nil {
		h.logger.Error("failed to process comment", "error", err, "comment_id", ev.ID, "outcome", outcome.Kind)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("comment processed", "comment_id", ev.ID, "outcome", outcome.Kind)
	h.writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
