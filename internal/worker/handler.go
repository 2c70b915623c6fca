package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/commentorder/internal/domain"
	"github.com/joao-fontenele/commentorder/internal/pipeline"
)

type Processor interface {
	Handle(ctx context.Context, ev domain.CommentEvent) (pipeline.Outcome, error)
}

// CommentHandler feeds comment.created messages into the pipeline.
type CommentHandler struct {
	processor Processor
	validate  *validatorv10.Validate
	logger    *slog.Logger
}

func NewCommentHandler(processor Processor, validate *validatorv10.Validate, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		processor: processor,
		validate:  validate,
		logger:    logger,
	}
}

// Handle returns an error only when the pipeline hit an infrastructure
// failure. Undecodable or invalid payloads are logged and dropped, since
// redelivering them can never succeed.
func (h *CommentHandler) Handle(ctx context.Context, payload []byte) error {
	var ev domain.CommentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.logger.Error("dropping undecodable comment event", "error", err)
		return nil
	}

	if err := h.validate.Struct(ev); err != nil {
		h.logger.Error("dropping invalid comment event", "error", err, "comment_id", ev.ID)
		return nil
	}

	h.logger.Info("processing comment event", "comment_id", ev.ID, "feed_id", ev.FeedID)

	outcome, err := h.processor.Handle(ctx, ev)
	if err != nil {
		h.logger.Error("failed to process comment event", "error", err, "comment_id", ev.ID)
		return err
	}

	h.logger.Info("comment event processed", "comment_id", ev.ID, "outcome", outcome.Kind)
	return nil
}
