package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records one observation per processed comment.
type PipelineMetrics struct {
	comments metric.Int64Counter
	duration metric.Float64Histogram
}

func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter("commentorder/pipeline")

	comments, err := meter.Int64Counter("pipeline.comments",
		metric.WithDescription("Comments processed by the order pipeline, by outcome"),
		metric.WithUnit("{comment}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("pipeline.duration",
		metric.WithDescription("Time spent processing one comment"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{comments: comments, duration: duration}, nil
}

func (m *PipelineMetrics) Record(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.comments.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
