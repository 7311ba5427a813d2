package approval

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/bibbank/approval/pkg/approval"

// Metrics records prediction counters and latency. A nil *Metrics is a no-op.
type Metrics struct {
	predictions   metric.Int64Counter
	stageFailures metric.Int64Counter
	latency       metric.Float64Histogram
}

// NewMetrics registers the prediction instruments with a meter provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	predictions, err := meter.Int64Counter("approval_predictions_total",
		metric.WithDescription("Predictions served, by strategy and decision."))
	if err != nil {
		return nil, fmt.Errorf("create predictions counter: %w", err)
	}
	stageFailures, err := meter.Int64Counter("approval_stage_failures_total",
		metric.WithDescription("Model stages that failed and fell through to the next stage."))
	if err != nil {
		return nil, fmt.Errorf("create stage failure counter: %w", err)
	}
	latency, err := meter.Float64Histogram("approval_prediction_duration_seconds",
		metric.WithDescription("End to end prediction latency."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create latency histogram: %w", err)
	}

	return &Metrics{
		predictions:   predictions,
		stageFailures: stageFailures,
		latency:       latency,
	}, nil
}

func (m *Metrics) record(ctx context.Context, service string, p Prediction, elapsed time.Duration) {
	if m == nil {
		return
	}
	svc := attribute.String("service", service)
	m.predictions.Add(ctx, 1, metric.WithAttributes(
		svc,
		attribute.String("strategy", string(p.Strategy)),
		attribute.String("decision", string(p.Decision)),
	))
	for _, st := range p.Stages {
		if st.Err != nil {
			m.stageFailures.Add(ctx, 1, metric.WithAttributes(svc, attribute.String("stage", string(st.Strategy))))
		}
	}
	m.latency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(svc))
}
