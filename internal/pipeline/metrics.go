package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/dartrag/internal/pipeline"

type metrics struct {
	stageDuration metric.Float64Histogram
	runs          metric.Int64Counter
}

func newMetrics(logger *zap.Logger) *metrics {
	meter := otel.Meter(instrumentationName)
	m := &metrics{}

	var err error
	m.stageDuration, err = meter.Float64Histogram(
		"dartrag.pipeline.stage_duration_seconds",
		metric.WithDescription("Duration of each workflow stage, labeled by workflow and stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		logger.Warn("failed to create stage duration histogram", zap.Error(err))
	}

	m.runs, err = meter.Int64Counter(
		"dartrag.pipeline.runs_total",
		metric.WithDescription("Workflow runs labeled by workflow and outcome (completed, failed)."),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		logger.Warn("failed to create runs counter", zap.Error(err))
	}
	return m
}

func (m *metrics) stage(ctx context.Context, workflow string, stage Stage, seconds float64) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("stage", string(stage)),
	))
}

func (m *metrics) run(ctx context.Context, workflow string, failed bool) {
	if m == nil || m.runs == nil {
		return
	}
	outcome := string(StageCompleted)
	if failed {
		outcome = string(StageFailed)
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("outcome", outcome),
	))
}
