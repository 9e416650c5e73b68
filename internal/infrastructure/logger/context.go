package logger

import (
	"context"

	"github.com/b2bportal/backend/internal/domain/integration"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WithTraceContext adds trace_id and span_id to the logger from the context's span.
// If no valid span exists, returns the original logger unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// runLabels maps the sync labels carried as baggage to log field names
var runLabels = []struct {
	key   string
	field string
}{
	{integration.LabelRunID, "run_id"},
	{integration.LabelKind, "kind"},
	{integration.LabelStage, "stage"},
}

// WithRunContext extends WithTraceContext with the run_id, kind and stage a
// sync run attached to ctx. Labels that are absent are skipped.
func WithRunContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	logger = WithTraceContext(ctx, logger)

	bag := baggage.FromContext(ctx)
	var fields []zap.Field
	for _, l := range runLabels {
		if v := bag.Member(l.key).Value(); v != "" {
			fields = append(fields, zap.String(l.field, v))
		}
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
