package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// DBTracing adds otelgorm spans plus slow query and error marking
type DBTracing struct {
	logFullSQL bool
	slowQuery  time.Duration
	logger     *zap.Logger
}

// NewDBTracing creates the database tracing plugin
func NewDBTracing(logFullSQL bool, slowQuery time.Duration, logger *zap.Logger) *DBTracing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracing{logFullSQL: logFullSQL, slowQuery: slowQuery, logger: logger}
}

// Register installs otelgorm and the timing callbacks on db
func (p *DBTracing) Register(db *gorm.DB) error {
	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !p.logFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.logFullSQL),
		zap.Duration("slow_query_threshold", p.slowQuery))
	return nil
}

func (p *DBTracing) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []struct {
		before, after callbackRegistrar
		op            string
	}{
		{cb.Create().Before("gorm:create"), cb.Create().After("gorm:create"), "create"},
		{cb.Query().Before("gorm:query"), cb.Query().After("gorm:query"), "query"},
		{cb.Update().Before("gorm:update"), cb.Update().After("gorm:update"), "update"},
		{cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete"), "delete"},
		{cb.Row().Before("gorm:row"), cb.Row().After("gorm:row"), "row"},
		{cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw"), "raw"},
	}
	for _, r := range registrations {
		if err := r.before.Register("otel_timing:before_"+r.op, markQueryStart); err != nil {
			return err
		}
		if err := r.after.Register("otel_timing:after_"+r.op, p.annotateSpan); err != nil {
			return err
		}
	}
	return nil
}

// callbackRegistrar is satisfied by gorm's positioned callback builder
type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan adds row counts, error status and the slow query flag to the current span
func (p *DBTracing) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.slowQuery {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.slowQuery.Milliseconds()),
			))
		}
	}
}
