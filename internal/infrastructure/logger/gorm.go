package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM statements to zap. Statements issued by a sync
// stage carry the run labels and trace ids found in their context, so a slow
// upsert or a failed delete can be tied back to the chunk that issued it.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// WithLogLevel builds a GormLogger whose level follows the application log
// level. A zero slowThreshold disables slow statement warnings.
func WithLogLevel(zapLogger *zap.Logger, level string, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		logger:        zapLogger,
		level:         gormLevel(level),
		slowThreshold: slowThreshold,
	}
}

// gormLevel maps an application log level to the GORM one.
// Statements are only logged individually at debug.
func gormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "info", "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	case "silent":
		return gormlogger.Silent
	default:
		return gormlogger.Warn
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithRunContext(ctx, l.logger).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithRunContext(ctx, l.logger).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithRunContext(ctx, l.logger).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one statement. Missing records are an expected lookup outcome
// in the mirror and are never reported as errors.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn
	if !failed && !slow && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
	}
	// -1 means the driver did not report a count
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	log := WithRunContext(ctx, l.logger)

	switch {
	case failed:
		log.Error("SQL statement failed", append(fields, zap.Error(err))...)
	case slow:
		log.Warn("Slow SQL statement", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	default:
		log.Debug("SQL statement", fields...)
	}
}
