package cli

import (
	"context"
	"fmt"

	"github.com/b2bportal/backend/internal/infrastructure/cache"
	"github.com/b2bportal/backend/internal/infrastructure/config"
	"github.com/b2bportal/backend/internal/infrastructure/logger"
	"github.com/b2bportal/backend/internal/infrastructure/persistence"
	"github.com/b2bportal/backend/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the process-wide dependencies of one command invocation.
// Resources register a closer and are released in reverse order.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers
	closers   []func(context.Context) error
}

func newApp(opts *globalOptions) (*app, error) {
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log, err := logger.New(logger.FromSettings(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))}
	a.onClose(func(context.Context) error {
		_ = log.Sync()
		return nil
	})
	return a, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Shutdown step failed", zap.Error(err))
		}
	}
}

// startTelemetry installs the OTEL providers and bridges the logger to the collector
func (a *app) startTelemetry(ctx context.Context) error {
	providers, err := telemetry.Setup(ctx, a.cfg.Telemetry, a.logger)
	if err != nil {
		return err
	}
	a.telemetry = providers
	a.onClose(providers.Shutdown)

	level, err := zapcore.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	a.logger = providers.Logs.Bridge(a.logger, level)
	return nil
}

func (a *app) openDatabase() (*persistence.Database, error) {
	gormLog := logger.WithLogLevel(a.logger.Named("gorm"), a.cfg.Log.Level, a.cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&a.cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error {
		if stats, err := db.Stats(); err == nil {
			a.logger.Debug("Closing database",
				zap.Int("open_connections", stats.OpenConnections),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration))
		}
		return db.Close()
	})

	if a.cfg.Telemetry.Enabled && a.cfg.Telemetry.DBTraceEnabled {
		tracing := telemetry.NewDBTracing(a.cfg.Telemetry.DBLogFullSQL, a.cfg.Telemetry.DBSlowQueryThresh, a.logger)
		if err := tracing.Register(db.DB); err != nil {
			return nil, fmt.Errorf("failed to enable database tracing: %w", err)
		}
	}

	a.logger.Debug("Database connected", zap.String("host", a.cfg.Database.Host), zap.String("dbname", a.cfg.Database.DBName))
	return db, nil
}

// openRedis returns nil when Redis is disabled
func (a *app) openRedis(ctx context.Context) (*redis.Client, error) {
	if !a.cfg.Redis.Enabled {
		return nil, nil
	}
	client, err := cache.NewRedisClient(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return client.Close() })
	return client, nil
}
