package telemetry

import (
	"context"
	"errors"

	"github.com/b2bportal/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Providers bundles the trace, metric and log providers of one process
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
}

// Setup creates all providers; on failure the ones already created are shut down
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	p := &Providers{}
	var err error

	if p.Tracer, err = NewTracerProvider(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if p.Meter, err = NewMeterProvider(ctx, cfg, logger); err != nil {
		return nil, errors.Join(err, p.Tracer.Shutdown(ctx))
	}
	if p.Logs, err = NewLoggerProvider(ctx, cfg, logger); err != nil {
		return nil, errors.Join(err, p.Meter.Shutdown(ctx), p.Tracer.Shutdown(ctx))
	}
	return p, nil
}

// Shutdown flushes and stops every provider; logs go last so shutdown messages are exported
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Tracer.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
		p.Logs.Shutdown(ctx),
	)
}
