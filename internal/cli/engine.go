package cli

import (
	"fmt"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/partner"
	"github.com/b2bportal/backend/internal/infrastructure/cache"
	"github.com/b2bportal/backend/internal/infrastructure/config"
	"github.com/b2bportal/backend/internal/infrastructure/erp"
	"github.com/b2bportal/backend/internal/infrastructure/persistence"
	"github.com/b2bportal/backend/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
)

// engineOptions maps the sync section of the configuration onto engine options
func engineOptions(cfg config.SyncConfig) (reconciliation.Options, error) {
	opts := reconciliation.Options{
		ProductChunkSize: cfg.ProductChunkSize,
		PriceCommitSize:  cfg.PriceCommitSize,
		TouchChunkSize:   cfg.TouchChunkSize,
		DeleteChunkSize:  cfg.DeleteChunkSize,
	}
	if cfg.PriceTolerance != "" {
		tolerance, err := cfg.Tolerance()
		if err != nil {
			return opts, fmt.Errorf("invalid sync.price_tolerance %q: %w", cfg.PriceTolerance, err)
		}
		opts.PriceTolerance = tolerance
	}
	if len(cfg.AdminCustomerCodes) > 0 {
		opts.IsAdministrative = partner.AdministrativeCodes(cfg.AdminCustomerCodes...)
	}
	return opts, nil
}

func erpConfig(cfg config.ERPConfig) erp.Config {
	return erp.Config{
		BaseURL:        cfg.BaseURL,
		Token:          cfg.Token,
		PageSize:       cfg.PageSize,
		Timeout:        cfg.Timeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Charset:        cfg.Charset,
	}
}

// buildEngine wires the engine. Progress goes to display and, when Redis is
// available, to the pub/sub channel; both sit behind one bounded queue.
// The returned observer must be closed after the run to flush queued events.
func (a *app) buildEngine(db *persistence.Database, rdb *redis.Client, display reconciliation.ProgressObserver) (*reconciliation.Engine, *reconciliation.AsyncObserver, error) {
	opts, err := engineOptions(a.cfg.Sync)
	if err != nil {
		return nil, nil, err
	}

	remote, err := erp.NewClient(erpConfig(a.cfg.ERP), a.logger)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := telemetry.NewSyncMetrics(a.telemetry.Meter.Meter(telemetry.SyncMeterName))
	if err != nil {
		return nil, nil, err
	}

	observers := reconciliation.MultiObserver{display}
	var lock reconciliation.RunLock
	if rdb != nil {
		observers = append(observers, cache.NewRedisProgressPublisher(rdb, a.cfg.Redis, a.logger))
		lock = cache.NewRedisRunLock(rdb, a.cfg.Redis.LockKey, a.cfg.Redis.LockTTL, a.logger)
	}
	observer := reconciliation.NewAsyncObserver(observers, a.cfg.Sync.ProgressBuffer, a.logger)

	engine, err := reconciliation.NewEngine(reconciliation.EngineConfig{
		Remote:   remote,
		Scope:    persistence.NewGormTransactionScope(db.DB),
		Runs:     persistence.NewGormSyncRunRepository(db.DB),
		Observer: observer,
		Metrics:  metrics,
		Lock:     lock,
		Logger:   a.logger.Named("sync"),
		Options:  opts,
	})
	if err != nil {
		observer.Close()
		return nil, nil, err
	}
	return engine, observer, nil
}
