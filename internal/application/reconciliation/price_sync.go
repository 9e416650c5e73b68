package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/b2bportal/backend/internal/domain/catalog"
	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSynchronizer maintains live prices and the price change history.
//
// Phase A projects the latest remote price onto product rows and refreshes
// last_synced_at for every confirmed product. Phase B advances a product's
// snapshot only when the price actually moved, so re-confirming an
// unchanged price never disturbs last_change_at.
type PriceSynchronizer struct {
	remote integration.RemoteCatalog
	scope  TransactionScope
	opts   Options
	logger *zap.Logger
}

// NewPriceSynchronizer creates a price synchronizer
func NewPriceSynchronizer(remote integration.RemoteCatalog, scope TransactionScope, opts Options, logger *zap.Logger) *PriceSynchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceSynchronizer{
		remote: remote,
		scope:  scope,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// pricePoint is a validated remote price for a mirrored product
type pricePoint struct {
	code      string
	productID shared.ID
	price     decimal.Decimal
	currency  catalog.CurrencyIndicator
}

// Sync runs Phase A then Phase B. A Phase A failure returns before Phase B starts.
func (s *PriceSynchronizer) Sync(ctx context.Context, runAt time.Time, rep *StageReporter) (PriceSyncStats, error) {
	var stats PriceSyncStats

	records, err := s.remote.ListPrices(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("%w: prices: %w", ErrRemoteFetch, err)
	}
	stats.Fetched = len(records)

	states, err := s.scope.Repositories().Products().LoadPriceStates(ctx)
	if err != nil {
		return stats, fmt.Errorf("prices: load live prices: %w", err)
	}

	points := s.preparePoints(records, states, &stats)
	total := 2 * len(points)

	if err := s.projectLivePrices(ctx, points, states, runAt, &stats, rep, total); err != nil {
		return stats, err
	}
	if err := s.recordChanges(ctx, points, runAt, &stats, rep, total); err != nil {
		return stats, err
	}

	s.logger.Info("Price sync finished",
		zap.Int("fetched", stats.Fetched),
		zap.Int("updated", stats.Updated),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("snapshots_created", stats.SnapshotsCreated),
		zap.Int("snapshots_changed", stats.SnapshotsChanged),
		zap.Int("unknown_products", stats.UnknownProducts))
	return stats, nil
}

// preparePoints drops records without a code or whose product is not
// mirrored. An unknown currency indicator keeps the product's current one.
func (s *PriceSynchronizer) preparePoints(records []integration.PriceRecord, states map[string]catalog.PriceState, stats *PriceSyncStats) []pricePoint {
	points := make([]pricePoint, 0, len(records))
	for _, rec := range records {
		code := strings.TrimSpace(rec.ProductCode)
		if code == "" {
			stats.Skipped++
			continue
		}
		state, ok := states[code]
		if !ok {
			stats.UnknownProducts++
			continue
		}
		currency, valid := catalog.ParseCurrencyIndicator(rec.Currency)
		if !valid {
			stats.InvalidCurrency++
			s.logger.Debug("Unknown currency indicator, keeping current",
				zap.String("code", code),
				zap.String("currency", rec.Currency))
			currency = state.Currency
		}
		points = append(points, pricePoint{
			code:      code,
			productID: state.ProductID,
			price:     rec.Price,
			currency:  currency,
		})
	}
	return points
}

// projectLivePrices is Phase A. Each commit slice writes changed prices and
// flushes every full chunk of pending touches; the remainder is flushed last.
func (s *PriceSynchronizer) projectLivePrices(
	ctx context.Context,
	points []pricePoint,
	states map[string]catalog.PriceState,
	runAt time.Time,
	stats *PriceSyncStats,
	rep *StageReporter,
	total int,
) error {
	var pending []string
	processed := 0

	flush := func(repos Repositories, all bool) error {
		for len(pending) >= s.opts.TouchChunkSize || (all && len(pending) > 0) {
			n := min(len(pending), s.opts.TouchChunkSize)
			touched, err := repos.Products().TouchSynced(ctx, pending[:n], runAt)
			if err != nil {
				return fmt.Errorf("touch synced: %w", err)
			}
			stats.Touched += touched
			pending = pending[n:]
		}
		return nil
	}

	for i, slice := range shared.Chunk(points, s.opts.PriceCommitSize) {
		outcomes := make([]catalog.PriceOutcome, 0, len(slice))
		for _, pt := range slice {
			current := states[pt.code]
			outcome := catalog.EvaluatePrice(pt.code, current, pt.price, pt.currency, s.opts.PriceTolerance)
			if outcome.Updated() {
				states[pt.code] = catalog.PriceState{ProductID: current.ProductID, Price: outcome.NewPrice, Currency: outcome.NewCurrency}
			}
			outcomes = append(outcomes, outcome)
		}

		err := s.scope.Execute(ctx, func(repos Repositories) error {
			for _, o := range outcomes {
				if !o.Updated() {
					pending = append(pending, o.Code)
					continue
				}
				if err := repos.Products().UpdatePrice(ctx, o.Code, o.NewPrice, o.NewCurrency, runAt); err != nil {
					return fmt.Errorf("update %s: %w", o.Code, err)
				}
				s.logger.Debug("Live price updated",
					zap.String("code", o.Code),
					zap.String("old_price", o.OldPrice.String()),
					zap.String("new_price", o.NewPrice.String()),
					zap.Stringer("old_currency", o.OldCurrency),
					zap.Stringer("new_currency", o.NewCurrency))
			}
			return flush(repos, false)
		})
		if err != nil {
			return fmt.Errorf("prices: live phase: slice %d: %w", i+1, err)
		}
		for _, o := range outcomes {
			if o.Updated() {
				stats.Updated++
			} else {
				stats.Unchanged++
			}
		}
		processed += len(slice)
		rep.Checkpoint(ctx, fmt.Sprintf("Prices: %d of %d live prices processed", processed, len(points)), processed, total)
	}

	if len(pending) == 0 {
		return nil
	}
	if err := s.scope.Execute(ctx, func(repos Repositories) error {
		return flush(repos, true)
	}); err != nil {
		return fmt.Errorf("prices: live phase: final touch: %w", err)
	}
	return nil
}

// recordChanges is Phase B. Snapshots are loaded once and compared in memory.
func (s *PriceSynchronizer) recordChanges(
	ctx context.Context,
	points []pricePoint,
	runAt time.Time,
	stats *PriceSyncStats,
	rep *StageReporter,
	total int,
) error {
	snapshots, err := s.scope.Repositories().PriceSnapshots().LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("prices: load snapshots: %w", err)
	}

	processed := 0
	for i, slice := range shared.Chunk(points, s.opts.PriceCommitSize) {
		var created, changed, unchanged int
		err := s.scope.Execute(ctx, func(repos Repositories) error {
			for _, pt := range slice {
				snap, ok := snapshots[pt.code]
				if !ok {
					snap = catalog.NewPriceSnapshot(pt.productID, pt.code, pt.price, runAt)
					if err := repos.PriceSnapshots().Create(ctx, snap); err != nil {
						return fmt.Errorf("create snapshot %s: %w", pt.code, err)
					}
					snapshots[pt.code] = snap
					created++
					continue
				}
				if !snap.Observe(pt.price, runAt, s.opts.PriceTolerance) {
					unchanged++
					continue
				}
				if err := repos.PriceSnapshots().UpdatePrice(ctx, snap); err != nil {
					return fmt.Errorf("update snapshot %s: %w", pt.code, err)
				}
				changed++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("prices: history phase: slice %d: %w", i+1, err)
		}
		stats.SnapshotsCreated += created
		stats.SnapshotsChanged += changed
		stats.SnapshotsUnchanged += unchanged
		processed += len(slice)
		rep.Checkpoint(ctx, fmt.Sprintf("Prices: %d of %d snapshots checked", processed, len(points)), len(points)+processed, total)
	}
	return nil
}
