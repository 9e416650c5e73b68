package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/b2bportal/backend/internal/domain/catalog"
	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductSynchronizer mirrors the ERP product list into the products table
type ProductSynchronizer struct {
	remote   integration.RemoteCatalog
	scope    TransactionScope
	resolver *DictionaryResolver
	opts     Options
	logger   *zap.Logger
}

// NewProductSynchronizer creates a product synchronizer
func NewProductSynchronizer(remote integration.RemoteCatalog, scope TransactionScope, opts Options, logger *zap.Logger) *ProductSynchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductSynchronizer{
		remote:   remote,
		scope:    scope,
		resolver: NewDictionaryResolver(remote, logger),
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Sync upserts every remote product in chunked transactions, then deletes
// local products missing from the remote list. A chunk failure rolls back
// that chunk only and aborts the sync; earlier chunks stay committed.
func (s *ProductSynchronizer) Sync(ctx context.Context, runAt time.Time, rep *StageReporter) (ProductSyncStats, error) {
	var stats ProductSyncStats

	dicts := s.resolver.Resolve(ctx)

	records, err := s.remote.ListProducts(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("%w: products: %w", ErrRemoteFetch, err)
	}
	stats.Fetched = len(records)

	products, skipped := s.buildProducts(records, dicts)
	stats.Skipped = skipped
	if skipped > 0 {
		s.logger.Warn("Skipped remote products without code", zap.Int("count", skipped))
	}

	chunks := shared.Chunk(products, s.opts.ProductChunkSize)
	for i, chunk := range chunks {
		var written int64
		err := s.scope.Execute(ctx, func(repos Repositories) error {
			n, err := repos.Products().UpsertBatch(ctx, chunk)
			written = n
			return err
		})
		if err != nil {
			return stats, fmt.Errorf("products: chunk %d/%d: %w", i+1, len(chunks), err)
		}
		stats.Upserted += written
		stats.Chunks++
		rep.Checkpoint(ctx, fmt.Sprintf("Products: chunk %d of %d committed", i+1, len(chunks)), i+1, len(chunks)+1)
	}

	deleted, err := s.deleteAbsent(ctx, products)
	stats.Deleted = deleted
	if err != nil {
		return stats, err
	}

	s.logger.Info("Product sync finished",
		zap.Int("fetched", stats.Fetched),
		zap.Int64("upserted", stats.Upserted),
		zap.Int64("deleted", stats.Deleted),
		zap.Int("chunks", stats.Chunks),
		zap.Time("run_at", runAt))
	return stats, nil
}

// buildProducts denormalizes remote records. Records without a code are
// skipped; for a repeated code the last record wins.
func (s *ProductSynchronizer) buildProducts(records []integration.ProductRecord, dicts *ProductDictionaries) ([]*catalog.Product, int) {
	products := make([]*catalog.Product, 0, len(records))
	index := make(map[string]int, len(records))
	skipped := 0
	for _, rec := range records {
		p, err := catalog.NewProduct(rec.Code)
		if err != nil {
			skipped++
			continue
		}
		p.Description = strings.TrimSpace(rec.Description)
		p.GroupCode = strings.TrimSpace(rec.GroupCode)
		p.GroupDescription = dicts.GroupDescription(rec.GroupCode)
		p.CapacityDescription = dicts.CapacityDescription(rec.CapacityCode)
		p.StockIndicatorDescription = dicts.StockIndicatorDescription(rec.StockIndicatorKey)
		p.StockAvailable = rec.StockAvailable
		p.StockReserved = rec.StockReserved
		p.Unit = strings.TrimSpace(rec.Unit)
		p.PackQty = rec.PackQty
		p.InclusionDate = s.parseDate(p.Code, "inclusion_date", rec.InclusionDate)
		p.ModificationDate = s.parseDate(p.Code, "modification_date", rec.ModificationDate)

		if at, dup := index[p.Code]; dup {
			products[at] = p
			continue
		}
		index[p.Code] = len(products)
		products = append(products, p)
	}
	return products, skipped
}

func (s *ProductSynchronizer) parseDate(code, field, raw string) *time.Time {
	t := catalog.ParseERPDate(raw)
	if t == nil && strings.TrimSpace(raw) != "" {
		s.logger.Debug("Unparseable product date stored as null",
			zap.String("code", code),
			zap.String("field", field),
			zap.String("value", raw))
	}
	return t
}

// deleteAbsent removes local products, and their snapshots, whose code is
// not in the remote set
func (s *ProductSynchronizer) deleteAbsent(ctx context.Context, products []*catalog.Product) (int64, error) {
	remote := make(map[string]struct{}, len(products))
	for _, p := range products {
		remote[p.Code] = struct{}{}
	}

	local, err := s.scope.Repositories().Products().ListCodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("products: list local codes: %w", err)
	}
	absent := make([]string, 0)
	for _, code := range local {
		if _, ok := remote[code]; !ok {
			absent = append(absent, code)
		}
	}
	if len(absent) == 0 {
		return 0, nil
	}
	if len(remote) == 0 {
		s.logger.Warn("Remote product list is empty, deleting every local product", zap.Int("count", len(absent)))
	}

	var deleted int64
	for _, chunk := range shared.Chunk(absent, s.opts.DeleteChunkSize) {
		var n int64
		err := s.scope.Execute(ctx, func(repos Repositories) error {
			if _, err := repos.PriceSnapshots().DeleteByProductCodes(ctx, chunk); err != nil {
				return err
			}
			var err error
			n, err = repos.Products().DeleteByCodes(ctx, chunk)
			return err
		})
		if err != nil {
			return deleted, fmt.Errorf("products: delete absent: %w", err)
		}
		deleted += n
	}
	s.logger.Info("Deleted products absent upstream", zap.Int64("count", deleted))
	return deleted, nil
}
