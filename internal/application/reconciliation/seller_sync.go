package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/domain/partner"
	"github.com/b2bportal/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SellerSynchronizer mirrors the ERP vendor directory
type SellerSynchronizer struct {
	remote integration.RemoteCatalog
	scope  TransactionScope
	opts   Options
	logger *zap.Logger
}

// NewSellerSynchronizer creates a seller synchronizer
func NewSellerSynchronizer(remote integration.RemoteCatalog, scope TransactionScope, opts Options, logger *zap.Logger) *SellerSynchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SellerSynchronizer{
		remote: remote,
		scope:  scope,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Sync upserts all remote sellers and deletes absent ones, together with
// their own denial rules, in one transaction
func (s *SellerSynchronizer) Sync(ctx context.Context, runAt time.Time, rep *StageReporter) (SellerSyncStats, error) {
	records, err := s.remote.ListSellers(ctx, nil)
	if err != nil {
		return SellerSyncStats{}, fmt.Errorf("%w: sellers: %w", ErrRemoteFetch, err)
	}

	var stats SellerSyncStats
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		stats = SellerSyncStats{Fetched: len(records)}

		sellers, err := repos.Sellers().LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load sellers: %w", err)
		}

		seen := make(map[string]struct{}, len(records))
		var touch []shared.ID
		for _, rec := range records {
			code := strings.TrimSpace(rec.Code)
			if code == "" {
				stats.Skipped++
				continue
			}
			seen[code] = struct{}{}
			profile := partner.SellerProfile{Name: rec.Name, Email: rec.Email, Phone: rec.Phone}

			if seller, ok := sellers[code]; ok {
				if !seller.ApplyProfile(profile) {
					touch = append(touch, seller.ID)
					stats.Unchanged++
					continue
				}
				seller.MarkSynced(runAt)
				if err := repos.Sellers().Update(ctx, seller); err != nil {
					return fmt.Errorf("update seller %s: %w", code, err)
				}
				stats.Updated++
				continue
			}

			seller, err := partner.NewSeller(code, profile)
			if err != nil {
				return err
			}
			seller.MarkSynced(runAt)
			if err := repos.Sellers().Create(ctx, seller); err != nil {
				return fmt.Errorf("create seller %s: %w", code, err)
			}
			sellers[code] = seller
			stats.Created++
		}
		rep.Checkpoint(ctx, fmt.Sprintf("Sellers: %d processed", len(records)), 1, 2)

		for _, ids := range shared.Chunk(touch, s.opts.TouchChunkSize) {
			if _, err := repos.Sellers().TouchSynced(ctx, ids, runAt); err != nil {
				return fmt.Errorf("touch sellers: %w", err)
			}
		}

		var absent []shared.ID
		for code, seller := range sellers {
			if _, ok := seen[code]; !ok {
				absent = append(absent, seller.ID)
			}
		}
		for _, ids := range shared.Chunk(absent, s.opts.DeleteChunkSize) {
			if _, err := repos.Denials().DeleteByUsers(ctx, ids); err != nil {
				return fmt.Errorf("delete denials of absent sellers: %w", err)
			}
			n, err := repos.Sellers().DeleteByIDs(ctx, ids)
			if err != nil {
				return fmt.Errorf("delete absent sellers: %w", err)
			}
			stats.Deleted += n
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("sellers: %w", err)
	}

	s.logger.Info("Seller sync finished",
		zap.Int("fetched", stats.Fetched),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int64("deleted", stats.Deleted))
	return stats, nil
}
