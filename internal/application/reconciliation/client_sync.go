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

const clientCheckpointEvery = 500

// ClientSynchronizer mirrors ERP customer accounts and propagates the
// assigned vendor's product-group denials to its clients.
type ClientSynchronizer struct {
	remote integration.RemoteCatalog
	scope  TransactionScope
	opts   Options
	logger *zap.Logger
}

// NewClientSynchronizer creates a client synchronizer
func NewClientSynchronizer(remote integration.RemoteCatalog, scope TransactionScope, opts Options, logger *zap.Logger) *ClientSynchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientSynchronizer{
		remote: remote,
		scope:  scope,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Sync upserts all remote clients and deletes absent non-administrative
// accounts in one transaction. Denial rules are only ever added here.
func (s *ClientSynchronizer) Sync(ctx context.Context, runAt time.Time, rep *StageReporter) (ClientSyncStats, error) {
	records, err := s.remote.ListClients(ctx, nil)
	if err != nil {
		return ClientSyncStats{}, fmt.Errorf("%w: clients: %w", ErrRemoteFetch, err)
	}

	var stats ClientSyncStats
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		stats = ClientSyncStats{Fetched: len(records)}
		return s.reconcile(ctx, repos, records, runAt, &stats, rep)
	})
	if err != nil {
		return stats, fmt.Errorf("clients: %w", err)
	}

	s.logger.Info("Client sync finished",
		zap.Int("fetched", stats.Fetched),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int64("deleted", stats.Deleted),
		zap.Int("protected", stats.Protected),
		zap.Int64("rules_inherited", stats.RulesInherited))
	return stats, nil
}

func (s *ClientSynchronizer) reconcile(
	ctx context.Context,
	repos Repositories,
	records []integration.ClientRecord,
	runAt time.Time,
	stats *ClientSyncStats,
	rep *StageReporter,
) error {
	clients, err := repos.Clients().LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load clients: %w", err)
	}
	sellers, err := repos.Sellers().LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load sellers: %w", err)
	}
	inheritor := &denialInheritor{
		denials: repos.Denials(),
		sellers: sellers,
		groups:  make(map[string][]string),
		logger:  s.logger,
	}

	seen := make(map[string]struct{}, len(records))
	var touch []shared.ID
	for i, rec := range records {
		code := strings.TrimSpace(rec.Code)
		if code == "" {
			stats.Skipped++
			continue
		}
		seen[code] = struct{}{}
		profile := clientProfile(rec)

		client, exists := clients[code]
		if exists {
			if s.opts.IsAdministrative(client) {
				stats.Protected++
				continue
			}
			changed, vendorChanged := client.ApplyProfile(profile)
			if changed {
				client.MarkSynced(runAt)
				if err := repos.Clients().Update(ctx, client); err != nil {
					return fmt.Errorf("update client %s: %w", code, err)
				}
				stats.Updated++
			} else {
				touch = append(touch, client.ID)
				stats.Unchanged++
			}
			if vendorChanged && client.Vendor() != "" {
				n, err := inheritor.inherit(ctx, client)
				if err != nil {
					return err
				}
				stats.RulesInherited += n
			}
		} else {
			client, err = partner.NewClient(code, profile)
			if err != nil {
				return err
			}
			client.MarkSynced(runAt)
			if err := repos.Clients().Create(ctx, client); err != nil {
				return fmt.Errorf("create client %s: %w", code, err)
			}
			clients[code] = client
			stats.Created++
			if client.Vendor() != "" {
				n, err := inheritor.inherit(ctx, client)
				if err != nil {
					return err
				}
				stats.RulesInherited += n
			}
		}

		if (i+1)%clientCheckpointEvery == 0 {
			rep.Checkpoint(ctx, fmt.Sprintf("Clients: %d of %d processed", i+1, len(records)), i+1, len(records)+1)
		}
	}

	for _, ids := range shared.Chunk(touch, s.opts.TouchChunkSize) {
		if _, err := repos.Clients().TouchSynced(ctx, ids, runAt); err != nil {
			return fmt.Errorf("touch clients: %w", err)
		}
	}

	var absent []shared.ID
	for code, client := range clients {
		if _, ok := seen[code]; ok || s.opts.IsAdministrative(client) {
			continue
		}
		absent = append(absent, client.ID)
	}
	for _, ids := range shared.Chunk(absent, s.opts.DeleteChunkSize) {
		if _, err := repos.Denials().DeleteByUsers(ctx, ids); err != nil {
			return fmt.Errorf("delete denials of absent clients: %w", err)
		}
		n, err := repos.Clients().DeleteByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("delete absent clients: %w", err)
		}
		stats.Deleted += n
	}
	return nil
}

func clientProfile(rec integration.ClientRecord) partner.ClientProfile {
	return partner.ClientProfile{
		Name:  rec.Name,
		Email: rec.Email,
		TaxID: rec.TaxID,
		Phone: rec.Phone,
		Address: partner.ComposeAddress(partner.AddressParts{
			Street:     rec.Street,
			Number:     rec.Number,
			City:       rec.City,
			Province:   rec.Province,
			PostalCode: rec.PostalCode,
		}),
		VendorCode: rec.VendorCode,
	}
}

// denialInheritor copies a vendor's denied groups to its clients.
// Vendor rule sets are read once per run.
type denialInheritor struct {
	denials partner.DenialRepository
	sellers map[string]*partner.Seller
	groups  map[string][]string
	logger  *zap.Logger
}

func (d *denialInheritor) inherit(ctx context.Context, client *partner.Client) (int64, error) {
	vendor := client.Vendor()
	seller, ok := d.sellers[vendor]
	if !ok {
		d.logger.Warn("Client vendor is not mirrored, no rules inherited",
			zap.String("customer_code", client.CustomerCode),
			zap.String("vendor_code", vendor))
		return 0, nil
	}
	groups, cached := d.groups[vendor]
	if !cached {
		var err error
		groups, err = d.denials.FindGroupsByUser(ctx, seller.ID)
		if err != nil {
			return 0, fmt.Errorf("load denials of vendor %s: %w", vendor, err)
		}
		d.groups[vendor] = groups
	}
	rules := partner.InheritDenials(client.ID, groups)
	if len(rules) == 0 {
		return 0, nil
	}
	n, err := d.denials.InsertIfAbsent(ctx, rules)
	if err != nil {
		return 0, fmt.Errorf("inherit denials for %s: %w", client.CustomerCode, err)
	}
	return n, nil
}
