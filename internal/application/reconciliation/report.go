package reconciliation

import (
	"time"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/domain/shared"
)

// ProductSyncStats summarizes a product synchronization
type ProductSyncStats struct {
	Fetched  int   `json:"fetched"`
	Skipped  int   `json:"skipped"`
	Upserted int64 `json:"upserted"`
	Deleted  int64 `json:"deleted"`
	Chunks   int   `json:"chunks"`
}

func (s ProductSyncStats) outcomes() map[string]int64 {
	return map[string]int64{
		"fetched":  int64(s.Fetched),
		"skipped":  int64(s.Skipped),
		"upserted": s.Upserted,
		"deleted":  s.Deleted,
	}
}

// PriceSyncStats summarizes both price phases
type PriceSyncStats struct {
	Fetched int `json:"fetched"`
	Skipped int `json:"skipped"`

	// UnknownProducts counts prices for codes not in the product mirror
	UnknownProducts int `json:"unknown_products"`
	InvalidCurrency int `json:"invalid_currency"`

	Updated   int   `json:"updated"`
	Unchanged int   `json:"unchanged"`
	Touched   int64 `json:"touched"`

	SnapshotsCreated   int `json:"snapshots_created"`
	SnapshotsChanged   int `json:"snapshots_changed"`
	SnapshotsUnchanged int `json:"snapshots_unchanged"`
}

func (s PriceSyncStats) outcomes() map[string]int64 {
	return map[string]int64{
		"fetched":             int64(s.Fetched),
		"skipped":             int64(s.Skipped + s.UnknownProducts),
		"updated":             int64(s.Updated),
		"unchanged":           int64(s.Unchanged),
		"snapshots_created":   int64(s.SnapshotsCreated),
		"snapshots_changed":   int64(s.SnapshotsChanged),
		"snapshots_unchanged": int64(s.SnapshotsUnchanged),
	}
}

// ClientSyncStats summarizes a client synchronization
type ClientSyncStats struct {
	Fetched   int   `json:"fetched"`
	Skipped   int   `json:"skipped"`
	Protected int   `json:"protected"`
	Created   int   `json:"created"`
	Updated   int   `json:"updated"`
	Unchanged int   `json:"unchanged"`
	Deleted   int64 `json:"deleted"`

	// RulesInherited counts denial rules added from vendors
	RulesInherited int64 `json:"rules_inherited"`
}

func (s ClientSyncStats) outcomes() map[string]int64 {
	return map[string]int64{
		"fetched":         int64(s.Fetched),
		"skipped":         int64(s.Skipped + s.Protected),
		"created":         int64(s.Created),
		"updated":         int64(s.Updated),
		"unchanged":       int64(s.Unchanged),
		"deleted":         s.Deleted,
		"rules_inherited": s.RulesInherited,
	}
}

// SellerSyncStats summarizes a seller synchronization
type SellerSyncStats struct {
	Fetched   int   `json:"fetched"`
	Skipped   int   `json:"skipped"`
	Created   int   `json:"created"`
	Updated   int   `json:"updated"`
	Unchanged int   `json:"unchanged"`
	Deleted   int64 `json:"deleted"`
}

func (s SellerSyncStats) outcomes() map[string]int64 {
	return map[string]int64{
		"fetched":   int64(s.Fetched),
		"skipped":   int64(s.Skipped),
		"created":   int64(s.Created),
		"updated":   int64(s.Updated),
		"unchanged": int64(s.Unchanged),
		"deleted":   s.Deleted,
	}
}

// RunReport is the result of a scoped or full run. Stages that did not run are nil.
type RunReport struct {
	RunID      shared.ID              `json:"run_id"`
	Kind       integration.SyncKind   `json:"kind"`
	Status     integration.SyncStatus `json:"status"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	FailedAt   Stage                  `json:"failed_at,omitempty"`
	Products   *ProductSyncStats      `json:"products,omitempty"`
	Prices     *PriceSyncStats        `json:"prices,omitempty"`
	Clients    *ClientSyncStats       `json:"clients,omitempty"`
	Sellers    *SellerSyncStats       `json:"sellers,omitempty"`
}

// Elapsed returns the wall time of the run
func (r *RunReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *RunReport) statsMap() map[string]any {
	stats := map[string]any{}
	if r.Products != nil {
		stats[string(StageProducts)] = r.Products
	}
	if r.Prices != nil {
		stats[string(StagePrices)] = r.Prices
	}
	if r.Clients != nil {
		stats[string(StageClients)] = r.Clients
	}
	if r.Sellers != nil {
		stats[string(StageSellers)] = r.Sellers
	}
	return stats
}
