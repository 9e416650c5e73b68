package partner

import (
	"context"
	"time"

	"github.com/b2bportal/backend/internal/domain/shared"
)

// ClientRepository defines persistence for mirrored client accounts
type ClientRepository interface {
	// FindByCode finds a client by customer code
	FindByCode(ctx context.Context, code string) (*Client, error)

	// LoadAll returns every client keyed by customer code
	LoadAll(ctx context.Context) (map[string]*Client, error)

	// Create inserts a client
	Create(ctx context.Context, client *Client) error

	// Update persists the ERP-owned fields and sync timestamp
	Update(ctx context.Context, client *Client) error

	// TouchSynced refreshes only last_synced_at for the given accounts
	TouchSynced(ctx context.Context, ids []shared.ID, syncedAt time.Time) (int64, error)

	// DeleteByIDs deletes the given accounts
	DeleteByIDs(ctx context.Context, ids []shared.ID) (int64, error)
}

// SellerRepository defines persistence for mirrored vendor accounts
type SellerRepository interface {
	// FindByCode finds a seller by vendor code
	FindByCode(ctx context.Context, code string) (*Seller, error)

	// LoadAll returns every seller keyed by vendor code
	LoadAll(ctx context.Context) (map[string]*Seller, error)

	// Create inserts a seller
	Create(ctx context.Context, seller *Seller) error

	// Update persists the ERP-owned fields and sync timestamp
	Update(ctx context.Context, seller *Seller) error

	// TouchSynced refreshes only last_synced_at for the given accounts
	TouchSynced(ctx context.Context, ids []shared.ID, syncedAt time.Time) (int64, error)

	// DeleteByIDs deletes the given accounts
	DeleteByIDs(ctx context.Context, ids []shared.ID) (int64, error)
}

// DenialRepository defines persistence for product-group denial rules
type DenialRepository interface {
	// Create inserts a single rule
	Create(ctx context.Context, denial *ProductGroupDenial) error

	// FindGroupsByUser returns the denied product groups of a user
	FindGroupsByUser(ctx context.Context, userID shared.ID) ([]string, error)

	// InsertIfAbsent inserts the rules whose (user, group) pair does not exist yet
	// and returns how many were added
	InsertIfAbsent(ctx context.Context, denials []*ProductGroupDenial) (int64, error)

	// DeleteByUsers deletes every rule owned by the given users
	DeleteByUsers(ctx context.Context, userIDs []shared.ID) (int64, error)
}

// ErrClientNotFound is returned when a customer code is not mirrored
var ErrClientNotFound = shared.NewDomainError("CLIENT_NOT_FOUND", "Client not found")

// ErrSellerNotFound is returned when a vendor code is not mirrored
var ErrSellerNotFound = shared.NewDomainError("SELLER_NOT_FOUND", "Seller not found")
