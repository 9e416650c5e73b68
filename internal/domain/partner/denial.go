package partner

import (
	"strings"
	"time"

	"github.com/b2bportal/backend/internal/domain/shared"
)

// DenialRole records who assigned a product-group denial
type DenialRole string

const (
	// DenialRoleAdmin marks a rule set by a portal administrator
	DenialRoleAdmin DenialRole = "admin"
	// DenialRoleSeller marks a rule set by, or inherited from, a vendor
	DenialRoleSeller DenialRole = "seller"
)

// IsValid returns true if the role is known
func (r DenialRole) IsValid() bool {
	switch r {
	case DenialRoleAdmin, DenialRoleSeller:
		return true
	default:
		return false
	}
}

// ProductGroupDenial blocks a user from seeing a product group.
// A (UserID, ProductGroup) pair is unique.
type ProductGroupDenial struct {
	ID           shared.ID
	UserID       shared.ID
	ProductGroup string
	AssignedBy   DenialRole
	CreatedAt    time.Time
}

// NewProductGroupDenial creates a denial rule
func NewProductGroupDenial(userID shared.ID, group string, role DenialRole) (*ProductGroupDenial, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_GROUP", "Product group cannot be empty")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_DENIAL_ROLE", "Unknown denial role: "+string(role))
	}
	base := shared.NewBaseEntity()
	return &ProductGroupDenial{
		ID:           base.ID,
		UserID:       userID,
		ProductGroup: group,
		AssignedBy:   role,
		CreatedAt:    base.CreatedAt,
	}, nil
}

// InheritDenials copies a vendor's denied groups onto a client, tagged as seller-assigned.
// Duplicate and blank groups are dropped.
func InheritDenials(clientID shared.ID, vendorGroups []string) []*ProductGroupDenial {
	seen := make(map[string]struct{}, len(vendorGroups))
	denials := make([]*ProductGroupDenial, 0, len(vendorGroups))
	for _, group := range vendorGroups {
		denial, err := NewProductGroupDenial(clientID, group, DenialRoleSeller)
		if err != nil {
			continue
		}
		if _, dup := seen[denial.ProductGroup]; dup {
			continue
		}
		seen[denial.ProductGroup] = struct{}{}
		denials = append(denials, denial)
	}
	return denials
}
