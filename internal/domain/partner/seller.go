package partner

import (
	"strings"
	"time"

	"github.com/b2bportal/backend/internal/domain/shared"
)

// Seller is a vendor account mirrored from the ERP.
// Its ID owns the vendor's own denial rules, which clients inherit.
type Seller struct {
	shared.BaseEntity
	VendorCode   string
	Name         string
	Email        string
	Phone        string
	LastSyncedAt *time.Time
}

// SellerProfile carries the ERP-owned fields of a seller
type SellerProfile struct {
	Name  string
	Email string
	Phone string
}

// NewSeller creates a vendor account from its ERP profile
func NewSeller(code string, profile SellerProfile) (*Seller, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_VENDOR_CODE", "Vendor code cannot be empty")
	}
	s := &Seller{
		BaseEntity: shared.NewBaseEntity(),
		VendorCode: code,
	}
	s.ApplyProfile(profile)
	return s, nil
}

// ApplyProfile overwrites the ERP-owned fields and reports whether anything changed
func (s *Seller) ApplyProfile(p SellerProfile) bool {
	name := strings.TrimSpace(p.Name)
	email := strings.TrimSpace(p.Email)
	phone := strings.TrimSpace(p.Phone)
	if s.Name == name && s.Email == email && s.Phone == phone {
		return false
	}
	s.Name, s.Email, s.Phone = name, email, phone
	return true
}

// MarkSynced stamps the account as confirmed by the ERP at the given time
func (s *Seller) MarkSynced(at time.Time) {
	s.LastSyncedAt = &at
	s.UpdatedAt = at
}
