package partner

import (
	"strings"
	"time"

	"github.com/b2bportal/backend/internal/domain/shared"
)

// Client is a customer account mirrored from the ERP.
// The ID doubles as the portal user id and owns the client's denial rules.
type Client struct {
	shared.BaseEntity
	CustomerCode string
	Name         string
	Email        string
	TaxID        string
	Phone        string
	Address      string
	VendorCode   *string
	IsAdmin      bool
	LastSyncedAt *time.Time
}

// ClientProfile carries the ERP-owned fields of a client
type ClientProfile struct {
	Name       string
	Email      string
	TaxID      string
	Phone      string
	Address    string
	VendorCode string
}

// NewClient creates a client account from its ERP profile
func NewClient(code string, profile ClientProfile) (*Client, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_CODE", "Customer code cannot be empty")
	}
	c := &Client{
		BaseEntity:   shared.NewBaseEntity(),
		CustomerCode: code,
	}
	c.ApplyProfile(profile)
	return c, nil
}

// ApplyProfile overwrites the ERP-owned fields. It reports whether any field
// changed and whether the assigned vendor changed.
func (c *Client) ApplyProfile(p ClientProfile) (changed bool, vendorChanged bool) {
	set := func(dst *string, v string) {
		if *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&c.Name, strings.TrimSpace(p.Name))
	set(&c.Email, strings.TrimSpace(p.Email))
	set(&c.TaxID, strings.TrimSpace(p.TaxID))
	set(&c.Phone, strings.TrimSpace(p.Phone))
	set(&c.Address, p.Address)

	vendor := strings.TrimSpace(p.VendorCode)
	if c.Vendor() != vendor {
		if vendor == "" {
			c.VendorCode = nil
		} else {
			c.VendorCode = &vendor
		}
		changed = true
		vendorChanged = true
	}
	return changed, vendorChanged
}

// Vendor returns the assigned vendor code, or "" when none
func (c *Client) Vendor() string {
	if c.VendorCode == nil {
		return ""
	}
	return *c.VendorCode
}

// MarkSynced stamps the account as confirmed by the ERP at the given time
func (c *Client) MarkSynced(at time.Time) {
	c.LastSyncedAt = &at
	c.UpdatedAt = at
}

// AddressParts is the structured address as the ERP delivers it
type AddressParts struct {
	Street     string
	Number     string
	City       string
	Province   string
	PostalCode string
}

// ComposeAddress joins the non-empty parts as "street number, city, province (zip)"
func ComposeAddress(p AddressParts) string {
	var segments []string
	if line := joinNonEmpty(" ", p.Street, p.Number); line != "" {
		segments = append(segments, line)
	}
	if city := strings.TrimSpace(p.City); city != "" {
		segments = append(segments, city)
	}
	if province := strings.TrimSpace(p.Province); province != "" {
		segments = append(segments, province)
	}
	address := strings.Join(segments, ", ")
	if zip := strings.TrimSpace(p.PostalCode); zip != "" {
		if address == "" {
			return "(" + zip + ")"
		}
		address += " (" + zip + ")"
	}
	return address
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// AdministrativePredicate decides whether an account is administrative and
// must never be modified or deleted by synchronization
type AdministrativePredicate func(c *Client) bool

// IsAdministrative is the default predicate; it relies on the admin flag
func IsAdministrative(c *Client) bool {
	return c != nil && c.IsAdmin
}

// AdministrativeCodes builds a predicate that also protects the given customer codes
func AdministrativeCodes(codes ...string) AdministrativePredicate {
	protected := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if code = strings.TrimSpace(code); code != "" {
			protected[code] = struct{}{}
		}
	}
	return func(c *Client) bool {
		if IsAdministrative(c) {
			return true
		}
		_, ok := protected[c.CustomerCode]
		return ok
	}
}
