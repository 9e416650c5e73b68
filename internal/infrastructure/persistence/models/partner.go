package models

import (
	"time"

	"github.com/b2bportal/backend/internal/domain/partner"
	"github.com/google/uuid"
)

// ClientModel is the persistence model for the Client account.
type ClientModel struct {
	BaseModel
	CustomerCode string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_clients_customer_code"`
	Name         string     `gorm:"type:varchar(200);not null"`
	Email        string     `gorm:"type:varchar(200);index:idx_clients_email"`
	TaxID        string     `gorm:"type:varchar(50)"`
	Phone        string     `gorm:"type:varchar(50)"`
	Address      string     `gorm:"type:text"`
	VendorCode   *string    `gorm:"type:varchar(50);index:idx_clients_vendor_code"`
	IsAdmin      bool       `gorm:"not null;default:false"`
	LastSyncedAt *time.Time `gorm:"index:idx_clients_last_synced_at"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client.
func (m *ClientModel) ToDomain() *partner.Client {
	return &partner.Client{
		BaseEntity:   m.BaseModel.ToDomain(),
		CustomerCode: m.CustomerCode,
		Name:         m.Name,
		Email:        m.Email,
		TaxID:        m.TaxID,
		Phone:        m.Phone,
		Address:      m.Address,
		VendorCode:   m.VendorCode,
		IsAdmin:      m.IsAdmin,
		LastSyncedAt: m.LastSyncedAt,
	}
}

// ClientFromDomain creates a new ClientModel from a domain Client.
func ClientFromDomain(c *partner.Client) *ClientModel {
	m := &ClientModel{
		CustomerCode: c.CustomerCode,
		Name:         c.Name,
		Email:        c.Email,
		TaxID:        c.TaxID,
		Phone:        c.Phone,
		Address:      c.Address,
		VendorCode:   c.VendorCode,
		IsAdmin:      c.IsAdmin,
		LastSyncedAt: c.LastSyncedAt,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// SellerModel is the persistence model for the Seller directory entry.
type SellerModel struct {
	BaseModel
	VendorCode   string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_sellers_vendor_code"`
	Name         string     `gorm:"type:varchar(200);not null"`
	Email        string     `gorm:"type:varchar(200)"`
	Phone        string     `gorm:"type:varchar(50)"`
	LastSyncedAt *time.Time `gorm:"index:idx_sellers_last_synced_at"`
}

// TableName returns the table name for GORM
func (SellerModel) TableName() string {
	return "sellers"
}

// ToDomain converts the persistence model to a domain Seller.
func (m *SellerModel) ToDomain() *partner.Seller {
	return &partner.Seller{
		BaseEntity:   m.BaseModel.ToDomain(),
		VendorCode:   m.VendorCode,
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		LastSyncedAt: m.LastSyncedAt,
	}
}

// SellerFromDomain creates a new SellerModel from a domain Seller.
func SellerFromDomain(s *partner.Seller) *SellerModel {
	m := &SellerModel{
		VendorCode:   s.VendorCode,
		Name:         s.Name,
		Email:        s.Email,
		Phone:        s.Phone,
		LastSyncedAt: s.LastSyncedAt,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// ProductGroupDenialModel is the persistence model for a product-group denial rule.
type ProductGroupDenialModel struct {
	ID           uuid.UUID          `gorm:"type:uuid;primary_key"`
	UserID       uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_denials_user_group,priority:1"`
	ProductGroup string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_denials_user_group,priority:2"`
	AssignedBy   partner.DenialRole `gorm:"column:assigned_by_role;type:varchar(20);not null"`
	CreatedAt    time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductGroupDenialModel) TableName() string {
	return "product_group_denials"
}

// ToDomain converts the persistence model to a domain ProductGroupDenial.
func (m *ProductGroupDenialModel) ToDomain() *partner.ProductGroupDenial {
	return &partner.ProductGroupDenial{
		ID:           m.ID,
		UserID:       m.UserID,
		ProductGroup: m.ProductGroup,
		AssignedBy:   m.AssignedBy,
		CreatedAt:    m.CreatedAt,
	}
}

// DenialFromDomain creates a new ProductGroupDenialModel from a domain rule.
func DenialFromDomain(d *partner.ProductGroupDenial) *ProductGroupDenialModel {
	return &ProductGroupDenialModel{
		ID:           d.ID,
		UserID:       d.UserID,
		ProductGroup: d.ProductGroup,
		AssignedBy:   d.AssignedBy,
		CreatedAt:    d.CreatedAt,
	}
}
