package models

import (
	"time"

	"github.com/b2bportal/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product mirror.
type ProductModel struct {
	BaseModel
	Code                      string                    `gorm:"type:varchar(50);not null;uniqueIndex:idx_products_code"`
	Description               string                    `gorm:"type:varchar(255);not null"`
	GroupCode                 string                    `gorm:"type:varchar(50);index:idx_products_group_code"`
	GroupDescription          string                    `gorm:"type:varchar(255)"`
	CapacityDescription       string                    `gorm:"type:varchar(255)"`
	StockAvailable            decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	StockReserved             decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	Unit                      string                    `gorm:"type:varchar(20)"`
	PackQty                   decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	StockIndicatorDescription string                    `gorm:"type:varchar(255)"`
	InclusionDate             *time.Time                `gorm:"type:date"`
	ModificationDate          *time.Time                `gorm:"type:date"`
	Price                     decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	CurrencyIndicator         catalog.CurrencyIndicator `gorm:"type:smallint;not null"`
	LastSyncedAt              *time.Time                `gorm:"index:idx_products_last_synced_at"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ProductSyncColumns are the ERP-owned columns an upsert may rewrite.
// Price, currency and sync timestamp belong to the price phase.
var ProductSyncColumns = []string{
	"description",
	"group_code",
	"group_description",
	"capacity_description",
	"stock_available",
	"stock_reserved",
	"unit",
	"pack_qty",
	"stock_indicator_description",
	"inclusion_date",
	"modification_date",
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:                m.BaseModel.ToDomain(),
		Code:                      m.Code,
		Description:               m.Description,
		GroupCode:                 m.GroupCode,
		GroupDescription:          m.GroupDescription,
		CapacityDescription:       m.CapacityDescription,
		StockAvailable:            m.StockAvailable,
		StockReserved:             m.StockReserved,
		Unit:                      m.Unit,
		PackQty:                   m.PackQty,
		StockIndicatorDescription: m.StockIndicatorDescription,
		InclusionDate:             m.InclusionDate,
		ModificationDate:          m.ModificationDate,
		Price:                     m.Price,
		Currency:                  m.CurrencyIndicator,
		LastSyncedAt:              m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Code = p.Code
	m.Description = p.Description
	m.GroupCode = p.GroupCode
	m.GroupDescription = p.GroupDescription
	m.CapacityDescription = p.CapacityDescription
	m.StockAvailable = p.StockAvailable
	m.StockReserved = p.StockReserved
	m.Unit = p.Unit
	m.PackQty = p.PackQty
	m.StockIndicatorDescription = p.StockIndicatorDescription
	m.InclusionDate = p.InclusionDate
	m.ModificationDate = p.ModificationDate
	m.Price = p.Price
	m.CurrencyIndicator = p.Currency
	m.LastSyncedAt = p.LastSyncedAt
}

// ProductFromDomain creates a new ProductModel from a domain Product entity.
func ProductFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// PriceSnapshotModel is the persistence model for the PriceSnapshot entity.
type PriceSnapshotModel struct {
	BaseModel
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_price_snapshots_product_id"`
	ProductCode  string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_price_snapshots_product_code"`
	Price        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LastChangeAt time.Time       `gorm:"not null;index:idx_price_snapshots_last_change_at"`
}

// TableName returns the table name for GORM
func (PriceSnapshotModel) TableName() string {
	return "price_snapshots"
}

// ToDomain converts the persistence model to a domain PriceSnapshot.
func (m *PriceSnapshotModel) ToDomain() *catalog.PriceSnapshot {
	return &catalog.PriceSnapshot{
		BaseEntity:   m.BaseModel.ToDomain(),
		ProductID:    m.ProductID,
		ProductCode:  m.ProductCode,
		Price:        m.Price,
		LastChangeAt: m.LastChangeAt,
	}
}

// PriceSnapshotFromDomain creates a new PriceSnapshotModel from a domain PriceSnapshot.
func PriceSnapshotFromDomain(s *catalog.PriceSnapshot) *PriceSnapshotModel {
	m := &PriceSnapshotModel{
		ProductID:    s.ProductID,
		ProductCode:  s.ProductCode,
		Price:        s.Price,
		LastChangeAt: s.LastChangeAt,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
