package erp

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Wire envelope
// ---------------------------------------------------------------------------

// pageResponse is the envelope of every paged listing
type pageResponse[W any] struct {
	Data     []W `json:"data"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

// text accepts a JSON string, number or null, trimmed of surrounding blanks.
// The ERP is inconsistent about quoting codes and quantities.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
	default:
		*t = text(b)
	}
	return nil
}

func (t text) trimmed() string {
	return strings.TrimSpace(string(t))
}

// decimal parses a quantity or price. A lone comma is read as the decimal
// separator; anything unparseable is zero.
func (t text) decimal() decimal.Decimal {
	s := t.trimmed()
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// sanitizable records can drop a field that failed validation
type sanitizable interface {
	clearField(structField string)
}

// ---------------------------------------------------------------------------
// Articles
// ---------------------------------------------------------------------------

type wireProduct struct {
	Code              text `json:"codigo" validate:"required,max=50"`
	Description       text `json:"descripcion" validate:"max=255"`
	GroupCode         text `json:"grupo" validate:"max=50"`
	CapacityCode      text `json:"capacidad" validate:"max=255"`
	StockIndicatorKey text `json:"indicador_stock" validate:"max=255"`
	StockAvailable    text `json:"stock_actual"`
	StockReserved     text `json:"stock_comprometido"`
	Unit              text `json:"unidad" validate:"max=20"`
	PackQty           text `json:"cantidad_empaque"`
	InclusionDate     text `json:"fecha_inclusion"`
	ModificationDate  text `json:"fecha_modificacion"`
	Timestamp         text `json:"marca_tiempo"`
}

func (w *wireProduct) clearField(f string) {
	switch f {
	case "Code":
		w.Code = ""
	case "Description":
		w.Description = text(truncate(w.Description.trimmed(), 255))
	case "GroupCode":
		w.GroupCode = ""
	case "CapacityCode":
		w.CapacityCode = text(truncate(w.CapacityCode.trimmed(), 255))
	case "StockIndicatorKey":
		w.StockIndicatorKey = text(truncate(w.StockIndicatorKey.trimmed(), 255))
	case "Unit":
		w.Unit = ""
	}
}

func (w *wireProduct) record() integration.ProductRecord {
	return integration.ProductRecord{
		Code:              w.Code.trimmed(),
		Description:       w.Description.trimmed(),
		GroupCode:         w.GroupCode.trimmed(),
		CapacityCode:      w.CapacityCode.trimmed(),
		StockIndicatorKey: w.StockIndicatorKey.trimmed(),
		StockAvailable:    w.StockAvailable.decimal(),
		StockReserved:     w.StockReserved.decimal(),
		Unit:              w.Unit.trimmed(),
		PackQty:           w.PackQty.decimal(),
		InclusionDate:     w.InclusionDate.trimmed(),
		ModificationDate:  w.ModificationDate.trimmed(),
		Timestamp:         w.Timestamp.trimmed(),
	}
}

type wirePrice struct {
	ProductCode text `json:"codigo_articulo" validate:"required,max=50"`
	Price       text `json:"precio"`
	Currency    text `json:"tipo_precio"`
}

func (w *wirePrice) clearField(f string) {
	if f == "ProductCode" {
		w.ProductCode = ""
	}
}

func (w *wirePrice) record() integration.PriceRecord {
	return integration.PriceRecord{
		ProductCode: w.ProductCode.trimmed(),
		Price:       w.Price.decimal(),
		Currency:    w.Currency.trimmed(),
	}
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

type wireClient struct {
	Code       text `json:"codigo" validate:"required,max=50"`
	Name       text `json:"nombre" validate:"max=200"`
	Email      text `json:"email" validate:"omitempty,email,max=200"`
	TaxID      text `json:"rif" validate:"max=50"`
	Phone      text `json:"telefono" validate:"max=50"`
	Street     text `json:"calle"`
	Number     text `json:"numero"`
	City       text `json:"ciudad"`
	Province   text `json:"provincia"`
	PostalCode text `json:"codigo_postal"`
	VendorCode text `json:"vendedor" validate:"max=50"`
}

func (w *wireClient) clearField(f string) {
	switch f {
	case "Code":
		w.Code = ""
	case "Name":
		w.Name = text(truncate(w.Name.trimmed(), 200))
	case "Email":
		w.Email = ""
	case "TaxID":
		w.TaxID = ""
	case "Phone":
		w.Phone = ""
	case "VendorCode":
		w.VendorCode = ""
	}
}

func (w *wireClient) record() integration.ClientRecord {
	return integration.ClientRecord{
		Code:       w.Code.trimmed(),
		Name:       w.Name.trimmed(),
		Email:      w.Email.trimmed(),
		TaxID:      w.TaxID.trimmed(),
		Phone:      w.Phone.trimmed(),
		Street:     w.Street.trimmed(),
		Number:     w.Number.trimmed(),
		City:       w.City.trimmed(),
		Province:   w.Province.trimmed(),
		PostalCode: w.PostalCode.trimmed(),
		VendorCode: w.VendorCode.trimmed(),
	}
}

type wireSeller struct {
	Code  text `json:"codigo" validate:"required,max=50"`
	Name  text `json:"nombre" validate:"max=200"`
	Email text `json:"email" validate:"omitempty,email,max=200"`
	Phone text `json:"telefono" validate:"max=50"`
}

func (w *wireSeller) clearField(f string) {
	switch f {
	case "Code":
		w.Code = ""
	case "Name":
		w.Name = text(truncate(w.Name.trimmed(), 200))
	case "Email":
		w.Email = ""
	case "Phone":
		w.Phone = ""
	}
}

func (w *wireSeller) record() integration.SellerRecord {
	return integration.SellerRecord{
		Code:  w.Code.trimmed(),
		Name:  w.Name.trimmed(),
		Email: w.Email.trimmed(),
		Phone: w.Phone.trimmed(),
	}
}

// ---------------------------------------------------------------------------
// Dictionaries
// ---------------------------------------------------------------------------

// Dictionary descriptions land in VARCHAR(255) product columns, and so do
// codes when no description resolves.
type wireDictionaryEntry struct {
	Code        text `json:"codigo" validate:"required,max=255"`
	Description text `json:"descripcion" validate:"max=255"`
}

func (w *wireDictionaryEntry) clearField(f string) {
	switch f {
	case "Code":
		w.Code = text(truncate(w.Code.trimmed(), 255))
	case "Description":
		w.Description = text(truncate(w.Description.trimmed(), 255))
	}
}

func (w *wireDictionaryEntry) group() integration.GroupRecord {
	return integration.GroupRecord{Code: w.Code.trimmed(), Description: w.Description.trimmed()}
}

func (w *wireDictionaryEntry) capacity() integration.CapacityRecord {
	return integration.CapacityRecord{Code: w.Code.trimmed(), Description: w.Description.trimmed()}
}

type wireStockIndicator struct {
	Key         text `json:"clave" validate:"required,max=255"`
	Description text `json:"descripcion" validate:"max=255"`
}

func (w *wireStockIndicator) clearField(f string) {
	switch f {
	case "Key":
		w.Key = text(truncate(w.Key.trimmed(), 255))
	case "Description":
		w.Description = text(truncate(w.Description.trimmed(), 255))
	}
}

func (w *wireStockIndicator) record() integration.StockIndicatorRecord {
	return integration.StockIndicatorRecord{Key: w.Key.trimmed(), Description: w.Description.trimmed()}
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
