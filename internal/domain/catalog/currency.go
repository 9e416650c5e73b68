package catalog

import (
	"strconv"
	"strings"
)

// CurrencyIndicator tells which currency and exchange rate a price is quoted in
type CurrencyIndicator int

const (
	// CurrencyLocal is a price in local currency
	CurrencyLocal CurrencyIndicator = 1
	// CurrencyUSDCash is a USD price converted at the cash rate
	CurrencyUSDCash CurrencyIndicator = 2
	// CurrencyUSDMarket is a USD price converted at the market rate
	CurrencyUSDMarket CurrencyIndicator = 3
)

// IsValid reports whether the indicator is one of the known values
func (c CurrencyIndicator) IsValid() bool {
	return c >= CurrencyLocal && c <= CurrencyUSDMarket
}

// String returns a short label for logs
func (c CurrencyIndicator) String() string {
	switch c {
	case CurrencyLocal:
		return "local"
	case CurrencyUSDCash:
		return "usd_cash"
	case CurrencyUSDMarket:
		return "usd_market"
	default:
		return "unknown(" + strconv.Itoa(int(c)) + ")"
	}
}

// ParseCurrencyIndicator parses the ERP's numeric-as-string price type.
// The second return value is false when the input is not a known indicator.
func ParseCurrencyIndicator(s string) (CurrencyIndicator, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	c := CurrencyIndicator(n)
	return c, c.IsValid()
}
