package domain

import "github.com/shopspring/decimal"

// TaxRate maps a tax class to its percentage. Rates are loaded once per
// session and treated as immutable afterwards.
type TaxRate struct {
	ClassID    int             `json:"class_id"`
	Percentage decimal.Decimal `json:"percentage"`
	Label      string          `json:"label,omitempty"`
}

// IsZero reports whether the rate charges no tax.
func (r TaxRate) IsZero() bool {
	return r.Percentage.IsZero()
}
