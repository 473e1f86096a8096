package domain

import "github.com/shopspring/decimal"

// CatalogItemRef is the read-only product projection the cart needs for
// pricing. The catalog owns it; the cache never writes it back.
type CatalogItemRef struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ImageRef       string          `json:"image"`
	Brand          string          `json:"brand"`
	AvailableStock int             `json:"available_stock"`
	TaxClassID     int             `json:"tax_class_id"`
}

// CartLine is one priced entry in the cart. Subtotal and TaxAmount are
// rounded independently before Total is formed, so Subtotal + TaxAmount
// always equals Total exactly.
type CartLine struct {
	ItemID         string          `json:"item_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ImageRef       string          `json:"image"`
	Quantity       int             `json:"quantity"`
	Brand          string          `json:"brand"`
	AvailableStock int             `json:"available_stock"`
	TaxClassID     int             `json:"tax_class_id"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// CloneLines returns an independent copy of a line slice. Lines hold no
// reference types beyond decimals, which are value-safe to copy.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
