package pricing

import (
	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Breakdown is the priced result for one line.
type Breakdown struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Price computes the monetary breakdown for quantity units of an item.
// Subtotal and tax are each rounded to 2 places before the total is
// summed, so aggregate totals are sums of already-rounded values. Pure
// function; callers guarantee quantity >= 1.
func Price(item domain.CatalogItemRef, quantity int, rate domain.TaxRate) Breakdown {
	subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	taxAmount := subtotal.Mul(rate.Percentage).Div(hundred).Round(2)
	return Breakdown{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}
}

// Line assembles a full cart line from an item projection and its pricing.
func Line(item domain.CatalogItemRef, quantity int, rate domain.TaxRate) domain.CartLine {
	b := Price(item, quantity, rate)
	return domain.CartLine{
		ItemID:         item.ID,
		Name:           item.Name,
		UnitPrice:      item.UnitPrice,
		ImageRef:       item.ImageRef,
		Quantity:       quantity,
		Brand:          item.Brand,
		AvailableStock: item.AvailableStock,
		TaxClassID:     item.TaxClassID,
		Subtotal:       b.Subtotal,
		TaxAmount:      b.TaxAmount,
		Total:          b.Total,
	}
}
