package domain

import "github.com/shopspring/decimal"

type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusConfirmed SaleStatus = "confirmed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

func (s SaleStatus) IsTerminal() bool {
	return s == SaleStatusConfirmed || s == SaleStatusCancelled
}

// String representation (for logging)
func (s SaleStatus) String() string {
	return string(s)
}

// RemoteCartSnapshot is the server-side mirror of the cart. It is owned
// exclusively by the server; the client only pulls it or overwrites it
// wholesale.
type RemoteCartSnapshot struct {
	SaleID      string          `json:"sale_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      SaleStatus      `json:"status"`
	Items       []CartLine      `json:"items"`
}

// StockAdjustment reports how confirming a sale moved one item's stock.
// It is feedback for the user, nothing downstream acts on it.
type StockAdjustment struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	StockBefore int    `json:"stock_before"`
	StockAfter  int    `json:"stock_after"`
}

// ConfirmResult is what a successful checkout confirmation returns.
type ConfirmResult struct {
	Snapshot         RemoteCartSnapshot `json:"snapshot"`
	StockAdjustments []StockAdjustment  `json:"stock_adjustments,omitempty"`
}
