package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one priced line on a supplier document or a ledger record.
// TotalPrice is expected to equal Quantity * UnitPrice but is not checked.
type LineItem struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
}

// DocumentRecord represents either an extracted supplier document or a row
// returned by the ledger query.
type DocumentRecord struct {
	ID          string     `json:"id"`
	Date        *time.Time `json:"date,omitempty"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Items       []LineItem `json:"items,omitempty"`
}

// LineItems returns the record's items. A record without items stands for a
// single line named after its description.
func (d DocumentRecord) LineItems() []LineItem {
	if len(d.Items) > 0 {
		return d.Items
	}
	return []LineItem{{
		Name:       d.Description,
		Quantity:   1,
		UnitPrice:  d.Amount,
		TotalPrice: d.Amount,
	}}
}

// FlattenItems concatenates the line items of all records, preserving order.
func FlattenItems(records []DocumentRecord) []LineItem {
	var items []LineItem
	for _, r := range records {
		items = append(items, r.LineItems()...)
	}
	return items
}

// SumTotals adds up TotalPrice over items. The sum is carried in decimal so
// long item lists do not accumulate float drift.
func SumTotals(items []LineItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.TotalPrice))
	}
	return total.InexactFloat64()
}
