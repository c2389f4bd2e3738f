package commerce

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/visionkart/storefront-backend/pkg/types"
)

// Cart is the canonical remote cart, adopted wholesale by the aggregate
// manager on every successful mutation. Totals are never stored; they are
// folded from Lines.
type Cart struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Lines       []Line `json:"lines"`
}

// Line is one remote cart line.
type Line struct {
	ID            string               `json:"id"`
	MerchandiseID string               `json:"merchandise_id"`
	Quantity      int                  `json:"quantity"`
	Attributes    types.LineAttributes `json:"attributes,omitempty"`
	UnitPrice     decimal.Decimal      `json:"unit_price"`
}

// Subtotal folds unit price by quantity across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, line := range c.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// TotalQuantity sums line quantities.
func (c *Cart) TotalQuantity() int {
	if c == nil {
		return 0
	}
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Clone returns a deep copy so callers cannot mutate the mirror in place.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := &Cart{ID: c.ID, CheckoutURL: c.CheckoutURL}
	if c.Lines != nil {
		out.Lines = make([]Line, len(c.Lines))
		for i, line := range c.Lines {
			copied := line
			if line.Attributes != nil {
				copied.Attributes = append(types.LineAttributes{}, line.Attributes...)
			}
			out.Lines[i] = copied
		}
	}
	return out
}

// LineInput describes a line to add to a cart.
type LineInput struct {
	MerchandiseID string               `json:"merchandise_id"`
	Quantity      int                  `json:"quantity"`
	Attributes    types.LineAttributes `json:"attributes,omitempty"`
}

// LineUpdate adjusts the quantity of an existing line.
type LineUpdate struct {
	LineID   string `json:"line_id"`
	Quantity int    `json:"quantity"`
}

// Order is a completed remote order, used by reconciliation and history.
type Order struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ProcessedAt time.Time       `json:"processed_at"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// CustomerAddress is an address-book entry on the remote platform.
type CustomerAddress struct {
	ID      string        `json:"id"`
	Address types.Address `json:"address"`
	Default bool          `json:"default"`
}

// ShippingRate is one selectable shipping option. Source marks where the
// rate came from; the storefront API exposes no rate query, so every rate
// this service serves carries Source "static".
type ShippingRate struct {
	Handle string          `json:"handle"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Source string          `json:"source"`
}

// RateSourceStatic marks rates synthesized from configuration rather than
// remote pricing.
const RateSourceStatic = "static"
