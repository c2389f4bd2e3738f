package checkout

import (
	"time"

	"github.com/visionkart/storefront-backend/internal/commerce"
	"github.com/visionkart/storefront-backend/pkg/enums"
	"github.com/visionkart/storefront-backend/pkg/types"
)

// Session is the single in-flight checkout. One session exists at a time; a
// new Begin replaces any prior one. The session only ever moves forward
// through the step order.
type Session struct {
	ID          string             `json:"id"`
	CartID      string             `json:"cart_id"`
	CheckoutURL string             `json:"checkout_url"`
	Step        enums.CheckoutStep `json:"step"`

	Address *types.Address         `json:"address,omitempty"`
	Rate    *commerce.ShippingRate `json:"rate,omitempty"`
	Email   string                 `json:"email,omitempty"`
	OrderID string                 `json:"order_id,omitempty"`

	StartedAt          time.Time  `json:"started_at"`
	PaymentPresentedAt *time.Time `json:"payment_presented_at,omitempty"`
	PaymentReturnedAt  *time.Time `json:"payment_returned_at,omitempty"`
}

// AwaitingConfirmation reports whether the shopper came back from the payment
// webview without a confirmed order yet. Reconciliation only runs in this
// window.
func (s *Session) AwaitingConfirmation() bool {
	return s != nil && s.Step == enums.CheckoutStepPayment && s.PaymentReturnedAt != nil
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Address != nil {
		address := *s.Address
		out.Address = &address
	}
	if s.Rate != nil {
		rate := *s.Rate
		out.Rate = &rate
	}
	if s.PaymentPresentedAt != nil {
		at := *s.PaymentPresentedAt
		out.PaymentPresentedAt = &at
	}
	if s.PaymentReturnedAt != nil {
		at := *s.PaymentReturnedAt
		out.PaymentReturnedAt = &at
	}
	return &out
}
