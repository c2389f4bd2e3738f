package controllers

import (
	"context"
	"net/http"

	"github.com/visionkart/storefront-backend/api/middleware"
	"github.com/visionkart/storefront-backend/api/responses"
	"github.com/visionkart/storefront-backend/api/validators"
	checkoutsvc "github.com/visionkart/storefront-backend/internal/checkout"
	"github.com/visionkart/storefront-backend/internal/commerce"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/types"
)

// CheckoutService is the slice of the checkout flow the handlers consume.
type CheckoutService interface {
	Begin(ctx context.Context) (*checkoutsvc.Session, error)
	Session(ctx context.Context) (*checkoutsvc.Session, error)
	SubmitAddress(ctx context.Context, address types.Address) (*checkoutsvc.Session, error)
	ShippingRates(ctx context.Context) ([]commerce.ShippingRate, error)
	SelectShippingRate(ctx context.Context, handle string) (*checkoutsvc.Session, error)
	AssociateCustomer(ctx context.Context, email, customerToken string) (*checkoutsvc.Session, error)
	PresentPayment(ctx context.Context) (string, error)
	ConsumePaymentReturn(ctx context.Context) (*checkoutsvc.Session, error)
	Cancel(ctx context.Context) error
}

type addressPayload struct {
	FirstName  string  `json:"first_name" validate:"required"`
	LastName   string  `json:"last_name" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	Province   string  `json:"province" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

func (p addressPayload) toAddress() types.Address {
	return types.Address{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		Province:   p.Province,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Phone:      p.Phone,
	}
}

type selectRateRequest struct {
	Handle string `json:"handle" validate:"required"`
}

type rateView struct {
	Handle string `json:"handle"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
	Source string `json:"source"`
}

type sessionView struct {
	ID                   string         `json:"id"`
	CartID               string         `json:"cart_id"`
	Step                 string         `json:"step"`
	Address              *types.Address `json:"address,omitempty"`
	Rate                 *rateView      `json:"rate,omitempty"`
	Email                string         `json:"email,omitempty"`
	Subtotal             string         `json:"subtotal"`
	Shipping             string         `json:"shipping,omitempty"`
	Total                string         `json:"total"`
	AwaitingConfirmation bool           `json:"awaiting_confirmation"`
}

func newRateView(rate *commerce.ShippingRate) *rateView {
	if rate == nil {
		return nil
	}
	return &rateView{
		Handle: rate.Handle,
		Label:  rate.Label,
		Amount: rate.Amount.StringFixed(2),
		Source: rate.Source,
	}
}

func newSessionView(session *checkoutsvc.Session, cart *commerce.Cart) *sessionView {
	if session == nil {
		return nil
	}
	subtotal := cart.Subtotal()
	total := subtotal
	view := &sessionView{
		ID:                   session.ID,
		CartID:               session.CartID,
		Step:                 session.Step.String(),
		Address:              session.Address,
		Rate:                 newRateView(session.Rate),
		Email:                session.Email,
		Subtotal:             subtotal.StringFixed(2),
		AwaitingConfirmation: session.AwaitingConfirmation(),
	}
	if session.Rate != nil {
		view.Shipping = session.Rate.Amount.StringFixed(2)
		total = total.Add(session.Rate.Amount)
	}
	view.Total = total.StringFixed(2)
	return view
}

// CheckoutBegin starts a checkout over the active cart.
func CheckoutBegin(svc CheckoutService, carts CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		if err := ensureScope(r, carts); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Begin(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSessionView(session, carts.Cart()))
	}
}

// CheckoutFetch returns the in-flight session.
func CheckoutFetch(svc CheckoutService, carts CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		session, err := svc.Session(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionView(session, carts.Cart()))
	}
}

// CheckoutCancel abandons the in-flight session.
func CheckoutCancel(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		if err := svc.Cancel(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// CheckoutSubmitAddress records the shipping destination.
func CheckoutSubmitAddress(svc CheckoutService, carts CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload addressPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SubmitAddress(r.Context(), payload.toAddress())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionView(session, carts.Cart()))
	}
}

// CheckoutRates lists selectable shipping rates for the submitted address.
func CheckoutRates(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		rates, err := svc.ShippingRates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]rateView, len(rates))
		for i := range rates {
			views[i] = *newRateView(&rates[i])
		}
		responses.WriteSuccess(w, map[string]any{"rates": views})
	}
}

// CheckoutSelectRate picks a shipping rate by handle.
func CheckoutSelectRate(svc CheckoutService, carts CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload selectRateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SelectShippingRate(r.Context(), payload.Handle)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionView(session, carts.Cart()))
	}
}

// CheckoutAssociateCustomer links the cart to the signed-in customer.
func CheckoutAssociateCustomer(svc CheckoutService, carts CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		email := middleware.EmailFromContext(r.Context())
		token := middleware.CustomerTokenFromContext(r.Context())

		session, err := svc.AssociateCustomer(r.Context(), email, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionView(session, carts.Cart()))
	}
}

// CheckoutPresentPayment hands out the hosted payment URL.
func CheckoutPresentPayment(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		url, err := svc.PresentPayment(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"payment_url": url})
	}
}

// CheckoutPaymentReturn records that the shopper came back from the payment
// webview.
func CheckoutPaymentReturn(svc CheckoutService, carts CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		session, err := svc.ConsumePaymentReturn(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionView(session, carts.Cart()))
	}
}
