package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/visionkart/storefront-backend/api/middleware"
	"github.com/visionkart/storefront-backend/api/responses"
	"github.com/visionkart/storefront-backend/api/validators"
	"github.com/visionkart/storefront-backend/internal/commerce"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/types"
)

// CartService is the slice of the cart manager the handlers consume.
type CartService interface {
	Cart() *commerce.Cart
	Count() int
	Identity() string
	SetActiveIdentity(ctx context.Context, identity string) error
	AddLines(ctx context.Context, lines []commerce.LineInput) (*commerce.Cart, error)
	UpdateLines(ctx context.Context, updates []commerce.LineUpdate) (*commerce.Cart, error)
	RemoveLines(ctx context.Context, lineIDs []string) (*commerce.Cart, error)
	Clear(ctx context.Context) error
}

type lineAttributePayload struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

type addLinePayload struct {
	MerchandiseID string                 `json:"merchandise_id" validate:"required"`
	Quantity      int                    `json:"quantity" validate:"required,min=1"`
	Attributes    []lineAttributePayload `json:"attributes,omitempty" validate:"omitempty,dive"`
}

type addLinesRequest struct {
	Lines []addLinePayload `json:"lines" validate:"required,min=1,dive"`
}

type updateLinePayload struct {
	LineID   string `json:"line_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type updateLinesRequest struct {
	Lines []updateLinePayload `json:"lines" validate:"required,min=1,dive"`
}

type removeLinesRequest struct {
	LineIDs []string `json:"line_ids" validate:"required,min=1,dive,required"`
}

type cartLineView struct {
	ID            string               `json:"id"`
	MerchandiseID string               `json:"merchandise_id"`
	Quantity      int                  `json:"quantity"`
	Attributes    types.LineAttributes `json:"attributes,omitempty"`
	UnitPrice     string               `json:"unit_price"`
	LineTotal     string               `json:"line_total"`
}

type cartView struct {
	ID          string         `json:"id"`
	CheckoutURL string         `json:"checkout_url"`
	Lines       []cartLineView `json:"lines"`
	Subtotal    string         `json:"subtotal"`
	Count       int            `json:"count"`
}

type cartEnvelope struct {
	Cart  *cartView `json:"cart"`
	Count int       `json:"count"`
}

func newCartView(cart *commerce.Cart) *cartView {
	if cart == nil {
		return nil
	}
	view := &cartView{
		ID:          cart.ID,
		CheckoutURL: cart.CheckoutURL,
		Lines:       make([]cartLineView, 0, len(cart.Lines)),
		Subtotal:    cart.Subtotal().StringFixed(2),
		Count:       cart.TotalQuantity(),
	}
	for _, line := range cart.Lines {
		view.Lines = append(view.Lines, cartLineView{
			ID:            line.ID,
			MerchandiseID: line.MerchandiseID,
			Quantity:      line.Quantity,
			Attributes:    line.Attributes,
			UnitPrice:     line.UnitPrice.StringFixed(2),
			LineTotal:     line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).StringFixed(2),
		})
	}
	return view
}

func newCartEnvelope(cart *commerce.Cart) cartEnvelope {
	view := newCartView(cart)
	count := 0
	if view != nil {
		count = view.Count
	}
	return cartEnvelope{Cart: view, Count: count}
}

// CartFetch returns the current cart mirror.
func CartFetch(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		if err := ensureScope(r, svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartEnvelope(svc.Cart()))
	}
}

// CartAddLines adds lines, creating the remote cart on first use.
func CartAddLines(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		if err := ensureScope(r, svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addLinesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.AddLines(r.Context(), toLineInputs(payload.Lines))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartEnvelope(cart))
	}
}

// CartUpdateLines changes line quantities.
func CartUpdateLines(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		if err := ensureScope(r, svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateLinesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := make([]commerce.LineUpdate, len(payload.Lines))
		for i, line := range payload.Lines {
			updates[i] = commerce.LineUpdate{LineID: line.LineID, Quantity: line.Quantity}
		}

		cart, err := svc.UpdateLines(r.Context(), updates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartEnvelope(cart))
	}
}

// CartRemoveLines deletes lines from the cart.
func CartRemoveLines(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		if err := ensureScope(r, svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload removeLinesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.RemoveLines(r.Context(), payload.LineIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartEnvelope(cart))
	}
}

// CartClear drops the local mirror and its snapshot. The remote cart is left
// alone; it simply stops being tracked.
func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		if err := ensureScope(r, svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartEnvelope(nil))
	}
}

func toLineInputs(lines []addLinePayload) []commerce.LineInput {
	inputs := make([]commerce.LineInput, len(lines))
	for i, line := range lines {
		input := commerce.LineInput{
			MerchandiseID: line.MerchandiseID,
			Quantity:      line.Quantity,
		}
		for _, attr := range line.Attributes {
			input.Attributes = append(input.Attributes, types.LineAttribute{Key: attr.Key, Value: attr.Value})
		}
		inputs[i] = input
	}
	return inputs
}

// ensureScope aligns the cart scope with the verified token on the request.
// A signed-in request against a stale scope switches before acting; requests
// without a token leave the scope alone, so a flaky token refresh never
// triggers a sign-out.
func ensureScope(r *http.Request, svc CartService) error {
	email := middleware.EmailFromContext(r.Context())
	if email == "" || email == svc.Identity() {
		return nil
	}
	return svc.SetActiveIdentity(r.Context(), email)
}
