package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/visionkart/storefront-backend/internal/cartstore"
	"github.com/visionkart/storefront-backend/internal/commerce"
	"github.com/visionkart/storefront-backend/pkg/enums"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/types"
)

// CartManager is the slice of the cart aggregate the checkout flow consumes.
type CartManager interface {
	Cart() *commerce.Cart
	AssociateBuyer(ctx context.Context, email, customerToken string) (*commerce.Cart, error)
	Clear(ctx context.Context) error
}

// RateSource provides selectable shipping rates for a destination.
type RateSource interface {
	ShippingRates(ctx context.Context, address types.Address) ([]commerce.ShippingRate, error)
}

// SessionStore persists the serialized checkout session.
type SessionStore interface {
	SaveSessionRecord(ctx context.Context, payload []byte) error
	LoadSessionRecord(ctx context.Context) ([]byte, error)
	DeleteSessionRecord(ctx context.Context) error
}

// Service drives the checkout flow: address, shipping, payment, complete.
// Steps only move forward; an attempt to act out of order is a state
// conflict, not an error the client can retry into success.
type Service struct {
	carts    CartManager
	rates    RateSource
	store    SessionStore
	logger   *logger.Logger
	validate *validator.Validate

	mu      sync.Mutex
	session *Session
	ready   bool
}

func NewService(carts CartManager, rates RateSource, store SessionStore, logg *logger.Logger) (*Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("checkout requires a cart manager")
	}
	if rates == nil {
		return nil, fmt.Errorf("checkout requires a rate source")
	}
	if store == nil {
		return nil, fmt.Errorf("checkout requires a session store")
	}
	if logg == nil {
		return nil, fmt.Errorf("checkout requires a logger")
	}
	return &Service{
		carts:    carts,
		rates:    rates,
		store:    store,
		logger:   logg,
		validate: validator.New(),
	}, nil
}

// Load restores a persisted session and drops it if the cart it referenced is
// gone. The service accepts no calls before Load completes.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.store.LoadSessionRecord(ctx)
	switch {
	case errors.Is(err, cartstore.ErrNoSnapshot):
		s.session = nil
	case err != nil:
		return fmt.Errorf("restore checkout session: %w", err)
	default:
		var session Session
		if err := json.Unmarshal(raw, &session); err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("discarding undecodable checkout session: %v", err))
			if err := s.store.DeleteSessionRecord(ctx); err != nil {
				s.logger.Warn(ctx, fmt.Sprintf("failed to delete checkout session: %v", err))
			}
		} else {
			s.session = &session
		}
	}

	s.ready = true
	if s.session != nil && !s.sessionStillValid(ctx) {
		s.logger.Info(ctx, "restored checkout session no longer matches the cart, dropped")
	}
	return nil
}

// Ready reports whether Load has completed.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Begin starts a checkout over the current cart, replacing any prior session.
func (s *Service) Begin(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout not loaded")
	}

	cart := s.carts.Cart()
	if cart == nil || len(cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot begin checkout with an empty cart")
	}

	s.session = &Session{
		ID:          uuid.NewString(),
		CartID:      cart.ID,
		CheckoutURL: cart.CheckoutURL,
		Step:        enums.CheckoutStepAddress,
		StartedAt:   time.Now().UTC(),
	}
	s.persist(ctx)
	s.logStep(ctx, "checkout started")
	return s.session.clone(), nil
}

// Session returns a copy of the in-flight session.
func (s *Service) Session(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout not loaded")
	}
	if s.session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active checkout")
	}
	if !s.sessionStillValid(ctx) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session invalidated")
	}
	return s.session.clone(), nil
}

// SubmitAddress records the shipping destination and advances to rate
// selection.
func (s *Service) SubmitAddress(ctx context.Context, address types.Address) (*Session, error) {
	normalized := address.Normalized()
	if err := s.validate.Struct(normalized); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStep(ctx, enums.CheckoutStepAddress); err != nil {
		return nil, err
	}

	s.session.Address = &normalized
	s.session.Step = enums.CheckoutStepShipping
	s.persist(ctx)
	s.logStep(ctx, "shipping address submitted")
	return s.session.clone(), nil
}

// ShippingRates lists the selectable rates for the submitted address.
func (s *Service) ShippingRates(ctx context.Context) ([]commerce.ShippingRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStep(ctx, enums.CheckoutStepShipping); err != nil {
		return nil, err
	}
	return s.rates.ShippingRates(ctx, *s.session.Address)
}

// SelectShippingRate picks a rate by handle and advances to payment.
func (s *Service) SelectShippingRate(ctx context.Context, handle string) (*Session, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate handle is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStep(ctx, enums.CheckoutStepShipping); err != nil {
		return nil, err
	}

	available, err := s.rates.ShippingRates(ctx, *s.session.Address)
	if err != nil {
		return nil, err
	}
	var selected *commerce.ShippingRate
	for i := range available {
		if available[i].Handle == handle {
			selected = &available[i]
			break
		}
	}
	if selected == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown shipping rate %q", handle))
	}

	s.session.Rate = selected
	s.session.Step = enums.CheckoutStepPayment
	s.persist(ctx)
	s.logStep(ctx, "shipping rate selected")
	return s.session.clone(), nil
}

// AssociateCustomer links the remote cart to the signed-in customer so the
// hosted payment page is prefilled. With no email the shopper checks out as a
// guest and this is a no-op. A decoration failure downgrades to a warning;
// checkout proceeds with the undecorated URL.
func (s *Service) AssociateCustomer(ctx context.Context, email, customerToken string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(ctx); err != nil {
		return nil, err
	}
	if email == "" {
		return s.session.clone(), nil
	}

	decorated, err := s.carts.AssociateBuyer(ctx, email, customerToken)
	if err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("buyer association failed, continuing as guest: %v", err))
		return s.session.clone(), nil
	}

	s.session.Email = email
	if decorated.CheckoutURL != "" {
		s.session.CheckoutURL = decorated.CheckoutURL
	}
	s.persist(ctx)
	s.logStep(ctx, "customer associated")
	return s.session.clone(), nil
}

// PresentPayment hands out the hosted payment URL for the webview, with the
// captured address and email appended as prefill parameters.
func (s *Service) PresentPayment(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStep(ctx, enums.CheckoutStepPayment); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	s.session.PaymentPresentedAt = &now
	s.persist(ctx)
	s.logStep(ctx, "payment presented")
	return decoratedPaymentURL(s.session), nil
}

// decoratedPaymentURL appends the session's known buyer fields to the hosted
// checkout URL so the payment page opens prefilled. Prefill is best effort: an
// unparseable URL is handed out untouched.
func decoratedPaymentURL(session *Session) string {
	raw := session.CheckoutURL
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := parsed.Query()
	set := func(key, value string) {
		if value != "" {
			query.Set(key, value)
		}
	}
	set("checkout[email]", session.Email)
	if addr := session.Address; addr != nil {
		set("checkout[shipping_address][first_name]", addr.FirstName)
		set("checkout[shipping_address][last_name]", addr.LastName)
		set("checkout[shipping_address][address1]", addr.Line1)
		if addr.Line2 != nil {
			set("checkout[shipping_address][address2]", *addr.Line2)
		}
		set("checkout[shipping_address][city]", addr.City)
		set("checkout[shipping_address][province]", addr.Province)
		set("checkout[shipping_address][zip]", addr.PostalCode)
		set("checkout[shipping_address][country]", addr.Country)
		if addr.Phone != nil {
			set("checkout[shipping_address][phone]", *addr.Phone)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// ConsumePaymentReturn records that the shopper came back from the payment
// webview. The session stays at the payment step until reconciliation
// confirms an order.
func (s *Service) ConsumePaymentReturn(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStep(ctx, enums.CheckoutStepPayment); err != nil {
		return nil, err
	}
	if s.session.PaymentPresentedAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment was never presented")
	}

	now := time.Now().UTC()
	s.session.PaymentReturnedAt = &now
	s.persist(ctx)
	s.logStep(ctx, "payment return consumed")
	return s.session.clone(), nil
}

// ClearPaymentReturn consumes the outstanding-confirmation trigger without
// touching the rest of the session. After an order query has run once and not
// settled the outcome, further foregrounds must not re-trigger automatically;
// the shopper resolves manually (retry payment or check order history).
func (s *Service) ClearPaymentReturn(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout not loaded")
	}
	if s.session == nil || s.session.PaymentReturnedAt == nil {
		return nil
	}

	s.session.PaymentReturnedAt = nil
	s.persist(ctx)
	s.logStep(ctx, "payment confirmation trigger cleared")
	return nil
}

// AwaitingConfirmation reports whether an order confirmation is outstanding.
func (s *Service) AwaitingConfirmation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.AwaitingConfirmation()
}

// Complete marks the checkout finished against a confirmed order, clears the
// cart mirror, and removes the session.
func (s *Service) Complete(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout not loaded")
	}
	if s.session == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active checkout")
	}

	s.session.OrderID = orderID
	s.session.Step = enums.CheckoutStepComplete
	s.logStep(ctx, "checkout complete")

	if err := s.carts.Clear(ctx); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("failed to clear cart after completion: %v", err))
	}
	s.session = nil
	if err := s.store.DeleteSessionRecord(ctx); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("failed to delete checkout session: %v", err))
	}
	return nil
}

// Cancel abandons the in-flight session. The cart is untouched.
func (s *Service) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout not loaded")
	}
	if s.session == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active checkout")
	}

	s.logStep(ctx, "checkout cancelled")
	s.session = nil
	if err := s.store.DeleteSessionRecord(ctx); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("failed to delete checkout session: %v", err))
	}
	return nil
}

// requireStep enforces forward-only progression: the session must exist,
// still match the cart, and sit exactly at the wanted step.
func (s *Service) requireStep(ctx context.Context, want enums.CheckoutStep) error {
	if err := s.requireActive(ctx); err != nil {
		return err
	}
	if s.session.Step != want {
		if s.session.Step.Before(want) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("checkout is at step %s, %s not reached yet", s.session.Step, want))
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("checkout already advanced past %s", want))
	}
	return nil
}

func (s *Service) requireActive(ctx context.Context) error {
	if !s.ready {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout not loaded")
	}
	if s.session == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active checkout")
	}
	if !s.sessionStillValid(ctx) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session invalidated")
	}
	return nil
}

// sessionStillValid drops the session when the cart it was opened over is
// gone, empty, or replaced. Callers must hold the mutex.
func (s *Service) sessionStillValid(ctx context.Context) bool {
	cart := s.carts.Cart()
	if cart != nil && len(cart.Lines) > 0 && cart.ID == s.session.CartID {
		return true
	}

	s.session = nil
	if err := s.store.DeleteSessionRecord(ctx); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("failed to delete stale checkout session: %v", err))
	}
	return false
}

func (s *Service) persist(ctx context.Context) {
	payload, err := json.Marshal(s.session)
	if err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("failed to encode checkout session: %v", err))
		return
	}
	if err := s.store.SaveSessionRecord(ctx, payload); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("failed to persist checkout session: %v", err))
	}
}

func (s *Service) logStep(ctx context.Context, msg string) {
	if s.session != nil {
		ctx = s.logger.WithCheckoutStep(ctx, s.session.Step.String())
		ctx = s.logger.WithCartID(ctx, s.session.CartID)
	}
	s.logger.Info(ctx, msg)
}
