package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/visionkart/storefront-backend/internal/checkout"
	"github.com/visionkart/storefront-backend/internal/commerce"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/metrics"
)

// Outcome is the result of one reconciliation attempt.
type Outcome string

const (
	// OutcomeSkipped means no confirmation was outstanding or a run was
	// already in flight.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeCompleted means a matching order was found and the checkout
	// was closed out.
	OutcomeCompleted Outcome = "completed"
	// OutcomeUnresolved means no matching order exists yet. The session is
	// left in place for the shopper to resolve manually.
	OutcomeUnresolved Outcome = "unresolved"
)

// Result carries the outcome and, when completed, the confirming order.
type Result struct {
	Outcome Outcome         `json:"outcome"`
	OrderID string          `json:"order_id,omitempty"`
	Order   *commerce.Order `json:"order,omitempty"`
}

// CheckoutFlow is the slice of the checkout service reconciliation drives.
type CheckoutFlow interface {
	AwaitingConfirmation() bool
	Session(ctx context.Context) (*checkout.Session, error)
	Complete(ctx context.Context, orderID string) error
	ClearPaymentReturn(ctx context.Context) error
}

// OrderSource lists the customer's completed orders.
type OrderSource interface {
	Orders(ctx context.Context, customerToken string) ([]commerce.Order, error)
}

// Orders processed slightly before the payment page opened still count as a
// match, so device clock drift cannot strand a real completion.
const clockSkewAllowance = 5 * time.Minute

// Service confirms whether an in-flight payment actually produced an order.
// The trigger is app foreground; each foreground runs at most one attempt,
// and a failed attempt never destroys state. When the outcome cannot be
// confirmed, the session stays put and resolution falls to the shopper.
type Service struct {
	checkout    CheckoutFlow
	orders      OrderSource
	logger      *logger.Logger
	metrics     *metrics.ReconcileMetrics
	settleDelay time.Duration

	mu       sync.Mutex
	inFlight bool
}

func NewService(flow CheckoutFlow, orders OrderSource, logg *logger.Logger, rm *metrics.ReconcileMetrics, settleDelay time.Duration) (*Service, error) {
	if flow == nil {
		return nil, fmt.Errorf("reconcile requires a checkout flow")
	}
	if orders == nil {
		return nil, fmt.Errorf("reconcile requires an order source")
	}
	if logg == nil {
		return nil, fmt.Errorf("reconcile requires a logger")
	}
	if settleDelay < 0 {
		settleDelay = 0
	}
	return &Service{
		checkout:    flow,
		orders:      orders,
		logger:      logg,
		metrics:     rm,
		settleDelay: settleDelay,
	}, nil
}

// OnForeground runs one reconciliation attempt if a confirmation is
// outstanding. The settle delay gives the remote platform time to record the
// order before the first query.
func (s *Service) OnForeground(ctx context.Context, customerToken string) (*Result, error) {
	if !s.acquire() {
		return &Result{Outcome: OutcomeSkipped}, nil
	}
	defer s.release()

	if !s.checkout.AwaitingConfirmation() {
		return &Result{Outcome: OutcomeSkipped}, nil
	}

	s.logger.Info(ctx, "reconciling payment outcome")

	if err := s.settle(ctx); err != nil {
		return nil, err
	}

	session, err := s.checkout.Session(ctx)
	if err != nil {
		// The session evaporated while we slept; nothing to confirm.
		s.logger.Warn(ctx, fmt.Sprintf("checkout session gone before reconciliation: %v", err))
		return &Result{Outcome: OutcomeSkipped}, nil
	}
	if !session.AwaitingConfirmation() {
		return &Result{Outcome: OutcomeSkipped}, nil
	}

	if strings.TrimSpace(customerToken) == "" {
		s.metrics.IncUnresolved()
		return nil, pkgerrors.New(pkgerrors.CodeAmbiguous, "cannot confirm payment outcome without a signed-in customer")
	}

	orders, err := s.orders.Orders(ctx, customerToken)
	if err != nil {
		s.metrics.IncUnresolved()
		s.logger.Error(ctx, "order lookup failed during reconciliation", err)
		s.consumeTrigger(ctx)
		return nil, pkgerrors.Wrap(pkgerrors.CodeAmbiguous, err, "payment outcome could not be confirmed")
	}

	match := matchOrder(orders, session)
	if match == nil {
		s.metrics.IncUnresolved()
		s.logger.Info(ctx, "no order found for in-flight payment")
		s.consumeTrigger(ctx)
		return &Result{Outcome: OutcomeUnresolved}, nil
	}

	if err := s.checkout.Complete(ctx, match.ID); err != nil {
		s.metrics.IncUnresolved()
		return nil, pkgerrors.Wrap(pkgerrors.CodeAmbiguous, err, "order found but checkout could not be closed")
	}

	s.metrics.IncCompleted()
	s.logger.Info(s.logger.WithField(ctx, "order_id", match.ID), "checkout reconciled to completed order")
	matched := *match
	return &Result{Outcome: OutcomeCompleted, OrderID: matched.ID, Order: &matched}, nil
}

// consumeTrigger retires the foreground trigger once the order query has run.
// One presentation gets one automatic attempt; an unsettled outcome is the
// shopper's to resolve, and the session itself stays put.
func (s *Service) consumeTrigger(ctx context.Context) {
	if err := s.checkout.ClearPaymentReturn(ctx); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("failed to clear reconciliation trigger: %v", err))
	}
}

func (s *Service) settle(ctx context.Context) error {
	if s.settleDelay == 0 {
		return nil
	}
	timer := time.NewTimer(s.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeAmbiguous, ctx.Err(), "reconciliation interrupted")
	case <-timer.C:
		return nil
	}
}

func (s *Service) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *Service) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// matchOrder picks the newest order processed after the payment page opened,
// minus a skew allowance.
func matchOrder(orders []commerce.Order, session *checkout.Session) *commerce.Order {
	if session.PaymentPresentedAt == nil {
		return nil
	}
	cutoff := session.PaymentPresentedAt.Add(-clockSkewAllowance)

	var newest *commerce.Order
	for i := range orders {
		order := orders[i]
		if order.ProcessedAt.Before(cutoff) {
			continue
		}
		if newest == nil || order.ProcessedAt.After(newest.ProcessedAt) {
			newest = &orders[i]
		}
	}
	return newest
}
