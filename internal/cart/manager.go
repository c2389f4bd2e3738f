package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/visionkart/storefront-backend/internal/cartstore"
	"github.com/visionkart/storefront-backend/internal/commerce"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
)

// Gateway is the slice of the commerce client the manager consumes.
type Gateway interface {
	CartCreate(ctx context.Context, lines []commerce.LineInput) (*commerce.Cart, error)
	CartLinesAdd(ctx context.Context, cartID string, lines []commerce.LineInput) (*commerce.Cart, error)
	CartLinesUpdate(ctx context.Context, cartID string, updates []commerce.LineUpdate) (*commerce.Cart, error)
	CartLinesRemove(ctx context.Context, cartID string, lineIDs []string) (*commerce.Cart, error)
	CartBuyerIdentityUpdate(ctx context.Context, cartID, email, customerToken string) (*commerce.Cart, error)
}

// SnapshotStore persists identity-scoped cart snapshots.
type SnapshotStore interface {
	SaveCart(ctx context.Context, identity string, cart *commerce.Cart) error
	LoadCart(ctx context.Context, identity string) (*commerce.Cart, error)
	DeleteCart(ctx context.Context, identity string) error
	MigrateAnonymous(ctx context.Context, identity string) (bool, error)
}

// Manager owns the in-memory cart mirror. The mirror is never mutated
// optimistically: every change goes to the remote platform first and the
// response cart is adopted wholesale. Under concurrent mutations the last
// adopted response wins.
type Manager struct {
	gateway   Gateway
	snapshots SnapshotStore
	logger    *logger.Logger

	mu       sync.Mutex
	identity string
	cart     *commerce.Cart
	ready    bool
}

func NewManager(gateway Gateway, snapshots SnapshotStore, logg *logger.Logger) (*Manager, error) {
	if gateway == nil {
		return nil, fmt.Errorf("cart manager requires a commerce gateway")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("cart manager requires a snapshot store")
	}
	if logg == nil {
		return nil, fmt.Errorf("cart manager requires a logger")
	}
	return &Manager{gateway: gateway, snapshots: snapshots, logger: logg}, nil
}

// Load restores the anonymous snapshot and marks the manager ready. Mutating
// calls before Load complete with a state conflict, so callers cannot race a
// half-restored mirror.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, err := m.snapshots.LoadCart(ctx, m.identity)
	switch {
	case errors.Is(err, cartstore.ErrNoSnapshot):
		m.cart = nil
	case err != nil:
		return fmt.Errorf("restore cart snapshot: %w", err)
	default:
		m.cart = cart
	}
	m.ready = true
	m.logMirror(ctx, "cart mirror restored")
	return nil
}

// Ready reports whether Load has completed.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Identity returns the active identity scope, "" meaning anonymous.
func (m *Manager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Cart returns a deep copy of the mirror, or nil when no cart is active.
func (m *Manager) Cart() *commerce.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.Clone()
}

// Count returns the total quantity across all lines, for badge rendering.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.TotalQuantity()
}

// SetActiveIdentity switches the mirror to a new identity scope.
//
// Sign-in performs the one-shot anonymous migration before loading the new
// scope. Sign-out deletes the outgoing identity's snapshot. In every case the
// mirror is cleared before the new scope's snapshot is loaded, so one
// identity's cart is never visible under another.
func (m *Manager) SetActiveIdentity(ctx context.Context, identity string) error {
	identity = strings.ToLower(strings.TrimSpace(identity))

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart mirror not loaded")
	}
	if identity == m.identity {
		return nil
	}

	previous := m.identity
	m.cart = nil

	if previous == "" && identity != "" {
		adopted, err := m.snapshots.MigrateAnonymous(ctx, identity)
		if err != nil {
			return fmt.Errorf("migrate anonymous cart: %w", err)
		}
		if adopted {
			m.logger.Info(m.logger.WithIdentity(ctx, identity), "anonymous cart migrated")
		}
	}
	if identity == "" && previous != "" {
		if err := m.snapshots.DeleteCart(ctx, previous); err != nil {
			m.logger.Warn(ctx, fmt.Sprintf("failed to delete snapshot on sign-out: %v", err))
		}
	}

	m.identity = identity

	cart, err := m.snapshots.LoadCart(ctx, identity)
	switch {
	case errors.Is(err, cartstore.ErrNoSnapshot):
		m.cart = nil
	case err != nil:
		return fmt.Errorf("load cart snapshot: %w", err)
	default:
		m.cart = cart
	}
	m.logMirror(ctx, "identity scope switched")
	return nil
}

// AddLines adds lines to the cart, creating the remote cart on first use.
func (m *Manager) AddLines(ctx context.Context, lines []commerce.LineInput) (*commerce.Cart, error) {
	if err := validateLineInputs(lines); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart mirror not loaded")
	}

	var (
		updated *commerce.Cart
		err     error
	)
	if m.cart == nil {
		updated, err = m.gateway.CartCreate(ctx, lines)
	} else {
		updated, err = m.gateway.CartLinesAdd(ctx, m.cart.ID, lines)
		if isNotFound(err) {
			// The remote cart expired out from under the mirror.
			m.logger.Warn(m.logger.WithCartID(ctx, m.cart.ID), "remote cart gone, creating a new one")
			updated, err = m.gateway.CartCreate(ctx, lines)
		}
	}
	if err != nil {
		return nil, err
	}
	return m.adopt(ctx, updated), nil
}

// UpdateLines changes quantities on existing lines.
func (m *Manager) UpdateLines(ctx context.Context, updates []commerce.LineUpdate) (*commerce.Cart, error) {
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no line updates provided")
	}
	for _, update := range updates {
		if update.LineID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
		}
		if update.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart mirror not loaded")
	}
	if m.cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
	}

	updated, err := m.gateway.CartLinesUpdate(ctx, m.cart.ID, updates)
	if err != nil {
		return nil, err
	}
	return m.adopt(ctx, updated), nil
}

// RemoveLines deletes lines from the cart.
func (m *Manager) RemoveLines(ctx context.Context, lineIDs []string) (*commerce.Cart, error) {
	if len(lineIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no line ids provided")
	}
	for _, id := range lineIDs {
		if id == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart mirror not loaded")
	}
	if m.cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
	}

	updated, err := m.gateway.CartLinesRemove(ctx, m.cart.ID, lineIDs)
	if err != nil {
		return nil, err
	}
	return m.adopt(ctx, updated), nil
}

// AssociateBuyer links the active cart to the authenticated customer and
// adopts the decorated cart, including any updated checkout URL.
func (m *Manager) AssociateBuyer(ctx context.Context, email, customerToken string) (*commerce.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart mirror not loaded")
	}
	if m.cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
	}

	updated, err := m.gateway.CartBuyerIdentityUpdate(ctx, m.cart.ID, email, customerToken)
	if err != nil {
		return nil, err
	}
	return m.adopt(ctx, updated), nil
}

// Clear drops the mirror and its snapshot without touching the remote cart.
// Used after order completion, where the remote platform owns the cart's fate.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart mirror not loaded")
	}

	m.cart = nil
	if err := m.snapshots.DeleteCart(ctx, m.identity); err != nil {
		m.logger.Warn(ctx, fmt.Sprintf("failed to delete cart snapshot: %v", err))
	}
	m.logMirror(ctx, "cart cleared")
	return nil
}

// adopt replaces the mirror with the remote response and persists it. Callers
// must hold the mutex. Persistence failures are logged, not propagated; the
// mirror already reflects what the remote platform confirmed.
func (m *Manager) adopt(ctx context.Context, cart *commerce.Cart) *commerce.Cart {
	m.cart = cart.Clone()
	if err := m.snapshots.SaveCart(ctx, m.identity, m.cart); err != nil {
		m.logger.Warn(ctx, fmt.Sprintf("failed to persist cart snapshot: %v", err))
	}
	m.logMirror(ctx, "cart adopted")
	return cart.Clone()
}

func (m *Manager) logMirror(ctx context.Context, msg string) {
	ctx = m.logger.WithIdentity(ctx, m.identity)
	if m.cart != nil {
		ctx = m.logger.WithCartID(ctx, m.cart.ID)
	}
	m.logger.Info(m.logger.WithField(ctx, "line_count", lineCount(m.cart)), msg)
}

func lineCount(cart *commerce.Cart) int {
	if cart == nil {
		return 0
	}
	return len(cart.Lines)
}

func validateLineInputs(lines []commerce.LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no lines provided")
	}
	for _, line := range lines {
		if line.MerchandiseID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "merchandise id is required")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var domainErr *pkgerrors.Error
	return errors.As(err, &domainErr) && domainErr.Code() == pkgerrors.CodeNotFound
}
