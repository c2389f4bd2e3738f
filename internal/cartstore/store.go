package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/visionkart/storefront-backend/internal/commerce"
	"github.com/visionkart/storefront-backend/pkg/logger"
)

// ErrNoSnapshot is returned when no persisted record exists for the scope.
var ErrNoSnapshot = errors.New("no persisted snapshot")

// keyValue is the slice of the redis client the store consumes.
type keyValue interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(identity string) string
	CheckoutSessionKey() string
}

// Store persists identity-scoped cart snapshots and the checkout session
// record. Snapshots are advisory: a missing or malformed record is never an
// error the caller has to recover from, it just means "start fresh".
type Store struct {
	kv     keyValue
	logger *logger.Logger
}

func New(kv keyValue, logg *logger.Logger) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("cartstore requires a key-value client")
	}
	if logg == nil {
		return nil, fmt.Errorf("cartstore requires a logger")
	}
	return &Store{kv: kv, logger: logg}, nil
}

// snapshot is the stored envelope for one identity's cart mirror.
type snapshot struct {
	SavedAt time.Time      `json:"saved_at"`
	Cart    *commerce.Cart `json:"cart"`
}

// SaveCart writes the identity's cart snapshot, replacing any prior one.
func (s *Store) SaveCart(ctx context.Context, identity string, cart *commerce.Cart) error {
	if cart == nil {
		return s.DeleteCart(ctx, identity)
	}
	payload, err := json.Marshal(snapshot{SavedAt: time.Now().UTC(), Cart: cart})
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	return s.kv.Set(ctx, s.kv.CartKey(identity), payload, 0)
}

// LoadCart returns the identity's persisted cart snapshot. A missing record
// returns ErrNoSnapshot. A record that fails to decode or fails structural
// checks is discarded and also reported as ErrNoSnapshot.
func (s *Store) LoadCart(ctx context.Context, identity string) (*commerce.Cart, error) {
	key := s.kv.CartKey(identity)
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read cart snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.discard(ctx, key, fmt.Sprintf("decode failed: %v", err))
		return nil, ErrNoSnapshot
	}
	if err := validateCart(snap.Cart); err != nil {
		s.discard(ctx, key, err.Error())
		return nil, ErrNoSnapshot
	}
	return snap.Cart, nil
}

// DeleteCart removes the identity's persisted snapshot.
func (s *Store) DeleteCart(ctx context.Context, identity string) error {
	return s.kv.Del(ctx, s.kv.CartKey(identity))
}

// MigrateAnonymous moves the anonymous snapshot to the given identity. The
// move only happens when the identity has no snapshot of its own; either way
// the anonymous record is consumed. Returns whether the identity adopted the
// anonymous cart.
func (s *Store) MigrateAnonymous(ctx context.Context, identity string) (bool, error) {
	anonKey := s.kv.CartKey("")
	targetKey := s.kv.CartKey(identity)
	if targetKey == anonKey {
		return false, nil
	}

	raw, err := s.kv.Get(ctx, anonKey)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("read anonymous snapshot: %w", err)
	}

	adopted, err := s.kv.SetNX(ctx, targetKey, raw, 0)
	if err != nil {
		return false, fmt.Errorf("migrate anonymous snapshot: %w", err)
	}
	if err := s.kv.Del(ctx, anonKey); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("migrated anonymous cart but failed to delete source: %v", err))
	}
	return adopted, nil
}

// SaveSessionRecord persists the serialized checkout session.
func (s *Store) SaveSessionRecord(ctx context.Context, payload []byte) error {
	return s.kv.Set(ctx, s.kv.CheckoutSessionKey(), payload, 0)
}

// LoadSessionRecord returns the serialized checkout session, or ErrNoSnapshot.
func (s *Store) LoadSessionRecord(ctx context.Context) ([]byte, error) {
	raw, err := s.kv.Get(ctx, s.kv.CheckoutSessionKey())
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read session record: %w", err)
	}
	return []byte(raw), nil
}

// DeleteSessionRecord removes the serialized checkout session.
func (s *Store) DeleteSessionRecord(ctx context.Context) error {
	return s.kv.Del(ctx, s.kv.CheckoutSessionKey())
}

func (s *Store) discard(ctx context.Context, key, reason string) {
	s.logger.Warn(ctx, fmt.Sprintf("discarding malformed snapshot at %s: %s", key, reason))
	if err := s.kv.Del(ctx, key); err != nil {
		s.logger.Warn(ctx, fmt.Sprintf("failed to delete malformed snapshot at %s: %v", key, err))
	}
}

func validateCart(cart *commerce.Cart) error {
	if cart == nil {
		return errors.New("snapshot has no cart")
	}
	if cart.ID == "" {
		return errors.New("cart has no id")
	}
	for i, line := range cart.Lines {
		if line.ID == "" {
			return fmt.Errorf("line %d has no id", i)
		}
		if line.MerchandiseID == "" {
			return fmt.Errorf("line %d has no merchandise id", i)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("line %d has non-positive quantity", i)
		}
	}
	return nil
}
