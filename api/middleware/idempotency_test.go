package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func TestRouteTTLSelection(t *testing.T) {
	defaultTTL := 24 * time.Hour
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"checkout begin", http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true},
		{"payment return", http.MethodPost, "/api/v1/checkout/payment/return", criticalIdempotencyTTL, true},
		{"cart add", http.MethodPost, "/api/v1/cart/lines", defaultTTL, true},
		{"cart update", http.MethodPatch, "/api/v1/cart/lines", defaultTTL, true},
		{"cart remove", http.MethodDelete, "/api/v1/cart/lines", defaultTTL, true},
		{"address create", http.MethodPost, "/api/v1/addresses", defaultTTL, true},
		{"cart fetch", http.MethodGet, "/api/v1/cart", 0, false},
		{"foreground", http.MethodPost, "/api/v1/app/foreground", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path, defaultTTL)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines",strings.NewReader(`{"lines":[]}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

// Mounted with r.Use at the API group, the middleware runs before chi has
// resolved the leaf route: the route context only holds the group's wildcard
// pattern. Matching must come from the request path, not the pattern.
func TestIdempotencyMiddlewareFiresUnderGroupMount(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(`{}`))
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{"/api/v1/*"}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines",strings.NewReader(`{"lines":[{"merchandise_id":"v1","quantity":1}]}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines",strings.NewReader(`{"lines":[{"merchandise_id":"v1","quantity":1}]}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines",strings.NewReader(`{"lines":[{"merchandise_id":"v1","quantity":1}]}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines",strings.NewReader(`{"lines":[{"merchandise_id":"v1","quantity":2}]}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyScopesByIdentity(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 0, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	body := `{"lines":[{"merchandise_id":"v1","quantity":1}]}`

	first := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines",strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "shared")
	first = first.WithContext(WithIdentityClaims(first.Context(), "a@example.com", ""))
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	// Same key under a different identity is a fresh request.
	second := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines",strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "shared")
	second = second.WithContext(WithIdentityClaims(second.Context(), "b@example.com", ""))
	mw(handler).ServeHTTP(httptest.NewRecorder(), second)

	if calls != 2 {
		t.Fatalf("handler executed %d times, expected 2", calls)
	}
}
