package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/visionkart/storefront-backend/api/middleware"
	"github.com/visionkart/storefront-backend/internal/commerce"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
)

type stubCartService struct {
	cart     *commerce.Cart
	identity string
	switches []string
	addErr   error
}

func (s *stubCartService) Cart() *commerce.Cart { return s.cart.Clone() }
func (s *stubCartService) Count() int           { return s.cart.TotalQuantity() }
func (s *stubCartService) Identity() string     { return s.identity }

func (s *stubCartService) SetActiveIdentity(_ context.Context, identity string) error {
	s.switches = append(s.switches, identity)
	s.identity = identity
	return nil
}

func (s *stubCartService) AddLines(_ context.Context, lines []commerce.LineInput) (*commerce.Cart, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.cart = &commerce.Cart{
		ID:          "cart-1",
		CheckoutURL: "https://shop.example/checkouts/cart-1",
		Lines: []commerce.Line{
			{ID: "l1", MerchandiseID: lines[0].MerchandiseID, Quantity: lines[0].Quantity, UnitPrice: decimal.RequireFromString("10.00")},
		},
	}
	return s.cart.Clone(), nil
}

func (s *stubCartService) UpdateLines(context.Context, []commerce.LineUpdate) (*commerce.Cart, error) {
	return s.cart.Clone(), nil
}

func (s *stubCartService) RemoveLines(context.Context, []string) (*commerce.Cart, error) {
	return s.cart.Clone(), nil
}

func (s *stubCartService) Clear(context.Context) error {
	s.cart = nil
	return nil
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCartFetchEmptyCart(t *testing.T) {
	svc := &stubCartService{}
	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	data := decodeEnvelope(t, resp.Body.Bytes())
	if data["cart"] != nil {
		t.Fatalf("expected null cart, got %v", data["cart"])
	}
	if data["count"] != float64(0) {
		t.Fatalf("expected count 0, got %v", data["count"])
	}
}

func TestCartAddLines(t *testing.T) {
	svc := &stubCartService{}
	body := `{"lines":[{"merchandise_id":"variant-1","quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CartAddLines(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	data := decodeEnvelope(t, resp.Body.Bytes())
	cart, ok := data["cart"].(map[string]any)
	if !ok {
		t.Fatalf("expected cart object, got %v", data["cart"])
	}
	if cart["subtotal"] != "20.00" {
		t.Fatalf("expected subtotal 20.00, got %v", cart["subtotal"])
	}
	if data["count"] != float64(2) {
		t.Fatalf("expected count 2, got %v", data["count"])
	}
}

func TestCartAddLinesValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty lines", `{"lines":[]}`},
		{"missing merchandise", `{"lines":[{"quantity":1}]}`},
		{"zero quantity", `{"lines":[{"merchandise_id":"v1","quantity":0}]}`},
		{"unknown field", `{"lines":[{"merchandise_id":"v1","quantity":1}],"surprise":true}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCartService{}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(tc.body))
			resp := httptest.NewRecorder()
			CartAddLines(svc, nil).ServeHTTP(resp, req)

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
			}
		})
	}
}

func TestCartHandlersAlignScopeWithToken(t *testing.T) {
	svc := &stubCartService{identity: ""}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(middleware.WithIdentityClaims(req.Context(), "jane@example.com", ""))
	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.switches) != 1 || svc.switches[0] != "jane@example.com" {
		t.Fatalf("expected scope switch to token email, got %v", svc.switches)
	}

	// Matching scope: no further switches.
	again := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	again = again.WithContext(middleware.WithIdentityClaims(again.Context(), "jane@example.com", ""))
	CartFetch(svc, nil).ServeHTTP(httptest.NewRecorder(), again)
	if len(svc.switches) != 1 {
		t.Fatalf("expected no extra switch, got %v", svc.switches)
	}

	// No token: scope stays put.
	anon := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	CartFetch(svc, nil).ServeHTTP(httptest.NewRecorder(), anon)
	if svc.identity != "jane@example.com" {
		t.Fatalf("token-less request must not sign out, identity is %q", svc.identity)
	}
}

func TestCartAddLinesErrorMapping(t *testing.T) {
	svc := &stubCartService{addErr: pkgerrors.New(pkgerrors.CodeDependency, "commerce unavailable")}
	body := `{"lines":[{"merchandise_id":"variant-1","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CartAddLines(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeDependency, payload.Error.Code)
	}
}
