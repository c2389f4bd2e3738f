package commerce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionkart/storefront-backend/pkg/config"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "commerce-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})
}

func testAddress() types.Address {
	return types.Address{
		FirstName:  "Jane",
		LastName:   "Doe",
		Line1:      "1 Main St",
		City:       "Springfield",
		Province:   "IL",
		PostalCode: "62701",
		Country:    "US",
	}
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		ShippingRates: "standard=Standard Shipping=4.90,express=Express Shipping=12.90",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.CommerceConfig{
		Endpoint:    server.URL,
		AccessToken: "test-token",
	}, testCheckoutConfig(), testLogger(), nil)
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.CommerceConfig{AccessToken: "token"}, testCheckoutConfig(), testLogger(), nil)
	assert.ErrorIs(t, err, errEndpointRequired)

	_, err = NewClient(config.CommerceConfig{Endpoint: "https://shop.example/graphql"}, testCheckoutConfig(), testLogger(), nil)
	assert.ErrorIs(t, err, errTokenRequired)

	_, err = NewClient(config.CommerceConfig{Endpoint: "https://shop.example/graphql", AccessToken: "token"}, testCheckoutConfig(), nil, nil)
	assert.ErrorIs(t, err, errLoggerRequired)
}

func TestCartCreate_DecodesCanonicalCart(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get(accessTokenHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Query, "cartCreate")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"cartCreate":{"cart":{
			"id":"gid://commerce/Cart/abc",
			"checkoutUrl":"https://shop.example/checkouts/abc",
			"lines":{"edges":[{"node":{
				"id":"line-1","quantity":2,
				"attributes":[{"key":"lens","value":"blue-light"}],
				"merchandise":{"id":"gid://commerce/ProductVariant/1","price":{"amount":"10.00","currencyCode":"USD"}}
			}}]}
		},"userErrors":[]}}}`))
	})

	cart, err := client.CartCreate(context.Background(), []LineInput{
		{MerchandiseID: "gid://commerce/ProductVariant/1", Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, "gid://commerce/Cart/abc", cart.ID)
	assert.Equal(t, "https://shop.example/checkouts/abc", cart.CheckoutURL)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	lens, ok := cart.Lines[0].Attributes.Get("lens")
	require.True(t, ok)
	assert.Equal(t, "blue-light", lens)
	assert.Equal(t, "20", cart.Subtotal().String())
}

func TestCartLinesAdd_UserErrorsBecomeValidation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"cartLinesAdd":{"cart":null,"userErrors":[
			{"field":["lines","0","quantity"],"message":"quantity must be positive"}
		]}}}`))
	})

	_, err := client.CartLinesAdd(context.Background(), "cart-1", []LineInput{
		{MerchandiseID: "variant-1", Quantity: -1},
	})
	require.Error(t, err)

	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
	assert.Contains(t, err.Error(), "quantity must be positive")
}

func TestDo_HTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		want   pkgerrors.Code
	}{
		{"unauthorized", http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"not found", http.StatusNotFound, pkgerrors.CodeNotFound},
		{"bad request", http.StatusBadRequest, pkgerrors.CodeValidation},
		{"server error", http.StatusInternalServerError, pkgerrors.CodeDependency},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			err := client.Ping(context.Background())
			var domainErr *pkgerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tc.want, domainErr.Code())
		})
	}
}

func TestDo_GraphQLErrorsBecomeDependency(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"throttled"},{"message":"try again"}]}`))
	})

	err := client.Ping(context.Background())
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeDependency, domainErr.Code())
	assert.Contains(t, err.Error(), "throttled; try again")
}

func TestOrders(t *testing.T) {
	t.Parallel()

	t.Run("decodes newest-first order list", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"customer":{"orders":{"edges":[
				{"node":{"id":"order-2","name":"#1002","processedAt":"2026-08-20T12:00:00Z","totalPrice":{"amount":"54.90","currencyCode":"USD"}}},
				{"node":{"id":"order-1","name":"#1001","processedAt":"2026-08-01T09:30:00Z","totalPrice":{"amount":"19.00","currencyCode":"USD"}}}
			]}}}}`))
		})

		orders, err := client.Orders(context.Background(), "customer-token")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "#1002", orders[0].Name)
		assert.Equal(t, "54.9", orders[0].TotalPrice.String())
		assert.True(t, orders[0].ProcessedAt.After(orders[1].ProcessedAt))
	})

	t.Run("rejected token surfaces as unauthorized", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"customer":null}}`))
		})

		_, err := client.Orders(context.Background(), "expired-token")
		var domainErr *pkgerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, pkgerrors.CodeUnauthorized, domainErr.Code())
	})

	t.Run("empty token short-circuits", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		_, err := client.Orders(context.Background(), "  ")
		var domainErr *pkgerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, pkgerrors.CodeUnauthorized, domainErr.Code())
	})
}

func TestAddresses_MarksDefault(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"customer":{
			"defaultAddress":{"id":"addr-2"},
			"addresses":{"edges":[
				{"node":{"id":"addr-1","firstName":"Jane","lastName":"Doe","address1":"1 Main St","city":"Springfield","province":"IL","zip":"62701","country":"US"}},
				{"node":{"id":"addr-2","firstName":"Jane","lastName":"Doe","address1":"2 Oak Ave","address2":"Unit 4","city":"Springfield","province":"IL","zip":"62702","country":"US","phone":"+13125550100"}}
			]}
		}}}`))
	})

	addresses, err := client.Addresses(context.Background(), "customer-token")
	require.NoError(t, err)
	require.Len(t, addresses, 2)

	assert.False(t, addresses[0].Default)
	assert.True(t, addresses[1].Default)
	require.NotNil(t, addresses[1].Address.Line2)
	assert.Equal(t, "Unit 4", *addresses[1].Address.Line2)
}

func TestShippingRates_StaticTable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("static rates must not hit the remote API")
	})

	rates, err := client.ShippingRates(context.Background(), testAddress())
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, "standard", rates[0].Handle)
	assert.Equal(t, "4.9", rates[0].Amount.String())
	for _, rate := range rates {
		assert.Equal(t, RateSourceStatic, rate.Source)
	}

	// Mutating the returned slice must not touch the client's table.
	rates[0].Handle = "mutated"
	again, err := client.ShippingRates(context.Background(), testAddress())
	require.NoError(t, err)
	assert.Equal(t, "standard", again[0].Handle)
}
