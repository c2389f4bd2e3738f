package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/visionkart/storefront-backend/pkg/config"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/metrics"
	"github.com/visionkart/storefront-backend/pkg/types"
)

const accessTokenHeader = "X-Storefront-Access-Token"

var (
	errEndpointRequired = errors.New("commerce endpoint is required")
	errTokenRequired    = errors.New("commerce access token is required")
	errLoggerRequired   = errors.New("commerce logger is required")
)

// Client talks to the remote commerce platform's GraphQL storefront API with
// centralized auth, logging, metrics, and error mapping.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
	ordersLimit int
	staticRates []ShippingRate
	logger      *logger.Logger
	metrics     *metrics.GatewayMetrics
}

// NewClient initializes the gateway wrapper and validates its configuration.
func NewClient(cfg config.CommerceConfig, checkoutCfg config.CheckoutConfig, logg *logger.Logger, gm *metrics.GatewayMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errEndpointRequired
	}
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errTokenRequired
	}

	rates, err := checkoutCfg.ParseShippingRates()
	if err != nil {
		return nil, fmt.Errorf("parsing shipping rates: %w", err)
	}
	static := make([]ShippingRate, len(rates))
	for i, rate := range rates {
		static[i] = ShippingRate{
			Handle: rate.Handle,
			Label:  rate.Label,
			Amount: rate.Amount,
			Source: RateSourceStatic,
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ordersLimit := cfg.OrdersLimit
	if ordersLimit <= 0 {
		ordersLimit = 20
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		endpoint:    endpoint,
		accessToken: accessToken,
		ordersLimit: ordersLimit,
		staticRates: static,
		logger:      logg,
		metrics:     gm,
	}, nil
}

// CartCreate creates a remote cart with the provided lines.
func (c *Client) CartCreate(ctx context.Context, lines []LineInput) (*Cart, error) {
	variables := map[string]any{
		"input": map[string]any{"lines": encodeLineInputs(lines)},
	}
	return c.cartMutation(ctx, "cart_create", "cartCreate", cartCreateMutation, variables)
}

// CartLinesAdd appends lines to an existing remote cart.
func (c *Client) CartLinesAdd(ctx context.Context, cartID string, lines []LineInput) (*Cart, error) {
	variables := map[string]any{
		"cartId": cartID,
		"lines":  encodeLineInputs(lines),
	}
	return c.cartMutation(ctx, "cart_lines_add", "cartLinesAdd", cartLinesAddMutation, variables)
}

// CartLinesUpdate changes quantities on existing remote cart lines.
func (c *Client) CartLinesUpdate(ctx context.Context, cartID string, updates []LineUpdate) (*Cart, error) {
	encoded := make([]map[string]any, len(updates))
	for i, update := range updates {
		encoded[i] = map[string]any{"id": update.LineID, "quantity": update.Quantity}
	}
	variables := map[string]any{
		"cartId": cartID,
		"lines":  encoded,
	}
	return c.cartMutation(ctx, "cart_lines_update", "cartLinesUpdate", cartLinesUpdateMutation, variables)
}

// CartLinesRemove deletes lines from an existing remote cart.
func (c *Client) CartLinesRemove(ctx context.Context, cartID string, lineIDs []string) (*Cart, error) {
	variables := map[string]any{
		"cartId":  cartID,
		"lineIds": lineIDs,
	}
	return c.cartMutation(ctx, "cart_lines_remove", "cartLinesRemove", cartLinesRemoveMutation, variables)
}

// CartBuyerIdentityUpdate links the remote cart to the authenticated customer.
func (c *Client) CartBuyerIdentityUpdate(ctx context.Context, cartID, email, customerToken string) (*Cart, error) {
	buyerIdentity := map[string]any{"email": email}
	if customerToken != "" {
		buyerIdentity["customerAccessToken"] = customerToken
	}
	variables := map[string]any{
		"cartId":        cartID,
		"buyerIdentity": buyerIdentity,
	}
	return c.cartMutation(ctx, "cart_buyer_identity_update", "cartBuyerIdentityUpdate", cartBuyerIdentityUpdateMutation, variables)
}

// ShippingRates returns the configured static rate table. The storefront API
// has no checkout-object rate query, so these are not authoritative pricing.
func (c *Client) ShippingRates(ctx context.Context, _ types.Address) ([]ShippingRate, error) {
	c.log(ctx, "response", "shipping_rates", map[string]any{"count": len(c.staticRates), "source": RateSourceStatic})
	out := make([]ShippingRate, len(c.staticRates))
	copy(out, c.staticRates)
	return out, nil
}

// Orders lists the customer's orders, newest first.
func (c *Client) Orders(ctx context.Context, customerToken string) ([]Order, error) {
	if strings.TrimSpace(customerToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer token required")
	}

	var payload struct {
		Customer *struct {
			Orders struct {
				Edges []struct {
					Node wireOrder `json:"node"`
				} `json:"edges"`
			} `json:"orders"`
		} `json:"customer"`
	}
	variables := map[string]any{
		"customerAccessToken": customerToken,
		"first":               c.ordersLimit,
	}
	if err := c.do(ctx, "orders", customerOrdersQuery, variables, &payload); err != nil {
		return nil, err
	}
	if payload.Customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer token rejected")
	}

	orders := make([]Order, 0, len(payload.Customer.Orders.Edges))
	for _, edge := range payload.Customer.Orders.Edges {
		order, err := edge.Node.toOrder()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order")
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// Addresses lists the customer's address book.
func (c *Client) Addresses(ctx context.Context, customerToken string) ([]CustomerAddress, error) {
	if strings.TrimSpace(customerToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer token required")
	}

	var payload struct {
		Customer *struct {
			DefaultAddress *struct {
				ID string `json:"id"`
			} `json:"defaultAddress"`
			Addresses struct {
				Edges []struct {
					Node wireAddress `json:"node"`
				} `json:"edges"`
			} `json:"addresses"`
		} `json:"customer"`
	}
	variables := map[string]any{
		"customerAccessToken": customerToken,
		"first":               50,
	}
	if err := c.do(ctx, "addresses", customerAddressesQuery, variables, &payload); err != nil {
		return nil, err
	}
	if payload.Customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer token rejected")
	}

	defaultID := ""
	if payload.Customer.DefaultAddress != nil {
		defaultID = payload.Customer.DefaultAddress.ID
	}
	addresses := make([]CustomerAddress, 0, len(payload.Customer.Addresses.Edges))
	for _, edge := range payload.Customer.Addresses.Edges {
		entry := edge.Node.toCustomerAddress()
		entry.Default = entry.ID == defaultID
		addresses = append(addresses, entry)
	}
	return addresses, nil
}

// AddressCreate adds an address-book entry and returns its remote id.
func (c *Client) AddressCreate(ctx context.Context, customerToken string, address types.Address) (string, error) {
	var payload struct {
		Result struct {
			CustomerAddress *struct {
				ID string `json:"id"`
			} `json:"customerAddress"`
			CustomerUserErrors []wireUserError `json:"customerUserErrors"`
		} `json:"customerAddressCreate"`
	}
	variables := map[string]any{
		"customerAccessToken": customerToken,
		"address":             encodeMailingAddress(address),
	}
	if err := c.do(ctx, "address_create", customerAddressCreateMutation, variables, &payload); err != nil {
		return "", err
	}
	if err := userErrorsToError(payload.Result.CustomerUserErrors); err != nil {
		return "", err
	}
	if payload.Result.CustomerAddress == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "address create returned no address")
	}
	return payload.Result.CustomerAddress.ID, nil
}

// AddressUpdate rewrites an existing address-book entry.
func (c *Client) AddressUpdate(ctx context.Context, customerToken, addressID string, address types.Address) error {
	var payload struct {
		Result struct {
			CustomerUserErrors []wireUserError `json:"customerUserErrors"`
		} `json:"customerAddressUpdate"`
	}
	variables := map[string]any{
		"customerAccessToken": customerToken,
		"id":                  addressID,
		"address":             encodeMailingAddress(address),
	}
	if err := c.do(ctx, "address_update", customerAddressUpdateMutation, variables, &payload); err != nil {
		return err
	}
	return userErrorsToError(payload.Result.CustomerUserErrors)
}

// AddressDelete removes an address-book entry.
func (c *Client) AddressDelete(ctx context.Context, customerToken, addressID string) error {
	var payload struct {
		Result struct {
			CustomerUserErrors []wireUserError `json:"customerUserErrors"`
		} `json:"customerAddressDelete"`
	}
	variables := map[string]any{
		"customerAccessToken": customerToken,
		"id":                  addressID,
	}
	if err := c.do(ctx, "address_delete", customerAddressDeleteMutation, variables, &payload); err != nil {
		return err
	}
	return userErrorsToError(payload.Result.CustomerUserErrors)
}

// AddressSetDefault marks an address-book entry as the default.
func (c *Client) AddressSetDefault(ctx context.Context, customerToken, addressID string) error {
	var payload struct {
		Result struct {
			CustomerUserErrors []wireUserError `json:"customerUserErrors"`
		} `json:"customerDefaultAddressUpdate"`
	}
	variables := map[string]any{
		"customerAccessToken": customerToken,
		"addressId":           addressID,
	}
	if err := c.do(ctx, "address_set_default", customerDefaultAddressUpdateMutation, variables, &payload); err != nil {
		return err
	}
	return userErrorsToError(payload.Result.CustomerUserErrors)
}

// Ping issues a minimal query to verify the endpoint and token.
func (c *Client) Ping(ctx context.Context) error {
	var payload struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	return c.do(ctx, "ping", shopPingQuery, nil, &payload)
}

func (c *Client) cartMutation(ctx context.Context, operation, field, document string, variables map[string]any) (*Cart, error) {
	var payload map[string]wireCartPayload
	if err := c.do(ctx, operation, document, variables, &payload); err != nil {
		return nil, err
	}

	result, ok := payload[field]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("commerce %s returned no payload", operation))
	}
	if err := userErrorsToError(result.UserErrors); err != nil {
		c.log(ctx, "error", operation, map[string]any{"error": err.Error()})
		return nil, err
	}
	if result.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("commerce %s returned no cart", operation))
	}

	cart, err := result.Cart.toCart()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode cart")
	}
	c.log(ctx, "response", operation, map[string]any{
		"remote_cart_id": cart.ID,
		"line_count":     len(cart.Lines),
	})
	return cart, nil
}

func (c *Client) do(ctx context.Context, operation, document string, variables map[string]any, dest any) error {
	c.log(ctx, "request", operation, nil)
	start := time.Now()

	err := c.post(ctx, document, variables, dest)
	c.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil {
		c.metrics.IncFailure(operation)
		c.log(ctx, "error", operation, map[string]any{"error": err.Error()})
		return err
	}
	c.metrics.IncSuccess(operation)
	return nil
}

func (c *Client) post(ctx context.Context, document string, variables map[string]any, dest any) error {
	body, err := json.Marshal(map[string]any{
		"query":     document,
		"variables": variables,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commerce request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read commerce response")
	}
	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(domainCodeForStatus(resp.StatusCode), fmt.Sprintf("commerce responded %d", resp.StatusCode))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commerce response")
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, gqlErr := range envelope.Errors {
			messages[i] = gqlErr.Message
		}
		return pkgerrors.New(pkgerrors.CodeDependency, strings.Join(messages, "; "))
	}
	if dest != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commerce payload")
		}
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("commerce %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("commerce %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "email", "phone", "secret"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// userErrorsToError folds remote validation errors into one user-facing
// message, preserving per-field detail.
func userErrorsToError(userErrors []wireUserError) error {
	if len(userErrors) == 0 {
		return nil
	}
	messages := make([]string, len(userErrors))
	details := make(map[string]string, len(userErrors))
	for i, ue := range userErrors {
		messages[i] = ue.Message
		details[strings.Join(ue.Field, ".")] = ue.Message
	}
	return pkgerrors.New(pkgerrors.CodeValidation, strings.Join(messages, "; ")).WithDetails(details)
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func encodeLineInputs(lines []LineInput) []map[string]any {
	encoded := make([]map[string]any, len(lines))
	for i, line := range lines {
		entry := map[string]any{
			"merchandiseId": line.MerchandiseID,
			"quantity":      line.Quantity,
		}
		if len(line.Attributes) > 0 {
			attrs := make([]map[string]string, len(line.Attributes))
			for j, attr := range line.Attributes {
				attrs[j] = map[string]string{"key": attr.Key, "value": attr.Value}
			}
			entry["attributes"] = attrs
		}
		encoded[i] = entry
	}
	return encoded
}

func encodeMailingAddress(address types.Address) map[string]any {
	addr := address.Normalized()
	encoded := map[string]any{
		"firstName": addr.FirstName,
		"lastName":  addr.LastName,
		"address1":  addr.Line1,
		"city":      addr.City,
		"province":  addr.Province,
		"zip":       addr.PostalCode,
		"country":   addr.Country,
	}
	if addr.Line2 != nil && *addr.Line2 != "" {
		encoded["address2"] = *addr.Line2
	}
	if addr.Phone != nil && *addr.Phone != "" {
		encoded["phone"] = *addr.Phone
	}
	return encoded
}
