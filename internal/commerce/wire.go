package commerce

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/visionkart/storefront-backend/pkg/types"
)

// Wire structs mirror the GraphQL response shapes. They never escape this
// package; every operation decodes into domain types before returning.

type wireUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type wireCartPayload struct {
	Cart       *wireCart       `json:"cart"`
	UserErrors []wireUserError `json:"userErrors"`
}

type wireMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type wireCart struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkoutUrl"`
	Lines       struct {
		Edges []struct {
			Node wireCartLine `json:"node"`
		} `json:"edges"`
	} `json:"lines"`
}

type wireCartLine struct {
	ID         string `json:"id"`
	Quantity   int    `json:"quantity"`
	Attributes []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"attributes"`
	Merchandise struct {
		ID    string    `json:"id"`
		Price wireMoney `json:"price"`
	} `json:"merchandise"`
}

type wireOrder struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ProcessedAt string    `json:"processedAt"`
	TotalPrice  wireMoney `json:"totalPrice"`
}

type wireAddress struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

func (w *wireCart) toCart() (*Cart, error) {
	cart := &Cart{
		ID:          w.ID,
		CheckoutURL: w.CheckoutURL,
		Lines:       make([]Line, 0, len(w.Lines.Edges)),
	}
	for _, edge := range w.Lines.Edges {
		node := edge.Node
		price, err := decimal.NewFromString(node.Merchandise.Price.Amount)
		if err != nil {
			return nil, fmt.Errorf("line %s price %q: %w", node.ID, node.Merchandise.Price.Amount, err)
		}
		line := Line{
			ID:            node.ID,
			MerchandiseID: node.Merchandise.ID,
			Quantity:      node.Quantity,
			UnitPrice:     price,
		}
		for _, attr := range node.Attributes {
			line.Attributes = append(line.Attributes, types.LineAttribute{Key: attr.Key, Value: attr.Value})
		}
		cart.Lines = append(cart.Lines, line)
	}
	return cart, nil
}

func (w *wireOrder) toOrder() (Order, error) {
	total, err := decimal.NewFromString(w.TotalPrice.Amount)
	if err != nil {
		return Order{}, fmt.Errorf("order %s total %q: %w", w.ID, w.TotalPrice.Amount, err)
	}
	processedAt, err := time.Parse(time.RFC3339, w.ProcessedAt)
	if err != nil {
		return Order{}, fmt.Errorf("order %s processedAt %q: %w", w.ID, w.ProcessedAt, err)
	}
	return Order{
		ID:          w.ID,
		Name:        w.Name,
		ProcessedAt: processedAt,
		TotalPrice:  total,
	}, nil
}

func (w *wireAddress) toCustomerAddress() CustomerAddress {
	entry := CustomerAddress{
		ID: w.ID,
		Address: types.Address{
			FirstName:  w.FirstName,
			LastName:   w.LastName,
			Line1:      w.Address1,
			City:       w.City,
			Province:   w.Province,
			PostalCode: w.Zip,
			Country:    w.Country,
		},
	}
	if w.Address2 != "" {
		line2 := w.Address2
		entry.Address.Line2 = &line2
	}
	if w.Phone != "" {
		phone := w.Phone
		entry.Address.Phone = &phone
	}
	return entry
}
