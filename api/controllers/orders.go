package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/visionkart/storefront-backend/api/middleware"
	"github.com/visionkart/storefront-backend/api/responses"
	"github.com/visionkart/storefront-backend/internal/commerce"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
)

// OrderSource lists the signed-in customer's completed orders.
type OrderSource interface {
	Orders(ctx context.Context, customerToken string) ([]commerce.Order, error)
}

type orderView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ProcessedAt time.Time `json:"processed_at"`
	TotalPrice  string    `json:"total_price"`
}

// OrdersList returns the customer's order history, newest first.
func OrdersList(svc OrderSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		token := middleware.CustomerTokenFromContext(r.Context())
		orders, err := svc.Orders(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]orderView, len(orders))
		for i, order := range orders {
			views[i] = orderView{
				ID:          order.ID,
				Name:        order.Name,
				ProcessedAt: order.ProcessedAt,
				TotalPrice:  order.TotalPrice.StringFixed(2),
			}
		}
		responses.WriteSuccess(w, map[string]any{"orders": views})
	}
}
