package controllers

import (
	"context"
	"net/http"

	"github.com/visionkart/storefront-backend/api/middleware"
	"github.com/visionkart/storefront-backend/api/responses"
	"github.com/visionkart/storefront-backend/internal/reconcile"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
)

// Reconciler runs one order-completion reconciliation attempt.
type Reconciler interface {
	OnForeground(ctx context.Context, customerToken string) (*reconcile.Result, error)
}

// AppForeground is the mobile app's "I came back to the foreground" signal.
// It aligns the cart scope with the request's token and, when a payment is
// outstanding, asks reconciliation whether it produced an order.
func AppForeground(svc Reconciler, carts CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}
		if err := ensureScope(r, carts); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token := middleware.CustomerTokenFromContext(r.Context())
		result, err := svc.OnForeground(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
