package controllers

import (
	"net/http"

	"github.com/visionkart/storefront-backend/api/middleware"
	"github.com/visionkart/storefront-backend/api/responses"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
)

type identityView struct {
	Identity  string `json:"identity"`
	Anonymous bool   `json:"anonymous"`
}

func newIdentityView(identity string) identityView {
	if identity == "" {
		return identityView{Identity: "anonymous", Anonymous: true}
	}
	return identityView{Identity: identity}
}

// IdentityFetch reports the active cart scope.
func IdentityFetch(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		responses.WriteSuccess(w, newIdentityView(svc.Identity()))
	}
}

// IdentitySignIn switches the cart scope to the verified token's email. On
// the first sign-in the anonymous cart is migrated into the identity scope.
func IdentitySignIn(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		email := middleware.EmailFromContext(r.Context())
		if email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign-in required"))
			return
		}

		if err := svc.SetActiveIdentity(r.Context(), email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIdentityView(svc.Identity()))
	}
}

// IdentitySignOut returns the cart scope to anonymous and drops the outgoing
// identity's persisted cart from this device.
func IdentitySignOut(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if err := svc.SetActiveIdentity(r.Context(), ""); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIdentityView(svc.Identity()))
	}
}
