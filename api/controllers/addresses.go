package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/visionkart/storefront-backend/api/middleware"
	"github.com/visionkart/storefront-backend/api/responses"
	"github.com/visionkart/storefront-backend/api/validators"
	"github.com/visionkart/storefront-backend/internal/commerce"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/types"
)

// AddressBook is the slice of the commerce gateway backing the customer's
// saved addresses.
type AddressBook interface {
	Addresses(ctx context.Context, customerToken string) ([]commerce.CustomerAddress, error)
	AddressCreate(ctx context.Context, customerToken string, address types.Address) (string, error)
	AddressUpdate(ctx context.Context, customerToken, addressID string, address types.Address) error
	AddressDelete(ctx context.Context, customerToken, addressID string) error
	AddressSetDefault(ctx context.Context, customerToken, addressID string) error
}

type addressEntryView struct {
	ID      string        `json:"id"`
	Address types.Address `json:"address"`
	Default bool          `json:"default"`
}

// AddressesList returns the customer's address book.
func AddressesList(svc AddressBook, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		token := middleware.CustomerTokenFromContext(r.Context())
		entries, err := svc.Addresses(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]addressEntryView, len(entries))
		for i, entry := range entries {
			views[i] = addressEntryView{ID: entry.ID, Address: entry.Address, Default: entry.Default}
		}
		responses.WriteSuccess(w, map[string]any{"addresses": views})
	}
}

// AddressCreate adds an address-book entry.
func AddressCreate(svc AddressBook, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		var payload addressPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token := middleware.CustomerTokenFromContext(r.Context())
		id, err := svc.AddressCreate(r.Context(), token, payload.toAddress())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"id": id})
	}
}

// AddressUpdate rewrites an address-book entry.
func AddressUpdate(svc AddressBook, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		addressID := chi.URLParam(r, "addressID")
		if addressID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "address id is required"))
			return
		}

		var payload addressPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token := middleware.CustomerTokenFromContext(r.Context())
		if err := svc.AddressUpdate(r.Context(), token, addressID, payload.toAddress()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": addressID})
	}
}

// AddressDelete removes an address-book entry.
func AddressDelete(svc AddressBook, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		addressID := chi.URLParam(r, "addressID")
		if addressID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "address id is required"))
			return
		}

		token := middleware.CustomerTokenFromContext(r.Context())
		if err := svc.AddressDelete(r.Context(), token, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AddressSetDefault marks an address-book entry as the default.
func AddressSetDefault(svc AddressBook, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		addressID := chi.URLParam(r, "addressID")
		if addressID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "address id is required"))
			return
		}

		token := middleware.CustomerTokenFromContext(r.Context())
		if err := svc.AddressSetDefault(r.Context(), token, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": addressID})
	}
}
