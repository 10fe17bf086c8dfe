package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/api/responses"
	"github.com/northwest-community/marketplace-backend/api/validators"
	"github.com/northwest-community/marketplace-backend/internal/offers"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
)

type submitOfferRequest struct {
	StoreItemID uuid.UUID `json:"store_item_id" validate:"required"`
	AmountCents int       `json:"amount_cents" validate:"required,gt=0"`
	Message     *string   `json:"message,omitempty" validate:"omitempty,max=500"`
}

// OfferSubmit proposes a price on a resale listing.
func OfferSubmit(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Submit(r.Context(), buyerID, offers.SubmitInput{
			StoreItemID: payload.StoreItemID,
			AmountCents: payload.AmountCents,
			Message:     payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// OfferList returns the caller's submitted offers.
func OfferList(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForBuyer(r.Context(), buyerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SellerOfferList returns offers received on the caller's listings.
func SellerOfferList(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForSeller(r.Context(), sellerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type offerDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept decline"`
}

// SellerOfferDecision accepts or declines a pending offer. Acceptance is a
// signal to negotiate; it moves no money and holds no inventory.
func SellerOfferDecision(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offerID, err := pathUUID(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload offerDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Decide(r.Context(), sellerID, offerID, payload.Decision == "accept")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}
