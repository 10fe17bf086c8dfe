package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/api/responses"
	"github.com/northwest-community/marketplace-backend/api/validators"
	"github.com/northwest-community/marketplace-backend/internal/shipping"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/types"
)

type rateRequest struct {
	OrderIDs []uuid.UUID  `json:"order_ids" validate:"required,min=1"`
	Parcel   types.Parcel `json:"parcel" validate:"required"`
}

// ShippingRates quotes the measured parcel plus flat-rate alternatives for a
// set of co-shipped orders.
func ShippingRates(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload rateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rates, err := svc.GetRates(r.Context(), sellerID, shipping.RateInput{
			OrderIDs: payload.OrderIDs,
			Parcel:   payload.Parcel,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rates)
	}
}

type labelRequest struct {
	OrderIDs  []uuid.UUID  `json:"order_ids" validate:"required,min=1"`
	RateID    string       `json:"rate_id" validate:"required"`
	Carrier   string       `json:"carrier" validate:"required"`
	Service   string       `json:"service" validate:"required"`
	RateCents int          `json:"rate_cents" validate:"required,gt=0"`
	Parcel    types.Parcel `json:"parcel" validate:"required"`
}

// ShippingLabelPurchase buys the chosen rate and marks every covered order
// shipped.
func ShippingLabelPurchase(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload labelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.BuyLabel(r.Context(), sellerID, shipping.BuyLabelInput{
			OrderIDs:  payload.OrderIDs,
			RateID:    payload.RateID,
			Carrier:   payload.Carrier,
			Service:   payload.Service,
			RateCents: payload.RateCents,
			Parcel:    payload.Parcel,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}
