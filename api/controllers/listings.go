package controllers

import (
	"net/http"

	"github.com/northwest-community/marketplace-backend/api/responses"
	"github.com/northwest-community/marketplace-backend/api/validators"
	"github.com/northwest-community/marketplace-backend/internal/listings"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
)

type createListingRequest struct {
	Title                 string  `json:"title" validate:"required,min=1,max=200"`
	Description           *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceCents            int     `json:"price_cents" validate:"required,gt=0"`
	Quantity              int     `json:"quantity" validate:"required,min=1"`
	ListingType           string  `json:"listing_type" validate:"required,oneof=new resale"`
	OffersShipping        bool    `json:"offers_shipping"`
	OffersLocalDelivery   bool    `json:"offers_local_delivery"`
	OffersPickup          bool    `json:"offers_pickup"`
	ShippingFeeCents      int     `json:"shipping_fee_cents" validate:"min=0"`
	LocalDeliveryFeeCents int     `json:"local_delivery_fee_cents" validate:"min=0"`
	AcceptsOffers         bool    `json:"accepts_offers"`
	MinOfferCents         int     `json:"min_offer_cents" validate:"min=0"`
}

// ListingCreate publishes a new listing under the caller's shop.
func ListingCreate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingType, err := enums.ParseListingType(payload.ListingType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing type"))
			return
		}

		item, err := svc.Create(r.Context(), sellerID, listings.CreateListingInput{
			Title:                 payload.Title,
			Description:           payload.Description,
			PriceCents:            payload.PriceCents,
			Quantity:              payload.Quantity,
			ListingType:           listingType,
			OffersShipping:        payload.OffersShipping,
			OffersLocalDelivery:   payload.OffersLocalDelivery,
			OffersPickup:          payload.OffersPickup,
			ShippingFeeCents:      payload.ShippingFeeCents,
			LocalDeliveryFeeCents: payload.LocalDeliveryFeeCents,
			AcceptsOffers:         payload.AcceptsOffers,
			MinOfferCents:         payload.MinOfferCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

type updateListingRequest struct {
	Title                 *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description           *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceCents            *int    `json:"price_cents,omitempty" validate:"omitempty,gt=0"`
	Quantity              *int    `json:"quantity,omitempty" validate:"omitempty,min=0"`
	OffersShipping        *bool   `json:"offers_shipping,omitempty"`
	OffersLocalDelivery   *bool   `json:"offers_local_delivery,omitempty"`
	OffersPickup          *bool   `json:"offers_pickup,omitempty"`
	ShippingFeeCents      *int    `json:"shipping_fee_cents,omitempty" validate:"omitempty,min=0"`
	LocalDeliveryFeeCents *int    `json:"local_delivery_fee_cents,omitempty" validate:"omitempty,min=0"`
	AcceptsOffers         *bool   `json:"accepts_offers,omitempty"`
	MinOfferCents         *int    `json:"min_offer_cents,omitempty" validate:"omitempty,min=0"`
}

// ListingUpdate patches a listing; omitted fields are untouched.
func ListingUpdate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), sellerID, listingID, listings.UpdateListingInput{
			Title:                 payload.Title,
			Description:           payload.Description,
			PriceCents:            payload.PriceCents,
			Quantity:              payload.Quantity,
			OffersShipping:        payload.OffersShipping,
			OffersLocalDelivery:   payload.OffersLocalDelivery,
			OffersPickup:          payload.OffersPickup,
			ShippingFeeCents:      payload.ShippingFeeCents,
			LocalDeliveryFeeCents: payload.LocalDeliveryFeeCents,
			AcceptsOffers:         payload.AcceptsOffers,
			MinOfferCents:         payload.MinOfferCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ListingDetail returns one listing; no authentication gate.
func ListingDetail(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// SellerListingList returns the caller's own listings.
func SellerListingList(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
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

		list, err := svc.ListBySeller(r.Context(), sellerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
