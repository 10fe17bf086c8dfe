package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/api/responses"
	"github.com/northwest-community/marketplace-backend/api/validators"
	checkoutsvc "github.com/northwest-community/marketplace-backend/internal/checkout"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/types"
)

type checkoutRequest struct {
	Lines           []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod   string                `json:"payment_method" validate:"required,oneof=card cash"`
	PaymentRef      *string               `json:"payment_ref,omitempty"`
	CardSourceID    *string               `json:"card_source_id,omitempty"`
	ShippingAddress *types.Address        `json:"shipping_address,omitempty"`
	DeliveryNote    *string               `json:"delivery_note,omitempty"`
}

type checkoutLineRequest struct {
	StoreItemID     uuid.UUID `json:"store_item_id" validate:"required"`
	Qty             int       `json:"qty" validate:"required,min=1"`
	FulfillmentType string    `json:"fulfillment_type" validate:"required,oneof=ship local_delivery pickup"`
}

// Checkout submits the buyer's cart. The result carries created order ids
// alongside per-seller rejections, so a 201 can still contain rejected groups.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		lines := make([]checkoutsvc.Line, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			fulfillment, err := enums.ParseFulfillmentType(line.FulfillmentType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment type"))
				return
			}
			lines = append(lines, checkoutsvc.Line{
				StoreItemID:     line.StoreItemID,
				Qty:             line.Qty,
				FulfillmentType: fulfillment,
			})
		}

		result, err := svc.Checkout(r.Context(), checkoutsvc.CheckoutInput{
			BuyerID:         buyerID,
			Lines:           lines,
			PaymentMethod:   method,
			PaymentRef:      payload.PaymentRef,
			CardSourceID:    payload.CardSourceID,
			ShippingAddress: payload.ShippingAddress,
			DeliveryNote:    payload.DeliveryNote,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
