package controllers

import (
	"net/http"

	"github.com/northwest-community/marketplace-backend/api/responses"
	"github.com/northwest-community/marketplace-backend/api/validators"
	"github.com/northwest-community/marketplace-backend/internal/ledger"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/pagination"
)

// SellerBalanceDetail returns the caller's balance snapshot. Sellers with no
// ledger activity yet get a zeroed balance rather than a 404.
func SellerBalanceDetail(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// SellerBalanceTransactions lists ledger entries, newest first.
func SellerBalanceTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
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

		page, err := svc.Transactions(r.Context(), sellerID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type payoutRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// SellerPayoutCreate withdraws available balance.
func SellerPayoutCreate(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload payoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.RecordPayout(r.Context(), sellerID, payload.AmountCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}
