package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	checkoutsvc "github.com/northwest-community/marketplace-backend/internal/checkout"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
)

type stubCheckoutService struct {
	checkout func(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error)
}

func (s *stubCheckoutService) Checkout(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error) {
	return s.checkout(ctx, input)
}

func TestCheckoutReturns201WithResult(t *testing.T) {
	buyerID := uuid.New()
	itemID := uuid.New()
	orderID := uuid.New()

	svc := &stubCheckoutService{
		checkout: func(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error) {
			if input.BuyerID != buyerID {
				t.Fatalf("buyer id = %s, want %s", input.BuyerID, buyerID)
			}
			if len(input.Lines) != 1 || input.Lines[0].StoreItemID != itemID {
				t.Fatalf("unexpected lines %+v", input.Lines)
			}
			if input.Lines[0].FulfillmentType != enums.FulfillmentTypeShip {
				t.Fatalf("fulfillment = %s", input.Lines[0].FulfillmentType)
			}
			if input.PaymentMethod != enums.PaymentMethodCard {
				t.Fatalf("payment method = %s", input.PaymentMethod)
			}
			return &checkoutsvc.CheckoutResult{OrderIDs: []uuid.UUID{orderID}, PointsAwarded: 23}, nil
		},
	}

	payload := map[string]any{
		"lines": []map[string]any{
			{"store_item_id": itemID.String(), "qty": 2, "fulfillment_type": "ship"},
		},
		"payment_method": "card",
		"payment_ref":    "sq_payment_123",
		"shipping_address": map[string]any{
			"name":        "Jordan Reyes",
			"line1":       "600 NW Naito Pkwy",
			"city":        "Portland",
			"state":       "OR",
			"postal_code": "97209",
			"country":     "US",
		},
	}
	body, _ := json.Marshal(payload)

	req := authedRequest(t, http.MethodPost, "/api/v1/checkout", body, buyerID, nil)
	res := httptest.NewRecorder()

	Checkout(svc, nil)(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", res.Code, res.Body.String())
	}

	envelope := decodeEnvelope(t, res)
	data, _ := envelope["data"].(map[string]any)
	if data["pointsAwarded"] != float64(23) {
		t.Fatalf("pointsAwarded = %v", data["pointsAwarded"])
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	svc := &stubCheckoutService{
		checkout: func(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	body := []byte(`{"lines":[{"store_item_id":"` + uuid.NewString() + `","qty":1,"fulfillment_type":"ship"}],"payment_method":"check"}`)
	req := authedRequest(t, http.MethodPost, "/api/v1/checkout", body, uuid.New(), nil)
	res := httptest.NewRecorder()

	Checkout(svc, nil)(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc := &stubCheckoutService{
		checkout: func(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	body := []byte(`{"lines":[],"payment_method":"cash"}`)
	req := authedRequest(t, http.MethodPost, "/api/v1/checkout", body, uuid.New(), nil)
	res := httptest.NewRecorder()

	Checkout(svc, nil)(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
	envelope := decodeEnvelope(t, res)
	apiErr, _ := envelope["error"].(map[string]any)
	if apiErr["code"] != string(pkgerrors.CodeValidation) {
		t.Fatalf("error code = %v", apiErr["code"])
	}
}
