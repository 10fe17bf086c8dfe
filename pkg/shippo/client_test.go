package shippo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/northwest-community/marketplace-backend/pkg/config"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/types"
)

func testAddresses() (types.Address, types.Address) {
	from := types.Address{
		Name:       "Pike Place Vintage",
		Line1:      "85 Pike St",
		City:       "Seattle",
		State:      "WA",
		PostalCode: "98101",
	}
	to := types.Address{
		Name:       "Jordan Reyes",
		Line1:      "700 NE Multnomah St",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97232",
	}
	return from, to
}

func TestCreateShipmentParsesRates(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shipments" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object_id": "ship_1",
			"status": "SUCCESS",
			"rates": [
				{
					"object_id": "rate_1",
					"amount": "8.50",
					"currency": "USD",
					"provider": "USPS",
					"servicelevel": {"name": "Priority Mail", "token": "usps_priority"},
					"estimated_days": 2
				},
				{
					"object_id": "rate_2",
					"amount": "24.99",
					"currency": "USD",
					"provider": "UPS",
					"servicelevel": {"name": "Ground", "token": "ups_ground"},
					"estimated_days": 4
				}
			]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(config.ShippoConfig{APIToken: "shippo_test_token"}, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	from, to := testAddresses()
	quote, err := client.CreateShipment(context.Background(), ShipmentRequest{
		From:              from,
		To:                to,
		Parcels:           []types.Parcel{{WeightOz: 16, LengthIn: 10, WidthIn: 8, HeightIn: 4}},
		CarrierAccountIDs: []string{"ca_seller_ups"},
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	if gotAuth != "ShippoToken shippo_test_token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["async"] != false {
		t.Fatal("expected synchronous rating")
	}
	accounts, _ := gotBody["carrier_accounts"].([]any)
	if len(accounts) != 1 || accounts[0] != "ca_seller_ups" {
		t.Fatalf("carrier accounts not forwarded: %v", gotBody["carrier_accounts"])
	}

	if quote.ShipmentID != "ship_1" {
		t.Fatalf("unexpected shipment id %q", quote.ShipmentID)
	}
	if len(quote.Rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(quote.Rates))
	}
	if quote.Rates[0].AmountCents != 850 {
		t.Fatalf("expected 850 cents, got %d", quote.Rates[0].AmountCents)
	}
	if quote.Rates[1].AmountCents != 2499 {
		t.Fatalf("expected 2499 cents, got %d", quote.Rates[1].AmountCents)
	}
	if quote.Rates[0].Carrier != "USPS" || quote.Rates[0].Service != "Priority Mail" {
		t.Fatalf("rate fields not mapped: %+v", quote.Rates[0])
	}
}

func TestCreateShipmentValidatesInput(t *testing.T) {
	client, err := NewClient(config.ShippoConfig{APIToken: "tok"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	from, to := testAddresses()
	_, err = client.CreateShipment(context.Background(), ShipmentRequest{From: from, To: to})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing parcels, got %v", err)
	}

	badFrom := from
	badFrom.PostalCode = ""
	_, err = client.CreateShipment(context.Background(), ShipmentRequest{
		From:    badFrom,
		To:      to,
		Parcels: []types.Parcel{{WeightOz: 1, LengthIn: 1, WidthIn: 1, HeightIn: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad address, got %v", err)
	}
}

func TestPurchaseLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["rate"] != "rate_1" {
			t.Fatalf("unexpected rate %v", body["rate"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object_id": "txn_1",
			"status": "SUCCESS",
			"tracking_number": "9400100000000000000000",
			"tracking_url_provider": "https://tools.usps.com/track",
			"label_url": "https://labels.example.com/txn_1.pdf",
			"rate": "rate_1"
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(config.ShippoConfig{APIToken: "tok"}, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	label, err := client.PurchaseLabel(context.Background(), "rate_1")
	if err != nil {
		t.Fatalf("purchase label: %v", err)
	}
	if label.TrackingNumber != "9400100000000000000000" {
		t.Fatalf("unexpected tracking number %q", label.TrackingNumber)
	}
	if label.LabelURL == "" || label.TransactionID != "txn_1" {
		t.Fatalf("label fields not mapped: %+v", label)
	}
}

func TestPurchaseLabelCarrierRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object_id": "txn_2",
			"status": "ERROR",
			"messages": [{"text": "carrier account not authorized"}]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(config.ShippoConfig{APIToken: "tok"}, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.PurchaseLabel(context.Background(), "rate_1")
	if err == nil {
		t.Fatal("expected error for rejected transaction")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestAmountToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0.01", 1},
		{"8.50", 850},
		{"24.999", 2500},
		{"100", 10000},
	}
	for _, tc := range cases {
		got, err := amountToCents(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.in, tc.want, got)
		}
	}
	if _, err := amountToCents(""); err == nil {
		t.Fatal("expected error for empty amount")
	}
}
