package shippo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northwest-community/marketplace-backend/pkg/config"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/types"
)

const (
	defaultBaseURL             = "https://api.goshippo.com"
	defaultTimeout             = 12 * time.Second
	errorBodyReadLimit   int64 = 1024
	transactionSucceeded       = "SUCCESS"
)

var errAPITokenRequired = errors.New("shippo api token is required")

// Client wraps the Shippo shipments and transactions APIs used for
// rate shopping and label purchase.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// Carrier is the surface the fulfillment workflow needs from the aggregator.
type Carrier interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentQuote, error)
	PurchaseLabel(ctx context.Context, rateID string) (*Label, error)
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Shippo base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Shippo client from configuration.
func NewClient(cfg config.ShippoConfig, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.APIToken)
	if token == "" {
		return nil, errAPITokenRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		apiToken:   token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// ShipmentRequest describes the parcel trip to be rated.
type ShipmentRequest struct {
	From types.Address
	To   types.Address
	// Parcels holds one entry per physical box.
	Parcels []types.Parcel
	// CarrierAccountIDs restricts rating to the seller's own negotiated
	// accounts when present.
	CarrierAccountIDs []string
}

// ShipmentQuote is the rated shipment returned by the aggregator.
type ShipmentQuote struct {
	ShipmentID string
	Rates      []Rate
}

// Rate is a single carrier/service quote, normalized to cents.
type Rate struct {
	RateID        string
	Carrier       string
	Service       string
	ServiceToken  string
	AmountCents   int64
	Currency      string
	EstimatedDays int
	DurationTerms string
}

// Label is a purchased shipping label.
type Label struct {
	TransactionID  string
	TrackingNumber string
	TrackingURL    string
	LabelURL       string
	RateID         string
}

type apiAddress struct {
	Name    string `json:"name,omitempty"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
}

type apiParcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

// CreateShipment submits the trip for rating and returns every quote the
// carriers produced.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentQuote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shippo client not configured")
	}
	if err := req.From.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "origin address incomplete")
	}
	if err := req.To.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "destination address incomplete")
	}
	if len(req.Parcels) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one parcel is required")
	}
	for _, parcel := range req.Parcels {
		if err := parcel.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parcel invalid")
		}
	}

	parcels := make([]apiParcel, 0, len(req.Parcels))
	for _, parcel := range req.Parcels {
		parcels = append(parcels, apiParcel{
			Length:       formatMeasure(parcel.LengthIn),
			Width:        formatMeasure(parcel.WidthIn),
			Height:       formatMeasure(parcel.HeightIn),
			DistanceUnit: "in",
			Weight:       formatMeasure(parcel.WeightOz),
			MassUnit:     "oz",
		})
	}

	payload := struct {
		AddressFrom     apiAddress  `json:"address_from"`
		AddressTo       apiAddress  `json:"address_to"`
		Parcels         []apiParcel `json:"parcels"`
		CarrierAccounts []string    `json:"carrier_accounts,omitempty"`
		Async           bool        `json:"async"`
	}{
		AddressFrom:     toAPIAddress(req.From),
		AddressTo:       toAPIAddress(req.To),
		Parcels:         parcels,
		CarrierAccounts: req.CarrierAccountIDs,
		Async:           false,
	}

	var apiResp struct {
		ObjectID string `json:"object_id"`
		Status   string `json:"status"`
		Rates    []struct {
			ObjectID     string `json:"object_id"`
			Amount       string `json:"amount"`
			Currency     string `json:"currency"`
			Provider     string `json:"provider"`
			ServiceLevel struct {
				Name  string `json:"name"`
				Token string `json:"token"`
			} `json:"servicelevel"`
			EstimatedDays int    `json:"estimated_days"`
			DurationTerms string `json:"duration_terms"`
		} `json:"rates"`
	}
	if err := c.post(ctx, "shipments", payload, &apiResp); err != nil {
		return nil, err
	}

	rates := make([]Rate, 0, len(apiResp.Rates))
	for _, r := range apiResp.Rates {
		cents, err := amountToCents(r.Amount)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse rate amount")
		}
		rates = append(rates, Rate{
			RateID:        r.ObjectID,
			Carrier:       r.Provider,
			Service:       r.ServiceLevel.Name,
			ServiceToken:  r.ServiceLevel.Token,
			AmountCents:   cents,
			Currency:      r.Currency,
			EstimatedDays: r.EstimatedDays,
			DurationTerms: r.DurationTerms,
		})
	}

	return &ShipmentQuote{ShipmentID: apiResp.ObjectID, Rates: rates}, nil
}

// PurchaseLabel buys the label for a previously quoted rate.
func (c *Client) PurchaseLabel(ctx context.Context, rateID string) (*Label, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shippo client not configured")
	}
	trimmed := strings.TrimSpace(rateID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate ID is required")
	}

	payload := struct {
		Rate          string `json:"rate"`
		LabelFileType string `json:"label_file_type"`
		Async         bool   `json:"async"`
	}{
		Rate:          trimmed,
		LabelFileType: "PDF",
		Async:         false,
	}

	var apiResp struct {
		ObjectID       string `json:"object_id"`
		Status         string `json:"status"`
		TrackingNumber string `json:"tracking_number"`
		TrackingURL    string `json:"tracking_url_provider"`
		LabelURL       string `json:"label_url"`
		Rate           string `json:"rate"`
		Messages       []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := c.post(ctx, "transactions", payload, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != transactionSucceeded {
		detail := "label purchase rejected"
		if len(apiResp.Messages) > 0 && strings.TrimSpace(apiResp.Messages[0].Text) != "" {
			detail = apiResp.Messages[0].Text
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("shippo transaction %s: %s", apiResp.Status, detail))
	}

	return &Label{
		TransactionID:  apiResp.ObjectID,
		TrackingNumber: apiResp.TrackingNumber,
		TrackingURL:    apiResp.TrackingURL,
		LabelURL:       apiResp.LabelURL,
		RateID:         apiResp.Rate,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("marshal %s request", path))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("build %s request", path))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "ShippoToken "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		wrapped := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest {
			code = pkgerrors.CodeValidation
		}
		return pkgerrors.Wrap(code, wrapped, fmt.Sprintf("%s request failed", path))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", path))
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}

func toAPIAddress(addr types.Address) apiAddress {
	out := apiAddress{
		Name:    addr.Name,
		Street1: addr.Line1,
		City:    addr.City,
		State:   addr.State,
		Zip:     addr.PostalCode,
		Country: addr.CountryOrDefault(),
	}
	if addr.Line2 != nil {
		out.Street2 = *addr.Line2
	}
	if addr.Phone != nil {
		out.Phone = *addr.Phone
	}
	return out
}

func formatMeasure(value float64) string {
	return decimal.NewFromFloat(value).String()
}

// amountToCents converts a carrier's decimal dollar string to integer cents.
func amountToCents(amount string) (int64, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return 0, errors.New("empty amount")
	}
	dec, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, err
	}
	return dec.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
