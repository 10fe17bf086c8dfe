package shipping

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/internal/members"
	"github.com/northwest-community/marketplace-backend/internal/orders"
	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/outbox"
	"github.com/northwest-community/marketplace-backend/pkg/shippo"
	"github.com/northwest-community/marketplace-backend/pkg/types"
)

type memOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newMemOrdersRepo() *memOrdersRepo {
	return &memOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (m *memOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return m }

func (m *memOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *memOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memOrdersRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, id := range ids {
		if order, ok := m.orders[id]; ok {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Order, error) {
	return nil, nil
}

func (m *memOrdersRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Order, error) {
	return nil, nil
}

func (m *memOrdersRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, patch map[string]any) (bool, error) {
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	if primary, ok := patch["shipped_with_order_id"].(uuid.UUID); ok {
		order.ShippedWithOrderID = &primary
	}
	return true, nil
}

type memMembersRepo struct {
	profiles map[uuid.UUID]*models.SellerProfile
}

func newMemMembersRepo() *memMembersRepo {
	return &memMembersRepo{profiles: make(map[uuid.UUID]*models.SellerProfile)}
}

func (m *memMembersRepo) WithTx(tx *gorm.DB) members.Repository { return m }

func (m *memMembersRepo) FindMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memMembersRepo) FindSellerProfile(ctx context.Context, memberID uuid.UUID) (*models.SellerProfile, error) {
	profile, ok := m.profiles[memberID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

func (m *memMembersRepo) AddPoints(ctx context.Context, memberID uuid.UUID, delta int) (bool, error) {
	return true, nil
}

type memShipmentsRepo struct {
	shipments map[uuid.UUID]*models.Shipment
}

func newMemShipmentsRepo() *memShipmentsRepo {
	return &memShipmentsRepo{shipments: make(map[uuid.UUID]*models.Shipment)}
}

func (m *memShipmentsRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memShipmentsRepo) Create(ctx context.Context, shipment *models.Shipment) error {
	m.shipments[shipment.OrderID] = shipment
	return nil
}

func (m *memShipmentsRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	shipment, ok := m.shipments[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return shipment, nil
}

func (m *memShipmentsRepo) ExistsForOrders(ctx context.Context, orderIDs []uuid.UUID) (bool, error) {
	for _, id := range orderIDs {
		if _, ok := m.shipments[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

type fakeCarrier struct {
	measuredRates []shippo.Rate
	flatRates     []shippo.Rate
	measuredErr   error
	flatErr       error
	label         *shippo.Label
	labelErr      error
	requests      []shippo.ShipmentRequest
	purchased     []string
}

func (f *fakeCarrier) CreateShipment(ctx context.Context, req shippo.ShipmentRequest) (*shippo.ShipmentQuote, error) {
	f.requests = append(f.requests, req)
	// The single-parcel request is the measured box; multi-parcel requests
	// are the flat-rate presets.
	if len(req.Parcels) == 1 {
		if f.measuredErr != nil {
			return nil, f.measuredErr
		}
		return &shippo.ShipmentQuote{ShipmentID: "shp_measured", Rates: f.measuredRates}, nil
	}
	if f.flatErr != nil {
		return nil, f.flatErr
	}
	return &shippo.ShipmentQuote{ShipmentID: "shp_flat", Rates: f.flatRates}, nil
}

func (f *fakeCarrier) PurchaseLabel(ctx context.Context, rateID string) (*shippo.Label, error) {
	if f.labelErr != nil {
		return nil, f.labelErr
	}
	f.purchased = append(f.purchased, rateID)
	if f.label != nil {
		return f.label, nil
	}
	return &shippo.Label{TransactionID: "txn_1", TrackingNumber: "9400100000000000000001", TrackingURL: "https://tools.usps.com/track", LabelURL: "https://labels.test/1.pdf", RateID: rateID}, nil
}

type passRunner struct{}

func (passRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type shippingFixture struct {
	svc       Service
	orders    *memOrdersRepo
	members   *memMembersRepo
	shipments *memShipmentsRepo
	carrier   *fakeCarrier
	emitter   *recordingEmitter
	sellerID  uuid.UUID
	buyerID   uuid.UUID
}

func newShippingFixture(t *testing.T) *shippingFixture {
	t.Helper()

	fx := &shippingFixture{
		orders:    newMemOrdersRepo(),
		members:   newMemMembersRepo(),
		shipments: newMemShipmentsRepo(),
		carrier:   &fakeCarrier{},
		emitter:   &recordingEmitter{},
		sellerID:  uuid.New(),
		buyerID:   uuid.New(),
	}

	carrierAccount := "ca_112233"
	fx.members.profiles[fx.sellerID] = &models.SellerProfile{
		MemberID:         fx.sellerID,
		CarrierAccountID: &carrierAccount,
		OriginAddress: &types.Address{
			Name: "Workshop", Line1: "400 NW Couch St", City: "Portland",
			State: "OR", PostalCode: "97209", Country: "US",
		},
	}

	logg := logger.New(logger.Options{ServiceName: "shipping-test", Output: io.Discard})
	svc, err := NewService(fx.shipments, fx.orders, fx.members, fx.carrier, fx.emitter, passRunner{}, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fx.svc = svc
	return fx
}

func (fx *shippingFixture) seedPaidOrder() *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       fx.buyerID,
		SellerID:      fx.sellerID,
		Status:        enums.OrderStatusPaid,
		PaymentMethod: enums.PaymentMethodCard,
		SubtotalCents: 2000,
		TotalCents:    2000,
		ShippingAddress: &types.Address{
			Name: "Avery", Line1: "1200 SE Division St", City: "Portland",
			State: "OR", PostalCode: "97202", Country: "US",
		},
	}
	fx.orders.orders[order.ID] = order
	return order
}

func measuredParcel() types.Parcel {
	return types.Parcel{WeightOz: 24, LengthIn: 10, WidthIn: 8, HeightIn: 4}
}

func TestGetRatesMergesAndDedupes(t *testing.T) {
	fx := newShippingFixture(t)
	order := fx.seedPaidOrder()

	fx.carrier.measuredRates = []shippo.Rate{
		{RateID: "rate_m1", Carrier: "USPS", Service: "Priority", AmountCents: 850},
		{RateID: "rate_m2", Carrier: "UPS", Service: "Ground", AmountCents: 1100},
	}
	fx.carrier.flatRates = []shippo.Rate{
		// Duplicate (carrier, service): the measured rate seen first wins.
		{RateID: "rate_f1", Carrier: "USPS", Service: "Priority", AmountCents: 975},
		{RateID: "rate_f2", Carrier: "USPS", Service: "Priority Flat Rate", AmountCents: 1015},
	}

	rates, err := fx.svc.GetRates(context.Background(), fx.sellerID, RateInput{
		OrderIDs: []uuid.UUID{order.ID},
		Parcel:   measuredParcel(),
	})
	if err != nil {
		t.Fatalf("GetRates: %v", err)
	}
	if len(rates) != 3 {
		t.Fatalf("expected 3 merged rates, got %d", len(rates))
	}
	for _, rate := range rates {
		if rate.Carrier == "USPS" && rate.Service == "Priority" && rate.RateID != "rate_m1" {
			t.Fatalf("expected the first-seen rate to win, got %+v", rate)
		}
	}

	if len(fx.carrier.requests) != 2 {
		t.Fatalf("expected measured and flat-rate quote requests, got %d", len(fx.carrier.requests))
	}
	for _, req := range fx.carrier.requests {
		if len(req.CarrierAccountIDs) != 1 || req.CarrierAccountIDs[0] != "ca_112233" {
			t.Fatalf("expected seller carrier account forwarded, got %+v", req.CarrierAccountIDs)
		}
	}
}

func TestGetRatesToleratesOneProviderFailure(t *testing.T) {
	fx := newShippingFixture(t)
	order := fx.seedPaidOrder()

	fx.carrier.measuredErr = pkgerrors.New(pkgerrors.CodeDependency, "timeout")
	fx.carrier.flatRates = []shippo.Rate{
		{RateID: "rate_f1", Carrier: "USPS", Service: "Priority Flat Rate", AmountCents: 1015},
	}

	rates, err := fx.svc.GetRates(context.Background(), fx.sellerID, RateInput{
		OrderIDs: []uuid.UUID{order.ID},
		Parcel:   measuredParcel(),
	})
	if err != nil {
		t.Fatalf("GetRates: %v", err)
	}
	if len(rates) != 1 || rates[0].RateID != "rate_f1" {
		t.Fatalf("expected the surviving rate set, got %+v", rates)
	}
}

func TestGetRatesFailsWhenAllProvidersFail(t *testing.T) {
	fx := newShippingFixture(t)
	order := fx.seedPaidOrder()

	fx.carrier.measuredErr = pkgerrors.New(pkgerrors.CodeDependency, "timeout")
	fx.carrier.flatErr = pkgerrors.New(pkgerrors.CodeDependency, "unavailable")

	_, err := fx.svc.GetRates(context.Background(), fx.sellerID, RateInput{
		OrderIDs: []uuid.UUID{order.ID},
		Parcel:   measuredParcel(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
}

func TestGetRatesValidatesOrderSet(t *testing.T) {
	fx := newShippingFixture(t)
	mine := fx.seedPaidOrder()

	otherSellers := fx.seedPaidOrder()
	otherSellers.SellerID = uuid.New()

	otherBuyers := fx.seedPaidOrder()
	otherBuyers.BuyerID = uuid.New()

	shipped := fx.seedPaidOrder()
	shipped.Status = enums.OrderStatusShipped

	cases := []struct {
		name string
		ids  []uuid.UUID
		code pkgerrors.Code
	}{
		{"unknown order", []uuid.UUID{uuid.New()}, pkgerrors.CodeNotFound},
		{"another seller's order", []uuid.UUID{otherSellers.ID}, pkgerrors.CodeForbidden},
		{"mixed buyers", []uuid.UUID{mine.ID, otherBuyers.ID}, pkgerrors.CodeValidation},
		{"already shipped", []uuid.UUID{shipped.ID}, pkgerrors.CodeStateConflict},
		{"duplicate ids", []uuid.UUID{mine.ID, mine.ID}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.GetRates(context.Background(), fx.sellerID, RateInput{
				OrderIDs: tc.ids,
				Parcel:   measuredParcel(),
			})
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestGetRatesRequiresCarrierAccount(t *testing.T) {
	fx := newShippingFixture(t)
	order := fx.seedPaidOrder()
	fx.members.profiles[fx.sellerID].CarrierAccountID = nil

	_, err := fx.svc.GetRates(context.Background(), fx.sellerID, RateInput{
		OrderIDs: []uuid.UUID{order.ID},
		Parcel:   measuredParcel(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestBuyLabelShipsAllOrders(t *testing.T) {
	fx := newShippingFixture(t)
	primary := fx.seedPaidOrder()
	secondary := fx.seedPaidOrder()

	shipment, err := fx.svc.BuyLabel(context.Background(), fx.sellerID, BuyLabelInput{
		OrderIDs:  []uuid.UUID{primary.ID, secondary.ID},
		RateID:    "rate_m1",
		Carrier:   "USPS",
		Service:   "Priority",
		RateCents: 850,
		Parcel:    measuredParcel(),
	})
	if err != nil {
		t.Fatalf("BuyLabel: %v", err)
	}
	if shipment.OrderID != primary.ID {
		t.Fatalf("expected shipment on the primary order, got %s", shipment.OrderID)
	}
	if shipment.TrackingNumber == "" || shipment.LabelURL == "" {
		t.Fatalf("expected label details, got %+v", shipment)
	}
	if shipment.RateCents != 850 {
		t.Fatalf("expected rate recorded, got %d", shipment.RateCents)
	}

	if fx.orders.orders[primary.ID].Status != enums.OrderStatusShipped {
		t.Fatal("expected primary order shipped")
	}
	if fx.orders.orders[secondary.ID].Status != enums.OrderStatusShipped {
		t.Fatal("expected secondary order shipped")
	}
	if fx.orders.orders[primary.ID].ShippedWithOrderID != nil {
		t.Fatal("primary order must not point at itself")
	}
	got := fx.orders.orders[secondary.ID].ShippedWithOrderID
	if got == nil || *got != primary.ID {
		t.Fatalf("expected secondary linked to primary, got %v", got)
	}

	// One order_shipped per order plus one tracking event.
	if len(fx.emitter.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(fx.emitter.events))
	}
}

func TestBuyLabelRejectsExistingShipment(t *testing.T) {
	fx := newShippingFixture(t)
	order := fx.seedPaidOrder()
	fx.shipments.shipments[order.ID] = &models.Shipment{ID: uuid.New(), OrderID: order.ID}

	_, err := fx.svc.BuyLabel(context.Background(), fx.sellerID, BuyLabelInput{
		OrderIDs: []uuid.UUID{order.ID},
		RateID:   "rate_m1",
		Parcel:   measuredParcel(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if len(fx.carrier.purchased) != 0 {
		t.Fatal("must not purchase a label for an already shipped order")
	}
}

func TestBuyLabelPurchaseFailureLeavesOrdersPaid(t *testing.T) {
	fx := newShippingFixture(t)
	order := fx.seedPaidOrder()
	fx.carrier.labelErr = pkgerrors.New(pkgerrors.CodeDependency, "carrier rejected the purchase")

	_, err := fx.svc.BuyLabel(context.Background(), fx.sellerID, BuyLabelInput{
		OrderIDs: []uuid.UUID{order.ID},
		RateID:   "rate_m1",
		Parcel:   measuredParcel(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
	if fx.orders.orders[order.ID].Status != enums.OrderStatusPaid {
		t.Fatal("expected order untouched after failed purchase")
	}
	if len(fx.shipments.shipments) != 0 {
		t.Fatal("expected no shipment row after failed purchase")
	}
}
