package shipping

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/internal/members"
	"github.com/northwest-community/marketplace-backend/internal/orders"
	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/outbox"
	"github.com/northwest-community/marketplace-backend/pkg/outbox/payloads"
	"github.com/northwest-community/marketplace-backend/pkg/shippo"
	"github.com/northwest-community/marketplace-backend/pkg/types"
)

// flatRateParcels are the carrier flat-rate boxes quoted alongside the
// seller's measured parcel. Dimensions follow the USPS flat-rate lineup.
var flatRateParcels = []types.Parcel{
	{WeightOz: 16, LengthIn: 8.69, WidthIn: 5.44, HeightIn: 1.75},
	{WeightOz: 16, LengthIn: 11, WidthIn: 8.5, HeightIn: 5.5},
	{WeightOz: 16, LengthIn: 12.25, WidthIn: 12.25, HeightIn: 6},
}

// Service rates and labels seller shipments. Several of one buyer's paid
// orders can ride in a single box.
type Service interface {
	GetRates(ctx context.Context, sellerID uuid.UUID, input RateInput) ([]shippo.Rate, error)
	BuyLabel(ctx context.Context, sellerID uuid.UUID, input BuyLabelInput) (*models.Shipment, error)
}

// RateInput identifies the orders to co-ship and the measured box.
type RateInput struct {
	OrderIDs []uuid.UUID
	Parcel   types.Parcel
}

// BuyLabelInput purchases a previously quoted rate.
type BuyLabelInput struct {
	OrderIDs  []uuid.UUID
	RateID    string
	Carrier   string
	Service   string
	RateCents int
	Parcel    types.Parcel
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	shipments Repository
	orders    orders.Repository
	members   members.Repository
	carrier   shippo.Carrier
	events    eventEmitter
	runner    txRunner
	logg      *logger.Logger
}

// NewService wires the fulfillment coordinator.
func NewService(
	shipments Repository,
	ordersRepo orders.Repository,
	membersRepo members.Repository,
	carrier shippo.Carrier,
	events eventEmitter,
	runner txRunner,
	logg *logger.Logger,
) (Service, error) {
	if shipments == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if membersRepo == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if carrier == nil {
		return nil, fmt.Errorf("carrier client required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		shipments: shipments,
		orders:    ordersRepo,
		members:   membersRepo,
		carrier:   carrier,
		events:    events,
		runner:    runner,
		logg:      logg,
	}, nil
}

// orderSet is a validated group of co-shippable orders. The primary order
// carries the destination address and owns the shipment row.
type orderSet struct {
	primary *models.Order
	all     []models.Order
	origin  types.Address
	dest    types.Address
	carrier string
}

func (s *service) GetRates(ctx context.Context, sellerID uuid.UUID, input RateInput) ([]shippo.Rate, error) {
	set, err := s.loadOrderSet(ctx, sellerID, input.OrderIDs)
	if err != nil {
		return nil, err
	}
	if err := input.Parcel.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "measured parcel")
	}

	measured, measuredErr := s.quote(ctx, set, []types.Parcel{input.Parcel})
	flat, flatErr := s.quote(ctx, set, flatRateParcels)
	if measuredErr != nil && flatErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Combine(measuredErr, flatErr), "no rate source succeeded")
	}
	if measuredErr != nil {
		s.logg.Error(ctx, "measured-parcel rates unavailable", measuredErr)
	}
	if flatErr != nil {
		s.logg.Error(ctx, "flat-rate rates unavailable", flatErr)
	}

	return mergeRates(measured, flat), nil
}

func (s *service) BuyLabel(ctx context.Context, sellerID uuid.UUID, input BuyLabelInput) (*models.Shipment, error) {
	set, err := s.loadOrderSet(ctx, sellerID, input.OrderIDs)
	if err != nil {
		return nil, err
	}
	if input.RateID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate id required")
	}
	if err := input.Parcel.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "package")
	}

	// Purchase outside the transaction. A failed purchase leaves no state
	// behind; a failed commit is a support case, not a double charge.
	label, err := s.carrier.PurchaseLabel(ctx, input.RateID)
	if err != nil {
		return nil, err
	}

	shipment := &models.Shipment{
		ID:             uuid.New(),
		OrderID:        set.primary.ID,
		RateID:         input.RateID,
		Carrier:        input.Carrier,
		Service:        input.Service,
		RateCents:      input.RateCents,
		LabelURL:       label.LabelURL,
		TrackingNumber: label.TrackingNumber,
	}
	if label.TrackingURL != "" {
		trackingURL := label.TrackingURL
		shipment.TrackingURL = &trackingURL
	}

	now := time.Now().UTC()
	parcel := input.Parcel
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.shipments.WithTx(tx).Create(ctx, shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shipment")
		}

		ordersRepo := s.orders.WithTx(tx)
		for _, order := range set.all {
			patch := map[string]any{
				"shipped_at": now,
				"package":    &parcel,
			}
			if order.ID != set.primary.ID {
				patch["shipped_with_order_id"] = set.primary.ID
			}
			ok, err := ordersRepo.TransitionStatus(ctx, order.ID, enums.OrderStatusPaid, enums.OrderStatusShipped, patch)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order shipped")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s is no longer paid", order.ShortID()))
			}
		}

		actor := &outbox.ActorRef{MemberID: sellerID, Role: "seller"}
		for _, order := range set.all {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderShipped,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Data: payloads.OrderShippedEvent{
					OrderID:        order.ID,
					SellerID:       sellerID,
					Carrier:        input.Carrier,
					TrackingNumber: label.TrackingNumber,
					ShippedAt:      now,
				},
			})
			if err != nil {
				return err
			}
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTrackingAvailable,
			AggregateType: enums.AggregateShipment,
			AggregateID:   shipment.ID,
			Actor:         actor,
			Data: payloads.TrackingAvailableEvent{
				OrderID:        set.primary.ID,
				TrackingNumber: label.TrackingNumber,
				TrackingURL:    label.TrackingURL,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"shipment_id": shipment.ID.String(),
		"order_id":    set.primary.ID.String(),
		"tracking":    label.TrackingNumber,
	})
	s.logg.Info(ctx, "label purchased")
	return shipment, nil
}

func (s *service) loadOrderSet(ctx context.Context, sellerID uuid.UUID, orderIDs []uuid.UUID) (*orderSet, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if len(orderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order required")
	}
	seen := make(map[uuid.UUID]bool, len(orderIDs))
	for _, id := range orderIDs {
		if seen[id] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate order in the set")
		}
		seen[id] = true
	}

	found, err := s.orders.FindByIDs(ctx, orderIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load orders")
	}
	if len(found) != len(orderIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more orders not found")
	}

	byID := make(map[uuid.UUID]models.Order, len(found))
	for _, order := range found {
		byID[order.ID] = order
	}
	ordered := make([]models.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		ordered = append(ordered, byID[id])
	}

	primary := ordered[0]
	for _, order := range ordered {
		if order.SellerID != sellerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
		}
		if order.BuyerID != primary.BuyerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders in one shipment must share a buyer")
		}
		if order.Status != enums.OrderStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order %s is %s, not paid", order.ShortID(), order.Status))
		}
		if order.ShippedWithOrderID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a shipment")
		}
	}

	exists, err := s.shipments.ExistsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing shipments")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a shipment")
	}

	if primary.ShippingAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no shipping address")
	}

	profile, err := s.members.FindSellerProfile(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller profile")
	}
	if !profile.HasCarrierAccount() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller has no connected carrier account")
	}
	if profile.OriginAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller has no origin address")
	}

	primaryCopy := primary
	return &orderSet{
		primary: &primaryCopy,
		all:     ordered,
		origin:  *profile.OriginAddress,
		dest:    *primary.ShippingAddress,
		carrier: *profile.CarrierAccountID,
	}, nil
}

func (s *service) quote(ctx context.Context, set *orderSet, parcels []types.Parcel) ([]shippo.Rate, error) {
	quoteResp, err := s.carrier.CreateShipment(ctx, shippo.ShipmentRequest{
		From:              set.origin,
		To:                set.dest,
		Parcels:           parcels,
		CarrierAccountIDs: []string{set.carrier},
	})
	if err != nil {
		return nil, err
	}
	return quoteResp.Rates, nil
}

// mergeRates combines rate sets, keeping the first rate seen for each
// (carrier, service) pair.
func mergeRates(sets ...[]shippo.Rate) []shippo.Rate {
	type key struct{ carrier, service string }
	seen := make(map[key]bool)
	var merged []shippo.Rate
	for _, set := range sets {
		for _, rate := range set {
			k := key{rate.Carrier, rate.Service}
			if seen[k] {
				continue
			}
			seen[k] = true
			merged = append(merged, rate)
		}
	}
	return merged
}
