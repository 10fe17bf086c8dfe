package checkout

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/internal/ledger"
	"github.com/northwest-community/marketplace-backend/internal/listings"
	"github.com/northwest-community/marketplace-backend/internal/members"
	"github.com/northwest-community/marketplace-backend/internal/orders"
	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/db"
	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/outbox"
	"github.com/northwest-community/marketplace-backend/pkg/outbox/payloads"
	"github.com/northwest-community/marketplace-backend/pkg/square"
	"github.com/northwest-community/marketplace-backend/pkg/types"
)

// Points accrue at one point per two dollars spent.
const pointsPerCents = 200

// Service turns a buyer's cart into per-seller orders.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
}

// Line is one requested purchase line.
type Line struct {
	StoreItemID     uuid.UUID
	Qty             int
	FulfillmentType enums.FulfillmentType
}

// CheckoutInput is the full cart submission. Card payments carry either an
// existing processor reference or a tokenized source to charge per order.
type CheckoutInput struct {
	BuyerID         uuid.UUID
	Lines           []Line
	PaymentMethod   enums.PaymentMethod
	PaymentRef      *string
	CardSourceID    *string
	ShippingAddress *types.Address
	DeliveryNote    *string
}

// SellerRejection explains why one seller's portion of the cart was not
// ordered. Other sellers' orders are unaffected.
type SellerRejection struct {
	SellerID uuid.UUID `json:"sellerId"`
	Reason   string    `json:"reason"`
}

// CheckoutResult reports the orders created and any per-seller rejections.
type CheckoutResult struct {
	OrderIDs      []uuid.UUID       `json:"orderIds"`
	PointsAwarded int               `json:"pointsAwarded"`
	Rejections    []SellerRejection `json:"rejections,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	listings  listings.Repository
	members   members.Repository
	orders    orders.Repository
	ledger    ledger.Service
	payments  square.Payments
	events    eventEmitter
	runner    txRunner
	ledgerCfg config.LedgerConfig
	logg      *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(
	listingsRepo listings.Repository,
	membersRepo members.Repository,
	ordersRepo orders.Repository,
	ledgerSvc ledger.Service,
	payments square.Payments,
	events eventEmitter,
	runner txRunner,
	ledgerCfg config.LedgerConfig,
	logg *logger.Logger,
) (Service, error) {
	if listingsRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if membersRepo == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payments client required")
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
		listings:  listingsRepo,
		members:   membersRepo,
		orders:    ordersRepo,
		ledger:    ledgerSvc,
		payments:  payments,
		events:    events,
		runner:    runner,
		ledgerCfg: ledgerCfg,
		logg:      logg,
	}, nil
}

// sellerGroup is the validated portion of the cart owned by one seller.
type sellerGroup struct {
	sellerID uuid.UUID
	lines    []groupLine
}

type groupLine struct {
	item *models.StoreItem
	qty  int
	mode enums.FulfillmentType
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if input.PaymentMethod == enums.PaymentMethodCard {
		hasRef := input.PaymentRef != nil && *input.PaymentRef != ""
		hasSource := input.CardSourceID != nil && *input.CardSourceID != ""
		if hasRef == hasSource {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "card payment needs a payment reference or a card source, not both")
		}
	}

	buyer, err := s.members.FindMemberByID(ctx, input.BuyerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load buyer")
	}

	groups, err := s.buildGroups(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{}
	for _, group := range groups {
		orderID, points, rejection := s.placeSellerOrder(ctx, buyer, group, input)
		if rejection != nil {
			result.Rejections = append(result.Rejections, *rejection)
			continue
		}
		result.OrderIDs = append(result.OrderIDs, orderID)
		result.PointsAwarded += points
	}
	return result, nil
}

// buildGroups loads every listing, validates the lines, and splits the cart
// by seller. A validation failure here rejects the whole request since the
// buyer can fix the cart before money moves.
func (s *service) buildGroups(ctx context.Context, input CheckoutInput) ([]sellerGroup, error) {
	bySeller := make(map[uuid.UUID]*sellerGroup)
	for _, line := range input.Lines {
		if line.StoreItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store item id required on every line")
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if !line.FulfillmentType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown fulfillment type")
		}

		item, err := s.listings.FindByID(ctx, line.StoreItemID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("listing %s not found", line.StoreItemID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
		}
		if item.SellerID == input.BuyerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot buy your own listing")
		}
		if item.Status != enums.ListingStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("listing %q is not available", item.Title))
		}
		if item.Quantity < line.Qty {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("listing %q has only %d left", item.Title, item.Quantity))
		}
		if !item.SupportsFulfillment(line.FulfillmentType) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("listing %q does not offer %s", item.Title, line.FulfillmentType))
		}
		if input.PaymentMethod == enums.PaymentMethodCash && line.FulfillmentType == enums.FulfillmentTypeShip {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash orders must be picked up or locally delivered")
		}

		group, ok := bySeller[item.SellerID]
		if !ok {
			group = &sellerGroup{sellerID: item.SellerID}
			bySeller[item.SellerID] = group
		}
		group.lines = append(group.lines, groupLine{item: item, qty: line.Qty, mode: line.FulfillmentType})
	}

	if input.PaymentMethod == enums.PaymentMethodCash {
		for sellerID := range bySeller {
			profile, err := s.members.FindSellerProfile(ctx, sellerID)
			if err != nil && !db.IsNotFound(err) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller profile")
			}
			if profile == nil || !profile.AcceptsCash {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller does not accept cash")
			}
		}
	}

	groups := make([]sellerGroup, 0, len(bySeller))
	for _, group := range bySeller {
		groups = append(groups, *group)
	}
	// Deterministic order keeps multi-seller responses stable.
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].sellerID.String() < groups[j].sellerID.String()
	})
	return groups, nil
}

// placeSellerOrder runs one seller's order in its own transaction. A failure
// here is reported as a rejection and leaves the other sellers' orders alone.
func (s *service) placeSellerOrder(ctx context.Context, buyer *models.Member, group sellerGroup, input CheckoutInput) (uuid.UUID, int, *SellerRejection) {
	subtotal := 0
	shipFeeMax := 0
	localFees := 0
	for _, line := range group.lines {
		subtotal += line.item.PriceCents * line.qty
		switch line.mode {
		case enums.FulfillmentTypeShip:
			if fee := line.item.ShippingFeeCents; fee > shipFeeMax {
				shipFeeMax = fee
			}
		case enums.FulfillmentTypeLocalDelivery:
			localFees += line.item.LocalDeliveryFeeCents
		}
	}
	shipping := shipFeeMax + localFees
	total := subtotal + shipping

	paymentRef := input.PaymentRef
	if input.PaymentMethod == enums.PaymentMethodCard && input.CardSourceID != nil && *input.CardSourceID != "" {
		// Charge per seller order so one seller's rejection never holds
		// another seller's money.
		payment, err := s.payments.CreatePayment(ctx, square.PaymentCreateParams{
			AmountCents: int64(total),
			SourceID:    *input.CardSourceID,
			Note:        fmt.Sprintf("Northwest Community order for seller %s", group.sellerID.String()[:8]),
			ReferenceID: input.BuyerID.String(),
		})
		if err != nil {
			s.logg.Error(ctx, "checkout payment failed", err)
			return uuid.Nil, 0, &SellerRejection{SellerID: group.sellerID, Reason: rejectionReason(err)}
		}
		ref := paymentID(payment)
		paymentRef = &ref
	}

	points := total / pointsPerCents
	if buyer.HasActiveSubscribePlan() {
		points *= 2
	}

	order := &models.Order{
		ID:              uuid.New(),
		BuyerID:         input.BuyerID,
		SellerID:        group.sellerID,
		Status:          enums.OrderStatusPaid,
		PaymentMethod:   input.PaymentMethod,
		PaymentRef:      paymentRef,
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		TotalCents:      total,
		PointsAwarded:   points,
		ShippingAddress: input.ShippingAddress,
		DeliveryNote:    input.DeliveryNote,
	}
	for _, line := range group.lines {
		order.Items = append(order.Items, models.OrderItem{
			StoreItemID:     line.item.ID,
			Title:           line.item.Title,
			Qty:             line.qty,
			UnitPriceCents:  line.item.PriceCents,
			FulfillmentType: line.mode,
		})
	}

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		listingsRepo := s.listings.WithTx(tx)
		for _, line := range group.lines {
			ok, err := listingsRepo.DecrementQuantity(ctx, line.item.ID, line.qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement inventory")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("listing %q sold out", line.item.Title))
			}
		}

		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if input.PaymentMethod == enums.PaymentMethodCard {
			fee := ledger.PlatformFeeCents(int64(total), s.ledgerCfg)
			err := s.ledger.CreditSale(ctx, tx, ledger.SaleCreditInput{
				SellerID:    group.sellerID,
				OrderID:     order.ID,
				AmountCents: int64(total) - fee,
			})
			if err != nil {
				return err
			}
		}

		if points > 0 {
			if _, err := s.members.WithTx(tx).AddPoints(ctx, input.BuyerID, points); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "award points")
			}
		}

		actor := &outbox.ActorRef{MemberID: input.BuyerID, Role: "buyer"}
		err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				BuyerID:       input.BuyerID,
				SellerID:      group.sellerID,
				TotalCents:    total,
				PaymentMethod: input.PaymentMethod,
			},
		})
		if err != nil {
			return err
		}
		if points > 0 {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPointsAwarded,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Data: payloads.PointsAwardedEvent{
					MemberID: input.BuyerID,
					OrderID:  order.ID,
					Points:   points,
				},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.refundFailedOrder(ctx, input, paymentRef, total)
		ctx = s.logg.WithFields(ctx, map[string]any{"seller_id": group.sellerID.String()})
		s.logg.Error(ctx, "seller order rejected", err)
		return uuid.Nil, 0, &SellerRejection{SellerID: group.sellerID, Reason: rejectionReason(err)}
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":    order.ID.String(),
		"seller_id":   group.sellerID.String(),
		"total_cents": total,
	})
	s.logg.Info(ctx, "order placed")
	return order.ID, points, nil
}

// refundFailedOrder returns money charged in this request when the order
// transaction did not commit. Only per-order charges are reversed; a caller
// supplied payment reference may span other sellers' orders.
func (s *service) refundFailedOrder(ctx context.Context, input CheckoutInput, paymentRef *string, totalCents int) {
	chargedHere := input.CardSourceID != nil && *input.CardSourceID != ""
	if !chargedHere || paymentRef == nil || *paymentRef == "" {
		return
	}
	_, err := s.payments.RefundPayment(ctx, square.RefundParams{
		PaymentID:   *paymentRef,
		AmountCents: int64(totalCents),
		Reason:      "order placement failed",
	})
	if err != nil {
		s.logg.Error(ctx, "refund of failed checkout charge did not succeed", err)
	}
}

func rejectionReason(err error) string {
	if domainErr := pkgerrors.As(err); domainErr != nil {
		return domainErr.Error()
	}
	return "order could not be placed"
}

func paymentID(payment interface{ GetID() *string }) string {
	if payment == nil {
		return ""
	}
	if id := payment.GetID(); id != nil {
		return *id
	}
	return ""
}
