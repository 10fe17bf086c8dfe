package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/internal/ledger"
	"github.com/northwest-community/marketplace-backend/internal/listings"
	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/db"
	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/outbox"
	"github.com/northwest-community/marketplace-backend/pkg/outbox/payloads"
	"github.com/northwest-community/marketplace-backend/pkg/square"
)

// Service drives the order state machine after checkout.
type Service interface {
	Get(ctx context.Context, callerID, orderID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Order, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Order, error)
	Cancel(ctx context.Context, buyerID, orderID uuid.UUID, input CancelInput) (*models.Order, error)
	Refund(ctx context.Context, sellerID, orderID uuid.UUID, reason string) (*models.Order, error)
	Deliver(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
}

// CancelInput carries the buyer's cancellation reason.
type CancelInput struct {
	Reason string
	Note   *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ledgerDebitor is the slice of the ledger the order flows need. Balance is
// read before any processor refund so an underfunded seller blocks the whole
// operation instead of stranding the order after the money already moved.
type ledgerDebitor interface {
	Balance(ctx context.Context, sellerID uuid.UUID) (*models.SellerBalance, error)
	DebitReturn(ctx context.Context, tx *gorm.DB, input ledger.ReturnDebitInput) error
}

type service struct {
	repo      Repository
	listings  listings.Repository
	ledger    ledgerDebitor
	payments  square.Payments
	events    eventEmitter
	runner    txRunner
	ledgerCfg config.LedgerConfig
	logg      *logger.Logger
}

// NewService wires the order lifecycle service.
func NewService(
	repo Repository,
	listingsRepo listings.Repository,
	ledgerSvc ledgerDebitor,
	payments square.Payments,
	events eventEmitter,
	runner txRunner,
	ledgerCfg config.LedgerConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if listingsRepo == nil {
		return nil, fmt.Errorf("listings repository required")
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
		repo:      repo,
		listings:  listingsRepo,
		ledger:    ledgerSvc,
		payments:  payments,
		events:    events,
		runner:    runner,
		ledgerCfg: ledgerCfg,
		logg:      logg,
	}, nil
}

func (s *service) Get(ctx context.Context, callerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != callerID && order.SellerID != callerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to someone else")
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	return s.repo.ListByBuyer(ctx, buyerID, limit)
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Order, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	return s.repo.ListBySeller(ctx, sellerID, limit)
}

// Cancel is the buyer backing out before shipment. Card orders are refunded
// in full through Square and the seller's earlier sale credit is clawed back.
func (s *service) Cancel(ctx context.Context, buyerID, orderID uuid.UUID, input CancelInput) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can cancel an order")
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be canceled")
	}

	debitCents := int64(0)
	if !order.IsCash() {
		fee := ledger.PlatformFeeCents(int64(order.TotalCents), s.ledgerCfg)
		debitCents = int64(order.TotalCents) - fee

		if err := s.checkSellerBalance(ctx, order.SellerID, debitCents); err != nil {
			return nil, err
		}

		// Refund before the transaction: if Square fails nothing changes.
		_, err := s.payments.RefundPayment(ctx, square.RefundParams{
			PaymentID:   *order.PaymentRef,
			AmountCents: int64(order.TotalCents),
			Reason:      "buyer canceled order " + order.ShortID(),
		})
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	actor := &outbox.ActorRef{MemberID: buyerID, Role: "buyer"}
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		patch := map[string]any{
			"cancel_reason": input.Reason,
			"cancel_note":   input.Note,
			"canceled_at":   now,
		}
		if err := s.transition(ctx, tx, order, enums.OrderStatusPaid, enums.OrderStatusCanceled, patch); err != nil {
			return err
		}
		if err := s.restoreInventory(ctx, tx, order); err != nil {
			return err
		}
		if debitCents > 0 {
			err := s.ledger.DebitReturn(ctx, tx, ledger.ReturnDebitInput{
				SellerID:    order.SellerID,
				OrderID:     order.ID,
				AmountCents: debitCents,
			})
			if err != nil {
				return err
			}
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				BuyerID:    order.BuyerID,
				SellerID:   order.SellerID,
				Reason:     input.Reason,
				CanceledAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order canceled")
	return s.load(ctx, orderID)
}

// Refund is the seller returning the buyer's money after the fact. Inventory
// goes back on the shelf only when the order never shipped.
func (s *service) Refund(ctx context.Context, sellerID, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can refund an order")
	}
	if order.Status != enums.OrderStatusPaid && order.Status != enums.OrderStatusShipped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid or shipped orders can be refunded")
	}

	debitCents := int64(0)
	if !order.IsCash() {
		fee := ledger.PlatformFeeCents(int64(order.TotalCents), s.ledgerCfg)
		debitCents = int64(order.TotalCents) - fee

		if err := s.checkSellerBalance(ctx, order.SellerID, debitCents); err != nil {
			return nil, err
		}

		_, err := s.payments.RefundPayment(ctx, square.RefundParams{
			PaymentID:   *order.PaymentRef,
			AmountCents: int64(order.TotalCents),
			Reason:      "seller refunded order " + order.ShortID(),
		})
		if err != nil {
			return nil, err
		}
	}

	from := order.Status
	restock := from == enums.OrderStatusPaid
	now := time.Now().UTC()
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		patch := map[string]any{"refunded_at": now}
		if err := s.transition(ctx, tx, order, from, enums.OrderStatusRefunded, patch); err != nil {
			return err
		}
		if restock {
			if err := s.restoreInventory(ctx, tx, order); err != nil {
				return err
			}
		}
		if debitCents > 0 {
			err := s.ledger.DebitReturn(ctx, tx, ledger.ReturnDebitInput{
				SellerID:    order.SellerID,
				OrderID:     order.ID,
				AmountCents: debitCents,
			})
			if err != nil {
				return err
			}
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{MemberID: sellerID, Role: "seller"},
			Data: payloads.OrderRefundedEvent{
				OrderID:     order.ID,
				SellerID:    order.SellerID,
				AmountCents: order.TotalCents,
				RefundedAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order refunded")
	return s.load(ctx, orderID)
}

// Deliver is the buyer confirming receipt of a shipped order.
func (s *service) Deliver(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm delivery")
	}
	if order.Status != enums.OrderStatusShipped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only shipped orders can be delivered")
	}

	now := time.Now().UTC()
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		patch := map[string]any{"delivered_at": now}
		if err := s.transition(ctx, tx, order, enums.OrderStatusShipped, enums.OrderStatusDelivered, patch); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{MemberID: buyerID, Role: "buyer"},
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				DeliveredAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order delivered")
	return s.load(ctx, orderID)
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.Order, from, to enums.OrderStatus, patch map[string]any) error {
	ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, from, to, patch)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is no longer %s", from))
	}
	return nil
}

// checkSellerBalance rejects a refund the seller cannot absorb before any
// money moves through the processor. The conditional debit inside the
// transaction remains the guard against a concurrent drawdown.
func (s *service) checkSellerBalance(ctx context.Context, sellerID uuid.UUID, debitCents int64) error {
	balance, err := s.ledger.Balance(ctx, sellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read seller balance")
	}
	if balance.BalanceCents < debitCents {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "seller balance cannot cover the refund")
	}
	return nil
}

func (s *service) restoreInventory(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.listings.WithTx(tx)
	for _, item := range order.Items {
		if err := repo.RestoreQuantity(ctx, item.StoreItemID, item.Qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore inventory")
		}
	}
	return nil
}
