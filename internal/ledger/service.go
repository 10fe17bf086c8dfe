package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/db"
	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/outbox"
	"github.com/northwest-community/marketplace-backend/pkg/outbox/payloads"
	"github.com/northwest-community/marketplace-backend/pkg/pagination"
)

// Service maintains seller balances. Credit and debit entries run inside the
// caller's order transaction; payouts open their own.
type Service interface {
	CreditSale(ctx context.Context, tx *gorm.DB, input SaleCreditInput) error
	DebitReturn(ctx context.Context, tx *gorm.DB, input ReturnDebitInput) error
	RecordPayout(ctx context.Context, sellerID uuid.UUID, amountCents int64) (*models.BalanceTransaction, error)
	Balance(ctx context.Context, sellerID uuid.UUID) (*models.SellerBalance, error)
	Transactions(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*TransactionsPage, error)
}

// TransactionsPage is one cursor page of ledger entries, newest first.
type TransactionsPage struct {
	Transactions []models.BalanceTransaction `json:"transactions"`
	NextCursor   string                      `json:"nextCursor,omitempty"`
}

// SaleCreditInput credits a seller for a paid card order. AmountCents is the
// order total net of the platform fee.
type SaleCreditInput struct {
	SellerID    uuid.UUID
	OrderID     uuid.UUID
	AmountCents int64
}

// ReturnDebitInput claws a prior sale credit back when an order is canceled
// or refunded.
type ReturnDebitInput struct {
	SellerID    uuid.UUID
	OrderID     uuid.UUID
	AmountCents int64
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	runner txRunner
	events eventEmitter
	cfg    config.LedgerConfig
	logg   *logger.Logger
}

// NewService wires a ledger service.
func NewService(repo Repository, runner txRunner, events eventEmitter, cfg config.LedgerConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, runner: runner, events: events, cfg: cfg, logg: logg}, nil
}

// PlatformFeeCents computes the platform's cut of an order total in basis
// points, subject to the configured floor.
func PlatformFeeCents(totalCents int64, cfg config.LedgerConfig) int64 {
	fee := totalCents * int64(cfg.PlatformFeeBps) / 10000
	if fee < int64(cfg.PlatformFeeMinCents) {
		fee = int64(cfg.PlatformFeeMinCents)
	}
	if fee > totalCents {
		fee = totalCents
	}
	return fee
}

func (s *service) CreditSale(ctx context.Context, tx *gorm.DB, input SaleCreditInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "sale credit requires a transaction")
	}
	if input.SellerID == uuid.Nil || input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller and order ids required")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.EnsureBalance(ctx, input.SellerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure seller balance")
	}
	ok, err := repo.ApplyDelta(ctx, input.SellerID, enums.BalanceTransactionTypeSale, input.AmountCents)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply sale credit")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, "sale credit did not apply")
	}

	orderID := input.OrderID
	txn := &models.BalanceTransaction{
		SellerID:    input.SellerID,
		OrderID:     &orderID,
		Type:        enums.BalanceTransactionTypeSale,
		AmountCents: input.AmountCents,
		Description: describe("Sale for order", orderID, input.AmountCents),
	}
	return repo.CreateTransaction(ctx, txn)
}

func (s *service) DebitReturn(ctx context.Context, tx *gorm.DB, input ReturnDebitInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "return debit requires a transaction")
	}
	if input.SellerID == uuid.Nil || input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller and order ids required")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.EnsureBalance(ctx, input.SellerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure seller balance")
	}
	ok, err := repo.ApplyDelta(ctx, input.SellerID, enums.BalanceTransactionTypeReturn, -input.AmountCents)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply return debit")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "seller balance is insufficient to cover the return")
	}

	orderID := input.OrderID
	txn := &models.BalanceTransaction{
		SellerID:    input.SellerID,
		OrderID:     &orderID,
		Type:        enums.BalanceTransactionTypeReturn,
		AmountCents: -input.AmountCents,
		Description: describe("Return for order", orderID, -input.AmountCents),
	}
	return repo.CreateTransaction(ctx, txn)
}

func (s *service) RecordPayout(ctx context.Context, sellerID uuid.UUID, amountCents int64) (*models.BalanceTransaction, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if amountCents < int64(s.cfg.PayoutMinCents) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payout must be at least %s", dollars(int64(s.cfg.PayoutMinCents))))
	}

	var txn *models.BalanceTransaction
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.EnsureBalance(ctx, sellerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure seller balance")
		}
		ok, err := repo.ApplyDelta(ctx, sellerID, enums.BalanceTransactionTypePayout, -amountCents)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply payout debit")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "seller balance is insufficient for the payout")
		}

		txn = &models.BalanceTransaction{
			SellerID:    sellerID,
			Type:        enums.BalanceTransactionTypePayout,
			AmountCents: -amountCents,
			Description: fmt.Sprintf("Payout of %s", dollars(amountCents)),
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRecorded,
			AggregateType: enums.AggregateSeller,
			AggregateID:   sellerID,
			Data: payloads.PayoutRecordedEvent{
				SellerID:    sellerID,
				AmountCents: amountCents,
				RecordedAt:  time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"seller_id":    sellerID.String(),
		"amount_cents": amountCents,
	})
	s.logg.Info(ctx, "payout recorded")
	return txn, nil
}

func (s *service) Balance(ctx context.Context, sellerID uuid.UUID) (*models.SellerBalance, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	balance, err := s.repo.GetBalance(ctx, sellerID)
	if err != nil {
		if db.IsNotFound(err) {
			// No ledger activity yet reads as a zero balance.
			return &models.SellerBalance{SellerID: sellerID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller balance")
	}
	return balance, nil
}

func (s *service) Transactions(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*TransactionsPage, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	txns, err := s.repo.ListTransactions(ctx, sellerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list balance transactions")
	}

	page := &TransactionsPage{Transactions: txns}
	if len(txns) > limit {
		page.Transactions = txns[:limit]
		last := page.Transactions[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func describe(prefix string, orderID uuid.UUID, amountCents int64) string {
	return fmt.Sprintf("%s %s (%s)", prefix, shortID(orderID), dollars(amountCents))
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func dollars(amountCents int64) string {
	return "$" + decimal.NewFromInt(amountCents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
