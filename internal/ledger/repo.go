package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	"github.com/northwest-community/marketplace-backend/pkg/pagination"
)

// Repository manages seller balance rows and the append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureBalance(ctx context.Context, sellerID uuid.UUID) error
	ApplyDelta(ctx context.Context, sellerID uuid.UUID, txnType enums.BalanceTransactionType, deltaCents int64) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.BalanceTransaction) error
	GetBalance(ctx context.Context, sellerID uuid.UUID) (*models.SellerBalance, error)
	ListTransactions(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.BalanceTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureBalance lazily creates the seller's balance row. Sellers get their
// row on first ledger activity, not at signup.
func (r *repository) EnsureBalance(ctx context.Context, sellerID uuid.UUID) error {
	balance := models.SellerBalance{SellerID: sellerID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&balance).Error
}

// ApplyDelta moves the running balance by deltaCents. The update only applies
// when the resulting balance stays non-negative; false means insufficient
// funds (or a missing balance row) and nothing was changed. Lifetime totals
// accumulate from sales and payouts only.
func (r *repository) ApplyDelta(ctx context.Context, sellerID uuid.UUID, txnType enums.BalanceTransactionType, deltaCents int64) (bool, error) {
	if deltaCents == 0 {
		return true, nil
	}

	earned := int64(0)
	paidOut := int64(0)
	if txnType == enums.BalanceTransactionTypeSale && deltaCents > 0 {
		earned = deltaCents
	}
	if txnType == enums.BalanceTransactionTypePayout && deltaCents < 0 {
		paidOut = -deltaCents
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE seller_balances
		SET balance_cents = balance_cents + ?,
		    total_earned_cents = total_earned_cents + ?,
		    total_paid_out_cents = total_paid_out_cents + ?
		WHERE seller_id = ? AND balance_cents + ? >= 0`,
		deltaCents, earned, paidOut, sellerID, deltaCents,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.BalanceTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) GetBalance(ctx context.Context, sellerID uuid.UUID) (*models.SellerBalance, error) {
	var balance models.SellerBalance
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// ListTransactions walks the ledger newest first. The cursor pins the walk to
// the (created_at, id) position of the last row the caller saw.
func (r *repository) ListTransactions(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.BalanceTransaction, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var txns []models.BalanceTransaction
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
