package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

// Repository manages persistence for store items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.StoreItem) error
	Save(ctx context.Context, item *models.StoreItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StoreItem, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.StoreItem, error)
	DecrementQuantity(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	RestoreQuantity(ctx context.Context, id uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a listings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.StoreItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Save(ctx context.Context, item *models.StoreItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StoreItem, error) {
	var item models.StoreItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.StoreItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []models.StoreItem
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// DecrementQuantity atomically takes stock for an order line. The guard on
// current quantity means concurrent checkouts cannot oversell; the returned
// bool is false when the listing was inactive or short on stock.
func (r *repository) DecrementQuantity(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE store_items
		SET quantity = quantity - ?,
		    status = CASE WHEN quantity - ? <= 0 THEN ? ELSE status END
		WHERE id = ? AND status = ? AND quantity >= ?`,
		qty, qty, string(enums.ListingStatusSoldOut),
		id, string(enums.ListingStatusActive), qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreQuantity puts stock back after a cancellation or refund and
// reactivates a sold-out listing.
func (r *repository) RestoreQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE store_items
		SET quantity = quantity + ?,
		    status = ?
		WHERE id = ?`,
		qty, string(enums.ListingStatusActive), id,
	).Error
}
