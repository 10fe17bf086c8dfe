package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

// Repository manages resale offer persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.ResaleOffer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ResaleOffer, error)
	HasPending(ctx context.Context, buyerID, storeItemID uuid.UUID) (bool, error)
	CountInWindow(ctx context.Context, buyerID, storeItemID uuid.UUID, since time.Time) (int64, error)
	Decide(ctx context.Context, id uuid.UUID, status enums.OfferStatus, decidedAt time.Time) (bool, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.ResaleOffer, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ResaleOffer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an offers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, offer *models.ResaleOffer) error {
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ResaleOffer, error) {
	var offer models.ResaleOffer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) HasPending(ctx context.Context, buyerID, storeItemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ResaleOffer{}).
		Where("buyer_id = ? AND store_item_id = ? AND status = ?", buyerID, storeItemID, enums.OfferStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountInWindow counts the buyer's offers on one item since the cutoff,
// regardless of their outcome.
func (r *repository) CountInWindow(ctx context.Context, buyerID, storeItemID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ResaleOffer{}).
		Where("buyer_id = ? AND store_item_id = ? AND created_at >= ?", buyerID, storeItemID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Decide resolves a pending offer. The guard on the current status means a
// second concurrent decision loses.
func (r *repository) Decide(ctx context.Context, id uuid.UUID, status enums.OfferStatus, decidedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ResaleOffer{}).
		Where("id = ? AND status = ?", id, enums.OfferStatusPending).
		Updates(map[string]any{
			"status":     status,
			"decided_at": decidedAt,
			"updated_at": decidedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.ResaleOffer, error) {
	return r.list(ctx, "buyer_id", buyerID, limit)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ResaleOffer, error) {
	return r.list(ctx, "seller_id", sellerID, limit)
}

func (r *repository) list(ctx context.Context, column string, id uuid.UUID, limit int) ([]models.ResaleOffer, error) {
	if limit <= 0 {
		limit = 50
	}
	var offers []models.ResaleOffer
	err := r.db.WithContext(ctx).
		Where(column+" = ?", id).
		Order("created_at DESC").
		Limit(limit).
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}
