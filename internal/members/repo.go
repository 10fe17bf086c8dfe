package members

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/pkg/db/models"
)

// Repository provides member and seller-profile lookups for the order flows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindSellerProfile(ctx context.Context, memberID uuid.UUID) (*models.SellerProfile, error)
	AddPoints(ctx context.Context, memberID uuid.UUID, delta int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a members repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindSellerProfile(ctx context.Context, memberID uuid.UUID) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// AddPoints adjusts the loyalty balance. The update only applies when it
// would not take the balance below zero; callers get false back otherwise.
func (r *repository) AddPoints(ctx context.Context, memberID uuid.UUID, delta int) (bool, error) {
	if delta == 0 {
		return true, nil
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE members
		SET points = points + ?
		WHERE id = ? AND points + ? >= 0`,
		delta, memberID, delta,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
