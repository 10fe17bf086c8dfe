package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

// Member is a platform identity. Buyers and sellers are both members;
// seller-side settings live on SellerProfile.
type Member struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayName string           `gorm:"column:display_name;not null"`
	Email       string           `gorm:"column:email;not null;uniqueIndex"`
	Plan        enums.MemberPlan `gorm:"column:plan;type:member_plan;not null;default:'none'"`
	PlanActive  bool             `gorm:"column:plan_active;not null;default:false"`
	Points      int              `gorm:"column:points;not null;default:0"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasActiveSubscribePlan reports whether loyalty points double for this member.
func (m *Member) HasActiveSubscribePlan() bool {
	return m != nil && m.Plan == enums.MemberPlanSubscribe && m.PlanActive
}
