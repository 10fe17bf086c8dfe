package offers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/internal/listings"
	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/db"
	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/outbox"
	"github.com/northwest-community/marketplace-backend/pkg/outbox/payloads"
)

// Service runs price negotiation on resale listings. An accepted offer moves
// no money or inventory; the buyer completes the purchase through checkout.
type Service interface {
	Submit(ctx context.Context, buyerID uuid.UUID, input SubmitInput) (*models.ResaleOffer, error)
	Decide(ctx context.Context, sellerID, offerID uuid.UUID, accept bool) (*models.ResaleOffer, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.ResaleOffer, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ResaleOffer, error)
}

// SubmitInput is a buyer's proposed price on one listing.
type SubmitInput struct {
	StoreItemID uuid.UUID
	AmountCents int
	Message     *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     Repository
	listings listings.Repository
	events   eventEmitter
	runner   txRunner
	cfg      config.OffersConfig
	logg     *logger.Logger
}

// NewService wires the offers service.
func NewService(
	repo Repository,
	listingsRepo listings.Repository,
	events eventEmitter,
	runner txRunner,
	cfg config.OffersConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offers repository required")
	}
	if listingsRepo == nil {
		return nil, fmt.Errorf("listings repository required")
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
	if cfg.MaxPerWindow <= 0 {
		cfg.MaxPerWindow = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	return &service{
		repo:     repo,
		listings: listingsRepo,
		events:   events,
		runner:   runner,
		cfg:      cfg,
		logg:     logg,
	}, nil
}

func (s *service) Submit(ctx context.Context, buyerID uuid.UUID, input SubmitInput) (*models.ResaleOffer, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.StoreItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store item id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer amount must be positive")
	}

	item, err := s.listings.FindByID(ctx, input.StoreItemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if item.SellerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot make an offer on your own listing")
	}
	if item.ListingType != enums.ListingTypeResale {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offers are only allowed on resale listings")
	}
	if !item.AcceptsOffers {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing does not accept offers")
	}
	if item.Status != enums.ListingStatusActive || item.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not available")
	}
	if input.AmountCents < item.MinOfferCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("offer is below the seller's minimum of %d cents", item.MinOfferCents))
	}

	pending, err := s.repo.HasPending(ctx, buyerID, input.StoreItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check pending offers")
	}
	if pending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an offer on this listing is already pending")
	}

	since := time.Now().Add(-s.cfg.Window)
	count, err := s.repo.CountInWindow(ctx, buyerID, input.StoreItemID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count recent offers")
	}
	if count >= int64(s.cfg.MaxPerWindow) {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit,
			fmt.Sprintf("at most %d offers per listing per %s", s.cfg.MaxPerWindow, s.cfg.Window))
	}

	offer := &models.ResaleOffer{
		ID:          uuid.New(),
		StoreItemID: input.StoreItemID,
		BuyerID:     buyerID,
		SellerID:    item.SellerID,
		AmountCents: input.AmountCents,
		Message:     input.Message,
		Status:      enums.OfferStatusPending,
	}
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, offer); err != nil {
			if db.IsUniqueViolation(err, "idx_resale_offers_one_pending") {
				return pkgerrors.New(pkgerrors.CodeConflict, "an offer on this listing is already pending")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create offer")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferSubmitted,
			AggregateType: enums.AggregateResaleOffer,
			AggregateID:   offer.ID,
			Actor:         &outbox.ActorRef{MemberID: buyerID, Role: "buyer"},
			Data: payloads.OfferSubmittedEvent{
				OfferID:     offer.ID,
				StoreItemID: offer.StoreItemID,
				BuyerID:     offer.BuyerID,
				SellerID:    offer.SellerID,
				AmountCents: offer.AmountCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"offer_id":     offer.ID.String(),
		"amount_cents": offer.AmountCents,
	}), "offer submitted")
	return offer, nil
}

func (s *service) Decide(ctx context.Context, sellerID, offerID uuid.UUID, accept bool) (*models.ResaleOffer, error) {
	if sellerID == uuid.Nil || offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller and offer ids required")
	}

	offer, err := s.repo.FindByID(ctx, offerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load offer")
	}
	if offer.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "offer belongs to another seller")
	}
	if offer.Status != enums.OfferStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "offer is already decided")
	}

	status := enums.OfferStatusDeclined
	if accept {
		status = enums.OfferStatusAccepted
	}
	decidedAt := time.Now().UTC()

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Decide(ctx, offerID, status, decidedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decide offer")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer is already decided")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferDecided,
			AggregateType: enums.AggregateResaleOffer,
			AggregateID:   offerID,
			Actor:         &outbox.ActorRef{MemberID: sellerID, Role: "seller"},
			Data: payloads.OfferDecidedEvent{
				OfferID:     offerID,
				StoreItemID: offer.StoreItemID,
				BuyerID:     offer.BuyerID,
				Status:      status,
				DecidedAt:   decidedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	offer.Status = status
	offer.DecidedAt = &decidedAt
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"offer_id": offerID.String(),
		"status":   string(status),
	}), "offer decided")
	return offer, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.ResaleOffer, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	return s.repo.ListByBuyer(ctx, buyerID, limit)
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ResaleOffer, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	return s.repo.ListBySeller(ctx, sellerID, limit)
}
