package listings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/db"
	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
)

// Service exposes the listing CRUD surface used by sellers.
type Service interface {
	Create(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*models.StoreItem, error)
	Update(ctx context.Context, sellerID, itemID uuid.UUID, input UpdateListingInput) (*models.StoreItem, error)
	Get(ctx context.Context, itemID uuid.UUID) (*models.StoreItem, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.StoreItem, error)
}

// CreateListingInput captures the fields to publish a listing.
type CreateListingInput struct {
	Title                 string
	Description           *string
	PriceCents            int
	Quantity              int
	ListingType           enums.ListingType
	OffersShipping        bool
	OffersLocalDelivery   bool
	OffersPickup          bool
	ShippingFeeCents      int
	LocalDeliveryFeeCents int
	AcceptsOffers         bool
	MinOfferCents         int
}

// UpdateListingInput patches a listing; nil fields are left unchanged.
type UpdateListingInput struct {
	Title                 *string
	Description           *string
	PriceCents            *int
	Quantity              *int
	OffersShipping        *bool
	OffersLocalDelivery   *bool
	OffersPickup          *bool
	ShippingFeeCents      *int
	LocalDeliveryFeeCents *int
	AcceptsOffers         *bool
	MinOfferCents         *int
}

type service struct {
	repo Repository
}

// NewService wires a listings service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*models.StoreItem, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	listingType := input.ListingType
	if listingType == "" {
		listingType = enums.ListingTypeNew
	}
	if !listingType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid listing type %q", listingType))
	}
	if !input.OffersShipping && !input.OffersLocalDelivery && !input.OffersPickup {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing must offer at least one fulfillment mode")
	}
	if input.AcceptsOffers && listingType != enums.ListingTypeResale {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only resale listings accept offers")
	}

	status := enums.ListingStatusActive
	if input.Quantity == 0 {
		status = enums.ListingStatusSoldOut
	}
	item := &models.StoreItem{
		SellerID:              sellerID,
		Title:                 input.Title,
		Description:           input.Description,
		PriceCents:            input.PriceCents,
		Quantity:              input.Quantity,
		Status:                status,
		ListingType:           listingType,
		OffersShipping:        input.OffersShipping,
		OffersLocalDelivery:   input.OffersLocalDelivery,
		OffersPickup:          input.OffersPickup,
		ShippingFeeCents:      input.ShippingFeeCents,
		LocalDeliveryFeeCents: input.LocalDeliveryFeeCents,
		AcceptsOffers:         input.AcceptsOffers,
		MinOfferCents:         input.MinOfferCents,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create listing")
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, sellerID, itemID uuid.UUID, input UpdateListingInput) (*models.StoreItem, error) {
	if sellerID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and listing id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if item.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		item.Title = *input.Title
	}
	if input.Description != nil {
		item.Description = input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		item.PriceCents = *input.PriceCents
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		item.Quantity = *input.Quantity
		if item.Quantity == 0 {
			item.Status = enums.ListingStatusSoldOut
		} else {
			item.Status = enums.ListingStatusActive
		}
	}
	if input.OffersShipping != nil {
		item.OffersShipping = *input.OffersShipping
	}
	if input.OffersLocalDelivery != nil {
		item.OffersLocalDelivery = *input.OffersLocalDelivery
	}
	if input.OffersPickup != nil {
		item.OffersPickup = *input.OffersPickup
	}
	if input.ShippingFeeCents != nil {
		item.ShippingFeeCents = *input.ShippingFeeCents
	}
	if input.LocalDeliveryFeeCents != nil {
		item.LocalDeliveryFeeCents = *input.LocalDeliveryFeeCents
	}
	if input.AcceptsOffers != nil {
		if *input.AcceptsOffers && item.ListingType != enums.ListingTypeResale {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "only resale listings accept offers")
		}
		item.AcceptsOffers = *input.AcceptsOffers
	}
	if input.MinOfferCents != nil {
		item.MinOfferCents = *input.MinOfferCents
	}
	if !item.OffersShipping && !item.OffersLocalDelivery && !item.OffersPickup {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing must offer at least one fulfillment mode")
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save listing")
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*models.StoreItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	return item, nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.StoreItem, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	items, err := s.repo.ListBySeller(ctx, sellerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listings")
	}
	return items, nil
}
