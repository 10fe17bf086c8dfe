package offers

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/internal/listings"
	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/outbox"
)

type memOffersRepo struct {
	offers map[uuid.UUID]*models.ResaleOffer
}

func newMemOffersRepo() *memOffersRepo {
	return &memOffersRepo{offers: make(map[uuid.UUID]*models.ResaleOffer)}
}

func (m *memOffersRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memOffersRepo) Create(ctx context.Context, offer *models.ResaleOffer) error {
	offer.CreatedAt = time.Now()
	m.offers[offer.ID] = offer
	return nil
}

func (m *memOffersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ResaleOffer, error) {
	offer, ok := m.offers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *offer
	return &copied, nil
}

func (m *memOffersRepo) HasPending(ctx context.Context, buyerID, storeItemID uuid.UUID) (bool, error) {
	for _, offer := range m.offers {
		if offer.BuyerID == buyerID && offer.StoreItemID == storeItemID && offer.Status == enums.OfferStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memOffersRepo) CountInWindow(ctx context.Context, buyerID, storeItemID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	for _, offer := range m.offers {
		if offer.BuyerID == buyerID && offer.StoreItemID == storeItemID && !offer.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memOffersRepo) Decide(ctx context.Context, id uuid.UUID, status enums.OfferStatus, decidedAt time.Time) (bool, error) {
	offer, ok := m.offers[id]
	if !ok || offer.Status != enums.OfferStatusPending {
		return false, nil
	}
	offer.Status = status
	offer.DecidedAt = &decidedAt
	return true, nil
}

func (m *memOffersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.ResaleOffer, error) {
	var out []models.ResaleOffer
	for _, offer := range m.offers {
		if offer.BuyerID == buyerID {
			out = append(out, *offer)
		}
	}
	return out, nil
}

func (m *memOffersRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.ResaleOffer, error) {
	var out []models.ResaleOffer
	for _, offer := range m.offers {
		if offer.SellerID == sellerID {
			out = append(out, *offer)
		}
	}
	return out, nil
}

type memListingsRepo struct {
	items map[uuid.UUID]*models.StoreItem
}

func newMemListingsRepo() *memListingsRepo {
	return &memListingsRepo{items: make(map[uuid.UUID]*models.StoreItem)}
}

func (m *memListingsRepo) WithTx(tx *gorm.DB) listings.Repository            { return m }
func (m *memListingsRepo) Create(ctx context.Context, item *models.StoreItem) error { return nil }
func (m *memListingsRepo) Save(ctx context.Context, item *models.StoreItem) error   { return nil }

func (m *memListingsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.StoreItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memListingsRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.StoreItem, error) {
	return nil, nil
}

func (m *memListingsRepo) DecrementQuantity(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	return false, nil
}

func (m *memListingsRepo) RestoreQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	return nil
}

type passRunner struct{}

func (passRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type offersFixture struct {
	svc      Service
	repo     *memOffersRepo
	listings *memListingsRepo
	emitter  *recordingEmitter
}

func newOffersFixture(t *testing.T) *offersFixture {
	t.Helper()

	fx := &offersFixture{
		repo:     newMemOffersRepo(),
		listings: newMemListingsRepo(),
		emitter:  &recordingEmitter{},
	}
	cfg := config.OffersConfig{MaxPerWindow: 3, Window: 24 * time.Hour}
	logg := logger.New(logger.Options{ServiceName: "offers-test", Output: io.Discard})
	svc, err := NewService(fx.repo, fx.listings, fx.emitter, passRunner{}, cfg, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fx.svc = svc
	return fx
}

func (fx *offersFixture) seedResaleListing(mutate func(*models.StoreItem)) *models.StoreItem {
	item := &models.StoreItem{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Title:         "Vintage rain shell",
		PriceCents:    4500,
		Quantity:      1,
		Status:        enums.ListingStatusActive,
		ListingType:   enums.ListingTypeResale,
		AcceptsOffers: true,
		MinOfferCents: 2000,
		OffersPickup:  true,
	}
	if mutate != nil {
		mutate(item)
	}
	fx.listings.items[item.ID] = item
	return item
}

func TestSubmitOffer(t *testing.T) {
	fx := newOffersFixture(t)
	item := fx.seedResaleListing(nil)
	buyerID := uuid.New()

	offer, err := fx.svc.Submit(context.Background(), buyerID, SubmitInput{
		StoreItemID: item.ID,
		AmountCents: 3000,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if offer.Status != enums.OfferStatusPending {
		t.Fatalf("expected pending, got %s", offer.Status)
	}
	if offer.SellerID != item.SellerID {
		t.Fatal("expected seller id copied from the listing")
	}
	if len(fx.emitter.events) != 1 || fx.emitter.events[0].EventType != enums.EventOfferSubmitted {
		t.Fatalf("expected offer_submitted event, got %+v", fx.emitter.events)
	}
}

func TestSubmitOfferValidation(t *testing.T) {
	fx := newOffersFixture(t)
	buyerID := uuid.New()

	resale := fx.seedResaleListing(nil)
	newItem := fx.seedResaleListing(func(item *models.StoreItem) {
		item.ListingType = enums.ListingTypeNew
	})
	noOffers := fx.seedResaleListing(func(item *models.StoreItem) {
		item.AcceptsOffers = false
	})
	soldOut := fx.seedResaleListing(func(item *models.StoreItem) {
		item.Quantity = 0
		item.Status = enums.ListingStatusSoldOut
	})
	own := fx.seedResaleListing(func(item *models.StoreItem) {
		item.SellerID = buyerID
	})

	cases := []struct {
		name   string
		itemID uuid.UUID
		amount int
		code   pkgerrors.Code
	}{
		{"below minimum", resale.ID, 1500, pkgerrors.CodeValidation},
		{"not resale", newItem.ID, 3000, pkgerrors.CodeValidation},
		{"offers disabled", noOffers.ID, 3000, pkgerrors.CodeValidation},
		{"sold out", soldOut.ID, 3000, pkgerrors.CodeStateConflict},
		{"own listing", own.ID, 3000, pkgerrors.CodeValidation},
		{"unknown listing", uuid.New(), 3000, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Submit(context.Background(), buyerID, SubmitInput{
				StoreItemID: tc.itemID,
				AmountCents: tc.amount,
			})
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestSubmitOfferOnePendingRule(t *testing.T) {
	fx := newOffersFixture(t)
	item := fx.seedResaleListing(nil)
	buyerID := uuid.New()

	if _, err := fx.svc.Submit(context.Background(), buyerID, SubmitInput{StoreItemID: item.ID, AmountCents: 3000}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := fx.svc.Submit(context.Background(), buyerID, SubmitInput{StoreItemID: item.ID, AmountCents: 3200})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestSubmitOfferWindowLimit(t *testing.T) {
	fx := newOffersFixture(t)
	item := fx.seedResaleListing(nil)
	buyerID := uuid.New()
	sellerID := item.SellerID

	for i := 0; i < 3; i++ {
		offer, err := fx.svc.Submit(context.Background(), buyerID, SubmitInput{StoreItemID: item.ID, AmountCents: 3000 + i*100})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		if _, err := fx.svc.Decide(context.Background(), sellerID, offer.ID, false); err != nil {
			t.Fatalf("Decide %d: %v", i, err)
		}
	}

	_, err := fx.svc.Submit(context.Background(), buyerID, SubmitInput{StoreItemID: item.ID, AmountCents: 3500})
	if !pkgerrors.IsCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %v", err)
	}
}

func TestDecideOffer(t *testing.T) {
	fx := newOffersFixture(t)
	item := fx.seedResaleListing(nil)
	buyerID := uuid.New()

	offer, err := fx.svc.Submit(context.Background(), buyerID, SubmitInput{StoreItemID: item.ID, AmountCents: 3000})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	decided, err := fx.svc.Decide(context.Background(), item.SellerID, offer.ID, true)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != enums.OfferStatusAccepted {
		t.Fatalf("expected accepted, got %s", decided.Status)
	}
	if decided.DecidedAt == nil {
		t.Fatal("expected decided_at set")
	}

	// Listing and inventory are untouched: the buyer still checks out.
	if fx.listings.items[item.ID].Quantity != 1 {
		t.Fatal("acceptance must not move inventory")
	}

	_, err = fx.svc.Decide(context.Background(), item.SellerID, offer.ID, false)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT on replay, got %v", err)
	}
}

func TestDecideRejectsWrongSeller(t *testing.T) {
	fx := newOffersFixture(t)
	item := fx.seedResaleListing(nil)

	offer, err := fx.svc.Submit(context.Background(), uuid.New(), SubmitInput{StoreItemID: item.ID, AmountCents: 3000})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err = fx.svc.Decide(context.Background(), uuid.New(), offer.ID, true)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}
