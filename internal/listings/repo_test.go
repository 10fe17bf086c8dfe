package listings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

func setupListingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:listings_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	storeItems := `
CREATE TABLE IF NOT EXISTS store_items (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active',
  listing_type TEXT NOT NULL DEFAULT 'new',
  offers_shipping INTEGER NOT NULL DEFAULT 0,
  offers_local_delivery INTEGER NOT NULL DEFAULT 0,
  offers_pickup INTEGER NOT NULL DEFAULT 1,
  shipping_fee_cents INTEGER NOT NULL DEFAULT 0,
  local_delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  accepts_offers INTEGER NOT NULL DEFAULT 0,
  min_offer_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(storeItems).Error; err != nil {
		t.Fatalf("create store_items: %v", err)
	}
	return db
}

func seedListing(t *testing.T, db *gorm.DB, qty int, status enums.ListingStatus) *models.StoreItem {
	t.Helper()
	item := &models.StoreItem{
		ID:          uuid.New(),
		SellerID:    uuid.New(),
		Title:       "Vintage camera",
		PriceCents:  4500,
		Quantity:    qty,
		Status:      status,
		ListingType: enums.ListingTypeResale,
		OffersPickup: true,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return item
}

func TestDecrementQuantity(t *testing.T) {
	t.Parallel()

	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	item := seedListing(t, db, 3, enums.ListingStatusActive)

	ok, err := repo.DecrementQuantity(ctx, item.ID, 2)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if !ok {
		t.Fatal("expected decrement to succeed")
	}

	got, err := repo.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", got.Quantity)
	}
	if got.Status != enums.ListingStatusActive {
		t.Fatalf("expected active, got %s", got.Status)
	}

	// Taking the last unit flips the listing to sold out.
	ok, err = repo.DecrementQuantity(ctx, item.ID, 1)
	if err != nil {
		t.Fatalf("decrement last: %v", err)
	}
	if !ok {
		t.Fatal("expected final decrement to succeed")
	}
	got, err = repo.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Quantity != 0 || got.Status != enums.ListingStatusSoldOut {
		t.Fatalf("expected sold out at zero, got qty=%d status=%s", got.Quantity, got.Status)
	}
}

func TestDecrementQuantityInsufficientStock(t *testing.T) {
	t.Parallel()

	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	item := seedListing(t, db, 1, enums.ListingStatusActive)

	ok, err := repo.DecrementQuantity(ctx, item.ID, 2)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if ok {
		t.Fatal("expected decrement to be rejected")
	}

	got, err := repo.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Quantity != 1 {
		t.Fatalf("quantity should be untouched, got %d", got.Quantity)
	}
}

func TestDecrementQuantityInactiveListing(t *testing.T) {
	t.Parallel()

	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	item := seedListing(t, db, 5, enums.ListingStatusSoldOut)

	ok, err := repo.DecrementQuantity(ctx, item.ID, 1)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if ok {
		t.Fatal("sold out listings must not sell")
	}
}

func TestRestoreQuantityReactivates(t *testing.T) {
	t.Parallel()

	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	item := seedListing(t, db, 0, enums.ListingStatusSoldOut)

	if err := repo.RestoreQuantity(ctx, item.ID, 2); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got, err := repo.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", got.Quantity)
	}
	if got.Status != enums.ListingStatusActive {
		t.Fatalf("expected listing reactivated, got %s", got.Status)
	}
}
