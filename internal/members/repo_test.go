package members

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/northwest-community/marketplace-backend/pkg/db/models"
	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

func setupMembersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:members_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	stmts := []string{
		`CREATE TABLE members (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			plan TEXT NOT NULL DEFAULT 'none',
			plan_active INTEGER NOT NULL DEFAULT 0,
			points INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE seller_profiles (
			member_id TEXT PRIMARY KEY,
			business_name TEXT,
			accepts_cash INTEGER NOT NULL DEFAULT 0,
			carrier_account_id TEXT,
			origin_address TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func seedMember(t *testing.T, db *gorm.DB, points int) *models.Member {
	t.Helper()

	member := &models.Member{
		ID:          uuid.New(),
		DisplayName: "Avery",
		Email:       uuid.NewString() + "@example.com",
		Plan:        enums.MemberPlanNone,
		Points:      points,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return member
}

func TestAddPoints(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	member := seedMember(t, db, 10)

	ok, err := repo.AddPoints(ctx, member.ID, 25)
	if err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if !ok {
		t.Fatal("expected points update to apply")
	}

	got, err := repo.FindMemberByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("FindMemberByID: %v", err)
	}
	if got.Points != 35 {
		t.Fatalf("expected 35 points, got %d", got.Points)
	}
}

func TestAddPointsRejectsNegativeBalance(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	member := seedMember(t, db, 5)

	ok, err := repo.AddPoints(ctx, member.ID, -8)
	if err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if ok {
		t.Fatal("expected negative-balance update to be rejected")
	}

	got, err := repo.FindMemberByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("FindMemberByID: %v", err)
	}
	if got.Points != 5 {
		t.Fatalf("expected points unchanged at 5, got %d", got.Points)
	}
}

func TestFindSellerProfile(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	member := seedMember(t, db, 0)
	carrier := "ca_778899"
	profile := &models.SellerProfile{
		MemberID:         member.ID,
		AcceptsCash:      true,
		CarrierAccountID: &carrier,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	got, err := repo.FindSellerProfile(ctx, member.ID)
	if err != nil {
		t.Fatalf("FindSellerProfile: %v", err)
	}
	if !got.AcceptsCash {
		t.Fatal("expected accepts_cash to round-trip")
	}
	if !got.HasCarrierAccount() {
		t.Fatal("expected carrier account to be present")
	}
}
