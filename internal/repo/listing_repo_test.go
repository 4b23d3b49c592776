package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-listings/internal/domain"
)

func newListingDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("listing_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newListing(title string, created time.Time) *domain.Listing {
	l := &domain.Listing{Title: title, CreatedAt: created, UpdatedAt: created}
	l.Image.SetURL("")
	return l
}

func TestCreateListing_Error_NoTable(t *testing.T) {
	db := newListingDB(t, false)
	if err := CreateListing(context.Background(), db, newListing("t", time.Now())); err == nil {
		t.Fatalf("expected error creating without table")
	}
}

func TestCreateListing_AssignsIDAndRoundTrips(t *testing.T) {
	db := newListingDB(t, true)
	ctx := context.Background()

	price := 100.0
	l := newListing("Cabin", time.Now().UTC())
	l.Price = &price
	l.Location, l.Country = "X", "Y"

	if err := CreateListing(ctx, db, l); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	if l.ID == "" {
		t.Fatalf("expected ID to be assigned")
	}

	got, err := GetListing(ctx, db, l.ID)
	if err != nil || got == nil {
		t.Fatalf("GetListing: got=%v err=%v", got, err)
	}
	if got.Title != "Cabin" || got.Price == nil || *got.Price != 100 || got.Location != "X" || got.Country != "Y" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.Image.URL != domain.PlaceholderImageURL {
		t.Fatalf("image url = %q", got.Image.URL)
	}
	if got.Reviews == nil || len(got.Reviews) != 0 {
		t.Fatalf("reviews should be an empty list, got %#v", got.Reviews)
	}
}

func TestGetListing_Absent(t *testing.T) {
	db := newListingDB(t, true)
	got, err := GetListing(context.Background(), db, "nope")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestListListings_OldestFirst(t *testing.T) {
	db := newListingDB(t, true)
	ctx := context.Background()

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, title := range []string{"C", "A", "B"} {
		// created in reverse of insertion order
		if err := CreateListing(ctx, db, newListing(title, t1.Add(time.Duration(-i)*time.Hour))); err != nil {
			t.Fatalf("seed %s: %v", title, err)
		}
	}

	list, err := ListListings(ctx, db)
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(list) != 3 || list[0].Title != "B" || list[1].Title != "A" || list[2].Title != "C" {
		t.Fatalf("unexpected order: %#v", list)
	}
}

func TestSaveListing_OverwritesZeroValues(t *testing.T) {
	db := newListingDB(t, true)
	ctx := context.Background()

	price := 10.0
	l := newListing("Old", time.Now().UTC())
	l.Price = &price
	l.Description = "desc"
	if err := CreateListing(ctx, db, l); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	l.Title = "New"
	l.Price = nil
	l.Description = ""
	l.Image = domain.Image{Filename: "f", URL: "https://example.com/f.jpg"}
	if err := SaveListing(ctx, db, l); err != nil {
		t.Fatalf("SaveListing: %v", err)
	}

	got, err := GetListing(ctx, db, l.ID)
	if err != nil || got == nil {
		t.Fatalf("GetListing: %v", err)
	}
	if got.Title != "New" || got.Price != nil || got.Description != "" || got.Image.Filename != "f" {
		t.Fatalf("save did not overwrite: %+v", got)
	}
}

func TestSaveListing_NotFound(t *testing.T) {
	db := newListingDB(t, true)
	err := SaveListing(context.Background(), db, &domain.Listing{ID: "ghost", Title: "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteListing(t *testing.T) {
	db := newListingDB(t, true)
	ctx := context.Background()

	l := newListing("Gone", time.Now().UTC())
	if err := CreateListing(ctx, db, l); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	deleted, err := DeleteListing(ctx, db, l.ID)
	if err != nil || deleted == nil || deleted.ID != l.ID {
		t.Fatalf("DeleteListing: deleted=%v err=%v", deleted, err)
	}

	again, err := DeleteListing(ctx, db, l.ID)
	if err != nil || again != nil {
		t.Fatalf("second delete should be (nil, nil), got (%v, %v)", again, err)
	}
	if got, _ := GetListing(ctx, db, l.ID); got != nil {
		t.Fatalf("listing still present after delete")
	}
}

func TestCreateListings_CountAndDeleteAll(t *testing.T) {
	db := newListingDB(t, true)
	ctx := context.Background()

	if err := CreateListings(ctx, db, nil); err != nil {
		t.Fatalf("empty bulk insert should be a no-op: %v", err)
	}

	now := time.Now().UTC()
	batch := []*domain.Listing{newListing("a", now), newListing("b", now), newListing("c", now)}
	if err := CreateListings(ctx, db, batch); err != nil {
		t.Fatalf("CreateListings: %v", err)
	}
	for _, l := range batch {
		if l.ID == "" {
			t.Fatalf("bulk insert should assign IDs")
		}
	}

	n, err := CountListings(ctx, db)
	if err != nil || n != 3 {
		t.Fatalf("CountListings = %d, %v", n, err)
	}

	removed, err := DeleteAllListings(ctx, db)
	if err != nil || removed != 3 {
		t.Fatalf("DeleteAllListings = %d, %v", removed, err)
	}
	if n, _ := CountListings(ctx, db); n != 0 {
		t.Fatalf("expected empty table, got %d", n)
	}
}

func TestListingStore_ProxiesAndLifecycle(t *testing.T) {
	db := newListingDB(t, true)
	s := NewListingStore(db)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	l := newListing("Proxy", time.Now().UTC())
	if err := s.Insert(ctx, l); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.InsertMany(ctx, []*domain.Listing{newListing("two", time.Now().UTC())}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	if n, err := s.Count(ctx); err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	all, err := s.FindAll(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("FindAll = %d, %v", len(all), err)
	}

	l.Title = "Proxy 2"
	if err := s.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.FindByID(ctx, l.ID)
	if err != nil || got == nil || got.Title != "Proxy 2" {
		t.Fatalf("FindByID: %v %v", got, err)
	}
	if d, err := s.DeleteByID(ctx, l.ID); err != nil || d == nil {
		t.Fatalf("DeleteByID: %v %v", d, err)
	}
	if n, err := s.DeleteAll(ctx); err != nil || n != 1 {
		t.Fatalf("DeleteAll = %d, %v", n, err)
	}

	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); err == nil {
		t.Fatalf("Ping after Close should fail")
	}
}
