// Package repo – listing persistence.
//
// The free functions follow the "thin repository" approach: no business
// rules, only CRUD and query composition, each taking a *gorm.DB so they can
// run inside transactions. ListingStore binds them to one handle and
// satisfies services.ListingRepo.
//
// Error semantics:
//   - Lookups return (nil, nil) when the listing does not exist.
//   - SaveListing returns domain.ErrNotFound when no row matched.
//   - Other DB errors are returned unchanged.
package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-listings/internal/domain"
)

// CreateListing inserts l, assigning a UUID when l.ID is empty.
func CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) error {
	prepare(l)
	return db.WithContext(ctx).Create(l).Error
}

// CreateListings bulk-inserts ls in one statement batch.
func CreateListings(ctx context.Context, db *gorm.DB, ls []*domain.Listing) error {
	if len(ls) == 0 {
		return nil
	}
	for _, l := range ls {
		prepare(l)
	}
	return db.WithContext(ctx).CreateInBatches(ls, 100).Error
}

// ListListings returns every listing, oldest first.
func ListListings(ctx context.Context, db *gorm.DB) ([]domain.Listing, error) {
	var out []domain.Listing
	err := db.WithContext(ctx).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// GetListing fetches a listing by ID, returning nil when it does not exist.
func GetListing(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error) {
	var l domain.Listing
	err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveListing overwrites every column of an existing listing except its ID
// and creation time. Zero values are written too.
func SaveListing(ctx context.Context, db *gorm.DB, l *domain.Listing) error {
	res := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ?", l.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(l)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteListing removes a listing and returns it, or nil when it did not exist.
func DeleteListing(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error) {
	var deleted *domain.Listing
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := GetListing(ctx, tx, id)
		if err != nil || l == nil {
			return err
		}
		if err := tx.Delete(&domain.Listing{}, "id = ?", id).Error; err != nil {
			return err
		}
		deleted = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// CountListings returns the number of stored listings.
func CountListings(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Listing{}).Count(&n).Error
	return n, err
}

// DeleteAllListings removes every listing.
func DeleteAllListings(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Where("1 = 1").Delete(&domain.Listing{})
	return res.RowsAffected, res.Error
}

func prepare(l *domain.Listing) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Reviews == nil {
		l.Reviews = []string{}
	}
}

// ListingStore adapts the free functions to services.ListingRepo.
type ListingStore struct {
	DB *gorm.DB
}

// NewListingStore returns a ListingStore over db.
func NewListingStore(db *gorm.DB) *ListingStore { return &ListingStore{DB: db} }

// FindAll proxies ListListings.
func (s *ListingStore) FindAll(ctx context.Context) ([]domain.Listing, error) {
	return ListListings(ctx, s.DB)
}

// FindByID proxies GetListing.
func (s *ListingStore) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	return GetListing(ctx, s.DB, id)
}

// Insert proxies CreateListing.
func (s *ListingStore) Insert(ctx context.Context, l *domain.Listing) error {
	return CreateListing(ctx, s.DB, l)
}

// Save proxies SaveListing.
func (s *ListingStore) Save(ctx context.Context, l *domain.Listing) error {
	return SaveListing(ctx, s.DB, l)
}

// DeleteByID proxies DeleteListing.
func (s *ListingStore) DeleteByID(ctx context.Context, id string) (*domain.Listing, error) {
	return DeleteListing(ctx, s.DB, id)
}

// Count proxies CountListings.
func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	return CountListings(ctx, s.DB)
}

// InsertMany proxies CreateListings.
func (s *ListingStore) InsertMany(ctx context.Context, ls []*domain.Listing) error {
	return CreateListings(ctx, s.DB, ls)
}

// DeleteAll proxies DeleteAllListings.
func (s *ListingStore) DeleteAll(ctx context.Context) (int64, error) {
	return DeleteAllListings(ctx, s.DB)
}

// Ping checks the underlying connection.
func (s *ListingStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *ListingStore) Close(context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
