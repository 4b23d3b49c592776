// Package services – ListingService
//
// ListingService is the accessor for the listing resource. It builds entities
// from validated input, applies the merge and image-default rules on update,
// stamps timestamps and delegates persistence to a ListingRepo. Storage errors
// are returned unchanged; nothing here retries.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-listings/internal/domain"
)

// ListingRepo is the storage contract for listings. Lookups report absence as
// (nil, nil); Save on a missing listing returns domain.ErrNotFound.
type ListingRepo interface {
	// FindAll returns every listing, in store order.
	FindAll(ctx context.Context) ([]domain.Listing, error)
	// FindByID returns the listing or nil when absent.
	FindByID(ctx context.Context, id string) (*domain.Listing, error)
	// Insert persists a new listing and assigns its ID.
	Insert(ctx context.Context, l *domain.Listing) error
	// Save replaces the stored fields of an existing listing.
	Save(ctx context.Context, l *domain.Listing) error
	// DeleteByID removes the listing and returns it, or nil when absent.
	DeleteByID(ctx context.Context, id string) (*domain.Listing, error)
	// Count returns the number of stored listings.
	Count(ctx context.Context) (int64, error)
	// InsertMany bulk-inserts listings, assigning IDs.
	InsertMany(ctx context.Context, ls []*domain.Listing) error
	// DeleteAll removes every listing and reports how many were removed.
	DeleteAll(ctx context.Context) (int64, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

var tracer = otel.Tracer("github.com/tbourn/go-listings/internal/services")

// ListingService provides the listing CRUD operations.
type ListingService struct {
	// Repo is the listing store.
	Repo ListingRepo
	// Now returns the current time; tests may override it.
	Now func() time.Time
}

// NewListingService constructs a ListingService backed by r.
func NewListingService(r ListingRepo) *ListingService {
	return &ListingService{Repo: r, Now: func() time.Time { return time.Now().UTC() }}
}

// FindAll returns every listing.
func (s *ListingService) FindAll(ctx context.Context) ([]domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "listings.FindAll")
	defer span.End()

	out, err := s.Repo.FindAll(ctx)
	if err != nil {
		return nil, spanErr(span, err)
	}
	span.SetAttributes(attribute.Int("listings.count", len(out)))
	return out, nil
}

// FindByID returns the listing with the given id, or nil when it does not exist.
func (s *ListingService) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "listings.FindByID", trace.WithAttributes(attribute.String("listing.id", id)))
	defer span.End()

	l, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, spanErr(span, err)
	}
	return l, nil
}

// Create persists a new listing built from in and returns it with its ID.
func (s *ListingService) Create(ctx context.Context, in domain.ListingInput) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "listings.Create")
	defer span.End()

	l := domain.NewListing(in)
	now := s.Now()
	l.CreatedAt, l.UpdatedAt = now, now

	if err := s.Repo.Insert(ctx, l); err != nil {
		observeMutation(opCreate, err)
		return nil, spanErr(span, err)
	}
	observeMutation(opCreate, nil)
	span.SetAttributes(attribute.String("listing.id", l.ID))
	zerolog.Ctx(ctx).Info().Str("listing_id", l.ID).Msg("listing created")
	return l, nil
}

// Update merges in over the stored listing id and persists the result.
// It returns ErrListingNotFound when the listing does not exist.
func (s *ListingService) Update(ctx context.Context, id string, in domain.ListingInput) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "listings.Update", trace.WithAttributes(attribute.String("listing.id", id)))
	defer span.End()

	l, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		observeMutation(opUpdate, err)
		return nil, spanErr(span, err)
	}
	if l == nil {
		observeMutation(opUpdate, ErrListingNotFound)
		return nil, ErrListingNotFound
	}

	in.ApplyTo(l)
	l.UpdatedAt = s.Now()

	if err := s.Repo.Save(ctx, l); err != nil {
		observeMutation(opUpdate, err)
		return nil, spanErr(span, err)
	}
	observeMutation(opUpdate, nil)
	zerolog.Ctx(ctx).Info().Str("listing_id", l.ID).Msg("listing updated")
	return l, nil
}

// DeleteByID removes the listing and returns it, or nil when it did not exist.
func (s *ListingService) DeleteByID(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "listings.DeleteByID", trace.WithAttributes(attribute.String("listing.id", id)))
	defer span.End()

	l, err := s.Repo.DeleteByID(ctx, id)
	if err != nil {
		observeMutation(opDelete, err)
		return nil, spanErr(span, err)
	}
	if l == nil {
		observeMutation(opDelete, ErrListingNotFound)
		return nil, nil
	}
	observeMutation(opDelete, nil)
	zerolog.Ctx(ctx).Info().Str("listing_id", id).Msg("listing deleted")
	return l, nil
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
