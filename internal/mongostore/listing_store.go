package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tbourn/go-listings/internal/domain"
)

type imageDoc struct {
	Filename string `bson:"filename,omitempty"`
	URL      string `bson:"url"`
}

// listingDoc is the stored shape of a listing. IDs are ObjectIDs on disk and
// hex strings everywhere else.
type listingDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Image       imageDoc           `bson:"image"`
	Price       *float64           `bson:"price,omitempty"`
	Location    string             `bson:"location,omitempty"`
	Country     string             `bson:"country,omitempty"`
	Reviews     []string           `bson:"reviews"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func toDoc(l *domain.Listing) (listingDoc, error) {
	d := listingDoc{
		Title:       l.Title,
		Description: l.Description,
		Image:       imageDoc{Filename: l.Image.Filename, URL: l.Image.URL},
		Price:       l.Price,
		Location:    l.Location,
		Country:     l.Country,
		Reviews:     l.Reviews,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if d.Reviews == nil {
		d.Reviews = []string{}
	}
	if l.ID != "" {
		oid, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return listingDoc{}, err
		}
		d.ID = oid
	}
	return d, nil
}

// newDoc maps an unsaved listing to a document with a fresh ObjectID. Any ID
// already set on l is ignored and l is left untouched.
func newDoc(l *domain.Listing) (listingDoc, error) {
	c := *l
	c.ID = ""
	d, err := toDoc(&c)
	if err != nil {
		return listingDoc{}, fmt.Errorf("mongostore: map listing: %w", err)
	}
	d.ID = primitive.NewObjectID()
	return d, nil
}

func fromDoc(d listingDoc) domain.Listing {
	reviews := d.Reviews
	if reviews == nil {
		reviews = []string{}
	}
	return domain.Listing{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Image:       domain.Image{Filename: d.Image.Filename, URL: d.Image.URL},
		Price:       d.Price,
		Location:    d.Location,
		Country:     d.Country,
		Reviews:     reviews,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ListingStore keeps listings in one collection. It satisfies
// services.ListingRepo.
//
// An id that is not a valid ObjectID hex string can never match a stored
// document, so it is reported as absent instead of as an error.
type ListingStore struct {
	Client *mongo.Client
	Coll   *mongo.Collection
}

// NewListingStore binds a store to database/collection on client.
func NewListingStore(client *mongo.Client, database, collection string) *ListingStore {
	return &ListingStore{
		Client: client,
		Coll:   client.Database(database).Collection(collection),
	}
}

// FindAll returns every listing in insertion order.
func (s *ListingStore) FindAll(ctx context.Context) ([]domain.Listing, error) {
	cur, err := s.Coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Listing{}
	for cur.Next(ctx) {
		var d listingDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, fromDoc(d))
	}
	return out, cur.Err()
}

// FindByID returns the listing or nil when absent.
func (s *ListingStore) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var d listingDoc
	err = s.Coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l := fromDoc(d)
	return &l, nil
}

// Insert stores l and assigns it a fresh ObjectID.
func (s *ListingStore) Insert(ctx context.Context, l *domain.Listing) error {
	d, err := newDoc(l)
	if err != nil {
		return err
	}
	if _, err := s.Coll.InsertOne(ctx, d); err != nil {
		return err
	}
	l.ID = d.ID.Hex()
	l.Reviews = d.Reviews
	return nil
}

// InsertMany stores ls in one round trip, assigning ObjectIDs.
func (s *ListingStore) InsertMany(ctx context.Context, ls []*domain.Listing) error {
	if len(ls) == 0 {
		return nil
	}
	docs := make([]any, 0, len(ls))
	ids := make([]primitive.ObjectID, 0, len(ls))
	for _, l := range ls {
		d, err := newDoc(l)
		if err != nil {
			return err
		}
		docs = append(docs, d)
		ids = append(ids, d.ID)
	}
	if _, err := s.Coll.InsertMany(ctx, docs); err != nil {
		return err
	}
	for i, l := range ls {
		l.ID = ids[i].Hex()
		if l.Reviews == nil {
			l.Reviews = []string{}
		}
	}
	return nil
}

// Save replaces the stored document for l.ID.
func (s *ListingStore) Save(ctx context.Context, l *domain.Listing) error {
	d, err := toDoc(l)
	if err != nil || l.ID == "" {
		return domain.ErrNotFound
	}
	res, err := s.Coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: d.ID}}, d)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByID removes the listing and returns it, or nil when absent.
func (s *ListingStore) DeleteByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var d listingDoc
	err = s.Coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l := fromDoc(d)
	return &l, nil
}

// Count returns the number of documents in the collection.
func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	return s.Coll.CountDocuments(ctx, bson.D{})
}

// DeleteAll empties the collection.
func (s *ListingStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.Coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Ping checks the primary is reachable.
func (s *ListingStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *ListingStore) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
