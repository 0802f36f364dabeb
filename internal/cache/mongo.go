package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// cachedListing is the stored document: the listing plus its save time.
type cachedListing struct {
	types.Listing `bson:",inline"`
	CachedAt      time.Time `bson:"cached_at"`
}

// MongoCache stores listings in a MongoDB collection, one document per
// listing, replaced per source on every save.
type MongoCache struct {
	client     *mongo.Client
	collection *mongo.Collection
	maxAge     time.Duration
	logger     *slog.Logger
}

// NewMongoCache connects to MongoDB and ensures the source index.
func NewMongoCache(ctx context.Context, uri, database, collection string, maxAge time.Duration, logger *slog.Logger) (*MongoCache, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb cache: mongo_uri is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "source", Value: 1}, {Key: "cached_at", Value: -1}},
	})
	if err != nil {
		logger.Warn("mongodb cache index not created", "error", err)
	}

	return &MongoCache{
		client:     client,
		collection: coll,
		maxAge:     maxAge,
		logger:     logger.With("component", "mongo_cache"),
	}, nil
}

func (c *MongoCache) Name() string { return "mongodb" }

// Save deletes the previous documents of source and inserts listings.
func (c *MongoCache) Save(ctx context.Context, source string, listings []*types.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := c.collection.DeleteMany(ctx, bson.M{"source": source}); err != nil {
		return &types.StorageError{Backend: c.Name(), Op: "save", Err: err}
	}
	if len(listings) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]any, len(listings))
	for i, l := range listings {
		doc := cachedListing{Listing: *l, CachedAt: now}
		doc.Source = source
		docs[i] = doc
	}

	if _, err := c.collection.InsertMany(ctx, docs); err != nil {
		return &types.StorageError{Backend: c.Name(), Op: "save", Err: fmt.Errorf("mongodb insert: %w", err)}
	}

	c.logger.Info("listings cached", "source", source, "listings", len(listings))
	return nil
}

// Load returns the cached documents of source in insertion order.
func (c *MongoCache) Load(ctx context.Context, source string) ([]*types.Listing, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cur, err := c.collection.Find(ctx, bson.M{"source": source}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, time.Time{}, &types.StorageError{Backend: c.Name(), Op: "load", Err: err}
	}
	defer cur.Close(ctx)

	var docs []cachedListing
	if err := cur.All(ctx, &docs); err != nil {
		return nil, time.Time{}, &types.StorageError{Backend: c.Name(), Op: "load", Err: err}
	}
	if len(docs) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w for %s", types.ErrCacheMiss, source)
	}

	savedAt := docs[0].CachedAt
	if stale(savedAt, c.maxAge) {
		return nil, savedAt, fmt.Errorf("%w for %s: saved %s ago", types.ErrCacheMiss, source, time.Since(savedAt).Round(time.Minute))
	}

	listings := make([]*types.Listing, len(docs))
	for i := range docs {
		l := docs[i].Listing
		listings[i] = &l
	}
	return listings, savedAt, nil
}

func (c *MongoCache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}
