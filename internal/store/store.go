package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"newswire/internal/article"
)

const (
	defaultDatabase = "news"
	collectionName  = "articles"
)

type Metrics interface {
	ObserveStore(method string, err error, duration time.Duration)
}

// Store wraps the articles collection: content-hash dedup upserts and
// watermark-ordered scans for the indexer.
type Store struct {
	col     *mongo.Collection
	metrics Metrics
}

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// DatabaseName extracts the database from a mongodb:// URI path, defaulting
// to "news" when the URI names none.
func DatabaseName(uri string) string {
	rest := uri
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[idx+1:]
	} else {
		return defaultDatabase
	}
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" {
		return defaultDatabase
	}
	return rest
}

func New(db *mongo.Database, metrics Metrics) *Store {
	return &Store{col: db.Collection(collectionName), metrics: metrics}
}

func (s *Store) observe(method string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStore(method, err, time.Since(start))
	}
}

// EnsureIndexes creates the dedup and facet indexes. Creation is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("EnsureIndexes", err, start) }(time.Now())

	_, err = s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "canonical_url", Value: 1}}},
		{Keys: bson.D{{Key: "hash", Value: 1}}},
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "published_at", Value: -1}}},
	})
	return err
}

type UpsertResult struct {
	// Inserted reports a record version that did not exist before.
	Inserted bool
}

// Upsert writes rec keyed by (canonical_url, hash). An existing pair has its
// fields (including updated) replaced; a new pair becomes a new record
// version. Redelivery of the same page is therefore harmless.
func (s *Store) Upsert(ctx context.Context, rec article.Record) (res UpsertResult, err error) {
	defer func(start time.Time) { s.observe("Upsert", err, start) }(time.Now())

	selector := bson.M{"canonical_url": rec.CanonicalURL, "hash": rec.Hash}
	update := bson.M{"$set": rec}

	out, err := s.col.UpdateOne(ctx, selector, update, options.Update().SetUpsert(true))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert article: %w", err)
	}
	return UpsertResult{Inserted: out.UpsertedCount > 0}, nil
}

type storedRecord struct {
	ID             primitive.ObjectID `bson:"_id"`
	article.Record `bson:",inline"`
}

// ScanUpdatedSince streams records with updated strictly greater than since,
// ascending by updated, invoking fn for each. An empty since scans from the
// beginning. fn returning an error aborts the scan.
func (s *Store) ScanUpdatedSince(ctx context.Context, since string, fn func(article.Record) error) (err error) {
	defer func(start time.Time) { s.observe("ScanUpdatedSince", err, start) }(time.Now())

	filter := bson.M{}
	if since != "" {
		filter["updated"] = bson.M{"$gt": since}
	}

	cursor, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated", Value: 1}}))
	if err != nil {
		return fmt.Errorf("scan articles: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var stored storedRecord
		if err = cursor.Decode(&stored); err != nil {
			return fmt.Errorf("decode article: %w", err)
		}
		rec := stored.Record
		rec.ID = stored.ID.Hex()
		if err = fn(rec); err != nil {
			return err
		}
	}
	return cursor.Err()
}
