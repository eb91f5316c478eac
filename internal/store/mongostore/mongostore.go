// Package mongostore implements store.Store on top of the official MongoDB driver.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dbsmedya/gopurge/internal/store"
	"github.com/dbsmedya/gopurge/internal/types"
)

// Store runs purge operations against one MongoDB database.
type Store struct {
	db *mongo.Database
}

var _ store.Store = (*Store)(nil)

// New creates a Store for the given database handle.
func New(db *mongo.Database) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	return &Store{db: db}, nil
}

// Name implements store.Store.
func (s *Store) Name() string {
	return "mongodb/" + s.db.Name()
}

// CollectionExists implements store.Store.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ListIndexes implements store.Store.
func (s *Store) ListIndexes(ctx context.Context, collection string) ([]store.IndexInfo, error) {
	specs, err := s.db.Collection(collection).Indexes().ListSpecifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}

	indexes := make([]store.IndexInfo, 0, len(specs))
	for _, spec := range specs {
		elems, err := spec.KeysDocument.Elements()
		if err != nil {
			return nil, fmt.Errorf("failed to decode keys of index %s: %w", spec.Name, err)
		}
		info := store.IndexInfo{Name: spec.Name}
		for _, e := range elems {
			info.Fields = append(info.Fields, e.Key())
		}
		indexes = append(indexes, info)
	}
	return indexes, nil
}

// CreateIndex implements store.Store.
func (s *Store) CreateIndex(ctx context.Context, collection, field string, ascending bool) (string, error) {
	dir := 1
	if !ascending {
		dir = -1
	}
	name, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: field, Value: dir}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create index on %s.%s: %w", collection, field, err)
	}
	return name, nil
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context, collection string, q store.MatchQuery, hint *store.Hint) (int64, error) {
	opts := options.Count()
	if hint != nil {
		opts.SetHint(hintValue(hint))
	}

	n, err := s.db.Collection(collection).CountDocuments(ctx, Filter(q), opts)
	if err != nil {
		return 0, classify("count", err)
	}
	return n, nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, collection string, q store.MatchQuery, limit int64, hint *store.Hint) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.D{{Key: q.Field, Value: 1}, {Key: "_id", Value: 0}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if hint != nil {
		opts.SetHint(hintValue(hint))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, Filter(q), opts)
	if err != nil {
		return nil, classify("find", err)
	}
	defer cursor.Close(ctx)

	// Dotted fields come back nested, so walk the path instead of indexing.
	path := strings.Split(q.Field, ".")
	var ids []string
	for cursor.Next(ctx) {
		if id := displayValue(cursor.Current.Lookup(path...)); id != "" {
			ids = append(ids, id)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, classify("find", err)
	}
	return ids, nil
}

// DeleteMany implements store.Store.
func (s *Store) DeleteMany(ctx context.Context, collection string, q store.MatchQuery, hint *store.Hint) (int64, error) {
	opts := options.Delete()
	if hint != nil {
		opts.SetHint(hintValue(hint))
	}

	res, err := s.db.Collection(collection).DeleteMany(ctx, Filter(q), opts)
	if err != nil {
		return 0, classify("delete", err)
	}
	return res.DeletedCount, nil
}

// Filter builds the regex filter for q.
func Filter(q store.MatchQuery) bson.M {
	opts := ""
	if q.CaseInsensitive {
		opts = "i"
	}
	return bson.M{q.Field: primitive.Regex{Pattern: q.Pattern, Options: opts}}
}

// hintValue prefers the index name; otherwise it hints the ascending key pattern.
func hintValue(h *store.Hint) interface{} {
	if h.Index != "" {
		return h.Index
	}
	return bson.D{{Key: h.Field, Value: 1}}
}

// classify maps hint failures onto store.ErrHintRejected.
func classify(op string, err error) error {
	if IsHintRejection(err) {
		return fmt.Errorf("%s: %w: %w", op, store.ErrHintRejected, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// IsHintRejection reports whether err means the server (or the driver,
// for servers too old to take a hint) refused the index hint.
func IsHintRejection(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorMessage("hint")
	}
	return strings.Contains(strings.ToLower(err.Error()), "'hint'")
}

// displayValue renders a looked-up identifier. Missing and null values
// render as the empty string.
func displayValue(v bson.RawValue) string {
	if len(v.Value) == 0 {
		return ""
	}
	if str, ok := v.StringValueOK(); ok {
		return str
	}
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}
	var out interface{}
	if err := v.Unmarshal(&out); err != nil {
		return v.String()
	}
	return types.ToDisplayString(out)
}
