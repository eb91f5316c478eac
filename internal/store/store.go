// Package store defines the database operations the purge workflow needs.
// Implementations live in the mongostore, mysqlstore and memstore packages.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrHintRejected is returned when the engine refuses an index hint, for
// example because no usable index exists for the query shape. Callers may
// retry the same operation without a hint.
var ErrHintRejected = errors.New("index hint rejected")

// MatchQuery selects records whose Field matches Pattern.
// It is a value type so the same predicate can be handed to every call.
type MatchQuery struct {
	Field           string
	Pattern         string
	CaseInsensitive bool
}

func (q MatchQuery) String() string {
	opts := ""
	if q.CaseInsensitive {
		opts = "i"
	}
	return fmt.Sprintf("%s =~ /%s/%s", q.Field, q.Pattern, opts)
}

// Hint asks the engine to use a specific index. Index may be empty, in
// which case implementations derive one from Field.
type Hint struct {
	Field string
	Index string
}

// IndexInfo describes an existing index.
type IndexInfo struct {
	Name   string
	Fields []string // key fields in index order
}

// Covers reports whether field is part of the index key.
func (i IndexInfo) Covers(field string) bool {
	for _, f := range i.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Leads reports whether field is the first key of the index.
func (i IndexInfo) Leads(field string) bool {
	return len(i.Fields) > 0 && i.Fields[0] == field
}

// Store is the database collaborator used by the purge workflow.
type Store interface {
	// CollectionExists reports whether the collection (or table) exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// ListIndexes returns the indexes defined on collection.
	ListIndexes(ctx context.Context, collection string) ([]IndexInfo, error)

	// CreateIndex creates a single-field index and returns its name.
	CreateIndex(ctx context.Context, collection, field string, ascending bool) (string, error)

	// Count returns the number of records matching q.
	Count(ctx context.Context, collection string, q MatchQuery, hint *Hint) (int64, error)

	// Find returns up to limit values of q.Field for matching records.
	Find(ctx context.Context, collection string, q MatchQuery, limit int64, hint *Hint) ([]string, error)

	// DeleteMany removes every record matching q and returns how many were removed.
	DeleteMany(ctx context.Context, collection string, q MatchQuery, hint *Hint) (int64, error)

	// Name identifies the backend and database, for reporting.
	Name() string
}

// FindCovering returns the best index for field: one led by field if
// present, otherwise any index that includes it.
func FindCovering(indexes []IndexInfo, field string) (IndexInfo, bool) {
	var covering *IndexInfo
	for i := range indexes {
		if indexes[i].Leads(field) {
			return indexes[i], true
		}
		if covering == nil && indexes[i].Covers(field) {
			covering = &indexes[i]
		}
	}
	if covering != nil {
		return *covering, true
	}
	return IndexInfo{}, false
}
