// Package memstore is an in-memory store.Store used to exercise the purge
// workflow without a database. It mimics engine behavior that matters to
// the workflow: regex matching, hint rejection without an index, and
// injectable failures.
package memstore

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/dbsmedya/gopurge/internal/store"
)

// Method names recorded in the call log.
const (
	MethodCollectionExists = "CollectionExists"
	MethodListIndexes      = "ListIndexes"
	MethodCreateIndex      = "CreateIndex"
	MethodCount            = "Count"
	MethodFind             = "Find"
	MethodDeleteMany       = "DeleteMany"
)

// Document is a single record.
type Document map[string]interface{}

// Call is one recorded invocation.
type Call struct {
	Method string
	Hinted bool
	Query  store.MatchQuery // zero for methods that take no query
}

type collection struct {
	docs    []Document
	indexes []store.IndexInfo
}

// Store is a goroutine-safe in-memory implementation of store.Store.
type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
	calls       []Call

	// Fault injection. A non-nil error is returned by the matching method.
	CountErr       error
	CreateIndexErr error
	FindErr        error
	DeleteErr      error

	// AcceptAllHints disables hint rejection for collections without a
	// matching index.
	AcceptAllHints bool

	// AfterDelete runs after a successful DeleteMany, outside the lock.
	// Tests use it to simulate concurrent writers.
	AfterDelete func(s *Store)
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Name implements store.Store.
func (s *Store) Name() string { return "memory" }

// AddCollection creates (or appends to) a collection.
func (s *Store) AddCollection(name string, docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{indexes: []store.IndexInfo{{Name: "_id_", Fields: []string{"_id"}}}}
		s.collections[name] = c
	}
	c.docs = append(c.docs, docs...)
}

// AddIndex registers an index on an existing collection.
func (s *Store) AddIndex(name string, idx store.IndexInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		c.indexes = append(c.indexes, idx)
	}
}

// Docs returns a copy of the documents in a collection.
func (s *Store) Docs(name string) []Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Calls returns how many times method was invoked.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// CallLog returns every recorded call in order.
func (s *Store) CallLog() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CollectionExists implements store.Store.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(MethodCollectionExists, store.MatchQuery{}, nil)

	_, ok := s.collections[name]
	return ok, nil
}

// ListIndexes implements store.Store.
func (s *Store) ListIndexes(ctx context.Context, name string) ([]store.IndexInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(MethodListIndexes, store.MatchQuery{}, nil)

	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	out := make([]store.IndexInfo, len(c.indexes))
	copy(out, c.indexes)
	return out, nil
}

// CreateIndex implements store.Store.
func (s *Store) CreateIndex(ctx context.Context, name, field string, ascending bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(MethodCreateIndex, store.MatchQuery{}, nil)

	if s.CreateIndexErr != nil {
		return "", s.CreateIndexErr
	}
	c, err := s.get(name)
	if err != nil {
		return "", err
	}

	dir := 1
	if !ascending {
		dir = -1
	}
	idxName := fmt.Sprintf("%s_%d", field, dir)
	c.indexes = append(c.indexes, store.IndexInfo{Name: idxName, Fields: []string{field}})
	return idxName, nil
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context, name string, q store.MatchQuery, hint *store.Hint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(MethodCount, q, hint)

	if s.CountErr != nil {
		return 0, s.CountErr
	}
	c, re, err := s.prepare(name, q, hint)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, d := range c.docs {
		if matches(d, q.Field, re) {
			n++
		}
	}
	return n, nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, name string, q store.MatchQuery, limit int64, hint *store.Hint) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(MethodFind, q, hint)

	if s.FindErr != nil {
		return nil, s.FindErr
	}
	c, re, err := s.prepare(name, q, hint)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, d := range c.docs {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		if matches(d, q.Field, re) {
			out = append(out, d[q.Field].(string))
		}
	}
	return out, nil
}

// DeleteMany implements store.Store.
func (s *Store) DeleteMany(ctx context.Context, name string, q store.MatchQuery, hint *store.Hint) (int64, error) {
	s.mu.Lock()
	s.record(MethodDeleteMany, q, hint)

	if s.DeleteErr != nil {
		s.mu.Unlock()
		return 0, s.DeleteErr
	}
	c, re, err := s.prepare(name, q, hint)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}

	kept := c.docs[:0:0]
	var deleted int64
	for _, d := range c.docs {
		if matches(d, q.Field, re) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	hook := s.AfterDelete
	s.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return deleted, nil
}

func (s *Store) record(method string, q store.MatchQuery, hint *store.Hint) {
	s.calls = append(s.calls, Call{Method: method, Hinted: hint != nil, Query: q})
}

func (s *Store) get(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", name)
	}
	return c, nil
}

// prepare resolves the collection, validates the hint and compiles the pattern.
func (s *Store) prepare(name string, q store.MatchQuery, hint *store.Hint) (*collection, *regexp.Regexp, error) {
	c, err := s.get(name)
	if err != nil {
		return nil, nil, err
	}

	if hint != nil && !s.AcceptAllHints && !hintUsable(c.indexes, hint) {
		return nil, nil, fmt.Errorf("%w: hint provided does not correspond to an existing index", store.ErrHintRejected)
	}

	expr := q.Pattern
	if q.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid pattern %q: %w", q.Pattern, err)
	}
	return c, re, nil
}

func hintUsable(indexes []store.IndexInfo, hint *store.Hint) bool {
	for _, idx := range indexes {
		if hint.Index != "" && idx.Name == hint.Index {
			return true
		}
		if hint.Index == "" && idx.Leads(hint.Field) {
			return true
		}
	}
	return false
}

// matches mirrors $regex semantics: only string values can match.
func matches(d Document, field string, re *regexp.Regexp) bool {
	v, ok := d[field].(string)
	return ok && re.MatchString(v)
}
