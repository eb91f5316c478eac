package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/gopurge/internal/store"
)

func seeded() *Store {
	s := New()
	s.AddCollection("orders",
		Document{"orderId": "TEST-ORDER-CONTAINER-1"},
		Document{"orderId": "test-order-container-2"},
		Document{"orderId": "PROD-5"},
		Document{"orderId": 42},
		Document{"other": "TEST-ORDER-CONTAINER-9"},
	)
	return s
}

func TestCollectionExists(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	ok, err := s.CollectionExists(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CollectionExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, s.Calls(MethodCollectionExists))
}

func TestCountCaseSensitivity(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	n, err := s.Count(ctx, "orders", store.MatchQuery{Field: "orderId", Pattern: "TEST-ORDER-CONTAINER", CaseInsensitive: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Count(ctx, "orders", store.MatchQuery{Field: "orderId", Pattern: "TEST-ORDER-CONTAINER"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHintRejectedWithoutIndex(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	q := store.MatchQuery{Field: "orderId", Pattern: "TEST"}

	_, err := s.Count(ctx, "orders", q, &store.Hint{Field: "orderId"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrHintRejected))

	name, err := s.CreateIndex(ctx, "orders", "orderId", true)
	require.NoError(t, err)
	assert.Equal(t, "orderId_1", name)

	_, err = s.Count(ctx, "orders", q, &store.Hint{Field: "orderId"})
	assert.NoError(t, err)
	_, err = s.Count(ctx, "orders", q, &store.Hint{Field: "orderId", Index: "orderId_1"})
	assert.NoError(t, err)
	_, err = s.Count(ctx, "orders", q, &store.Hint{Field: "orderId", Index: "nope"})
	assert.ErrorIs(t, err, store.ErrHintRejected)

	s.AcceptAllHints = true
	_, err = s.Count(ctx, "orders", q, &store.Hint{Field: "orderId", Index: "nope"})
	assert.NoError(t, err)
}

func TestFindRespectsLimit(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.AddCollection("orders", Document{"orderId": "TEST-" + string(rune('a'+i))})
	}

	ids, err := s.Find(context.Background(), "orders", store.MatchQuery{Field: "orderId", Pattern: "^TEST-"}, 5, nil)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
	assert.Equal(t, "TEST-a", ids[0])
}

func TestDeleteMany(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	q := store.MatchQuery{Field: "orderId", Pattern: "TEST-ORDER-CONTAINER", CaseInsensitive: true}

	n, err := s.DeleteMany(ctx, "orders", q, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, s.Docs("orders"), 3)

	n, err = s.DeleteMany(ctx, "orders", q, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestAfterDeleteHook(t *testing.T) {
	s := seeded()
	s.AfterDelete = func(s *Store) {
		s.AddCollection("orders", Document{"orderId": "TEST-ORDER-CONTAINER-late"})
	}

	_, err := s.DeleteMany(context.Background(), "orders", store.MatchQuery{Field: "orderId", Pattern: "TEST", CaseInsensitive: true}, nil)
	require.NoError(t, err)

	n, err := s.Count(context.Background(), "orders", store.MatchQuery{Field: "orderId", Pattern: "TEST", CaseInsensitive: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInjectedFailures(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	boom := errors.New("boom")
	q := store.MatchQuery{Field: "orderId", Pattern: "X"}

	s.CreateIndexErr = boom
	_, err := s.CreateIndex(ctx, "orders", "orderId", true)
	assert.ErrorIs(t, err, boom)

	s.FindErr = boom
	_, err = s.Find(ctx, "orders", q, 5, nil)
	assert.ErrorIs(t, err, boom)

	s.DeleteErr = boom
	_, err = s.DeleteMany(ctx, "orders", q, nil)
	assert.ErrorIs(t, err, boom)

	s.CountErr = boom
	_, err = s.Count(ctx, "orders", q, nil)
	assert.ErrorIs(t, err, boom)
}

func TestInvalidPattern(t *testing.T) {
	s := seeded()
	_, err := s.Count(context.Background(), "orders", store.MatchQuery{Field: "orderId", Pattern: "("}, nil)
	assert.Error(t, err)
}

func TestCallLog(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	q := store.MatchQuery{Field: "orderId", Pattern: "X"}

	_, _ = s.Count(ctx, "orders", q, &store.Hint{Field: "orderId"})
	_, _ = s.Count(ctx, "orders", q, nil)

	log := s.CallLog()
	require.Len(t, log, 2)
	assert.True(t, log[0].Hinted)
	assert.False(t, log[1].Hinted)
}

func TestCallLogRecordsQuery(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	q := store.MatchQuery{Field: "orderId", Pattern: "TEST", CaseInsensitive: true}

	_, _ = s.CollectionExists(ctx, "orders")
	_, _ = s.Find(ctx, "orders", q, 5, nil)
	_, _ = s.DeleteMany(ctx, "orders", q, nil)

	log := s.CallLog()
	require.Len(t, log, 3)
	assert.Equal(t, store.MatchQuery{}, log[0].Query)
	assert.Equal(t, q, log[1].Query)
	assert.Equal(t, q, log[2].Query)
}
