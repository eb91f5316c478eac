package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/gopurge/internal/config"
	"github.com/dbsmedya/gopurge/internal/store"
	"github.com/dbsmedya/gopurge/internal/store/memstore"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.NotEmpty(t, validateCmd.Long)
	assert.NotNil(t, validateCmd.RunE)
}

func TestValidateCommandDocumentation(t *testing.T) {
	doc := validateCmd.Long
	assert.Contains(t, doc, "Example:")
	assert.Contains(t, doc, "gopurge validate")
	assert.Contains(t, doc, "Checks performed")
	assert.Contains(t, doc, "Database connectivity")
	assert.Contains(t, doc, "Index on the identifier field")
	assert.Contains(t, doc, "never creates indexes")
}

func TestValidateCommandFlags(t *testing.T) {
	flags := validateCmd.Flags()
	assert.NotNil(t, flags.Lookup("job"))
	assert.NotNil(t, flags.Lookup("pattern"))
	assert.Nil(t, flags.Lookup("execute"))
}

func TestPreflight(t *testing.T) {
	job := config.JobConfig{Collection: "orders", Field: "orderId", Pattern: "^TEST-"}

	t.Run("missing collection", func(t *testing.T) {
		st := memstore.New()

		res, err := preflight(context.Background(), st, job)
		require.NoError(t, err)
		assert.False(t, res.Exists)
		assert.Equal(t, 0, st.Calls(memstore.MethodListIndexes))
	})

	t.Run("no index", func(t *testing.T) {
		st := memstore.New()
		st.AddCollection("orders", memstore.Document{"orderId": "TEST-1"})

		res, err := preflight(context.Background(), st, job)
		require.NoError(t, err)
		assert.True(t, res.Exists)
		assert.Empty(t, res.Index)
	})

	t.Run("leading index", func(t *testing.T) {
		st := memstore.New()
		st.AddCollection("orders")
		st.AddIndex("orders", store.IndexInfo{Name: "orderId_1", Fields: []string{"orderId"}})

		res, err := preflight(context.Background(), st, job)
		require.NoError(t, err)
		assert.Equal(t, "orderId_1", res.Index)
		assert.True(t, res.Leading)
	})

	t.Run("compound index", func(t *testing.T) {
		st := memstore.New()
		st.AddCollection("orders")
		st.AddIndex("orders", store.IndexInfo{Name: "tenant_orderId", Fields: []string{"tenant", "orderId"}})

		res, err := preflight(context.Background(), st, job)
		require.NoError(t, err)
		assert.Equal(t, "tenant_orderId", res.Index)
		assert.False(t, res.Leading)
	})

	t.Run("read only", func(t *testing.T) {
		st := memstore.New()
		st.AddCollection("orders", memstore.Document{"orderId": "TEST-1"})

		_, err := preflight(context.Background(), st, job)
		require.NoError(t, err)
		assert.Equal(t, 0, st.Calls(memstore.MethodCreateIndex))
		assert.Equal(t, 0, st.Calls(memstore.MethodDeleteMany))
		assert.Len(t, st.Docs("orders"), 1)
	})
}

func TestPreflight_StoreError(t *testing.T) {
	st := &failingStore{Store: memstore.New(), err: errors.New("not authorized")}

	_, err := preflight(context.Background(), st, config.JobConfig{Collection: "orders", Field: "orderId"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection check failed")
}

func TestValidateTargets_AllJobs(t *testing.T) {
	useConfig(t, testConfig)

	cfg, jobs, err := validateTargets()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Len(t, jobs, 2)
	assert.Equal(t, config.BackendMongoDB, jobs["test-orders"].Backend)
	assert.Equal(t, config.DefaultField, jobs["test-orders"].Field)
	assert.Equal(t, config.BackendMySQL, jobs["qa-refs"].Backend)
}

func TestValidateTargets_Selector(t *testing.T) {
	useConfig(t, testConfig)

	orig := validateSelector
	defer func() { validateSelector = orig }()
	validateSelector = selectorFlags{job: "qa-refs"}

	_, jobs, err := validateTargets()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "order_ref", jobs["qa-refs"].Field)
}

func TestValidateTargets_InvalidConfig(t *testing.T) {
	useConfig(t, "jobs:\n  broken:\n    collection: orders\n")

	_, _, err := validateTargets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern is required")
}

// failingStore fails CollectionExists.
type failingStore struct {
	*memstore.Store
	err error
}

func (f *failingStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return false, f.err
}
