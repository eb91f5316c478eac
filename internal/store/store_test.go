package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchQueryString(t *testing.T) {
	q := MatchQuery{Field: "orderId", Pattern: "TEST-ORDER", CaseInsensitive: true}
	assert.Equal(t, "orderId =~ /TEST-ORDER/i", q.String())

	q.CaseInsensitive = false
	assert.Equal(t, "orderId =~ /TEST-ORDER/", q.String())
}

func TestIndexInfoCoversAndLeads(t *testing.T) {
	idx := IndexInfo{Name: "customer_order", Fields: []string{"customerId", "orderId"}}

	assert.True(t, idx.Covers("orderId"))
	assert.True(t, idx.Covers("customerId"))
	assert.False(t, idx.Covers("status"))

	assert.True(t, idx.Leads("customerId"))
	assert.False(t, idx.Leads("orderId"))
	assert.False(t, IndexInfo{}.Leads("orderId"))
}

func TestFindCovering(t *testing.T) {
	indexes := []IndexInfo{
		{Name: "_id_", Fields: []string{"_id"}},
		{Name: "customer_order", Fields: []string{"customerId", "orderId"}},
		{Name: "orderId_1", Fields: []string{"orderId"}},
	}

	idx, ok := FindCovering(indexes, "orderId")
	assert.True(t, ok)
	assert.Equal(t, "orderId_1", idx.Name, "leading index preferred")

	idx, ok = FindCovering(indexes[:2], "orderId")
	assert.True(t, ok)
	assert.Equal(t, "customer_order", idx.Name)

	_, ok = FindCovering(indexes, "status")
	assert.False(t, ok)
}

func TestErrHintRejectedWrapping(t *testing.T) {
	err := fmt.Errorf("%w: key 'x' doesn't exist", ErrHintRejected)
	assert.True(t, errors.Is(err, ErrHintRejected))
}
