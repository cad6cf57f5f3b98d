package memstore

import (
	"context"
	"testing"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/docstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store { return New() })
}

func TestStoreCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.InsertOne(ctx, "users", docstore.Document{"email": "a@x.com"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len("users"))
}

func TestStoreRejectsUnknownOperator(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertOne(ctx, "users", docstore.Document{"_id": "1", "age": 3}))

	_, err := s.Find(ctx, "users", docstore.Filter{"age": docstore.Op{"$regex": "x"}}, docstore.FindOptions{})
	assert.ErrorIs(t, err, docstore.ErrUnsupportedOperator)
}
