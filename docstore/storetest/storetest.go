// Package storetest holds the behavioural suite every docstore.Store backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises newStore against the shared filter and update semantics.
// newStore must return an empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := func(t *testing.T) docstore.Store {
		t.Helper()
		s := newStore(t)
		ctx := context.Background()
		docs := []docstore.Document{
			{"_id": "a", "email": "a@x.com", "ipAddress": "1.1.1.1", "attempts": 1, "lastAttempt": base.Add(-48 * time.Hour)},
			{"_id": "b", "email": "b@x.com", "ipAddress": "1.1.1.1", "attempts": 3, "lastAttempt": base.Add(-time.Hour), "lockedUntil": base.Add(time.Minute)},
			{"_id": "c", "email": "c@x.com", "ipAddress": "2.2.2.2", "attempts": 5, "lastAttempt": base.Add(-72 * time.Hour)},
		}
		for _, d := range docs {
			require.NoError(t, s.InsertOne(ctx, "attempts", d))
		}
		return s
	}

	t.Run("FindOneEquality", func(t *testing.T) {
		s := seed(t)
		doc, err := s.FindOne(context.Background(), "attempts", docstore.Filter{"email": "b@x.com", "ipAddress": "1.1.1.1"})
		require.NoError(t, err)
		assert.Equal(t, "b", doc.ID())
		assert.Equal(t, 3, doc.Int("attempts"))
		locked, ok := doc.Time("lockedUntil")
		require.True(t, ok)
		assert.True(t, locked.Equal(base.Add(time.Minute)))
	})

	t.Run("FindOneMissing", func(t *testing.T) {
		s := seed(t)
		_, err := s.FindOne(context.Background(), "attempts", docstore.Filter{"email": "nobody@x.com"})
		assert.True(t, errors.Is(err, docstore.ErrNotFound))

		_, err = s.FindOne(context.Background(), "empty", docstore.Filter{})
		assert.True(t, errors.Is(err, docstore.ErrNotFound))
	})

	t.Run("ComparisonOperators", func(t *testing.T) {
		s := seed(t)
		ctx := context.Background()

		docs, err := s.Find(ctx, "attempts", docstore.Filter{"lastAttempt": docstore.Lt(base.Add(-24 * time.Hour))}, docstore.FindOptions{SortBy: "_id"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, ids(docs))

		docs, err = s.Find(ctx, "attempts", docstore.Filter{"lockedUntil": docstore.Gt(base)}, docstore.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(docs))

		docs, err = s.Find(ctx, "attempts", docstore.Filter{"attempts": docstore.Gte(3)}, docstore.FindOptions{SortBy: "attempts", Descending: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, ids(docs))
	})

	t.Run("ExistsAndIn", func(t *testing.T) {
		s := seed(t)
		ctx := context.Background()

		docs, err := s.Find(ctx, "attempts", docstore.Filter{"lockedUntil": docstore.Exists(false)}, docstore.FindOptions{SortBy: "_id"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, ids(docs))

		docs, err = s.Find(ctx, "attempts", docstore.Filter{"_id": docstore.In("a", "b", "zzz")}, docstore.FindOptions{SortBy: "_id"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(docs))
	})

	t.Run("FindLimit", func(t *testing.T) {
		s := seed(t)
		docs, err := s.Find(context.Background(), "attempts", docstore.Filter{}, docstore.FindOptions{SortBy: "lastAttempt", Descending: true, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, ids(docs))
	})

	t.Run("InsertDuplicateID", func(t *testing.T) {
		s := seed(t)
		err := s.InsertOne(context.Background(), "attempts", docstore.Document{"_id": "a"})
		assert.True(t, errors.Is(err, docstore.ErrDuplicate))
	})

	t.Run("InsertAssignsID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.InsertOne(ctx, "users", docstore.Document{"email": "new@x.com"}))
		doc, err := s.FindOne(ctx, "users", docstore.Filter{"email": "new@x.com"})
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID())
	})

	t.Run("UpdateSetAndUnset", func(t *testing.T) {
		s := seed(t)
		ctx := context.Background()

		matched, err := s.UpdateOne(ctx, "attempts", docstore.Filter{"_id": "b"}, docstore.Update{
			Set:   map[string]any{"attempts": 4},
			Unset: []string{"lockedUntil"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)

		doc, err := s.FindOne(ctx, "attempts", docstore.Filter{"_id": "b"})
		require.NoError(t, err)
		assert.Equal(t, 4, doc.Int("attempts"))
		_, ok := doc.Time("lockedUntil")
		assert.False(t, ok)

		matched, err = s.UpdateOne(ctx, "attempts", docstore.Filter{"_id": "missing"}, docstore.Update{Set: map[string]any{"x": 1}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), matched)
	})

	t.Run("DeleteOneAndMany", func(t *testing.T) {
		s := seed(t)
		ctx := context.Background()

		deleted, err := s.DeleteOne(ctx, "attempts", docstore.Filter{"_id": "a"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		deleted, err = s.DeleteOne(ctx, "attempts", docstore.Filter{"_id": "a"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleted)

		deleted, err = s.DeleteMany(ctx, "attempts", docstore.Filter{
			"lastAttempt": docstore.Lt(base.Add(-24 * time.Hour)),
			"lockedUntil": docstore.Exists(false),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		docs, err := s.Find(ctx, "attempts", docstore.Filter{}, docstore.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(docs))
	})

	t.Run("ReturnedDocumentsAreCopies", func(t *testing.T) {
		s := seed(t)
		ctx := context.Background()
		doc, err := s.FindOne(ctx, "attempts", docstore.Filter{"_id": "a"})
		require.NoError(t, err)
		doc["attempts"] = 99

		again, err := s.FindOne(ctx, "attempts", docstore.Filter{"_id": "a"})
		require.NoError(t, err)
		assert.Equal(t, 1, again.Int("attempts"))
	})

	t.Run("NestedMetadata", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.InsertOne(ctx, "logs", docstore.Document{
			"_id":      "l1",
			"metadata": map[string]any{"newRole": "admin", "count": 2},
		}))
		doc, err := s.FindOne(ctx, "logs", docstore.Filter{"_id": "l1"})
		require.NoError(t, err)
		meta := doc.Map("metadata")
		require.NotNil(t, meta)
		assert.Equal(t, "admin", meta["newRole"])
	})
}

func ids(docs []docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}
