package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/docstore/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToBSONTranslatesOperators(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := toBSON(docstore.Filter{
		"email":       "a@x.com",
		"lockedUntil": docstore.Exists(false),
		"lastAttempt": docstore.Lt(ts),
	})
	assert.Equal(t, bson.M{
		"email":       "a@x.com",
		"lockedUntil": bson.M{"$exists": false},
		"lastAttempt": bson.M{"$lt": ts},
	}, got)
}

func TestUpdateBSON(t *testing.T) {
	got := updateBSON(docstore.Update{
		Set:   map[string]any{"password": "h"},
		Unset: []string{"resetPasswordToken", "_id"},
	})
	assert.Equal(t, bson.M{
		"$set":   bson.M{"password": "h"},
		"$unset": bson.M{"resetPasswordToken": ""},
	}, got)

	assert.Empty(t, updateBSON(docstore.Update{}))
}

func TestFromBSONNormalisesDriverTypes(t *testing.T) {
	ts := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	doc := fromBSON(bson.M{
		"_id":       "u1",
		"createdAt": primitive.NewDateTimeFromTime(ts),
		"count":     int32(4),
		"metadata":  bson.D{{Key: "newRole", Value: "admin"}},
		"tags":      primitive.A{int32(1), "x"},
	})

	created, ok := doc.Time("createdAt")
	require.True(t, ok)
	assert.True(t, created.Equal(ts))
	assert.Equal(t, int64(4), doc["count"])
	assert.Equal(t, "admin", doc.Map("metadata")["newRole"])
	assert.Equal(t, []any{int64(1), "x"}, doc["tags"])
}

// TestStoreConformance runs against a live server when AUTHCORE_MONGO_URI is set.
func TestStoreConformance(t *testing.T) {
	uri := os.Getenv("AUTHCORE_MONGO_URI")
	if uri == "" {
		t.Skip("AUTHCORE_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) docstore.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := Connect(ctx, uri, "authcore_test_"+uuid.NewString()[:8])
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.db.Drop(context.Background())
			_ = s.Close(context.Background())
		})
		return s
	})
}
