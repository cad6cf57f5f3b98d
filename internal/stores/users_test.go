package stores

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/docstore/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T) (*Users, *memstore.Store, time.Time) {
	t.Helper()
	store := memstore.New()
	users := NewUsers(store)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, users.Insert(context.Background(), &UserRecord{
		ID: "u1", Email: "a@x.com", Name: "A", PasswordHash: "h0", Role: "user", CreatedAt: now, UpdatedAt: now,
	}))
	return users, store, now
}

func TestUsersLookup(t *testing.T) {
	users, _, now := seedUser(t)
	ctx := context.Background()

	u, err := users.ByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "h0", u.PasswordHash)
	assert.True(t, u.CreatedAt.Equal(now))

	_, err = users.ByEmail(ctx, "A@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = users.ByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsersDuplicateID(t *testing.T) {
	users, store, _ := seedUser(t)
	err := users.Insert(context.Background(), &UserRecord{ID: "u1", Email: "other@x.com"})
	assert.ErrorIs(t, err, docstore.ErrDuplicate)

	_, err = store.FindOne(context.Background(), EmailsCollection, docstore.Filter{"_id": "other@x.com"})
	assert.ErrorIs(t, err, docstore.ErrNotFound, "a failed insert releases its email claim")
}

func TestUsersEmailClaim(t *testing.T) {
	users, store, _ := seedUser(t)
	ctx := context.Background()

	err := users.Insert(ctx, &UserRecord{ID: "u2", Email: "a@x.com"})
	assert.ErrorIs(t, err, docstore.ErrDuplicate)
	assert.Equal(t, 1, store.Len(UsersCollection))

	claim, err := store.FindOne(ctx, EmailsCollection, docstore.Filter{"_id": "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "u1", claim.String(FieldClaimUser))

	require.NoError(t, users.Delete(ctx, "u1"))
	assert.Zero(t, store.Len(EmailsCollection))
	require.NoError(t, users.Insert(ctx, &UserRecord{ID: "u2", Email: "a@x.com"}))
}

func TestUsersResetDigestExpiry(t *testing.T) {
	users, store, now := seedUser(t)
	ctx := context.Background()

	require.NoError(t, users.SetResetDigest(ctx, "u1", "d1", now.Add(time.Hour)))

	u, err := users.ByResetDigest(ctx, "d1", now.Add(59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = users.ByResetDigest(ctx, "d1", now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, users.ConsumeReset(ctx, "u1", "d1", "h1", now))
	assert.ErrorIs(t, users.ConsumeReset(ctx, "u1", "d1", "h2", now), ErrUserNotFound)

	doc, err := store.FindOne(ctx, UsersCollection, docstore.Filter{"_id": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "h1", doc.String(FieldPassword))
	assert.NotContains(t, doc, FieldResetToken)
	assert.NotContains(t, doc, FieldResetExpires)
}

func TestUsersSetPasswordClearsReset(t *testing.T) {
	users, _, now := seedUser(t)
	ctx := context.Background()
	require.NoError(t, users.SetResetDigest(ctx, "u1", "d1", now.Add(time.Hour)))
	require.NoError(t, users.SetPassword(ctx, "u1", "h2", now.Add(time.Minute)))

	u, err := users.ByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h2", u.PasswordHash)
	assert.Empty(t, u.ResetDigest)
	assert.True(t, u.UpdatedAt.Equal(now.Add(time.Minute)))
}

func TestUsersRoleAndDelete(t *testing.T) {
	users, _, now := seedUser(t)
	ctx := context.Background()

	require.NoError(t, users.SetRole(ctx, "u1", "admin", now))
	u, err := users.ByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)

	assert.ErrorIs(t, users.SetRole(ctx, "missing", "admin", now), ErrUserNotFound)

	require.NoError(t, users.Delete(ctx, "u1"))
	assert.ErrorIs(t, users.Delete(ctx, "u1"), ErrUserNotFound)
}
