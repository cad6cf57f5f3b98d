package authcore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/docstore/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminEmail = "root@x.com"

// adminSession registers adminEmail, promotes it in the store and signs in.
func (env *testEnv) adminSession(t *testing.T) context.Context {
	t.Helper()
	env.register(t, adminEmail, testPassword)
	matched, err := env.store.UpdateOne(context.Background(), "users",
		docstore.Filter{"email": adminEmail},
		docstore.Update{Set: map[string]any{"role": RoleAdmin}},
	)
	require.NoError(t, err)
	require.Equal(t, int64(1), matched)
	return env.session(t, adminEmail, testPassword)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testEmail, testPassword)

	anon := env.engine.DeleteAccount(context.Background(), DeleteAccountRequest{Password: testPassword})
	assert.Equal(t, 401, anon.Status)

	ctx := env.session(t, testEmail, testPassword)

	assert.Equal(t, 400, env.engine.DeleteAccount(ctx, DeleteAccountRequest{}).Status)

	wrong := env.engine.DeleteAccount(ctx, DeleteAccountRequest{Password: "Wrong!Pass1"})
	assert.Equal(t, 401, wrong.Status)
	assert.Equal(t, 0, env.auditCount(t, ActionAccountDelete))

	ok := env.engine.DeleteAccount(ctx, DeleteAccountRequest{Password: testPassword})
	require.Equal(t, 200, ok.Status, ok.Message)
	assert.Equal(t, 1, env.auditCount(t, ActionAccountDelete))

	_, err := env.store.FindOne(context.Background(), "users", docstore.Filter{"email": testEmail})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.Equal(t, 401, env.login(testEmail, testPassword, testOrigin).Status)

	gone := env.engine.DeleteAccount(ctx, DeleteAccountRequest{Password: testPassword})
	assert.Equal(t, 404, gone.Status, "the token outlives the account")
	assert.ErrorIs(t, gone.Err, ErrUserNotFound)
}

func TestChangeRoleRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	target := env.register(t, testEmail, testPassword)
	userCtx := env.session(t, testEmail, testPassword)

	denied := env.engine.ChangeRole(userCtx, ChangeRoleRequest{UserID: target.User.ID, Role: RoleAdmin})
	assert.Equal(t, 403, denied.Status)
	assert.ErrorIs(t, denied.Err, ErrForbidden)

	adminCtx := env.adminSession(t)

	assert.Equal(t, 400, env.engine.ChangeRole(adminCtx, ChangeRoleRequest{UserID: target.User.ID, Role: "root"}).Status)
	assert.Equal(t, 404, env.engine.ChangeRole(adminCtx, ChangeRoleRequest{UserID: "missing", Role: RoleAdmin}).Status)

	ok := env.engine.ChangeRole(adminCtx, ChangeRoleRequest{UserID: target.User.ID, Role: RoleAdmin})
	require.Equal(t, 200, ok.Status, ok.Message)
	assert.Equal(t, RoleAdmin, ok.User.Role)

	doc, err := env.store.FindOne(context.Background(), "activity_logs", docstore.Filter{"action": ActionRoleChange})
	require.NoError(t, err)
	assert.Equal(t, target.User.ID, doc.String("targetUserId"))
	assert.Equal(t, RoleAdmin, doc.Map("metadata")["newRole"])
	assert.Equal(t, RoleUser, doc.Map("metadata")["oldRole"])

	stale, err := env.engine.Authenticate(context.Background(), target.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, stale.Role, "issued tokens keep their role until reissued")

	fresh := env.session(t, testEmail, testPassword)
	id, _ := IdentityFromContext(fresh)
	assert.Equal(t, RoleAdmin, id.Role)
}

func TestActivityLogs(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, testEmail, testPassword)
	env.clock.Advance(time.Second)
	userCtx := env.session(t, testEmail, testPassword)
	env.login(testEmail, "Wrong!Pass1", testOrigin)

	own := env.engine.ActivityLogs(userCtx, ActivityQuery{})
	require.Equal(t, 200, own.Status)
	require.Len(t, own.Logs, 2, "failed logins are not audited")
	assert.Equal(t, ActionLogin, own.Logs[0].Action, "newest first")
	assert.Equal(t, ActionRegister, own.Logs[1].Action)

	assert.Equal(t, 403, env.engine.ActivityLogs(userCtx, ActivityQuery{All: true}).Status)
	assert.Equal(t, 403, env.engine.ActivityLogs(userCtx, ActivityQuery{Action: ActionLogin}).Status)
	assert.Equal(t, 401, env.engine.ActivityLogs(context.Background(), ActivityQuery{}).Status)

	env.clock.Advance(time.Second)
	adminCtx := env.adminSession(t)

	all := env.engine.ActivityLogs(adminCtx, ActivityQuery{All: true})
	require.Equal(t, 200, all.Status)
	assert.Len(t, all.Logs, 4)

	logins := env.engine.ActivityLogs(adminCtx, ActivityQuery{Action: ActionLogin, Limit: 1})
	require.Len(t, logins.Logs, 1)
	assert.Equal(t, adminEmail, logins.Logs[0].UserEmail)
}

func TestMultiSinkFeedsStoreAndStream(t *testing.T) {
	store := memstore.New()
	var stream bytes.Buffer

	cfg := testConfig()
	cfg.Audit.Async = true
	cfg.Audit.DropIfFull = false
	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithClock(newTestClock()).
		WithAuditSink(MultiSink{NewDocumentSink(store, nil), NewJSONWriterSink(&stream)}).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	reg := engine.Register(context.Background(), RegisterRequest{Email: testEmail, Password: testPassword})
	require.Equal(t, 201, reg.Status, reg.Message)
	engine.Close()

	var streamed []ActivityLogEntry
	scanner := bufio.NewScanner(bytes.NewReader(stream.Bytes()))
	for scanner.Scan() {
		var entry ActivityLogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		streamed = append(streamed, entry)
	}
	require.Len(t, streamed, 1)
	assert.Equal(t, ActionRegister, streamed[0].Action)
	assert.Equal(t, reg.User.ID, streamed[0].UserID)

	id, err := engine.Authenticate(context.Background(), reg.Token)
	require.NoError(t, err)
	logs := engine.ActivityLogs(WithIdentity(context.Background(), id), ActivityQuery{})
	require.Equal(t, 200, logs.Status, logs.Message)
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, streamed[0].ID, logs.Logs[0].ID, "both sinks see the same stamped entry")
}
