package authcore

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore/docstore"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/sirupsen/logrus"
)

// Engine runs the authentication flows. It is safe for concurrent use once
// built; Close drains pending activity log entries.
type Engine struct {
	config     Config
	store      docstore.Store
	users      *stores.Users
	tracker    *limiters.AttemptTracker
	hasher     *password.Argon2
	tokens     *jwt.Manager
	activity   *internalaudit.DocumentSink
	dispatcher *internalaudit.Dispatcher
	metrics    *Metrics
	logger     logrus.FieldLogger
	clock      Clock
	flows      flows.Service

	logOnlyNotifier bool
}

// Close flushes the async audit dispatcher. The store is owned by the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.dispatcher.Close()
}

// AuditDropped counts activity log entries dropped because the async buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.dispatcher.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

/*
====================================
FLOWS
====================================
*/

// Register creates an account with the user role and returns a session token.
// A requested Role is ignored; elevation goes through ChangeRole.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) *Result {
	if !e.ready() {
		return notReady()
	}
	out, err := e.flows.Register(ctx, flows.RegisterRequest(req))
	return e.result("register", out, err, http.StatusCreated)
}

// Login authenticates req from the origin attached with WithClientIP.
// Unknown email and wrong password are indistinguishable; RemainingAttempts is
// set on failures only.
func (e *Engine) Login(ctx context.Context, req LoginRequest) *Result {
	if !e.ready() {
		return notReady()
	}
	start := e.clock.Now()
	out, err := e.flows.Login(ctx, req.Email, req.Password)
	e.metrics.Observe(MetricLoginLatency, e.clock.Now().Sub(start))
	return e.result("login", out, err, http.StatusOK)
}

// ForgotPassword answers with the same message whether or not the email is
// registered. Registered users get a reset token through the Notifier.
func (e *Engine) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) *Result {
	if !e.ready() {
		return notReady()
	}
	out, err := e.flows.ForgotPassword(ctx, req.Email)
	return e.result("forgot_password", out, err, http.StatusOK)
}

// ResetPassword consumes a reset token. Unknown and expired tokens fail alike.
func (e *Engine) ResetPassword(ctx context.Context, req ResetPasswordRequest) *Result {
	if !e.ready() {
		return notReady()
	}
	out, err := e.flows.ResetPassword(ctx, req.Token, req.Password)
	return e.result("reset_password", out, err, http.StatusOK)
}

// ChangePassword requires an identity in ctx (see WithIdentity).
func (e *Engine) ChangePassword(ctx context.Context, req ChangePasswordRequest) *Result {
	if !e.ready() {
		return notReady()
	}
	out, err := e.flows.ChangePassword(ctx, req.CurrentPassword, req.NewPassword)
	return e.result("change_password", out, err, http.StatusOK)
}

// DeleteAccount removes the account of the identity in ctx after re-checking
// its password. Tokens already issued stay valid until they expire.
func (e *Engine) DeleteAccount(ctx context.Context, req DeleteAccountRequest) *Result {
	if !e.ready() {
		return notReady()
	}
	out, err := e.flows.DeleteAccount(ctx, req.Password)
	return e.result("delete_account", out, err, http.StatusOK)
}

// ChangeRole sets another user's role. Admin only.
func (e *Engine) ChangeRole(ctx context.Context, req ChangeRoleRequest) *Result {
	if !e.ready() {
		return notReady()
	}
	out, err := e.flows.ChangeRole(ctx, req.UserID, req.Role)
	return e.result("change_role", out, err, http.StatusOK)
}

// ActivityLogs lists activity entries newest first. Without All or Action the
// caller's own entries are returned.
func (e *Engine) ActivityLogs(ctx context.Context, q ActivityQuery) *Result {
	if !e.ready() {
		return notReady()
	}
	out, err := e.flows.ActivityLogs(ctx, flows.LogQuery(q))
	return e.result("activity_logs", out, err, http.StatusOK)
}

// Authenticate verifies a session token, with or without the "Bearer " prefix.
// The returned error is a *Error of KindAuthentication.
func (e *Engine) Authenticate(_ context.Context, token string) (Identity, error) {
	if !e.ready() {
		return Identity{}, notReady().Err
	}
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		e.metrics.Inc(MetricAuthenticateFailure)
		return Identity{}, classify(ErrUnauthorized, "No token provided")
	}
	claims, ok := e.tokens.Verify(token)
	if !ok {
		e.metrics.Inc(MetricAuthenticateFailure)
		return Identity{}, classify(ErrUnauthorized, "Invalid token")
	}
	return claims.Identity(), nil
}

// SweepLoginAttempts purges stale, unlocked login attempt records. Intended
// for a periodic scheduler.
func (e *Engine) SweepLoginAttempts(ctx context.Context) (int64, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	return e.tracker.Sweep(ctx)
}

func (e *Engine) result(op string, out flows.Outcome, err error, okStatus int) *Result {
	res := &Result{
		Message:           out.Message,
		Token:             out.Token,
		User:              publicUser(out.User),
		Hints:             out.Hints,
		Strength:          out.Strength,
		RemainingAttempts: out.RemainingAttempts,
		ResetToken:        out.ResetToken,
		Logs:              toActivityLogs(out.Logs),
	}
	if err == nil {
		res.Status = okStatus
		res.Success = true
		return res
	}

	classified := classify(err, out.Message)
	if classified.Kind == KindInternal {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"op":   op,
			"code": errorCode(err),
		}).Error("flow failed")
		*res = Result{}
	}
	res.Status = classified.Kind.Status()
	res.Message = classified.Message
	res.Err = classified
	return res
}

func notReady() *Result {
	err := &Error{Kind: KindInternal, Message: defaultMessage(ErrEngineNotReady), Err: ErrEngineNotReady}
	return &Result{Status: http.StatusInternalServerError, Message: err.Message, Err: err}
}

func publicUser(u *stores.UserRecord) *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Country:   u.Country,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
