package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
)

const invalidCredentialsMessage = "Invalid credentials"

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Common

	PasswordUpgradeOnLogin bool

	CheckAttempts func(context.Context, string, string) limiters.CheckResult
	RecordFailure func(context.Context, string, string) int
	ClearAttempts func(context.Context, string, string)

	GetUserByEmail func(context.Context, string) (*stores.UserRecord, error)
	UpdateHash     func(context.Context, string, string) error

	VerifyPassword       func(string, string) bool
	PasswordNeedsUpgrade func(string) bool
	HashPassword         func(string) (string, error)
	IssueToken           func(jwt.Identity) (string, error)
}

// RunLogin authenticates email/password from the origin in ctx.
//
// The tracker is consulted before any credential comparison. Unknown email and
// wrong password produce the same message and both count as a failure.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (Outcome, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Outcome{Message: "Email and password are required"}, deps.Errors.MissingFields
	}
	ip := deps.ClientIP(ctx)

	check := deps.CheckAttempts(ctx, email, ip)
	if !check.Allowed {
		deps.inc(deps.Metrics.LoginRateLimited)
		return Outcome{Message: check.Message}, deps.Errors.LoginRateLimited
	}

	fail := func() (Outcome, error) {
		remaining := deps.RecordFailure(ctx, email, ip)
		deps.inc(deps.Metrics.LoginFailure)
		return Outcome{Message: invalidCredentialsMessage, RemainingAttempts: remaining}, deps.Errors.InvalidCredentials
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if errors.Is(err, stores.ErrUserNotFound) {
		return fail()
	}
	if err != nil {
		return Outcome{}, deps.internal(CodeStoreFailed, "login.lookup", err)
	}
	if !deps.VerifyPassword(password, user.PasswordHash) {
		return fail()
	}

	deps.ClearAttempts(ctx, email, ip)

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade(user.PasswordHash) {
		upgradeHash(ctx, deps, user, password)
	}

	token, err := deps.IssueToken(jwt.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return Outcome{}, deps.internal(CodeTokenFailed, "login.token", err)
	}

	deps.inc(deps.Metrics.LoginSuccess)
	deps.emit(ctx, actorEntry(user, audit.ActionLogin, "User logged in"))

	return Outcome{Message: "Login successful", Token: token, User: user}, nil
}

// upgradeHash is best effort: the login already succeeded.
func upgradeHash(ctx context.Context, deps LoginDeps, user *stores.UserRecord, password string) {
	log := deps.Logger.WithField("user_id", user.ID)
	hash, err := deps.HashPassword(password)
	if err != nil {
		log.WithError(err).Warn("login: password rehash failed")
		return
	}
	if err := deps.UpdateHash(ctx, user.ID, hash); err != nil {
		log.WithError(err).Warn("login: password rehash not persisted")
		return
	}
	user.PasswordHash = hash
}
