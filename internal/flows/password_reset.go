package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/stores"
)

// ForgotPasswordMessage is returned for every forgot-password request so the
// response never reveals whether the email is registered.
const ForgotPasswordMessage = "If the email exists, a password reset link has been sent"

const resetTokenInvalidMessage = "Invalid or expired token"

// ResetDeps captures forgot/reset password dependencies.
type ResetDeps struct {
	Common

	TokenTTL time.Duration
	// ExposeToken copies the plaintext token into the Outcome. Development only.
	ExposeToken bool

	GetUserByEmail       func(context.Context, string) (*stores.UserRecord, error)
	GetUserByResetDigest func(context.Context, string) (*stores.UserRecord, error)
	SaveResetDigest      func(context.Context, string, string, time.Time) error
	ConsumeReset         func(context.Context, string, string, string) error

	NewToken     func() (string, error)
	DigestToken  func(string) string
	Notify       func(context.Context, string, string) error
	HashPassword func(string) (string, error)
}

// RunForgotPassword issues a reset token for email when it is registered.
func RunForgotPassword(ctx context.Context, email string, deps ResetDeps) (Outcome, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Outcome{Message: "Email is required"}, deps.Errors.MissingFields
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if errors.Is(err, stores.ErrUserNotFound) {
		return Outcome{Message: ForgotPasswordMessage}, nil
	}
	if err != nil {
		return Outcome{}, deps.internal(CodeStoreFailed, "forgot.lookup", err)
	}

	token, err := deps.NewToken()
	if err != nil {
		return Outcome{}, deps.internal(CodeTokenFailed, "forgot.token", err)
	}
	expires := deps.Now().UTC().Add(deps.TokenTTL)
	if err := deps.SaveResetDigest(ctx, user.ID, deps.DigestToken(token), expires); err != nil {
		return Outcome{}, deps.internal(CodeStoreFailed, "forgot.save", err)
	}

	if err := deps.Notify(ctx, user.Email, token); err != nil {
		deps.Logger.WithError(err).WithField("user_id", user.ID).Warn("forgot password: notifier failed")
	}

	deps.inc(deps.Metrics.PasswordResetRequest)
	deps.emit(ctx, actorEntry(user, audit.ActionPasswordResetRequest, "Password reset requested"))

	out := Outcome{Message: ForgotPasswordMessage}
	if deps.ExposeToken {
		out.ResetToken = token
	}
	return out, nil
}

// RunResetPassword consumes token and sets password. Unknown and expired tokens
// are indistinguishable.
func RunResetPassword(ctx context.Context, token, password string, deps ResetDeps) (Outcome, error) {
	if token == "" || password == "" {
		return Outcome{Message: "Token and password are required"}, deps.Errors.MissingFields
	}

	digest := deps.DigestToken(token)
	invalid := func() (Outcome, error) {
		deps.inc(deps.Metrics.PasswordResetFailure)
		return Outcome{Message: resetTokenInvalidMessage}, deps.Errors.ResetTokenInvalid
	}

	user, err := deps.GetUserByResetDigest(ctx, digest)
	if errors.Is(err, stores.ErrUserNotFound) {
		return invalid()
	}
	if err != nil {
		return Outcome{}, deps.internal(CodeStoreFailed, "reset.lookup", err)
	}

	if out, err := deps.weak(password); err != nil {
		return out, err
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		return Outcome{}, deps.internal(CodeHashFailed, "reset.hash", err)
	}
	if err := deps.ConsumeReset(ctx, user.ID, digest, hash); err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			return invalid()
		}
		return Outcome{}, deps.internal(CodeStoreFailed, "reset.consume", err)
	}

	deps.inc(deps.Metrics.PasswordReset)
	deps.emit(ctx, actorEntry(user, audit.ActionPasswordReset, "Password reset via token"))

	return Outcome{Message: "Password reset successful"}, nil
}
