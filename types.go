package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/strength"
	"github.com/sirupsen/logrus"
)

// Roles known to the engine.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the subject carried by a verified session token.
type Identity = jwt.Identity

// PublicUser is the caller-visible profile. It never carries the credential digest.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Country   string    `json:"country,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Result is what every Engine flow returns. Status is the HTTP-equivalent code;
// Err is nil on success and a *Error otherwise.
type Result struct {
	Status            int                `json:"-"`
	Success           bool               `json:"success"`
	Message           string             `json:"message,omitempty"`
	Token             string             `json:"token,omitempty"`
	User              *PublicUser        `json:"user,omitempty"`
	Hints             []string           `json:"hints,omitempty"`
	Strength          *strength.Result   `json:"passwordStrength,omitempty"`
	RemainingAttempts int                `json:"remainingAttempts,omitempty"`
	ResetToken        string             `json:"resetToken,omitempty"`
	Logs              []ActivityLogEntry `json:"logs,omitempty"`
	Err               error              `json:"-"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	// Role is accepted for wire compatibility and ignored; see Engine.Register.
	Role string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type ChangeRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// ActivityQuery selects activity log entries. All and Action require the admin role.
type ActivityQuery struct {
	Action string
	Limit  int
	All    bool
}

// Clock is the engine's time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Notifier delivers password reset tokens. Production deployments provide one
// that emails a reset link; the engine never changes for that.
type Notifier interface {
	Send(ctx context.Context, email, token string) error
}

// LogNotifier records that a reset was issued without delivering it. The token
// itself is never logged. Suitable for development only.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) Send(_ context.Context, email, _ string) error {
	if n.Logger != nil {
		n.Logger.WithField("email_domain", emailDomain(email)).Info("password reset token issued; no delivery configured")
	}
	return nil
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, email, token string) error

func (f NotifierFunc) Send(ctx context.Context, email, token string) error { return f(ctx, email, token) }

func emailDomain(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return ""
}

func toActivityLogs(entries []audit.Entry) []ActivityLogEntry {
	if entries == nil {
		return nil
	}
	out := make([]ActivityLogEntry, len(entries))
	copy(out, entries)
	return out
}
