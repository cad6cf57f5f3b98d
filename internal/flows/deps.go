package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/strength"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// Internal failure codes attached with oops for logs.
const (
	CodeStoreFailed = "AUTH_STORE_FAILED"
	CodeHashFailed  = "AUTH_HASH_FAILED"
	CodeTokenFailed = "AUTH_TOKEN_FAILED"
)

// Errors carries host-level sentinel errors flows wrap.
type Errors struct {
	MissingFields      error
	EmailExists        error
	WeakPassword       error
	InvalidCredentials error
	Unauthorized       error
	Forbidden          error
	LoginRateLimited   error
	ResetTokenInvalid  error
	UserNotFound       error
	InvalidRole        error
	Internal           error
}

// Metrics carries metric IDs flows increment.
type Metrics struct {
	LoginSuccess          int
	LoginFailure          int
	LoginRateLimited      int
	Registration          int
	RegistrationDuplicate int
	PasswordChange        int
	PasswordResetRequest  int
	PasswordReset         int
	PasswordResetFailure  int
	AccountDeleted        int
	RoleChanged           int
}

// Common is embedded in every flow dependency set.
type Common struct {
	Errors  Errors
	Metrics Metrics
	Logger  logrus.FieldLogger

	Now       func() time.Time
	Inc       func(id int)
	Emit      func(context.Context, audit.Entry)
	ClientIP  func(context.Context) string
	UserAgent func(context.Context) string
}

// Outcome is the flow-local result. Fields a flow does not produce stay zero.
type Outcome struct {
	Message           string
	Token             string
	User              *stores.UserRecord
	Hints             []string
	Strength          *strength.Result
	RemainingAttempts int
	ResetToken        string
	Created           bool
	Logs              []audit.Entry
}

// Deps groups flow dependency sets. The root engine builds this once.
type Deps struct {
	Register RegisterDeps
	Login    LoginDeps
	Reset    ResetDeps
	Account  AccountDeps
}

func (c Common) internal(code, op string, err error) error {
	return fmt.Errorf("%w: %w", c.Errors.Internal, oops.Code(code).With("op", op).Wrap(err))
}

func (c Common) inc(id int) {
	if c.Inc != nil {
		c.Inc(id)
	}
}

func (c Common) emit(ctx context.Context, entry audit.Entry) {
	if c.Emit == nil {
		return
	}
	if entry.IPAddress == "" && c.ClientIP != nil {
		entry.IPAddress = c.ClientIP(ctx)
	}
	if entry.UserAgent == "" && c.UserAgent != nil {
		entry.UserAgent = c.UserAgent(ctx)
	}
	entry.CreatedAt = c.Now().UTC()
	c.Emit(ctx, entry)
}

// weak reports the strength gate failure for password, or nil when it passes.
func (c Common) weak(password string) (Outcome, error) {
	res := strength.Evaluate(password)
	if res.Acceptable {
		return Outcome{}, nil
	}
	return Outcome{
		Message:  "Password does not meet requirements",
		Hints:    res.Hints,
		Strength: &res,
	}, c.Errors.WeakPassword
}

func actorEntry(u *stores.UserRecord, action, description string) audit.Entry {
	return audit.Entry{
		UserID:      u.ID,
		UserName:    u.Name,
		UserEmail:   u.Email,
		Action:      action,
		Description: description,
	}
}
