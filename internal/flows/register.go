package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
)

// RegisterRequest is the flow-local registration payload.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Country  string
	Role     string
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	Common

	// DefaultRole is stored on every self-registered account. The requested
	// role is never honoured here; elevation goes through RunChangeRole.
	DefaultRole string

	NewUserID      func() string
	GetUserByEmail func(context.Context, string) (*stores.UserRecord, error)
	InsertUser     func(context.Context, *stores.UserRecord) error
	HashPassword   func(string) (string, error)
	IssueToken     func(jwt.Identity) (string, error)
}

// RunRegister creates an account and signs the new user in.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (Outcome, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return Outcome{Message: "Email and password are required"}, deps.Errors.MissingFields
	}

	_, err := deps.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		deps.inc(deps.Metrics.RegistrationDuplicate)
		return Outcome{Message: "Email already exists"}, deps.Errors.EmailExists
	case !errors.Is(err, stores.ErrUserNotFound):
		return Outcome{}, deps.internal(CodeStoreFailed, "register.lookup", err)
	}

	if out, err := deps.weak(req.Password); err != nil {
		return out, err
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return Outcome{}, deps.internal(CodeHashFailed, "register.hash", err)
	}

	if req.Role != "" && req.Role != deps.DefaultRole {
		deps.Logger.WithField("requested_role", req.Role).Info("registration: requested role ignored")
	}

	now := deps.Now().UTC()
	user := &stores.UserRecord{
		ID:           deps.NewUserID(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Country:      strings.TrimSpace(req.Country),
		PasswordHash: hash,
		Role:         deps.DefaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := deps.InsertUser(ctx, user); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			deps.inc(deps.Metrics.RegistrationDuplicate)
			return Outcome{Message: "Email already exists"}, deps.Errors.EmailExists
		}
		return Outcome{}, deps.internal(CodeStoreFailed, "register.insert", err)
	}

	token, err := deps.IssueToken(jwt.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return Outcome{}, deps.internal(CodeTokenFailed, "register.token", err)
	}

	deps.inc(deps.Metrics.Registration)
	deps.emit(ctx, actorEntry(user, audit.ActionRegister, "User registered"))

	return Outcome{
		Message: "User registered successfully",
		Token:   token,
		User:    user,
		Created: true,
	}, nil
}
