package authcore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

var (
	// ErrEngineNotReady is returned when an Engine method runs on a zero or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMissingFields reports a required request field left empty.
	ErrMissingFields = errors.New("required fields missing")
	// ErrEmailExists reports a registration for an email already on file.
	ErrEmailExists = errors.New("email already exists")
	// ErrWeakPassword reports a password rejected by the strength gate.
	ErrWeakPassword = errors.New("password does not meet requirements")
	// ErrInvalidCredentials is the single answer for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized reports a missing or invalid session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden reports an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrLoginRateLimited reports an active lockout for (email, origin).
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrResetTokenInvalid covers unknown and expired reset tokens alike.
	ErrResetTokenInvalid = errors.New("invalid or expired token")
	// ErrUserNotFound reports a referenced user that does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRole reports a role outside user/admin.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInternal wraps store, hashing and signing failures. Causes are logged, never returned in messages.
	ErrInternal = errors.New("internal error")
)

// Kind classifies a failure for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindAuthorization
	KindRateLimited
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Status maps the kind to an HTTP status. Conflicts answer 400 so a duplicate
// registration looks like any other rejected form.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified flow failure. Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	switch {
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrResetTokenInvalid),
		errors.Is(err, ErrInvalidRole):
		return KindValidation
	case errors.Is(err, ErrEmailExists):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return KindAuthentication
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrLoginRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// defaultMessage is the caller-facing text when a flow supplies none.
func defaultMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Required fields are missing"
	case errors.Is(err, ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, ErrWeakPassword):
		return "Password does not meet requirements"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, ErrForbidden):
		return "Insufficient permissions"
	case errors.Is(err, ErrLoginRateLimited):
		return "Too many failed login attempts"
	case errors.Is(err, ErrResetTokenInvalid):
		return "Invalid or expired token"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrInvalidRole):
		return "Invalid role"
	default:
		return "Internal server error"
	}
}

// classify turns a flow error into an *Error, keeping the cause for errors.Is.
func classify(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	kind := KindOf(err)
	if message == "" || kind == KindInternal {
		message = defaultMessage(err)
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// errorCode extracts the oops code of an internal failure for logging.
func errorCode(err error) string {
	if o, ok := oops.AsOops(err); ok {
		return fmt.Sprint(o.Code())
	}
	return ""
}
