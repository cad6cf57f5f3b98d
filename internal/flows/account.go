package flows

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
)

// Default page sizes for activity log queries.
const (
	DefaultOwnLogsLimit    = 10
	DefaultAllLogsLimit    = 50
	DefaultActionLogsLimit = 20
	MaxLogsLimit           = 200
)

// LogQuery is the flow-local activity log request.
type LogQuery struct {
	Action string
	Limit  int
	All    bool
}

// AccountDeps captures dependencies of flows acting on the signed-in account.
type AccountDeps struct {
	Common

	AdminRole string
	Roles     []string

	Identity func(context.Context) (jwt.Identity, bool)

	GetUserByID    func(context.Context, string) (*stores.UserRecord, error)
	SetPassword    func(context.Context, string, string) error
	SetRole        func(context.Context, string, string) error
	DeleteUser     func(context.Context, string) error
	FindLogs       func(context.Context, audit.Query) ([]audit.Entry, error)
	VerifyPassword func(string, string) bool
	HashPassword   func(string) (string, error)
}

func (d AccountDeps) currentUser(ctx context.Context, op string) (*stores.UserRecord, error) {
	id, ok := d.Identity(ctx)
	if !ok {
		return nil, d.Errors.Unauthorized
	}
	user, err := d.GetUserByID(ctx, id.UserID)
	if errors.Is(err, stores.ErrUserNotFound) {
		return nil, d.Errors.UserNotFound
	}
	if err != nil {
		return nil, d.internal(CodeStoreFailed, op, err)
	}
	return user, nil
}

// RunChangePassword replaces the caller's password after re-verifying the
// current one.
func RunChangePassword(ctx context.Context, current, next string, deps AccountDeps) (Outcome, error) {
	if _, ok := deps.Identity(ctx); !ok {
		return Outcome{}, deps.Errors.Unauthorized
	}
	if current == "" || next == "" {
		return Outcome{Message: "Current and new password are required"}, deps.Errors.MissingFields
	}
	if out, err := deps.weak(next); err != nil {
		return out, err
	}

	user, err := deps.currentUser(ctx, "change_password.lookup")
	if err != nil {
		return Outcome{}, err
	}
	if !deps.VerifyPassword(current, user.PasswordHash) {
		return Outcome{Message: "Current password is incorrect"}, deps.Errors.InvalidCredentials
	}

	hash, err := deps.HashPassword(next)
	if err != nil {
		return Outcome{}, deps.internal(CodeHashFailed, "change_password.hash", err)
	}
	if err := deps.SetPassword(ctx, user.ID, hash); err != nil {
		return Outcome{}, deps.internal(CodeStoreFailed, "change_password.update", err)
	}

	deps.inc(deps.Metrics.PasswordChange)
	deps.emit(ctx, actorEntry(user, audit.ActionPasswordChange, "Password changed"))

	return Outcome{Message: "Password changed successfully"}, nil
}

// RunDeleteAccount removes the caller's account once the password is confirmed.
func RunDeleteAccount(ctx context.Context, password string, deps AccountDeps) (Outcome, error) {
	if _, ok := deps.Identity(ctx); !ok {
		return Outcome{}, deps.Errors.Unauthorized
	}
	if password == "" {
		return Outcome{Message: "Password is required"}, deps.Errors.MissingFields
	}

	user, err := deps.currentUser(ctx, "delete_account.lookup")
	if err != nil {
		return Outcome{}, err
	}
	if !deps.VerifyPassword(password, user.PasswordHash) {
		return Outcome{Message: "Password is incorrect"}, deps.Errors.InvalidCredentials
	}

	if err := deps.DeleteUser(ctx, user.ID); err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			return Outcome{}, deps.Errors.UserNotFound
		}
		return Outcome{}, deps.internal(CodeStoreFailed, "delete_account.delete", err)
	}

	deps.inc(deps.Metrics.AccountDeleted)
	deps.emit(ctx, actorEntry(user, audit.ActionAccountDelete, "Account deleted"))

	return Outcome{Message: "Account deleted successfully"}, nil
}

// RunChangeRole sets the role of userID. Only admins may call it. Tokens
// already issued to the target keep their old role until they expire.
func RunChangeRole(ctx context.Context, userID, role string, deps AccountDeps) (Outcome, error) {
	caller, ok := deps.Identity(ctx)
	if !ok {
		return Outcome{}, deps.Errors.Unauthorized
	}
	if caller.Role != deps.AdminRole {
		return Outcome{}, deps.Errors.Forbidden
	}

	userID, role = strings.TrimSpace(userID), strings.TrimSpace(role)
	if userID == "" || role == "" {
		return Outcome{Message: "User and role are required"}, deps.Errors.MissingFields
	}
	if !slices.Contains(deps.Roles, role) {
		return Outcome{}, deps.Errors.InvalidRole
	}

	target, err := deps.GetUserByID(ctx, userID)
	if errors.Is(err, stores.ErrUserNotFound) {
		return Outcome{}, deps.Errors.UserNotFound
	}
	if err != nil {
		return Outcome{}, deps.internal(CodeStoreFailed, "change_role.lookup", err)
	}

	if err := deps.SetRole(ctx, target.ID, role); err != nil {
		if errors.Is(err, stores.ErrUserNotFound) {
			return Outcome{}, deps.Errors.UserNotFound
		}
		return Outcome{}, deps.internal(CodeStoreFailed, "change_role.update", err)
	}
	oldRole := target.Role
	target.Role = role

	entry := audit.Entry{
		UserID:         caller.UserID,
		UserEmail:      caller.Email,
		Action:         audit.ActionRoleChange,
		Description:    "Role changed from " + oldRole + " to " + role,
		TargetUserID:   target.ID,
		TargetUserName: target.Name,
		Metadata:       map[string]string{"oldRole": oldRole, "newRole": role},
	}
	if actor, err := deps.GetUserByID(ctx, caller.UserID); err == nil {
		entry.UserName = actor.Name
	}

	deps.inc(deps.Metrics.RoleChanged)
	deps.emit(ctx, entry)

	return Outcome{Message: "Role updated successfully", User: target}, nil
}

// RunActivityLogs returns activity entries newest first. Callers see their own
// entries; listing everything or filtering by action requires the admin role.
func RunActivityLogs(ctx context.Context, q LogQuery, deps AccountDeps) (Outcome, error) {
	caller, ok := deps.Identity(ctx)
	if !ok {
		return Outcome{}, deps.Errors.Unauthorized
	}

	query := audit.Query{Limit: q.Limit}
	switch {
	case q.All || q.Action != "":
		if caller.Role != deps.AdminRole {
			return Outcome{}, deps.Errors.Forbidden
		}
		query.Action = q.Action
		if query.Limit <= 0 {
			query.Limit = DefaultAllLogsLimit
			if q.Action != "" {
				query.Limit = DefaultActionLogsLimit
			}
		}
	default:
		query.UserID = caller.UserID
		if query.Limit <= 0 {
			query.Limit = DefaultOwnLogsLimit
		}
	}
	query.Limit = min(query.Limit, MaxLogsLimit)

	logs, err := deps.FindLogs(ctx, query)
	if err != nil {
		return Outcome{}, deps.internal(CodeStoreFailed, "activity_logs.find", err)
	}
	return Outcome{Logs: logs}, nil
}
