package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.CheckAttempts != nil && s.deps.Register.InsertUser != nil
}

func (s Service) Register(ctx context.Context, req RegisterRequest) (Outcome, error) {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Login(ctx context.Context, email, password string) (Outcome, error) {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) ForgotPassword(ctx context.Context, email string) (Outcome, error) {
	return RunForgotPassword(ctx, email, s.deps.Reset)
}

func (s Service) ResetPassword(ctx context.Context, token, password string) (Outcome, error) {
	return RunResetPassword(ctx, token, password, s.deps.Reset)
}

func (s Service) ChangePassword(ctx context.Context, current, next string) (Outcome, error) {
	return RunChangePassword(ctx, current, next, s.deps.Account)
}

func (s Service) DeleteAccount(ctx context.Context, password string) (Outcome, error) {
	return RunDeleteAccount(ctx, password, s.deps.Account)
}

func (s Service) ChangeRole(ctx context.Context, userID, role string) (Outcome, error) {
	return RunChangeRole(ctx, userID, role, s.deps.Account)
}

func (s Service) ActivityLogs(ctx context.Context, q LogQuery) (Outcome, error) {
	return RunActivityLogs(ctx, q, s.deps.Account)
}
