package authcore

import (
	"context"
	"errors"
	"io"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/internal"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. Configure it during initialization, call Build
// once, and discard it.
type Builder struct {
	config Config
	store  docstore.Store

	auditSink AuditSink
	notifier  Notifier
	clock     Clock
	logger    logrus.FieldLogger

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the document store holding users, login attempts and, by
// default, activity logs. Required.
func (b *Builder) WithStore(store docstore.Store) *Builder {
	b.store = store
	return b
}

// WithAuditSink replaces the default DocumentSink. Engine.ActivityLogs still
// reads the store's activity_logs collection, so a sink that writes elsewhere
// should be combined with NewDocumentSink through MultiSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithNotifier sets reset-token delivery. Defaults to LogNotifier.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithClock overrides the time source for every expiry decision.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger. Defaults to a logrus logger with output discarded.
func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled toggles the in-process counters behind MetricsSnapshot.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram. It has no effect
// while metrics are disabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be
// built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("document store required")
	}

	logger := b.logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	clock := b.clock
	if clock == nil {
		clock = SystemClock{}
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// -------- SESSION TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           clock.Now,
	})
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(cfg.Metrics)

	// -------- LOGIN ATTEMPT TRACKER --------
	tracker := limiters.NewAttemptTracker(limiters.TrackerDeps{
		Store:      b.store,
		Logger:     logger.WithField("component", "lockout"),
		Now:        clock.Now,
		OnFailOpen: func() { metrics.Inc(MetricLockoutFailOpen) },
	}, limiters.LockoutConfig{
		MaxAttempts:  cfg.Lockout.MaxAttempts,
		LockDuration: cfg.Lockout.LockDuration,
		StaleAfter:   cfg.Lockout.StaleAfter,
	})

	// -------- AUDIT --------
	activity := internalaudit.NewDocumentSink(b.store, logger.WithField("component", "audit"))
	var (
		sink       AuditSink = internalaudit.NoOpSink{}
		dispatcher *internalaudit.Dispatcher
	)
	if cfg.Audit.Enabled {
		sink = activity
		if b.auditSink != nil {
			sink = b.auditSink
		}
		if cfg.Audit.Async {
			dispatcher = internalaudit.NewDispatcher(internalaudit.Config{
				Enabled:    true,
				BufferSize: cfg.Audit.BufferSize,
				DropIfFull: cfg.Audit.DropIfFull,
				Logger:     logger.WithField("component", "audit"),
				Now:        clock.Now,
			}, sink)
			sink = dispatcher
		}
	}

	users := stores.NewUsers(b.store)

	e := &Engine{
		config:     cfg,
		store:      b.store,
		users:      users,
		tracker:    tracker,
		hasher:     hasher,
		tokens:     tokens,
		activity:   activity,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		clock:      clock,
	}
	_, e.logOnlyNotifier = notifier.(LogNotifier)
	e.flows = flows.New(buildFlowDeps(cfg, e, sink, notifier))

	b.built = true
	return e, nil
}

func buildFlowDeps(cfg Config, e *Engine, sink AuditSink, notifier Notifier) flows.Deps {
	now := e.clock.Now
	inc := func(id int) { e.metrics.Inc(MetricID(id)) }

	common := flows.Common{
		Errors: flows.Errors{
			MissingFields:      ErrMissingFields,
			EmailExists:        ErrEmailExists,
			WeakPassword:       ErrWeakPassword,
			InvalidCredentials: ErrInvalidCredentials,
			Unauthorized:       ErrUnauthorized,
			Forbidden:          ErrForbidden,
			LoginRateLimited:   ErrLoginRateLimited,
			ResetTokenInvalid:  ErrResetTokenInvalid,
			UserNotFound:       ErrUserNotFound,
			InvalidRole:        ErrInvalidRole,
			Internal:           ErrInternal,
		},
		Metrics: flows.Metrics{
			LoginSuccess:          int(MetricLoginSuccess),
			LoginFailure:          int(MetricLoginFailure),
			LoginRateLimited:      int(MetricLoginRateLimited),
			Registration:          int(MetricRegistration),
			RegistrationDuplicate: int(MetricRegistrationDuplicate),
			PasswordChange:        int(MetricPasswordChange),
			PasswordResetRequest:  int(MetricPasswordResetRequest),
			PasswordReset:         int(MetricPasswordReset),
			PasswordResetFailure:  int(MetricPasswordResetFailure),
			AccountDeleted:        int(MetricAccountDeleted),
			RoleChanged:           int(MetricRoleChanged),
		},
		Logger:    e.logger,
		Now:       now,
		Inc:       inc,
		Emit:      sink.Emit,
		ClientIP:  clientIPFromContext,
		UserAgent: userAgentFromContext,
	}

	return flows.Deps{
		Register: flows.RegisterDeps{
			Common:         common,
			DefaultRole:    RoleUser,
			NewUserID:      uuid.NewString,
			GetUserByEmail: e.users.ByEmail,
			InsertUser:     e.users.Insert,
			HashPassword:   e.hasher.Hash,
			IssueToken:     e.tokens.Issue,
		},
		Login: flows.LoginDeps{
			Common:                 common,
			PasswordUpgradeOnLogin: cfg.Password.UpgradeOnLogin,
			CheckAttempts:          e.tracker.Check,
			RecordFailure:          e.tracker.RecordFailure,
			ClearAttempts:          e.tracker.Clear,
			GetUserByEmail:         e.users.ByEmail,
			UpdateHash: func(ctx context.Context, id, hash string) error {
				return e.users.UpdateHash(ctx, id, hash, now().UTC())
			},
			VerifyPassword:       e.hasher.Verify,
			PasswordNeedsUpgrade: e.hasher.NeedsUpgrade,
			HashPassword:         e.hasher.Hash,
			IssueToken:           e.tokens.Issue,
		},
		Reset: flows.ResetDeps{
			Common:         common,
			TokenTTL:       cfg.PasswordReset.TTL,
			ExposeToken:    cfg.PasswordReset.ExposeToken,
			GetUserByEmail: e.users.ByEmail,
			GetUserByResetDigest: func(ctx context.Context, digest string) (*stores.UserRecord, error) {
				return e.users.ByResetDigest(ctx, digest, now().UTC())
			},
			SaveResetDigest: e.users.SetResetDigest,
			ConsumeReset: func(ctx context.Context, id, digest, hash string) error {
				return e.users.ConsumeReset(ctx, id, digest, hash, now().UTC())
			},
			NewToken:     internal.NewResetToken,
			DigestToken:  internal.DigestResetToken,
			Notify:       notifier.Send,
			HashPassword: e.hasher.Hash,
		},
		Account: flows.AccountDeps{
			Common:      common,
			AdminRole:   RoleAdmin,
			Roles:       []string{RoleUser, RoleAdmin},
			Identity:    IdentityFromContext,
			GetUserByID: e.users.ByID,
			SetPassword: func(ctx context.Context, id, hash string) error {
				return e.users.SetPassword(ctx, id, hash, now().UTC())
			},
			SetRole: func(ctx context.Context, id, role string) error {
				return e.users.SetRole(ctx, id, role, now().UTC())
			},
			DeleteUser:     e.users.Delete,
			FindLogs:       e.activity.Find,
			VerifyPassword: e.hasher.Verify,
			HashPassword:   e.hasher.Hash,
		},
	}
}
