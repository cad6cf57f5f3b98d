package limiters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/sirupsen/logrus"
)

// AttemptsCollection holds one LoginAttemptState document per (email, origin).
const AttemptsCollection = "login_attempts"

const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 15 * time.Minute
	DefaultStaleAfter   = 24 * time.Hour

	casRetries = 3
)

// LockoutConfig tunes the attempt tracker. Zero values take the defaults above.
type LockoutConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	LockDuration time.Duration `yaml:"lock_duration"`
	StaleAfter   time.Duration `yaml:"stale_after"`
}

func (c LockoutConfig) withDefaults() LockoutConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.LockDuration <= 0 {
		c.LockDuration = DefaultLockDuration
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	return c
}

// TrackerDeps are the collaborators of an AttemptTracker.
type TrackerDeps struct {
	Store  docstore.Store
	Logger logrus.FieldLogger
	Now    func() time.Time
	// OnFailOpen is called whenever a store error lets a Check through.
	OnFailOpen func()
}

// CheckResult is the tracker's verdict for one login attempt.
type CheckResult struct {
	Allowed           bool
	Message           string
	RemainingAttempts int
	LockedUntil       time.Time
}

// AttemptTracker counts failed logins per (email, origin) and locks the pair
// once MaxAttempts is reached. State lives entirely in the document store;
// single-document writes are the only serialization point.
//
// Store errors never lock anyone out: Check fails open and RecordFailure
// reports zero remaining attempts.
type AttemptTracker struct {
	deps   TrackerDeps
	config LockoutConfig
}

// NewAttemptTracker builds a tracker. Logger and Now default to a discarding
// logger and time.Now.
func NewAttemptTracker(deps TrackerDeps, cfg LockoutConfig) *AttemptTracker {
	if deps.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		deps.Logger = l
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &AttemptTracker{deps: deps, config: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (t *AttemptTracker) Config() LockoutConfig {
	return t.config
}

// attemptID is the deterministic primary key for a pair, so concurrent first
// failures collide on insert instead of creating two records.
func attemptID(email, ip string) string {
	return email + "|" + ip
}

func keyFilter(email, ip string) docstore.Filter {
	return docstore.Filter{docstore.IDField: attemptID(email, ip)}
}

// Check decides whether a login for (email, ip) may proceed.
func (t *AttemptTracker) Check(ctx context.Context, email, ip string) CheckResult {
	log := t.deps.Logger.WithField("ip", ip)
	now := t.deps.Now()

	doc, err := t.deps.Store.FindOne(ctx, AttemptsCollection, keyFilter(email, ip))
	if errors.Is(err, docstore.ErrNotFound) {
		return CheckResult{Allowed: true, RemainingAttempts: t.config.MaxAttempts}
	}
	if err != nil {
		return t.failOpen(log, "check", err)
	}

	if lockedUntil, locked := doc.Time("lockedUntil"); locked {
		if now.Before(lockedUntil) {
			return CheckResult{
				Allowed:     false,
				Message:     lockMessage(lockedUntil.Sub(now)),
				LockedUntil: lockedUntil,
			}
		}
		if _, err := t.deps.Store.DeleteOne(ctx, AttemptsCollection, keyFilter(email, ip)); err != nil {
			log.WithError(err).Warn("login attempt tracker: failed to reset expired lock")
		}
		return CheckResult{Allowed: true, RemainingAttempts: t.config.MaxAttempts}
	}

	attempts := doc.Int("attempts")
	if attempts >= t.config.MaxAttempts {
		lockedUntil := now.Add(t.config.LockDuration)
		_, err := t.deps.Store.UpdateOne(ctx, AttemptsCollection, keyFilter(email, ip), docstore.Update{
			Set: map[string]any{"lockedUntil": lockedUntil, "lastAttempt": now},
		})
		if err != nil {
			log.WithError(err).Warn("login attempt tracker: failed to persist lock")
		}
		return CheckResult{
			Allowed:     false,
			Message:     lockMessage(t.config.LockDuration),
			LockedUntil: lockedUntil,
		}
	}

	return CheckResult{Allowed: true, RemainingAttempts: t.config.MaxAttempts - attempts}
}

func (t *AttemptTracker) failOpen(log logrus.FieldLogger, op string, err error) CheckResult {
	log.WithError(err).WithField("op", op).Warn("login attempt tracker unavailable, allowing attempt")
	if t.deps.OnFailOpen != nil {
		t.deps.OnFailOpen()
	}
	return CheckResult{Allowed: true, RemainingAttempts: t.config.MaxAttempts}
}

// RecordFailure counts one failed login and returns the attempts left before
// the pair locks. Locked records are left untouched and report zero.
func (t *AttemptTracker) RecordFailure(ctx context.Context, email, ip string) int {
	log := t.deps.Logger.WithField("ip", ip)
	filter := keyFilter(email, ip)

	for i := 0; i < casRetries; i++ {
		now := t.deps.Now()
		doc, err := t.deps.Store.FindOne(ctx, AttemptsCollection, filter)
		if errors.Is(err, docstore.ErrNotFound) {
			err = t.deps.Store.InsertOne(ctx, AttemptsCollection, docstore.Document{
				docstore.IDField: attemptID(email, ip),
				"email":          email,
				"ipAddress":      ip,
				"attempts":       1,
				"lastAttempt":    now,
			})
			if errors.Is(err, docstore.ErrDuplicate) {
				continue
			}
			if err != nil {
				log.WithError(err).Warn("login attempt tracker: failed to record failure")
				return 0
			}
			return t.config.MaxAttempts - 1
		}
		if err != nil {
			log.WithError(err).Warn("login attempt tracker: failed to record failure")
			return 0
		}

		if _, locked := doc.Time("lockedUntil"); locked {
			return 0
		}

		current := doc.Int("attempts")
		next := current + 1
		// Conditional on the counter we read so two racing failures cannot both
		// write the same value.
		matched, err := t.deps.Store.UpdateOne(ctx, AttemptsCollection,
			docstore.Filter{docstore.IDField: attemptID(email, ip), "attempts": current},
			docstore.Update{Set: map[string]any{"attempts": next, "lastAttempt": now}},
		)
		if err != nil {
			log.WithError(err).Warn("login attempt tracker: failed to record failure")
			return 0
		}
		if matched == 0 {
			continue
		}
		return max(0, t.config.MaxAttempts-next)
	}

	log.Warn("login attempt tracker: contention recording failure")
	return 0
}

// Clear removes the record for (email, ip). Called once on successful login.
func (t *AttemptTracker) Clear(ctx context.Context, email, ip string) {
	if _, err := t.deps.Store.DeleteOne(ctx, AttemptsCollection, keyFilter(email, ip)); err != nil {
		t.deps.Logger.WithField("ip", ip).WithError(err).Warn("login attempt tracker: failed to clear attempts")
	}
}

// Sweep purges records whose last attempt is older than StaleAfter and that
// carry no lock. It is meant to run periodically, not per request.
func (t *AttemptTracker) Sweep(ctx context.Context) (int64, error) {
	horizon := t.deps.Now().Add(-t.config.StaleAfter)
	n, err := t.deps.Store.DeleteMany(ctx, AttemptsCollection, docstore.Filter{
		"lastAttempt": docstore.Lt(horizon),
		"lockedUntil": docstore.Exists(false),
	})
	if err != nil {
		return 0, fmt.Errorf("sweep login attempts: %w", err)
	}
	return n, nil
}

func lockMessage(remaining time.Duration) string {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Too many failed login attempts. Try again in %d %s.", minutes, unit)
}
