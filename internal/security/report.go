package security

import (
	"fmt"
	"time"
)

// MaxRecommendedSessionTTL bounds how long an unrevocable session token
// should live before the report flags it.
const MaxRecommendedSessionTTL = 7 * 24 * time.Hour

type PasswordReport struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

type Report struct {
	SigningAlgorithm  string
	SessionTTL        time.Duration
	Leeway            time.Duration
	Argon2            PasswordReport
	MaxLoginAttempts  int
	LockDuration      time.Duration
	ResetTokenTTL     time.Duration
	ResetTokenExposed bool
	ResetDelivery     bool
	AuditEnabled      bool
	AuditMayDrop      bool
	LatencyHistograms bool
	Warnings          []string
}

type ReportInput struct {
	SigningAlgorithm  string
	SessionTTL        time.Duration
	Leeway            time.Duration
	Password          PasswordReport
	MaxLoginAttempts  int
	LockDuration      time.Duration
	ResetTokenTTL     time.Duration
	ExposeResetToken  bool
	LogOnlyNotifier   bool
	AuditEnabled      bool
	AuditAsync        bool
	AuditDropIfFull   bool
	LatencyHistograms bool
}

// BuildReport summarizes input and lists settings unfit for production.
func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm:  input.SigningAlgorithm,
		SessionTTL:        input.SessionTTL,
		Leeway:            input.Leeway,
		Argon2:            input.Password,
		MaxLoginAttempts:  input.MaxLoginAttempts,
		LockDuration:      input.LockDuration,
		ResetTokenTTL:     input.ResetTokenTTL,
		ResetTokenExposed: input.ExposeResetToken,
		ResetDelivery:     !input.LogOnlyNotifier,
		AuditEnabled:      input.AuditEnabled,
		AuditMayDrop:      input.AuditEnabled && input.AuditAsync && input.AuditDropIfFull,
		LatencyHistograms: input.LatencyHistograms,
	}

	if r.ResetTokenExposed {
		r.Warnings = append(r.Warnings, "reset tokens are returned to the caller")
	}
	if !r.ResetDelivery {
		r.Warnings = append(r.Warnings, "reset tokens are not delivered; notifier only logs")
	}
	if !r.AuditEnabled {
		r.Warnings = append(r.Warnings, "activity logging disabled")
	}
	if r.AuditMayDrop {
		r.Warnings = append(r.Warnings, "activity log entries are dropped when the buffer is full")
	}
	if r.SessionTTL > MaxRecommendedSessionTTL {
		r.Warnings = append(r.Warnings, fmt.Sprintf("session TTL %s exceeds %s and tokens cannot be revoked", r.SessionTTL, MaxRecommendedSessionTTL))
	}
	return r
}
