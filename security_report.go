package authcore

import "github.com/MrEthical07/authcore/internal/security"

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by Engine.SecurityReport. Warnings lists settings unfit for
// production.
type SecurityReport = security.Report

// PasswordConfigReport mirrors the argon2id parameters in SecurityReport.
type PasswordConfigReport = security.PasswordReport

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: e.config.JWT.SigningMethod,
		SessionTTL:       e.config.JWT.TTL,
		Leeway:           e.config.JWT.Leeway,
		Password: security.PasswordReport{
			Memory:         e.config.Password.Memory,
			Time:           e.config.Password.Time,
			Parallelism:    e.config.Password.Parallelism,
			SaltLength:     e.config.Password.SaltLength,
			KeyLength:      e.config.Password.KeyLength,
			UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		},
		MaxLoginAttempts:  e.config.Lockout.MaxAttempts,
		LockDuration:      e.config.Lockout.LockDuration,
		ResetTokenTTL:     e.config.PasswordReset.TTL,
		ExposeResetToken:  e.config.PasswordReset.ExposeToken,
		LogOnlyNotifier:   e.logOnlyNotifier,
		AuditEnabled:      e.config.Audit.Enabled,
		AuditAsync:        e.config.Audit.Async,
		AuditDropIfFull:   e.config.Audit.DropIfFull,
		LatencyHistograms: e.config.Metrics.Enabled && e.config.Metrics.EnableLatencyHistograms,
	})
}
