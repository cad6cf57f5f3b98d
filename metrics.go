package authcore

import internalmetrics "github.com/MrEthical07/authcore/internal/metrics"

// MetricID identifies a counter or histogram in the in-process metrics.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess          = internalmetrics.MetricLoginSuccess
	MetricLoginFailure          = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited      = internalmetrics.MetricLoginRateLimited
	MetricRegistration          = internalmetrics.MetricRegistration
	MetricRegistrationDuplicate = internalmetrics.MetricRegistrationDuplicate
	MetricPasswordChange        = internalmetrics.MetricPasswordChange
	MetricPasswordResetRequest  = internalmetrics.MetricPasswordResetRequest
	MetricPasswordReset         = internalmetrics.MetricPasswordReset
	MetricPasswordResetFailure  = internalmetrics.MetricPasswordResetFailure
	MetricAccountDeleted        = internalmetrics.MetricAccountDeleted
	MetricRoleChanged           = internalmetrics.MetricRoleChanged
	MetricAuthenticateFailure   = internalmetrics.MetricAuthenticateFailure
	// MetricLockoutFailOpen counts logins allowed because the attempt tracker's store failed.
	MetricLockoutFailOpen = internalmetrics.MetricLockoutFailOpen
	// MetricLoginLatency is a histogram, recorded only with Metrics.EnableLatencyHistograms.
	MetricLoginLatency = internalmetrics.MetricLoginLatency
)

// Metrics holds atomic counters and the optional login latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns a Metrics configured by cfg. When Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
