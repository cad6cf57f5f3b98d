package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter fed by Engine.AuditDropped.
const AuditDroppedName = "authcore_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Logins rejected by the per-origin lockout."},
	{ID: authcore.MetricRegistration, Name: "authcore_registration_total", Help: "Accounts registered."},
	{ID: authcore.MetricRegistrationDuplicate, Name: "authcore_registration_duplicate_total", Help: "Registrations rejected because the email exists."},
	{ID: authcore.MetricPasswordChange, Name: "authcore_password_change_total", Help: "Password changes by authenticated users."},
	{ID: authcore.MetricPasswordResetRequest, Name: "authcore_password_reset_request_total", Help: "Password reset tokens issued."},
	{ID: authcore.MetricPasswordReset, Name: "authcore_password_reset_total", Help: "Passwords reset with a token."},
	{ID: authcore.MetricPasswordResetFailure, Name: "authcore_password_reset_failure_total", Help: "Reset attempts with an invalid or expired token."},
	{ID: authcore.MetricAccountDeleted, Name: "authcore_account_deleted_total", Help: "Accounts deleted."},
	{ID: authcore.MetricRoleChanged, Name: "authcore_role_changed_total", Help: "Role changes made by admins."},
	{ID: authcore.MetricAuthenticateFailure, Name: "authcore_authenticate_failure_total", Help: "Session tokens rejected."},
	{ID: authcore.MetricLockoutFailOpen, Name: "authcore_lockout_fail_open_total", Help: "Logins allowed because the attempt store failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricLoginLatency, Name: "authcore_login_latency_seconds", Help: "Login latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// in-process bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// emit one instrument per bucket.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// ApproxSum estimates the histogram sum from bucket upper bounds. The +Inf
// bucket contributes its lower bound.
func ApproxSum(raw [8]uint64) float64 {
	var sum float64
	for i, n := range raw {
		bound := HistogramUpperBounds[len(HistogramUpperBounds)-1]
		if i < len(HistogramUpperBounds) {
			bound = HistogramUpperBounds[i]
		}
		sum += float64(n) * bound
	}
	return sum
}
