// Package limiters holds the brute-force lockout tracker.
//
// [AttemptTracker] keeps one LoginAttemptState document per (email, origin)
// pair in the document store and moves it clean → counting → locked → clean.
// Policy thresholds come from [LockoutConfig]; what a denial means for the
// caller is decided by the login flow.
package limiters
