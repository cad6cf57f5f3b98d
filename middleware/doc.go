// Package middleware adapts authcore.Engine to net/http.
//
//   - [Guard] verifies the bearer session token and stores the identity in the
//     request context.
//   - [RequireRole] gates a handler on the identity's role.
//   - [ClientInfo] records the caller's IP and User-Agent for lockout scoping
//     and activity logs.
//
// Authentication decisions are delegated to Engine.Authenticate; this package
// never parses tokens itself.
package middleware
