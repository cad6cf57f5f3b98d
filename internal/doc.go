// Package internal holds helpers private to authcore.
//
// # Sub-packages
//
//   - audit: async activity-log dispatch (Dispatcher + Sink implementations)
//   - flows: flow orchestrators behind every Engine operation
//   - limiters: the per-(email, origin) login attempt tracker
//   - metrics: lock-free counters
//   - stores: the users collection adapter
package internal
