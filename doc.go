// Package authcore is the authentication and abuse-prevention core of a user
// management backend: registration, login with per-origin lockout, password
// reset and change, account deletion, role changes and activity logging, all
// over a generic document store.
//
// Build an [Engine] with [New]:
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithStore(memstore.New()).
//		Build()
//
// Engine methods are safe to call from multiple goroutines. Each flow returns a
// [Result] carrying an HTTP-equivalent status, a caller-safe message and, on
// failure, a classified [*Error] usable with errors.Is against the sentinels in
// this package.
//
// # Architecture boundaries
//
// authcore is the public surface. Flow orchestration, the attempt tracker, the
// user repository and audit dispatch live under internal/ and are not exported.
// Storage backends live in docstore and its sub-packages.
//
// # What this package must NOT do
//
//   - Return or log credential digests, reset tokens or session tokens other
//     than the one issued to the caller.
//   - Distinguish an unknown email from a wrong password in any response.
//   - Hold process-wide mutable state; every handle is injected through Builder.
package authcore
