// Package flows contains the orchestration for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunResetPassword, ...) takes a typed
// dependency struct of func fields and returns an Outcome plus an error wrapping
// one of the host sentinels carried in Errors. The Engine builds the dependency
// structs once and keeps the public surface thin.
//
// # Architecture boundaries
//
// Flows coordinate the user repository, attempt tracker, hasher, token manager,
// audit sink and metrics. They do not own any of them; ownership stays with the
// Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authcore (to avoid import cycles).
//   - Log credential material, digests or tokens.
package flows
