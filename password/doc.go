// Package password hashes and verifies account credentials.
//
// # Output format
//
// New digests are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Digests imported from the legacy bcrypt store ($2a$, $2b$, $2y$) still verify.
// [Argon2.NeedsUpgrade] reports true for those and for argon2id digests produced
// with weaker parameters, so the caller can re-hash after the next successful login.
//
// # Boundaries
//
// This package owns hashing and verification only. Strength policy lives in
// package strength; storage lives with the caller. Plaintext passwords and digests
// are never logged here.
package password
