// Package jwt issues and verifies the stateless session tokens handed out at
// login and registration.
//
// A token carries the user id, email and role plus iat/exp. Verification pins
// the configured algorithm, so a token signed with any other algorithm (including
// "none") is rejected before its signature is checked.
package jwt
