// Package stores adapts the users collection of a docstore.Store to typed records
// and keeps the user_emails claims that make email unique on every backend.
//
// It owns field names and document shape only. Token generation, hashing and
// authorization decisions belong to internal/flows. Credential digests are read
// and written here but never logged.
package stores
