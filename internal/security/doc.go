// Package security builds the read-only posture report returned by
// Engine.SecurityReport. It only inspects configuration.
package security
