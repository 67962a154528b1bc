// Package models defines server-side data models persisted in the database.
package models

import "time"

// AccessToken is a persisted copy of an issued JWT. The token itself is
// self-contained; the row exists so expired issuances can be garbage
// collected and so tokens die with their owner (ON DELETE CASCADE).
// A user may hold any number of live access tokens.
type AccessToken struct {
	ID        int64
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
