package models

import "time"

// RefreshToken is the single rotation credential of a user. UserID is the
// primary key, so at most one live refresh token can exist per user; every
// re-issuance overwrites Token and ExpiresAt in place.
type RefreshToken struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
