package models

import "time"

// User is an identity row. PasswordHash is opaque everywhere except the
// security package that produced it.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserUpdate carries a partial profile change. A nil field means
// "leave unchanged"; Password, when set, is the new plaintext to be hashed
// by the service before it reaches a repository.
type UserUpdate struct {
	Username *string
	Password *string
	Email    *string
}

// UserPatch is the store-level form of UserUpdate: the password has already
// been hashed. Nil fields leave the column untouched.
type UserPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
}
