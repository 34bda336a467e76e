// Package model defines the data structures used throughout the application.
//
// Model structs are plain data: no methods that touch the database, no HTTP
// knowledge. The `json:"..."` tags define the wire shape the API returns.
package model

import "time"

// User represents a registered account.
//
// Accounts are created either with a username/password pair or on first
// GitHub sign-in. GitHubID is nil for password-only accounts.
//
// WHY PasswordHash `json:"-"`?
// The bcrypt hash must never leave the server, not even by accident when a
// handler encodes a *User directly. The "-" tag makes encoding/json skip it.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfileImage *string   `json:"profile_image"`
	GitHubID     *int64    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the public projection of a user embedded in other views
// (comment authors, group member lists).
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
