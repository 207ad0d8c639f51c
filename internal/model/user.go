// Package model defines the data structures used throughout the application.
//
// Every entity except User carries the id of the user that owns it. Stores
// always filter by that owner id; nothing outside the service layer decides
// ownership.
package model

import "time"

// User represents a registered account.
//
// Email and Phone are both unique across the table. PasswordHash never leaves
// the process: the json tag hides it from every response.
type User struct {
	ID           int64     `json:"id"         db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name"  db:"last_name"`
	Phone        string    `json:"phone"      db:"phone"`
	Email        string    `json:"email"      db:"email"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
