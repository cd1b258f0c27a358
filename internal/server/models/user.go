// Package models defines the persisted entities of TaskPilot.
package models

import "time"

// User is a verified account. Users only come into existence through the
// signup OTP flow; the password is stored as a bcrypt hash.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
