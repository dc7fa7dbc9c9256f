// Package model defines domain entities for the application.
package model

import "time"

// User is a registered account that can publish match posts.
// PasswordHash is the stored credential record, never the plaintext secret.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Phone        *string   `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}
