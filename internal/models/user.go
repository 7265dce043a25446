package models

import "time"

// User represents a user account in the system.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Age          int       `json:"age"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	Avatar       []byte    `json:"-"` // Served only through the avatar endpoint
	CreatedAt    time.Time `json:"createdAt"`
}
