package models

import "time"

// Session is one issued login token. A JWT only authenticates while its
// session row still exists, which is what makes logout and logoutAll work.
type Session struct {
	ID       string    `json:"id"` // the token's jti claim
	UserID   string    `json:"userId"`
	Token    string    `json:"-"`
	IssuedAt time.Time `json:"issuedAt"`
}
