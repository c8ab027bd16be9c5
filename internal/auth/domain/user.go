package domain

import "time"

// DefaultRole is assigned to every self-registered account.
const DefaultRole = "user"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id encoded
	FirstName    string
	LastName     string
	Enabled      bool
	Roles        []string // role names, e.g. ["user"] or ["user", "admin"]
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is used when addressing the user in outbound mail.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
