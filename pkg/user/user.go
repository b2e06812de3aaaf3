package user

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User is provisioned from the external identity provider; the ledger treats
// it as read-only apart from the sync upsert.
type User struct {
	Id        int
	Uid       string
	ClerkId   string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
