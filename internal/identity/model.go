package identity

import "time"

// Account roles. Clients fund projects, workers get paid for them.
const (
	RoleClient = "client"
	RoleWorker = "worker"
)

// User represents a registered marketplace account.
type User struct {
	ID           string
	Email        string
	Role         string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
	Role     string
}
