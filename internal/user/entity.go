// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/auth"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/lockout"
)

type User struct {
	ID             string     `db:"id"`
	Username       string     `db:"username"`
	Email          string     `db:"email"`
	PasswordHash   string     `db:"password_hash"`
	Role           string     `db:"role"`
	Firstname      string     `db:"firstname"`
	Lastname       string     `db:"lastname"`
	Contact        *string    `db:"contact"`
	Address        *string    `db:"address"`
	City           *string    `db:"city"`
	PostalCode     *string    `db:"postal_code"`
	Country        *string    `db:"country"`
	ReferralCode   *string    `db:"referral_code"`
	FailedAttempts int        `db:"failed_attempts"`
	LockedUntil    *time.Time `db:"locked_until"`
	TokenVersion   int        `db:"token_version"`
	LastLogin      *time.Time `db:"last_login"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (u *User) LockState() lockout.State {
	return lockout.State{
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
	}
}

type Notification struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	RoleUser     = "user"
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleSupplier = "supplier"
)

// Names of the unique indexes on users; used to tell which field collided.
const (
	constraintUsername = "users_username_lower_key"
	constraintEmail    = "users_email_key"
)

var (
	ErrUsernameTaken = auth.ErrUsernameTaken
	ErrEmailTaken    = auth.ErrEmailTaken
)
