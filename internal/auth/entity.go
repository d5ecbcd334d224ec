// AngelaMos | 2026
// entity.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/lockout"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = fmt.Errorf("username: %w", core.ErrDuplicateKey)
	ErrEmailTaken         = fmt.Errorf("email: %w", core.ErrDuplicateKey)
	ErrInvalidReferral    = errors.New("invalid referral code")
)

// DuplicateField names the field behind a duplicate-key error.
func DuplicateField(err error) string {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return "username"
	case errors.Is(err, ErrEmailTaken):
		return "email"
	default:
		return ""
	}
}

type Account struct {
	ID           string
	Username     string
	Email        string
	Role         string
	PasswordHash string
	Firstname    string
	Lastname     string
	Contact      *string
	Address      *string
	City         *string
	PostalCode   *string
	Country      *string
	TokenVersion int
	Lock         lockout.State
	LastLogin    *time.Time
	CreatedAt    time.Time
}

type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Firstname    string
	Lastname     string
	Contact      *string
	Address      *string
	City         *string
	PostalCode   *string
	Country      *string
	ReferralCode *string
}

// AccountStore is the credential store. Emails are compared lowercased,
// usernames case-insensitively. Create reports collisions as
// ErrUsernameTaken or ErrEmailTaken.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, account NewAccount) (*Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ChangePassword(ctx context.Context, id, passwordHash string) error
}

// ReferralProcessor credits the referrer once a referred account exists.
type ReferralProcessor interface {
	ReferralExists(ctx context.Context, token string) (bool, error)
	Enroll(ctx context.Context, email string) error
	ProcessReferral(ctx context.Context, token, referredEmail string)
}
