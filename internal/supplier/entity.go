// AngelaMos | 2026
// entity.go

package supplier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
	StatusExpired  Status = "EXPIRED"
)

var (
	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrRateLimitExceeded = fmt.Errorf("supplier token limit: %w", core.ErrRateLimited)
	ErrTokenNotFound     = errors.New("supplier token not found")
	ErrTokenExpired      = fmt.Errorf("supplier token: %w", core.ErrTokenExpired)
	ErrSubjectMismatch   = errors.New("token subject does not match supplier")
	ErrTokenMismatch     = errors.New("token does not belong to this order")
	ErrAlreadyDecided    = fmt.Errorf("supplier token already decided: %w", core.ErrConflict)
	ErrInvalidStatus     = errors.New("invalid supplier decision")
)

// ParseDecision maps a requested decision onto a terminal status.
// APPROVED and REJECTED are accepted as aliases.
func ParseDecision(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusAccepted, "APPROVED":
		return StatusAccepted, nil
	case StatusDeclined, "REJECTED":
		return StatusDeclined, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidStatus)
	}
}

type Supplier struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

// Token is the persisted half of a supplier confirmation token. Only the
// sha256 of the raw token is stored.
type Token struct {
	ID           string     `db:"id"`
	TokenHash    string     `db:"token_hash"`
	ItemID       string     `db:"item_id"`
	Quantity     int        `db:"quantity"`
	RequiredDate time.Time  `db:"required_date"`
	Status       Status     `db:"status"`
	SupplierID   string     `db:"supplier_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	DecidedAt    *time.Time `db:"decided_at"`
}

func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Order is a token joined with the supplier it was issued to.
type Order struct {
	Token
	Supplier Supplier `db:"supplier"`
}
