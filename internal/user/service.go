// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/auth"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.Account, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toAccount(user), nil
}

// FindByIdentifier treats anything containing "@" as an email.
func (s *Service) FindByIdentifier(
	ctx context.Context,
	identifier string,
) (*auth.Account, error) {
	var (
		user *User
		err  error
	)

	if strings.Contains(identifier, "@") {
		user, err = s.repo.GetByEmail(ctx, CanonicalEmail(identifier))
	} else {
		user, err = s.repo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}

	return toAccount(user), nil
}

func (s *Service) UsernameExists(
	ctx context.Context,
	username string,
) (bool, error) {
	return s.repo.ExistsByUsername(ctx, username)
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, CanonicalEmail(email))
}

func (s *Service) Create(
	ctx context.Context,
	account auth.NewAccount,
) (*auth.Account, error) {
	role := account.Role
	if role == "" {
		role = RoleUser
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     account.Username,
		Email:        CanonicalEmail(account.Email),
		PasswordHash: account.PasswordHash,
		Role:         role,
		Firstname:    account.Firstname,
		Lastname:     account.Lastname,
		Contact:      account.Contact,
		Address:      account.Address,
		City:         account.City,
		PostalCode:   account.PostalCode,
		Country:      account.Country,
		ReferralCode: account.ReferralCode,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toAccount(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

func (s *Service) ChangePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	return s.repo.ChangePassword(ctx, id, passwordHash)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) ListNotifications(
	ctx context.Context,
	userID string,
) ([]Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("list notifications: %w", core.ErrUnauthorized)
	}

	return s.repo.ListNotifications(ctx, userID)
}

func (s *Service) ClearNotifications(
	ctx context.Context,
	userID string,
) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("clear notifications: %w", core.ErrUnauthorized)
	}

	return s.repo.ClearNotifications(ctx, userID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) CountLocked(ctx context.Context) (int, error) {
	return s.repo.CountLocked(ctx, time.Now())
}

// CanonicalEmail is the stored and compared form of an email address.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toAccount(u *User) *auth.Account {
	return &auth.Account{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		Firstname:    u.Firstname,
		Lastname:     u.Lastname,
		Contact:      u.Contact,
		Address:      u.Address,
		City:         u.City,
		PostalCode:   u.PostalCode,
		Country:      u.Country,
		TokenVersion: u.TokenVersion,
		Lock:         u.LockState(),
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
	}
}

var _ auth.AccountStore = (*Service)(nil)
