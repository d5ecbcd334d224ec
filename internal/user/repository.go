// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/lockout"
)

type Repository interface {
	lockout.Store

	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ChangePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	CountLocked(ctx context.Context, now time.Time) (int, error)

	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	ClearNotifications(ctx context.Context, userID string) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `
	id, username, email, password_hash, role, firstname, lastname,
	contact, address, city, postal_code, country, referral_code,
	failed_attempts, locked_until, token_version, last_login,
	created_at, updated_at`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, username, email, password_hash, role, firstname, lastname,
			contact, address, city, postal_code, country, referral_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at, token_version`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Firstname,
		user.Lastname,
		user.Contact,
		user.Address,
		user.City,
		user.PostalCode,
		user.Country,
		user.ReferralCode,
	).Scan(&user.CreatedAt, &user.UpdatedAt, &user.TokenVersion)
	if err != nil {
		return fmt.Errorf("create user: %w", translateDuplicate(err))
	}

	return nil
}

func translateDuplicate(err error) error {
	constraint, ok := core.UniqueViolation(err)
	if !ok {
		return err
	}

	switch constraint {
	case constraintUsername:
		return ErrUsernameTaken
	case constraintEmail:
		return ErrEmailTaken
	default:
		return core.ErrDuplicateKey
	}
}

func (r *repository) getOne(
	ctx context.Context,
	op, where string,
	arg any,
) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where

	var user User
	err := r.db.GetContext(ctx, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "get user", "id = $1", id)
}

// GetByEmail expects a lowercased email; emails are stored lowercased.
func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	return r.getOne(ctx, "get user by email", "email = $1", email)
}

func (r *repository) GetByUsername(
	ctx context.Context,
	username string,
) (*User, error) {
	return r.getOne(
		ctx,
		"get user by username",
		"LOWER(username) = LOWER($1)",
		username,
	)
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) ExistsByUsername(
	ctx context.Context,
	username string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username); err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}

	return exists, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

// ChangePassword also bumps token_version, revoking every session token
// issued before the change.
func (r *repository) ChangePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2,
		    token_version = token_version + 1,
		    updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "change password", query, id, passwordHash)
}

// IncrementFailures applies one failed login in a single statement. A row
// that is still locked is not matched and is read back unchanged.
func (r *repository) IncrementFailures(
	ctx context.Context,
	accountID string,
	now time.Time,
	policy lockout.Policy,
) (lockout.State, error) {
	query := `
		UPDATE users
		SET failed_attempts = CASE
		        WHEN locked_until IS NOT NULL THEN 1
		        ELSE failed_attempts + 1
		    END,
		    locked_until = CASE
		        WHEN (CASE WHEN locked_until IS NOT NULL THEN 1
		                   ELSE failed_attempts + 1 END) >= $3 THEN $4::timestamptz
		        ELSE NULL
		    END,
		    updated_at = $2
		WHERE id = $1 AND (locked_until IS NULL OR locked_until <= $2)
		RETURNING failed_attempts, locked_until`

	var state lockout.State
	err := r.db.QueryRowxContext(ctx, query,
		accountID,
		now,
		policy.MaxAttempts,
		now.Add(policy.LockDuration),
	).Scan(&state.FailedAttempts, &state.LockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		user, getErr := r.GetByID(ctx, accountID)
		if getErr != nil {
			return lockout.State{}, fmt.Errorf("increment failures: %w", getErr)
		}
		return user.LockState(), nil
	}
	if err != nil {
		return lockout.State{}, fmt.Errorf("increment failures: %w", err)
	}

	return state, nil
}

// ResetFailures clears the failure count unless a lock is in force at
// now, in which case the locked row is read back unchanged.
func (r *repository) ResetFailures(
	ctx context.Context,
	accountID string,
	now time.Time,
) (lockout.State, error) {
	query := `
		UPDATE users
		SET failed_attempts = 0,
		    locked_until = NULL,
		    last_login = $2,
		    updated_at = $2
		WHERE id = $1 AND (locked_until IS NULL OR locked_until <= $2)`

	result, err := r.db.ExecContext(ctx, query, accountID, now)
	if err != nil {
		return lockout.State{}, fmt.Errorf("reset failures: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return lockout.State{}, fmt.Errorf("reset failures: %w", err)
	}
	if rows == 1 {
		return lockout.State{}, nil
	}

	user, err := r.GetByID(ctx, accountID)
	if err != nil {
		return lockout.State{}, fmt.Errorf("reset failures: %w", err)
	}
	return user.LockState(), nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR username ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM users WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		userColumns, whereClause, argIdx, argIdx+1,
	)
	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) CountLocked(
	ctx context.Context,
	now time.Time,
) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE locked_until > $1`

	var n int
	if err := r.db.GetContext(ctx, &n, query, now); err != nil {
		return 0, fmt.Errorf("count locked users: %w", err)
	}
	return n, nil
}

func (r *repository) ListNotifications(
	ctx context.Context,
	userID string,
) ([]Notification, error) {
	query := `
		SELECT id, user_id, message, created_at
		FROM user_notifications
		WHERE user_id = $1
		ORDER BY id`

	notifications := []Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, nil
}

func (r *repository) ClearNotifications(
	ctx context.Context,
	userID string,
) (int64, error) {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM user_notifications WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}

	return result.RowsAffected()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
