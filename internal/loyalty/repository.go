// AngelaMos | 2026
// repository.go

package loyalty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

type Repository interface {
	GetReferral(ctx context.Context, token string) (*Referral, error)
	CreateReferral(ctx context.Context, referral *Referral) error
	GetLoyalty(ctx context.Context, email string) (*Loyalty, error)
	Enroll(ctx context.Context, email string) error
	FindAccountID(ctx context.Context, email string) (string, error)

	// WithTx runs fn atomically; any error from fn rolls everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes that make up one referral credit.
type Tx interface {
	ConsumeReferral(ctx context.Context, token string) error
	AddPoints(
		ctx context.Context,
		email string,
		points int,
	) (*Loyalty, error)
	SetTier(ctx context.Context, email string, tier Tier) error
	Notify(ctx context.Context, accountID, message string) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetReferral(
	ctx context.Context,
	token string,
) (*Referral, error) {
	query := `
		SELECT id, referrer_email, referred_email, token, created_at
		FROM referrals
		WHERE token = $1`

	var ref Referral
	err := r.db.GetContext(ctx, &ref, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get referral: %w", ErrReferralNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get referral: %w", err)
	}

	return &ref, nil
}

func (r *repository) CreateReferral(
	ctx context.Context,
	referral *Referral,
) error {
	query := `
		INSERT INTO referrals (id, referrer_email, referred_email, token)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &referral.CreatedAt, query,
		referral.ID,
		referral.ReferrerEmail,
		referral.ReferredEmail,
		referral.Token,
	)
	if err != nil {
		if _, dup := core.UniqueViolation(err); dup {
			return fmt.Errorf("create referral: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create referral: %w", err)
	}

	return nil
}

func (r *repository) GetLoyalty(
	ctx context.Context,
	email string,
) (*Loyalty, error) {
	query := `
		SELECT email, loyalty_points, referred_count, tier, updated_at
		FROM loyalty
		WHERE email = $1`

	var l Loyalty
	err := r.db.GetContext(ctx, &l, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get loyalty: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get loyalty: %w", err)
	}

	return &l, nil
}

func (r *repository) Enroll(ctx context.Context, email string) error {
	query := `
		INSERT INTO loyalty (email, loyalty_points, referred_count, tier)
		VALUES ($1, 0, 0, $2)
		ON CONFLICT (email) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, email, TierFor(0)); err != nil {
		return fmt.Errorf("enroll loyalty: %w", err)
	}
	return nil
}

func (r *repository) FindAccountID(
	ctx context.Context,
	email string,
) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT id FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find referrer: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find referrer: %w", err)
	}
	return id, nil
}

func (r *repository) WithTx(
	ctx context.Context,
	fn func(tx Tx) error,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

type txRepository struct {
	tx *sqlx.Tx
}

// ConsumeReferral deletes the referral row. A concurrent consumer blocks
// on the row lock and then finds nothing to delete.
func (t *txRepository) ConsumeReferral(
	ctx context.Context,
	token string,
) error {
	result, err := t.tx.ExecContext(
		ctx,
		`DELETE FROM referrals WHERE token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("consume referral: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume referral: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("consume referral: %w", ErrReferralConsumed)
	}

	return nil
}

func (t *txRepository) AddPoints(
	ctx context.Context,
	email string,
	points int,
) (*Loyalty, error) {
	query := `
		UPDATE loyalty
		SET loyalty_points = loyalty_points + $2,
		    referred_count = referred_count + 1,
		    updated_at = NOW()
		WHERE email = $1
		RETURNING email, loyalty_points, referred_count, tier, updated_at`

	var l Loyalty
	err := t.tx.GetContext(ctx, &l, query, email, points)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("add points: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("add points: %w", err)
	}

	return &l, nil
}

func (t *txRepository) SetTier(
	ctx context.Context,
	email string,
	tier Tier,
) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE loyalty SET tier = $2 WHERE email = $1`,
		email,
		tier,
	)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	return nil
}

func (t *txRepository) Notify(
	ctx context.Context,
	accountID, message string,
) error {
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO user_notifications (user_id, message) VALUES ($1, $2)`,
		accountID,
		message,
	)
	if err != nil {
		return fmt.Errorf("add notification: %w", err)
	}
	return nil
}
