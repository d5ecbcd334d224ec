// AngelaMos | 2026
// repository.go

package supplier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

type Repository interface {
	CreateSupplier(ctx context.Context, s *Supplier) error
	GetSupplierByEmail(ctx context.Context, email string) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	CreateToken(ctx context.Context, t *Token) error
	FindPendingByHash(ctx context.Context, hash string) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)

	// Transition moves a PENDING, unexpired token to status. A PENDING
	// token found past its expiry is marked EXPIRED instead.
	Transition(
		ctx context.Context,
		id string,
		status Status,
		now time.Time,
	) (*Token, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const tokenColumns = `
	t.id, t.token_hash, t.item_id, t.quantity, t.required_date, t.status,
	t.supplier_id, t.expires_at, t.created_at, t.decided_at`

const orderColumns = tokenColumns + `,
	s.id AS "supplier.id", s.name AS "supplier.name",
	s.email AS "supplier.email", s.created_at AS "supplier.created_at"`

func (r *repository) CreateSupplier(ctx context.Context, s *Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, email)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query, s.ID, s.Name, s.Email)
	if err != nil {
		if _, dup := core.UniqueViolation(err); dup {
			return fmt.Errorf("create supplier: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create supplier: %w", err)
	}

	return nil
}

func (r *repository) GetSupplierByEmail(
	ctx context.Context,
	email string,
) (*Supplier, error) {
	query := `
		SELECT id, name, email, created_at
		FROM suppliers
		WHERE email = $1`

	var s Supplier
	err := r.db.GetContext(ctx, &s, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get supplier: %w", ErrSupplierNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}

	return &s, nil
}

func (r *repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	err := r.db.SelectContext(ctx, &suppliers, `
		SELECT id, name, email, created_at
		FROM suppliers
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, nil
}

func (r *repository) CreateToken(ctx context.Context, t *Token) error {
	query := `
		INSERT INTO supplier_tokens (
			id, token_hash, item_id, quantity, required_date,
			status, supplier_id, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &t.CreatedAt, query,
		t.ID,
		t.TokenHash,
		t.ItemID,
		t.Quantity,
		t.RequiredDate,
		t.Status,
		t.SupplierID,
		t.ExpiresAt,
	)
	if err != nil {
		if _, dup := core.UniqueViolation(err); dup {
			return fmt.Errorf("create supplier token: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create supplier token: %w", err)
	}

	return nil
}

func (r *repository) FindPendingByHash(
	ctx context.Context,
	hash string,
) (*Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM supplier_tokens t
		JOIN suppliers s ON s.id = t.supplier_id
		WHERE t.token_hash = $1 AND t.status = $2`

	var o Order
	err := r.db.GetContext(ctx, &o, query, hash, StatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find supplier token: %w", ErrTokenNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find supplier token: %w", err)
	}

	return &o, nil
}

func (r *repository) GetOrder(ctx context.Context, id string) (*Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM supplier_tokens t
		JOIN suppliers s ON s.id = t.supplier_id
		WHERE t.id = $1`

	var o Order
	err := r.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get supplier order: %w", ErrTokenNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier order: %w", err)
	}

	return &o, nil
}

func (r *repository) ListOrders(ctx context.Context) ([]Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM supplier_tokens t
		JOIN suppliers s ON s.id = t.supplier_id
		ORDER BY t.created_at DESC`

	var orders []Order
	if err := r.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("list supplier orders: %w", err)
	}
	return orders, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(*) AS count
		FROM supplier_tokens
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count supplier tokens: %w", err)
	}

	counts := make(map[Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) Transition(
	ctx context.Context,
	id string,
	status Status,
	now time.Time,
) (*Token, error) {
	query := `
		UPDATE supplier_tokens t
		SET status = $2, decided_at = $3
		WHERE t.id = $1 AND t.status = 'PENDING' AND t.expires_at > $3
		RETURNING ` + tokenColumns

	var t Token
	err := r.db.GetContext(ctx, &t, query, id, status, now)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update supplier token: %w", err)
	}

	return nil, r.explainRejectedTransition(ctx, id, now)
}

// explainRejectedTransition works out why the conditional update matched
// nothing, expiring the token on the way if that is the reason.
func (r *repository) explainRejectedTransition(
	ctx context.Context,
	id string,
	now time.Time,
) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE supplier_tokens
		SET status = 'EXPIRED', decided_at = $2
		WHERE id = $1 AND status = 'PENDING' AND expires_at <= $2`,
		id, now,
	)
	if err != nil {
		return fmt.Errorf("expire supplier token: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 1 {
		return fmt.Errorf("update supplier token: %w", ErrTokenExpired)
	}

	var current Status
	err = r.db.GetContext(ctx, &current,
		`SELECT status FROM supplier_tokens WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update supplier token: %w", ErrTokenNotFound)
	}
	if err != nil {
		return fmt.Errorf("update supplier token: %w", err)
	}

	if current == StatusExpired {
		return fmt.Errorf("update supplier token: %w", ErrTokenExpired)
	}
	return fmt.Errorf("update supplier token: %w", ErrAlreadyDecided)
}
