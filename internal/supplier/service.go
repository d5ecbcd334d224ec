// AngelaMos | 2026
// service.go

package supplier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/notify"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/token"
)

const requiredDateLayout = "2006-01-02"

// Column widths of supplier_tokens.item_id and suppliers.name.
const (
	maxItemIDLen       = 64
	maxSupplierNameLen = 100
)

type Signer interface {
	Issue(
		subject token.Subject,
		audience string,
		ttl time.Duration,
	) (string, *token.Claims, error)
	Verify(raw, expectedAudience string) (*token.Claims, error)
}

type Limiter interface {
	Allow(
		ctx context.Context,
		supplierID string,
		now time.Time,
	) (bool, time.Duration, error)
}

type IssueInput struct {
	Email        string
	ItemID       string
	Quantity     int
	RequiredDate time.Time
}

type Service struct {
	repo       Repository
	signer     Signer
	limiter    Limiter
	dispatcher notify.Dispatcher
	cfg        config.SupplierConfig
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	repo Repository,
	signer Signer,
	limiter Limiter,
	dispatcher notify.Dispatcher,
	cfg config.SupplierConfig,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		repo:       repo,
		signer:     signer,
		limiter:    limiter,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a PENDING order token for a known supplier and hands the
// raw token to the dispatcher. The raw token is never returned or stored.
func (s *Service) Issue(ctx context.Context, in IssueInput) (_ *Order, err error) {
	ctx, span := core.StartSpan(ctx, "supplier.Issue",
		attribute.String("supplier.item_id", in.ItemID),
	)
	defer func() { core.EndSpan(span, err) }()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	itemID, err := core.SanitizeBounded("item_id", in.ItemID, maxItemIDLen)
	if err != nil {
		return nil, fmt.Errorf("issue supplier token: %w", err)
	}

	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("issue supplier token: email: %w", core.ErrInvalidInput)
	case itemID == "":
		return nil, fmt.Errorf("issue supplier token: item id: %w", core.ErrInvalidInput)
	case in.Quantity < 1:
		return nil, fmt.Errorf("issue supplier token: quantity: %w", core.ErrInvalidInput)
	case in.RequiredDate.IsZero():
		return nil, fmt.Errorf("issue supplier token: date: %w", core.ErrInvalidInput)
	}

	supplier, err := s.repo.GetSupplierByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.now()

	allowed, retryAfter, err := s.limiter.Allow(ctx, supplier.ID, now)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.Warn("supplier token limit reached",
			"supplier_id", supplier.ID,
			"retry_after", retryAfter,
		)
		return nil, fmt.Errorf("issue supplier token: %w", ErrRateLimitExceeded)
	}

	raw, claims, err := s.signer.Issue(token.Subject{
		ID:     supplier.ID,
		Email:  supplier.Email,
		ItemID: itemID,
	}, token.AudienceSupplier, s.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue supplier token: %w", err)
	}

	record := Token{
		ID:           uuid.New().String(),
		TokenHash:    core.HashToken(raw),
		ItemID:       itemID,
		Quantity:     in.Quantity,
		RequiredDate: in.RequiredDate,
		Status:       StatusPending,
		SupplierID:   supplier.ID,
		ExpiresAt:    claims.ExpiresAt,
	}

	if err := s.repo.CreateToken(ctx, &record); err != nil {
		return nil, err
	}

	msg := notify.Message{
		Kind:    notify.KindSupplierOrder,
		To:      supplier.Email,
		Subject: "Stock order request",
		Data: map[string]string{
			"supplier_name": supplier.Name,
			"token_id":      record.ID,
			"item_id":       record.ItemID,
			"quantity":      strconv.Itoa(record.Quantity),
			"required_date": record.RequiredDate.Format(requiredDateLayout),
			"expires_at":    record.ExpiresAt.Format(time.RFC3339),
			"confirm_url":   s.confirmURL(raw),
		},
		CreatedAt: now,
	}

	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		return nil, fmt.Errorf("dispatch supplier order %s: %w", record.ID, err)
	}

	s.logger.Info("supplier token issued",
		"token_id", record.ID,
		"supplier_id", supplier.ID,
		"expires_at", record.ExpiresAt,
	)

	return &Order{Token: record, Supplier: *supplier}, nil
}

func (s *Service) confirmURL(raw string) string {
	u, err := url.Parse(s.cfg.ConfirmURL)
	if err != nil {
		return s.cfg.ConfirmURL + "?token=" + url.QueryEscape(raw)
	}
	q := u.Query()
	q.Set("token", raw)
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate resolves a raw token to its PENDING order. The signature,
// audience and expiry are checked before storage is touched.
func (s *Service) Validate(ctx context.Context, raw string) (_ *Order, err error) {
	ctx, span := core.StartSpan(ctx, "supplier.Validate")
	defer func() { core.EndSpan(span, err) }()

	claims, err := s.signer.Verify(raw, token.AudienceSupplier)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			return nil, fmt.Errorf("validate supplier token: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("validate supplier token: %w", err)
	}

	order, err := s.repo.FindPendingByHash(ctx, core.HashToken(raw))
	if err != nil {
		return nil, err
	}

	if order.IsExpired(s.now()) {
		return nil, fmt.Errorf("validate supplier token: %w", ErrTokenExpired)
	}

	if !strings.EqualFold(claims.Email, order.Supplier.Email) ||
		claims.ID != order.SupplierID ||
		claims.ItemID != order.ItemID {
		s.logger.Warn("supplier token subject mismatch",
			"token_id", order.ID,
			"supplier_id", order.SupplierID,
		)
		return nil, fmt.Errorf("validate supplier token: %w", ErrSubjectMismatch)
	}

	span.SetAttributes(attribute.String("supplier.token_id", order.ID))
	return order, nil
}

// UpdateStatus moves a PENDING token to ACCEPTED or DECLINED. A token
// leaves PENDING at most once.
func (s *Service) UpdateStatus(
	ctx context.Context,
	tokenID, status string,
) (_ *Token, err error) {
	ctx, span := core.StartSpan(ctx, "supplier.UpdateStatus",
		attribute.String("supplier.token_id", tokenID),
	)
	defer func() { core.EndSpan(span, err) }()

	target, err := ParseDecision(status)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Transition(ctx, tokenID, target, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("supplier token decided",
		"token_id", updated.ID,
		"status", updated.Status,
	)

	return updated, nil
}

// Decide validates raw, checks that it is the token for tokenID and then
// records the decision.
func (s *Service) Decide(
	ctx context.Context,
	raw, tokenID, status string,
) (*Token, error) {
	if _, err := ParseDecision(status); err != nil {
		return nil, err
	}

	order, err := s.Validate(ctx, raw)
	if errors.Is(err, ErrTokenNotFound) {
		return nil, s.explainSettled(ctx, raw, tokenID, err)
	}
	if err != nil {
		return nil, err
	}

	if order.ID != tokenID {
		return nil, fmt.Errorf("decide supplier token: %w", ErrTokenMismatch)
	}

	return s.UpdateStatus(ctx, tokenID, status)
}

// explainSettled reports a repeat decision on a token that has already
// left PENDING as a conflict rather than a missing token.
func (s *Service) explainSettled(
	ctx context.Context,
	raw, tokenID string,
	notFound error,
) error {
	order, err := s.repo.GetOrder(ctx, tokenID)
	if err != nil || !core.CompareTokenHash(raw, order.TokenHash) {
		return notFound
	}

	switch order.Status {
	case StatusExpired:
		return fmt.Errorf("decide supplier token: %w", ErrTokenExpired)
	case StatusAccepted, StatusDeclined:
		return fmt.Errorf("decide supplier token: %w", ErrAlreadyDecided)
	default:
		return notFound
	}
}

func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) CreateSupplier(
	ctx context.Context,
	name, email string,
) (*Supplier, error) {
	name, err := core.SanitizeBounded("name", name, maxSupplierNameLen)
	if err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("create supplier: %w", core.ErrInvalidInput)
	}

	sup := &Supplier{
		ID:    uuid.New().String(),
		Name:  name,
		Email: email,
	}
	if err := s.repo.CreateSupplier(ctx, sup); err != nil {
		return nil, err
	}

	s.logger.Info("supplier registered", "supplier_id", sup.ID)
	return sup, nil
}
