// AngelaMos | 2026
// engine.go

package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

type Engine struct {
	repo   Repository
	logger *slog.Logger
}

func NewEngine(repo Repository, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger}
}

func (e *Engine) ReferralExists(ctx context.Context, token string) (bool, error) {
	_, err := e.repo.GetReferral(ctx, token)
	if errors.Is(err, ErrReferralNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Enroll opens an empty loyalty record; an existing one is kept.
func (e *Engine) Enroll(ctx context.Context, email string) error {
	return e.repo.Enroll(ctx, strings.ToLower(email))
}

func (e *Engine) GetLoyalty(ctx context.Context, email string) (*Loyalty, error) {
	return e.repo.GetLoyalty(ctx, strings.ToLower(email))
}

func (e *Engine) CreateReferral(
	ctx context.Context,
	referrerEmail, referredEmail string,
) (*Referral, error) {
	referrerEmail = strings.ToLower(referrerEmail)
	referredEmail = strings.ToLower(strings.TrimSpace(referredEmail))

	if referrerEmail == referredEmail {
		return nil, fmt.Errorf("create referral: %w", ErrSelfReferral)
	}

	token, err := core.GenerateSecureToken(24)
	if err != nil {
		return nil, fmt.Errorf("create referral: %w", err)
	}

	ref := &Referral{
		ID:            uuid.New().String(),
		ReferrerEmail: referrerEmail,
		ReferredEmail: referredEmail,
		Token:         token,
	}

	if err := e.repo.CreateReferral(ctx, ref); err != nil {
		return nil, err
	}

	return ref, nil
}

// ProcessReferral credits the referrer of token. It never fails the
// caller: errors are logged and the credit is dropped.
func (e *Engine) ProcessReferral(ctx context.Context, token, referredEmail string) {
	outcome, err := e.Credit(ctx, token, referredEmail)
	if err != nil {
		e.logger.Error("referral credit failed",
			"referred_email", referredEmail,
			"error", err,
		)
		return
	}
	if outcome == nil {
		return
	}

	e.logger.Info("referral credited",
		"referrer_email", outcome.ReferrerEmail,
		"referred_email", referredEmail,
		"points", outcome.Points,
		"tier", outcome.Tier,
	)
}

// Credit runs one referral credit. A missing referral, referrer or
// loyalty record yields a nil outcome and no error. The referral is
// consumed either way.
func (e *Engine) Credit(
	ctx context.Context,
	token, referredEmail string,
) (outcome *Outcome, err error) {
	ctx, span := core.StartSpan(ctx, "loyalty.Credit")
	defer func() { core.EndSpan(span, err) }()

	ref, err := e.repo.GetReferral(ctx, token)
	if errors.Is(err, ErrReferralNotFound) {
		e.logger.Info("referral not found", "referred_email", referredEmail)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("referral.id", ref.ID))

	referrerID, err := e.repo.FindAccountID(ctx, ref.ReferrerEmail)
	if errors.Is(err, core.ErrNotFound) {
		e.logger.Info("referrer account not found", "referral_id", ref.ID)
		return nil, e.discard(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	current, err := e.repo.GetLoyalty(ctx, ref.ReferrerEmail)
	if errors.Is(err, core.ErrNotFound) {
		e.logger.Info("referrer loyalty record not found", "referral_id", ref.ID)
		return nil, e.discard(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	err = e.repo.WithTx(ctx, func(tx Tx) error {
		if err := tx.ConsumeReferral(ctx, token); err != nil {
			return err
		}

		updated, err := tx.AddPoints(ctx, current.Email, ReferralPoints)
		if err != nil {
			return err
		}

		outcome = &Outcome{
			ReferrerEmail: updated.Email,
			Points:        updated.LoyaltyPoints,
			PreviousTier:  updated.Tier,
			Tier:          TierFor(updated.LoyaltyPoints),
		}

		if outcome.Tier != updated.Tier {
			if err := tx.SetTier(ctx, updated.Email, outcome.Tier); err != nil {
				return err
			}
			outcome.Notifications = append(
				outcome.Notifications,
				tierChangeMessage(outcome.Tier),
			)
		}

		outcome.Notifications = append(
			outcome.Notifications,
			referralCreditMessage(ReferralPoints),
		)

		for _, msg := range outcome.Notifications {
			if err := tx.Notify(ctx, referrerID, msg); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("credit referral %s: %w", ref.ID, err)
	}

	return outcome, nil
}

// discard consumes a referral that cannot be credited. Losing a race to
// another consumer is not an error.
func (e *Engine) discard(ctx context.Context, ref *Referral) error {
	err := e.repo.WithTx(ctx, func(tx Tx) error {
		return tx.ConsumeReferral(ctx, ref.Token)
	})
	if err != nil && !errors.Is(err, ErrReferralConsumed) {
		return fmt.Errorf("discard referral %s: %w", ref.ID, err)
	}
	return nil
}
