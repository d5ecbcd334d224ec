// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/middleware"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/token"
)

type Signer interface {
	Issue(
		subject token.Subject,
		audience string,
		ttl time.Duration,
	) (string, *token.Claims, error)
	Verify(raw, expectedAudience string) (*token.Claims, error)
}

// Session is the outcome of a successful register or login.
type Session struct {
	Account   *Account
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

func (s *Service) issueSession(account *Account) (*Session, error) {
	raw, claims, err := s.signer.Issue(token.Subject{
		ID:           account.ID,
		Email:        account.Email,
		Username:     account.Username,
		Role:         account.Role,
		TokenVersion: account.TokenVersion,
	}, s.tokenCfg.SessionAudience, s.tokenCfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &Session{
		Account:   account,
		Token:     raw,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// VerifyAccessToken accepts a session token that is correctly signed for
// the session audience, unexpired, not logged out, and not older than
// the account's last password change.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	raw string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.signer.Verify(raw, s.tokenCfg.SessionAudience)
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("verify session: %w", core.ErrTokenRevoked)
	}

	account, err := s.accounts.GetByID(ctx, claims.ID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("verify session: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}

	if claims.TokenVersion < account.TokenVersion {
		return nil, fmt.Errorf("verify session: %w", core.ErrTokenRevoked)
	}

	return &middleware.AccessTokenClaims{
		UserID:       account.ID,
		Username:     account.Username,
		Email:        account.Email,
		Role:         account.Role,
		TokenID:      claims.TokenID,
		TokenVersion: claims.TokenVersion,
		ExpiresAt:    claims.ExpiresAt,
	}, nil
}

var _ middleware.TokenVerifier = (*Service)(nil)
