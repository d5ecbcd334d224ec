// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/lockout"
)

// maxAddressLen is the width of users.address.
const maxAddressLen = 255

var ErrSamePassword = errors.New("new password must differ from the current one")

// CredentialsError is a failed login. RemainingAttempts is negative when
// there is no account to count attempts against.
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string {
	return ErrInvalidCredentials.Error()
}

func (e *CredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}

type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encodedHash string) (bool, error)
	VerifyTimingSafe(
		ctx context.Context,
		password string,
		encodedHash *string,
	) (bool, error)
	NeedsRehash(encodedHash string) bool
}

type Service struct {
	accounts  AccountStore
	hasher    PasswordHasher
	lockout   *lockout.Tracker
	signer    Signer
	sessions  Repository
	referrals ReferralProcessor
	tokenCfg  config.TokenConfig
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	accounts AccountStore,
	hasher PasswordHasher,
	tracker *lockout.Tracker,
	signer Signer,
	sessions Repository,
	referrals ReferralProcessor,
	tokenCfg config.TokenConfig,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		accounts:  accounts,
		hasher:    hasher,
		lockout:   tracker,
		signer:    signer,
		sessions:  sessions,
		referrals: referrals,
		tokenCfg:  tokenCfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and signs it in. A referral code must name
// an existing referral; crediting the referrer afterwards is best-effort
// and never fails the registration.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (_ *Session, err error) {
	ctx, span := core.StartSpan(ctx, "auth.Register")
	defer func() { core.EndSpan(span, err) }()

	username, err := core.Sanitize(req.Username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var referralCode *string
	if code := strings.TrimSpace(deref(req.ReferralCode)); code != "" {
		exists, err := s.referrals.ReferralExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("register: check referral: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("register: %w", ErrInvalidReferral)
		}
		referralCode = &code
	}

	if taken, err := s.accounts.UsernameExists(ctx, username); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}

	if taken, err := s.accounts.EmailExists(ctx, email); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	} else if taken {
		return nil, ErrEmailTaken
	}

	address, err := core.SanitizeOptionalBounded("address", req.Address, maxAddressLen)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	var contact *string
	if req.Contact != nil {
		normalized := core.NormalizePhone(*req.Contact)
		contact = core.SanitizeOptional(&normalized)
	}

	account, err := s.accounts.Create(ctx, NewAccount{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		Firstname:    core.SanitizeString(req.Firstname),
		Lastname:     core.SanitizeString(req.Lastname),
		Contact:      contact,
		Address:      address,
		City:         core.SanitizeOptional(req.City),
		PostalCode:   core.SanitizeOptional(req.PostalCode),
		Country:      core.SanitizeOptional(req.Country),
		ReferralCode: referralCode,
	})
	if err != nil {
		if DuplicateField(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID))
	s.logger.Info("account registered",
		"account_id", account.ID,
		"role", account.Role,
		"referred", referralCode != nil,
	)

	s.settleLoyalty(ctx, account.Email, referralCode)

	return s.issueSession(account)
}

// settleLoyalty runs after the account is committed, so it is detached
// from the request's cancellation.
func (s *Service) settleLoyalty(
	ctx context.Context,
	email string,
	referralCode *string,
) {
	ctx = context.WithoutCancel(ctx)

	if err := s.referrals.Enroll(ctx, email); err != nil {
		s.logger.Error("loyalty enrollment failed", "error", err)
	}

	if referralCode != nil {
		s.referrals.ProcessReferral(ctx, *referralCode, email)
	}
}

// Login authenticates by username or email. A locked account is rejected
// before its password is checked.
func (s *Service) Login(
	ctx context.Context,
	identifier, password string,
) (_ *Session, err error) {
	ctx, span := core.StartSpan(ctx, "auth.Login")
	defer func() { core.EndSpan(span, err) }()

	account, err := s.accounts.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, core.ErrNotFound) {
		//nolint:errcheck // equalizes timing with the existing-account path
		_, _ = s.hasher.VerifyTimingSafe(ctx, password, nil)
		return nil, &CredentialsError{RemainingAttempts: -1}
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID))

	if err := s.lockout.Check(account.Lock); err != nil {
		return nil, err
	}

	valid, err := s.hasher.Verify(ctx, password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !valid {
		return nil, s.recordFailure(ctx, account.ID)
	}

	if err := s.lockout.Reset(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if s.hasher.NeedsRehash(account.PasswordHash) {
		s.upgradeHash(ctx, account.ID, password)
	}

	now := s.now()
	account.LastLogin = &now
	account.Lock = lockout.State{}

	s.logger.Info("login succeeded", "account_id", account.ID)

	return s.issueSession(account)
}

func (s *Service) recordFailure(ctx context.Context, accountID string) error {
	result, err := s.lockout.RecordFailure(ctx, accountID)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if result.Locked {
		return &lockout.LockedError{
			Until:      *result.State.LockedUntil,
			RetryAfter: result.RetryAfter,
		}
	}

	s.logger.Info("login failed",
		"account_id", accountID,
		"remaining_attempts", result.RemainingAttempts,
	)

	return &CredentialsError{RemainingAttempts: result.RemainingAttempts}
}

func (s *Service) upgradeHash(ctx context.Context, accountID, password string) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		s.logger.Warn("password rehash failed", "account_id", accountID, "error", err)
		return
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		s.logger.Warn("password rehash failed", "account_id", accountID, "error", err)
	}
}

// Logout revokes the session behind raw for the rest of its lifetime. A
// missing, expired or already revoked token has nothing left to revoke
// and is not an error; only a failed revocation of a live session is.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}

	claims, err := s.VerifyAccessToken(ctx, raw)
	if err != nil {
		if isSessionTokenError(err) {
			s.logger.Debug("logout without a live session", "error", err)
			return nil
		}
		return fmt.Errorf("logout: %w", err)
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.sessions.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.logger.Info("session ended", "account_id", claims.UserID)
	return nil
}

func isSessionTokenError(err error) bool {
	return errors.Is(err, core.ErrTokenExpired) ||
		errors.Is(err, core.ErrTokenInvalid) ||
		errors.Is(err, core.ErrTokenRevoked)
}

// ChangePassword replaces the password hash and invalidates every session
// issued before the change.
func (s *Service) ChangePassword(
	ctx context.Context,
	accountID, currentPassword, newPassword string,
) (err error) {
	ctx, span := core.StartSpan(ctx, "auth.ChangePassword")
	defer func() { core.EndSpan(span, err) }()

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	valid, err := s.hasher.Verify(ctx, currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !valid {
		return &CredentialsError{RemainingAttempts: -1}
	}

	if currentPassword == newPassword {
		return ErrSamePassword
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	if err := s.accounts.ChangePassword(ctx, accountID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.logger.Info("password changed", "account_id", accountID)
	return nil
}

func (s *Service) Me(ctx context.Context, accountID string) (*Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("me: %w", core.ErrUnauthorized)
	}
	return s.accounts.GetByID(ctx, accountID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
