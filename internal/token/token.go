// AngelaMos | 2026
// token.go

package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

const AudienceSupplier = "supplier-confirmation"

const minSecretLength = 32

const (
	claimEmail        = "email"
	claimUsername     = "username"
	claimRole         = "role"
	claimTokenVersion = "token_version"
	claimItemID       = "item_id"
	claimNonce        = "nonce"
)

// Subject is the identity a token is issued for.
type Subject struct {
	ID           string
	Email        string
	Username     string
	Role         string
	TokenVersion int
	ItemID       string
}

type Claims struct {
	Subject
	TokenID   string
	Issuer    string
	Audience  []string
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL is the remaining lifetime at now, never negative.
func (c *Claims) TTL(now time.Time) time.Duration {
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

type Kind int

const (
	KindMalformed Kind = iota + 1
	KindInvalidSignature
	KindExpired
	KindAudienceMismatch
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindInvalidSignature:
		return "invalid signature"
	case KindExpired:
		return "expired"
	case KindAudienceMismatch:
		return "audience mismatch"
	default:
		return "unknown"
	}
}

// VerificationError is the only error Verify returns.
type VerificationError struct {
	Kind   Kind
	Reason string
}

func (e *VerificationError) Error() string {
	if e.Reason == "" {
		return "token " + e.Kind.String()
	}
	return fmt.Sprintf("token %s: %s", e.Kind, e.Reason)
}

func (e *VerificationError) Unwrap() error {
	if e.Kind == KindExpired {
		return core.ErrTokenExpired
	}
	return core.ErrTokenInvalid
}

// KindOf extracts the failure kind from err, or 0 if err did not come
// from Verify.
func KindOf(err error) Kind {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return 0
}

func failure(kind Kind, reason string) *VerificationError {
	return &VerificationError{Kind: kind, Reason: reason}
}

type Option func(*Issuer)

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(cfg config.TokenConfig, opts ...Option) (*Issuer, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf(
			"token secret must be at least %d bytes",
			minSecretLength,
		)
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("token issuer is required")
	}

	i := &Issuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

func (i *Issuer) Issue(
	subject Subject,
	audience string,
	ttl time.Duration,
) (string, *Claims, error) {
	if subject.ID == "" {
		return "", nil, fmt.Errorf("issue token: empty subject")
	}
	if audience == "" || ttl <= 0 {
		return "", nil, fmt.Errorf("issue token: audience and ttl are required")
	}

	nonce, err := core.GenerateNonce()
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	now := i.now().Truncate(time.Second)
	claims := &Claims{
		Subject:   subject,
		TokenID:   uuid.New().String(),
		Issuer:    i.issuer,
		Audience:  []string{audience},
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	builder := jwt.NewBuilder().
		JwtID(claims.TokenID).
		Issuer(claims.Issuer).
		Audience(claims.Audience).
		Subject(subject.ID).
		IssuedAt(claims.IssuedAt).
		NotBefore(claims.IssuedAt).
		Expiration(claims.ExpiresAt).
		Claim(claimNonce, nonce).
		Claim(claimTokenVersion, subject.TokenVersion)

	if subject.Email != "" {
		builder = builder.Claim(claimEmail, subject.Email)
	}
	if subject.Username != "" {
		builder = builder.Claim(claimUsername, subject.Username)
	}
	if subject.Role != "" {
		builder = builder.Claim(claimRole, subject.Role)
	}
	if subject.ItemID != "" {
		builder = builder.Claim(claimItemID, subject.ItemID)
	}

	tok, err := builder.Build()
	if err != nil {
		return "", nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), i.secret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), claims, nil
}

// Verify checks signature, issuer and audience, then expiry, in that order.
// Failures are always *VerificationError.
func (i *Issuer) Verify(raw, expectedAudience string) (*Claims, error) {
	if raw == "" {
		return nil, failure(KindMalformed, "empty token")
	}

	if _, err := jwt.ParseInsecure([]byte(raw)); err != nil {
		return nil, failure(KindMalformed, "cannot decode")
	}

	tok, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.HS256(), i.secret),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, failure(KindInvalidSignature, "")
	}

	iss, _ := tok.Issuer()
	if iss != i.issuer {
		return nil, failure(KindAudienceMismatch, "unexpected issuer")
	}

	aud, _ := tok.Audience()
	if !slices.Contains(aud, expectedAudience) {
		return nil, failure(KindAudienceMismatch, "unexpected audience")
	}

	exp, ok := tok.Expiration()
	if !ok || exp.IsZero() {
		return nil, failure(KindMalformed, "missing expiry")
	}

	now := i.now()
	if !now.Before(exp) {
		return nil, failure(KindExpired, "")
	}

	if nbf, ok := tok.NotBefore(); ok && now.Before(nbf) {
		return nil, failure(KindMalformed, "not yet valid")
	}

	sub, ok := tok.Subject()
	if !ok || sub == "" {
		return nil, failure(KindMalformed, "missing subject")
	}

	jti, _ := tok.JwtID()
	iat, _ := tok.IssuedAt()

	var version float64
	//nolint:errcheck // absent claim leaves version at zero
	_ = tok.Get(claimTokenVersion, &version)

	return &Claims{
		Subject: Subject{
			ID:           sub,
			Email:        stringClaim(tok, claimEmail),
			Username:     stringClaim(tok, claimUsername),
			Role:         stringClaim(tok, claimRole),
			TokenVersion: int(version),
			ItemID:       stringClaim(tok, claimItemID),
		},
		TokenID:   jti,
		Issuer:    iss,
		Audience:  aud,
		Nonce:     stringClaim(tok, claimNonce),
		IssuedAt:  iat,
		ExpiresAt: exp,
	}, nil
}

func stringClaim(tok jwt.Token, name string) string {
	var v string
	if err := tok.Get(name, &v); err != nil {
		return ""
	}
	return v
}
