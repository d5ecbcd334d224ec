// AngelaMos | 2026
// token_test.go

package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestIssuer(t *testing.T, secret string) (*Issuer, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss, err := NewIssuer(config.TokenConfig{
		Secret: secret,
		Issuer: "fashion-retail-store",
	}, WithClock(clock.Now))
	require.NoError(t, err)

	return iss, clock
}

func TestNewIssuer_RejectsShortSecret(t *testing.T) {
	_, err := NewIssuer(config.TokenConfig{Secret: "short", Issuer: "x"})
	require.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	iss, _ := newTestIssuer(t, testSecret)

	subject := Subject{
		ID:           "acct-1",
		Email:        "alice@example.com",
		Username:     "alice01",
		Role:         "user",
		TokenVersion: 3,
	}

	raw, issued, err := iss.Issue(subject, "retail-session", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Len(t, issued.Nonce, 32)

	claims, err := iss.Verify(raw, "retail-session")
	require.NoError(t, err)

	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.Equal(t, issued.Nonce, claims.Nonce)
	assert.Equal(t, "fashion-retail-store", claims.Issuer)
	assert.True(t, issued.ExpiresAt.Equal(claims.ExpiresAt))
}

func TestIssue_UniqueNonceAndID(t *testing.T) {
	iss, _ := newTestIssuer(t, testSecret)
	subject := Subject{ID: "acct-1"}

	raw1, c1, err := iss.Issue(subject, AudienceSupplier, time.Hour)
	require.NoError(t, err)
	raw2, c2, err := iss.Issue(subject, AudienceSupplier, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, raw1, raw2)
	assert.NotEqual(t, c1.Nonce, c2.Nonce)
	assert.NotEqual(t, c1.TokenID, c2.TokenID)
}

func TestIssue_RequiresSubjectAndTTL(t *testing.T) {
	iss, _ := newTestIssuer(t, testSecret)

	_, _, err := iss.Issue(Subject{}, "aud", time.Hour)
	assert.Error(t, err)

	_, _, err = iss.Issue(Subject{ID: "x"}, "aud", 0)
	assert.Error(t, err)
}

func TestVerify_Failures(t *testing.T) {
	iss, clock := newTestIssuer(t, testSecret)
	other, _ := newTestIssuer(t, strings.Repeat("z", 40))

	subject := Subject{ID: "acct-1", Email: "sup@example.com"}

	valid, _, err := iss.Issue(subject, AudienceSupplier, 24*time.Hour)
	require.NoError(t, err)

	forged, _, err := other.Issue(subject, AudienceSupplier, 24*time.Hour)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := strings.Join(
		[]string{parts[0], forgedParts[1], parts[2]},
		".",
	)

	tests := []struct {
		name     string
		raw      string
		audience string
		advance  time.Duration
		wantKind Kind
		wantErr  error
	}{
		{
			name:     "empty",
			raw:      "",
			audience: AudienceSupplier,
			wantKind: KindMalformed,
			wantErr:  core.ErrTokenInvalid,
		},
		{
			name:     "garbage",
			raw:      "not-a-token",
			audience: AudienceSupplier,
			wantKind: KindMalformed,
			wantErr:  core.ErrTokenInvalid,
		},
		{
			name:     "three garbage segments",
			raw:      "a.b.c",
			audience: AudienceSupplier,
			wantKind: KindMalformed,
			wantErr:  core.ErrTokenInvalid,
		},
		{
			name:     "signed with another secret",
			raw:      forged,
			audience: AudienceSupplier,
			wantKind: KindInvalidSignature,
			wantErr:  core.ErrTokenInvalid,
		},
		{
			name:     "payload swapped",
			raw:      spliced,
			audience: AudienceSupplier,
			wantKind: KindInvalidSignature,
			wantErr:  core.ErrTokenInvalid,
		},
		{
			name:     "wrong audience",
			raw:      valid,
			audience: "retail-session",
			wantKind: KindAudienceMismatch,
			wantErr:  core.ErrTokenInvalid,
		},
		{
			name:     "expired",
			raw:      valid,
			audience: AudienceSupplier,
			advance:  24*time.Hour + time.Second,
			wantKind: KindExpired,
			wantErr:  core.ErrTokenExpired,
		},
		{
			name:     "exactly at expiry",
			raw:      valid,
			audience: AudienceSupplier,
			advance:  24 * time.Hour,
			wantKind: KindExpired,
			wantErr:  core.ErrTokenExpired,
		},
	}

	start := clock.t
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = start.Add(tt.advance)

			claims, err := iss.Verify(tt.raw, tt.audience)
			require.Error(t, err)
			assert.Nil(t, claims)

			var verr *VerificationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantKind, verr.Kind)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	iss, _ := newTestIssuer(t, testSecret)
	foreign, err := NewIssuer(config.TokenConfig{
		Secret: testSecret,
		Issuer: "someone-else",
	})
	require.NoError(t, err)

	raw, _, err := foreign.Issue(Subject{ID: "a"}, AudienceSupplier, time.Hour)
	require.NoError(t, err)

	_, err = iss.Verify(raw, AudienceSupplier)
	assert.Equal(t, KindAudienceMismatch, KindOf(err))
}

func TestClaimsTTL(t *testing.T) {
	now := time.Now()
	c := &Claims{ExpiresAt: now.Add(time.Minute)}

	assert.Equal(t, time.Minute, c.TTL(now))
	assert.Zero(t, c.TTL(now.Add(time.Hour)))
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Zero(t, KindOf(errors.New("boom")))
}
