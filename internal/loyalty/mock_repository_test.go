// AngelaMos | 2026
// mock_repository_test.go

package loyalty

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

var errInjected = errors.New("injected failure")

type mockRepository struct {
	mu            sync.Mutex
	referrals     map[string]Referral
	loyalty       map[string]Loyalty
	accounts      map[string]string
	notifications map[string][]string

	failNotify bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		referrals:     make(map[string]Referral),
		loyalty:       make(map[string]Loyalty),
		accounts:      make(map[string]string),
		notifications: make(map[string][]string),
	}
}

func (m *mockRepository) seedAccount(id, email string, points int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[email] = id
	m.loyalty[email] = Loyalty{
		Email:         email,
		LoyaltyPoints: points,
		Tier:          TierFor(points),
	}
}

func (m *mockRepository) seedReferral(token, referrer, referred string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.referrals[token] = Referral{
		ID:            "ref-" + token,
		ReferrerEmail: referrer,
		ReferredEmail: referred,
		Token:         token,
		CreatedAt:     time.Now(),
	}
}

func (m *mockRepository) GetReferral(_ context.Context, token string) (*Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.referrals[token]
	if !ok {
		return nil, ErrReferralNotFound
	}
	return &ref, nil
}

func (m *mockRepository) CreateReferral(_ context.Context, referral *Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.referrals[referral.Token]; ok {
		return core.ErrDuplicateKey
	}
	referral.CreatedAt = time.Now()
	m.referrals[referral.Token] = *referral
	return nil
}

func (m *mockRepository) GetLoyalty(_ context.Context, email string) (*Loyalty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.loyalty[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &l, nil
}

func (m *mockRepository) Enroll(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.loyalty[email]; !ok {
		m.loyalty[email] = Loyalty{Email: email, Tier: TierFor(0)}
	}
	return nil
}

func (m *mockRepository) FindAccountID(_ context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.accounts[email]
	if !ok {
		return "", core.ErrNotFound
	}
	return id, nil
}

// WithTx holds the lock for the whole transaction and restores a
// snapshot when fn fails.
func (m *mockRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := maps.Clone(m.referrals)
	loy := maps.Clone(m.loyalty)
	notes := make(map[string][]string, len(m.notifications))
	for k, v := range m.notifications {
		notes[k] = append([]string(nil), v...)
	}

	if err := fn(&mockTx{m: m}); err != nil {
		m.referrals = refs
		m.loyalty = loy
		m.notifications = notes
		return err
	}
	return nil
}

type mockTx struct {
	m *mockRepository
}

func (t *mockTx) ConsumeReferral(_ context.Context, token string) error {
	if _, ok := t.m.referrals[token]; !ok {
		return ErrReferralConsumed
	}
	delete(t.m.referrals, token)
	return nil
}

func (t *mockTx) AddPoints(_ context.Context, email string, points int) (*Loyalty, error) {
	l, ok := t.m.loyalty[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	l.LoyaltyPoints += points
	l.ReferredCount++
	t.m.loyalty[email] = l
	return &l, nil
}

func (t *mockTx) SetTier(_ context.Context, email string, tier Tier) error {
	l := t.m.loyalty[email]
	l.Tier = tier
	t.m.loyalty[email] = l
	return nil
}

func (t *mockTx) Notify(_ context.Context, accountID, message string) error {
	if t.m.failNotify {
		return errInjected
	}
	t.m.notifications[accountID] = append(t.m.notifications[accountID], message)
	return nil
}

func (m *mockRepository) snapshot(email, accountID string) (Loyalty, []string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loyalty[email], append([]string(nil), m.notifications[accountID]...), len(m.referrals)
}
