// AngelaMos | 2026
// mock_store_test.go

package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/lockout"
)

// mockAccountStore is the credential store and the lockout store over one
// in-memory table, the way the users table backs both in production.
type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]Account

	// raceOnCreate makes Create lose a uniqueness race after the
	// existence checks have passed.
	raceOnCreate error

	// beforeReset runs ahead of ResetFailures, after the password check.
	beforeReset func()
}

func (m *mockAccountStore) setLock(id string, state lockout.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[id]
	a.Lock = state
	m.accounts[id] = a
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[string]Account)}
}

func (m *mockAccountStore) get(id string) Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id]
}

func (m *mockAccountStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	return &a, nil
}

func (m *mockAccountStore) FindByIdentifier(_ context.Context, identifier string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byEmail := strings.Contains(identifier, "@")
	for _, a := range m.accounts {
		if byEmail && a.Email == strings.ToLower(identifier) {
			return &a, nil
		}
		if !byEmail && strings.EqualFold(a.Username, identifier) {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("find account: %w", core.ErrNotFound)
}

func (m *mockAccountStore) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if strings.EqualFold(a.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccountStore) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if a.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccountStore) Create(_ context.Context, na NewAccount) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.raceOnCreate != nil {
		return nil, m.raceOnCreate
	}

	role := na.Role
	if role == "" {
		role = "user"
	}

	a := Account{
		ID:           uuid.New().String(),
		Username:     na.Username,
		Email:        strings.ToLower(na.Email),
		Role:         role,
		PasswordHash: na.PasswordHash,
		Firstname:    na.Firstname,
		Lastname:     na.Lastname,
		Contact:      na.Contact,
		Address:      na.Address,
		City:         na.City,
		PostalCode:   na.PostalCode,
		Country:      na.Country,
		CreatedAt:    time.Now(),
	}
	m.accounts[a.ID] = a
	return &a, nil
}

func (m *mockAccountStore) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return core.ErrNotFound
	}
	a.PasswordHash = hash
	m.accounts[id] = a
	return nil
}

func (m *mockAccountStore) ChangePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return core.ErrNotFound
	}
	a.PasswordHash = hash
	a.TokenVersion++
	m.accounts[id] = a
	return nil
}

func (m *mockAccountStore) IncrementFailures(
	_ context.Context,
	id string,
	now time.Time,
	policy lockout.Policy,
) (lockout.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return lockout.State{}, core.ErrNotFound
	}
	a.Lock = lockout.Apply(a.Lock, now, policy)
	m.accounts[id] = a
	return a.Lock, nil
}

func (m *mockAccountStore) ResetFailures(
	_ context.Context,
	id string,
	now time.Time,
) (lockout.State, error) {
	if m.beforeReset != nil {
		m.beforeReset()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return lockout.State{}, core.ErrNotFound
	}
	if a.Lock.IsLocked(now) {
		return a.Lock, nil
	}
	a.Lock = lockout.State{}
	a.LastLogin = &now
	m.accounts[id] = a
	return lockout.State{}, nil
}

type mockReferrals struct {
	mu        sync.Mutex
	codes     map[string]bool
	enrolled  []string
	processed []string
}

func newMockReferrals(codes ...string) *mockReferrals {
	m := &mockReferrals{codes: make(map[string]bool)}
	for _, c := range codes {
		m.codes[c] = true
	}
	return m
}

func (m *mockReferrals) ReferralExists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[token], nil
}

func (m *mockReferrals) Enroll(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrolled = append(m.enrolled, email)
	return nil
}

func (m *mockReferrals) ProcessReferral(_ context.Context, token, referredEmail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, token)
	m.processed = append(m.processed, token+"|"+referredEmail)
}
