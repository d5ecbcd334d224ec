// AngelaMos | 2026
// mock_repository_test.go

package user

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/lockout"
)

type mockRepository struct {
	mu            sync.Mutex
	users         map[string]User
	notifications map[string][]Notification
	nextNoteID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:         make(map[string]User),
		notifications: make(map[string][]Notification),
	}
}

func (m *mockRepository) notify(userID, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNoteID++
	m.notifications[userID] = append(m.notifications[userID], Notification{
		ID:        m.nextNoteID,
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

func (m *mockRepository) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return fmt.Errorf("create user: %w", ErrUsernameTaken)
		}
		if existing.Email == u.Email {
			return fmt.Errorf("create user: %w", ErrEmailTaken)
		}
	}

	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

func (m *mockRepository) find(match func(User) bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*User, error) {
	return m.find(func(u User) bool { return u.ID == id })
}

func (m *mockRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	return m.find(func(u User) bool { return u.Email == email })
}

func (m *mockRepository) GetByUsername(_ context.Context, username string) (*User, error) {
	return m.find(func(u User) bool { return strings.EqualFold(u.Username, username) })
}

func (m *mockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(ctx, username)
	return err == nil, nil
}

func (m *mockRepository) update(id string, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	fn(&u)
	m.users[id] = u
	return nil
}

func (m *mockRepository) UpdatePassword(_ context.Context, id, hash string) error {
	return m.update(id, func(u *User) { u.PasswordHash = hash })
}

func (m *mockRepository) ChangePassword(_ context.Context, id, hash string) error {
	return m.update(id, func(u *User) {
		u.PasswordHash = hash
		u.TokenVersion++
	})
}

func (m *mockRepository) IncrementFailures(
	_ context.Context,
	id string,
	now time.Time,
	policy lockout.Policy,
) (lockout.State, error) {
	var state lockout.State
	err := m.update(id, func(u *User) {
		state = lockout.Apply(u.LockState(), now, policy)
		u.FailedAttempts = state.FailedAttempts
		u.LockedUntil = state.LockedUntil
	})
	return state, err
}

func (m *mockRepository) ResetFailures(
	_ context.Context,
	id string,
	now time.Time,
) (lockout.State, error) {
	var state lockout.State
	err := m.update(id, func(u *User) {
		if current := u.LockState(); current.IsLocked(now) {
			state = current
			return
		}
		u.FailedAttempts = 0
		u.LockedUntil = nil
		u.LastLogin = &now
	})
	return state, err
}

func (m *mockRepository) List(_ context.Context, params ListUsersParams) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	params.Normalize()

	var matched []User
	for _, u := range m.users {
		if params.Role != "" && u.Role != params.Role {
			continue
		}
		if params.Search != "" &&
			!strings.Contains(u.Email, params.Search) &&
			!strings.Contains(u.Username, params.Search) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })

	total := len(matched)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return matched[start:end], total, nil
}

func (m *mockRepository) CountLocked(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, u := range m.users {
		if u.LockState().IsLocked(now) {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) ListNotifications(_ context.Context, userID string) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.notifications[userID]...), nil
}

func (m *mockRepository) ClearNotifications(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.notifications[userID]))
	delete(m.notifications, userID)
	return n, nil
}
