// AngelaMos | 2026
// mock_repository_test.go

package supplier

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

type mockRepository struct {
	mu        sync.Mutex
	suppliers map[string]Supplier
	tokens    map[string]Token
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		suppliers: make(map[string]Supplier),
		tokens:    make(map[string]Token),
	}
}

func (m *mockRepository) seedSupplier(id, name, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppliers[id] = Supplier{ID: id, Name: name, Email: email, CreatedAt: time.Now()}
}

func (m *mockRepository) token(id string) Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[id]
}

func (m *mockRepository) CreateSupplier(_ context.Context, s *Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.suppliers {
		if existing.Email == s.Email {
			return core.ErrDuplicateKey
		}
	}
	s.CreatedAt = time.Now()
	m.suppliers[s.ID] = *s
	return nil
}

func (m *mockRepository) GetSupplierByEmail(_ context.Context, email string) (*Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.suppliers {
		if s.Email == email {
			return &s, nil
		}
	}
	return nil, ErrSupplierNotFound
}

func (m *mockRepository) ListSuppliers(_ context.Context) ([]Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRepository) CreateToken(_ context.Context, t *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tokens {
		if existing.TokenHash == t.TokenHash {
			return core.ErrDuplicateKey
		}
	}
	t.CreatedAt = time.Now()
	m.tokens[t.ID] = *t
	return nil
}

func (m *mockRepository) orderLocked(t Token) *Order {
	return &Order{Token: t, Supplier: m.suppliers[t.SupplierID]}
}

func (m *mockRepository) FindPendingByHash(_ context.Context, hash string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tokens {
		if t.TokenHash == hash && t.Status == StatusPending {
			return m.orderLocked(t), nil
		}
	}
	return nil, ErrTokenNotFound
}

func (m *mockRepository) GetOrder(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return m.orderLocked(t), nil
}

func (m *mockRepository) ListOrders(_ context.Context) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Order, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, *m.orderLocked(t))
	}
	return out, nil
}

func (m *mockRepository) CountByStatus(_ context.Context) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[Status]int)
	for _, t := range m.tokens {
		counts[t.Status]++
	}
	return counts, nil
}

func (m *mockRepository) Transition(
	_ context.Context,
	id string,
	status Status,
	now time.Time,
) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[id]
	switch {
	case !ok:
		return nil, ErrTokenNotFound
	case t.Status == StatusExpired:
		return nil, ErrTokenExpired
	case t.Status != StatusPending:
		return nil, ErrAlreadyDecided
	case t.IsExpired(now):
		t.Status = StatusExpired
		t.DecidedAt = &now
		m.tokens[id] = t
		return nil, ErrTokenExpired
	}

	t.Status = status
	t.DecidedAt = &now
	m.tokens[id] = t
	return &t, nil
}
