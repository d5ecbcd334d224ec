// AngelaMos | 2026
// lockout.go

package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
)

type Policy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

func PolicyFromConfig(cfg config.LockoutConfig) Policy {
	return Policy{
		MaxAttempts:  cfg.MaxAttempts,
		LockDuration: cfg.LockDuration,
	}
}

// State is the security state stored on an account row.
type State struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

func (s State) IsLocked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

func (s State) RetryAfter(now time.Time) time.Duration {
	if !s.IsLocked(now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// Apply returns the state after one failed login at now. A live lock is
// left untouched; an expired lock restarts counting at one.
func Apply(s State, now time.Time, p Policy) State {
	if s.IsLocked(now) {
		return s
	}

	attempts := s.FailedAttempts + 1
	if s.LockedUntil != nil {
		attempts = 1
	}

	next := State{FailedAttempts: attempts}
	if attempts >= p.MaxAttempts {
		until := now.Add(p.LockDuration)
		next.LockedUntil = &until
	}

	return next
}

type Result struct {
	State             State
	Locked            bool
	RetryAfter        time.Duration
	RemainingAttempts int
}

func (p Policy) Evaluate(s State, now time.Time) Result {
	if s.IsLocked(now) {
		return Result{
			State:      s,
			Locked:     true,
			RetryAfter: s.RetryAfter(now),
		}
	}

	remaining := p.MaxAttempts - s.FailedAttempts
	if remaining < 0 {
		remaining = 0
	}

	return Result{State: s, RemainingAttempts: remaining}
}

// LockedError is returned while an account is locked.
type LockedError struct {
	Until      time.Time
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked for %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedError) Unwrap() error {
	return core.ErrLocked
}

// Store persists lockout state. IncrementFailures must apply the Apply
// transition as one atomic storage operation. ResetFailures must leave a
// row that is locked at now untouched and return its state.
type Store interface {
	IncrementFailures(
		ctx context.Context,
		accountID string,
		now time.Time,
		policy Policy,
	) (State, error)
	ResetFailures(ctx context.Context, accountID string, now time.Time) (State, error)
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

type Tracker struct {
	store  Store
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

func NewTracker(
	store Store,
	policy Policy,
	logger *slog.Logger,
	opts ...Option,
) *Tracker {
	t := &Tracker{
		store:  store,
		policy: policy,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Check rejects a login attempt against a currently locked account.
func (t *Tracker) Check(s State) error {
	now := t.now()
	if !s.IsLocked(now) {
		return nil
	}
	return &LockedError{Until: *s.LockedUntil, RetryAfter: s.RetryAfter(now)}
}

func (t *Tracker) RecordFailure(
	ctx context.Context,
	accountID string,
) (Result, error) {
	now := t.now()

	state, err := t.store.IncrementFailures(ctx, accountID, now, t.policy)
	if err != nil {
		return Result{}, fmt.Errorf("record failed login: %w", err)
	}

	result := t.policy.Evaluate(state, now)
	if result.Locked && state.FailedAttempts >= t.policy.MaxAttempts {
		t.logger.Warn("account locked",
			"account_id", accountID,
			"failed_attempts", state.FailedAttempts,
			"locked_until", state.LockedUntil,
		)
	}

	return result, nil
}

// Reset clears the failure count after a successful login. A lock that
// landed since the caller's Check wins and is returned as LockedError.
func (t *Tracker) Reset(ctx context.Context, accountID string) error {
	now := t.now()

	state, err := t.store.ResetFailures(ctx, accountID, now)
	if err != nil {
		return fmt.Errorf("reset failed logins: %w", err)
	}
	if state.IsLocked(now) {
		return &LockedError{Until: *state.LockedUntil, RetryAfter: state.RetryAfter(now)}
	}
	return nil
}
