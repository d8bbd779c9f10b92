package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Manager drives the session lifecycle: creation, resolution with lazy
// expiration, turn commits, and termination. It holds no per-session state;
// every operation reads the record fresh from the store.
type Manager struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

// Option is a functional option for configuring the manager.
type Option func(*Manager)

// WithClock overrides the time source, letting tests control expiration.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a session manager with the given store and sliding
// session timeout.
func NewManager(store Store, timeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates and persists a new session record with empty history.
// An identifier collision is astronomically unlikely with 128-bit random IDs;
// it propagates as ErrDuplicateSession rather than being retried.
func (m *Manager) Start(ctx context.Context) (*Record, error) {
	record := NewRecord(m.timeout)
	record.LastActive = m.now().UTC()
	record.ExpiresAt = record.LastActive.Add(m.timeout)

	if err := m.store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Resolve loads the record for a decoded session identifier and validates
// expiration. An expired record is deleted on access (lazy expiration) and
// reported as ErrExpired; no background sweep is required because expired
// sessions are only ever observed by their own cookie holder.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (*Record, error) {
	record, err := m.store.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if record.Expired(m.now().UTC()) {
		if err := m.store.Delete(ctx, sessionID); err != nil {
			return nil, errors.Join(ErrExpired, err)
		}
		return nil, ErrExpired
	}

	return record, nil
}

// Commit appends a completed turn to the record, refreshes the sliding
// expiration window, and replaces the stored document. The caller's record
// is updated in place so the cookie TTL can be derived from it afterwards.
func (m *Manager) Commit(ctx context.Context, record *Record, turn Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = m.now().UTC()
	}
	record.AppendTurn(turn, m.now(), m.timeout)

	if err := m.store.Update(ctx, record); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// End deletes the session record. Ending a session that no longer exists is
// not an error.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// Timeout returns the configured sliding session timeout.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Healthcheck reports whether the backing store is reachable.
func (m *Manager) Healthcheck(ctx context.Context) error {
	return m.store.Healthcheck(ctx)
}
