package session

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one user/bot exchange within a session's conversation history.
type Turn struct {
	UserInput   string    `bson:"user_input" json:"user_input"`
	BotResponse string    `bson:"bot_response" json:"bot_response"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// Record is the persisted unit of session state. One document per session,
// keyed by SessionID.
type Record struct {
	// SessionID is the server-generated opaque identifier, immutable after
	// creation.
	SessionID string `bson:"session_id" json:"session_id"`

	// History is the chronological, append-only sequence of turns.
	History []Turn `bson:"history" json:"history"`

	// Context carries domain-specific state opaque to the session core.
	// It round-trips unchanged through persistence.
	Context map[string]any `bson:"context" json:"context"`

	// LastActive is updated on every successful interaction.
	LastActive time.Time `bson:"last_active" json:"last_active"`

	// ExpiresAt is always LastActive + the configured session timeout
	// (sliding window, never mutated independently).
	ExpiresAt time.Time `bson:"expiration_time" json:"expiration_time"`
}

// NewRecord creates a fresh session record with a random 128-bit identifier,
// empty history, and expiration derived from the given timeout.
func NewRecord(timeout time.Duration) *Record {
	now := time.Now().UTC()
	return &Record{
		SessionID:  uuid.NewString(),
		History:    []Turn{},
		Context:    map[string]any{},
		LastActive: now,
		ExpiresAt:  now.Add(timeout),
	}
}

// Expired reports whether the record is past its expiration time.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// TTL returns the remaining lifetime of the record relative to now.
func (r *Record) TTL(now time.Time) time.Duration {
	return r.ExpiresAt.Sub(now)
}

// AppendTurn appends a turn to the history and refreshes the sliding
// expiration window: LastActive = now, ExpiresAt = now + timeout.
func (r *Record) AppendTurn(turn Turn, now time.Time, timeout time.Duration) {
	r.History = append(r.History, turn)
	r.LastActive = now.UTC()
	r.ExpiresAt = r.LastActive.Add(timeout)
}
