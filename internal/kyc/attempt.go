package kyc

import (
	"context"
	"sync"
	"time"

	"kycdesk.org/internal/obs"
)

// AttemptStore persists attempt-log rows.
type AttemptStore interface {
	InsertAttempt(ctx context.Context, a Attempt) error
}

// AttemptLogger appends one row per completed verification. Writes are
// best-effort: a failing store is logged and counted, never surfaced.
type AttemptLogger struct {
	store AttemptStore
	now   func() time.Time
}

// NewAttemptLogger returns a logger writing to store. A nil store disables logging.
func NewAttemptLogger(store AttemptStore) *AttemptLogger {
	return &AttemptLogger{store: store, now: time.Now}
}

// Record writes the attempt and reports whether it was stored.
func (l *AttemptLogger) Record(ctx context.Context, userID, kycType, status string) bool {
	if l == nil || l.store == nil {
		return false
	}
	a := Attempt{UserID: userID, KycType: kycType, Status: status, Timestamp: l.now().UTC()}
	if err := l.store.InsertAttempt(ctx, a); err != nil {
		obs.AttemptLogFailures.Inc()
		obs.FromContext(ctx).Error().Err(err).
			Str("user_id", userID).
			Str("kyc_type", kycType).
			Str("status", status).
			Msg("attempt log write failed")
		return false
	}
	return true
}

// MemoryAttempts is an in-process AttemptStore.
type MemoryAttempts struct {
	mu   sync.Mutex
	rows []Attempt
}

func (m *MemoryAttempts) InsertAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	m.rows = append(m.rows, a)
	m.mu.Unlock()
	return nil
}

// Attempts returns a copy of the stored rows in insertion order.
func (m *MemoryAttempts) Attempts() []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Attempt, len(m.rows))
	copy(out, m.rows)
	return out
}
