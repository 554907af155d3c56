// Package memory is an in-process store for development and tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/kyc"
	"kycdesk.org/internal/reports"
	"kycdesk.org/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]auth.User
	nextUser int64
	branches int64
	creds    *kyc.Credentials
	logs     []logRow
	nextLog  int64
	apiText  string
}

type logRow struct {
	id int64
	kyc.Attempt
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]auth.User)}
}

// AddUser registers a user and returns it with its assigned id.
func (s *Store) AddUser(u auth.User) auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	u.ID = strconv.FormatInt(s.nextUser, 10)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	s.users[u.ID] = u
	return u
}

// SetBranchCount sets the number reported by Overview.
func (s *Store) SetBranchCount(n int64) {
	s.mu.Lock()
	s.branches = n
	s.mu.Unlock()
}

func (s *Store) FindUser(_ context.Context, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (auth.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (s *Store) Credentials(context.Context) (kyc.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return kyc.Credentials{}, kyc.ErrCredentialsNotConfigured
	}
	return *s.creds, nil
}

func (s *Store) SaveCredentials(_ context.Context, c kyc.Credentials) error {
	s.mu.Lock()
	s.creds = &c
	s.mu.Unlock()
	return nil
}

func (s *Store) InsertAttempt(_ context.Context, a kyc.Attempt) error {
	if _, err := auth.ParseUserID(a.UserID); err != nil {
		return err
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	s.nextLog++
	s.logs = append(s.logs, logRow{id: s.nextLog, Attempt: a})
	s.mu.Unlock()
	return nil
}

// ListAttempts returns rows whose user still exists, newest first.
func (s *Store) ListAttempts(context.Context) ([]reports.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reports.LogEntry, 0, len(s.logs))
	for _, r := range s.logs {
		u, ok := s.users[r.UserID]
		if !ok {
			continue
		}
		out = append(out, reports.LogEntry{
			LogID:     r.id,
			UserID:    u.ID,
			UserName:  u.Name,
			UserEmail: u.Email,
			KycType:   r.KycType,
			Status:    r.Status,
			Timestamp: r.Timestamp,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].LogID > out[j].LogID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *Store) CountAttemptsBetween(_ context.Context, userID string, from, to time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.logs {
		if userID != "" && r.UserID != userID {
			continue
		}
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		n++
	}
	return n, nil
}

func (s *Store) TopTypes(_ context.Context, userID string, limit int) ([]reports.TypeCount, error) {
	s.mu.RLock()
	counts := map[string]int64{}
	for _, r := range s.logs {
		if r.UserID == userID {
			counts[r.KycType]++
		}
	}
	s.mu.RUnlock()

	out := make([]reports.TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, reports.TypeCount{KycType: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].KycType < out[j].KycType
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Overview(context.Context) (reports.Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o := reports.Overview{Branches: s.branches, Kyc: int64(len(s.logs))}
	for _, u := range s.users {
		if u.Role == auth.RoleUser {
			o.Users++
		}
	}
	return o, nil
}

func (s *Store) APIText(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strings.TrimSpace(s.apiText) == "" {
		return store.DefaultAPIText, nil
	}
	return s.apiText, nil
}

func (s *Store) SaveAPIText(_ context.Context, text string) error {
	s.mu.Lock()
	s.apiText = text
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
