// Package reports aggregates the attempt log for the dashboard charts and tables.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

const (
	PeriodToday = "today"
	PeriodMonth = "month"

	firstHour   = 10
	lastHour    = 18
	monthWeeks  = 5
	topTypesMax = 3
)

// LogEntry is an attempt-log row joined with the user who made it.
type LogEntry struct {
	LogID     int64     `json:"logId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	KycType   string    `json:"kycType"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// TypeCount is the number of attempts of one verification type.
type TypeCount struct {
	KycType string `json:"kycType"`
	Count   int64  `json:"count"`
}

// Overview holds the headline counters of the admin dashboard.
type Overview struct {
	Users    int64 `json:"users"`
	Branches int64 `json:"branches"`
	Kyc      int64 `json:"kyc"`
}

// Bucket is one bar of a stats chart.
type Bucket struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Store is the read side of the attempt log.
type Store interface {
	ListAttempts(ctx context.Context) ([]LogEntry, error)
	// CountAttemptsBetween counts rows with from <= timestamp <= to. An empty
	// userID counts every user.
	CountAttemptsBetween(ctx context.Context, userID string, from, to time.Time) (int64, error)
	TopTypes(ctx context.Context, userID string, limit int) ([]TypeCount, error)
	Overview(ctx context.Context) (Overview, error)
}

// Service builds the dashboard reports.
type Service struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

// New returns a Service computing calendar boundaries in loc (time.Local when nil).
func New(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, now: time.Now, loc: loc}
}

// Logs returns every attempt with its user.
func (s *Service) Logs(ctx context.Context) ([]LogEntry, error) {
	entries, err := s.store.ListAttempts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if entries == nil {
		entries = []LogEntry{}
	}
	return entries, nil
}

// Stats counts attempts per hour of business day ("today", 10:00 through
// 18:00) or per week of the current month ("month"). userID restricts the
// count to one user; empty means everyone.
func (s *Service) Stats(ctx context.Context, period, userID string) ([]Bucket, error) {
	now := s.now().In(s.loc)
	switch period {
	case PeriodToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
		out := make([]Bucket, 0, lastHour-firstHour+1)
		for h := firstHour; h <= lastHour; h++ {
			from := start.Add(time.Duration(h) * time.Hour)
			n, err := s.store.CountAttemptsBetween(ctx, userID, from, from.Add(time.Hour))
			if err != nil {
				return nil, fmt.Errorf("count %d:00: %w", h, err)
			}
			out = append(out, Bucket{Name: fmt.Sprintf("%d:00", h), Value: n})
		}
		return out, nil
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
		out := make([]Bucket, 0, monthWeeks)
		for w := 0; w < monthWeeks; w++ {
			from := start.AddDate(0, 0, w*7)
			n, err := s.store.CountAttemptsBetween(ctx, userID, from, from.AddDate(0, 0, 7))
			if err != nil {
				return nil, fmt.Errorf("count week %d: %w", w+1, err)
			}
			out = append(out, Bucket{Name: fmt.Sprintf("Week %d", w+1), Value: n})
		}
		return out, nil
	}
	return nil, ErrInvalidPeriod
}

// TopTypes returns the user's three most used verification types.
func (s *Service) TopTypes(ctx context.Context, userID string) ([]TypeCount, error) {
	top, err := s.store.TopTypes(ctx, userID, topTypesMax)
	if err != nil {
		return nil, fmt.Errorf("top types: %w", err)
	}
	if top == nil {
		top = []TypeCount{}
	}
	return top, nil
}

// Overview returns the headline counters.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	return s.store.Overview(ctx)
}
