package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/kyc"
	"kycdesk.org/internal/store"
)

func TestAttemptQueries(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := s.AddUser(auth.User{Name: "Alice", Email: "Alice@Example.com"})
	bob := s.AddUser(auth.User{Name: "Bob", Email: "bob@example.com"})
	s.AddUser(auth.User{Name: "Root", Email: "root@example.com", Role: auth.RoleAdmin})
	s.SetBranchCount(2)

	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for i, a := range []kyc.Attempt{
		{UserID: alice.ID, KycType: "PAN", Status: "success", Timestamp: base},
		{UserID: alice.ID, KycType: "PAN", Status: "success", Timestamp: base.Add(30 * time.Minute)},
		{UserID: alice.ID, KycType: "GST", Status: "Invalid GSTIN", Timestamp: base.Add(time.Hour)},
		{UserID: bob.ID, KycType: "Udyam Aadhaar", Status: "success", Timestamp: base.Add(2 * time.Hour)},
	} {
		if err := s.InsertAttempt(ctx, a); err != nil {
			t.Fatalf("InsertAttempt %d: %v", i, err)
		}
	}

	n, _ := s.CountAttemptsBetween(ctx, "", base, base.Add(time.Hour))
	if n != 3 {
		t.Fatalf("expected inclusive window to count 3, got %d", n)
	}
	n, _ = s.CountAttemptsBetween(ctx, bob.ID, base, base.Add(time.Hour))
	if n != 0 {
		t.Fatalf("expected 0 for bob, got %d", n)
	}

	top, _ := s.TopTypes(ctx, alice.ID, 3)
	if len(top) != 2 || top[0].KycType != "PAN" || top[0].Count != 2 {
		t.Fatalf("unexpected top types: %+v", top)
	}

	logs, _ := s.ListAttempts(ctx)
	if len(logs) != 4 || logs[0].UserName != "Bob" || logs[3].UserEmail != "alice@example.com" {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	ov, _ := s.Overview(ctx)
	if ov.Users != 2 || ov.Branches != 2 || ov.Kyc != 4 {
		t.Fatalf("unexpected overview: %+v", ov)
	}
}

func TestSettings(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Credentials(ctx); !errors.Is(err, kyc.ErrCredentialsNotConfigured) {
		t.Fatalf("expected ErrCredentialsNotConfigured, got %v", err)
	}
	if err := s.SaveCredentials(ctx, kyc.Credentials{ClientID: "a", ClientSecret: "b"}); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}
	if c, _ := s.Credentials(ctx); c.ClientID != "a" {
		t.Fatalf("unexpected credentials: %+v", c)
	}

	if text, _ := s.APIText(ctx); text != store.DefaultAPIText {
		t.Fatalf("expected default text, got %q", text)
	}
	_ = s.SaveAPIText(ctx, "via deepvue")
	if text, _ := s.APIText(ctx); text != "via deepvue" {
		t.Fatalf("unexpected text: %q", text)
	}

	if _, err := s.FindUserByEmail(ctx, "none@example.com"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.InsertAttempt(ctx, kyc.Attempt{UserID: ""}); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}
