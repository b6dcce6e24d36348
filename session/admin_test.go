package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestAuthenticator(clock *time.Time) (*Authenticator, *MemoryStore) {
	store := NewMemoryStore()
	a := NewAuthenticator("admin", "s3cret", DefaultTTL, store)
	a.now = func() time.Time { return *clock }
	return a, store
}

func TestLoginRejectsWrongCredentials(t *testing.T) {
	clock := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	a, _ := newTestAuthenticator(&clock)

	cases := []struct{ id, pw string }{
		{"admin", "wrong"},
		{"Admin", "s3cret"},
		{"", ""},
		{"admin", "s3cret "},
	}
	for _, c := range cases {
		if _, err := a.Login(context.Background(), c.id, c.pw); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("login(%q, %q): %v", c.id, c.pw, err)
		}
	}
}

func TestLoginWithoutConfiguredCredentials(t *testing.T) {
	a := NewAuthenticator("", "", 0, NewMemoryStore())
	if _, err := a.Login(context.Background(), "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSessionExpiresExactlyAfter24Hours(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	a, _ := newTestAuthenticator(&clock)

	s, err := a.Login(ctx, "admin", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if s.Subject != "admin" || !s.ExpiresAt.Equal(clock.Add(24*time.Hour)) {
		t.Fatalf("session = %+v", s)
	}

	clock = s.IssuedAt.Add(24*time.Hour - time.Millisecond)
	if _, err := a.Restore(ctx, s.ID); err != nil {
		t.Fatalf("just before expiry: %v", err)
	}

	clock = s.IssuedAt.Add(24 * time.Hour)
	if _, err := a.Restore(ctx, s.ID); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("at expiry: %v", err)
	}

	// The expired record is gone, so the next check sees no session at all.
	clock = s.IssuedAt
	if _, err := a.Restore(ctx, s.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("after discard: %v", err)
	}
}

func TestValidAtBoundary(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := AdminSession{IssuedAt: issued, ExpiresAt: issued.Add(DefaultTTL)}

	if !s.ValidAt(issued) {
		t.Error("valid at issue time")
	}
	if !s.ValidAt(issued.Add(DefaultTTL - time.Nanosecond)) {
		t.Error("valid just before T+24h")
	}
	if s.ValidAt(issued.Add(DefaultTTL)) {
		t.Error("invalid at T+24h")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	ctx := context.Background()
	clock := time.Now()
	a, store := newTestAuthenticator(&clock)

	s, _ := a.Login(ctx, "admin", "s3cret")
	if err := a.Logout(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("store still holds session: %v", err)
	}
	if _, err := a.Restore(ctx, s.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("restore after logout: %v", err)
	}
}

func TestContextCarriesSession(t *testing.T) {
	if _, ok := AdminFrom(context.Background()); ok {
		t.Fatal("empty context should carry no admin")
	}
	s := &AdminSession{ID: "x", Subject: "admin"}
	got, ok := AdminFrom(WithAdmin(context.Background(), s))
	if !ok || got.ID != "x" {
		t.Fatalf("got %+v %v", got, ok)
	}
}
