package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid admin credentials")
	ErrSessionExpired     = errors.New("admin session expired")
	ErrNoSession          = errors.New("no admin session")
)

// DefaultTTL is how long an admin session stays valid after login.
const DefaultTTL = 24 * time.Hour

// AdminSession is valid for any instant strictly before ExpiresAt.
type AdminSession struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s AdminSession) ValidAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}

// Store persists session records by id.
type Store interface {
	Save(ctx context.Context, s AdminSession) error
	Get(ctx context.Context, id string) (*AdminSession, error)
	Delete(ctx context.Context, id string) error
}

// Authenticator runs the anonymous / admin-authenticated state machine.
type Authenticator struct {
	adminID  string
	password string
	ttl      time.Duration
	store    Store
	now      func() time.Time
}

func NewAuthenticator(adminID, password string, ttl time.Duration, store Store) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Authenticator{
		adminID:  adminID,
		password: password,
		ttl:      ttl,
		store:    store,
		now:      time.Now,
	}
}

// Login checks both fields for an exact match and opens a session.
func (a *Authenticator) Login(ctx context.Context, adminID, password string) (*AdminSession, error) {
	if a.adminID == "" || a.password == "" {
		return nil, ErrInvalidCredentials
	}
	idOK := subtle.ConstantTimeCompare([]byte(adminID), []byte(a.adminID)) == 1
	pwOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !idOK || !pwOK {
		return nil, ErrInvalidCredentials
	}

	now := a.now().UTC()
	s := AdminSession{
		ID:        uuid.NewString(),
		Subject:   adminID,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.ttl),
	}
	if err := a.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save admin session: %w", err)
	}
	return &s, nil
}

// Restore loads a session and discards it once it has expired.
func (a *Authenticator) Restore(ctx context.Context, id string) (*AdminSession, error) {
	if id == "" {
		return nil, ErrNoSession
	}
	s, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.ValidAt(a.now()) {
		if err := a.store.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("discard expired session: %w", err)
		}
		return nil, ErrSessionExpired
	}
	return s, nil
}

func (a *Authenticator) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return a.store.Delete(ctx, id)
}
