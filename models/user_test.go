package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestNewUser(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	u, err := NewUser(" Asha ", " Asha@Campus.EDU ", "secret123", now)
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Asha" || u.Email != "asha@campus.edu" {
		t.Errorf("user = %+v", u)
	}
	if u.Password == "secret123" {
		t.Fatal("password stored in clear")
	}
	if !u.PasswordMatches("secret123") || u.PasswordMatches("secret124") {
		t.Error("password check mismatch")
	}
	if p := u.Profile(); p.Email != u.Email || !p.CreatedAt.Equal(now) {
		t.Errorf("profile = %+v", p)
	}

	if _, err := NewUser("x", "x@campus.edu", strings.Repeat("a", 73), now); !errors.Is(err, bcrypt.ErrPasswordTooLong) {
		t.Errorf("long password err = %v", err)
	}
}

func TestEnumsValid(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Errorf("status %q invalid", s)
		}
	}
	if IssueStatus("Closed").Valid() || IssuePriority("Urgent").Valid() || IssueCategory("Parking").Valid() {
		t.Error("unknown values accepted")
	}
	if !ResponseComment.Valid() || ResponseType("note").Valid() {
		t.Error("response type check")
	}
}
