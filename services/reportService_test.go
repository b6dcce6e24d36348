package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"strings"
	"sync"
	"testing"

	"campusfix-be/board"
	"campusfix-be/campusmap"
	"campusfix-be/messaging"
	"campusfix-be/models"
	"campusfix-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeObjects struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeObjects) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.example/" + key, nil
}

type harness struct {
	store   *repository.MemoryStore
	svc     *ReportService
	objects *fakeObjects
	user    Reporter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := repository.NewMemoryStore()
	b := board.New(repository.NewIssueRepository(store), messaging.NopPublisher{}, board.Policy{})
	objects := &fakeObjects{}
	svc := NewReportService(b, objects, campusmap.NewProjection(28.6692, 77.2265, 0.001), ReportConfig{
		ImageMaxBytes:     10 << 20,
		ImageMaxDimension: 1600,
	})
	return &harness{
		store:   store,
		svc:     svc,
		objects: objects,
		user:    Reporter{UserID: primitive.NewObjectID().Hex(), Email: "student@campus.edu"},
	}
}

func (h *harness) count(t *testing.T) int {
	t.Helper()
	issues, err := h.store.FindIssues(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return len(issues)
}

func validInput() ReportInput {
	return ReportInput{
		Title:       "Broken cooler",
		Description: "Water cooler near the library is not cooling",
		Category:    string(models.Infrastructure),
		Priority:    string(models.Medium),
	}
}

func TestSubmitBrokenCooler(t *testing.T) {
	h := newHarness(t)

	result, err := h.svc.Submit(context.Background(), h.user, validInput(), nil)
	if err != nil {
		t.Fatal(err)
	}
	issue := result.Issue
	if issue.Status != models.Reported || issue.UpvoteCount != 0 {
		t.Errorf("status=%q upvotes=%d", issue.Status, issue.UpvoteCount)
	}
	if issue.HasCoordinates() || issue.Latitude != nil || issue.Longitude != nil {
		t.Error("issue should have no coordinates")
	}
	if issue.ContactEmail == nil || *issue.ContactEmail != "student@campus.edu" {
		t.Errorf("contact email = %v", issue.ContactEmail)
	}
	if issue.Location != models.DefaultLocation {
		t.Errorf("location = %q", issue.Location)
	}
	if !issue.OwnedBy(h.user.UserID) {
		t.Error("issue should belong to the reporter")
	}
	if result.Redirect != "/dashboard" || result.RedirectAfterMs != 2000 {
		t.Errorf("redirect = %q after %d", result.Redirect, result.RedirectAfterMs)
	}
	if h.count(t) != 1 {
		t.Error("issue not stored")
	}
}

func TestSubmitMissingRequiredFieldsWritesNothing(t *testing.T) {
	h := newHarness(t)

	blank := func(f func(*ReportInput)) ReportInput {
		in := validInput()
		f(&in)
		return in
	}
	cases := map[string]ReportInput{
		"title":       blank(func(in *ReportInput) { in.Title = "  " }),
		"description": blank(func(in *ReportInput) { in.Description = "" }),
		"category":    blank(func(in *ReportInput) { in.Category = "" }),
		"priority":    blank(func(in *ReportInput) { in.Priority = "" }),
	}
	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := h.svc.Submit(context.Background(), h.user, in, nil)
			var verr *repository.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[field]; !ok {
				t.Errorf("fields = %v, want %s", verr.Fields, field)
			}
		})
	}
	if h.count(t) != 0 {
		t.Fatal("invalid reports must not be written")
	}
}

func TestSubmitRejectsUnknownEnumerations(t *testing.T) {
	h := newHarness(t)
	in := validInput()
	in.Category = "Parking"
	in.Priority = "Urgent"

	_, err := h.svc.Submit(context.Background(), h.user, in, nil)
	var verr *repository.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("got %v", err)
	}
}

func TestSubmitRequiresReporter(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.Submit(context.Background(), Reporter{}, validInput(), nil); !errors.Is(err, repository.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestSubmitCoordinates(t *testing.T) {
	h := newHarness(t)
	lat := 28.67

	in := validInput()
	in.Latitude = &lat
	if _, err := h.svc.Submit(context.Background(), h.user, in, nil); err == nil {
		t.Fatal("lone latitude should be rejected")
	}

	x, y := 60.0, 40.0
	in = validInput()
	in.PinX, in.PinY = &x, &y
	result, err := h.svc.Submit(context.Background(), h.user, in, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Issue.HasCoordinates() {
		t.Fatal("pin should set both coordinates")
	}
	if math.Abs(*result.Issue.Latitude-28.6792) > 1e-9 || math.Abs(*result.Issue.Longitude-77.2365) > 1e-9 {
		t.Errorf("coordinates = %v, %v", *result.Issue.Latitude, *result.Issue.Longitude)
	}
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSubmitWithImage(t *testing.T) {
	h := newHarness(t)

	result, err := h.svc.Submit(context.Background(), h.user, validInput(), tinyPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	if result.Issue.ImageURL == nil {
		t.Fatal("image url not stored")
	}
	if len(h.objects.keys) != 1 || !strings.HasPrefix(h.objects.keys[0], h.user.UserID+"/") || !strings.HasSuffix(h.objects.keys[0], ".png") {
		t.Errorf("keys = %v", h.objects.keys)
	}
}

func TestSubmitRejectsBadImageBeforeWriting(t *testing.T) {
	h := newHarness(t)
	h.svc.cfg.ImageMaxBytes = 16

	_, err := h.svc.Submit(context.Background(), h.user, validInput(), tinyPNG(t))
	var verr *repository.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(h.objects.keys) != 0 || h.count(t) != 0 {
		t.Error("nothing should be uploaded or stored")
	}

	h.svc.cfg.ImageMaxBytes = 10 << 20
	if _, err := h.svc.Submit(context.Background(), h.user, validInput(), []byte("plain text")); !errors.As(err, &verr) {
		t.Fatalf("non-image: %v", err)
	}
}

func TestSubmitUploadFailureStillCreatesIssue(t *testing.T) {
	h := newHarness(t)
	h.objects.err = errors.New("bucket unavailable")

	result, err := h.svc.Submit(context.Background(), h.user, validInput(), tinyPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	if result.Issue.ImageURL != nil {
		t.Error("image url should be empty after a failed upload")
	}
	if len(result.Notices) != 2 {
		t.Errorf("notices = %v", result.Notices)
	}
	if h.count(t) != 1 {
		t.Error("issue should still be created")
	}
}
