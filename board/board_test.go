package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusfix-be/messaging"
	"campusfix-be/models"
	"campusfix-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]messaging.IssueEvent
	got    chan string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: map[string][]messaging.IssueEvent{}, got: make(chan string, 16)}
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event messaging.IssueEvent) error {
	p.mu.Lock()
	p.events[key] = append(p.events[key], event)
	p.mu.Unlock()
	p.got <- key
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) wait(t *testing.T, key string) messaging.IssueEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case k := <-p.got:
			if k != key {
				continue
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			evs := p.events[key]
			return evs[len(evs)-1]
		case <-timeout:
			t.Fatalf("no %s event published", key)
			return messaging.IssueEvent{}
		}
	}
}

// flakyStore fails status writes while failWrites is set.
type flakyStore struct {
	*repository.MemoryStore
	failWrites bool
}

func (s *flakyStore) SetIssueStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, error) {
	if s.failWrites {
		return nil, errors.New("connection reset")
	}
	return s.MemoryStore.SetIssueStatus(ctx, id, status, at)
}

type fixture struct {
	store *flakyStore
	board *Board
	pub   *recordingPublisher
	owner string
	issue models.Issue
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	pub := newRecordingPublisher()
	b := New(repository.NewIssueRepository(store), pub, policy)

	owner := primitive.NewObjectID()
	issue := models.Issue{
		Title:        "Broken projector",
		Description:  "Room 204 projector shows no signal",
		Status:       models.Reported,
		Priority:     models.High,
		Category:     models.Technology,
		Location:     "Block B",
		ReportedDate: time.Now().Add(-time.Hour),
		UpdatedAt:    time.Now().Add(-time.Hour),
		UserID:       &owner,
	}
	if err := store.InsertIssue(context.Background(), &issue); err != nil {
		t.Fatal(err)
	}
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return &fixture{store: store, board: b, pub: pub, owner: owner.Hex(), issue: issue}
}

func TestUpdateStatusReconcilesWithStore(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	updated, err := f.board.UpdateStatus(ctx, f.issue.ID.Hex(), models.InProgress, Actor{UserID: f.owner})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.InProgress {
		t.Errorf("returned status %q", updated.Status)
	}

	cached := f.board.Issues()[0]
	stored, _ := f.store.FindIssue(ctx, f.issue.ID)
	if cached.Status != stored.Status || !cached.UpdatedAt.Equal(stored.UpdatedAt) {
		t.Errorf("cache %v/%v differs from store %v/%v", cached.Status, cached.UpdatedAt, stored.Status, stored.UpdatedAt)
	}

	event := f.pub.wait(t, messaging.RoutingKeyStatusUpdated)
	if event.OldStatus != string(models.Reported) || event.NewStatus != string(models.InProgress) || event.ActorID != f.owner {
		t.Errorf("event = %+v", event)
	}
}

func TestUpdateStatusRollsBackOnFailure(t *testing.T) {
	f := newFixture(t, Policy{})
	f.store.failWrites = true

	_, err := f.board.UpdateStatus(context.Background(), f.issue.ID.Hex(), models.Resolved, Actor{UserID: f.owner})
	var repoErr *repository.RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("expected RepositoryError, got %v", err)
	}

	cached := f.board.Issues()[0]
	if cached.Status != models.Reported || !cached.UpdatedAt.Equal(f.issue.UpdatedAt) {
		t.Errorf("cache not restored: %q at %v", cached.Status, cached.UpdatedAt)
	}
	if f.board.Err() == "" {
		t.Error("failure should be recorded")
	}
}

func TestUpdateStatusAuthorization(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()
	id := f.issue.ID.Hex()

	if _, err := f.board.UpdateStatus(ctx, id, models.Assigned, Actor{}); !errors.Is(err, repository.ErrAuthRequired) {
		t.Errorf("anonymous: %v", err)
	}
	stranger := primitive.NewObjectID().Hex()
	if _, err := f.board.UpdateStatus(ctx, id, models.Assigned, Actor{UserID: stranger}); !errors.Is(err, repository.ErrForbidden) {
		t.Errorf("stranger: %v", err)
	}
	if _, err := f.board.UpdateStatus(ctx, id, models.Assigned, Actor{Admin: true}); err != nil {
		t.Errorf("admin: %v", err)
	}
}

func TestDeletedIssueStaysGoneAfterReload(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()

	if err := f.board.Delete(ctx, f.issue.ID.Hex(), Actor{UserID: f.owner}); err != nil {
		t.Fatal(err)
	}
	if n := len(f.board.Issues()); n != 0 {
		t.Fatalf("cache still holds %d issues", n)
	}
	if err := f.board.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(f.board.Issues()); n != 0 {
		t.Fatalf("deleted issue came back after reload (%d issues)", n)
	}
	f.pub.wait(t, messaging.RoutingKeyIssueDeleted)
}

func TestAdminDeleteFollowsPolicy(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, Policy{AdminCanDelete: false})
	if err := f.board.Delete(ctx, f.issue.ID.Hex(), Actor{Admin: true}); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("admin delete without policy: %v", err)
	}

	f = newFixture(t, Policy{AdminCanDelete: true})
	if err := f.board.Delete(ctx, f.issue.ID.Hex(), Actor{Admin: true}); err != nil {
		t.Fatalf("admin delete with policy: %v", err)
	}
}

func TestToggleUpvoteRefreshesList(t *testing.T) {
	f := newFixture(t, Policy{})
	ctx := context.Background()
	voter := primitive.NewObjectID().Hex()

	upvoted, count, err := f.board.ToggleUpvote(ctx, f.issue.ID.Hex(), voter)
	if err != nil || !upvoted || count != 1 {
		t.Fatalf("toggle: %v %d %v", upvoted, count, err)
	}
	if got := f.board.Issues()[0].UpvoteCount; got != 1 {
		t.Errorf("cached count = %d", got)
	}

	event := f.pub.wait(t, messaging.RoutingKeyUpvoteToggled)
	if event.Upvoted == nil || !*event.Upvoted || event.Upvotes != 1 {
		t.Errorf("event = %+v", event)
	}

	if _, _, err := f.board.ToggleUpvote(ctx, f.issue.ID.Hex(), ""); !errors.Is(err, repository.ErrAuthRequired) {
		t.Errorf("anonymous toggle: %v", err)
	}
}

func TestLoadFailureKeepsPreviousList(t *testing.T) {
	f := newFixture(t, Policy{})

	f.board.repo = repository.NewIssueRepository(brokenStore{f.store})
	if err := f.board.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if len(f.board.Issues()) != 1 || f.board.Err() == "" {
		t.Errorf("issues=%d err=%q", len(f.board.Issues()), f.board.Err())
	}
}

type brokenStore struct{ *flakyStore }

func (brokenStore) FindIssues(context.Context) ([]models.Issue, error) {
	return nil, errors.New("timeout")
}
