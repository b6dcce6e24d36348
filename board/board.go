package board

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"campusfix-be/messaging"
	"campusfix-be/middlewares"
	"campusfix-be/models"
	"campusfix-be/repository"
)

// Actor is whoever asked for a change: a signed-in user, an admin session,
// or both.
type Actor struct {
	UserID string
	Admin  bool
}

// Policy holds the mutation rules that are configurable per deployment.
type Policy struct {
	AdminCanDelete bool
}

// Board is the process-wide dashboard state: the cached issue list and the
// error of the last failed action.
type Board struct {
	repo   *repository.IssueRepository
	pub    messaging.Publisher
	policy Policy
	now    func() time.Time

	mu      sync.RWMutex
	issues  []models.Issue
	lastErr string
	loaded  bool
}

func New(repo *repository.IssueRepository, pub messaging.Publisher, policy Policy) *Board {
	if pub == nil {
		pub = messaging.NopPublisher{}
	}
	return &Board{repo: repo, pub: pub, policy: policy, now: time.Now}
}

// Load replaces the cached list with a fresh fetch. On failure the previous
// list is kept and the error recorded.
func (b *Board) Load(ctx context.Context) error {
	issues, err := b.repo.List(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.lastErr = err.Error()
		return err
	}
	b.issues = issues
	b.lastErr = ""
	b.loaded = true
	return nil
}

// EnsureLoaded fetches once; later calls reuse the cache.
func (b *Board) EnsureLoaded(ctx context.Context) error {
	b.mu.RLock()
	loaded := b.loaded
	b.mu.RUnlock()
	if loaded {
		return nil
	}
	return b.Load(ctx)
}

// Issues returns a copy of the cached list.
func (b *Board) Issues() []models.Issue {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Issue{}, b.issues...)
}

func (b *Board) Err() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

func (b *Board) setErr(err error) {
	b.mu.Lock()
	b.lastErr = err.Error()
	b.mu.Unlock()
}

// Create stores a new issue and refreshes the list so it lands in order.
func (b *Board) Create(ctx context.Context, issue *models.Issue) error {
	if err := b.repo.Create(ctx, issue); err != nil {
		b.setErr(err)
		return err
	}
	if err := b.Load(ctx); err != nil {
		log.Printf("board: refresh after create %s: %v", issue.ID.Hex(), err)
	}

	event := messaging.NewIssueEvent(issue.ID.Hex())
	event.IssueTitle = issue.Title
	event.Category = string(issue.Category)
	if issue.UserID != nil {
		event.ReporterID = issue.UserID.Hex()
	}
	event.NewStatus = string(issue.Status)
	messaging.PublishAsync(b.pub, messaging.RoutingKeyIssueCreated, event)
	return nil
}

// UpdateStatus patches the cached issue first, then writes. A failed write
// restores the cached issue; a successful one replaces it with the store's
// version.
func (b *Board) UpdateStatus(ctx context.Context, id string, status models.IssueStatus, actor Actor) (*models.Issue, error) {
	if !status.Valid() {
		return nil, repository.NewValidationError("status", "unknown status")
	}
	if err := b.authorize(ctx, id, actor, false); err != nil {
		return nil, err
	}

	b.mu.Lock()
	idx := b.indexLocked(id)
	var previous models.Issue
	if idx >= 0 {
		previous = b.issues[idx]
		b.issues[idx].Status = status
		b.issues[idx].UpdatedAt = b.now().UTC()
	}
	b.mu.Unlock()

	before, after, err := b.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		b.mu.Lock()
		if i := b.indexLocked(id); i >= 0 && idx >= 0 {
			b.issues[i] = previous
		}
		b.lastErr = err.Error()
		b.mu.Unlock()
		return nil, err
	}

	b.mu.Lock()
	i := b.indexLocked(id)
	if i >= 0 {
		if idx >= 0 && diverged(previous, *before) {
			log.Printf("board: issue %s changed in the store since it was cached (cached status %q, stored %q)",
				id, previous.Status, before.Status)
			middlewares.RecordBoardDivergence("update_status")
		}
		b.issues[i] = *after
	}
	b.mu.Unlock()

	if i < 0 {
		log.Printf("board: updated issue %s was not cached, refreshing", id)
		middlewares.RecordBoardDivergence("update_status_missing")
		if err := b.Load(ctx); err != nil {
			log.Printf("board: refresh after status update: %v", err)
		}
	}

	event := messaging.NewIssueEvent(id)
	event.IssueTitle = after.Title
	event.OldStatus = string(before.Status)
	event.NewStatus = string(after.Status)
	event.ActorID = actor.UserID
	event.ActorAdmin = actor.Admin
	if after.UserID != nil {
		event.ReporterID = after.UserID.Hex()
	}
	messaging.PublishAsync(b.pub, messaging.RoutingKeyStatusUpdated, event)

	return after, nil
}

// Delete removes the issue remotely first and only then from the cache.
func (b *Board) Delete(ctx context.Context, id string, actor Actor) error {
	if err := b.authorize(ctx, id, actor, true); err != nil {
		return err
	}
	if err := b.repo.Delete(ctx, id); err != nil {
		b.setErr(err)
		return err
	}

	b.mu.Lock()
	if i := b.indexLocked(id); i >= 0 {
		b.issues = append(b.issues[:i], b.issues[i+1:]...)
	}
	b.mu.Unlock()

	event := messaging.NewIssueEvent(id)
	event.ActorID = actor.UserID
	event.ActorAdmin = actor.Admin
	messaging.PublishAsync(b.pub, messaging.RoutingKeyIssueDeleted, event)
	return nil
}

// ToggleUpvote flips the user's upvote and then refetches the whole list,
// since the new count changes the ordering.
func (b *Board) ToggleUpvote(ctx context.Context, issueID, userID string) (bool, int64, error) {
	upvoted, count, err := b.repo.ToggleUpvote(ctx, issueID, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrAuthRequired) {
			b.setErr(err)
		}
		return false, 0, err
	}
	middlewares.RecordUpvoteToggle(upvoted)

	if err := b.Load(ctx); err != nil {
		log.Printf("board: refresh after upvote on %s: %v", issueID, err)
	}

	event := messaging.NewIssueEvent(issueID)
	event.ActorID = userID
	event.Upvoted = &upvoted
	event.Upvotes = count
	messaging.PublishAsync(b.pub, messaging.RoutingKeyUpvoteToggled, event)

	return upvoted, count, nil
}

func (b *Board) AddResponse(ctx context.Context, issueID, text string, typ models.ResponseType, actor Actor) ([]models.Response, error) {
	rows, err := b.repo.AddResponse(ctx, issueID, text, typ, actor.UserID, actor.Admin)
	if err != nil {
		return nil, err
	}

	event := messaging.NewIssueEvent(issueID)
	event.ActorID = actor.UserID
	event.ActorAdmin = actor.Admin
	event.Response = string(typ)
	messaging.PublishAsync(b.pub, messaging.RoutingKeyResponseAdded, event)
	return rows, nil
}

// authorize lets the owner change status or delete. Admins may change status
// always and delete only when the policy allows it.
func (b *Board) authorize(ctx context.Context, id string, actor Actor, deleting bool) error {
	if actor.UserID == "" && !actor.Admin {
		return repository.ErrAuthRequired
	}
	if actor.Admin && (!deleting || b.policy.AdminCanDelete) {
		return nil
	}

	issue, err := b.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !issue.OwnedBy(actor.UserID) {
		return repository.ErrForbidden
	}
	return nil
}

func (b *Board) indexLocked(id string) int {
	for i := range b.issues {
		if b.issues[i].ID.Hex() == id {
			return i
		}
	}
	return -1
}

// diverged reports whether the store held something other than the cached
// copy right before our write.
func diverged(cached, stored models.Issue) bool {
	return cached.Status != stored.Status || !cached.UpdatedAt.Equal(stored.UpdatedAt)
}
