package repository

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"campusfix-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueRepository is the only path between the HTTP layer and issue data in
// the remote store. Write paths surface errors; the auxiliary read paths
// (responses, history, upvote check) swallow them.
type IssueRepository struct {
	store Store
	now   func() time.Time
}

func NewIssueRepository(store Store) *IssueRepository {
	return &IssueRepository{store: store, now: time.Now}
}

// List returns all issues, most upvoted first and newest first within equal
// counts. An empty store yields an empty, non-nil slice.
func (r *IssueRepository) List(ctx context.Context) ([]models.Issue, error) {
	issues, err := r.store.FindIssues(ctx)
	if err != nil {
		return nil, wrap("list issues", err)
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return issues, nil
}

func (r *IssueRepository) Get(ctx context.Context, id string) (*models.Issue, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	issue, err := r.store.FindIssue(ctx, oid)
	if err != nil {
		return nil, wrap("get issue", err)
	}
	return issue, nil
}

func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	return wrap("create issue", r.store.InsertIssue(ctx, issue))
}

// UpdateStatus writes the new status and a fresh updated_at. It returns the
// issue as it was before the write and the issue as it now is in the store.
func (r *IssueRepository) UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, *models.Issue, error) {
	if !status.Valid() {
		return nil, nil, NewValidationError("status", "unknown status")
	}
	oid, err := ParseID(id)
	if err != nil {
		return nil, nil, err
	}

	at := r.now().UTC()
	before, err := r.store.SetIssueStatus(ctx, oid, status, at)
	if err != nil {
		return nil, nil, wrap("update issue status", err)
	}

	after := *before
	after.Status = status
	after.UpdatedAt = at
	return before, &after, nil
}

func (r *IssueRepository) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	return wrap("delete issue", r.store.DeleteIssue(ctx, oid))
}

// ToggleUpvote flips the user's upvote on an issue and returns the new state
// with the recounted total. The row is removed by key first; only when there
// was nothing to remove is a new row inserted. A duplicate insert means a
// concurrent request already upvoted, which leaves the user upvoted.
func (r *IssueRepository) ToggleUpvote(ctx context.Context, issueID, userID string) (bool, int64, error) {
	if userID == "" {
		return false, 0, ErrAuthRequired
	}
	iid, err := ParseID(issueID)
	if err != nil {
		return false, 0, err
	}
	uid, err := ParseID(userID)
	if err != nil {
		return false, 0, err
	}

	if _, err := r.store.FindIssue(ctx, iid); err != nil {
		return false, 0, wrap("toggle upvote", err)
	}

	removed, err := r.store.DeleteUpvote(ctx, iid, uid)
	if err != nil {
		return false, 0, wrap("remove upvote", err)
	}

	upvoted := false
	if !removed {
		upvote := &models.Upvote{IssueID: iid, UserID: uid, CreatedAt: r.now().UTC()}
		err := r.store.InsertUpvote(ctx, upvote)
		switch {
		case err == nil, errors.Is(err, ErrDuplicate):
			upvoted = true
		default:
			return false, 0, wrap("add upvote", err)
		}
	}

	count, err := r.store.SyncUpvoteCount(ctx, iid)
	if err != nil {
		return upvoted, 0, wrap("recount upvotes", err)
	}
	return upvoted, count, nil
}

// CheckUpvoted fails open: any error reads as "not upvoted".
func (r *IssueRepository) CheckUpvoted(ctx context.Context, issueID, userID string) bool {
	if userID == "" {
		return false
	}
	iid, err := ParseID(issueID)
	if err != nil {
		return false
	}
	uid, err := ParseID(userID)
	if err != nil {
		return false
	}
	ok, err := r.store.HasUpvote(ctx, iid, uid)
	if err != nil {
		log.Printf("repository: check upvote %s/%s: %v", issueID, userID, err)
		return false
	}
	return ok
}

// AddResponse appends a response. A user or an admin session is required;
// admin responses without a user carry no author.
func (r *IssueRepository) AddResponse(ctx context.Context, issueID, text string, typ models.ResponseType, userID string, isAdmin bool) ([]models.Response, error) {
	if userID == "" && !isAdmin {
		return nil, ErrAuthRequired
	}

	verr := &ValidationError{}
	text = strings.TrimSpace(text)
	if text == "" {
		verr.Add("response_text", "please enter a response message")
	}
	if !typ.Valid() {
		verr.Add("response_type", "must be one of update, resolution, comment")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	iid, err := ParseID(issueID)
	if err != nil {
		return nil, err
	}
	if _, err := r.store.FindIssue(ctx, iid); err != nil {
		return nil, wrap("add response", err)
	}

	var author *primitive.ObjectID
	if userID != "" {
		uid, err := ParseID(userID)
		if err != nil {
			return nil, err
		}
		author = &uid
	}

	now := r.now().UTC()
	response := models.Response{
		IssueID:         iid,
		UserID:          author,
		ResponseText:    text,
		ResponseType:    typ,
		IsAdminResponse: isAdmin,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.store.InsertResponse(ctx, &response); err != nil {
		return nil, wrap("add response", err)
	}
	return []models.Response{response}, nil
}

// ListResponses never fails; errors are logged and yield an empty list.
func (r *IssueRepository) ListResponses(ctx context.Context, issueID string) []models.Response {
	iid, err := ParseID(issueID)
	if err != nil {
		return []models.Response{}
	}
	responses, err := r.store.FindResponses(ctx, iid)
	if err != nil {
		log.Printf("repository: list responses of %s: %v", issueID, err)
		return []models.Response{}
	}
	if responses == nil {
		return []models.Response{}
	}
	return responses
}

// ListStatusHistory never fails; errors are logged and yield an empty list.
func (r *IssueRepository) ListStatusHistory(ctx context.Context, issueID string) []models.StatusHistory {
	iid, err := ParseID(issueID)
	if err != nil {
		return []models.StatusHistory{}
	}
	history, err := r.store.FindStatusHistory(ctx, iid)
	if err != nil {
		log.Printf("repository: list status history of %s: %v", issueID, err)
		return []models.StatusHistory{}
	}
	if history == nil {
		return []models.StatusHistory{}
	}
	return history
}
