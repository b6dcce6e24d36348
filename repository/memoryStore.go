package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"campusfix-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type upvoteKey struct {
	issue primitive.ObjectID
	user  primitive.ObjectID
}

// MemoryStore keeps every collection in process memory. It backs
// STORE_DRIVER=memory for local runs and the package tests.
type MemoryStore struct {
	mu        sync.RWMutex
	issues    map[primitive.ObjectID]models.Issue
	upvotes   map[upvoteKey]models.Upvote
	responses []models.Response
	history   []models.StatusHistory
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		issues:  map[primitive.ObjectID]models.Issue{},
		upvotes: map[upvoteKey]models.Upvote{},
	}
}

func (s *MemoryStore) FindIssues(_ context.Context) ([]models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issues := make([]models.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		issues = append(issues, issue)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].UpvoteCount != issues[j].UpvoteCount {
			return issues[i].UpvoteCount > issues[j].UpvoteCount
		}
		return issues[i].ReportedDate.After(issues[j].ReportedDate)
	})
	return issues, nil
}

func (s *MemoryStore) FindIssue(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &issue, nil
}

func (s *MemoryStore) InsertIssue(_ context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	if _, exists := s.issues[issue.ID]; exists {
		return ErrDuplicate
	}
	s.issues[issue.ID] = *issue
	return nil
}

func (s *MemoryStore) SetIssueStatus(_ context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	before := issue
	issue.Status = status
	issue.UpdatedAt = at
	s.issues[id] = issue
	return &before, nil
}

func (s *MemoryStore) DeleteIssue(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[id]; !ok {
		return ErrNotFound
	}
	delete(s.issues, id)

	for key := range s.upvotes {
		if key.issue == id {
			delete(s.upvotes, key)
		}
	}
	kept := s.responses[:0]
	for _, r := range s.responses {
		if r.IssueID != id {
			kept = append(kept, r)
		}
	}
	s.responses = kept

	history := s.history[:0]
	for _, h := range s.history {
		if h.IssueID != id {
			history = append(history, h)
		}
	}
	s.history = history
	return nil
}

func (s *MemoryStore) DeleteUpvote(_ context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := upvoteKey{issue: issueID, user: userID}
	if _, ok := s.upvotes[key]; !ok {
		return false, nil
	}
	delete(s.upvotes, key)
	return true, nil
}

func (s *MemoryStore) InsertUpvote(_ context.Context, upvote *models.Upvote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := upvoteKey{issue: upvote.IssueID, user: upvote.UserID}
	if _, ok := s.upvotes[key]; ok {
		return ErrDuplicate
	}
	if upvote.ID.IsZero() {
		upvote.ID = primitive.NewObjectID()
	}
	s.upvotes[key] = *upvote
	return nil
}

func (s *MemoryStore) HasUpvote(_ context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.upvotes[upvoteKey{issue: issueID, user: userID}]
	return ok, nil
}

func (s *MemoryStore) SyncUpvoteCount(_ context.Context, issueID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[issueID]
	if !ok {
		return 0, ErrNotFound
	}
	var count int64
	for key := range s.upvotes {
		if key.issue == issueID {
			count++
		}
	}
	issue.UpvoteCount = count
	s.issues[issueID] = issue
	return count, nil
}

func (s *MemoryStore) InsertResponse(_ context.Context, response *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if response.ID.IsZero() {
		response.ID = primitive.NewObjectID()
	}
	s.responses = append(s.responses, *response)
	return nil
}

func (s *MemoryStore) FindResponses(_ context.Context, issueID primitive.ObjectID) ([]models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Response{}
	for _, r := range s.responses {
		if r.IssueID == issueID {
			out = append(out, r)
		}
	}
	// Rows with the same created_at fall back to the later id first.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out, nil
}

func (s *MemoryStore) FindStatusHistory(_ context.Context, issueID primitive.ObjectID) ([]models.StatusHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.StatusHistory{}
	for _, h := range s.history {
		if h.IssueID == issueID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AppendStatusHistory records a history row the way the external status
// trigger would. The issue repository itself never calls it.
func (s *MemoryStore) AppendStatusHistory(entry models.StatusHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	s.history = append(s.history, entry)
}
