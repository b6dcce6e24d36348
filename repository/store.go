package repository

import (
	"context"
	"time"

	"campusfix-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the raw document-store surface the issue repository is built on.
// Implementations report missing documents as ErrNotFound and unique-key
// violations as ErrDuplicate.
type Store interface {
	// FindIssues returns every issue ordered by upvote_count desc, then
	// reported_date desc.
	FindIssues(ctx context.Context) ([]models.Issue, error)
	FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	InsertIssue(ctx context.Context, issue *models.Issue) error
	// SetIssueStatus writes status and updated_at and returns the document
	// as it was before the write.
	SetIssueStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, error)
	// DeleteIssue removes the issue with its upvotes and responses.
	DeleteIssue(ctx context.Context, id primitive.ObjectID) error

	DeleteUpvote(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error)
	InsertUpvote(ctx context.Context, upvote *models.Upvote) error
	HasUpvote(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error)
	// SyncUpvoteCount recounts the upvote rows of an issue and stores the
	// result in its upvote_count.
	SyncUpvoteCount(ctx context.Context, issueID primitive.ObjectID) (int64, error)

	InsertResponse(ctx context.Context, response *models.Response) error
	FindResponses(ctx context.Context, issueID primitive.ObjectID) ([]models.Response, error)
	FindStatusHistory(ctx context.Context, issueID primitive.ObjectID) ([]models.StatusHistory, error)
}

// ParseID converts a hex id from a route parameter.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
