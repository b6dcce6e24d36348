package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the remote store.
const (
	IssuesCollection        = "issues"
	UpvotesCollection       = "issue_upvotes"
	ResponsesCollection     = "issue_responses"
	StatusHistoryCollection = "issue_status_history"
	UsersCollection         = "users"
)

// Upvote is one user's endorsement of an issue. At most one per pair.
type Upvote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IssueID   primitive.ObjectID `bson:"issue_id" json:"issue_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// EnsureIndexes creates the indexes the repository relies on: the unique
// (issue_id, user_id) pair for upvotes, the unique user email, the lookup
// indexes for responses and history, and the recorder's idempotency key.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		UpvotesCollection: {{
			Keys:    bson.D{{Key: "issue_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		IssuesCollection: {{
			Keys: bson.D{{Key: "upvote_count", Value: -1}, {Key: "reported_date", Value: -1}},
		}},
		ResponsesCollection: {{
			Keys: bson.D{{Key: "issue_id", Value: 1}, {Key: "created_at", Value: -1}},
		}},
		StatusHistoryCollection: {
			{Keys: bson.D{{Key: "issue_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "event_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		UsersCollection: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}

	for name, specs := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return err
		}
	}
	return nil
}
