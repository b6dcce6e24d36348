package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"campusfix-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	issues    *mongo.Collection
	upvotes   *mongo.Collection
	responses *mongo.Collection
	history   *mongo.Collection
}

// NewMongoStore returns a Store backed by the four issue collections of db.
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{
		issues:    db.Collection(models.IssuesCollection),
		upvotes:   db.Collection(models.UpvotesCollection),
		responses: db.Collection(models.ResponsesCollection),
		history:   db.Collection(models.StatusHistoryCollection),
	}
}

func (s *mongoStore) FindIssues(ctx context.Context) ([]models.Issue, error) {
	findOptions := options.Find().SetSort(bson.D{
		{Key: "upvote_count", Value: -1},
		{Key: "reported_date", Value: -1},
	})

	cursor, err := s.issues.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *mongoStore) FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := s.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &issue, nil
}

func (s *mongoStore) InsertIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	_, err := s.issues.InsertOne(ctx, issue)
	return err
}

func (s *mongoStore) SetIssueStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, error) {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Issue
	err := s.issues.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &before, nil
}

func (s *mongoStore) DeleteIssue(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.issues.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	// Orphans are harmless to readers, so cleanup failures are only logged.
	if _, err := s.upvotes.DeleteMany(ctx, bson.M{"issue_id": id}); err != nil {
		log.Printf("store: delete upvotes of %s: %v", id.Hex(), err)
	}
	if _, err := s.responses.DeleteMany(ctx, bson.M{"issue_id": id}); err != nil {
		log.Printf("store: delete responses of %s: %v", id.Hex(), err)
	}
	if _, err := s.history.DeleteMany(ctx, bson.M{"issue_id": id}); err != nil {
		log.Printf("store: delete status history of %s: %v", id.Hex(), err)
	}
	return nil
}

func (s *mongoStore) DeleteUpvote(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	result, err := s.upvotes.DeleteOne(ctx, bson.M{"issue_id": issueID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (s *mongoStore) InsertUpvote(ctx context.Context, upvote *models.Upvote) error {
	if upvote.ID.IsZero() {
		upvote.ID = primitive.NewObjectID()
	}
	_, err := s.upvotes.InsertOne(ctx, upvote)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *mongoStore) HasUpvote(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	count, err := s.upvotes.CountDocuments(ctx, bson.M{"issue_id": issueID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *mongoStore) SyncUpvoteCount(ctx context.Context, issueID primitive.ObjectID) (int64, error) {
	count, err := s.upvotes.CountDocuments(ctx, bson.M{"issue_id": issueID})
	if err != nil {
		return 0, err
	}

	result, err := s.issues.UpdateOne(ctx, bson.M{"_id": issueID}, bson.M{"$set": bson.M{"upvote_count": count}})
	if err != nil {
		return 0, err
	}
	if result.MatchedCount == 0 {
		return 0, ErrNotFound
	}
	return count, nil
}

func (s *mongoStore) InsertResponse(ctx context.Context, response *models.Response) error {
	if response.ID.IsZero() {
		response.ID = primitive.NewObjectID()
	}
	_, err := s.responses.InsertOne(ctx, response)
	return err
}

func (s *mongoStore) FindResponses(ctx context.Context, issueID primitive.ObjectID) ([]models.Response, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.responses.Find(ctx, bson.M{"issue_id": issueID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	responses := []models.Response{}
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

func (s *mongoStore) FindStatusHistory(ctx context.Context, issueID primitive.ObjectID) ([]models.StatusHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.history.Find(ctx, bson.M{"issue_id": issueID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	history := []models.StatusHistory{}
	if err := cursor.All(ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}
