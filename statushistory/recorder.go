package statushistory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"campusfix-be/messaging"
	"campusfix-be/models"
	"campusfix-be/repository"

	"github.com/avast/retry-go"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	maxRetryAttempts = 3
	initialDelay     = 1 * time.Second
	maxDelay         = 30 * time.Second
)

// Writer appends history rows. A row whose event id was already written
// returns repository.ErrDuplicate.
type Writer interface {
	Insert(ctx context.Context, entry models.StatusHistory) error
}

type mongoWriter struct {
	history *mongo.Collection
}

func NewMongoWriter(db *mongo.Database) Writer {
	return &mongoWriter{history: db.Collection(models.StatusHistoryCollection)}
}

func (w *mongoWriter) Insert(ctx context.Context, entry models.StatusHistory) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := w.history.InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

// Recorder turns issue.status.updated events into status history rows.
type Recorder struct {
	writer   Writer
	attempts uint
	delay    time.Duration
}

func NewRecorder(writer Writer) *Recorder {
	return &Recorder{writer: writer, attempts: maxRetryAttempts, delay: initialDelay}
}

// Handle writes one event. Malformed events are dropped, not retried.
func (r *Recorder) Handle(ctx context.Context, body []byte) error {
	var event messaging.IssueEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("statushistory: bad json: %v", err)
		return nil
	}
	entry, err := entryFromEvent(event)
	if err != nil {
		log.Printf("statushistory: skip event %s: %v", event.EventID, err)
		return nil
	}

	err = r.writer.Insert(ctx, entry)
	if errors.Is(err, repository.ErrDuplicate) {
		log.Printf("statushistory: event %s already recorded", event.EventID)
		return nil
	}
	return err
}

func entryFromEvent(event messaging.IssueEvent) (models.StatusHistory, error) {
	issueID, err := primitive.ObjectIDFromHex(event.IssueID)
	if err != nil {
		return models.StatusHistory{}, fmt.Errorf("bad issue_id %q", event.IssueID)
	}
	newStatus := models.IssueStatus(event.NewStatus)
	if !newStatus.Valid() {
		return models.StatusHistory{}, fmt.Errorf("bad new_status %q", event.NewStatus)
	}

	entry := models.StatusHistory{
		IssueID:   issueID,
		NewStatus: newStatus,
		EventID:   event.EventID,
		CreatedAt: time.UnixMilli(event.Timestamp).UTC(),
	}
	if old := models.IssueStatus(event.OldStatus); old.Valid() {
		entry.OldStatus = &old
	}
	if actor, err := primitive.ObjectIDFromHex(event.ActorID); err == nil {
		entry.ChangedBy = &actor
	}
	if event.ActorAdmin {
		reason := "changed by administrator"
		entry.ChangeReason = &reason
	}
	return entry, nil
}

// Process handles one delivery with backoff and dead-letters it once the
// attempts run out.
func (r *Recorder) Process(ctx context.Context, msg amqp.Delivery) {
	err := retry.Do(
		func() error {
			return r.Handle(ctx, msg.Body)
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("statushistory: retry %d: %v", n+1, err)
		}),
	)
	if err != nil {
		log.Printf("statushistory: failed, sending to DLQ: %v", err)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.Printf("statushistory: nack: %v", nackErr)
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.Printf("statushistory: ack: %v", ackErr)
	}
}

// Run drains msgs until ctx is done or the channel closes.
func (r *Recorder) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Println("statushistory: delivery channel closed")
				return
			}
			r.Process(ctx, msg)
		}
	}
}
