package statushistory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"campusfix-be/messaging"
	"campusfix-be/models"
	"campusfix-be/repository"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryWriter struct {
	mu       sync.Mutex
	rows     []models.StatusHistory
	seen     map[string]bool
	failures int
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{seen: map[string]bool{}}
}

func (w *memoryWriter) Insert(_ context.Context, entry models.StatusHistory) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failures > 0 {
		w.failures--
		return errors.New("write timeout")
	}
	if w.seen[entry.EventID] {
		return repository.ErrDuplicate
	}
	w.seen[entry.EventID] = true
	w.rows = append(w.rows, entry)
	return nil
}

type fakeAcker struct {
	acked, nacked, requeued bool
}

func (a *fakeAcker) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *fakeAcker) Reject(uint64, bool) error { return nil }

func statusEvent(t *testing.T) ([]byte, messaging.IssueEvent) {
	t.Helper()
	event := messaging.NewIssueEvent(primitive.NewObjectID().Hex())
	event.OldStatus = string(models.Reported)
	event.NewStatus = string(models.Assigned)
	event.ActorID = primitive.NewObjectID().Hex()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	return body, event
}

func TestHandleWritesOneRowPerEvent(t *testing.T) {
	w := newMemoryWriter()
	r := NewRecorder(w)
	body, event := statusEvent(t)

	for i := 0; i < 2; i++ {
		if err := r.Handle(context.Background(), body); err != nil {
			t.Fatal(err)
		}
	}
	if len(w.rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(w.rows))
	}
	row := w.rows[0]
	if row.IssueID.Hex() != event.IssueID || row.NewStatus != models.Assigned || row.OldStatus == nil || *row.OldStatus != models.Reported {
		t.Errorf("row = %+v", row)
	}
	if row.ChangedBy == nil || row.ChangedBy.Hex() != event.ActorID {
		t.Errorf("changed_by = %v", row.ChangedBy)
	}
	if got := row.CreatedAt.UnixMilli(); got != event.Timestamp {
		t.Errorf("created_at = %d ms, want %d", got, event.Timestamp)
	}
}

func TestHandleDropsMalformedEvents(t *testing.T) {
	w := newMemoryWriter()
	r := NewRecorder(w)

	bodies := [][]byte{
		[]byte("{not json"),
		[]byte(`{"issue_id":"nope","new_status":"Resolved"}`),
		[]byte(`{"issue_id":"` + primitive.NewObjectID().Hex() + `","new_status":"Closed"}`),
	}
	for _, body := range bodies {
		if err := r.Handle(context.Background(), body); err != nil {
			t.Errorf("%s: %v", body, err)
		}
	}
	if len(w.rows) != 0 {
		t.Errorf("rows = %d", len(w.rows))
	}
}

func TestProcessRetriesThenAcks(t *testing.T) {
	w := newMemoryWriter()
	w.failures = 2
	r := NewRecorder(w)
	r.delay = time.Millisecond

	body, _ := statusEvent(t)
	acker := &fakeAcker{}
	r.Process(context.Background(), amqp.Delivery{Acknowledger: acker, Body: body})

	if !acker.acked || acker.nacked {
		t.Fatalf("acker = %+v", acker)
	}
	if len(w.rows) != 1 {
		t.Errorf("rows = %d", len(w.rows))
	}
}

func TestProcessDeadLettersAfterRetries(t *testing.T) {
	w := newMemoryWriter()
	w.failures = 10
	r := NewRecorder(w)
	r.delay = time.Millisecond

	body, _ := statusEvent(t)
	acker := &fakeAcker{}
	r.Process(context.Background(), amqp.Delivery{Acknowledger: acker, Body: body})

	if !acker.nacked || acker.requeued || acker.acked {
		t.Fatalf("acker = %+v", acker)
	}
}
