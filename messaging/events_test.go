package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestNewIssueEventStampsIDAndTime(t *testing.T) {
	before := time.Now().UnixMilli()
	a := NewIssueEvent("abc")
	b := NewIssueEvent("abc")
	if a.EventID == "" || a.EventID == b.EventID {
		t.Fatalf("event ids should be unique and non-empty: %q %q", a.EventID, b.EventID)
	}
	if a.Timestamp < before || a.Timestamp > time.Now().UnixMilli() {
		t.Fatalf("timestamp %d is not in unix milliseconds", a.Timestamp)
	}
}

func TestIssueEventOmitsUnusedFields(t *testing.T) {
	event := NewIssueEvent("abc")
	event.NewStatus = "Resolved"

	body, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["upvoted"]; ok {
		t.Error("upvoted should be omitted for a status event")
	}
	if decoded["new_status"] != "Resolved" {
		t.Errorf("new_status = %v", decoded["new_status"])
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), RoutingKeyIssueCreated, NewIssueEvent("x")); err != nil {
		t.Fatal(err)
	}
	p.Close()
}
