package messaging

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	ExchangeName = "campusfix.issues"

	RoutingKeyIssueCreated    = "issue.created"
	RoutingKeyStatusUpdated   = "issue.status.updated"
	RoutingKeyIssueDeleted    = "issue.deleted"
	RoutingKeyUpvoteToggled   = "issue.upvote.toggled"
	RoutingKeyResponseAdded   = "issue.response.added"
	StatusHistoryQueue        = "issue.status_history"
	StatusHistoryDLQ          = "issue.status_history.dlq"
	DeadLetterExchange        = "campusfix.issues.dlx"
	statusHistoryDLQRouteName = "dlq.status_history"
)

// IssueEvent is the single envelope carried on the issues exchange. Fields
// that do not apply to an event type are left empty.
type IssueEvent struct {
	EventID    string `json:"event_id"`
	IssueID    string `json:"issue_id"`
	IssueTitle string `json:"issue_title,omitempty"`
	Category   string `json:"category,omitempty"`
	ReporterID string `json:"reporter_id,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	ActorAdmin bool   `json:"actor_admin,omitempty"`
	OldStatus  string `json:"old_status,omitempty"`
	NewStatus  string `json:"new_status,omitempty"`
	Upvoted    *bool  `json:"upvoted,omitempty"`
	Upvotes    int64  `json:"upvotes,omitempty"`
	Response   string `json:"response_type,omitempty"`
	Timestamp  int64  `json:"timestamp"` // unix milliseconds
}

// NewIssueEvent stamps a fresh event id and the current time.
func NewIssueEvent(issueID string) IssueEvent {
	return IssueEvent{
		EventID:   uuid.NewString(),
		IssueID:   issueID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Publisher sends issue events to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event IssueEvent) error
	Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, IssueEvent) error { return nil }
func (NopPublisher) Close()                                            {}

// PublishAsync publishes without blocking the caller; failures are logged.
func PublishAsync(p Publisher, routingKey string, event IssueEvent) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, routingKey, event); err != nil {
			log.Printf("messaging: publish %s for issue %s: %v", routingKey, event.IssueID, err)
		}
	}()
}
