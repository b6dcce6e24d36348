package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResponseType enum
type ResponseType string

const (
	ResponseUpdate     ResponseType = "update"
	ResponseResolution ResponseType = "resolution"
	ResponseComment    ResponseType = "comment"
)

func (t ResponseType) Valid() bool {
	switch t {
	case ResponseUpdate, ResponseResolution, ResponseComment:
		return true
	}
	return false
}

// Response is a reply attached to an issue. Admin responses carry no author.
type Response struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	IssueID         primitive.ObjectID  `bson:"issue_id" json:"issue_id"`
	UserID          *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id"`
	ResponseText    string              `bson:"response_text" json:"response_text"`
	ResponseType    ResponseType        `bson:"response_type" json:"response_type"`
	IsAdminResponse bool                `bson:"is_admin_response" json:"is_admin_response"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}

// StatusHistory is one entry of an issue's status audit trail.
type StatusHistory struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	IssueID      primitive.ObjectID  `bson:"issue_id" json:"issue_id"`
	OldStatus    *IssueStatus        `bson:"old_status,omitempty" json:"old_status"`
	NewStatus    IssueStatus         `bson:"new_status" json:"new_status"`
	ChangedBy    *primitive.ObjectID `bson:"changed_by,omitempty" json:"changed_by"`
	ChangeReason *string             `bson:"change_reason,omitempty" json:"change_reason"`
	EventID      string              `bson:"event_id,omitempty" json:"-"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
}
