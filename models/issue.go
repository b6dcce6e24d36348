package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Infrastructure IssueCategory = "Infrastructure & Maintenance"
	Safety         IssueCategory = "Safety & Security"
	Technology     IssueCategory = "WiFi & Technology"
	Cleanliness    IssueCategory = "Cleanliness & Hygiene"
	Transportation IssueCategory = "Transportation"
	Cafeteria      IssueCategory = "Cafeteria & Food Services"
	Library        IssueCategory = "Library & Academic Resources"
	Sports         IssueCategory = "Sports & Recreation"
	Other          IssueCategory = "Other"
)

// Categories lists the report form choices in display order.
var Categories = []IssueCategory{
	Infrastructure, Safety, Technology, Cleanliness, Transportation,
	Cafeteria, Library, Sports, Other,
}

func (c IssueCategory) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	Reported    IssueStatus = "Reported"
	UnderReview IssueStatus = "Under Review"
	Assigned    IssueStatus = "Assigned"
	InProgress  IssueStatus = "In Progress"
	Resolved    IssueStatus = "Resolved"
)

var Statuses = []IssueStatus{Reported, UnderReview, Assigned, InProgress, Resolved}

func (s IssueStatus) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// IssuePriority enum
type IssuePriority string

const (
	Low      IssuePriority = "Low"
	Medium   IssuePriority = "Medium"
	High     IssuePriority = "High"
	Critical IssuePriority = "Critical"
)

var Priorities = []IssuePriority{Low, Medium, High, Critical}

func (p IssuePriority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// DefaultLocation is stored when the reporter leaves location empty.
const DefaultLocation = "Not specified"

// Issue represents a campus problem reported by a user
type Issue struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description" json:"description"`
	Status       IssueStatus         `bson:"status" json:"status"`
	Priority     IssuePriority       `bson:"priority" json:"priority"`
	Category     IssueCategory       `bson:"category" json:"category"`
	Location     string              `bson:"location" json:"location"`
	ContactEmail *string             `bson:"contact_email,omitempty" json:"contact_email"`
	ContactPhone *string             `bson:"contact_phone,omitempty" json:"contact_phone"`
	Latitude     *float64            `bson:"latitude,omitempty" json:"latitude"`
	Longitude    *float64            `bson:"longitude,omitempty" json:"longitude"`
	ImageURL     *string             `bson:"image_url,omitempty" json:"image_url"`
	UpvoteCount  int64               `bson:"upvote_count" json:"upvote_count"`
	ReportedDate time.Time           `bson:"reported_date" json:"reported_date"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
	UserID       *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id"`
}

// HasCoordinates reports whether the issue carries a map position.
func (i *Issue) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// OwnedBy reports whether userID is the issue's owner. Issues without an
// owner belong to nobody.
func (i *Issue) OwnedBy(userID string) bool {
	return i.UserID != nil && userID != "" && i.UserID.Hex() == userID
}
