package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string    `json:"id" bun:"id,pk,type:varchar(36)"`
	OrganizerID string    `json:"organizerId" bun:"organizer_id,notnull,type:varchar(36)"`
	Title       string    `json:"title" bun:"title,notnull"`
	StartDate   time.Time `json:"startDate" bun:"start_date,notnull"`
	EndDate     time.Time `json:"endDate" bun:"end_date,notnull"`
	Status      string    `json:"status" bun:"status,notnull,type:varchar(20)"`
}

// Attendee is the profile slice the check-in desk is allowed to see.
type Attendee struct {
	bun.BaseModel `bun:"table:attendees"`

	ID    string `json:"id" bun:"id,pk,type:varchar(36)"`
	Name  string `json:"name" bun:"name,notnull"`
	Email string `json:"email" bun:"email,notnull"`
}
