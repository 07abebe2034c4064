package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CheckInStatus string

const (
	CheckInValid             CheckInStatus = "VALID"
	CheckInParseError        CheckInStatus = "PARSE_ERROR"
	CheckInWrongEvent        CheckInStatus = "WRONG_EVENT"
	CheckInTicketNotFound    CheckInStatus = "TICKET_NOT_FOUND"
	CheckInAlreadyUsed       CheckInStatus = "ALREADY_USED"
	CheckInTicketCancelled   CheckInStatus = "TICKET_CANCELLED"
	CheckInTicketTransferred CheckInStatus = "TICKET_TRANSFERRED"
	CheckInInvalidSignature  CheckInStatus = "INVALID_SIGNATURE"
	CheckInEventNotStarted   CheckInStatus = "EVENT_NOT_STARTED"
	CheckInEventEnded        CheckInStatus = "EVENT_ENDED"

	// Outcomes written by the committer.
	CheckInCheckedIn CheckInStatus = "CHECKED_IN"
	CheckInConflict  CheckInStatus = "CHECK_IN_CONFLICT"
)

var checkInMessages = map[CheckInStatus]string{
	CheckInValid:             "Ticket is valid",
	CheckInParseError:        "QR code could not be read, please rescan",
	CheckInWrongEvent:        "Ticket is for a different event",
	CheckInTicketNotFound:    "Ticket not found for this event",
	CheckInAlreadyUsed:       "Ticket has already been checked in",
	CheckInTicketCancelled:   "Ticket has been cancelled",
	CheckInTicketTransferred: "Ticket has been transferred to another attendee",
	CheckInInvalidSignature:  "Ticket signature is invalid, possible forgery",
	CheckInEventNotStarted:   "Check-in has not opened yet",
	CheckInEventEnded:        "Event has ended",
	CheckInCheckedIn:         "Checked in",
	CheckInConflict:          "Ticket was checked in by another device moments ago",
}

func (s CheckInStatus) Message() string {
	if msg, ok := checkInMessages[s]; ok {
		return msg
	}
	return string(s)
}

// CheckInLogEntry is the append-only record of one scan attempt.
type CheckInLogEntry struct {
	bun.BaseModel `bun:"table:check_in_logs"`

	ID         string        `json:"id" bun:"id,pk,type:varchar(36)"`
	TicketID   *string       `json:"ticketId,omitempty" bun:"ticket_id,nullzero,type:varchar(36)"`
	EventID    string        `json:"eventId" bun:"event_id,notnull,type:varchar(36)"`
	StaffID    string        `json:"staffId" bun:"staff_id,notnull,type:varchar(36)"`
	Status     CheckInStatus `json:"status" bun:"status,notnull,type:varchar(32)"`
	Message    string        `json:"message" bun:"message"`
	DeviceInfo string        `json:"deviceInfo,omitempty" bun:"device_info"`
	CreatedAt  time.Time     `json:"createdAt" bun:"created_at,notnull"`
}

// CheckInEvent is published after every scan so downstream dashboards can follow the door.
type CheckInEvent struct {
	Type      string        `json:"type"`
	TicketID  string        `json:"ticketId,omitempty"`
	EventID   string        `json:"eventId"`
	StaffID   string        `json:"staffId"`
	Status    CheckInStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// TicketIssuedEvent is published once per order after its tickets are persisted.
type TicketIssuedEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"orderId"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	TicketIDs []string  `json:"ticketIds"`
	Timestamp time.Time `json:"timestamp"`
}
