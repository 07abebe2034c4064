package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketValid       TicketStatus = "valid"
	TicketUsed        TicketStatus = "used"
	TicketCancelled   TicketStatus = "cancelled"
	TicketTransferred TicketStatus = "transferred"
)

// Ticket is one admission right for one event.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID           string       `json:"id" bun:"id,pk,type:varchar(36)"`
	EventID      string       `json:"eventId" bun:"event_id,notnull,type:varchar(36)"`
	TicketTypeID string       `json:"ticketTypeId" bun:"ticket_type_id,notnull,type:varchar(36)"`
	OrderID      string       `json:"orderId" bun:"order_id,notnull,type:varchar(36)"`
	UserID       string       `json:"userId" bun:"user_id,notnull,type:varchar(36)"`
	Status       TicketStatus `json:"status" bun:"status,notnull,type:varchar(20)"`
	QRCodeData   string       `json:"qrCodeData" bun:"qr_code_data,notnull,unique,type:varchar(255)"`
	Signature    string       `json:"-" bun:"signature,notnull,type:varchar(128)"`
	CheckedInAt  *time.Time   `json:"checkedInAt,omitempty" bun:"checked_in_at,nullzero"`
	CheckedInBy  *string      `json:"checkedInBy,omitempty" bun:"checked_in_by,nullzero,type:varchar(36)"`
	CreatedAt    time.Time    `json:"createdAt" bun:"created_at,notnull"`
	UpdatedAt    time.Time    `json:"updatedAt" bun:"updated_at,notnull"`
}

// TicketType is a tier of admission (general, VIP, ...) within an event.
type TicketType struct {
	bun.BaseModel `bun:"table:ticket_types"`

	ID       string  `json:"id" bun:"id,pk,type:varchar(36)"`
	EventID  string  `json:"eventId" bun:"event_id,notnull,type:varchar(36)"`
	Name     string  `json:"name" bun:"name,notnull"`
	Price    float64 `json:"price" bun:"price,notnull"`
	Quantity int     `json:"quantity" bun:"quantity,notnull"`
}
