package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID              string      `json:"id" bun:"id,pk,type:varchar(36)"`
	UserID          string      `json:"userId" bun:"user_id,notnull,type:varchar(36)"`
	EventID         string      `json:"eventId" bun:"event_id,notnull,type:varchar(36)"`
	Status          OrderStatus `json:"status" bun:"status,notnull,type:varchar(20)"`
	Total           float64     `json:"total" bun:"total,notnull"`
	PaymentIntentID string      `json:"paymentIntentId,omitempty" bun:"payment_intent_id"`
	Items           []OrderItem `json:"items" bun:"items,type:json"`
	TicketsIssued   bool        `json:"ticketsIssued" bun:"tickets_issued,notnull"`
	CreatedAt       time.Time   `json:"createdAt" bun:"created_at,notnull"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty" bun:"completed_at,nullzero"`
}

// OrderItem is one line of an order: a ticket tier and how many were bought.
type OrderItem struct {
	TicketTypeID string `json:"ticketTypeId"`
	Quantity     int    `json:"quantity"`
}

func (o *Order) TicketCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// OrderCompletedEvent is what checkout publishes once an order is paid (or free).
type OrderCompletedEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"orderId"`
	Timestamp time.Time `json:"timestamp"`
}
