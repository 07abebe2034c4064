package storage

import (
	"context"
	"errors"
	"time"

	"eventhub-ticketing/internal/models"
)

var (
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrAttendeeNotFound   = errors.New("attendee not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateTicket    = errors.New("ticket already exists")
)

// Store is the persistence port used by the ticketing services. Every
// implementation must make TransitionTicketToUsed a single compare-and-set.
type Store interface {
	SaveEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	SaveTicketType(ctx context.Context, tt *models.TicketType) error
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
	SaveAttendee(ctx context.Context, a *models.Attendee) error
	GetAttendee(ctx context.Context, id string) (*models.Attendee, error)

	SaveOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error)
	// MarkOrderTicketsIssued flips tickets_issued from false to true and
	// reports whether this call did it.
	MarkOrderTicketsIssued(ctx context.Context, orderID string) (bool, error)

	// SaveTickets persists all tickets or none of them.
	SaveTickets(ctx context.Context, tickets []*models.Ticket) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketForEvent(ctx context.Context, ticketID, eventID string) (*models.Ticket, error)
	ListTicketsByOrder(ctx context.Context, orderID string) ([]*models.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Ticket, error)
	// TransitionTicketToUsed sets status=used only if the ticket is currently
	// valid. It returns false, nil when the ticket was not valid.
	TransitionTicketToUsed(ctx context.Context, ticketID, staffID string, at time.Time) (bool, error)

	AppendCheckInLog(ctx context.Context, entry *models.CheckInLogEntry) error
	ListCheckInLogs(ctx context.Context, eventID string, limit int) ([]*models.CheckInLogEntry, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
)
