package services

import (
	"context"
	"fmt"

	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/qrcode"
)

type TicketQueryStore interface {
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Ticket, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

// TicketService serves ticket lookups to holders and event staff.
type TicketService struct {
	store TicketQueryStore
}

func NewTicketService(store TicketQueryStore) *TicketService {
	return &TicketService{store: store}
}

// Get returns the ticket if actor holds it or may work the door of its event.
func (s *TicketService) Get(ctx context.Context, ticketID string, actor Actor) (*models.Ticket, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID == actor.UserID {
		return ticket, nil
	}
	if _, err := AuthorizeEvent(ctx, s.store, ticket.EventID, actor); err != nil {
		return nil, err
	}
	return ticket, nil
}

// QRCode renders the ticket's payload for its holder only.
func (s *TicketService) QRCode(ctx context.Context, ticketID string, actor Actor, size int) ([]byte, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: ticket %s", ErrForbidden, ticketID)
	}
	if size <= 0 || size > 1024 {
		size = qrcode.DefaultImageSize
	}
	return qrcode.RenderPNG(ticket.QRCodeData, size)
}

func (s *TicketService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Ticket, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTicketsByUser(ctx, userID, limit, offset)
}
