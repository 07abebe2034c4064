package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/qrcode"
	"eventhub-ticketing/internal/storage"

	"github.com/google/uuid"
)

var ErrInvalidOrderItems = errors.New("order has no issuable items")

// TicketMinter is the storage the issuer needs.
type TicketMinter interface {
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
	SaveTickets(ctx context.Context, tickets []*models.Ticket) error
}

// Issuer mints one signed ticket per purchased unit.
type Issuer struct {
	store  TicketMinter
	signer *qrcode.Signer
	log    *logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewIssuer(store TicketMinter, signer *qrcode.Signer, log *logger.Logger) *Issuer {
	return &Issuer{store: store, signer: signer, log: log, now: time.Now, newID: uuid.NewString}
}

// Issue persists every ticket for order in one batch, or none.
func (i *Issuer) Issue(ctx context.Context, order *models.Order) ([]*models.Ticket, error) {
	if order.TicketCount() <= 0 {
		return nil, ErrInvalidOrderItems
	}

	now := i.now().UTC().Truncate(time.Second)
	seen := make(map[string]struct{}, order.TicketCount())
	tickets := make([]*models.Ticket, 0, order.TicketCount())

	for _, item := range order.Items {
		if item.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity for %s", ErrInvalidOrderItems, item.TicketTypeID)
		}
		if item.Quantity == 0 {
			continue
		}
		tt, err := i.store.GetTicketType(ctx, item.TicketTypeID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ticket type %s: %w", item.TicketTypeID, err)
		}
		if tt.EventID != order.EventID {
			return nil, fmt.Errorf("%w: ticket type %s belongs to event %s", ErrEventMismatch, tt.ID, tt.EventID)
		}

		for n := 0; n < item.Quantity; n++ {
			id := i.newID()
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: generated id %s twice", storage.ErrDuplicateTicket, id)
			}
			seen[id] = struct{}{}

			payload, err := qrcode.Encode(qrcode.Payload{EventID: order.EventID, TicketID: id, IssuedAt: now})
			if err != nil {
				return nil, fmt.Errorf("failed to encode ticket payload: %w", err)
			}
			tickets = append(tickets, &models.Ticket{
				ID:           id,
				EventID:      order.EventID,
				TicketTypeID: tt.ID,
				OrderID:      order.ID,
				UserID:       order.UserID,
				Status:       models.TicketValid,
				QRCodeData:   payload,
				Signature:    i.signer.Sign(payload),
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}
	}

	if err := i.store.SaveTickets(ctx, tickets); err != nil {
		i.log.Error("TICKET", fmt.Sprintf("failed to persist %d tickets for order %s: %v", len(tickets), order.ID, err))
		return nil, fmt.Errorf("failed to save tickets: %w", err)
	}

	i.log.LogTicket("ISSUED", order.ID, fmt.Sprintf("%d tickets for event %s", len(tickets), order.EventID))
	return tickets, nil
}
