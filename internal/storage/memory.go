package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventhub-ticketing/internal/models"
)

// InMemoryStore backs development runs and tests. Values are copied in and
// out so callers never share mutable state with the store.
type InMemoryStore struct {
	events      map[string]models.Event
	ticketTypes map[string]models.TicketType
	attendees   map[string]models.Attendee
	orders      map[string]models.Order
	tickets     map[string]models.Ticket
	logs        []models.CheckInLogEntry
	mutex       sync.RWMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:      make(map[string]models.Event),
		ticketTypes: make(map[string]models.TicketType),
		attendees:   make(map[string]models.Attendee),
		orders:      make(map[string]models.Order),
		tickets:     make(map[string]models.Ticket),
	}
}

func (s *InMemoryStore) SaveEvent(_ context.Context, event *models.Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.events[event.ID] = *event
	return nil
}

func (s *InMemoryStore) GetEvent(_ context.Context, id string) (*models.Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	event, exists := s.events[id]
	if !exists {
		return nil, ErrEventNotFound
	}
	return &event, nil
}

func (s *InMemoryStore) SaveTicketType(_ context.Context, tt *models.TicketType) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ticketTypes[tt.ID] = *tt
	return nil
}

func (s *InMemoryStore) GetTicketType(_ context.Context, id string) (*models.TicketType, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tt, exists := s.ticketTypes[id]
	if !exists {
		return nil, ErrTicketTypeNotFound
	}
	return &tt, nil
}

func (s *InMemoryStore) SaveAttendee(_ context.Context, a *models.Attendee) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.attendees[a.ID] = *a
	return nil
}

func (s *InMemoryStore) GetAttendee(_ context.Context, id string) (*models.Attendee, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	a, exists := s.attendees[id]
	if !exists {
		return nil, ErrAttendeeNotFound
	}
	return &a, nil
}

func (s *InMemoryStore) SaveOrder(_ context.Context, order *models.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	o := *order
	o.Items = append([]models.OrderItem(nil), order.Items...)
	s.orders[o.ID] = o
	return nil
}

func (s *InMemoryStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, exists := s.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o, nil
}

func (s *InMemoryStore) ListOrdersByUser(_ context.Context, userID string, limit, offset int) ([]*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var orders []*models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			o := o
			orders = append(orders, &o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return page(orders, limit, offset), nil
}

func (s *InMemoryStore) MarkOrderTicketsIssued(_ context.Context, orderID string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	o, exists := s.orders[orderID]
	if !exists {
		return false, ErrOrderNotFound
	}
	if o.TicketsIssued {
		return false, nil
	}
	o.TicketsIssued = true
	s.orders[orderID] = o
	return true, nil
}

func (s *InMemoryStore) SaveTickets(_ context.Context, tickets []*models.Ticket) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	payloads := make(map[string]struct{}, len(s.tickets))
	for _, t := range s.tickets {
		payloads[t.QRCodeData] = struct{}{}
	}
	for _, t := range tickets {
		if _, exists := s.tickets[t.ID]; exists {
			return ErrDuplicateTicket
		}
		if _, exists := payloads[t.QRCodeData]; exists {
			return ErrDuplicateTicket
		}
		payloads[t.QRCodeData] = struct{}{}
	}
	for _, t := range tickets {
		s.tickets[t.ID] = *t
	}
	return nil
}

func (s *InMemoryStore) GetTicket(_ context.Context, id string) (*models.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, exists := s.tickets[id]
	if !exists {
		return nil, ErrTicketNotFound
	}
	return &t, nil
}

func (s *InMemoryStore) GetTicketForEvent(_ context.Context, ticketID, eventID string) (*models.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, exists := s.tickets[ticketID]
	if !exists || t.EventID != eventID {
		return nil, ErrTicketNotFound
	}
	return &t, nil
}

func (s *InMemoryStore) ListTicketsByOrder(_ context.Context, orderID string) ([]*models.Ticket, error) {
	return s.filterTickets(func(t *models.Ticket) bool { return t.OrderID == orderID }), nil
}

func (s *InMemoryStore) ListTicketsByUser(_ context.Context, userID string, limit, offset int) ([]*models.Ticket, error) {
	tickets := s.filterTickets(func(t *models.Ticket) bool { return t.UserID == userID })
	return page(tickets, limit, offset), nil
}

func (s *InMemoryStore) filterTickets(keep func(*models.Ticket) bool) []*models.Ticket {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.Ticket
	for _, t := range s.tickets {
		t := t
		if keep(&t) {
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *InMemoryStore) TransitionTicketToUsed(_ context.Context, ticketID, staffID string, at time.Time) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, exists := s.tickets[ticketID]
	if !exists {
		return false, ErrTicketNotFound
	}
	if t.Status != models.TicketValid {
		return false, nil
	}

	staff := staffID
	t.Status = models.TicketUsed
	t.CheckedInAt = &at
	t.CheckedInBy = &staff
	t.UpdatedAt = at
	s.tickets[ticketID] = t
	return true, nil
}

func (s *InMemoryStore) AppendCheckInLog(_ context.Context, entry *models.CheckInLogEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.logs = append(s.logs, *entry)
	return nil
}

func (s *InMemoryStore) ListCheckInLogs(_ context.Context, eventID string, limit int) ([]*models.CheckInLogEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.CheckInLogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].EventID != eventID {
			continue
		}
		entry := s.logs[i]
		out = append(out, &entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) HealthCheck(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
