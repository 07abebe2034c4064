package services

import (
	"context"
	"testing"
	"time"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/qrcode"
	"eventhub-ticketing/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret-0123456789abcdef"

var eventStart = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	store     *storage.InMemoryStore
	signer    *qrcode.Signer
	validator *Validator
	committer *Committer
	issuer    *Issuer
	event     *models.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()

	signer, err := qrcode.NewSigner(testSecret)
	require.NoError(t, err)

	store := storage.NewInMemoryStore()
	event := &models.Event{
		ID:          "evt-1",
		OrganizerID: "org-1",
		Title:       "Summer Launch",
		StartDate:   eventStart,
		EndDate:     eventStart.Add(2 * time.Hour),
		Status:      "published",
	}
	require.NoError(t, store.SaveEvent(ctx, event))
	require.NoError(t, store.SaveEvent(ctx, &models.Event{
		ID: "evt-2", OrganizerID: "org-2", Title: "Other Show",
		StartDate: eventStart, EndDate: eventStart.Add(3 * time.Hour), Status: "published",
	}))
	require.NoError(t, store.SaveTicketType(ctx, &models.TicketType{ID: "tt-vip", EventID: "evt-1", Name: "VIP", Price: 50, Quantity: 100}))
	require.NoError(t, store.SaveTicketType(ctx, &models.TicketType{ID: "tt-ga", EventID: "evt-1", Name: "General Admission", Price: 0, Quantity: 500}))
	require.NoError(t, store.SaveTicketType(ctx, &models.TicketType{ID: "tt-other", EventID: "evt-2", Name: "Floor", Price: 20, Quantity: 50}))
	require.NoError(t, store.SaveAttendee(ctx, &models.Attendee{ID: "usr-1", Name: "Ada Lovelace", Email: "ada@example.com"}))

	issuer := NewIssuer(store, signer, log)
	issuer.now = func() time.Time { return eventStart.Add(-48 * time.Hour) }

	return &fixture{
		store:     store,
		signer:    signer,
		validator: NewValidator(store, signer, log),
		committer: NewCommitter(store, log),
		issuer:    issuer,
		event:     event,
	}
}

// issue mints qty tickets of ticketTypeID through the issuer.
func (f *fixture) issue(t *testing.T, eventID, ticketTypeID string, qty int) []*models.Ticket {
	t.Helper()
	order := &models.Order{
		ID:      uuid.NewString(),
		UserID:  "usr-1",
		EventID: eventID,
		Status:  models.OrderCompleted,
		Items:   []models.OrderItem{{TicketTypeID: ticketTypeID, Quantity: qty}},
	}
	tickets, err := f.issuer.Issue(context.Background(), order)
	require.NoError(t, err)
	return tickets
}

// saveTicket stores a signed ticket in the given status without going
// through the issuer.
func (f *fixture) saveTicket(t *testing.T, status models.TicketStatus) *models.Ticket {
	t.Helper()
	id := uuid.NewString()
	payload, err := qrcode.Encode(qrcode.Payload{EventID: "evt-1", TicketID: id, IssuedAt: eventStart.Add(-time.Hour)})
	require.NoError(t, err)
	ticket := &models.Ticket{
		ID: id, EventID: "evt-1", TicketTypeID: "tt-vip", OrderID: "ord-x", UserID: "usr-1",
		Status: status, QRCodeData: payload, Signature: f.signer.Sign(payload),
		CreatedAt: eventStart.Add(-time.Hour), UpdatedAt: eventStart.Add(-time.Hour),
	}
	require.NoError(t, f.store.SaveTickets(context.Background(), []*models.Ticket{ticket}))
	return ticket
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTicketIssued(event *models.TicketIssuedEvent) error {
	return m.Called(event).Error(0)
}

func (m *MockPublisher) PublishCheckIn(event *models.CheckInEvent) error {
	return m.Called(event).Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, orderID, owner string) (bool, error) {
	args := m.Called(ctx, orderID, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) Release(ctx context.Context, orderID, owner string) error {
	return m.Called(ctx, orderID, owner).Error(0)
}

type MockPaymentVerifier struct {
	mock.Mock
}

func (m *MockPaymentVerifier) VerifyOrderPayment(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}
