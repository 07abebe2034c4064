package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"eventhub-ticketing/internal/kafka"
	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/monitoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func saveOrder(t *testing.T, f *fixture, id string, status models.OrderStatus, total float64) *models.Order {
	t.Helper()
	order := &models.Order{
		ID: id, UserID: "usr-1", EventID: "evt-1", Status: status, Total: total,
		PaymentIntentID: "pi_" + id,
		Items:           []models.OrderItem{{TicketTypeID: "tt-vip", Quantity: 2}},
		CreatedAt:       eventStart.AddDate(0, -1, 0),
	}
	require.NoError(t, f.store.SaveOrder(context.Background(), order))
	return order
}

func newOrderService(f *fixture, payments PaymentVerifier, locker IssueLocker, pub EventPublisher) *OrderConfirmationService {
	return NewOrderConfirmationService(f.store, f.issuer, payments, locker, pub, monitoring.NewMetrics(), logger.Discard())
}

func TestIssueForPaidOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saveOrder(t, f, "ord-paid", models.OrderCompleted, 100)

	payments := new(MockPaymentVerifier)
	payments.On("VerifyOrderPayment", mock.Anything, mock.MatchedBy(func(o *models.Order) bool { return o.ID == "ord-paid" })).Return(nil).Once()

	locker := new(MockLocker)
	locker.On("Acquire", mock.Anything, "ord-paid", mock.AnythingOfType("string")).Return(true, nil).Once()
	locker.On("Release", mock.Anything, "ord-paid", mock.AnythingOfType("string")).Return(nil).Once()

	pub := new(MockPublisher)
	pub.On("PublishTicketIssued", mock.MatchedBy(func(e *models.TicketIssuedEvent) bool {
		return e.Type == kafka.EventTicketIssued && e.OrderID == "ord-paid" && len(e.TicketIDs) == 2
	})).Return(nil).Once()

	svc := newOrderService(f, payments, locker, pub)
	tickets, err := svc.IssueForOrder(ctx, "ord-paid")
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	order, err := f.store.GetOrder(ctx, "ord-paid")
	require.NoError(t, err)
	assert.True(t, order.TicketsIssued)

	payments.AssertExpectations(t)
	locker.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestIssueForOrderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saveOrder(t, f, "ord-free", models.OrderCompleted, 0)

	pub := new(MockPublisher)
	pub.On("PublishTicketIssued", mock.Anything).Return(nil).Once()
	svc := newOrderService(f, nil, nil, pub)

	first, err := svc.IssueForOrder(ctx, "ord-free")
	require.NoError(t, err)
	second, err := svc.IssueForOrder(ctx, "ord-free")
	require.NoError(t, err)

	require.Len(t, second, len(first))
	got := map[string]bool{}
	for _, ticket := range second {
		got[ticket.ID] = true
	}
	for _, ticket := range first {
		assert.True(t, got[ticket.ID])
	}

	all, err := f.store.ListTicketsByOrder(ctx, "ord-free")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	pub.AssertExpectations(t)
}

func TestIssueForOrderReusesOrphanedTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := saveOrder(t, f, "ord-crashed", models.OrderCompleted, 0)

	// A previous attempt saved tickets but never flagged the order.
	orphans, err := f.issuer.Issue(ctx, order)
	require.NoError(t, err)

	pub := new(MockPublisher)
	pub.On("PublishTicketIssued", mock.Anything).Return(nil).Once()
	svc := newOrderService(f, nil, nil, pub)

	tickets, err := svc.IssueForOrder(ctx, "ord-crashed")
	require.NoError(t, err)
	assert.ElementsMatch(t, ticketIDs(orphans), ticketIDs(tickets))
}

func TestIssueForOrderWithoutDistributedLockMintsOnce(t *testing.T) {
	const callers = 12
	f := newFixture(t)
	ctx := context.Background()
	saveOrder(t, f, "ord-race", models.OrderCompleted, 0)

	pub := new(MockPublisher)
	pub.On("PublishTicketIssued", mock.Anything).Return(nil).Once()
	svc := newOrderService(f, nil, nil, pub)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.IssueForOrder(ctx, "ord-race"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrIssueInProgress)
	}

	all, err := f.store.ListTicketsByOrder(ctx, "ord-race")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	pub.AssertExpectations(t)
}

func TestProcessLockerReleaseChecksOwner(t *testing.T) {
	ctx := context.Background()
	l := newProcessLocker()

	ok, err := l.Acquire(ctx, "ord-1", "owner-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Acquire(ctx, "ord-1", "owner-b")
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "ord-1", "owner-b"))
	ok, _ = l.Acquire(ctx, "ord-1", "owner-b")
	assert.False(t, ok, "a foreign release must not free the lock")

	require.NoError(t, l.Release(ctx, "ord-1", "owner-a"))
	ok, _ = l.Acquire(ctx, "ord-1", "owner-b")
	assert.True(t, ok)
}

func ticketIDs(tickets []*models.Ticket) []string {
	out := make([]string, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}

func TestIssueForOrderGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saveOrder(t, f, "ord-pending", models.OrderPending, 10)
	saveOrder(t, f, "ord-unpaid", models.OrderCompleted, 10)
	saveOrder(t, f, "ord-locked", models.OrderCompleted, 0)

	payments := new(MockPaymentVerifier)
	payments.On("VerifyOrderPayment", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: requires_payment_method", ErrPaymentNotConfirmed))

	locker := new(MockLocker)
	locker.On("Acquire", mock.Anything, "ord-locked", mock.Anything).Return(false, nil)

	svc := newOrderService(f, payments, locker, new(MockPublisher))

	_, err := svc.IssueForOrder(ctx, "ord-pending")
	assert.ErrorIs(t, err, ErrOrderNotCompleted)

	_, err = svc.IssueForOrder(ctx, "ord-unpaid")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)

	_, err = svc.IssueForOrder(ctx, "ord-locked")
	assert.ErrorIs(t, err, ErrIssueInProgress)

	for _, id := range []string{"ord-pending", "ord-unpaid", "ord-locked"} {
		tickets, err := f.store.ListTicketsByOrder(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, tickets, id)
	}
}

func TestHandleOrderCompletedSwallowsPermanentFailures(t *testing.T) {
	f := newFixture(t)
	saveOrder(t, f, "ord-pending", models.OrderPending, 0)
	svc := newOrderService(f, nil, nil, new(MockPublisher))

	err := svc.HandleOrderCompleted(context.Background(), &models.OrderCompletedEvent{OrderID: "ord-pending"})
	assert.NoError(t, err)

	err = svc.HandleOrderCompleted(context.Background(), &models.OrderCompletedEvent{OrderID: "ord-missing"})
	assert.Error(t, err)
}

func TestAuthorizeOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saveOrder(t, f, "ord-1", models.OrderCompleted, 0)
	svc := newOrderService(f, nil, nil, nil)

	assert.NoError(t, svc.AuthorizeOrder(ctx, "ord-1", Actor{UserID: "org-1", Role: RoleOrganizer}))
	assert.NoError(t, svc.AuthorizeOrder(ctx, "ord-1", Actor{UserID: "root", Role: RoleAdmin}))
	assert.ErrorIs(t, svc.AuthorizeOrder(ctx, "ord-1", Actor{UserID: "org-2", Role: RoleOrganizer}), ErrForbidden)
	assert.ErrorIs(t, svc.AuthorizeOrder(ctx, "ord-1", Actor{UserID: "s", Role: RoleStaff}), ErrForbidden)
}
