package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eventhub-ticketing/internal/kafka"
	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/monitoring"

	"github.com/google/uuid"
)

// PaymentVerifier confirms an order was paid for.
type PaymentVerifier interface {
	VerifyOrderPayment(ctx context.Context, order *models.Order) error
}

// IssueLocker serialises issuance per order across replicas.
type IssueLocker interface {
	Acquire(ctx context.Context, orderID, owner string) (bool, error)
	Release(ctx context.Context, orderID, owner string) error
}

// processLocker is the single-replica IssueLocker used when no Redis lock is
// configured.
type processLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newProcessLocker() *processLocker {
	return &processLocker{held: make(map[string]string)}
}

func (l *processLocker) Acquire(_ context.Context, orderID, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[orderID]; taken {
		return false, nil
	}
	l.held[orderID] = owner
	return true, nil
}

func (l *processLocker) Release(_ context.Context, orderID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[orderID] == owner {
		delete(l.held, orderID)
	}
	return nil
}

type OrderStore interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	MarkOrderTicketsIssued(ctx context.Context, orderID string) (bool, error)
	ListTicketsByOrder(ctx context.Context, orderID string) ([]*models.Ticket, error)
}

// OrderConfirmationService mints tickets once per completed order, whether
// the trigger is the order.completed topic or a manual reissue request.
type OrderConfirmationService struct {
	store     OrderStore
	issuer    *Issuer
	payments  PaymentVerifier
	locker    IssueLocker
	publisher EventPublisher
	metrics   *monitoring.Metrics
	log       *logger.Logger
}

// NewOrderConfirmationService falls back to an in-process lock when locker is
// nil; that only serialises issuance within this replica.
func NewOrderConfirmationService(store OrderStore, issuer *Issuer, payments PaymentVerifier, locker IssueLocker, publisher EventPublisher, metrics *monitoring.Metrics, log *logger.Logger) *OrderConfirmationService {
	if locker == nil {
		log.Warn("TICKET", "no distributed issue lock configured, using in-process lock")
		locker = newProcessLocker()
	}
	return &OrderConfirmationService{
		store:     store,
		issuer:    issuer,
		payments:  payments,
		locker:    locker,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

// HandleOrderCompleted is the Kafka entry point.
func (s *OrderConfirmationService) HandleOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error {
	_, err := s.IssueForOrder(ctx, event.OrderID)
	if errors.Is(err, ErrOrderNotCompleted) || errors.Is(err, ErrPaymentNotConfirmed) {
		// Not retryable; leave it for a manual reissue.
		s.log.Warn("TICKET", fmt.Sprintf("skipping order %s: %v", event.OrderID, err))
		return nil
	}
	return err
}

// AuthorizeOrder lets admins and the organizer of the order's event trigger
// a reissue.
func (s *OrderConfirmationService) AuthorizeOrder(ctx context.Context, orderID string, actor Actor) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if actor.Role != RoleAdmin && actor.Role != RoleOrganizer {
		return fmt.Errorf("%w: role %s", ErrForbidden, actor.Role)
	}
	_, err = AuthorizeEvent(ctx, s.store, order.EventID, actor)
	return err
}

// IssueForOrder returns the order's tickets, minting them first if this is
// the first successful call for the order.
func (s *OrderConfirmationService) IssueForOrder(ctx context.Context, orderID string) ([]*models.Ticket, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderCompleted {
		s.metrics.TrackIssueFailure("not_completed")
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotCompleted, order.ID, order.Status)
	}
	if order.TicketsIssued {
		s.log.LogTicket("SKIP", order.ID, "tickets already issued")
		return s.store.ListTicketsByOrder(ctx, order.ID)
	}

	if order.Total > 0 {
		if s.payments == nil {
			s.log.Warn("TICKET", fmt.Sprintf("no payment verifier configured, trusting order %s", order.ID))
		} else if err := s.payments.VerifyOrderPayment(ctx, order); err != nil {
			s.metrics.TrackIssueFailure("payment")
			if errors.Is(err, ErrPaymentNotConfirmed) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to verify payment: %w", err)
		}
	}

	owner := uuid.NewString()
	ok, err := s.locker.Acquire(ctx, order.ID, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.TrackIssueFailure("locked")
		return nil, fmt.Errorf("%w: %s", ErrIssueInProgress, order.ID)
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), order.ID, owner); err != nil {
			s.log.Warn("REDIS", fmt.Sprintf("failed to release issue lock for %s: %v", order.ID, err))
		}
	}()

	// Re-read under the lock: a concurrent holder may have finished already.
	if order, err = s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	if order.TicketsIssued {
		return s.store.ListTicketsByOrder(ctx, order.ID)
	}

	// A replica that crashed after saving but before flagging the order
	// leaves tickets behind; reuse them.
	existing, err := s.store.ListTicketsByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	tickets := existing
	if len(existing) == 0 {
		tickets, err = s.issuer.Issue(ctx, order)
		if err != nil {
			s.metrics.TrackIssueFailure("issue")
			return nil, err
		}
		s.metrics.TrackIssued(len(tickets))
	}

	marked, err := s.store.MarkOrderTicketsIssued(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order issued: %w", err)
	}
	if !marked {
		s.log.LogTicket("SKIP", order.ID, ErrTicketsAlreadyIssued.Error())
		return tickets, nil
	}

	s.publishIssued(order, tickets)
	return tickets, nil
}

func (s *OrderConfirmationService) publishIssued(order *models.Order, tickets []*models.Ticket) {
	if s.publisher == nil {
		return
	}
	ids := make([]string, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	err := s.publisher.PublishTicketIssued(&models.TicketIssuedEvent{
		Type:      kafka.EventTicketIssued,
		OrderID:   order.ID,
		EventID:   order.EventID,
		UserID:    order.UserID,
		TicketIDs: ids,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("KAFKA", fmt.Sprintf("failed to publish ticket.issued for order %s: %v", order.ID, err))
	}
}
