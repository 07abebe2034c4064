package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
)

// StripeVerifier confirms that a completed order was actually paid before
// tickets are minted for it.
type StripeVerifier struct {
	client *client.API
	log    *logger.Logger
}

func NewStripeVerifier(secretKey string, log *logger.Logger) (*StripeVerifier, error) {
	if secretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}
	return NewStripeVerifierWithClient(client.New(secretKey, nil), log), nil
}

func NewStripeVerifierWithClient(sc *client.API, log *logger.Logger) *StripeVerifier {
	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeVerifier{client: sc, log: log}
}

// VerifyOrderPayment checks the order's PaymentIntent: it must have
// succeeded, belong to this order and cover the order total.
func (s *StripeVerifier) VerifyOrderPayment(ctx context.Context, order *models.Order) error {
	if order.PaymentIntentID == "" {
		return fmt.Errorf("%w: order %s has no payment intent", ErrPaymentNotConfirmed, order.ID)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	pi, err := s.client.PaymentIntents.Get(order.PaymentIntentID, nil)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve payment intent %s: %v", order.PaymentIntentID, err))
		return fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: payment intent %s is %s", ErrPaymentNotConfirmed, pi.ID, pi.Status)
	}
	if owner, ok := pi.Metadata["order_id"]; ok && owner != order.ID {
		s.log.LogSecurity("PAYMENT_MISMATCH", fmt.Sprintf("payment intent %s belongs to order %s, not %s", pi.ID, owner, order.ID))
		return fmt.Errorf("%w: payment intent belongs to another order", ErrPaymentNotConfirmed)
	}
	want := int64(math.Round(order.Total * 100))
	if pi.AmountReceived < want {
		return fmt.Errorf("%w: received %d of %d", ErrPaymentNotConfirmed, pi.AmountReceived, want)
	}

	s.log.LogTicket("PAYMENT_OK", order.ID, fmt.Sprintf("payment intent %s succeeded", pi.ID))
	return nil
}
