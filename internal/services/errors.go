package services

import "errors"

var (
	ErrOrderNotCompleted    = errors.New("order is not completed")
	ErrPaymentNotConfirmed  = errors.New("payment not confirmed")
	ErrTicketsAlreadyIssued = errors.New("tickets already issued for order")
	ErrIssueInProgress      = errors.New("ticket issuance already in progress for order")
	ErrEventMismatch        = errors.New("order and ticket type belong to different events")
	ErrForbidden            = errors.New("not allowed to act on this event")
)
