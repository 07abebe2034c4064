package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/qrcode"
	"eventhub-ticketing/internal/storage"
)

// AdmissionBuffer is how long before an event's start the doors open.
const AdmissionBuffer = 30 * time.Minute

// TicketReader is the read side of storage the validator needs.
type TicketReader interface {
	GetTicketForEvent(ctx context.Context, ticketID, eventID string) (*models.Ticket, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetTicketType(ctx context.Context, id string) (*models.TicketType, error)
	GetAttendee(ctx context.Context, id string) (*models.Attendee, error)
}

type AttendeeInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ValidationResult is the decision for one scan. Rejections are results,
// not errors.
type ValidationResult struct {
	Valid       bool
	Status      models.CheckInStatus
	Message     string
	TicketID    string
	EventID     string
	TicketType  string
	Attendee    *AttendeeInfo
	CheckedInAt *time.Time
	CheckedInBy string
	EventStart  *time.Time
}

func reject(status models.CheckInStatus) *ValidationResult {
	return &ValidationResult{Status: status, Message: status.Message()}
}

type Validator struct {
	store  TicketReader
	signer *qrcode.Signer
	log    *logger.Logger
}

func NewValidator(store TicketReader, signer *qrcode.Signer, log *logger.Logger) *Validator {
	return &Validator{store: store, signer: signer, log: log}
}

// Validate decides whether raw admits its holder to eventID at now. It never
// writes. The first failing check wins.
func (v *Validator) Validate(ctx context.Context, raw, eventID string, now time.Time) (*ValidationResult, error) {
	payload, err := qrcode.Decode(raw)
	if err != nil {
		v.log.LogCheckIn("REJECT", "-", "PARSE_ERROR: "+err.Error())
		return reject(models.CheckInParseError), nil
	}

	if payload.EventID != eventID {
		v.log.LogCheckIn("REJECT", payload.TicketID, fmt.Sprintf("WRONG_EVENT: payload event %s, scanning %s", payload.EventID, eventID))
		res := reject(models.CheckInWrongEvent)
		res.TicketID = payload.TicketID
		res.EventID = payload.EventID
		return res, nil
	}

	ticket, err := v.store.GetTicketForEvent(ctx, payload.TicketID, eventID)
	if errors.Is(err, storage.ErrTicketNotFound) {
		v.log.LogCheckIn("REJECT", payload.TicketID, "TICKET_NOT_FOUND")
		res := reject(models.CheckInTicketNotFound)
		res.EventID = eventID
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	switch ticket.Status {
	case models.TicketUsed:
		res := v.describe(ctx, reject(models.CheckInAlreadyUsed), ticket)
		res.CheckedInAt = ticket.CheckedInAt
		if ticket.CheckedInBy != nil {
			res.CheckedInBy = *ticket.CheckedInBy
		}
		v.log.LogCheckIn("REJECT", ticket.ID, "ALREADY_USED")
		return res, nil
	case models.TicketCancelled:
		v.log.LogCheckIn("REJECT", ticket.ID, "TICKET_CANCELLED")
		return v.identify(reject(models.CheckInTicketCancelled), ticket), nil
	case models.TicketTransferred:
		v.log.LogCheckIn("REJECT", ticket.ID, "TICKET_TRANSFERRED")
		return v.identify(reject(models.CheckInTicketTransferred), ticket), nil
	}

	if !v.signatureMatches(strings.TrimSpace(raw), ticket) {
		v.log.LogSecurity("INVALID_SIGNATURE", fmt.Sprintf("ticket %s presented with a bad signature", ticket.ID))
		return v.identify(reject(models.CheckInInvalidSignature), ticket), nil
	}

	event, err := v.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}

	opens := event.StartDate.Add(-AdmissionBuffer)
	if now.Before(opens) {
		res := v.identify(reject(models.CheckInEventNotStarted), ticket)
		start := event.StartDate
		res.EventStart = &start
		v.log.LogCheckIn("REJECT", ticket.ID, "EVENT_NOT_STARTED")
		return res, nil
	}
	if now.After(event.EndDate) {
		v.log.LogCheckIn("REJECT", ticket.ID, "EVENT_ENDED")
		return v.identify(reject(models.CheckInEventEnded), ticket), nil
	}

	res := v.describe(ctx, &ValidationResult{
		Valid:   true,
		Status:  models.CheckInValid,
		Message: models.CheckInValid.Message(),
	}, ticket)
	v.log.LogCheckIn("VALID", ticket.ID, "ticket admissible")
	return res, nil
}

// signatureMatches checks the HMAC first and then, for tickets minted before
// signing existed or were signed under a rotated secret, an exact match on
// the stored payload.
// TODO: drop the stored-payload fallback once pre-signing tickets have all expired.
func (v *Validator) signatureMatches(raw string, ticket *models.Ticket) bool {
	if ticket.Signature != "" && v.signer.Verify(raw, ticket.Signature) {
		return true
	}
	if ticket.QRCodeData != "" && ticket.QRCodeData == raw {
		v.log.Warn("CHECKIN", fmt.Sprintf("ticket %s accepted through legacy payload match", ticket.ID))
		return true
	}
	return false
}

func (v *Validator) identify(res *ValidationResult, ticket *models.Ticket) *ValidationResult {
	res.TicketID = ticket.ID
	res.EventID = ticket.EventID
	return res
}

// describe adds what the door staff see on screen. Missing profile rows are
// not fatal to a scan.
func (v *Validator) describe(ctx context.Context, res *ValidationResult, ticket *models.Ticket) *ValidationResult {
	v.identify(res, ticket)

	if tt, err := v.store.GetTicketType(ctx, ticket.TicketTypeID); err == nil {
		res.TicketType = tt.Name
	} else if !errors.Is(err, storage.ErrTicketTypeNotFound) {
		v.log.Warn("CHECKIN", fmt.Sprintf("ticket type lookup for %s failed: %v", ticket.ID, err))
	}

	if a, err := v.store.GetAttendee(ctx, ticket.UserID); err == nil {
		res.Attendee = &AttendeeInfo{Name: a.Name, Email: a.Email}
	} else if !errors.Is(err, storage.ErrAttendeeNotFound) {
		v.log.Warn("CHECKIN", fmt.Sprintf("attendee lookup for %s failed: %v", ticket.ID, err))
	}
	return res
}
