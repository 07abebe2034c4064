package services

import (
	"context"
	"fmt"
	"time"

	"eventhub-ticketing/internal/kafka"
	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/monitoring"
)

const dryRunDevice = "dry-run"

// EventPublisher is the outbound side of Kafka.
type EventPublisher interface {
	PublishTicketIssued(event *models.TicketIssuedEvent) error
	PublishCheckIn(event *models.CheckInEvent) error
}

type ScanRequest struct {
	QRData     string
	EventID    string
	StaffID    string
	DeviceInfo string
	// DryRun validates without admitting. It is the manual "simulate scan"
	// path used at the desk and in development.
	DryRun bool
}

type CheckInStore interface {
	TicketReader
	TicketWriter
	ListCheckInLogs(ctx context.Context, eventID string, limit int) ([]*models.CheckInLogEntry, error)
}

// CheckInService runs one scan end to end: decide, commit, audit, report.
type CheckInService struct {
	validator *Validator
	committer *Committer
	store     CheckInStore
	publisher EventPublisher
	metrics   *monitoring.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewCheckInService(store CheckInStore, validator *Validator, committer *Committer, publisher EventPublisher, metrics *monitoring.Metrics, log *logger.Logger) *CheckInService {
	return &CheckInService{
		validator: validator,
		committer: committer,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Scan validates req and, when the ticket is admissible, commits the check-in.
// Exactly one audit entry is written per call that reaches a decision.
func (s *CheckInService) Scan(ctx context.Context, req ScanRequest) (*ValidationResult, error) {
	started := s.now()

	res, err := s.validator.Validate(ctx, req.QRData, req.EventID, started)
	if err != nil {
		s.metrics.TrackCheckIn("ERROR", "validate", s.now().Sub(started))
		return nil, err
	}

	if !res.Valid || req.DryRun {
		device := req.DeviceInfo
		if req.DryRun {
			device = dryRunDevice
			if req.DeviceInfo != "" {
				device += " " + req.DeviceInfo
			}
		}
		s.committer.audit(ctx, s.entryFor(req, res, device))
		s.finish(req, res, "validate", started)
		return res, nil
	}

	commit, err := s.committer.Commit(ctx, res.TicketID, req.EventID, req.StaffID, req.DeviceInfo)
	if err != nil {
		s.metrics.TrackCheckIn("ERROR", "commit", s.now().Sub(started))
		return nil, err
	}

	if !commit.Committed {
		// Another device won between validate and commit. Report what it
		// recorded so every loser sees the same checkedInAt.
		again, err := s.validator.Validate(ctx, req.QRData, req.EventID, s.now())
		if err != nil {
			return nil, err
		}
		s.finish(req, again, "commit", started)
		return again, nil
	}

	at := commit.CheckedInAt
	res.CheckedInAt = &at
	res.CheckedInBy = req.StaffID
	res.Message = models.CheckInCheckedIn.Message()
	s.finish(req, res, "commit", started)
	return res, nil
}

// History returns the most recent audit entries for an event.
func (s *CheckInService) History(ctx context.Context, eventID string, limit int) ([]*models.CheckInLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListCheckInLogs(ctx, eventID, limit)
}

func (s *CheckInService) entryFor(req ScanRequest, res *ValidationResult, device string) *models.CheckInLogEntry {
	entry := &models.CheckInLogEntry{
		EventID:    req.EventID,
		StaffID:    req.StaffID,
		Status:     res.Status,
		Message:    res.Message,
		DeviceInfo: device,
	}
	if res.TicketID != "" {
		id := res.TicketID
		entry.TicketID = &id
	}
	return entry
}

func (s *CheckInService) finish(req ScanRequest, res *ValidationResult, stage string, started time.Time) {
	s.metrics.TrackCheckIn(string(res.Status), stage, s.now().Sub(started))

	if s.publisher == nil || req.DryRun {
		return
	}
	eventType := kafka.EventCheckInRejected
	if res.Valid {
		eventType = kafka.EventTicketCheckedIn
	}
	err := s.publisher.PublishCheckIn(&models.CheckInEvent{
		Type:      eventType,
		TicketID:  res.TicketID,
		EventID:   req.EventID,
		StaffID:   req.StaffID,
		Status:    res.Status,
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("KAFKA", fmt.Sprintf("failed to publish check-in event for ticket %s: %v", res.TicketID, err))
	}
}

// Authorize checks actor may scan for, or read the door log of, eventID.
func (s *CheckInService) Authorize(ctx context.Context, eventID string, actor Actor) error {
	_, err := AuthorizeEvent(ctx, s.store, eventID, actor)
	return err
}
