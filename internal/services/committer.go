package services

import (
	"context"
	"fmt"
	"time"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"

	"github.com/google/uuid"
)

// TicketWriter is the write side of storage the committer needs.
type TicketWriter interface {
	TransitionTicketToUsed(ctx context.Context, ticketID, staffID string, at time.Time) (bool, error)
	AppendCheckInLog(ctx context.Context, entry *models.CheckInLogEntry) error
}

type CommitResult struct {
	Committed   bool
	Status      models.CheckInStatus
	CheckedInAt time.Time
}

// Committer turns a validated scan into exactly one valid -> used transition.
type Committer struct {
	store TicketWriter
	log   *logger.Logger
	now   func() time.Time
}

func NewCommitter(store TicketWriter, log *logger.Logger) *Committer {
	return &Committer{store: store, log: log, now: time.Now}
}

// Commit attempts the transition and writes one audit entry for the attempt.
// Losing the race is reported as CHECK_IN_CONFLICT, not as an error.
func (c *Committer) Commit(ctx context.Context, ticketID, eventID, staffID, deviceInfo string) (*CommitResult, error) {
	// Whole seconds survive every backend (MySQL DATETIME included), so the
	// winner and later ALREADY_USED answers report the same instant.
	at := c.now().UTC().Truncate(time.Second)

	won, err := c.store.TransitionTicketToUsed(ctx, ticketID, staffID, at)
	if err != nil {
		c.log.Error("CHECKIN", fmt.Sprintf("transition failed for ticket %s: %v", ticketID, err))
		return nil, fmt.Errorf("failed to commit check-in: %w", err)
	}

	res := &CommitResult{Committed: won, Status: models.CheckInCheckedIn, CheckedInAt: at}
	if !won {
		res.Status = models.CheckInConflict
		c.log.LogCheckIn("CONFLICT", ticketID, "lost compare-and-set to another scanner")
	} else {
		c.log.LogCheckIn("COMMIT", ticketID, "checked in by "+staffID)
	}

	c.audit(ctx, &models.CheckInLogEntry{
		TicketID:   &ticketID,
		EventID:    eventID,
		StaffID:    staffID,
		Status:     res.Status,
		Message:    res.Status.Message(),
		DeviceInfo: deviceInfo,
		CreatedAt:  at,
	})
	return res, nil
}

// audit appends entry. A failed append never undoes a transition that
// already happened.
func (c *Committer) audit(ctx context.Context, entry *models.CheckInLogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now().UTC().Truncate(time.Second)
	}
	if err := c.store.AppendCheckInLog(ctx, entry); err != nil {
		c.log.Error("CHECKIN", fmt.Sprintf("failed to append check-in log (status=%s): %v", entry.Status, err))
	}
}
