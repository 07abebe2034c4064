package services

import (
	"context"
	"fmt"

	"eventhub-ticketing/internal/models"
)

const (
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
	RoleOrganizer = "organizer"
	RoleAttendee  = "attendee"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   string
}

type EventReader interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

// AuthorizeEvent allows admins and door staff on any event, and organizers on
// events they own.
func AuthorizeEvent(ctx context.Context, events EventReader, eventID string, actor Actor) (*models.Event, error) {
	event, err := events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case RoleAdmin, RoleStaff:
		return event, nil
	case RoleOrganizer:
		if event.OrganizerID == actor.UserID {
			return event, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on event %s", ErrForbidden, actor.UserID, eventID)
}
