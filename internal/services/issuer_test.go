package services

import (
	"context"
	"testing"

	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/qrcode"
	"eventhub-ticketing/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueOneTicketPerUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := &models.Order{
		ID: "ord-1", UserID: "usr-1", EventID: "evt-1", Status: models.OrderCompleted,
		Items: []models.OrderItem{{TicketTypeID: "tt-vip", Quantity: 2}, {TicketTypeID: "tt-ga", Quantity: 3}},
	}
	tickets, err := f.issuer.Issue(ctx, order)
	require.NoError(t, err)
	require.Len(t, tickets, 5)

	ids := make(map[string]bool)
	byType := make(map[string]int)
	for _, ticket := range tickets {
		assert.False(t, ids[ticket.ID], "duplicate id %s", ticket.ID)
		ids[ticket.ID] = true
		byType[ticket.TicketTypeID]++

		assert.Equal(t, models.TicketValid, ticket.Status)
		assert.Equal(t, "ord-1", ticket.OrderID)
		assert.Equal(t, "usr-1", ticket.UserID)
		assert.True(t, f.signer.Verify(ticket.QRCodeData, ticket.Signature))
		assert.NotContains(t, ticket.QRCodeData, "usr-1")

		p, err := qrcode.Decode(ticket.QRCodeData)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, p.TicketID)
		assert.Equal(t, "evt-1", p.EventID)
	}
	assert.Equal(t, map[string]int{"tt-vip": 2, "tt-ga": 3}, byType)

	stored, err := f.store.ListTicketsByOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestIssueRejectsBadOrders(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		items   []models.OrderItem
		wantErr error
	}{
		{"no items", nil, ErrInvalidOrderItems},
		{"zero quantity", []models.OrderItem{{TicketTypeID: "tt-vip", Quantity: 0}}, ErrInvalidOrderItems},
		{"negative quantity", []models.OrderItem{{TicketTypeID: "tt-vip", Quantity: 2}, {TicketTypeID: "tt-ga", Quantity: -1}}, ErrInvalidOrderItems},
		{"unknown type", []models.OrderItem{{TicketTypeID: "tt-nope", Quantity: 1}}, storage.ErrTicketTypeNotFound},
		{"type from another event", []models.OrderItem{{TicketTypeID: "tt-other", Quantity: 1}}, ErrEventMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &models.Order{ID: "ord-" + tt.name, UserID: "usr-1", EventID: "evt-1", Status: models.OrderCompleted, Items: tt.items}
			_, err := f.issuer.Issue(context.Background(), order)
			assert.ErrorIs(t, err, tt.wantErr)

			stored, err := f.store.ListTicketsByOrder(context.Background(), order.ID)
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}
}

func TestIssueNeverEmitsDuplicateIDs(t *testing.T) {
	f := newFixture(t)
	f.issuer.newID = func() string { return "same-id" }

	order := &models.Order{
		ID: "ord-dup", UserID: "usr-1", EventID: "evt-1", Status: models.OrderCompleted,
		Items: []models.OrderItem{{TicketTypeID: "tt-vip", Quantity: 2}},
	}
	_, err := f.issuer.Issue(context.Background(), order)
	assert.ErrorIs(t, err, storage.ErrDuplicateTicket)

	_, err = f.store.GetTicket(context.Background(), "same-id")
	assert.ErrorIs(t, err, storage.ErrTicketNotFound)
}
