package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"
	"eventhub-ticketing/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAuditStore struct {
	*storage.InMemoryStore
}

func (s failingAuditStore) AppendCheckInLog(context.Context, *models.CheckInLogEntry) error {
	return errors.New("audit table unavailable")
}

func countStatuses(entries []*models.CheckInLogEntry) map[models.CheckInStatus]int {
	out := make(map[models.CheckInStatus]int)
	for _, e := range entries {
		out[e.Status]++
	}
	return out
}

func TestCommitTransitionsAndAudits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.issue(t, "evt-1", "tt-vip", 1)[0]

	res, err := f.committer.Commit(ctx, ticket.ID, "evt-1", "staff-1", "gate-a")
	require.NoError(t, err)
	assert.True(t, res.Committed)
	assert.Equal(t, models.CheckInCheckedIn, res.Status)

	stored, err := f.store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, stored.Status)
	require.NotNil(t, stored.CheckedInBy)
	assert.Equal(t, "staff-1", *stored.CheckedInBy)

	logs, err := f.store.ListCheckInLogs(ctx, "evt-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CheckInCheckedIn, logs[0].Status)
	assert.Equal(t, "gate-a", logs[0].DeviceInfo)
	require.NotNil(t, logs[0].TicketID)
	assert.Equal(t, ticket.ID, *logs[0].TicketID)
	assert.NotEmpty(t, logs[0].ID)
}

func TestCommitRetryReportsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.issue(t, "evt-1", "tt-vip", 1)[0]

	first, err := f.committer.Commit(ctx, ticket.ID, "evt-1", "staff-1", "")
	require.NoError(t, err)
	second, err := f.committer.Commit(ctx, ticket.ID, "evt-1", "staff-1", "")
	require.NoError(t, err)

	assert.True(t, first.Committed)
	assert.False(t, second.Committed)
	assert.Equal(t, models.CheckInConflict, second.Status)

	stored, err := f.store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, first.CheckedInAt.Equal(*stored.CheckedInAt), "retry must not move the check-in time")
}

func TestCommitExactlyOnceUnderConcurrency(t *testing.T) {
	const scanners = 24

	f := newFixture(t)
	ctx := context.Background()
	ticket := f.issue(t, "evt-1", "tt-vip", 1)[0]

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		start = make(chan struct{})
	)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := f.committer.Commit(ctx, ticket.ID, "evt-1", fmt.Sprintf("staff-%d", i), "")
			if !assert.NoError(t, err) {
				return
			}
			if res.Committed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)

	logs, err := f.store.ListCheckInLogs(ctx, "evt-1", 0)
	require.NoError(t, err)
	assert.Len(t, logs, scanners)
	counts := countStatuses(logs)
	assert.Equal(t, 1, counts[models.CheckInCheckedIn])
	assert.Equal(t, scanners-1, counts[models.CheckInConflict])
}

func TestCommitSurvivesAuditFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.issue(t, "evt-1", "tt-vip", 1)[0]

	c := NewCommitter(failingAuditStore{f.store}, logger.Discard())
	res, err := c.Commit(ctx, ticket.ID, "evt-1", "staff-1", "")
	require.NoError(t, err)
	assert.True(t, res.Committed)

	stored, err := f.store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, stored.Status)
}

func TestCommitUnknownTicketIsAnError(t *testing.T) {
	f := newFixture(t)

	_, err := f.committer.Commit(context.Background(), "missing", "evt-1", "staff-1", "")
	assert.ErrorIs(t, err, storage.ErrTicketNotFound)
}

func TestCommitTimestampMatchesStoredPrecision(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()

	store, err := storage.NewSQLiteStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ticket := &models.Ticket{
		ID: uuid.NewString(), EventID: "evt-1", TicketTypeID: "tt-vip", OrderID: "ord-1", UserID: "usr-1",
		Status: models.TicketValid, QRCodeData: "evt-1:" + uuid.NewString(),
		CreatedAt: eventStart.Add(-time.Hour), UpdatedAt: eventStart.Add(-time.Hour),
	}
	require.NoError(t, store.SaveTickets(ctx, []*models.Ticket{ticket}))

	committer := NewCommitter(store, log)
	committer.now = func() time.Time { return eventStart.Add(15*time.Second + 17019723*time.Nanosecond) }

	res, err := committer.Commit(ctx, ticket.ID, "evt-1", "staff-1", "gate-a")
	require.NoError(t, err)
	require.True(t, res.Committed)
	assert.Equal(t, eventStart.Add(15*time.Second), res.CheckedInAt)

	stored, err := store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CheckedInAt)
	assert.True(t, res.CheckedInAt.Equal(*stored.CheckedInAt), "reported %s, stored %s", res.CheckedInAt, stored.CheckedInAt)
}
