package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueLockAcquire(t *testing.T) {
	client, mock := redismock.NewClientMock()
	lock := NewIssueLock(client, 2*time.Minute)
	ctx := context.Background()

	mock.ExpectSetNX("ticket_issue_lock:ord-1", "worker-a", 2*time.Minute).SetVal(true)
	mock.ExpectSetNX("ticket_issue_lock:ord-1", "worker-b", 2*time.Minute).SetVal(false)

	ok, err := lock.Acquire(ctx, "ord-1", "worker-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "ord-1", "worker-b")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueLockAcquireError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	lock := NewIssueLock(client, time.Minute)

	mock.ExpectSetNX("ticket_issue_lock:ord-1", "w", time.Minute).SetErr(errors.New("connection refused"))

	_, err := lock.Acquire(context.Background(), "ord-1", "w")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueLockReleaseOnlyByOwner(t *testing.T) {
	client, mock := redismock.NewClientMock()
	lock := NewIssueLock(client, time.Minute)
	ctx := context.Background()

	mock.ExpectGet("ticket_issue_lock:ord-1").SetVal("worker-a")
	require.NoError(t, lock.Release(ctx, "ord-1", "worker-b"))

	mock.ExpectGet("ticket_issue_lock:ord-1").SetVal("worker-a")
	mock.ExpectDel("ticket_issue_lock:ord-1").SetVal(1)
	require.NoError(t, lock.Release(ctx, "ord-1", "worker-a"))

	mock.ExpectGet("ticket_issue_lock:ord-2").RedisNil()
	require.NoError(t, lock.Release(ctx, "ord-2", "worker-a"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
