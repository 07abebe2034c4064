package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackCheckIn(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(checkInAttempts.WithLabelValues("ALREADY_USED"))

	m.TrackCheckIn("ALREADY_USED", "validate", 3*time.Millisecond)
	m.TrackCheckIn("ALREADY_USED", "validate", 4*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(checkInAttempts.WithLabelValues("ALREADY_USED")))
}

func TestTrackIssued(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(ticketsIssued)

	m.TrackIssued(3)

	assert.Equal(t, before+3, testutil.ToFloat64(ticketsIssued))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TrackCheckIn("VALID", "commit", time.Millisecond)
		m.TrackIssued(1)
		m.TrackIssueFailure("lock")
	})
}
