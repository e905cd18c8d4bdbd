package observability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PagerNation/escalator/internal/observability"
)

func TestMetricsCountsRequestsAndErrors(t *testing.T) {
	metrics := observability.NewMetrics()

	metrics.RecordRequest("/tickets", "POST", 201, 5*time.Millisecond)
	metrics.RecordRequest("/tickets", "POST", 201, 7*time.Millisecond)
	metrics.RecordRequest("/tickets/:id", "GET", 404, time.Millisecond)
	metrics.RecordError("/tickets/:id", "GET", "NOT_FOUND")

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tickets|POST|201"])
	assert.Equal(t, int64(1), snap.Requests["/tickets/:id|GET|404"])
	assert.Equal(t, int64(1), snap.Errors["/tickets/:id|GET|NOT_FOUND"])
}

func TestSnapshotIsACopy(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.RecordRequest("/health/live", "GET", 200, 0)

	snap := metrics.Snapshot()
	snap.Requests["/health/live|GET|200"] = 99

	assert.Equal(t, int64(1), metrics.Snapshot().Requests["/health/live|GET|200"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *observability.Metrics
	metrics.RecordRequest("/tickets", "POST", 201, 0)
	metrics.RecordError("/tickets", "POST", "INTERNAL_ERROR")

	snap := metrics.Snapshot()
	assert.Empty(t, snap.Requests)
	assert.Empty(t, snap.Errors)
}
