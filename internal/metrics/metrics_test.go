package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/api/v1/rents", 200)
		ObserveListing("rents", time.Now())
	})

	before := testutil.ToFloat64(stockConflicts)
	IncStockConflict()
	assert.Equal(t, before+1, testutil.ToFloat64(stockConflicts))

	IncCommit("committed")
	assert.GreaterOrEqual(t, testutil.ToFloat64(rentalCommits.WithLabelValues("committed")), 1.0)

	IncPageOutOfRange("customers")
	assert.GreaterOrEqual(t, testutil.ToFloat64(pagesOutOfRange.WithLabelValues("customers")), 1.0)

	SetFailedNotifications(2)
	IncFailedNotifications()
	assert.Equal(t, 3.0, testutil.ToFloat64(failedNotifications))

	IncNotification("sent")
	assert.GreaterOrEqual(t, testutil.ToFloat64(notifications.WithLabelValues("sent")), 1.0)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "4xx", statusClass(409))
	assert.Equal(t, "5xx", statusClass(503))
}
