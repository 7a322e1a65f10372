package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()

	m.EventAppended("add-item")
	m.EventAppended("add-item")
	m.EventApplied("add-item", ResultApplied, time.Millisecond)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.ActionRejected("conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsAppended.WithLabelValues("add-item")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsApplied.WithLabelValues("add-item", ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("conflict")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "jukebox_events_appended_total")
}
