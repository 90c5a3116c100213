package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	now := time.Unix(1_760_000_000, 0)

	m.RunFinished("users", OutcomeSuccess, now)
	m.UserClassified("INACTIVE")
	m.UserClassified("INACTIVE")
	m.ActionFinished("suspend", "SUCCEEDED")
	m.GroupChecked(true)
	m.GroupChecked(false)
	m.CheckpointIndex("groups", 500)

	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("users", OutcomeSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.usersClassified.WithLabelValues("INACTIVE")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.actions.WithLabelValues("suspend", "SUCCEEDED")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.groupsChecked), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.groupsFlagged), 0)
	assert.InDelta(t, 500, testutil.ToFloat64(m.checkpointIndex.WithLabelValues("groups")), 0)
	assert.InDelta(t, float64(now.Unix()), testutil.ToFloat64(m.lastRun.WithLabelValues("users")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunFinished("users", OutcomeFailed, time.Now())
		m.UserClassified("ACTIVE")
		m.ActionFinished("suspend", "FAILED")
		m.GroupChecked(true)
		m.CheckpointIndex("groups", 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RunFinished("groups", OutcomePartial, time.Now())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `gwaudit_runs_total{audit="groups",outcome="partial"} 1`))
}
