package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	r := NewPrometheusRecorder()

	r.RecordRun(OutcomeSuccess, 2*time.Second)
	r.RecordRun(OutcomeWriteFailed, time.Second)
	r.RecordSnapshots(12, 3)
	r.RecordSnapshots(4, 1)
	r.RecordRejection("stale", 2)
	r.RecordRejection("stale", 1)
	r.RecordIndexSize(340)
	r.RecordIndexDegraded()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runTotal.WithLabelValues(OutcomeWriteFailed)))
	assert.Equal(t, 16.0, testutil.ToFloat64(r.candidatesTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.acceptedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rejectedTotal.WithLabelValues("stale")))
	assert.Equal(t, 340.0, testutil.ToFloat64(r.indexSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.indexDegradedTotal))
	assert.Greater(t, testutil.ToFloat64(r.lastSuccess), 0.0)
	assert.Equal(t, 2, testutil.CollectAndCount(r.runDurationSeconds))
}
