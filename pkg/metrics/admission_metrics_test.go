package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdmissionMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAdmissionMetricsWithRegisterer(reg)
	require.NotNil(t, m)

	m.RecordTick(0.01)
	m.RecordAdmitted("EVT001", 2)
	m.RecordAdmitted("EVT001", 0)
	m.RecordSchedulerError("EVT002")
	m.RecordLockAttempt("SUCCESS")
	m.RecordLockAttempt("LOCKED")
	m.RecordLockAttempt("LOCKED")
	m.RecordPayment("FAILED")
	m.SetPushConnections(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.schedulerTicks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.admitted.WithLabelValues("EVT001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.schedulerErrors.WithLabelValues("EVT002")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lockAttempts.WithLabelValues("LOCKED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payments.WithLabelValues("FAILED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pushConnections))
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewAdmissionMetricsWithRegisterer(reg)
	second := NewAdmissionMetricsWithRegisterer(reg)

	first.RecordQueueEntered("EVT001")
	second.RecordQueueEntered("EVT001")

	assert.Equal(t, 2.0, testutil.ToFloat64(first.queueEntered.WithLabelValues("EVT001")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *AdmissionMetrics
	assert.NotPanics(t, func() {
		m.RecordTick(1)
		m.RecordAdmitted("EVT001", 1)
		m.RecordSchedulerError("EVT001")
		m.RecordQueueEntered("EVT001")
		m.RecordQueueLeft("EVT001")
		m.RecordLockAttempt("SUCCESS")
		m.RecordPayment("SUCCESS")
		m.SetPushConnections(1)
		m.RecordPushDropped()
	})
}
