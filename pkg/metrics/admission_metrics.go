package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AdmissionMetrics holds the collectors of the admission engine.
// A nil *AdmissionMetrics is valid and records nothing.
type AdmissionMetrics struct {
	// Scheduler
	schedulerTicks  prometheus.Counter
	admitted        *prometheus.CounterVec
	schedulerErrors *prometheus.CounterVec
	tickDuration    prometheus.Histogram

	// Queue
	queueEntered *prometheus.CounterVec
	queueLeft    *prometheus.CounterVec

	// Seat locks, by outcome
	lockAttempts *prometheus.CounterVec

	// Payments, by result
	payments *prometheus.CounterVec

	// Push connections
	pushConnections prometheus.Gauge
	pushDropped     prometheus.Counter
}

// NewAdmissionMetrics registers the collectors on the default registry
func NewAdmissionMetrics() *AdmissionMetrics {
	return NewAdmissionMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewAdmissionMetricsWithRegisterer registers the collectors on registerer; tests pass a fresh registry
func NewAdmissionMetricsWithRegisterer(registerer prometheus.Registerer) *AdmissionMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &AdmissionMetrics{
		schedulerTicks: registerCounter(registerer, prometheus.CounterOpts{
			Name: "turnstile_scheduler_ticks_total",
			Help: "Total number of admission scheduler ticks",
		}),
		admitted: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "turnstile_admitted_users_total",
			Help: "Total number of users admitted from the queue",
		}, []string{"event_id"}),
		schedulerErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "turnstile_scheduler_errors_total",
			Help: "Total number of per-event scheduler failures",
		}, []string{"event_id"}),
		tickDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "turnstile_scheduler_tick_duration_seconds",
			Help:    "Duration of one scheduler tick over all open events",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		queueEntered: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "turnstile_queue_entered_total",
			Help: "Total number of queue entries",
		}, []string{"event_id"}),
		queueLeft: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "turnstile_queue_left_total",
			Help: "Total number of explicit queue departures",
		}, []string{"event_id"}),
		lockAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "turnstile_seat_lock_attempts_total",
			Help: "Seat lock attempts by outcome",
		}, []string{"outcome"}),
		payments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "turnstile_payments_total",
			Help: "Payments by result",
		}, []string{"result"}),
		pushConnections: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "turnstile_push_connections",
			Help: "Number of registered push connections on this instance",
		}),
		pushDropped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "turnstile_push_dropped_total",
			Help: "Push events dropped because the connection was gone or full",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func (m *AdmissionMetrics) RecordTick(seconds float64) {
	if m == nil {
		return
	}
	m.schedulerTicks.Inc()
	m.tickDuration.Observe(seconds)
}

func (m *AdmissionMetrics) RecordAdmitted(eventID string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.admitted.WithLabelValues(eventID).Add(float64(n))
}

func (m *AdmissionMetrics) RecordSchedulerError(eventID string) {
	if m == nil {
		return
	}
	m.schedulerErrors.WithLabelValues(eventID).Inc()
}

func (m *AdmissionMetrics) RecordQueueEntered(eventID string) {
	if m == nil {
		return
	}
	m.queueEntered.WithLabelValues(eventID).Inc()
}

func (m *AdmissionMetrics) RecordQueueLeft(eventID string) {
	if m == nil {
		return
	}
	m.queueLeft.WithLabelValues(eventID).Inc()
}

// RecordLockAttempt counts a lock attempt; outcome is SUCCESS, ALREADY_OWNED or LOCKED
func (m *AdmissionMetrics) RecordLockAttempt(outcome string) {
	if m == nil {
		return
	}
	m.lockAttempts.WithLabelValues(outcome).Inc()
}

// RecordPayment counts a payment; result is SUCCESS or FAILED
func (m *AdmissionMetrics) RecordPayment(result string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(result).Inc()
}

func (m *AdmissionMetrics) SetPushConnections(n int) {
	if m == nil {
		return
	}
	m.pushConnections.Set(float64(n))
}

func (m *AdmissionMetrics) RecordPushDropped() {
	if m == nil {
		return
	}
	m.pushDropped.Inc()
}
