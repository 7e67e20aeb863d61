package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for the scheduling core.
type SchedulingMetrics struct {
	bookingsTotal       *prometheus.CounterVec
	transitionsTotal    *prometheus.CounterVec
	slotConflictsTotal  prometheus.Counter
	notificationIntents prometheus.Counter
	availabilityChecks  *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicportal",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Bookings submitted, by path and outcome",
		}, []string{"path", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicportal",
			Subsystem: "scheduling",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions, by machine and outcome",
		}, []string{"machine", "outcome"}),
		slotConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicportal",
			Subsystem: "scheduling",
			Name:      "slot_conflicts_total",
			Help:      "Bookings rejected because the slot was already taken",
		}),
		notificationIntents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicportal",
			Subsystem: "scheduling",
			Name:      "notification_intents_total",
			Help:      "Notification intents emitted on status changes",
		}),
		availabilityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicportal",
			Subsystem: "scheduling",
			Name:      "availability_checks_total",
			Help:      "Availability queries, by result",
		}, []string{"available"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.transitionsTotal,
		m.slotConflictsTotal,
		m.notificationIntents,
		m.availabilityChecks,
	)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(path, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(path, outcome).Inc()
	if outcome == "slot_taken" {
		m.slotConflictsTotal.Inc()
	}
}

func (m *SchedulingMetrics) ObserveTransition(machine, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(machine, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveNotificationIntent() {
	if m == nil {
		return
	}
	m.notificationIntents.Inc()
}

func (m *SchedulingMetrics) ObserveAvailabilityCheck(available bool) {
	if m == nil {
		return
	}
	label := "false"
	if available {
		label = "true"
	}
	m.availabilityChecks.WithLabelValues(label).Inc()
}
