package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.ObserveBooking("clinic", "created")
	m.ObserveBooking("clinic", "slot_taken")
	m.ObserveTransition("mobile", "confirmed")
	m.ObserveNotificationIntent()
	m.ObserveAvailabilityCheck(true)
	m.ObserveAvailabilityCheck(false)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	if got := counterValue(families, "clinicportal_scheduling_slot_conflicts_total"); got != 1 {
		t.Errorf("slot conflicts = %v, want 1", got)
	}
	if got := counterValue(families, "clinicportal_scheduling_notification_intents_total"); got != 1 {
		t.Errorf("notification intents = %v, want 1", got)
	}
}

func TestSchedulingMetricsNilSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveBooking("clinic", "created")
	m.ObserveTransition("clinic", "completed")
	m.ObserveNotificationIntent()
	m.ObserveAvailabilityCheck(true)
}

func counterValue(families []*dto.MetricFamily, name string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	return -1
}
