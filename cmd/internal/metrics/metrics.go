package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medappointments/cmd/internal/domain/entity"
)

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	registry    *prometheus.Registry
	created     prometheus.Counter
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	deleted     prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medappointments",
			Name:      "appointments_created_total",
			Help:      "Appointment slots published by medical professionals.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medappointments",
			Name:      "appointment_transitions_total",
			Help:      "Appointment status transitions, by target status.",
		}, []string{"status"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medappointments",
			Name:      "appointment_conflicts_total",
			Help:      "Transitions rejected because the appointment was no longer in the expected status.",
		}, []string{"operation"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medappointments",
			Name:      "appointments_deleted_total",
			Help:      "Appointments removed by one of their parties.",
		}),
	}
	reg.MustRegister(
		m.created, m.transitions, m.conflicts, m.deleted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) AppointmentCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *Metrics) Transition(to entity.AppointmentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) Conflict(operation string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) AppointmentDeleted() {
	if m == nil {
		return
	}
	m.deleted.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
