// Package metrics exposes prometheus collectors for reminders, forms and
// notifications. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleet"

// Metrics groups the collectors of the maintenance service.
type Metrics struct {
	registry *prometheus.Registry

	remindersCreated   *prometheus.CounterVec
	remindersCompleted prometheus.Counter
	remindersDeleted   prometheus.Counter
	remindersOverdue   prometheus.Gauge
	remindersDueWeek   prometheus.Gauge
	formsCreated       prometheus.Counter
	formsFinalized     prometheus.Counter
	formsSigned        prometheus.Counter
	defectsRecorded    *prometheus.CounterVec
	notificationsSent  prometheus.Counter
	notificationErrors prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		remindersCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminders_created_total",
			Help: "Reminders created, by reminder type.",
		}, []string{"type"}),
		remindersCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminders_completed_total",
			Help: "Reminders marked completed.",
		}),
		remindersDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminders_deleted_total",
			Help: "Reminders deleted.",
		}),
		remindersOverdue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reminders_overdue",
			Help: "Open reminders past their due date at the last stats query.",
		}),
		remindersDueWeek: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reminders_due_this_week",
			Help: "Open reminders due within 7 days at the last stats query.",
		}),
		formsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pep_forms_created_total",
			Help: "Maintenance forms created.",
		}),
		formsFinalized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pep_forms_finalized_total",
			Help: "Maintenance forms moved to completed.",
		}),
		formsSigned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pep_forms_signed_total",
			Help: "Maintenance forms signed by a technician.",
		}),
		defectsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pep_defects_total",
			Help: "Defects on finalized forms, by severity.",
		}, []string{"severity"}),
		notificationsSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_sent_total",
			Help: "Reminder notifications published.",
		}),
		notificationErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "notification_errors_total",
			Help: "Reminder notifications that failed to publish.",
		}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ReminderCreated(reminderType string) {
	if m == nil {
		return
	}
	m.remindersCreated.WithLabelValues(reminderType).Inc()
}

func (m *Metrics) ReminderCompleted() {
	if m == nil {
		return
	}
	m.remindersCompleted.Inc()
}

func (m *Metrics) ReminderDeleted() {
	if m == nil {
		return
	}
	m.remindersDeleted.Inc()
}

// ObserveStats records the latest overdue and due-this-week counts.
func (m *Metrics) ObserveStats(overdue, dueThisWeek int) {
	if m == nil {
		return
	}
	m.remindersOverdue.Set(float64(overdue))
	m.remindersDueWeek.Set(float64(dueThisWeek))
}

func (m *Metrics) FormCreated() {
	if m == nil {
		return
	}
	m.formsCreated.Inc()
}

// FormFinalized counts a completed form and its defects.
func (m *Metrics) FormFinalized(minor, major int) {
	if m == nil {
		return
	}
	m.formsFinalized.Inc()
	m.defectsRecorded.WithLabelValues("minor").Add(float64(minor))
	m.defectsRecorded.WithLabelValues("major").Add(float64(major))
}

func (m *Metrics) FormSigned() {
	if m == nil {
		return
	}
	m.formsSigned.Inc()
}

func (m *Metrics) NotificationSent() {
	if m == nil {
		return
	}
	m.notificationsSent.Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.notificationErrors.Inc()
}
