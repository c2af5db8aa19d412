// Package metrics defines the Prometheus collectors exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegistrationsTotal counts successful register calls by outcome
// (registered or waitlisted).
var RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "registrations_total",
	Help: "Successful registration attempts by outcome.",
}, []string{"outcome"})

// UnregistrationsTotal counts successful unregister calls by the status
// of the removed registration.
var UnregistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "unregistrations_total",
	Help: "Successful unregistrations by removed status.",
}, []string{"status"})

// PromotionsTotal counts waitlist promotions triggered by vacancies.
var PromotionsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "waitlist_promotions_total",
	Help: "Waitlisted users promoted to registered.",
})

// RegistrationConflictsTotal counts rejected register calls by reason
// (already_registered, already_waitlisted, event_full).
var RegistrationConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "registration_conflicts_total",
	Help: "Register calls rejected with a conflict, by reason.",
}, []string{"reason"})
