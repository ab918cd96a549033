// Package metrics registers the Prometheus instruments for the booking core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staycore_bookings_created_total",
		Help: "Bookings created, labelled by initial status.",
	}, []string{"status"})

	BookingsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staycore_bookings_cancelled_total",
		Help: "Bookings cancelled, labelled by actor (guest, provider, system).",
	}, []string{"actor"})

	OversellRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staycore_oversell_rejections_total",
		Help: "Reservations rejected because the atomic decrement found no capacity.",
	})

	PaymentsRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staycore_payments_registered_total",
		Help: "Payments appended to the ledger, labelled by type.",
	}, []string{"type"})

	HorizonRowsSeeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staycore_horizon_rows_seeded_total",
		Help: "Availability rows inserted by the horizon maintainer.",
	})

	HorizonUnitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staycore_horizon_unit_failures_total",
		Help: "Units skipped by a horizon run because seeding failed.",
	})

	ExpiredBookingsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staycore_expired_bookings_swept_total",
		Help: "Pending-payment bookings cancelled past their deadline.",
	})
)
