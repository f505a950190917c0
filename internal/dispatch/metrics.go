package dispatch

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeAssigned          = "assigned"
	outcomeNoAmbulance       = "no_ambulance"
	outcomeInvalidCoordinate = "invalid_coordinate"
	outcomeError             = "error"
)

var (
	allocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_allocations_total",
			Help: "Allocation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	assignedDistanceKm = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_assigned_distance_km",
			Help:    "Distance between patient and the assigned ambulance.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	reservationConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_reservation_conflicts_total",
			Help: "Conditional reservations lost to a concurrent allocation.",
		},
	)

	reclaimedAmbulancesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_reclaimed_ambulances_total",
			Help: "Busy ambulances returned to available after their window lapsed.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		allocationsTotal,
		assignedDistanceKm,
		reservationConflictsTotal,
		reclaimedAmbulancesTotal,
	)
}
