package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RegistrationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pidkeeper_registrations_created_total",
		Help: "Total number of registrations that minted or recovered a v3 and inserted a new row.",
	})
	RegistrationsFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pidkeeper_registrations_found_total",
		Help: "Total number of registrations resolved to an existing record without writing.",
	})
	RegistrationsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pidkeeper_registrations_failed_total",
		Help: "Total number of registrations that ended in an exception.",
	})
	AmbiguousMatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pidkeeper_ambiguous_matches_total",
		Help: "Total number of cascade steps that found more than one candidate.",
	})
)

func init() {
	prometheus.MustRegister(
		RegistrationsCreated,
		RegistrationsFound,
		RegistrationsFailed,
		AmbiguousMatches,
	)
}
