package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	RecordsCreated         prometheus.Counter
	RecordsDeleted         prometheus.Counter
	VerificationFailures   prometheus.Counter
	DuplicateChecks        prometheus.Counter
	DuplicateCandidatesHit prometheus.Counter
}

// New registers all registration metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_records_created_total",
			Help: "Total number of records created",
		}),
		RecordsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_records_deleted_total",
			Help: "Total number of records deleted",
		}),
		VerificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_proof_verification_failures_total",
			Help: "Total number of launch payload verification failures",
		}),
		DuplicateChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_duplicate_checks_total",
			Help: "Total number of duplicate scans",
		}),
		DuplicateCandidatesHit: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_duplicate_checks_with_candidates_total",
			Help: "Duplicate scans that surfaced at least one candidate",
		}),
	}
}
