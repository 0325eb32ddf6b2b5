package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	VotesCast        prometheus.Counter
	CastConflicts    prometheus.Counter
	RollbackFailures prometheus.Counter
	PaperVotes       prometheus.Counter
	StatusResets     prometheus.Counter
	ElectionsCreated prometheus.Counter
}

// New creates and registers all Prometheus metrics. Call once per process;
// services tolerate a nil *Metrics so tests can skip registration.
func New() *Metrics {
	return &Metrics{
		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unionvote_votes_cast_total",
			Help: "Total number of successfully cast electronic votes",
		}),
		CastConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unionvote_cast_conflicts_total",
			Help: "Total number of cast attempts rejected by the double-vote guard",
		}),
		RollbackFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unionvote_rollback_failures_total",
			Help: "Total number of failed saga compensations requiring manual reconciliation",
		}),
		PaperVotes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unionvote_paper_votes_total",
			Help: "Total number of paper votes registered at reception",
		}),
		StatusResets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unionvote_status_resets_total",
			Help: "Total number of administrative voting-status resets",
		}),
		ElectionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unionvote_elections_created_total",
			Help: "Total number of elections created",
		}),
	}
}

func (m *Metrics) IncVotesCast() {
	if m != nil {
		m.VotesCast.Inc()
	}
}

func (m *Metrics) IncCastConflicts() {
	if m != nil {
		m.CastConflicts.Inc()
	}
}

func (m *Metrics) IncRollbackFailures() {
	if m != nil {
		m.RollbackFailures.Inc()
	}
}

func (m *Metrics) IncPaperVotes() {
	if m != nil {
		m.PaperVotes.Inc()
	}
}

func (m *Metrics) IncStatusResets() {
	if m != nil {
		m.StatusResets.Inc()
	}
}

func (m *Metrics) IncElectionsCreated() {
	if m != nil {
		m.ElectionsCreated.Inc()
	}
}
