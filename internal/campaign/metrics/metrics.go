// Package metrics registers the Prometheus instruments for the ledger.
// Amounts are deliberately not exported as gauges: 128-bit totals do not
// survive float64 conversion, so only operation counts are tracked.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the campaign ledger. A nil
// *Metrics is valid and records nothing, which keeps tests free of global
// registry collisions.
type Metrics struct {
	campaignsCreated   prometheus.Counter
	donations          prometheus.Counter
	donationFailures   *prometheus.CounterVec
	settlements        prometheus.Counter
	settlementFailures *prometheus.CounterVec
}

// New creates and registers all ledger metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		campaignsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_campaigns_created_total",
			Help: "Total number of campaigns registered in the ledger",
		}),
		donations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_donations_total",
			Help: "Total number of accepted donations",
		}),
		donationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fundledger_donation_failures_total",
			Help: "Total number of rejected donations by reason",
		}, []string{"reason"}),
		settlements: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_settlements_total",
			Help: "Total number of successful campaign settlements",
		}),
		settlementFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fundledger_settlement_failures_total",
			Help: "Total number of failed settlement attempts by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) CampaignCreated() {
	if m == nil {
		return
	}
	m.campaignsCreated.Inc()
}

func (m *Metrics) DonationAccepted() {
	if m == nil {
		return
	}
	m.donations.Inc()
}

func (m *Metrics) DonationRejected(reason string) {
	if m == nil {
		return
	}
	m.donationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SettlementCompleted() {
	if m == nil {
		return
	}
	m.settlements.Inc()
}

func (m *Metrics) SettlementFailed(reason string) {
	if m == nil {
		return
	}
	m.settlementFailures.WithLabelValues(reason).Inc()
}
