// Package metrics holds the prometheus collectors of the deployer.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "launchpad"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	deployments      *prometheus.CounterVec
	deploymentSteps  *prometheus.CounterVec
	chainTxs         *prometheus.CounterVec
	receiptPollTries prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "universal_deployments_total",
			Help:      "Finished universal deployments by overall status.",
		}, []string{"status"}),
		deploymentSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "universal_deployment_steps_total",
			Help:      "Deployment sub-steps by step name and result.",
		}, []string{"step", "result"}),
		chainTxs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_transactions_total",
			Help:      "Transactions submitted per chain by result.",
		}, []string{"chain_id", "result"}),
		receiptPollTries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_receipt_poll_attempts",
			Help:      "Receipt polls needed before a transaction was mined.",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 40, 60},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.deployments, m.deploymentSteps, m.chainTxs, m.receiptPollTries)
	}
	return m
}

func (m *Metrics) DeploymentFinished(status string) {
	if m == nil {
		return
	}
	m.deployments.WithLabelValues(status).Inc()
}

func (m *Metrics) Step(step, result string) {
	if m == nil {
		return
	}
	m.deploymentSteps.WithLabelValues(step, result).Inc()
}

func (m *Metrics) Transaction(chainID int64, result string) {
	if m == nil {
		return
	}
	m.chainTxs.WithLabelValues(strconv.FormatInt(chainID, 10), result).Inc()
}

func (m *Metrics) ReceiptPolled(attempts int) {
	if m == nil {
		return
	}
	m.receiptPollTries.Observe(float64(attempts))
}
