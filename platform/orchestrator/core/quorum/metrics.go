/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package quorum

import (
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
)

var (
	queueDepthOpts = metrics.GaugeOpts{
		Namespace: "orchestrator",
		Subsystem: "quorum_driver",
		Name:      "queue_depth",
		Help:      "Number of transactions waiting for a worker.",
	}
	attemptsOpts = metrics.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "quorum_driver",
		Name:      "attempts",
		Help:      "Number of calls to the quorum client.",
	}
	deduplicatedOpts = metrics.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "quorum_driver",
		Name:      "deduplicated",
		Help:      "Number of submissions dropped because the digest was already in flight.",
	}
	resultsOpts = metrics.CounterOpts{
		Namespace:  "orchestrator",
		Subsystem:  "quorum_driver",
		Name:       "results",
		Help:       "Number of results published on the effects stream, by outcome.",
		LabelNames: []string{"outcome"},
	}
	latencyOpts = metrics.HistogramOpts{
		Namespace: "orchestrator",
		Subsystem: "quorum_driver",
		Name:      "latency_seconds",
		Help:      "Time from dequeue to published result.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}
)

const (
	outcomeSuccess     = "success"
	outcomeApplication = "application_error"
	outcomeInternal    = "internal_error"
)

type Metrics struct {
	QueueDepth   metrics.Gauge
	Attempts     metrics.Counter
	Deduplicated metrics.Counter
	Results      metrics.Counter
	Latency      metrics.Histogram
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		QueueDepth:   p.NewGauge(queueDepthOpts),
		Attempts:     p.NewCounter(attemptsOpts),
		Deduplicated: p.NewCounter(deduplicatedOpts),
		Results:      p.NewCounter(resultsOpts),
		Latency:      p.NewHistogram(latencyOpts),
	}
}
