/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
)

const (
	txTypeLabel        = "tx_type"
	txTypeSingleWriter = "single_writer"
	txTypeSharedObject = "shared_object"
)

var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 7.5, 10, 20, 30, 60}

func txTypeOf(tx *driver.Transaction) string {
	if tx.ContainsSharedObject() {
		return txTypeSharedObject
	}
	return txTypeSingleWriter
}

func counter(name, help string) metrics.CounterOpts {
	return metrics.CounterOpts{Namespace: "orchestrator", Subsystem: "transaction", Name: name, Help: help, LabelNames: []string{txTypeLabel}}
}

func gauge(name, help string) metrics.GaugeOpts {
	return metrics.GaugeOpts{Namespace: "orchestrator", Subsystem: "transaction", Name: name, Help: help, LabelNames: []string{txTypeLabel}}
}

func histogram(name, help string) metrics.HistogramOpts {
	return metrics.HistogramOpts{Namespace: "orchestrator", Subsystem: "transaction", Name: name, Help: help, LabelNames: []string{txTypeLabel}, Buckets: latencyBuckets}
}

type Metrics struct {
	TotalReqReceived metrics.Counter
	GoodResponse     metrics.Counter
	ReqInFlight      metrics.Gauge

	WaitForFinalityInFlight metrics.Gauge
	WaitForFinalityFinished metrics.Counter
	WaitForFinalityTimeout  metrics.Counter

	LocalExecutionInFlight metrics.Gauge
	LocalExecutionSuccess  metrics.Counter
	LocalExecutionTimeout  metrics.Counter
	LocalExecutionFailure  metrics.Counter

	RequestLatency         metrics.Histogram
	WaitForFinalityLatency metrics.Histogram
	LocalExecutionLatency  metrics.Histogram

	EffectsStreamLagged metrics.Counter
	PendingRecovered    metrics.Counter
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		TotalReqReceived: p.NewCounter(counter("total_req_received", "Total number of transaction requests received.")),
		GoodResponse:     p.NewCounter(counter("good_response", "Total number of requests that reached finality.")),
		ReqInFlight:      p.NewGauge(gauge("req_in_flight", "Number of requests in flight.")),

		WaitForFinalityInFlight: p.NewGauge(gauge("wait_for_finality_in_flight", "Number of requests waiting for finality.")),
		WaitForFinalityFinished: p.NewCounter(counter("wait_for_finality_finished", "Number of requests whose wait for finality ended with a result.")),
		WaitForFinalityTimeout:  p.NewCounter(counter("wait_for_finality_timeout", "Number of requests that timed out waiting for finality.")),

		LocalExecutionInFlight: p.NewGauge(gauge("local_execution_in_flight", "Number of local executions in flight.")),
		LocalExecutionSuccess:  p.NewCounter(counter("local_execution_success", "Number of successful local executions.")),
		LocalExecutionTimeout:  p.NewCounter(counter("local_execution_timeout", "Number of local executions that timed out.")),
		LocalExecutionFailure:  p.NewCounter(counter("local_execution_failure", "Number of failed local executions.")),

		RequestLatency:         p.NewHistogram(histogram("request_latency", "Latency of a request in seconds.")),
		WaitForFinalityLatency: p.NewHistogram(histogram("wait_for_finality_latency", "Time spent waiting for finality in seconds.")),
		LocalExecutionLatency:  p.NewHistogram(histogram("local_execution_latency", "Latency of local execution in seconds.")),

		EffectsStreamLagged: p.NewCounter(metrics.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "transaction",
			Name:      "effects_stream_lagged",
			Help:      "Number of stream items skipped by the local execution loop.",
		}),
		PendingRecovered: p.NewCounter(metrics.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "transaction",
			Name:      "pending_recovered",
			Help:      "Number of pending transactions resubmitted at start.",
		}),
	}
}
