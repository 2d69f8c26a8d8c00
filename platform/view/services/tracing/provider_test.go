/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"context"
	"testing"

	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestSpansAreCounted(t *testing.T) {
	registry := prom.NewRegistry()
	tp := NewTracerProvider(&prometheus.Provider{Registerer: registry})
	tr := tp.Tracer("execute_transaction", WithMetricsOpts(MetricsOpts{
		Namespace:  "test",
		LabelNames: []LabelName{"tx_type", "outcome"},
	}))

	ctx, span := tr.Start(context.Background(), "execute_transaction", WithAttributes(String("tx_type", "single_writer"), String("ignored", "x")))
	assert.Same(t, span, trace.SpanFromContext(ctx))
	span.SetAttributes(String("outcome", "finalized"))
	span.End()

	_, span = tr.Start(context.Background(), "execute_transaction", WithAttributes(String("tx_type", "shared_object")))
	span.AddEvent("submitted", trace.WithAttributes(String("outcome", "timeout")))
	span.End()

	mfs, err := registry.Gather()
	require.NoError(t, err)
	found := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "test_tracer_execute_transaction_operations" {
			continue
		}
		for _, m := range mf.GetMetric() {
			ls := map[string]string{}
			for _, l := range m.GetLabel() {
				ls[l.GetName()] = l.GetValue()
			}
			found[ls["tx_type"]+"/"+ls["outcome"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"single_writer/finalized": 1,
		"shared_object/timeout":   1,
	}, found)
}

func TestExtractMetricsOpts(t *testing.T) {
	c := trace.NewTracerConfig(WithMetricsOpts(MetricsOpts{NodeName: "fullnode", Namespace: "orchestrator", LabelNames: []string{"a"}}))
	o := extractMetricsOpts(c.InstrumentationAttributes())
	assert.Equal(t, "fullnode_orchestrator", o.Namespace)
	assert.Equal(t, defaultSubsystem, o.Subsystem)
	assert.Equal(t, []string{"a"}, o.LabelNames)
}
