/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"context"
	"fmt"

	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

type metricsProvider interface {
	NewCounter(opts metrics.CounterOpts) metrics.Counter
	NewHistogram(opts metrics.HistogramOpts) metrics.Histogram
}

// NewTracerProvider returns a provider whose spans are not exported, only counted and timed.
func NewTracerProvider(mp metricsProvider) trace.TracerProvider {
	return NewTracerProviderWithBackingProvider(noop.NewTracerProvider(), mp)
}

// NewTracerProviderWithBackingProvider records the count and duration of the spans created by tp.
func NewTracerProviderWithBackingProvider(tp trace.TracerProvider, mp metricsProvider) trace.TracerProvider {
	return &tracerProvider{metricsProvider: mp, backingProvider: tp}
}

type tracerProvider struct {
	embedded.TracerProvider

	metricsProvider metricsProvider
	backingProvider trace.TracerProvider
}

func (p *tracerProvider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	c := trace.NewTracerConfig(options...)

	opts := extractMetricsOpts(c.InstrumentationAttributes())
	return &tracer{
		backingTracer: p.backingProvider.Tracer(name, options...),
		labelNames:    opts.LabelNames,
		operations: p.metricsProvider.NewCounter(metrics.CounterOpts{
			Namespace:  opts.Namespace,
			Subsystem:  opts.Subsystem,
			Name:       fmt.Sprintf("%s_operations", name),
			Help:       fmt.Sprintf("Counter of '%s' operations", name),
			LabelNames: opts.LabelNames,
		}),
		duration: p.metricsProvider.NewHistogram(metrics.HistogramOpts{
			Namespace:  opts.Namespace,
			Subsystem:  opts.Subsystem,
			Name:       fmt.Sprintf("%s_duration", name),
			Help:       fmt.Sprintf("Histogram for the duration of '%s' operations", name),
			LabelNames: opts.LabelNames,
		}),
	}
}

type tracer struct {
	embedded.Tracer

	backingTracer trace.Tracer
	labelNames    []LabelName
	operations    metrics.Counter
	duration      metrics.Histogram
}

func (t *tracer) Start(ctx context.Context, spanName string, opts ...SpanStartOption) (context.Context, trace.Span) {
	newCtx, backingSpan := t.backingTracer.Start(ctx, spanName, opts...)
	s := newSpan(backingSpan, t.labelNames, t.operations, t.duration, opts...)
	return trace.ContextWithSpan(newCtx, s), s
}
