/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"sync"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type (
	SpanStartOption = trace.SpanStartOption
	SpanEndOption   = trace.SpanEndOption
	EventOption     = trace.EventOption
	KeyValue        = attribute.KeyValue
)

var (
	WithAttributes = trace.WithAttributes
	Int            = attribute.Int
	Bool           = attribute.Bool
	String         = attribute.String
)

// labels keeps only the keys it was created with.
type labels map[string]string

func NewLabels(keys []string) labels {
	ls := make(labels, len(keys))
	for _, k := range keys {
		ls[k] = ""
	}
	return ls
}

func (l labels) Append(kvs ...attribute.KeyValue) {
	for _, kv := range kvs {
		if _, ok := l[string(kv.Key)]; ok && kv.Valid() {
			l[string(kv.Key)] = kv.Value.Emit()
		}
	}
}

func (l labels) ToLabels() []string {
	r := make([]string, 0, 2*len(l))
	for k, v := range l {
		r = append(r, k, v)
	}
	return r
}

type span struct {
	trace.Span

	mutex      sync.Mutex
	labels     labels
	start      time.Time
	operations metrics.Counter
	duration   metrics.Histogram
}

func (s *span) End(options ...SpanEndOption) {
	s.Span.End(options...)

	c := trace.NewSpanEndConfig(options...)
	s.mutex.Lock()
	s.labels.Append(c.Attributes()...)
	ls := s.labels.ToLabels()
	s.mutex.Unlock()

	s.operations.With(ls...).Add(1)
	s.duration.With(ls...).Observe(orNow(c.Timestamp()).Sub(s.start).Seconds())
}

func (s *span) AddEvent(name string, options ...EventOption) {
	s.Span.AddEvent(name, options...)

	c := trace.NewEventConfig(options...)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.labels.Append(c.Attributes()...)
}

func (s *span) SetAttributes(kv ...KeyValue) {
	s.Span.SetAttributes(kv...)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.labels.Append(kv...)
}

func newSpan(backingSpan trace.Span, labelNames []LabelName, operations metrics.Counter, duration metrics.Histogram, opts ...SpanStartOption) *span {
	c := trace.NewSpanStartConfig(opts...)
	s := &span{
		Span:       backingSpan,
		labels:     NewLabels(labelNames),
		start:      orNow(c.Timestamp()),
		operations: operations,
		duration:   duration,
	}
	s.labels.Append(c.Attributes()...)
	return s
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
