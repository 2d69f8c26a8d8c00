/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	namespaceKey  = "namespace"
	subsystemKey  = "subsystem"
	labelNamesKey = "label_names"
	nodeNameKey   = "node_name"
)

const defaultSubsystem = "tracer"

type LabelName = string

// MetricsOpts tells the provider how to name the meters of a tracer.
// Span attributes whose key is one of LabelNames become metric labels.
type MetricsOpts struct {
	// NodeName, when set, prefixes Namespace.
	NodeName   string
	Namespace  string
	Subsystem  string
	LabelNames []LabelName
}

func WithMetricsOpts(o MetricsOpts) trace.TracerOption {
	set := attribute.NewSet(
		attribute.String(nodeNameKey, o.NodeName),
		attribute.String(namespaceKey, o.Namespace),
		attribute.String(subsystemKey, o.Subsystem),
		attribute.StringSlice(labelNamesKey, o.LabelNames),
	)
	return trace.WithInstrumentationAttributes(set.ToSlice()...)
}

func extractMetricsOpts(attrs attribute.Set) MetricsOpts {
	o := MetricsOpts{Subsystem: defaultSubsystem}
	if val, ok := attrs.Value(namespaceKey); ok {
		o.Namespace = val.AsString()
	}
	if val, ok := attrs.Value(nodeNameKey); ok && len(val.AsString()) > 0 {
		o.Namespace = val.AsString() + "_" + o.Namespace
	}
	if val, ok := attrs.Value(subsystemKey); ok && len(val.AsString()) > 0 {
		o.Subsystem = val.AsString()
	}
	if val, ok := attrs.Value(labelNamesKey); ok {
		o.LabelNames = val.AsStringSlice()
	}
	return o
}
