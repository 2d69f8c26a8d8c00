/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operations

import (
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics/disabled"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
)

var versionOpts = metrics.GaugeOpts{
	Namespace:  "orchestrator",
	Subsystem:  "node",
	Name:       "version",
	Help:       "The active version of the finality orchestrator.",
	LabelNames: []string{"version"},
}

// NewMetricsProvider returns the provider named by m. A nil registerer means the default prometheus registry.
func NewMetricsProvider(m MetricsOptions, registerer prom.Registerer, skipRegisterErr bool) metrics.Provider {
	var p metrics.Provider
	switch m.Provider {
	case "prometheus":
		p = &prometheus.Provider{Registerer: registerer, SkipRegisterErr: skipRegisterErr}
	default:
		return &disabled.Provider{}
	}
	if m.DisableHistograms {
		p = NewDisabledHistogram(p)
	}
	return p
}

type disabledHistogramsProvider struct {
	metrics.Provider
	disabledProvider *disabled.Provider
}

// NewDisabledHistogram keeps counters and gauges of provider and drops its histograms.
func NewDisabledHistogram(provider metrics.Provider) *disabledHistogramsProvider {
	return &disabledHistogramsProvider{
		Provider:         provider,
		disabledProvider: &disabled.Provider{},
	}
}

func (p *disabledHistogramsProvider) NewHistogram(metrics.HistogramOpts) metrics.Histogram {
	return p.disabledProvider.NewHistogram(metrics.HistogramOpts{})
}
