/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disabled

import (
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
)

type Provider struct{}

func (p *Provider) NewCounter(metrics.CounterOpts) metrics.Counter       { return &Counter{} }
func (p *Provider) NewHistogram(metrics.HistogramOpts) metrics.Histogram { return &Histogram{} }
func (p *Provider) NewGauge(metrics.GaugeOpts) metrics.Gauge             { return &Gauge{} }

type Counter struct{}

func (c *Counter) Add(float64) {}
func (c *Counter) With(...string) metrics.Counter {
	return c
}

type Gauge struct{}

func (g *Gauge) Add(float64) {}
func (g *Gauge) Set(float64) {}
func (g *Gauge) With(...string) metrics.Gauge {
	return g
}

type Histogram struct{}

func (h *Histogram) Observe(float64) {}
func (h *Histogram) With(...string) metrics.Histogram {
	return h
}
