/*
Copyright IBM Corp All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operations

import (
	"net/http"

	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Logger interface {
	Debugf(template string, args ...interface{})
	Info(...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
}

type MetricsOptions struct {
	Provider          string
	TLS               bool
	DisableHistograms bool
}

type TLS struct {
	Enabled bool
}

type Options struct {
	TLS     TLS
	Metrics MetricsOptions
	Version string
	Logger  Logger
	// Gatherer backs /metrics, the default prometheus registry if nil.
	Gatherer prom.Gatherer
}

type Server interface {
	RegisterHandler(s string, handler http.Handler, secure bool)
}

// System mounts /metrics and /logspec on the admin server.
type System struct {
	metrics.Provider

	Server       Server
	logger       Logger
	options      Options
	versionGauge metrics.Gauge
}

func NewOperationSystem(server Server, metricsProvider metrics.Provider, o *Options) *System {
	system := &System{
		Server:  server,
		logger:  o.Logger,
		options: *o,
	}
	if system.logger == nil {
		system.logger = logging.MustGetLogger("operations")
	}
	system.initializeLoggingHandler(o.TLS.Enabled)
	system.initializeMetricsProvider(metricsProvider, o.Metrics)
	return system
}

func (s *System) Start() error {
	s.versionGauge.With("version", s.options.Version).Set(1)
	return nil
}

func (s *System) Stop() error {
	return nil
}

func (s *System) initializeMetricsProvider(provider metrics.Provider, m MetricsOptions) {
	s.logger.Debugf("Initializing metrics provider: [%s]", m.Provider)
	s.Provider = provider
	switch m.Provider {
	case "prometheus":
		gatherer := s.options.Gatherer
		if gatherer == nil {
			gatherer = prom.DefaultGatherer
		}
		// swagger:operation GET /metrics operations metrics
		// ---
		// responses:
		//     '200':
		//        description: Ok.
		s.Server.RegisterHandler("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorLog: newPromLogger(s.logger),
		}), m.TLS)
	case "", "disabled":
		s.logger.Info("metrics disabled")
	default:
		s.logger.Warnf("unknown provider type: %s; metrics disabled", m.Provider)
	}
	s.versionGauge = s.Provider.NewGauge(versionOpts)
}

func (s *System) initializeLoggingHandler(tlsEnabled bool) {
	// swagger:operation GET /logspec operations logspecget
	// ---
	// summary: Retrieves the active logging spec of the node.
	// responses:
	//     '200':
	//        description: Ok.

	// swagger:operation PUT /logspec operations logspecput
	// ---
	// summary: Updates the active logging spec of the node.
	//
	// parameters:
	// - name: payload
	//   in: formData
	//   type: string
	//   description: The payload must consist of a single attribute named spec.
	//   required: true
	// responses:
	//     '204':
	//        description: No content.
	//     '400':
	//        description: Bad request.
	// consumes:
	//   - multipart/form-data
	s.Server.RegisterHandler("/logspec", logging.NewSpecHandler(), tlsEnabled)
}
