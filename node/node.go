/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package node

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/orchestrator"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/pending"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/quorum"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/config"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events/simple"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics/operations"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/server/web"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/tracing"
	prom "github.com/prometheus/client_golang/prometheus"
)

var logger = logging.MustGetLogger("node")

// Collaborators are what an application brings to a node: the validators and the execution engine.
type Collaborators struct {
	Client quorum.Client
	// Observer is optional, without it the client never changes.
	Observer       quorum.ReconfigObserver
	ValidatorState driver.ValidatorState
	// Effects is optional, without it the waiters rely on the quorum driver only.
	Effects driver.EffectsNotifier
}

// Node wires the orchestrator to its quorum driver, pending log and admin endpoint.
type Node struct {
	configProvider *config.Provider
	version        string

	registry     *prom.Registry
	eventBus     *simple.EventBus
	pendingLog   driver.PendingLog
	quorumDriver *quorum.Driver
	orchestrator *orchestrator.Orchestrator
	admin        *web.Server
	operations   *operations.System

	mutex   sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

func NewFromConfPath(confPath string, c Collaborators, version string) (*Node, error) {
	cp, err := config.NewProvider(confPath)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed loading configuration from [%s]", confPath)
	}
	return New(cp, c, version)
}

func New(cp *config.Provider, c Collaborators, version string) (*Node, error) {
	if c.Client == nil {
		return nil, errors.New("no quorum client")
	}
	if c.ValidatorState == nil {
		return nil, errors.New("no validator state")
	}

	pendingOpts, err := PendingOpts(cp)
	if err != nil {
		return nil, err
	}
	quorumConfig, err := QuorumConfig(cp)
	if err != nil {
		return nil, err
	}
	pendingLog, err := pending.Open(pendingOpts)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed opening pending log")
	}

	n := &Node{
		configProvider: cp,
		version:        version,
		registry:       prom.NewRegistry(),
		eventBus:       simple.NewEventBus(),
		pendingLog:     pendingLog,
	}
	metricsOpts := operations.MetricsOptions{
		Provider:          cp.GetString("metrics.provider"),
		TLS:               cp.GetBool("metrics.tls"),
		DisableHistograms: cp.GetBool("metrics.disableHistograms"),
	}
	metricsProvider := operations.NewMetricsProvider(metricsOpts, n.registry, false)

	n.quorumDriver = quorum.NewDriver(c.Client, c.Observer, quorumConfig, metricsProvider)
	n.orchestrator = orchestrator.New(
		orchestrator.NewConfig(cp),
		c.ValidatorState,
		n.quorumDriver,
		pendingLog,
		c.Effects,
		metricsProvider,
		orchestrator.WithPublisher(n.eventBus),
		orchestrator.WithTracerProvider(tracing.NewTracerProvider(metricsProvider)),
	)

	var handler *web.HttpHandler
	n.admin, handler = web.New(cp)
	web.InstallPendingHandler(handler, n.orchestrator)
	web.InstallEventStream(handler, n.eventBus, orchestrator.TxStatusTopic)
	n.operations = operations.NewOperationSystem(n.admin, metricsProvider, &operations.Options{
		TLS:      operations.TLS{Enabled: cp.GetBool("orchestrator.admin.tls.enabled")},
		Metrics:  metricsOpts,
		Version:  version,
		Logger:   logging.MustGetLogger("operations"),
		Gatherer: n.registry,
	})
	return n, nil
}

// Start brings up the quorum driver before the orchestrator, whose recovery submits to it.
func (n *Node) Start() error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.cancel != nil {
		return errors.New("node already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	n.quorumDriver.Start(ctx)
	n.orchestrator.Start(ctx)
	if err := n.admin.Start(); err != nil {
		n.stop()
		return errors.WithMessagef(err, "failed starting admin server")
	}
	if err := n.operations.Start(); err != nil {
		n.stop()
		return errors.WithMessagef(err, "failed starting operations")
	}
	logger.Infof("node [%s] started, version [%s], admin [%s]", n.configProvider.ID(), n.version, n.admin.Addr())
	return nil
}

func (n *Node) Stop() {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.stop()
}

func (n *Node) stop() {
	if n.stopped {
		return
	}
	n.stopped = true
	if err := n.admin.Stop(); err != nil {
		logger.Warnf("failed stopping admin server: %s", err)
	}
	if err := n.operations.Stop(); err != nil {
		logger.Warnf("failed stopping operations: %s", err)
	}
	if n.cancel != nil {
		n.cancel()
	}
	// the orchestrator goes first so that its subscriptions see a cancellation and not a closed stream
	n.orchestrator.Stop()
	n.quorumDriver.Stop()
	if err := n.pendingLog.Close(); err != nil {
		logger.Warnf("failed closing pending log: %s", err)
	}
	logger.Infof("node [%s] stopped", n.configProvider.ID())
}

func (n *Node) Orchestrator() *orchestrator.Orchestrator {
	return n.orchestrator
}

// Events delivers the transaction status events on orchestrator.TxStatusTopic.
func (n *Node) Events() events.Subscriber {
	return n.eventBus
}

func (n *Node) ConfigService() *config.Provider {
	return n.configProvider
}

// AdminAddress is where the admin endpoint listens once started.
func (n *Node) AdminAddress() string {
	return n.admin.Addr()
}
