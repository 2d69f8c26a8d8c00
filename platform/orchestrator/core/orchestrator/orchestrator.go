/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils"
	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/ticket"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/verifier"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/tracing"
	"github.com/jellydator/ttlcache/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var logger = logging.MustGetLogger("orchestrator")

// Orchestrator turns a signed transaction into a finalized one.
// Concurrent requests for the same transaction share one quorum submission.
type Orchestrator struct {
	config         Config
	validatorState driver.ValidatorState
	quorumDriver   driver.QuorumDriver
	pendingLog     driver.PendingLog
	effects        driver.EffectsNotifier

	tickets     *ticket.Registry
	finalized   *ttlcache.Cache
	verifier    *verifier.Cache
	recovery    utils.RetryRunner
	metrics     *Metrics
	tracer      trace.Tracer
	publisher   events.Publisher
	subscribers []driver.EffectsSubscription

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Orchestrator)

// WithPublisher sets where transaction status events go.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		if tp != nil {
			o.tracer = newTracer(tp)
		}
	}
}

func newTracer(tp trace.TracerProvider) trace.Tracer {
	return tp.Tracer("execute_transaction", tracing.WithMetricsOpts(tracing.MetricsOpts{
		Namespace:  "orchestrator",
		LabelNames: []tracing.LabelName{txTypeLabel, requestTypeLabel},
	}))
}

const requestTypeLabel = "request_type"

func New(
	config Config,
	validatorState driver.ValidatorState,
	quorumDriver driver.QuorumDriver,
	pendingLog driver.PendingLog,
	effects driver.EffectsNotifier,
	metricsProvider metrics.Provider,
	opts ...Option,
) *Orchestrator {
	config = config.withDefaults()
	finalized := ttlcache.NewCache()
	if err := finalized.SetTTL(config.FinalityCacheTTL); err != nil {
		panic(err)
	}
	finalized.SkipTTLExtensionOnHit(true)

	o := &Orchestrator{
		config:         config,
		validatorState: validatorState,
		quorumDriver:   quorumDriver,
		pendingLog:     pendingLog,
		effects:        effects,
		tickets:        ticket.NewRegistry(),
		finalized:      finalized,
		verifier:       verifier.NewCache(config.VerifierCacheTTL, 0),
		recovery:       utils.NewRetryRunner(config.RecoveryRetries, config.RecoveryDelay, true),
		metrics:        NewMetrics(metricsProvider),
		tracer:         newTracer(otel.GetTracerProvider()),
		publisher:      noopPublisher{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start subscribes to the results of the quorum driver and replays the pending log.
// The subscriptions are opened before the replay so that no replayed result is missed.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	notifierSub := o.quorumDriver.SubscribeToEffects()
	loopSub := o.quorumDriver.SubscribeToEffects()
	o.subscribers = []driver.EffectsSubscription{notifierSub, loopSub}

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.fulfillTickets(ctx, notifierSub)
	}()
	go func() {
		defer o.wg.Done()
		o.loopExecuteFinalizedTxLocally(ctx, loopSub)
	}()

	if o.config.SkipRecovery {
		logger.Infof("skipping recovery of pending transactions")
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.scheduleTxesInLog(ctx)
	}()
}

// Stop terminates the background tasks. Abandoned local executions are not waited for.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	for _, s := range o.subscribers {
		s.Close()
	}
	o.wg.Wait()
	if err := o.finalized.Close(); err != nil {
		logger.Warnf("failed closing finality cache: %s", err)
	}
	if err := o.verifier.Close(); err != nil {
		logger.Warnf("failed closing verification cache: %s", err)
	}
}

// ExecuteTransaction drives the transaction of req to finality.
// With WaitForLocalExecution it also applies the effects locally, within LocalExecutionTimeout;
// a failure there only shows as LocallyExecuted=false.
func (o *Orchestrator) ExecuteTransaction(ctx context.Context, req *driver.ExecutionRequest) (*driver.ExecutionResponse, error) {
	if req == nil || req.Transaction == nil {
		return nil, errors.New("empty execution request")
	}
	txType := txTypeOf(req.Transaction)
	ctx, span := o.tracer.Start(ctx, "execute_transaction", tracing.WithAttributes(
		tracing.String(txTypeLabel, txType),
		tracing.String(requestTypeLabel, req.RequestType.String()),
	))
	defer span.End()

	o.metrics.TotalReqReceived.With(txTypeLabel, txType).Add(1)
	o.metrics.ReqInFlight.With(txTypeLabel, txType).Add(1)
	defer o.metrics.ReqInFlight.With(txTypeLabel, txType).Add(-1)
	start := time.Now()
	defer func() { o.metrics.RequestLatency.With(txTypeLabel, txType).Observe(time.Since(start).Seconds()) }()

	verified, err := o.verifier.Verify(o.validatorState.LoadEpochStore(), req.Transaction)
	if err != nil {
		if !errors.HasCause(err, driver.ErrInvalidUserSignature) {
			err = fmt.Errorf("%w: %w", driver.ErrInvalidUserSignature, err)
		}
		return nil, err
	}
	digest := verified.Digest()
	logger.Debugf("received transaction [%s], type [%s], request type [%s]", digest, txType, req.RequestType)

	t, err := o.submit(ctx, verified)
	if err != nil {
		o.publish(digest, QuorumError, err)
		return nil, err
	}
	span.AddEvent("submitted")

	result, err := o.waitForFinalityWithTimeout(ctx, t, verified, txType)
	if err != nil {
		return nil, err
	}
	if result.Err != nil {
		logger.Debugf("transaction [%s] failed: %s", digest, result.Err)
		o.publish(digest, QuorumError, result.Err)
		return nil, result.Err
	}
	o.metrics.GoodResponse.With(txTypeLabel, txType).Add(1)
	o.publish(digest, Finalized, nil)
	span.AddEvent("finalized")

	cert := result.Response.EffectsCert
	resp := &driver.ExecutionResponse{
		Effects: driver.NewFinalizedEffectsFromCert(cert),
		Events:  result.Response.Events,
	}
	if req.RequestType != driver.WaitForLocalExecution {
		return resp, nil
	}

	executable := driver.NewExecutableFromQuorumExecution(verified, cert.ExecutedEpoch)
	if err := o.executeFinalizedTxLocallyWithTimeout(ctx, executable, cert); err != nil {
		logger.Warnf("local execution of [%s] failed: %s", digest, err)
		o.publish(digest, LocalExecutionFailed, err)
		return resp, nil
	}
	resp.LocallyExecuted = true
	o.publish(digest, LocallyExecuted, nil)
	return resp, nil
}

func (o *Orchestrator) waitForFinalityWithTimeout(ctx context.Context, t *ticket.Ticket, tx *driver.VerifiedTransaction, txType string) (driver.QuorumResult, error) {
	digest := tx.Digest()
	o.publish(digest, AwaitingFinality, nil)

	o.metrics.WaitForFinalityInFlight.With(txTypeLabel, txType).Add(1)
	defer o.metrics.WaitForFinalityInFlight.With(txTypeLabel, txType).Add(-1)
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, o.config.WaitForFinalityTimeout)
	defer cancel()
	result, err := o.waitForFinality(waitCtx, t, tx)
	switch {
	case err == nil:
		o.metrics.WaitForFinalityFinished.With(txTypeLabel, txType).Add(1)
		o.metrics.WaitForFinalityLatency.With(txTypeLabel, txType).Observe(time.Since(start).Seconds())
		o.removePending(ctx, digest)
		return result, nil
	case ctx.Err() != nil:
		return driver.QuorumResult{}, errors.Wrapf(ctx.Err(), "stopped waiting for finality of [%s]", digest)
	case errors.HasCause(err, context.DeadlineExceeded):
		logger.Debugf("timeout waiting for finality of [%s]", digest)
		o.metrics.WaitForFinalityTimeout.With(txTypeLabel, txType).Add(1)
		o.publish(digest, TimedOutAtCaller, nil)
		return driver.QuorumResult{}, errors.Wrapf(driver.ErrTimeoutBeforeFinality, "tx [%s] after [%s]", digest, o.config.WaitForFinalityTimeout)
	default:
		return driver.QuorumResult{}, err
	}
}

// LoadAllPendingTransactions returns the transactions whose finality is still unresolved.
func (o *Orchestrator) LoadAllPendingTransactions(ctx context.Context) ([]*driver.VerifiedTransaction, error) {
	return o.pendingLog.LoadAll(ctx)
}

// removePending logs failures. A stale record is resubmitted at restart.
func (o *Orchestrator) removePending(ctx context.Context, digest driver.Digest) {
	if err := o.pendingLog.Remove(context.WithoutCancel(ctx), digest); err != nil {
		logger.Errorf("failed removing pending transaction [%s]: %s", digest, err)
	}
}
