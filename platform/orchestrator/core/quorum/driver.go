/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package quorum

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils"
	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var logger = logging.MustGetLogger("orchestrator.quorum")

var ErrStopped = errors.New("quorum driver stopped")

// Client collects a quorum of validator signatures for a transaction.
// Failures the validators agreed on are reported as *driver.ApplicationError.
type Client interface {
	ExecuteTransaction(ctx context.Context, tx *driver.VerifiedTransaction) (*driver.QuorumResponse, error)
}

type ClientUpdater interface {
	UpdateClient(client Client)
}

// ReconfigObserver feeds new clients to the driver when the committee changes.
type ReconfigObserver interface {
	Run(ctx context.Context, updater ClientUpdater)
}

type Config struct {
	Workers           int
	QueueSize         int
	Retries           int
	RetryDelay        time.Duration
	BroadcastCapacity int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
	if c.BroadcastCapacity <= 0 {
		c.BroadcastCapacity = 1000
	}
	return c
}

type task struct {
	tx       *driver.VerifiedTransaction
	enqueued time.Time
}

// Driver is a fire-and-forget front to a Client. Results of every transaction,
// whoever submitted it, are published to all effects subscriptions.
// A digest is queued at most once until its result is published.
type Driver struct {
	config      Config
	queue       chan *task
	broadcaster *Broadcaster
	retryRunner utils.RetryRunner
	observer    ReconfigObserver
	metrics     *Metrics

	clientMutex sync.RWMutex
	client      Client

	inflightMutex sync.Mutex
	inflight      map[driver.Digest]struct{}

	stop     chan struct{}
	stopOnce sync.Once
	group    *errgroup.Group
	cancel   context.CancelFunc
}

func NewDriver(client Client, observer ReconfigObserver, config Config, metricsProvider metrics.Provider) *Driver {
	config = config.withDefaults()
	return &Driver{
		config:      config,
		queue:       make(chan *task, config.QueueSize),
		broadcaster: NewBroadcaster(config.BroadcastCapacity),
		retryRunner: utils.NewRetryRunner(config.Retries, config.RetryDelay, true),
		observer:    observer,
		metrics:     NewMetrics(metricsProvider),
		client:      client,
		inflight:    map[driver.Digest]struct{}{},
		stop:        make(chan struct{}),
	}
}

// Start launches the workers. They run until Stop is called or ctx is done.
func (d *Driver) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < d.config.Workers; i++ {
		d.group.Go(func() error {
			d.worker(ctx)
			return nil
		})
	}
	if d.observer != nil {
		d.group.Go(func() error {
			d.observer.Run(ctx, d)
			return nil
		})
	}
	logger.Infof("quorum driver started with [%d] workers, queue size [%d]", d.config.Workers, d.config.QueueSize)
}

// Stop terminates the workers and closes the effects stream.
// Queued transactions are dropped; they are still in the pending log.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
		if d.cancel != nil {
			d.cancel()
			_ = d.group.Wait()
		}
		d.broadcaster.Close()
		logger.Infof("quorum driver stopped")
	})
}

func (d *Driver) UpdateClient(client Client) {
	d.clientMutex.Lock()
	defer d.clientMutex.Unlock()
	d.client = client
	logger.Infof("quorum client updated")
}

func (d *Driver) currentClient() Client {
	d.clientMutex.RLock()
	defer d.clientMutex.RUnlock()
	return d.client
}

// SubmitTransactionNoTicket queues tx unless a submission with the same digest
// is still waiting for its result, in which case it is a no-op.
func (d *Driver) SubmitTransactionNoTicket(ctx context.Context, tx *driver.VerifiedTransaction) error {
	digest := tx.Digest()
	t := &task{tx: tx, enqueued: time.Now()}
	select {
	case <-d.stop:
		return ErrStopped
	default:
	}
	if !d.acquire(digest) {
		logger.Debugf("tx [%s] already in flight", digest)
		d.metrics.Deduplicated.Add(1)
		return nil
	}
	select {
	case d.queue <- t:
		d.metrics.QueueDepth.Add(1)
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("tx [%s] enqueued", digest)
		}
		return nil
	case <-d.stop:
		d.release(digest)
		return ErrStopped
	case <-ctx.Done():
		d.release(digest)
		return errors.Wrapf(ctx.Err(), "failed enqueuing tx [%s]", digest)
	}
}

func (d *Driver) acquire(digest driver.Digest) bool {
	d.inflightMutex.Lock()
	defer d.inflightMutex.Unlock()
	if _, ok := d.inflight[digest]; ok {
		return false
	}
	d.inflight[digest] = struct{}{}
	return true
}

func (d *Driver) release(digest driver.Digest) {
	d.inflightMutex.Lock()
	defer d.inflightMutex.Unlock()
	delete(d.inflight, digest)
}

// InFlight returns the number of digests queued or being processed.
func (d *Driver) InFlight() int {
	d.inflightMutex.Lock()
	defer d.inflightMutex.Unlock()
	return len(d.inflight)
}

func (d *Driver) SubscribeToEffects() driver.EffectsSubscription {
	return d.broadcaster.Subscribe()
}

func (d *Driver) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-d.queue:
			d.metrics.QueueDepth.Add(-1)
			d.process(ctx, t)
		}
	}
}

func (d *Driver) process(ctx context.Context, t *task) {
	digest := t.tx.Digest()
	start := time.Now()
	defer func() { d.metrics.Latency.Observe(time.Since(start).Seconds()) }()

	var resp *driver.QuorumResponse
	attempts := 0
	err := d.retryRunner.RunWithContext(ctx, func(ctx context.Context) error {
		attempts++
		d.metrics.Attempts.Add(1)
		var err error
		resp, err = d.currentClient().ExecuteTransaction(ctx, t.tx)
		if err == nil {
			return nil
		}
		var appErr *driver.ApplicationError
		if errors.As(err, &appErr) {
			return utils.Permanent(appErr)
		}
		logger.Warnf("attempt [%d] for tx [%s] failed: %s", attempts, digest, err)
		return err
	})
	// released before publishing: a submission racing the result is queued again
	d.release(digest)
	if ctx.Err() != nil {
		logger.Debugf("dropping result of tx [%s], driver stopping", digest)
		return
	}

	item := &driver.EffectsQueueResult{Digest: digest}
	var appErr *driver.ApplicationError
	switch {
	case err == nil:
		item.Transaction = t.tx
		item.Response = resp
		d.metrics.Results.With("outcome", outcomeSuccess).Add(1)
	case errors.As(err, &appErr):
		item.Err = appErr
		d.metrics.Results.With("outcome", outcomeApplication).Add(1)
	default:
		item.Err = fmt.Errorf("%w: tx [%s] failed after [%d] attempts: %w", driver.ErrQuorumDriverInternal, digest, attempts, err)
		d.metrics.Results.With("outcome", outcomeInternal).Add(1)
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("tx [%s] resolved after [%d] attempts in [%s], err [%v]", digest, attempts, time.Since(t.enqueued), item.Err)
	}
	d.broadcaster.Publish(item)
}

// ChannelReconfigObserver installs every client received on Updates.
type ChannelReconfigObserver struct {
	Updates <-chan Client
}

func (o *ChannelReconfigObserver) Run(ctx context.Context, updater ClientUpdater) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-o.Updates:
			if !ok {
				return
			}
			updater.UpdateClient(c)
		}
	}
}
