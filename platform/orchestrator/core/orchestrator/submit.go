/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"fmt"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/ticket"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap/zapcore"
)

// submit registers the caller for the result of tx and makes sure exactly one
// submission per digest is in flight. Only the caller that creates the pending
// record talks to the quorum driver, the others join its ticket.
func (o *Orchestrator) submit(ctx context.Context, tx *driver.VerifiedTransaction) (*ticket.Ticket, error) {
	digest := tx.Digest()
	t := o.tickets.Register(digest)

	// a result that arrived before the registration would never reach the ticket
	if result, ok := o.recentlyFinalized(digest); ok {
		logger.Debugf("transaction [%s] already finalized", digest)
		o.tickets.Fulfill(digest, result)
		return t, nil
	}

	created, err := o.pendingLog.WriteIfAbsent(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed writing pending transaction [%s]: %w", driver.ErrQuorumDriverInternal, digest, err)
	}
	if !created {
		logger.Debugf("transaction [%s] already in flight, joining", digest)
		return t, nil
	}
	o.publish(digest, Submitted, nil)
	// the submission outlives the caller
	if err := o.quorumDriver.SubmitTransactionNoTicket(context.WithoutCancel(ctx), tx); err != nil {
		err = fmt.Errorf("%w: failed submitting transaction [%s]: %w", driver.ErrQuorumDriverInternal, digest, err)
		// give the next caller a chance to submit, then release the ones that joined
		o.removePending(ctx, digest)
		o.tickets.Fulfill(digest, driver.QuorumResult{Err: err})
		return nil, err
	}
	return t, nil
}

// waitForFinality waits for the ticket or for the effects of tx to be recorded locally,
// whichever comes first. In the second case the ticket may never fire by itself, so
// tx is submitted once more before waiting on the ticket.
func (o *Orchestrator) waitForFinality(ctx context.Context, t *ticket.Ticket, tx *driver.VerifiedTransaction) (driver.QuorumResult, error) {
	select {
	case <-t.Done():
		return t.Result(), nil
	default:
	}
	if o.effects == nil {
		return t.Wait(ctx)
	}

	effectsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	recorded := make(chan error, 1)
	go func() {
		recorded <- o.effects.NotifyReadExecutedEffects(effectsCtx, tx.Digest())
	}()

	select {
	case <-t.Done():
		return t.Result(), nil
	case err := <-recorded:
		if err != nil {
			// the notifier gave up, the ticket is still good
			return t.Wait(ctx)
		}
		logger.Debugf("effects of [%s] recorded locally, resubmitting to collect the certificate", tx.Digest())
		if err := o.quorumDriver.SubmitTransactionNoTicket(context.WithoutCancel(ctx), tx); err != nil {
			return driver.QuorumResult{}, fmt.Errorf("%w: failed resubmitting transaction [%s]: %w", driver.ErrQuorumDriverInternal, tx.Digest(), err)
		}
		return t.Wait(ctx)
	case <-ctx.Done():
		return driver.QuorumResult{}, ctx.Err()
	}
}

// fulfillTickets resolves the tickets of every result of the quorum driver.
// It runs apart from the local execution loop, whose pace depends on the execution engine.
func (o *Orchestrator) fulfillTickets(ctx context.Context, sub driver.EffectsSubscription) {
	for {
		item, err := sub.Recv(ctx)
		if err != nil {
			var lagged *driver.LaggedError
			if errors.As(err, &lagged) {
				// the waiters of the skipped results time out, their records stay for recovery
				logger.Warnf("ticket notifier lagged, skipped [%d] results", lagged.Skipped)
				continue
			}
			if errors.HasCause(err, driver.ErrStreamClosed) {
				logger.Errorf("effects stream closed, tickets will no longer be fulfilled")
			}
			return
		}
		result := item.Result()
		o.rememberFinalized(item.Digest, result)
		if o.tickets.Fulfill(item.Digest, result) && logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("fulfilled ticket of [%s]", item.Digest)
		}
	}
}

// rememberFinalized keeps results that a new submission would not change.
func (o *Orchestrator) rememberFinalized(digest driver.Digest, result driver.QuorumResult) {
	var appErr *driver.ApplicationError
	if result.Err != nil && !errors.As(result.Err, &appErr) {
		return
	}
	if err := o.finalized.Set(digest.String(), result); err != nil {
		logger.Warnf("failed caching result of [%s]: %s", digest, err)
	}
}

func (o *Orchestrator) recentlyFinalized(digest driver.Digest) (driver.QuorumResult, bool) {
	v, err := o.finalized.Get(digest.String())
	if err != nil {
		if !errors.HasCause(err, ttlcache.ErrNotFound) {
			logger.Warnf("failed reading cached result of [%s]: %s", digest, err)
		}
		return driver.QuorumResult{}, false
	}
	return v.(driver.QuorumResult), true
}
