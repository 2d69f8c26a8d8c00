/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
)

// loopExecuteFinalizedTxLocally consumes the results of all transactions finalized
// by the quorum driver, including those submitted by others, clears their pending
// records and applies the effects of the single-writer ones locally.
// It stops when the stream closes; a lag only costs the skipped items, which stay
// in the pending log until the next start.
func (o *Orchestrator) loopExecuteFinalizedTxLocally(ctx context.Context, sub driver.EffectsSubscription) {
	for {
		item, err := sub.Recv(ctx)
		if err != nil {
			var lagged *driver.LaggedError
			switch {
			case errors.As(err, &lagged):
				logger.Warnf("local execution loop lagged, skipped [%d] results", lagged.Skipped)
				o.metrics.EffectsStreamLagged.Add(float64(lagged.Skipped))
				continue
			case errors.HasCause(err, driver.ErrStreamClosed):
				logger.Errorf("effects stream closed, local execution loop terminates, the node must be restarted")
			default:
				logger.Debugf("local execution loop stopped: %s", err)
			}
			return
		}
		o.handleEffects(ctx, item)
	}
}

func (o *Orchestrator) handleEffects(ctx context.Context, item *driver.EffectsQueueResult) {
	o.removePending(ctx, item.Digest)
	if item.Err != nil {
		logger.Debugf("transaction [%s] failed in the quorum: %s", item.Digest, item.Err)
		return
	}
	tx := item.Transaction
	if tx == nil || item.Response == nil || item.Response.EffectsCert == nil {
		logger.Errorf("incomplete result for [%s], skipping local execution", item.Digest)
		return
	}
	if tx.Digest() != item.Digest {
		logger.Errorf("result for [%s] carries transaction [%s], skipping local execution", item.Digest, tx.Digest())
		o.publish(item.Digest, LocalExecutionFailed, errors.Errorf("transaction does not match digest [%s]", item.Digest))
		return
	}
	// shared objects are executed in checkpoint order only, not in finality order
	if tx.ContainsSharedObject() {
		o.publish(item.Digest, LocalExecutionSkipped, nil)
		return
	}

	verified, err := o.verifier.Verify(o.validatorState.LoadEpochStore(), &tx.Transaction)
	if err != nil {
		logger.Errorf("finalized transaction [%s] failed verification: %s", item.Digest, err)
		o.publish(item.Digest, LocalExecutionFailed, err)
		return
	}
	cert := item.Response.EffectsCert
	executable := driver.NewExecutableFromQuorumExecution(verified, cert.ExecutedEpoch)
	if err := o.executeFinalizedTxLocallyWithTimeout(ctx, executable, cert); err != nil {
		logger.Debugf("failed executing [%s] locally: %s", item.Digest, err)
		o.publish(item.Digest, LocalExecutionFailed, err)
		return
	}
	o.publish(item.Digest, LocallyExecuted, nil)
}
