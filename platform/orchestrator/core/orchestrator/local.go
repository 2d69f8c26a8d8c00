/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
)

// executeFinalizedTxLocallyWithTimeout applies the certified effects of tx to the local state.
// It is a no-op if tx was already executed. The engine call is bounded by LocalExecutionTimeout;
// past it the call is abandoned, not cancelled, and may still complete.
func (o *Orchestrator) executeFinalizedTxLocallyWithTimeout(ctx context.Context, tx *driver.ExecutableTransaction, cert *driver.EffectsCertificate) error {
	digest := tx.Digest()
	executed, err := o.validatorState.IsTxAlreadyExecuted(digest)
	if err != nil {
		return fmt.Errorf("%w: failed checking execution status of [%s]: %w", driver.ErrLocalExecution, digest, err)
	}
	if executed {
		logger.Debugf("transaction [%s] already executed", digest)
		return nil
	}

	txType := txTypeOf(&tx.Transaction)
	o.metrics.LocalExecutionInFlight.With(txTypeLabel, txType).Add(1)
	defer o.metrics.LocalExecutionInFlight.With(txTypeLabel, txType).Add(-1)
	start := time.Now()
	defer func() { o.metrics.LocalExecutionLatency.With(txTypeLabel, txType).Observe(time.Since(start).Seconds()) }()

	epochStore := o.validatorState.LoadEpochStore()
	done := make(chan error, 1)
	go func() {
		done <- o.validatorState.ExecuteCertificateWithEffects(context.WithoutCancel(ctx), tx, cert, epochStore)
	}()

	timer := time.NewTimer(o.config.LocalExecutionTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			o.metrics.LocalExecutionFailure.With(txTypeLabel, txType).Add(1)
			logger.Debugf("local execution of [%s] failed: %s", digest, err)
			return fmt.Errorf("%w: tx [%s]: %w", driver.ErrLocalExecution, digest, err)
		}
		o.metrics.LocalExecutionSuccess.With(txTypeLabel, txType).Add(1)
		logger.Debugf("transaction [%s] executed locally in [%s]", digest, time.Since(start))
		return nil
	case <-timer.C:
		o.metrics.LocalExecutionTimeout.With(txTypeLabel, txType).Add(1)
		logger.Debugf("local execution of [%s] timed out", digest)
		return errors.Wrapf(driver.ErrLocalExecutionTimeout, "tx [%s] after [%s]", digest, o.config.LocalExecutionTimeout)
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "stopped waiting for local execution of [%s]", digest)
	}
}
