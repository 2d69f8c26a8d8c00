/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
)

// scheduleTxesInLog resubmits every transaction left in the pending log by a previous run.
// A failing transaction does not stop the others.
func (o *Orchestrator) scheduleTxesInLog(ctx context.Context) {
	start := time.Now()
	txs, err := o.pendingLog.LoadAll(ctx)
	if err != nil {
		logger.Errorf("failed loading pending transactions, none recovered: %s", err)
		return
	}
	if len(txs) == 0 {
		logger.Infof("no pending transactions to recover")
		return
	}
	logger.Infof("recovering [%d] pending transactions", len(txs))
	logger.Debugf("pending transactions to recover: [%s]", logging.Joined(txs, 100, func(tx *driver.VerifiedTransaction) string {
		return tx.Digest().String()
	}))

	failed := 0
	for i, tx := range txs {
		if i > 0 && i%recoveryProgressInterval == 0 {
			logger.Infof("recovered [%d] out of [%d] pending transactions", i, len(txs))
		}
		err := o.recovery.RunWithContext(ctx, func(ctx context.Context) error {
			return o.quorumDriver.SubmitTransactionNoTicket(ctx, tx)
		})
		if err != nil {
			if ctx.Err() != nil {
				logger.Warnf("recovery interrupted after [%d] out of [%d] pending transactions", i, len(txs))
				return
			}
			failed++
			logger.Errorf("failed resubmitting pending transaction [%s]: %s", tx.Digest(), err)
			continue
		}
		o.metrics.PendingRecovered.Add(1)
	}
	logger.Infof("recovery of [%d] pending transactions done in [%s], [%d] failed", len(txs), time.Since(start), failed)
}
