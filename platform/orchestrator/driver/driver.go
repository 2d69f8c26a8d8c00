/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"context"
)

// QuorumDriver drives transactions to finality against the validator set.
type QuorumDriver interface {
	// SubmitTransactionNoTicket enqueues the transaction. Results are only reported on the effects stream.
	// Re-submitting an already finalized transaction must be tolerated.
	SubmitTransactionNoTicket(ctx context.Context, tx *VerifiedTransaction) error
	// SubscribeToEffects opens a new independent subscription to the results of all transactions.
	SubscribeToEffects() EffectsSubscription
}

// EffectsSubscription is a subscriber's view of the quorum driver's result stream.
// Recv returns ErrStreamClosed once the producer is gone and the buffer is drained,
// and a *LaggedError when items were dropped because the subscriber was too slow.
type EffectsSubscription interface {
	Recv(ctx context.Context) (*EffectsQueueResult, error)
	Close()
}

// PendingLog is the durable log of transactions whose finality is unresolved.
type PendingLog interface {
	// WriteIfAbsent returns true iff the call created the record.
	WriteIfAbsent(ctx context.Context, tx *VerifiedTransaction) (bool, error)
	// Remove is idempotent.
	Remove(ctx context.Context, digest Digest) error
	LoadAll(ctx context.Context) ([]*VerifiedTransaction, error)
	Close() error
}

type EpochStore interface {
	Epoch() uint64
	VerifyTransaction(tx *Transaction) (*VerifiedTransaction, error)
}

// ValidatorState is the local execution engine.
type ValidatorState interface {
	LoadEpochStore() EpochStore
	IsTxAlreadyExecuted(digest Digest) (bool, error)
	// ExecuteCertificateWithEffects applies certified effects to local state.
	// It may be called again for the same transaction after an abandoned attempt.
	ExecuteCertificateWithEffects(ctx context.Context, tx *ExecutableTransaction, cert *EffectsCertificate, epochStore EpochStore) error
}

// EffectsNotifier signals when effects are durably recorded locally.
type EffectsNotifier interface {
	// NotifyReadExecutedEffects blocks until the effects of all digests are recorded or ctx is done.
	NotifyReadExecutedEffects(ctx context.Context, digests ...Digest) error
}
