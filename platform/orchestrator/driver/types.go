/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

const DigestLength = sha256.Size

// Digest identifies a transaction by the SHA-256 of its content.
type Digest [DigestLength]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) Bytes() []byte {
	return d[:]
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest decodes the hex representation produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, errors.Wrapf(err, "invalid digest [%s]", s)
	}
	return DigestFromBytes(raw)
}

func DigestFromBytes(raw []byte) (Digest, error) {
	var d Digest
	if len(raw) != DigestLength {
		return d, errors.Errorf("invalid digest length, expected [%d], got [%d]", DigestLength, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

type ObjectID string

// Transaction is a signed transaction as submitted by a client.
type Transaction struct {
	Data       []byte
	Signatures [][]byte
	// SharedObjects lists the multi-writer objects the transaction touches.
	SharedObjects []ObjectID
}

// Digest commits to the transaction data and to its shared objects, in order.
// Signatures are excluded. Every field is length-prefixed.
func (t *Transaction) Digest() Digest {
	h := sha256.New()
	writeLengthPrefixed(h, t.Data)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(t.SharedObjects)))
	_, _ = h.Write(n[:])
	for _, id := range t.SharedObjects {
		writeLengthPrefixed(h, []byte(id))
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

func writeLengthPrefixed(w io.Writer, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	_, _ = w.Write(n[:])
	_, _ = w.Write(b)
}

func (t *Transaction) ContainsSharedObject() bool {
	return len(t.SharedObjects) > 0
}

func (t *Transaction) Equal(o *Transaction) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !bytes.Equal(t.Data, o.Data) || len(t.Signatures) != len(o.Signatures) || len(t.SharedObjects) != len(o.SharedObjects) {
		return false
	}
	for i := range t.Signatures {
		if !bytes.Equal(t.Signatures[i], o.Signatures[i]) {
			return false
		}
	}
	for i := range t.SharedObjects {
		if t.SharedObjects[i] != o.SharedObjects[i] {
			return false
		}
	}
	return true
}

// VerifiedTransaction is a Transaction whose signatures have been checked by an EpochStore.
type VerifiedTransaction struct {
	Transaction
	VerifiedEpoch uint64
}

func NewVerifiedTransaction(tx *Transaction, epoch uint64) *VerifiedTransaction {
	return &VerifiedTransaction{Transaction: *tx, VerifiedEpoch: epoch}
}

// ExecutableTransaction is a VerifiedTransaction tagged with the epoch the quorum executed it in.
type ExecutableTransaction struct {
	*VerifiedTransaction
	ExecutedEpoch uint64
}

func NewExecutableFromQuorumExecution(tx *VerifiedTransaction, executedEpoch uint64) *ExecutableTransaction {
	return &ExecutableTransaction{VerifiedTransaction: tx, ExecutedEpoch: executedEpoch}
}

// EffectsCertificate is the quorum-certified effects of a transaction.
type EffectsCertificate struct {
	TransactionDigest Digest
	ExecutedEpoch     uint64
	Effects           []byte
	// Certificate is the aggregated quorum signature over Effects.
	Certificate []byte
}

type Event struct {
	Type    string
	Payload []byte
}

// QuorumResponse is what the quorum driver produces for a finalized transaction.
type QuorumResponse struct {
	EffectsCert *EffectsCertificate
	Events      []Event
}

// QuorumResult is the value a ticket resolves to: either a response or the error the quorum reported.
type QuorumResult struct {
	Response *QuorumResponse
	Err      error
}

// EffectsQueueResult is an item of the quorum driver's result stream.
// Transaction is set only on success.
type EffectsQueueResult struct {
	Digest      Digest
	Transaction *VerifiedTransaction
	Response    *QuorumResponse
	Err         error
}

func (r *EffectsQueueResult) Result() QuorumResult {
	return QuorumResult{Response: r.Response, Err: r.Err}
}

type ExecutionRequestType int

const (
	ReturnOnFinality ExecutionRequestType = iota
	WaitForLocalExecution
)

func (t ExecutionRequestType) String() string {
	switch t {
	case ReturnOnFinality:
		return "ReturnOnFinality"
	case WaitForLocalExecution:
		return "WaitForLocalExecution"
	default:
		return "Unknown"
	}
}

type ExecutionRequest struct {
	Transaction *Transaction
	RequestType ExecutionRequestType
}

// FinalizedEffects carries the certified effects returned to the client.
type FinalizedEffects struct {
	Effects       []byte
	Certificate   []byte
	ExecutedEpoch uint64
}

func NewFinalizedEffectsFromCert(cert *EffectsCertificate) FinalizedEffects {
	return FinalizedEffects{
		Effects:       cert.Effects,
		Certificate:   cert.Certificate,
		ExecutedEpoch: cert.ExecutedEpoch,
	}
}

type ExecutionResponse struct {
	Effects         FinalizedEffects
	Events          []Event
	LocallyExecuted bool
}
