/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	tx := &Transaction{Data: []byte("transfer 10"), Signatures: [][]byte{[]byte("sig")}}
	d := tx.Digest()
	assert.NotEqual(t, Digest(sha256.Sum256([]byte("transfer 10"))), d)
	assert.False(t, d.IsZero())

	// signatures do not contribute to the digest
	other := &Transaction{Data: []byte("transfer 10"), Signatures: [][]byte{[]byte("another")}}
	assert.Equal(t, d, other.Digest())

	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDigest("zz")
	assert.Error(t, err)
	_, err = ParseDigest("abcd")
	assert.Error(t, err)
	_, err = DigestFromBytes(make([]byte, 31))
	assert.Error(t, err)
}

func TestDigestCoversSharedObjects(t *testing.T) {
	plain := &Transaction{Data: []byte("swap")}
	shared := &Transaction{Data: []byte("swap"), SharedObjects: []ObjectID{"pool"}}
	assert.NotEqual(t, plain.Digest(), shared.Digest())

	other := &Transaction{Data: []byte("swap"), SharedObjects: []ObjectID{"pool", "oracle"}}
	assert.NotEqual(t, shared.Digest(), other.Digest())
	reordered := &Transaction{Data: []byte("swap"), SharedObjects: []ObjectID{"oracle", "pool"}}
	assert.NotEqual(t, other.Digest(), reordered.Digest())

	// field boundaries are part of the encoding
	split := &Transaction{Data: []byte("swap"), SharedObjects: []ObjectID{"ab", "c"}}
	joined := &Transaction{Data: []byte("swap"), SharedObjects: []ObjectID{"a", "bc"}}
	assert.NotEqual(t, split.Digest(), joined.Digest())

	same := &Transaction{Data: []byte("swap"), Signatures: [][]byte{[]byte("sig")}, SharedObjects: []ObjectID{"pool"}}
	assert.Equal(t, shared.Digest(), same.Digest())
}

func TestContainsSharedObject(t *testing.T) {
	assert.False(t, (&Transaction{Data: []byte("a")}).ContainsSharedObject())
	assert.True(t, (&Transaction{Data: []byte("a"), SharedObjects: []ObjectID{"pool"}}).ContainsSharedObject())
}

func TestTransactionEqual(t *testing.T) {
	a := &Transaction{Data: []byte("a"), Signatures: [][]byte{[]byte("s")}, SharedObjects: []ObjectID{"o"}}
	b := &Transaction{Data: []byte("a"), Signatures: [][]byte{[]byte("s")}, SharedObjects: []ObjectID{"o"}}
	assert.True(t, a.Equal(b))

	b.Signatures[0] = []byte("t")
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Transaction)(nil).Equal(nil))
}

func TestExecutable(t *testing.T) {
	vtx := NewVerifiedTransaction(&Transaction{Data: []byte("a")}, 3)
	etx := NewExecutableFromQuorumExecution(vtx, 4)
	assert.Equal(t, uint64(3), etx.VerifiedEpoch)
	assert.Equal(t, uint64(4), etx.ExecutedEpoch)
	assert.Equal(t, vtx.Digest(), etx.Digest())
}

func TestExecutionRequestTypeString(t *testing.T) {
	assert.Equal(t, "ReturnOnFinality", ReturnOnFinality.String())
	assert.Equal(t, "WaitForLocalExecution", WaitForLocalExecution.String())
	assert.Equal(t, "Unknown", ExecutionRequestType(9).String())
}
