/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"testing"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type epochStore struct {
	epoch uint64
	calls int
	fail  error
}

func (e *epochStore) Epoch() uint64 { return e.epoch }

func (e *epochStore) VerifyTransaction(tx *driver.Transaction) (*driver.VerifiedTransaction, error) {
	e.calls++
	if e.fail != nil {
		return nil, e.fail
	}
	return driver.NewVerifiedTransaction(tx, e.epoch), nil
}

func TestVerifyIsCachedPerEpoch(t *testing.T) {
	c := NewCache(time.Minute, 0)
	defer c.Close()

	store := &epochStore{epoch: 3}
	tx := &driver.Transaction{Data: []byte("tx"), Signatures: [][]byte{[]byte("sig")}}

	v1, err := c.Verify(store, tx)
	require.NoError(t, err)
	v2, err := c.Verify(store, tx)
	require.NoError(t, err)
	assert.Same(t, v1, v2)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 1, c.Len())

	store.epoch = 4
	v3, err := c.Verify(store, tx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v3.VerifiedEpoch)
	assert.Equal(t, 2, store.calls)
}

func TestVerifyChecksSignaturesOfCachedEntry(t *testing.T) {
	c := NewCache(time.Minute, 0)
	defer c.Close()

	store := &epochStore{epoch: 1}
	_, err := c.Verify(store, &driver.Transaction{Data: []byte("tx"), Signatures: [][]byte{[]byte("good")}})
	require.NoError(t, err)

	store.fail = driver.ErrInvalidUserSignature
	_, err = c.Verify(store, &driver.Transaction{Data: []byte("tx"), Signatures: [][]byte{[]byte("forged")}})
	assert.True(t, errors.HasCause(err, driver.ErrInvalidUserSignature))
	assert.Equal(t, 2, store.calls)
}

func TestFailuresAreNotCached(t *testing.T) {
	c := NewCache(time.Minute, 0)
	defer c.Close()

	store := &epochStore{epoch: 1, fail: driver.ErrInvalidUserSignature}
	tx := &driver.Transaction{Data: []byte("tx")}
	_, err := c.Verify(store, tx)
	assert.ErrorIs(t, err, driver.ErrInvalidUserSignature)
	assert.Equal(t, 0, c.Len())

	store.fail = nil
	_, err = c.Verify(store, tx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestEntriesExpire(t *testing.T) {
	c := NewCache(20*time.Millisecond, 0)
	defer c.Close()

	store := &epochStore{epoch: 1}
	tx := &driver.Transaction{Data: []byte("tx")}
	_, err := c.Verify(store, tx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 10*time.Millisecond)
	_, err = c.Verify(store, tx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}
