/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

var cases = []struct {
	Name string
	Fn   func(*testing.T, driver.PendingLog)
}{
	{"WriteIfAbsent", testWriteIfAbsent},
	{"RemoveIsIdempotent", testRemoveIsIdempotent},
	{"LoadAll", testLoadAll},
	{"ConcurrentWriters", testConcurrentWriters},
}

func runCases(t *testing.T, open func(t *testing.T, name string) driver.PendingLog) {
	for _, c := range cases {
		t.Run(c.Name, func(xt *testing.T) {
			l := open(xt, c.Name)
			defer func() { assert.NoError(xt, l.Close()) }()
			c.Fn(xt, l)
		})
	}
}

func newTx(i int, shared bool) *driver.VerifiedTransaction {
	tx := &driver.Transaction{
		Data:       []byte(fmt.Sprintf("tx-%d", i)),
		Signatures: [][]byte{[]byte(fmt.Sprintf("sig-%d", i))},
	}
	if shared {
		tx.SharedObjects = []driver.ObjectID{"pool"}
	}
	return driver.NewVerifiedTransaction(tx, 7)
}

func testWriteIfAbsent(t *testing.T, l driver.PendingLog) {
	ctx := context.Background()
	tx := newTx(1, false)

	created, err := l.WriteIfAbsent(ctx, tx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = l.WriteIfAbsent(ctx, tx)
	require.NoError(t, err)
	assert.False(t, created, "second write for the same digest must not create a record")

	require.NoError(t, l.Remove(ctx, tx.Digest()))
	created, err = l.WriteIfAbsent(ctx, tx)
	require.NoError(t, err)
	assert.True(t, created, "a removed record can be written again")
}

func testRemoveIsIdempotent(t *testing.T, l driver.PendingLog) {
	ctx := context.Background()
	tx := newTx(2, false)

	assert.NoError(t, l.Remove(ctx, tx.Digest()))
	_, err := l.WriteIfAbsent(ctx, tx)
	require.NoError(t, err)
	assert.NoError(t, l.Remove(ctx, tx.Digest()))
	assert.NoError(t, l.Remove(ctx, tx.Digest()))

	all, err := l.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testLoadAll(t *testing.T, l driver.PendingLog) {
	ctx := context.Background()
	expected := map[driver.Digest]*driver.VerifiedTransaction{}
	for i := 0; i < 5; i++ {
		tx := newTx(i, i%2 == 0)
		expected[tx.Digest()] = tx
		_, err := l.WriteIfAbsent(ctx, tx)
		require.NoError(t, err)
	}

	all, err := l.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(expected))
	for _, tx := range all {
		exp, ok := expected[tx.Digest()]
		require.True(t, ok)
		assert.True(t, exp.Transaction.Equal(&tx.Transaction))
		assert.Equal(t, exp.VerifiedEpoch, tx.VerifiedEpoch)
		assert.Equal(t, exp.ContainsSharedObject(), tx.ContainsSharedObject())
	}
}

func testConcurrentWriters(t *testing.T, l driver.PendingLog) {
	ctx := context.Background()
	tx := newTx(3, false)
	created := atomic.NewInt32(0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.WriteIfAbsent(ctx, tx)
			assert.NoError(t, err)
			if ok {
				created.Inc()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
}
