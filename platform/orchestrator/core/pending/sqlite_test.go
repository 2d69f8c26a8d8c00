/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteDataSource(dir, name string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(dir, name+".sqlite"))
}

func TestSQLiteLog(t *testing.T) {
	tempDir := t.TempDir()
	runCases(t, func(t *testing.T, name string) driver.PendingLog {
		l, err := OpenSQLiteLog(Opts{DataSource: sqliteDataSource(tempDir, name)})
		require.NoError(t, err)
		return l
	})
}

func TestSQLiteLogSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	opts := Opts{Persistence: SQLitePersistence, DataSource: sqliteDataSource(t.TempDir(), "reopen"), Table: "fullnode_pending"}

	l, err := Open(opts)
	require.NoError(t, err)
	tx := newTx(1, true)
	created, err := l.WriteIfAbsent(ctx, tx)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, l.Close())

	l, err = Open(opts)
	require.NoError(t, err)
	defer l.Close()
	all, err := l.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, tx.Digest(), all[0].Digest())
	assert.True(t, all[0].ContainsSharedObject())
}

func TestSQLiteLogInvalidTable(t *testing.T) {
	_, err := OpenSQLiteLog(Opts{DataSource: sqliteDataSource(t.TempDir(), "invalid"), Table: "pending; DROP TABLE x"})
	assert.EqualError(t, err, "invalid table name [pending; DROP TABLE x]")
}
