/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/pkg/errors"
)

type PersistenceType string

const (
	MemoryPersistence   PersistenceType = "memory"
	BadgerPersistence   PersistenceType = "badger"
	SQLitePersistence   PersistenceType = "sqlite"
	PostgresPersistence PersistenceType = "postgres"

	DefaultTable = "pending_transactions"
)

var logger = logging.MustGetLogger("orchestrator.pending")

// Opts selects and configures the backend of the pending-submission log.
type Opts struct {
	Persistence PersistenceType
	// DataSource is a directory for badger, a file or DSN for the SQL backends.
	DataSource   string
	Table        string
	MaxOpenConns int
	SkipPragmas  bool
	GCInterval   time.Duration
}

// Open returns the log configured by opts. SQL backends get their schema created.
func Open(opts Opts) (driver.PendingLog, error) {
	logger.Infof("opening pending transaction log [%s] at [%s]", opts.Persistence, opts.DataSource)
	switch opts.Persistence {
	case MemoryPersistence, "":
		return NewMemoryLog(), nil
	case BadgerPersistence:
		return OpenBadgerLog(opts)
	case SQLitePersistence:
		return OpenSQLiteLog(opts)
	case PostgresPersistence:
		return OpenPostgresLog(opts)
	default:
		return nil, errors.Errorf("unknown pending log persistence [%s]", opts.Persistence)
	}
}
