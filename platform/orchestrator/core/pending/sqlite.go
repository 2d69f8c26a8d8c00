/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqlitePragmas = `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;
	PRAGMA synchronous = NORMAL;
	PRAGMA temp_store = memory;`

const sqliteDriverName = "sqlite"

func OpenSQLiteLog(opts Opts) (*SQLLog, error) {
	maxOpenConns := opts.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	readDB, writeDB, err := openSQLite(opts.DataSource, maxOpenConns, opts.SkipPragmas)
	if err != nil {
		return nil, fmt.Errorf("error opening db: %w", err)
	}
	l, err := newSQLLog(readDB, writeDB, opts.Table, sqliteDialect)
	if err != nil {
		return nil, err
	}
	if err := l.CreateSchema(); err != nil {
		return nil, err
	}
	return l, nil
}

func openSQLite(dataSourceName string, maxOpenConns int, skipPragmas bool) (readDB *sql.DB, writeDB *sql.DB, err error) {
	readDB, err = sql.Open(sqliteDriverName, dataSourceName)
	if err != nil {
		logger.Error(err)
		if strings.Contains(err.Error(), "out of memory (14)") {
			return nil, nil, fmt.Errorf("can't open %s database, does the folder exist?: %w", sqliteDriverName, err)
		}
		return nil, nil, fmt.Errorf("can't open %s database: %w", sqliteDriverName, err)
	}
	readDB.SetMaxOpenConns(maxOpenConns)
	if err = readDB.Ping(); err != nil {
		return nil, nil, err
	}
	logger.Infof("connected to [%s] for reads, max open connections: %d", sqliteDriverName, maxOpenConns)

	// sqlite can handle concurrent reads in WAL mode if the writes are throttled in 1 connection
	writeDB, err = sql.Open(sqliteDriverName, dataSourceName)
	if err != nil {
		logger.Error(err)
		return nil, nil, fmt.Errorf("can't open sql database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	if err = writeDB.Ping(); err != nil {
		return nil, nil, err
	}
	if skipPragmas {
		if !strings.Contains(dataSourceName, "WAL") {
			logger.Warn("skipping default pragmas. Set at least ?_pragma=journal_mode(WAL) or similar in the dataSource to prevent SQLITE_BUSY errors")
		}
	} else {
		logger.Debug(sqlitePragmas)
		if _, err = readDB.Exec(sqlitePragmas); err != nil {
			return nil, nil, fmt.Errorf("error setting pragmas: %w", err)
		}
		if _, err = writeDB.Exec(sqlitePragmas); err != nil {
			return nil, nil, fmt.Errorf("error setting pragmas: %w", err)
		}
	}
	logger.Infof("connected to [%s] for writes, max open connections: 1", sqliteDriverName)

	return readDB, writeDB, nil
}
