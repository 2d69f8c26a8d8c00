/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresDriverName = "pgx"

func OpenPostgresLog(opts Opts) (*SQLLog, error) {
	db, err := sql.Open(postgresDriverName, opts.DataSource)
	if err != nil {
		return nil, fmt.Errorf("can't open %s database: %w", postgresDriverName, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to postgres: %w", err)
	}
	logger.Infof("connected to [%s], max open connections: %d", postgresDriverName, opts.MaxOpenConns)

	l, err := newSQLLog(db, db, opts.Table, postgresDialect)
	if err != nil {
		return nil, err
	}
	if err := l.CreateSchema(); err != nil {
		return nil, err
	}
	return l, nil
}
