/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/pkg/errors"
)

var tableNameRegexp = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type dialect struct {
	name     string
	blobType string
}

var (
	sqliteDialect   = dialect{name: "sqlite", blobType: "BLOB"}
	postgresDialect = dialect{name: "postgres", blobType: "BYTEA"}
)

// SQLLog stores pending records in a SQL table keyed by the hex digest.
// Writes go through writeDB, reads through readDB.
type SQLLog struct {
	readDB  *sql.DB
	writeDB *sql.DB
	table   string
	dialect dialect
}

func newSQLLog(readDB, writeDB *sql.DB, table string, d dialect) (*SQLLog, error) {
	if len(table) == 0 {
		table = DefaultTable
	}
	if !tableNameRegexp.MatchString(table) {
		return nil, errors.Errorf("invalid table name [%s]", table)
	}
	return &SQLLog{readDB: readDB, writeDB: writeDB, table: table, dialect: d}, nil
}

func (s *SQLLog) CreateSchema() error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	digest TEXT NOT NULL PRIMARY KEY,
	payload %s NOT NULL
);`, s.table, s.dialect.blobType)
	logger.Debug(query)
	if _, err := s.writeDB.Exec(query); err != nil {
		return errors.Wrapf(err, "error creating table [%s]", s.table)
	}
	return nil
}

func (s *SQLLog) WriteIfAbsent(ctx context.Context, tx *driver.VerifiedTransaction) (bool, error) {
	digest := tx.Digest()
	payload, err := marshalRecord(tx)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf("INSERT INTO %s (digest, payload) VALUES ($1, $2) ON CONFLICT (digest) DO NOTHING", s.table)
	logger.Debug(query, digest)

	res, err := s.writeDB.ExecContext(ctx, query, digest.String(), payload)
	if err != nil {
		return false, errors.Wrapf(err, "failed writing pending record [%s]", digest)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed reading affected rows for [%s]", digest)
	}
	return n == 1, nil
}

func (s *SQLLog) Remove(ctx context.Context, digest driver.Digest) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE digest = $1", s.table)
	logger.Debug(query, digest)

	if _, err := s.writeDB.ExecContext(ctx, query, digest.String()); err != nil {
		return errors.Wrapf(err, "failed removing pending record [%s]", digest)
	}
	return nil
}

func (s *SQLLog) LoadAll(ctx context.Context) ([]*driver.VerifiedTransaction, error) {
	query := fmt.Sprintf("SELECT payload FROM %s", s.table)
	logger.Debug(query)

	rows, err := s.readDB.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed loading pending records")
	}
	defer rows.Close()

	var res []*driver.VerifiedTransaction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrapf(err, "failed scanning pending record")
		}
		tx, err := unmarshalRecord(payload)
		if err != nil {
			return nil, err
		}
		res = append(res, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed iterating pending records")
	}
	return res, nil
}

func (s *SQLLog) Close() error {
	if s.readDB == s.writeDB {
		return s.writeDB.Close()
	}
	if err := s.readDB.Close(); err != nil {
		return errors.Wrap(err, "failed closing read db")
	}
	return errors.Wrap(s.writeDB.Close(), "failed closing write db")
}
