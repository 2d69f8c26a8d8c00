/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/onsi/gomega"
)

func mockSQLLog(db *sql.DB) *SQLLog {
	l, err := newSQLLog(db, db, "pending", postgresDialect)
	Expect(err).ToNot(HaveOccurred())
	return l
}

func TestSQLWriteIfAbsent(t *testing.T) {
	RegisterTestingT(t)

	db, mock, err := sqlmock.New()
	Expect(err).ToNot(HaveOccurred())

	tx := newTx(1, false)
	payload, err := marshalRecord(tx)
	Expect(err).ToNot(HaveOccurred())

	query := regexp.QuoteMeta("INSERT INTO pending (digest, payload) VALUES ($1, $2) ON CONFLICT (digest) DO NOTHING")
	mock.ExpectExec(query).WithArgs(tx.Digest().String(), payload).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(tx.Digest().String(), payload).WillReturnResult(sqlmock.NewResult(0, 0))

	l := mockSQLLog(db)
	created, err := l.WriteIfAbsent(context.Background(), tx)
	Expect(err).ToNot(HaveOccurred())
	Expect(created).To(BeTrue())

	created, err = l.WriteIfAbsent(context.Background(), tx)
	Expect(err).ToNot(HaveOccurred())
	Expect(created).To(BeFalse())

	Expect(mock.ExpectationsWereMet()).To(Succeed())
}

func TestSQLWriteIfAbsent_ExecError(t *testing.T) {
	RegisterTestingT(t)

	db, mock, err := sqlmock.New()
	Expect(err).ToNot(HaveOccurred())

	query := regexp.QuoteMeta("INSERT INTO pending (digest, payload) VALUES ($1, $2) ON CONFLICT (digest) DO NOTHING")
	mock.ExpectExec(query).WillReturnError(sql.ErrConnDone)

	_, err = mockSQLLog(db).WriteIfAbsent(context.Background(), newTx(1, false))
	Expect(err).To(MatchError(ContainSubstring("failed writing pending record")))
	Expect(mock.ExpectationsWereMet()).To(Succeed())
}

func TestSQLRemove(t *testing.T) {
	RegisterTestingT(t)

	db, mock, err := sqlmock.New()
	Expect(err).ToNot(HaveOccurred())

	tx := newTx(1, false)
	query := regexp.QuoteMeta("DELETE FROM pending WHERE digest = $1")
	mock.ExpectExec(query).WithArgs(tx.Digest().String()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(query).WithArgs(tx.Digest().String()).WillReturnError(sql.ErrConnDone)

	l := mockSQLLog(db)
	Expect(l.Remove(context.Background(), tx.Digest())).To(Succeed())
	Expect(l.Remove(context.Background(), tx.Digest())).To(MatchError(ContainSubstring("failed removing pending record")))
	Expect(mock.ExpectationsWereMet()).To(Succeed())
}

func TestSQLLoadAll(t *testing.T) {
	RegisterTestingT(t)

	db, mock, err := sqlmock.New()
	Expect(err).ToNot(HaveOccurred())

	a, b := newTx(1, false), newTx(2, true)
	rawA, err := marshalRecord(a)
	Expect(err).ToNot(HaveOccurred())
	rawB, err := marshalRecord(b)
	Expect(err).ToNot(HaveOccurred())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM pending")).
		WillReturnRows(mock.NewRows([]string{"payload"}).AddRow(rawA).AddRow(rawB))

	all, err := mockSQLLog(db).LoadAll(context.Background())
	Expect(err).ToNot(HaveOccurred())
	Expect(all).To(HaveLen(2))
	Expect(all[0].Digest()).To(Equal(a.Digest()))
	Expect(all[1].Digest()).To(Equal(b.Digest()))
	Expect(all[1].ContainsSharedObject()).To(BeTrue())
	Expect(mock.ExpectationsWereMet()).To(Succeed())
}

func TestSQLLoadAll_CorruptedRecord(t *testing.T) {
	RegisterTestingT(t)

	db, mock, err := sqlmock.New()
	Expect(err).ToNot(HaveOccurred())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM pending")).
		WillReturnRows(mock.NewRows([]string{"payload"}).AddRow([]byte(`{"version":2}`)))

	_, err = mockSQLLog(db).LoadAll(context.Background())
	Expect(err).To(MatchError("invalid pending record version, expected 1, got 2"))
	Expect(mock.ExpectationsWereMet()).To(Succeed())
}

func TestSQLCreateSchema(t *testing.T) {
	RegisterTestingT(t)

	db, mock, err := sqlmock.New()
	Expect(err).ToNot(HaveOccurred())

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS pending")).WillReturnResult(sqlmock.NewResult(0, 0))
	Expect(mockSQLLog(db).CreateSchema()).To(Succeed())
	Expect(mock.ExpectationsWereMet()).To(Succeed())
}
