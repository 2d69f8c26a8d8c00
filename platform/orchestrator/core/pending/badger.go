/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/pkg/errors"
)

const (
	defaultGCInterval     = 5 * time.Minute
	defaultGCDiscardRatio = 0.5 // recommended ratio by badger docs
	maxConflictRetries    = 10
)

var keyPrefix = []byte("pending/")

// BadgerLog stores pending records in a badger database, one key per digest.
type BadgerLog struct {
	db            *badger.DB
	cancelCleaner context.CancelFunc
}

func OpenBadgerLog(opts Opts) (*BadgerLog, error) {
	if len(opts.DataSource) == 0 {
		return nil, errors.Errorf("path cannot be empty")
	}
	opt := badger.DefaultOptions(opts.DataSource)
	opt.Logger = logger
	return openBadger(opt, opts.GCInterval)
}

// OpenInMemoryBadgerLog is used by tests and ephemeral nodes.
func OpenInMemoryBadgerLog() (*BadgerLog, error) {
	opt := badger.DefaultOptions("").WithInMemory(true)
	opt.Logger = logger
	return openBadger(opt, 0)
}

func openBadger(opt badger.Options, gcInterval time.Duration) (*BadgerLog, error) {
	db, err := badger.Open(opt)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open DB at '%s'", opt.Dir)
	}
	if gcInterval <= 0 {
		gcInterval = defaultGCInterval
	}
	return &BadgerLog{db: db, cancelCleaner: autoCleaner(db, gcInterval, defaultGCDiscardRatio)}, nil
}

func (b *BadgerLog) WriteIfAbsent(_ context.Context, tx *driver.VerifiedTransaction) (bool, error) {
	key := dbKey(tx.Digest())
	value, err := marshalRecord(tx)
	if err != nil {
		return false, err
	}

	for i := 0; i < maxConflictRetries; i++ {
		created := false
		err = b.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return nil
			}
			if err != badger.ErrKeyNotFound {
				return errors.Wrapf(err, "could not retrieve item for key %s", tx.Digest())
			}
			if err := txn.Set(key, value); err != nil {
				return errors.Wrapf(err, "could not set value for key %s", tx.Digest())
			}
			created = true
			return nil
		})
		if err == badger.ErrConflict {
			// a concurrent writer committed first, re-read
			logger.Debugf("conflict writing pending record [%s], retry [%d]", tx.Digest(), i)
			continue
		}
		if err != nil {
			return false, err
		}
		return created, nil
	}
	return false, errors.Errorf("could not write pending record [%s], too many conflicts", tx.Digest())
}

func (b *BadgerLog) Remove(_ context.Context, digest driver.Digest) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(dbKey(digest))
	})
	if err != nil {
		return errors.Wrapf(err, "could not delete pending record [%s]", digest)
	}
	return nil
}

func (b *BadgerLog) LoadAll(context.Context) ([]*driver.VerifiedTransaction, error) {
	var res []*driver.VerifiedTransaction
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return errors.Wrapf(err, "could not get value for key %s", it.Item().Key())
			}
			tx, err := unmarshalRecord(raw)
			if err != nil {
				return err
			}
			res = append(res, tx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *BadgerLog) Close() error {
	if b.cancelCleaner != nil {
		b.cancelCleaner()
	}
	if err := b.db.Close(); err != nil {
		return errors.Wrap(err, "could not close DB")
	}
	return nil
}

func dbKey(digest driver.Digest) []byte {
	return append(append([]byte{}, keyPrefix...), digest[:]...)
}

// badgerDBInterface exists mainly for testing the auto cleaner
type badgerDBInterface interface {
	IsClosed() bool
	RunValueLogGC(discardRatio float64) error
	Opts() badger.Options
}

// autoCleaner runs badger garbage collection periodically as long as the db is open
func autoCleaner(db badgerDBInterface, badgerGCInterval time.Duration, badgerDiscardRatio float64) context.CancelFunc {
	if db == nil || db.Opts().InMemory {
		// not needed when we run badger in memory mode
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(badgerGCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if db.IsClosed() {
					return
				}
				if err := db.RunValueLogGC(badgerDiscardRatio); err != nil {
					switch err {
					case badger.ErrRejected:
						logger.Warnf("badger: value log garbage collection rejected")
					case badger.ErrNoRewrite:
					default:
						logger.Warnf("badger: unexpected error while performing value log clean up: %s", err)
					}
				}
			}
		}
	}()

	return cancel
}
