/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
)

// MemoryLog keeps records in memory. It does not survive restarts.
type MemoryLog struct {
	mutex   sync.RWMutex
	records map[driver.Digest]*driver.VerifiedTransaction
	order   []driver.Digest
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{records: map[driver.Digest]*driver.VerifiedTransaction{}}
}

func (m *MemoryLog) WriteIfAbsent(_ context.Context, tx *driver.VerifiedTransaction) (bool, error) {
	d := tx.Digest()
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.records[d]; ok {
		return false, nil
	}
	m.records[d] = tx
	m.order = append(m.order, d)
	return true, nil
}

func (m *MemoryLog) Remove(_ context.Context, digest driver.Digest) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.records[digest]; !ok {
		return nil
	}
	delete(m.records, digest)
	for i, d := range m.order {
		if d == digest {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// LoadAll returns the records in insertion order.
func (m *MemoryLog) LoadAll(context.Context) ([]*driver.VerifiedTransaction, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	res := make([]*driver.VerifiedTransaction, 0, len(m.order))
	for _, d := range m.order {
		res = append(res, m.records[d])
	}
	return res, nil
}

func (m *MemoryLog) Close() error {
	return nil
}
