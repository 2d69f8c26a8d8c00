/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pending

import (
	"encoding/json"

	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/pkg/errors"
)

const recordVersion = 1

type record struct {
	Version       int               `json:"version"`
	Data          []byte            `json:"data"`
	Signatures    [][]byte          `json:"signatures,omitempty"`
	SharedObjects []driver.ObjectID `json:"shared_objects,omitempty"`
	VerifiedEpoch uint64            `json:"verified_epoch"`
}

func marshalRecord(tx *driver.VerifiedTransaction) ([]byte, error) {
	raw, err := json.Marshal(&record{
		Version:       recordVersion,
		Data:          tx.Data,
		Signatures:    tx.Signatures,
		SharedObjects: tx.SharedObjects,
		VerifiedEpoch: tx.VerifiedEpoch,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed marshalling pending record [%s]", tx.Digest())
	}
	return raw, nil
}

func unmarshalRecord(raw []byte) (*driver.VerifiedTransaction, error) {
	r := &record{}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling pending record")
	}
	if r.Version != recordVersion {
		return nil, errors.Errorf("invalid pending record version, expected %d, got %d", recordVersion, r.Version)
	}
	return &driver.VerifiedTransaction{
		Transaction: driver.Transaction{
			Data:          r.Data,
			Signatures:    r.Signatures,
			SharedObjects: r.SharedObjects,
		},
		VerifiedEpoch: r.VerifiedEpoch,
	}, nil
}
