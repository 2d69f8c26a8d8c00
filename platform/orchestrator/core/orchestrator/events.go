/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"encoding/json"

	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events"
)

const TxStatusTopic = "orchestrator.tx.status"

type TxStatus string

const (
	Submitted             TxStatus = "Submitted"
	AwaitingFinality      TxStatus = "AwaitingFinality"
	Finalized             TxStatus = "Finalized"
	QuorumError           TxStatus = "QuorumError"
	TimedOutAtCaller      TxStatus = "TimedOutAtCaller"
	LocallyExecuted       TxStatus = "LocallyExecuted"
	LocalExecutionSkipped TxStatus = "LocalExecutionSkipped"
	LocalExecutionFailed  TxStatus = "LocalExecutionFailed"
)

// TxStatusEvent reports a step of a transaction through the orchestrator.
// TimedOutAtCaller is not final: the submission keeps going.
type TxStatusEvent struct {
	Digest driver.Digest
	Status TxStatus
	Err    error
}

func (e *TxStatusEvent) Topic() string { return TxStatusTopic }

func (e *TxStatusEvent) Message() interface{} { return e }

func (e *TxStatusEvent) MarshalJSON() ([]byte, error) {
	m := struct {
		Digest string   `json:"digest"`
		Status TxStatus `json:"status"`
		Error  string   `json:"error,omitempty"`
	}{Digest: e.Digest.String(), Status: e.Status}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}
	return json.Marshal(m)
}

type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

func (o *Orchestrator) publish(digest driver.Digest, status TxStatus, err error) {
	o.publisher.Publish(&TxStatusEvent{Digest: digest, Status: status, Err: err})
}
