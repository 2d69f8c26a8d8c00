/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"context"
	"net/http"

	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
)

type PendingLister interface {
	LoadAllPendingTransactions(ctx context.Context) ([]*driver.VerifiedTransaction, error)
}

// PendingTransaction is the admin view of a record of the pending log.
type PendingTransaction struct {
	Digest        string   `json:"digest" yaml:"digest"`
	VerifiedEpoch uint64   `json:"verifiedEpoch" yaml:"verifiedEpoch"`
	SharedObjects []string `json:"sharedObjects,omitempty" yaml:"sharedObjects,omitempty"`
	Size          int      `json:"size" yaml:"size"`
}

func NewPendingTransaction(tx *driver.VerifiedTransaction) PendingTransaction {
	p := PendingTransaction{
		Digest:        tx.Digest().String(),
		VerifiedEpoch: tx.VerifiedEpoch,
		Size:          len(tx.Data),
	}
	for _, id := range tx.SharedObjects {
		p.SharedObjects = append(p.SharedObjects, string(id))
	}
	return p
}

type pendingHandler struct {
	lister PendingLister
	logger logger
}

// InstallPendingHandler serves GET /v1/pending and GET /v1/pending/{Digest}.
func InstallPendingHandler(h *HttpHandler, lister PendingLister) {
	ph := &pendingHandler{lister: lister, logger: h.Logger}
	h.RegisterURI("/pending", http.MethodGet, ph)
	h.RegisterURI("/pending/{Digest}", http.MethodGet, ph)
}

func (p *pendingHandler) ParsePayload([]byte) (interface{}, error) {
	return nil, nil
}

func (p *pendingHandler) HandleRequest(ctx *ReqContext) (interface{}, int) {
	var digest driver.Digest
	raw, single := ctx.Vars["Digest"]
	if single {
		var err error
		if digest, err = driver.ParseDigest(raw); err != nil {
			return &ResponseErr{Reason: err.Error()}, http.StatusBadRequest
		}
	}

	txs, err := p.lister.LoadAllPendingTransactions(ctx.Req.Context())
	if err != nil {
		p.logger.Errorf("failed loading pending transactions: %s", err)
		return &ResponseErr{Reason: "failed loading pending transactions"}, http.StatusInternalServerError
	}

	if !single {
		res := make([]PendingTransaction, 0, len(txs))
		for _, tx := range txs {
			res = append(res, NewPendingTransaction(tx))
		}
		return res, http.StatusOK
	}
	for _, tx := range txs {
		if tx.Digest() == digest {
			return NewPendingTransaction(tx), http.StatusOK
		}
	}
	return &ResponseErr{Reason: "transaction [" + raw + "] not pending"}, http.StatusNotFound
}
