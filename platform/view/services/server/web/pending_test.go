/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/server/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	txs []*driver.VerifiedTransaction
	err error
}

func (f *fakeLister) LoadAllPendingTransactions(context.Context) ([]*driver.VerifiedTransaction, error) {
	return f.txs, f.err
}

func newPendingHandler(t *testing.T, lister web.PendingLister) *web.HttpHandler {
	l, _ := logging.NewTestLogger(t)
	h := web.NewHttpHandler(l)
	web.InstallPendingHandler(h, lister)
	return h
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestPendingHandler(t *testing.T) {
	single := driver.NewVerifiedTransaction(&driver.Transaction{Data: []byte("transfer 1")}, 3)
	shared := driver.NewVerifiedTransaction(&driver.Transaction{Data: []byte("transfer 22"), SharedObjects: []driver.ObjectID{"0x5"}}, 4)
	h := newPendingHandler(t, &fakeLister{txs: []*driver.VerifiedTransaction{single, shared}})

	resp := get(h, "/v1/pending")
	require.Equal(t, http.StatusOK, resp.Code)
	var all []web.PendingTransaction
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &all))
	assert.Equal(t, []web.PendingTransaction{
		{Digest: single.Digest().String(), VerifiedEpoch: 3, Size: 10},
		{Digest: shared.Digest().String(), VerifiedEpoch: 4, Size: 11, SharedObjects: []string{"0x5"}},
	}, all)

	resp = get(h, "/v1/pending/"+shared.Digest().String())
	require.Equal(t, http.StatusOK, resp.Code)
	var one web.PendingTransaction
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &one))
	assert.Equal(t, shared.Digest().String(), one.Digest)

	missing := driver.NewVerifiedTransaction(&driver.Transaction{Data: []byte("missing")}, 1).Digest().String()
	resp = get(h, "/v1/pending/"+missing)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "not pending")

	resp = get(h, "/v1/pending/xyz")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid digest [xyz]")
}

func TestPendingHandlerEmpty(t *testing.T) {
	resp := get(newPendingHandler(t, &fakeLister{}), "/v1/pending")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())
}

func TestPendingHandlerFailure(t *testing.T) {
	resp := get(newPendingHandler(t, &fakeLister{err: errors.New("disk gone")}), "/v1/pending")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"reason":"failed loading pending transactions"}`, resp.Body.String())
}
