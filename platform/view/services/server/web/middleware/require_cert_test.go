/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package middleware_test

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"

	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/server/web/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RequireCert", func() {
	var (
		handler http.Handler
		req     *http.Request
		resp    *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		handler = middleware.RequireCert()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req = httptest.NewRequest("GET", "/metrics", nil)
		resp = httptest.NewRecorder()
	})

	It("lets plain requests through", func() {
		handler.ServeHTTP(resp, req)
		Expect(resp.Code).To(Equal(http.StatusOK))
	})

	It("rejects tls requests without a verified chain", func() {
		req.TLS = &tls.ConnectionState{}
		handler.ServeHTTP(resp, req)
		Expect(resp.Code).To(Equal(http.StatusUnauthorized))
	})

	It("accepts tls requests with a verified chain", func() {
		req.TLS = &tls.ConnectionState{VerifiedChains: [][]*x509.Certificate{{{}}}}
		handler.ServeHTTP(resp, req)
		Expect(resp.Code).To(Equal(http.StatusOK))
	})
})
