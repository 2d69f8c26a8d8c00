/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package middleware_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/server/web/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func tag(name string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Trace", name+">")
			next.ServeHTTP(w, r)
			w.Header().Add("X-Trace", "<"+name)
		})
	}
}

var _ = Describe("Chain", func() {
	var (
		pending http.Handler
		resp    *httptest.ResponseRecorder
		req     *http.Request
	)

	BeforeEach(func() {
		pending = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Trace", "pending")
		})
		resp = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/v1/pending", nil)
	})

	It("runs the first middleware outermost", func() {
		middleware.NewChain(tag("log"), tag("recover"), tag("cert")).Handler(pending).ServeHTTP(resp, req)
		Expect(resp.Header().Values("X-Trace")).To(Equal([]string{
			"log>", "recover>", "cert>", "pending", "<cert", "<recover", "<log",
		}))
	})

	It("calls the handler directly when empty", func() {
		middleware.NewChain().Handler(pending).ServeHTTP(resp, req)
		Expect(resp.Header().Values("X-Trace")).To(Equal([]string{"pending"}))
	})

	It("answers not found without a handler", func() {
		middleware.NewChain(tag("log")).Handler(nil).ServeHTTP(resp, req)
		Expect(resp.Code).To(Equal(http.StatusNotFound))
		Expect(resp.Header().Values("X-Trace")).To(HaveLen(2))
	})
})
