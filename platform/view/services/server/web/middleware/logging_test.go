/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/server/web/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingLogger struct {
	mutex   sync.Mutex
	entries []string
}

func (r *recordingLogger) Infof(template string, args ...interface{}) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.entries = append(r.entries, fmt.Sprintf(template, args...))
}

func (r *recordingLogger) Errorf(template string, args ...interface{}) {
	r.Infof("ERROR "+template, args...)
}

var _ = Describe("Logging", func() {
	var (
		l    *recordingLogger
		req  *http.Request
		resp *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		l = &recordingLogger{}
		req = httptest.NewRequest("GET", "/v1/pending", nil)
		resp = httptest.NewRecorder()
	})

	It("logs the status code of the request", func() {
		h := middleware.NewChain(middleware.WithRequestLogging(l)).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		h.ServeHTTP(resp, req)

		Expect(resp.Code).To(Equal(http.StatusTeapot))
		Expect(resp.Header().Get("X-Request-Id")).NotTo(BeEmpty())
		Expect(l.entries).To(HaveLen(1))
		Expect(l.entries[0]).To(ContainSubstring("GET /v1/pending"))
		Expect(l.entries[0]).To(ContainSubstring("[418]"))
	})

	It("exposes the hijacker of the wrapped writer", func() {
		var hijackErr error
		h := middleware.NewChain(middleware.WithRequestLogging(l)).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hj, ok := w.(http.Hijacker)
			Expect(ok).To(BeTrue())
			_, _, hijackErr = hj.Hijack()
		}))
		h.ServeHTTP(resp, req)

		Expect(hijackErr).To(MatchError(ContainSubstring("does not support hijacking")))
	})

	It("recovers from panics", func() {
		h := middleware.NewChain(middleware.WithRequestLogging(l), middleware.WithRecovery(l)).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))
		h.ServeHTTP(resp, req)

		Expect(resp.Code).To(Equal(http.StatusInternalServerError))
		Expect(l.entries).To(HaveLen(2))
		Expect(l.entries[0]).To(ContainSubstring("ERROR panic serving GET /v1/pending: boom"))
		Expect(l.entries[1]).To(ContainSubstring("[500]"))
	})
})
