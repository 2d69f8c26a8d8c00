/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils"
	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type requestLogger struct {
	logger Logger
	next   http.Handler
}

// WithRequestLogging logs every request with its status code and duration.
func WithRequestLogging(l Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return &requestLogger{logger: l, next: next}
	}
}

func (r *requestLogger) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	reqID := utils.GenerateUUID()
	rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	w.Header().Set("X-Request-Id", reqID)

	r.next.ServeHTTP(rw, req)

	r.logger.Infof("request [%s] %s %s from [%s] -> [%d] in [%s]", reqID, req.Method, req.URL.Path, req.RemoteAddr, rw.status, time.Since(start))
}

// WithRecovery turns a panicking handler into a 500.
func WithRecovery(l Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					l.Errorf("panic serving %s %s: %v", req.Method, req.URL.Path, r)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, req)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets web socket upgrades through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
