/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/server/web/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 5 * time.Second

type TLS struct {
	Enabled           bool
	CertFile          string
	KeyFile           string
	ClientCACertFiles []string
}

func (t TLS) Config() (*tls.Config, error) {
	if !t.Enabled {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed loading tls key pair [%s, %s]", t.CertFile, t.KeyFile)
	}
	config := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if len(t.ClientCACertFiles) == 0 {
		return config, nil
	}
	pool := x509.NewCertPool()
	for _, file := range t.ClientCACertFiles {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed reading client ca [%s]", file)
		}
		if !pool.AppendCertsFromPEM(raw) {
			return nil, errors.Errorf("no certificate found in client ca [%s]", file)
		}
	}
	config.ClientCAs = pool
	config.ClientAuth = tls.VerifyClientCertIfGiven
	return config, nil
}

type Options struct {
	ListenAddress string
	Logger        logger
	TLS           TLS
}

// Server is the admin endpoint of a node.
type Server struct {
	options    Options
	mux        *http.ServeMux
	secure     middleware.Chain
	httpServer *http.Server

	mutex    sync.Mutex
	listener net.Listener
}

func NewServer(o Options) *Server {
	s := &Server{
		options: o,
		mux:     http.NewServeMux(),
	}
	if o.TLS.Enabled && len(o.TLS.ClientCACertFiles) != 0 {
		s.secure = middleware.NewChain(middleware.RequireCert())
	}
	chain := middleware.NewChain(
		middleware.WithRequestLogging(o.Logger),
		middleware.WithRecovery(o.Logger),
	)
	s.httpServer = &http.Server{
		Handler:           otelhttp.NewHandler(chain.Handler(s.mux), "admin"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// RegisterHandler serves handler under path. When TLS is on, a secure handler
// only answers clients that present a certificate signed by one of the client CAs.
func (s *Server) RegisterHandler(path string, handler http.Handler, secure bool) {
	if secure {
		handler = s.secure.Handler(handler)
	}
	s.mux.Handle(path, handler)
}

func (s *Server) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener != nil {
		return errors.New("admin server already started")
	}

	tlsConfig, err := s.options.TLS.Config()
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", s.options.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "failed listening on [%s]", s.options.ListenAddress)
	}
	if tlsConfig != nil {
		listener = tls.NewListener(listener, tlsConfig)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.options.Logger.Errorf("admin server on [%s] failed: %s", listener.Addr(), err)
		}
	}()
	s.options.Logger.Infof("admin server listening on [%s], tls [%v]", listener.Addr(), tlsConfig != nil)
	return nil
}

func (s *Server) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.listener = nil
	return s.httpServer.Shutdown(ctx)
}

// Addr is the address the server listens on, empty before Start.
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
