/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/config"
)

var webLogger = logging.MustGetLogger("server.web")

const (
	DefaultListenAddress = "127.0.0.1:9443"

	adminKey = "orchestrator.admin"
)

type ConfigProvider interface {
	GetString(key string) string
	GetBool(key string) bool
	GetPath(key string) string
	GetStringSlice(key string) []string
	TranslatePath(path string) string
	IsSet(key string) bool
}

// New builds the admin server from the orchestrator.admin section and mounts the returned
// handler under /v1/.
func New(configProvider ConfigProvider) (*Server, *HttpHandler) {
	listenAddr := configProvider.GetString(config.Join(adminKey, "listenAddress"))
	if len(listenAddr) == 0 {
		listenAddr = DefaultListenAddress
	}

	tlsKey := func(key string) string { return config.Join(adminKey, "tls", key) }
	var clientRootCAs []string
	for _, path := range configProvider.GetStringSlice(tlsKey("clientRootCAs.files")) {
		clientRootCAs = append(clientRootCAs, configProvider.TranslatePath(path))
	}
	webServer := NewServer(Options{
		ListenAddress: listenAddr,
		Logger:        webLogger,
		TLS: TLS{
			Enabled:           configProvider.GetBool(tlsKey("enabled")),
			CertFile:          configProvider.GetPath(tlsKey("cert.file")),
			KeyFile:           configProvider.GetPath(tlsKey("key.file")),
			ClientCACertFiles: clientRootCAs,
		},
	})
	h := NewHttpHandler(webLogger)
	webServer.RegisterHandler(apiVersion+"/", h, true)
	return webServer, h
}
