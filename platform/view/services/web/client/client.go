/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/server/web"
	"github.com/pkg/errors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var logger = logging.MustGetLogger("web.client")

// Config models the configuration for the web client
type Config struct {
	// Host to connect to
	Host string
	// CACertRaw is the certificate authority's certificates
	CACertRaw []byte
	// CACertPath is the Certificate Authority Cert Path
	CACertPath string
	// TLSCertPath is the TLS client certificate path
	TLSCertPath string
	// TLSKeyPath is the TLS client key path
	TLSKeyPath string
}

func (c *Config) WsURL() string {
	return c.url("ws")
}

func (c *Config) WebURL() string {
	return c.url("http")
}

func (c *Config) url(protocol string) string {
	if c.isTlsEnabled() {
		protocol = protocol + "s"
	}
	return fmt.Sprintf("%s://%s", protocol, c.Host)
}

func (c *Config) isTlsEnabled() bool {
	return len(c.CACertPath) != 0 || len(c.CACertRaw) != 0
}

// Client talks to the admin endpoint of an orchestrator node
type Client struct {
	c             *http.Client
	url           string
	wsUrl         string
	tlsConfig     *tls.Config
	metricsParser expfmt.TextParser
}

// NewClient returns a new web client
func NewClient(config *Config) (*Client, error) {
	var tlsClientConfig *tls.Config

	if config.isTlsEnabled() {
		rootCAs := x509.NewCertPool()

		caCert := config.CACertRaw
		if len(config.CACertPath) != 0 {
			var err error
			caCert, err = os.ReadFile(config.CACertPath)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to open ca cert")
			}
		}
		rootCAs.AppendCertsFromPEM(caCert)
		tlsClientConfig = &tls.Config{
			RootCAs:    rootCAs,
			MinVersion: tls.VersionTLS12,
		}

		if len(config.TLSCertPath) != 0 && len(config.TLSKeyPath) != 0 {
			clientCert, err := tls.LoadX509KeyPair(
				config.TLSCertPath,
				config.TLSKeyPath,
			)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to load x509 key pair")
			}
			tlsClientConfig.Certificates = []tls.Certificate{clientCert}
		}
	}

	return &Client{
		c: &http.Client{
			Transport: otelhttp.NewTransport(&http.Transport{
				TLSClientConfig: tlsClientConfig,
			}),
		},
		url:       config.WebURL(),
		wsUrl:     config.WsURL(),
		tlsConfig: tlsClientConfig,
	}, nil
}

func (c *Client) Metrics() (map[string]*dto.MetricFamily, error) {
	body, err := c.req(context.Background(), http.MethodGet, fmt.Sprintf("%s/metrics", c.url), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed calling metrics")
	}
	defer body.Close()
	return c.metricsParser.TextToMetricFamilies(body)
}

// PendingTransactions lists the pending log of the node.
func (c *Client) PendingTransactions(ctx context.Context) ([]web.PendingTransaction, error) {
	var res []web.PendingTransaction
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/pending", c.url), &res); err != nil {
		return nil, errors.WithMessagef(err, "failed listing pending transactions")
	}
	return res, nil
}

func (c *Client) PendingTransaction(ctx context.Context, digest string) (*web.PendingTransaction, error) {
	res := &web.PendingTransaction{}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/pending/%s", c.url, digest), res); err != nil {
		return nil, errors.WithMessagef(err, "failed getting pending transaction [%s]", digest)
	}
	return res, nil
}

// StreamEvents opens a web socket on the transaction status events of the node.
func (c *Client) StreamEvents(ctx context.Context) (*WSStream, error) {
	stream, err := NewWSStream(ctx, c.wsUrl+"/v1/events", c.tlsConfig)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to init web socket stream")
	}
	return stream, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.req(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer body.Close()
	buff, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrapf(err, "failed to read response from [%s]", url)
	}
	if err := json.Unmarshal(buff, out); err != nil {
		return errors.Wrapf(err, "failed to unmarshal response from [%s], response [%s]", url, string(buff))
	}
	return nil
}

func (c *Client) req(ctx context.Context, method string, url string, in []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(in))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create http request to [%s], input length [%d]", url, len(in))
	}
	logger.Debugf("send http request to [%s], input length [%d]", url, len(in))

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to process http request to [%s], input length [%d]", url, len(in))
	}
	if resp == nil {
		return nil, errors.Errorf("failed to process http request to [%s], input length [%d], no response", url, len(in))
	}
	if resp.StatusCode != http.StatusOK {
		reason := &web.ResponseErr{}
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if json.Unmarshal(raw, reason) != nil || len(reason.Reason) == 0 {
			reason.Reason = resp.Status
		}
		return nil, errors.Errorf("failed to process http request to [%s], status code [%d], reason [%s]", url, resp.StatusCode, reason.Reason)
	}
	return resp.Body, nil
}
