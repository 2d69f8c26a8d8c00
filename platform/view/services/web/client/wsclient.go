/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const closeGracePeriod = time.Second

// WSStream is the client end of a web socket carrying JSON messages.
type WSStream struct {
	conn *websocket.Conn
}

func NewWSStream(ctx context.Context, url string, config *tls.Config) (*WSStream, error) {
	logger.Debugf("connecting to [%s]", url)
	dialer := &websocket.Dialer{TLSClientConfig: config, HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "failed connecting to [%s], status [%s]", url, resp.Status)
		}
		return nil, errors.Wrapf(err, "failed connecting to [%s]", url)
	}
	logger.Debugf("connected to [%s]", url)
	return &WSStream{conn: conn}, nil
}

// Recv blocks until the next message and decodes it into v.
func (c *WSStream) Recv(v interface{}) error {
	return c.conn.ReadJSON(v)
}

// Close tells the server that the client is going away before dropping the connection.
func (c *WSStream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod)); err != nil {
		logger.Debugf("failed sending close message: %s", err)
	}
	return c.conn.Close()
}
