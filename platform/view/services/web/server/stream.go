/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
)

var logger = logging.MustGetLogger("web.server")

// WSStream is the server side of a web socket carrying JSON messages.
type WSStream struct {
	ws *websocket.Conn
}

func OpenWSServerConn(writer http.ResponseWriter, request *http.Request) (*websocket.Conn, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(*http.Request) bool {
			return true
		},
	}
	return upgrader.Upgrade(writer, request, nil)
}

func NewWSStream(writer http.ResponseWriter, request *http.Request) (*WSStream, error) {
	ws, err := OpenWSServerConn(writer, request)
	if err != nil {
		return nil, err
	}
	logger.Debugf("upgraded [%s] to web socket", request.RemoteAddr)
	return &WSStream{ws: ws}, nil
}

func (c *WSStream) Recv(p any) error {
	message, err := c.Read()
	if err != nil {
		return err
	}
	return json.Unmarshal(message, p)
}

func (c *WSStream) Send(p any) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.Write(data)
}

func (c *WSStream) Read() ([]byte, error) {
	_, message, err := c.ws.ReadMessage()
	if err != nil {
		logger.Debugf("error receiving message: %v", err)
		return nil, err
	}
	logger.Debugf("received message: %s", message)
	return message, nil
}

func (c *WSStream) Write(message []byte) error {
	logger.Debugf("sending message: %s", message)
	err := c.ws.WriteMessage(websocket.TextMessage, message)
	if err != nil {
		logger.Debugf("error writing message: %v", err)
	}
	return err
}

// Closed returns a channel closed when the peer goes away.
// It consumes the inbound side of the socket, so Recv must not be used with it.
func (c *WSStream) Closed() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ws.NextReader(); err != nil {
				return
			}
		}
	}()
	return done
}

func (c *WSStream) Close() error {
	logger.Debugf("closing web socket")
	err := c.ws.Close()
	if err != nil {
		logger.Debugf("error closing web socket: %v", err)
	}
	return err
}
