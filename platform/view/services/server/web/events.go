/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"net/http"

	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/web/server"
	"go.uber.org/atomic"
)

const eventStreamBuffer = 256

type eventStream struct {
	subscriber events.Subscriber
	topic      string
	logger     logger
}

// InstallEventStream streams the messages published on topic to web socket clients of GET /v1/events.
// Messages are sent as JSON. A client that does not keep up loses messages.
func InstallEventStream(h *HttpHandler, subscriber events.Subscriber, topic string) {
	h.RegisterStream("/events", &eventStream{subscriber: subscriber, topic: topic, logger: h.Logger})
}

type channelListener struct {
	ch      chan events.Event
	dropped atomic.Uint64
}

func (c *channelListener) OnReceive(event events.Event) {
	select {
	case c.ch <- event:
	default:
		c.dropped.Inc()
	}
}

func (e *eventStream) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// subscribed before the handshake completes: the client sees every event published after it connected
	l := &channelListener{ch: make(chan events.Event, eventStreamBuffer)}
	e.subscriber.Subscribe(e.topic, l)
	defer func() {
		e.subscriber.Unsubscribe(e.topic, l)
		if dropped := l.dropped.Load(); dropped > 0 {
			e.logger.Warnf("event stream client [%s] missed [%d] events", req.RemoteAddr, dropped)
		}
	}()

	stream, err := server.NewWSStream(w, req)
	if err != nil {
		e.logger.Warnf("failed upgrading [%s] to web socket: %s", req.RemoteAddr, err)
		return
	}
	defer stream.Close()
	closed := stream.Closed()

	for {
		select {
		case <-closed:
			e.logger.Debugf("event stream client [%s] went away", req.RemoteAddr)
			return
		case <-req.Context().Done():
			return
		case event := <-l.ch:
			if err := stream.Send(event.Message()); err != nil {
				e.logger.Debugf("failed sending event to [%s]: %s", req.RemoteAddr, err)
				return
			}
		}
	}
}
