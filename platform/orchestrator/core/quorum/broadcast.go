/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package quorum

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
)

// Broadcaster fans the results of the driver out to any number of subscriptions.
// Publish never blocks: a subscription that falls behind by more than the
// capacity loses its oldest items and is told how many on its next Recv.
type Broadcaster struct {
	capacity int

	mutex  sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

func NewBroadcaster(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = 1
	}
	return &Broadcaster{
		capacity: capacity,
		subs:     map[string]*Subscription{},
	}
}

// Subscribe returns a subscription that observes every item published from now on.
// Subscribing to a closed broadcaster yields an already closed subscription.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{
		id:     utils.GenerateUUID(),
		b:      b,
		buf:    make([]*driver.EffectsQueueResult, b.capacity),
		notify: make(chan struct{}, 1),
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		s.closed = true
		return s
	}
	b.subs[s.id] = s
	logger.Debugf("new effects subscription [%s], %d active", s.id, len(b.subs))
	return s
}

func (b *Broadcaster) Publish(item *driver.EffectsQueueResult) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		s.push(item)
	}
}

// Close stops the stream. Subscriptions drain what they buffered and then report driver.ErrStreamClosed.
func (b *Broadcaster) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		s.close()
		delete(b.subs, id)
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) unsubscribe(id string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.subs, id)
}

// Subscription is a bounded ring buffer fed by a Broadcaster.
type Subscription struct {
	id     string
	b      *Broadcaster
	notify chan struct{}

	mutex   sync.Mutex
	buf     []*driver.EffectsQueueResult
	head    int
	size    int
	skipped uint64
	closed  bool
}

func (s *Subscription) push(item *driver.EffectsQueueResult) {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return
	}
	if s.size == len(s.buf) {
		s.buf[s.head] = nil
		s.head = (s.head + 1) % len(s.buf)
		s.size--
		s.skipped++
	}
	s.buf[(s.head+s.size)%len(s.buf)] = item
	s.size++
	s.mutex.Unlock()

	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) close() {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	s.signal()
}

// Recv returns the next item. A lag is reported once, before the items that survived it.
func (s *Subscription) Recv(ctx context.Context) (*driver.EffectsQueueResult, error) {
	for {
		s.mutex.Lock()
		if s.skipped > 0 {
			skipped := s.skipped
			s.skipped = 0
			s.mutex.Unlock()
			return nil, &driver.LaggedError{Skipped: skipped}
		}
		if s.size > 0 {
			item := s.buf[s.head]
			s.buf[s.head] = nil
			s.head = (s.head + 1) % len(s.buf)
			s.size--
			s.mutex.Unlock()
			return item, nil
		}
		if s.closed {
			s.mutex.Unlock()
			return nil, driver.ErrStreamClosed
		}
		s.mutex.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

// Close detaches the subscription. Buffered items can still be received.
func (s *Subscription) Close() {
	s.b.unsubscribe(s.id)
	s.close()
}
