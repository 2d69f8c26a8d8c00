/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ticket

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/finality-orchestrator/platform/common/services/logging"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("orchestrator.ticket")

// Ticket is a one-shot signal shared by every caller registered for the same digest.
type Ticket struct {
	digest driver.Digest
	done   chan struct{}
	result driver.QuorumResult
}

func (t *Ticket) Digest() driver.Digest {
	return t.digest
}

// Done is closed once the ticket is fulfilled.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Result must be read only after Done is closed.
func (t *Ticket) Result() driver.QuorumResult {
	return t.result
}

func (t *Ticket) Wait(ctx context.Context) (driver.QuorumResult, error) {
	select {
	case <-ctx.Done():
		return driver.QuorumResult{}, ctx.Err()
	case <-t.done:
		return t.result, nil
	}
}

type registration struct {
	ticket  *Ticket
	waiters int
}

// Registry maps digests to the pending ticket for the current submission attempt.
type Registry struct {
	mutex   sync.Mutex
	pending map[driver.Digest]*registration
}

func NewRegistry() *Registry {
	return &Registry{pending: map[driver.Digest]*registration{}}
}

// Register joins the pending ticket for digest, creating it if needed.
func (r *Registry) Register(digest driver.Digest) *Ticket {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	reg, ok := r.pending[digest]
	if !ok {
		reg = &registration{ticket: &Ticket{digest: digest, done: make(chan struct{})}}
		r.pending[digest] = reg
	}
	reg.waiters++
	return reg.ticket
}

// Fulfill resolves the pending ticket for digest, if any, and clears the registration.
// It reports whether a ticket was resolved.
func (r *Registry) Fulfill(digest driver.Digest, result driver.QuorumResult) bool {
	r.mutex.Lock()
	reg, ok := r.pending[digest]
	delete(r.pending, digest)
	r.mutex.Unlock()

	if !ok {
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("no ticket registered for [%s]", digest)
		}
		return false
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("fulfilling ticket for [%s], waiters [%d]", digest, reg.waiters)
	}
	reg.ticket.result = result
	close(reg.ticket.done)
	return true
}

// Waiters returns the number of registrations on the pending ticket for digest.
func (r *Registry) Waiters(digest driver.Digest) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if reg, ok := r.pending[digest]; ok {
		return reg.waiters
	}
	return 0
}

func (r *Registry) Digests() []driver.Digest {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	res := make([]driver.Digest, 0, len(r.pending))
	for d := range r.pending {
		res = append(res, d)
	}
	return res
}
