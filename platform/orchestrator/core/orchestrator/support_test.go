/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/pending"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/core/quorum"
	"github.com/hyperledger-labs/finality-orchestrator/platform/orchestrator/driver"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/events/simple"
	"github.com/hyperledger-labs/finality-orchestrator/platform/view/services/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeQuorumDriver records submissions and publishes whatever the test decides.
type fakeQuorumDriver struct {
	*quorum.Broadcaster

	mutex     sync.Mutex
	submitted map[driver.Digest]int
	// autoFinalize publishes a success for every submission
	autoFinalize bool
	submitErr    error
	// submitGate, when set, holds every submission until it is closed
	submitGate chan struct{}
}

func newFakeQuorumDriver(capacity int) *fakeQuorumDriver {
	return &fakeQuorumDriver{
		Broadcaster: quorum.NewBroadcaster(capacity),
		submitted:   map[driver.Digest]int{},
	}
}

func (q *fakeQuorumDriver) SubmitTransactionNoTicket(_ context.Context, tx *driver.VerifiedTransaction) error {
	q.mutex.Lock()
	gate := q.submitGate
	q.mutex.Unlock()
	if gate != nil {
		<-gate
	}

	q.mutex.Lock()
	if q.submitErr != nil {
		defer q.mutex.Unlock()
		return q.submitErr
	}
	q.submitted[tx.Digest()]++
	auto := q.autoFinalize
	q.mutex.Unlock()

	if auto {
		go q.Finalize(tx, 1)
	}
	return nil
}

func (q *fakeQuorumDriver) SubscribeToEffects() driver.EffectsSubscription {
	return q.Subscribe()
}

func (q *fakeQuorumDriver) Finalize(tx *driver.VerifiedTransaction, epoch uint64) *driver.QuorumResponse {
	resp := &driver.QuorumResponse{
		EffectsCert: &driver.EffectsCertificate{
			TransactionDigest: tx.Digest(),
			ExecutedEpoch:     epoch,
			Effects:           append([]byte("effects of "), tx.Data...),
			Certificate:       []byte("certificate"),
		},
		Events: []driver.Event{{Type: "transfer", Payload: tx.Data}},
	}
	q.Publish(&driver.EffectsQueueResult{Digest: tx.Digest(), Transaction: tx, Response: resp})
	return resp
}

func (q *fakeQuorumDriver) Fail(digest driver.Digest, err error) {
	q.Publish(&driver.EffectsQueueResult{Digest: digest, Err: err})
}

func (q *fakeQuorumDriver) Submissions(digest driver.Digest) int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.submitted[digest]
}

func (q *fakeQuorumDriver) TotalSubmissions() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	total := 0
	for _, n := range q.submitted {
		total += n
	}
	return total
}

type fakeEpochStore struct {
	epoch uint64
}

func (e *fakeEpochStore) Epoch() uint64 { return e.epoch }

func (e *fakeEpochStore) VerifyTransaction(tx *driver.Transaction) (*driver.VerifiedTransaction, error) {
	if len(tx.Signatures) == 0 {
		return nil, errors.New("missing signature")
	}
	return driver.NewVerifiedTransaction(tx, e.epoch), nil
}

// fakeValidatorState is an execution engine that can be slowed down or made to fail.
type fakeValidatorState struct {
	epochStore *fakeEpochStore

	mutex    sync.Mutex
	executed map[driver.Digest]bool
	calls    map[driver.Digest]int
	block    chan struct{}
	err      error
}

func newFakeValidatorState() *fakeValidatorState {
	return &fakeValidatorState{
		epochStore: &fakeEpochStore{epoch: 1},
		executed:   map[driver.Digest]bool{},
		calls:      map[driver.Digest]int{},
	}
}

func (v *fakeValidatorState) LoadEpochStore() driver.EpochStore { return v.epochStore }

func (v *fakeValidatorState) IsTxAlreadyExecuted(digest driver.Digest) (bool, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.executed[digest], nil
}

func (v *fakeValidatorState) ExecuteCertificateWithEffects(_ context.Context, tx *driver.ExecutableTransaction, cert *driver.EffectsCertificate, _ driver.EpochStore) error {
	v.mutex.Lock()
	v.calls[tx.Digest()]++
	block, err := v.block, v.err
	v.mutex.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return err
	}
	if cert.TransactionDigest != tx.Digest() {
		return errors.Errorf("certificate of [%s] does not match [%s]", cert.TransactionDigest, tx.Digest())
	}
	v.mutex.Lock()
	v.executed[tx.Digest()] = true
	v.mutex.Unlock()
	return nil
}

func (v *fakeValidatorState) Calls(digest driver.Digest) int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.calls[digest]
}

func (v *fakeValidatorState) SetBlock(block chan struct{}) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.block = block
}

func (v *fakeValidatorState) MarkExecuted(digest driver.Digest) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.executed[digest] = true
}

// fakeEffectsNotifier reports the effects of a digest as recorded once the test says so.
type fakeEffectsNotifier struct {
	mutex    sync.Mutex
	recorded map[driver.Digest]chan struct{}
}

func newFakeEffectsNotifier() *fakeEffectsNotifier {
	return &fakeEffectsNotifier{recorded: map[driver.Digest]chan struct{}{}}
}

func (n *fakeEffectsNotifier) ch(digest driver.Digest) chan struct{} {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	c, ok := n.recorded[digest]
	if !ok {
		c = make(chan struct{})
		n.recorded[digest] = c
	}
	return c
}

func (n *fakeEffectsNotifier) Record(digest driver.Digest) {
	close(n.ch(digest))
}

func (n *fakeEffectsNotifier) NotifyReadExecutedEffects(ctx context.Context, digests ...driver.Digest) error {
	for _, d := range digests {
		select {
		case <-n.ch(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// statusRecorder collects the transaction status events.
type statusRecorder struct {
	mutex  sync.Mutex
	events []*TxStatusEvent
}

func (r *statusRecorder) OnReceive(event events.Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event.Message().(*TxStatusEvent))
}

func (r *statusRecorder) Statuses(digest driver.Digest) []TxStatus {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var res []TxStatus
	for _, e := range r.events {
		if e.Digest == digest {
			res = append(res, e.Status)
		}
	}
	return res
}

func (r *statusRecorder) Has(digest driver.Digest, status TxStatus) bool {
	for _, s := range r.Statuses(digest) {
		if s == status {
			return true
		}
	}
	return false
}

type env struct {
	orchestrator   *Orchestrator
	quorumDriver   *fakeQuorumDriver
	validatorState *fakeValidatorState
	pendingLog     *pending.MemoryLog
	effects        *fakeEffectsNotifier
	statuses       *statusRecorder
	registry       *prom.Registry
}

type envOpts struct {
	config            Config
	broadcastCapacity int
	pendingLog        *pending.MemoryLog
	autoFinalize      bool
}

func newEnv(t *testing.T, opts envOpts) *env {
	t.Helper()
	if opts.broadcastCapacity == 0 {
		opts.broadcastCapacity = 100
	}
	if opts.pendingLog == nil {
		opts.pendingLog = pending.NewMemoryLog()
	}
	e := &env{
		quorumDriver:   newFakeQuorumDriver(opts.broadcastCapacity),
		validatorState: newFakeValidatorState(),
		pendingLog:     opts.pendingLog,
		effects:        newFakeEffectsNotifier(),
		statuses:       &statusRecorder{},
		registry:       prom.NewRegistry(),
	}
	e.quorumDriver.autoFinalize = opts.autoFinalize

	bus := simple.NewEventBus()
	bus.Subscribe(TxStatusTopic, e.statuses)

	e.orchestrator = New(opts.config, e.validatorState, e.quorumDriver, e.pendingLog, e.effects,
		&prometheus.Provider{Registerer: e.registry}, WithPublisher(bus))
	e.orchestrator.Start(context.Background())
	t.Cleanup(func() {
		e.quorumDriver.Close()
		e.orchestrator.Stop()
	})
	return e
}

var txCounter sync.Mutex
var txSeq int

func newTx(shared bool) *driver.Transaction {
	txCounter.Lock()
	txSeq++
	n := txSeq
	txCounter.Unlock()
	tx := &driver.Transaction{
		Data:       []byte(fmt.Sprintf("transfer %d", n)),
		Signatures: [][]byte{[]byte("signature")},
	}
	if shared {
		tx.SharedObjects = []driver.ObjectID{"0x5"}
	}
	return tx
}

func verified(tx *driver.Transaction) *driver.VerifiedTransaction {
	return driver.NewVerifiedTransaction(tx, 1)
}

func (e *env) pendingDigests(t *testing.T) []driver.Digest {
	txs, err := e.orchestrator.LoadAllPendingTransactions(context.Background())
	require.NoError(t, err)
	res := make([]driver.Digest, len(txs))
	for i, tx := range txs {
		res[i] = tx.Digest()
	}
	return res
}

func (e *env) isPending(t *testing.T, digest driver.Digest) bool {
	for _, d := range e.pendingDigests(t) {
		if d == digest {
			return true
		}
	}
	return false
}

// metric returns the value of a counter or gauge gathered from the registry.
func (e *env) metric(t *testing.T, name string, labels map[string]string) float64 {
	mfs, err := e.registry.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, l := range m.GetLabel() {
				if v, ok := labels[l.GetName()]; ok && v != l.GetValue() {
					match = false
				}
			}
			if !match {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}
