package membership_test

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/membership"
	"github.com/creatorkit/membership/pkg/stream"
	"github.com/creatorkit/membership/pkg/telemetry"
)

var (
	programID       = key(0xA1)
	streamProgramID = key(0xA2)
	subscriber      = key(0x01)
	creator         = key(0x02)
	platformTreas   = key(0x03)
	testNow         = time.Unix(1_700_000_000, 0)
)

func key(b byte) ledger.PublicKey {
	var k ledger.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func testConfig() membership.Config {
	cfg := membership.DefaultConfig(programID, streamProgramID)
	cfg.SettleDelay = 0
	cfg.VerifyInitialInterval = time.Millisecond
	cfg.VerifyMaxInterval = 2 * time.Millisecond
	cfg.VerifyAttempts = 3
	return cfg
}

func treasury(t *testing.T, target membership.Target) ledger.PublicKey {
	t.Helper()
	pk, err := membership.NewAddresses(programID).Treasury(target)
	require.NoError(t, err)
	return pk
}

// fakeRecords is an in-memory RecordReader counting every read.
type fakeRecords struct {
	mu       sync.Mutex
	configs  map[string]*membership.SubscriptionConfig
	records  map[string]*membership.SubscriptionRecord
	global   *ledger.GlobalConfig
	accounts map[ledger.PublicKey]bool
	err      error
	calls    map[string]int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		configs:  make(map[string]*membership.SubscriptionConfig),
		records:  make(map[string]*membership.SubscriptionRecord),
		global:   &ledger.GlobalConfig{Admin: key(0x09), Treasury: platformTreas},
		accounts: make(map[ledger.PublicKey]bool),
		calls:    make(map[string]int),
	}
}

func recordKey(sub ledger.PublicKey, target membership.Target) string {
	return sub.String() + "/" + target.String()
}

func (f *fakeRecords) setConfig(target membership.Target, price uint64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[target.String()] = &membership.SubscriptionConfig{Target: target, Owner: target.Creator(), MonthlyPrice: price, Active: active}
}

func (f *fakeRecords) setRecord(sub ledger.PublicKey, target membership.Target, streamID ledger.PublicKey, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[recordKey(sub, target)] = &membership.SubscriptionRecord{
		Subscriber: sub, Target: target, Stream: streamID, StartedAt: testNow.Add(-time.Hour).UTC(), Active: active,
	}
}

func (f *fakeRecords) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRecords) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRecords) SubscriptionConfig(_ context.Context, target membership.Target) (*membership.SubscriptionConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["config"]++
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.configs[target.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRecords) SubscriptionRecord(_ context.Context, sub ledger.PublicKey, target membership.Target) (*membership.SubscriptionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["record"]++
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.records[recordKey(sub, target)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRecords) GlobalConfig(context.Context) (*ledger.GlobalConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["global"]++
	return f.global, f.err
}

func (f *fakeRecords) AccountExists(_ context.Context, addr ledger.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["exists"]++
	return f.accounts[addr], f.err
}

// fakeStreams is an in-memory streaming service.
type fakeStreams struct {
	mu        sync.Mutex
	streams   map[ledger.PublicKey]*stream.Stream
	getErr    error
	listErr   error
	topupErr  error
	cancelErr error
	calls     map[string]int
	topups    []uint64
}

func newFakeStreams() *fakeStreams {
	return &fakeStreams{streams: make(map[ledger.PublicKey]*stream.Stream), calls: make(map[string]int)}
}

func (f *fakeStreams) put(s stream.Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[s.ID] = &s
}

func (f *fakeStreams) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStreams) Get(_ context.Context, id ledger.PublicKey) (*stream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.streams[id]
	if !ok {
		return nil, stream.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStreams) ListBySender(_ context.Context, sender ledger.PublicKey) ([]stream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []stream.Stream
	for _, s := range f.streams {
		if s.Sender.Equals(sender) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStreams) Topup(_ context.Context, id ledger.PublicKey, amount uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["topup"]++
	if f.topupErr != nil {
		return "", f.topupErr
	}
	s, ok := f.streams[id]
	if !ok {
		return "", stream.ErrNotFound
	}
	s.DepositedAmount += amount
	f.topups = append(f.topups, amount)
	return "topup-sig", nil
}

func (f *fakeStreams) Cancel(_ context.Context, id ledger.PublicKey) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["cancel"]++
	if f.cancelErr != nil {
		return "", f.cancelErr
	}
	s, ok := f.streams[id]
	if !ok {
		return "", stream.ErrNotFound
	}
	s.CancelledAt = testNow.Unix()
	return "cancel-sig", nil
}

// fakeSubmitter records submitted transactions. onSubmit may mutate the fakes
// to simulate the transaction landing.
type fakeSubmitter struct {
	mu       sync.Mutex
	txs      []ledger.Transaction
	err      error
	onSubmit func(tx ledger.Transaction)
}

func (f *fakeSubmitter) Submit(_ context.Context, tx ledger.Transaction) (string, error) {
	f.mu.Lock()
	f.txs = append(f.txs, tx)
	err, hook := f.err, f.onSubmit
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	if hook != nil {
		hook(tx)
	}
	return "tx-sig", nil
}

func (f *fakeSubmitter) submitted() []ledger.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledger.Transaction(nil), f.txs...)
}

// recordingObserver captures operation outcomes and step events.
type recordingObserver struct {
	mu    sync.Mutex
	spans []*recordedSpan
}

type recordedSpan struct {
	mu      sync.Mutex
	op      telemetry.Operation
	events  []string
	outcome telemetry.Outcome
	err     error
}

func (o *recordingObserver) Start(ctx context.Context, op telemetry.Operation, _ ...slog.Attr) (context.Context, telemetry.Span) {
	s := &recordedSpan{op: op}
	o.mu.Lock()
	o.spans = append(o.spans, s)
	o.mu.Unlock()
	return ctx, s
}

func (o *recordingObserver) last() *recordedSpan {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.spans[len(o.spans)-1]
}

func (s *recordedSpan) Event(name string, _ ...slog.Attr) {
	s.mu.Lock()
	s.events = append(s.events, name)
	s.mu.Unlock()
}

func (s *recordedSpan) SetAttrs(...slog.Attr) {}

func (s *recordedSpan) End(outcome telemetry.Outcome, err error) {
	s.mu.Lock()
	s.outcome, s.err = outcome, err
	s.mu.Unlock()
}

var streamSeed = ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))

func fixedKey() (ed25519.PrivateKey, error) { return streamSeed, nil }

var errTransient = errors.New("indexer unavailable")

type harness struct {
	records   *fakeRecords
	streams   *fakeStreams
	submitter *fakeSubmitter
	observer  *recordingObserver
	svc       membership.Service
}

func newHarness(t *testing.T, opts ...membership.ServiceOption) *harness {
	t.Helper()
	h := &harness{
		records:   newFakeRecords(),
		streams:   newFakeStreams(),
		submitter: &fakeSubmitter{},
		observer:  &recordingObserver{},
	}
	base := []membership.ServiceOption{
		membership.WithClock(func() time.Time { return testNow }),
		membership.WithKeyGenerator(fixedKey),
		membership.WithObserver(h.observer),
	}
	h.svc = membership.NewService(testConfig(), h.records, h.streams, h.submitter, append(base, opts...)...)
	return h
}

// landJoin makes a submitted join visible: the record and a live stream to the
// target's treasury appear.
func (h *harness) landJoin(t *testing.T, target membership.Target, period membership.BillingPeriod, deposit uint64) {
	h.submitter.onSubmit = func(tx ledger.Transaction) {
		if len(tx.Signers) == 0 {
			return
		}
		id := ledger.PublicKeyOf(tx.Signers[0])
		h.records.setRecord(tx.FeePayer, target, id, true)
		h.streams.put(stream.Stream{
			ID:              id,
			Name:            membership.StreamName(target, period),
			Sender:          tx.FeePayer,
			Recipient:       treasury(t, target),
			DepositedAmount: deposit,
			StartTime:       testNow.Unix(),
			EndTime:         testNow.Add(30 * 24 * time.Hour).Unix(),
		})
	}
}

func liveStream(t *testing.T, id ledger.PublicKey, target membership.Target, name string) stream.Stream {
	return stream.Stream{
		ID:              id,
		Name:            name,
		Sender:          subscriber,
		Recipient:       treasury(t, target),
		DepositedAmount: 1_000,
		StartTime:       testNow.Add(-time.Hour).Unix(),
		EndTime:         testNow.Add(time.Hour).Unix(),
	}
}
