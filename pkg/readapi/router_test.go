package readapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorkit/membership/pkg/cache"
	"github.com/creatorkit/membership/pkg/journal"
	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/membership"
	"github.com/creatorkit/membership/pkg/readapi"
	"github.com/creatorkit/membership/pkg/stream"
	"github.com/creatorkit/membership/pkg/telemetry"
)

var (
	creator    = ledger.PublicKey{1}
	subscriber = ledger.PublicKey{2}
	streamID   = ledger.PublicKey{3}
	treasury   = ledger.PublicKey{4}
	errDown    = errors.New("node unavailable")
)

type fakeRecords struct {
	mu      sync.Mutex
	configs map[membership.Target]*membership.SubscriptionConfig
	records map[string]*membership.SubscriptionRecord
	global  *ledger.GlobalConfig
	exists  map[ledger.PublicKey]bool
	err     error
	calls   int
}

func (f *fakeRecords) hit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeRecords) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRecords) SubscriptionConfig(_ context.Context, target membership.Target) (*membership.SubscriptionConfig, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return f.configs[target], nil
}

func (f *fakeRecords) SubscriptionRecord(_ context.Context, sub ledger.PublicKey, target membership.Target) (*membership.SubscriptionRecord, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return f.records[sub.String()+target.String()], nil
}

func (f *fakeRecords) GlobalConfig(context.Context) (*ledger.GlobalConfig, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return f.global, nil
}

func (f *fakeRecords) AccountExists(_ context.Context, address ledger.PublicKey) (bool, error) {
	if err := f.hit(); err != nil {
		return false, err
	}
	return f.exists[address], nil
}

type fakeStreams struct {
	streams map[ledger.PublicKey]stream.Stream
}

func (f fakeStreams) Get(_ context.Context, id ledger.PublicKey) (*stream.Stream, error) {
	s, ok := f.streams[id]
	if !ok {
		return nil, stream.ErrNotFound
	}
	return &s, nil
}

func (f fakeStreams) ListBySender(_ context.Context, sender ledger.PublicKey) ([]stream.Stream, error) {
	var out []stream.Stream
	for _, s := range f.streams {
		if s.Sender == sender {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeStatus struct{ at time.Time }

func (f fakeStatus) Resolve(_ context.Context, sub ledger.PublicKey, target membership.Target) (*membership.Status, error) {
	if !target.IsPlatform() && target.Creator().IsZero() {
		return nil, fmt.Errorf("%w: zero creator", membership.ErrInvalidTarget)
	}
	return &membership.Status{
		Subscriber: sub,
		Target:     target,
		State:      membership.StateActive,
		Source:     membership.SourceRecord,
		Confidence: membership.Confirmed,
		StreamID:   streamID,
		Period:     membership.Yearly,
		EndTime:    f.at.Add(time.Hour).Unix(),
		ResolvedAt: f.at,
	}, nil
}

type fakeOperations struct {
	gotSubscriber string
	gotLimit      int
}

func (f *fakeOperations) Recent(_ context.Context, sub string, limit int) ([]journal.Entry, error) {
	f.gotSubscriber, f.gotLimit = sub, limit
	return []journal.Entry{{Operation: telemetry.OpJoin, Outcome: telemetry.OutcomeSuccess, Subscriber: sub}}, nil
}

func fixtures() (*fakeRecords, fakeStreams) {
	started := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := &fakeRecords{
		configs: map[membership.Target]*membership.SubscriptionConfig{
			membership.PlatformTarget(): {Target: membership.PlatformTarget(), Owner: treasury, MonthlyPrice: 1_000_000_000, Active: true},
		},
		records: map[string]*membership.SubscriptionRecord{
			subscriber.String() + membership.CreatorTarget(creator).String(): {
				Subscriber: subscriber,
				Target:     membership.CreatorTarget(creator),
				Stream:     streamID,
				StartedAt:  started,
				Active:     true,
				Period:     membership.Yearly,
			},
		},
		global: &ledger.GlobalConfig{Admin: creator, Treasury: treasury},
		exists: map[ledger.PublicKey]bool{treasury: true},
	}
	streams := fakeStreams{streams: map[ledger.PublicKey]stream.Stream{
		streamID: {ID: streamID, Sender: subscriber, Recipient: treasury, DepositedAmount: 500, StartTime: started.Unix(), EndTime: started.Add(time.Hour).Unix()},
	}}
	return records, streams
}

func serve(t *testing.T, h http.Handler) *readapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := readapi.NewClient(readapi.ClientConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return client
}

func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	records, streams := fixtures()
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	client := serve(t, readapi.NewRouter(records, streams, fakeStatus{at: at}))

	t.Run("configs", func(t *testing.T) {
		t.Parallel()
		cfg, err := client.SubscriptionConfig(ctx, membership.PlatformTarget())
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, *records.configs[membership.PlatformTarget()], *cfg)

		cfg, err = client.SubscriptionConfig(ctx, membership.CreatorTarget(creator))
		require.NoError(t, err)
		assert.Nil(t, cfg, "absent config is nil without error")
	})

	t.Run("records", func(t *testing.T) {
		t.Parallel()
		rec, err := client.SubscriptionRecord(ctx, subscriber, membership.CreatorTarget(creator))
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, subscriber, rec.Subscriber)
		assert.Equal(t, membership.CreatorTarget(creator), rec.Target)
		assert.Equal(t, streamID, rec.Stream)
		assert.True(t, rec.StartedAt.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
		assert.True(t, rec.Active)
		assert.Equal(t, membership.Yearly, rec.Period)

		rec, err = client.SubscriptionRecord(ctx, subscriber, membership.PlatformTarget())
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("global and accounts", func(t *testing.T) {
		t.Parallel()
		global, err := client.GlobalConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, ledger.GlobalConfig{Admin: creator, Treasury: treasury}, *global)

		ok, err := client.AccountExists(ctx, treasury)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = client.AccountExists(ctx, subscriber)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("streams", func(t *testing.T) {
		t.Parallel()
		s, err := client.Get(ctx, streamID)
		require.NoError(t, err)
		assert.Equal(t, streams.streams[streamID], *s)

		_, err = client.Get(ctx, creator)
		assert.ErrorIs(t, err, stream.ErrNotFound)

		list, err := client.ListBySender(ctx, subscriber)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = client.ListBySender(ctx, creator)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("status", func(t *testing.T) {
		t.Parallel()
		st, err := client.Resolve(ctx, subscriber, membership.CreatorTarget(creator))
		require.NoError(t, err)
		assert.True(t, st.Active())
		assert.Equal(t, membership.CreatorTarget(creator), st.Target)
		assert.Equal(t, membership.Confirmed, st.Confidence)
		assert.Equal(t, streamID, st.StreamID)
		assert.Equal(t, membership.Yearly, st.Period)
		assert.True(t, st.ResolvedAt.Equal(at))
	})
}

func TestClient_UpstreamFailure(t *testing.T) {
	t.Parallel()
	records, streams := fixtures()
	records.err = errDown
	client := serve(t, readapi.NewRouter(records, streams, fakeStatus{}))

	_, err := client.SubscriptionConfig(context.Background(), membership.PlatformTarget())
	assert.ErrorIs(t, err, readapi.ErrRequestFailed)
	_, err = client.AccountExists(context.Background(), treasury)
	assert.ErrorIs(t, err, readapi.ErrRequestFailed)
}

func TestRouter_Errors(t *testing.T) {
	t.Parallel()
	records, streams := fixtures()
	router := readapi.NewRouter(records, streams, fakeStatus{})

	tests := []struct {
		name string
		path string
		code int
		body string
	}{
		{"bad subscriber", "/v1/records/platform/not-a-key", http.StatusBadRequest, readapi.CodeInvalidRequest},
		{"bad creator", "/v1/configs/creators/0OIl", http.StatusBadRequest, readapi.CodeInvalidRequest},
		{"bad sender", "/v1/streams?sender=", http.StatusBadRequest, readapi.CodeInvalidRequest},
		{"missing record", "/v1/records/platform/" + subscriber.String(), http.StatusNotFound, readapi.CodeNotFound},
		{"missing stream", "/v1/streams/" + creator.String(), http.StatusNotFound, readapi.CodeNotFound},
		{"rejected status", "/v1/status/creators/" + ledger.PublicKey{}.String() + "/" + subscriber.String(), http.StatusUnprocessableEntity, membership.CodeInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)

			var body readapi.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.body, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/operations?subscriber="+subscriber.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "operations route is opt-in")
}

func TestRouter_Cache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	records, streams := fixtures()
	store := cache.NewMemoryStore(16, time.Minute)
	client := serve(t, readapi.NewRouter(records, streams, fakeStatus{}, readapi.WithCache(store, time.Minute)))
	creatorTarget := membership.CreatorTarget(creator)

	for range 3 {
		rec, err := client.SubscriptionRecord(ctx, subscriber, creatorTarget)
		require.NoError(t, err)
		require.NotNil(t, rec)
	}
	assert.Equal(t, 1, records.count(), "found record served from cache")

	for range 2 {
		rec, err := client.SubscriptionRecord(ctx, subscriber, membership.PlatformTarget())
		require.NoError(t, err)
		assert.Nil(t, rec)
	}
	assert.Equal(t, 3, records.count(), "absent record is not cached")

	inv := membership.NewInvalidator(store, nil)
	require.NoError(t, store.Delete(ctx, inv.Keys(subscriber, creatorTarget, streamID)...))
	_, err := client.SubscriptionRecord(ctx, subscriber, creatorTarget)
	require.NoError(t, err)
	assert.Equal(t, 4, records.count(), "invalidated record is read again")
}

func TestRouter_Operations(t *testing.T) {
	t.Parallel()
	records, streams := fixtures()
	ops := &fakeOperations{}
	router := readapi.NewRouter(records, streams, fakeStatus{}, readapi.WithOperations(ops))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/operations?limit=5&subscriber="+subscriber.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, subscriber.String(), ops.gotSubscriber)
	assert.Equal(t, 5, ops.gotLimit)

	var body struct {
		Operations []journal.Entry `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Operations, 1)
	assert.Equal(t, telemetry.OpJoin, body.Operations[0].Operation)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/operations?limit=-1&subscriber="+subscriber.String(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConstructors(t *testing.T) {
	t.Parallel()
	records, streams := fixtures()

	_, err := readapi.NewClient(readapi.ClientConfig{})
	assert.ErrorIs(t, err, readapi.ErrMissingBaseURL)

	assert.Panics(t, func() { readapi.NewRouter(nil, streams, fakeStatus{}) })
	assert.Panics(t, func() { readapi.NewRouter(records, nil, fakeStatus{}) })
	assert.Panics(t, func() { readapi.NewRouter(records, streams, nil) })
}

type spanRecorder struct {
	mu       sync.Mutex
	ops      []telemetry.Operation
	outcomes []telemetry.Outcome
}

func (r *spanRecorder) Start(ctx context.Context, op telemetry.Operation, _ ...slog.Attr) (context.Context, telemetry.Span) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
	return ctx, recordedSpan{r}
}

type recordedSpan struct{ r *spanRecorder }

func (recordedSpan) Event(string, ...slog.Attr) {}
func (recordedSpan) SetAttrs(...slog.Attr)      {}
func (s recordedSpan) End(outcome telemetry.Outcome, _ error) {
	s.r.mu.Lock()
	s.r.outcomes = append(s.r.outcomes, outcome)
	s.r.mu.Unlock()
}

func TestRouter_ObservesStatus(t *testing.T) {
	t.Parallel()
	records, streams := fixtures()
	obs := &spanRecorder{}
	client := serve(t, readapi.NewRouter(records, streams, fakeStatus{}, readapi.WithObserver(obs)))

	_, err := client.Resolve(context.Background(), subscriber, membership.PlatformTarget())
	require.NoError(t, err)
	_, err = client.SubscriptionConfig(context.Background(), membership.PlatformTarget())
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []telemetry.Operation{telemetry.OpStatus}, obs.ops)
	assert.Equal(t, []telemetry.Outcome{telemetry.OutcomeSuccess}, obs.outcomes)
}
