package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorkit/membership/pkg/cache"
	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/logger"
	"github.com/creatorkit/membership/pkg/statemachine"
	"github.com/creatorkit/membership/pkg/stream"
)

// State is a membership status. Active and Inactive are terminal.
type State string

const (
	StateUnknown  State = "unknown"
	StateActive   State = "active"
	StateInactive State = "inactive"
)

func (s State) Name() string { return string(s) }

// Confidence is the typed result of a status strategy.
type Confidence string

const (
	// Confirmed means the streaming service vouched for the result.
	Confirmed Confidence = "confirmed"
	// UnconfirmedTrustPrimary means the on-chain record was trusted because the
	// stream could not be read.
	UnconfirmedTrustPrimary Confidence = "unconfirmed_trust_primary"
	// NotFound means the strategy had nothing to say.
	NotFound Confidence = "not_found"
)

// Source names the strategy that decided a status.
type Source string

const (
	SourceRecord     Source = "on_chain_record"
	SourceLegacyScan Source = "legacy_scan"
	SourceNone       Source = "none"
)

// Status is the resolved membership of one subscriber for one target.
type Status struct {
	Subscriber ledger.PublicKey `json:"subscriber"`
	Target     Target           `json:"target"`
	State      State            `json:"state"`
	Source     Source           `json:"source"`
	Confidence Confidence       `json:"confidence"`
	StreamID   ledger.PublicKey `json:"stream_id"`
	Period     BillingPeriod    `json:"period"`
	// EndTime is the stream's end in unix seconds, zero when the stream was not read.
	EndTime    int64     `json:"end_time,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

func (s Status) Active() bool { return s.State == StateActive }

// StrategyResult is what one status strategy concluded.
type StrategyResult struct {
	Confidence Confidence
	Active     bool
	StreamID   ledger.PublicKey
	Stream     *stream.Stream
	Period     BillingPeriod
}

// StatusStrategy is one source of membership truth. Strategies are consulted in
// order until one returns something other than NotFound.
type StatusStrategy interface {
	Name() Source
	Resolve(ctx context.Context, q statusQuery) (StrategyResult, error)
}

type statusQuery struct {
	subscriber ledger.PublicKey
	target     Target
	treasury   ledger.PublicKey
	now        time.Time
}

// live reports whether s pays the expected treasury and still runs at now.
func (q statusQuery) live(s *stream.Stream) bool {
	return s.Recipient.Equals(q.treasury) && s.IsLiveAt(q.now)
}

// recordStrategy trusts the on-chain subscription record and checks its stream.
type recordStrategy struct {
	records RecordReader
	streams stream.Reader
}

func (recordStrategy) Name() Source { return SourceRecord }

func (s recordStrategy) Resolve(ctx context.Context, q statusQuery) (StrategyResult, error) {
	rec, err := s.records.SubscriptionRecord(ctx, q.subscriber, q.target)
	if err != nil {
		return StrategyResult{}, fmt.Errorf("read subscription record: %w", err)
	}
	if rec == nil || !rec.Active {
		return StrategyResult{Confidence: NotFound}, nil
	}

	res := StrategyResult{StreamID: rec.Stream, Period: rec.Period}
	st, err := s.streams.Get(ctx, rec.Stream)
	if err != nil {
		// Indexer lag and transient outages must not flip a paid membership off.
		res.Confidence = UnconfirmedTrustPrimary
		res.Active = true
		return res, nil
	}
	res.Confidence = Confirmed
	res.Stream = st
	res.Active = q.live(st)
	res.Period = DetectPeriod(st.Name)
	return res, nil
}

// legacyScanStrategy looks for a live stream to the treasury among everything
// the subscriber funds. It serves subscriptions created before on-chain records.
type legacyScanStrategy struct {
	streams stream.Reader
}

func (legacyScanStrategy) Name() Source { return SourceLegacyScan }

func (s legacyScanStrategy) Resolve(ctx context.Context, q statusQuery) (StrategyResult, error) {
	list, err := s.streams.ListBySender(ctx, q.subscriber)
	if err != nil {
		return StrategyResult{}, fmt.Errorf("list streams: %w", err)
	}
	for i := range list {
		if q.live(&list[i]) {
			st := list[i]
			return StrategyResult{
				Confidence: Confirmed,
				Active:     true,
				StreamID:   st.ID,
				Stream:     &st,
				Period:     DetectPeriod(st.Name),
			}, nil
		}
	}
	return StrategyResult{Confidence: NotFound}, nil
}

var (
	evConfirmedActive   = statemachine.StringEvent("confirmed_active")
	evConfirmedInactive = statemachine.StringEvent("confirmed_inactive")
	evTrustPrimary      = statemachine.StringEvent("trust_primary")
	evExhausted         = statemachine.StringEvent("exhausted")
)

var statusResolution = statemachine.MustDefine(StateUnknown,
	statemachine.WithTransition(StateUnknown, StateActive, evConfirmedActive),
	statemachine.WithTransition(StateUnknown, StateInactive, evConfirmedInactive),
	statemachine.WithTransition(StateUnknown, StateActive, evTrustPrimary),
	statemachine.WithTransition(StateUnknown, StateInactive, evExhausted),
	statemachine.WithTerminal(StateActive, StateInactive),
)

// StatusResolver reconciles the on-chain record with the streaming service.
type StatusResolver struct {
	addrs      Addresses
	strategies []StatusStrategy
	cache      cache.Store
	ttl        time.Duration
	now        func() time.Time
	log        *slog.Logger
}

func NewStatusResolver(addrs Addresses, records RecordReader, streams stream.Reader, store cache.Store, ttl time.Duration, now func() time.Time, log *slog.Logger) *StatusResolver {
	return &StatusResolver{
		addrs: addrs,
		strategies: []StatusStrategy{
			recordStrategy{records: records, streams: streams},
			legacyScanStrategy{streams: streams},
		},
		cache: store,
		ttl:   ttl,
		now:   now,
		log:   log,
	}
}

// Resolve returns the cached status or resolves and caches a fresh one.
func (r *StatusResolver) Resolve(ctx context.Context, subscriber ledger.PublicKey, target Target) (*Status, error) {
	key := StatusKey(subscriber, target)
	if raw, ok, err := r.cache.Get(ctx, key); err != nil {
		r.log.WarnContext(ctx, "status cache read failed", logger.Subscriber(subscriber), logger.Target(target), logger.Error(err))
	} else if ok {
		var st Status
		if err := json.Unmarshal(raw, &st); err == nil {
			return &st, nil
		}
	}

	st, err := r.Fresh(ctx, subscriber, target)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(st); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			r.log.WarnContext(ctx, "status cache write failed", logger.Subscriber(subscriber), logger.Target(target), logger.Error(err))
		}
	}
	return st, nil
}

// Fresh resolves the status from the sources, bypassing the cache.
func (r *StatusResolver) Fresh(ctx context.Context, subscriber ledger.PublicKey, target Target) (*Status, error) {
	treasury, err := r.addrs.Treasury(target)
	if err != nil {
		return nil, fmt.Errorf("derive treasury: %w", err)
	}
	q := statusQuery{subscriber: subscriber, target: target, treasury: treasury, now: r.now()}
	m := statusResolution.Start()
	st := &Status{Subscriber: subscriber, Target: target, Source: SourceNone, Confidence: NotFound}

	for _, strategy := range r.strategies {
		res, err := strategy.Resolve(ctx, q)
		if err != nil {
			return nil, err
		}
		if res.Confidence == NotFound {
			continue
		}

		event := evConfirmedInactive
		switch {
		case res.Confidence == UnconfirmedTrustPrimary:
			event = evTrustPrimary
			r.log.DebugContext(ctx, "stream unreadable, trusting on-chain record",
				logger.Subscriber(subscriber), logger.Target(target), logger.StreamID(res.StreamID.String()))
		case res.Active:
			event = evConfirmedActive
		}
		if err := m.Fire(ctx, event, nil); err != nil {
			return nil, err
		}

		st.Source = strategy.Name()
		st.Confidence = res.Confidence
		st.StreamID = res.StreamID
		st.Period = res.Period
		if res.Stream != nil {
			st.EndTime = res.Stream.EndTime
		}
		break
	}

	if !m.Done() {
		if err := m.Fire(ctx, evExhausted, nil); err != nil {
			return nil, err
		}
	}
	st.State = m.Current().(State)
	st.ResolvedAt = q.now.UTC()
	return st, nil
}

// errNoStream is returned by streamFor when neither source knows a stream.
var errNoStream = errors.New("no stream referenced")

// streamFor returns the stream a subscriber's membership of target points at,
// whatever its liveness.
func (r *StatusResolver) streamFor(ctx context.Context, subscriber ledger.PublicKey, target Target) (ledger.PublicKey, error) {
	st, err := r.Fresh(ctx, subscriber, target)
	if err != nil {
		return ledger.PublicKey{}, err
	}
	if st.StreamID.IsZero() {
		return ledger.PublicKey{}, errNoStream
	}
	return st.StreamID, nil
}
