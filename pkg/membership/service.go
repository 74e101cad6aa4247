package membership

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/creatorkit/membership/pkg/cache"
	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/logger"
	"github.com/creatorkit/membership/pkg/stream"
	"github.com/creatorkit/membership/pkg/telemetry"
)

// Service is the membership engine.
type Service interface {
	// Config returns the target's subscription config, nil when it has none.
	Config(ctx context.Context, target Target) (*SubscriptionConfig, error)

	// Preflight runs the read-only join checks without building a transaction.
	Preflight(ctx context.Context, subscriber ledger.PublicKey, target Target) (*PreflightReport, error)

	// Join funds and creates a new membership stream.
	Join(ctx context.Context, req JoinRequest) (*JoinResult, error)

	// Renew tops up an existing stream for one more billing period.
	Renew(ctx context.Context, req RenewRequest) (*RenewResult, error)

	// Cancel stops a stream and unwraps the refund. An unknown stream yields a
	// CancelNotFound result, not an error.
	Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error)

	// Status resolves whether subscriber currently holds a membership of target.
	Status(ctx context.Context, subscriber ledger.PublicKey, target Target) (*Status, error)
}

// KeyGenerator creates the key pair of a new stream account.
type KeyGenerator func() (ed25519.PrivateKey, error)

func generateKey() (ed25519.PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	return key, err
}

type service struct {
	cfg       Config
	addrs     Addresses
	records   RecordReader
	streams   stream.Service
	submitter ledger.Submitter

	log      *slog.Logger
	observer telemetry.Observer
	cache    cache.Store
	now      func() time.Time
	newKey   KeyGenerator
	policy   ResubscribePolicy

	configs     *ConfigResolver
	status      *StatusResolver
	funding     *FundingBuilder
	invalidator *Invalidator
	preflight   *preflight
	verifier    verifier
}

// NewService wires the engine. Panics if a required collaborator is nil.
func NewService(cfg Config, records RecordReader, streams stream.Service, submitter ledger.Submitter, opts ...ServiceOption) Service {
	if records == nil {
		panic("membership: RecordReader is required")
	}
	if streams == nil {
		panic("membership: stream.Service is required")
	}
	if submitter == nil {
		panic("membership: ledger.Submitter is required")
	}

	s := &service{
		cfg:       cfg,
		addrs:     NewAddresses(cfg.ProgramID),
		records:   records,
		streams:   streams,
		submitter: submitter,
		log:       logger.Discard(),
		observer:  telemetry.Noop(),
		now:       time.Now,
		newKey:    generateKey,
		policy:    ResubscribeStrict,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryStore(1024, cacheTTL(cfg))
	}

	s.configs = NewConfigResolver(records, s.cache, cacheTTL(cfg), s.log)
	s.status = NewStatusResolver(s.addrs, records, streams, s.cache, cacheTTL(cfg), s.now, s.log)
	s.funding = NewFundingBuilder(records, cfg.FeeBufferBps)
	s.invalidator = NewInvalidator(s.cache, s.log)
	s.preflight = &preflight{configs: s.configs, records: records, streams: streams, policy: s.policy, now: s.now}
	s.verifier = newVerifier(cfg)
	return s
}

func cacheTTL(cfg Config) time.Duration {
	if cfg.CacheTTL > 0 {
		return cfg.CacheTTL
	}
	return 30 * time.Second
}

func (s *service) Config(ctx context.Context, target Target) (*SubscriptionConfig, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	return s.configs.Resolve(ctx, target)
}

func (s *service) Preflight(ctx context.Context, subscriber ledger.PublicKey, target Target) (report *PreflightReport, err error) {
	ctx, span := s.begin(ctx, telemetry.OpPreflight, logger.Subscriber(subscriber), logger.Target(target))
	defer func() { span.End(outcomeOf(err), err) }()

	if err := checkParties(subscriber, target); err != nil {
		return nil, err
	}
	return s.preflight.run(ctx, subscriber, target)
}

func (s *service) Status(ctx context.Context, subscriber ledger.PublicKey, target Target) (st *Status, err error) {
	ctx, span := s.begin(ctx, telemetry.OpStatus, logger.Subscriber(subscriber), logger.Target(target))
	defer func() {
		if st != nil {
			span.SetAttrs(slog.String("state", string(st.State)), slog.String("source", string(st.Source)))
		}
		span.End(outcomeOf(err), err)
	}()

	if err := checkParties(subscriber, target); err != nil {
		return nil, err
	}
	return s.status.Resolve(ctx, subscriber, target)
}

// begin tags ctx with a fresh operation id and opens the operation span.
func (s *service) begin(ctx context.Context, op telemetry.Operation, attrs ...slog.Attr) (context.Context, telemetry.Span) {
	ctx = logger.WithOperationID(ctx, uuid.NewString())
	return s.observer.Start(ctx, op, attrs...)
}

func outcomeOf(err error) telemetry.Outcome {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case IsRejection(err):
		return telemetry.OutcomeRejected
	default:
		return telemetry.OutcomeFailed
	}
}

func checkParties(subscriber ledger.PublicKey, target Target) error {
	if subscriber.IsZero() {
		return ErrWalletNotConnected
	}
	return target.validate()
}
