package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creatorkit/membership/pkg/async"
	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/stream"
)

// ResubscribePolicy decides whether a platform subscriber whose previous stream
// cannot be read may join again.
type ResubscribePolicy uint8

const (
	// ResubscribeStrict only allows re-subscribing once the previous stream is
	// known to be gone, cancelled or expired. Other lookup failures fail the
	// preflight with ErrStreamLookupFailed.
	ResubscribeStrict ResubscribePolicy = iota
	// ResubscribeLenient treats any lookup failure as permission to re-subscribe.
	ResubscribeLenient
)

// PreflightReport is what a passing preflight learned.
type PreflightReport struct {
	Config *SubscriptionConfig
	// Existing is the previous platform record a re-subscribe replaces.
	Existing *SubscriptionRecord
	// PreviousStream is the previous platform stream, when it could be read.
	PreviousStream *stream.Stream
	Resubscribe    bool
}

type preflight struct {
	configs *ConfigResolver
	records RecordReader
	streams stream.Reader
	policy  ResubscribePolicy
	now     func() time.Time
}

// run performs the read-only checks that must pass before a join transaction is
// built. The config and record reads are issued in parallel and both must
// complete before any decision is made.
func (p *preflight) run(ctx context.Context, subscriber ledger.PublicKey, target Target) (*PreflightReport, error) {
	cfgF := async.Go(ctx, func(ctx context.Context) (*SubscriptionConfig, error) {
		return p.configs.Refresh(ctx, target)
	})
	recF := async.Go(ctx, func(ctx context.Context) (*SubscriptionRecord, error) {
		return p.records.SubscriptionRecord(ctx, subscriber, target)
	})
	cfg, cfgErr := cfgF.Await(ctx)
	rec, recErr := recF.Await(ctx)
	if err := errors.Join(cfgErr, recErr); err != nil {
		return nil, fmt.Errorf("preflight reads: %w", err)
	}

	switch {
	case cfg == nil && target.IsPlatform():
		return nil, ErrEcosystemNotFound
	case cfg == nil:
		return nil, ErrConfigNotFound
	case !cfg.Active:
		return nil, ErrConfigInactive
	}

	report := &PreflightReport{Config: cfg}
	if rec == nil {
		return report, nil
	}
	if !target.IsPlatform() {
		return nil, ErrAlreadySubscribed
	}

	report.Existing = rec
	report.Resubscribe = true
	prev, err := p.streams.Get(ctx, rec.Stream)
	switch {
	case errors.Is(err, stream.ErrNotFound):
		return report, nil
	case err != nil && p.policy == ResubscribeLenient:
		return report, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrStreamLookupFailed, err)
	}

	report.PreviousStream = prev
	if !prev.IsCancelled() && prev.EndTime > p.now().Unix() {
		return nil, ErrAlreadySubscribed
	}
	return report, nil
}
