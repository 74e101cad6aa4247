package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creatorkit/membership/pkg/ledger"
)

// SubscriptionConfig is the price and availability of a target's membership.
type SubscriptionConfig struct {
	Target       Target           `json:"target"`
	Owner        ledger.PublicKey `json:"owner"`
	MonthlyPrice uint64           `json:"monthly_price"`
	Active       bool             `json:"active"`
}

// SubscriptionRecord is the on-chain record of one subscriber's membership of
// one target. Platform records carry no billing period and report Monthly.
type SubscriptionRecord struct {
	Subscriber ledger.PublicKey `json:"subscriber"`
	Target     Target           `json:"target"`
	Stream     ledger.PublicKey `json:"stream"`
	StartedAt  time.Time        `json:"started_at"`
	Active     bool             `json:"active"`
	Period     BillingPeriod    `json:"period"`
}

// RecordReader reads the decoded membership records. Absent records are
// reported as nil with a nil error; only read failures are errors.
type RecordReader interface {
	SubscriptionConfig(ctx context.Context, target Target) (*SubscriptionConfig, error)
	SubscriptionRecord(ctx context.Context, subscriber ledger.PublicKey, target Target) (*SubscriptionRecord, error)
	GlobalConfig(ctx context.Context) (*ledger.GlobalConfig, error)
	AccountExists(ctx context.Context, address ledger.PublicKey) (bool, error)
}

// LedgerRecords implements RecordReader by decoding raw ledger accounts.
type LedgerRecords struct {
	accounts ledger.AccountReader
	addrs    Addresses
}

func NewLedgerRecords(accounts ledger.AccountReader, addrs Addresses) *LedgerRecords {
	if accounts == nil {
		panic("membership: account reader is required")
	}
	return &LedgerRecords{accounts: accounts, addrs: addrs}
}

func (r *LedgerRecords) SubscriptionConfig(ctx context.Context, target Target) (*SubscriptionConfig, error) {
	addr, err := r.addrs.Config(target)
	if err != nil {
		return nil, err
	}
	data, found, err := r.read(ctx, addr)
	if !found || err != nil {
		return nil, err
	}

	if target.IsPlatform() {
		cfg, err := ledger.DecodePlatformConfig(data)
		if err != nil {
			return nil, fmt.Errorf("decode platform config: %w", err)
		}
		return &SubscriptionConfig{Target: target, Owner: cfg.Authority, MonthlyPrice: cfg.Price, Active: cfg.Active}, nil
	}

	cfg, err := ledger.DecodeCreatorConfig(data)
	if err != nil {
		return nil, fmt.Errorf("decode creator config: %w", err)
	}
	return &SubscriptionConfig{Target: target, Owner: cfg.Owner, MonthlyPrice: cfg.Price(), Active: cfg.Active}, nil
}

func (r *LedgerRecords) SubscriptionRecord(ctx context.Context, subscriber ledger.PublicKey, target Target) (*SubscriptionRecord, error) {
	addr, err := r.addrs.Record(subscriber, target)
	if err != nil {
		return nil, err
	}
	data, found, err := r.read(ctx, addr)
	if !found || err != nil {
		return nil, err
	}

	if target.IsPlatform() {
		rec, err := ledger.DecodePlatformSubscription(data)
		if err != nil {
			return nil, fmt.Errorf("decode platform subscription: %w", err)
		}
		return &SubscriptionRecord{
			Subscriber: rec.Subscriber,
			Target:     target,
			Stream:     rec.Stream,
			StartedAt:  time.Unix(rec.StartedAt, 0).UTC(),
			Active:     rec.Active,
			Period:     Monthly,
		}, nil
	}

	rec, err := ledger.DecodeCreatorSubscription(data)
	if err != nil {
		return nil, fmt.Errorf("decode creator subscription: %w", err)
	}
	return &SubscriptionRecord{
		Subscriber: rec.Subscriber,
		Target:     target,
		Stream:     rec.Stream,
		StartedAt:  time.Unix(rec.StartedAt, 0).UTC(),
		Active:     rec.Active,
		Period:     BillingPeriod(rec.BillingPeriod),
	}, nil
}

func (r *LedgerRecords) GlobalConfig(ctx context.Context) (*ledger.GlobalConfig, error) {
	addr, err := r.addrs.Global()
	if err != nil {
		return nil, err
	}
	data, found, err := r.read(ctx, addr)
	if !found || err != nil {
		return nil, err
	}
	cfg, err := ledger.DecodeGlobalConfig(data)
	if err != nil {
		return nil, fmt.Errorf("decode global config: %w", err)
	}
	return cfg, nil
}

func (r *LedgerRecords) AccountExists(ctx context.Context, address ledger.PublicKey) (bool, error) {
	_, err := r.accounts.GetAccount(ctx, address)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (r *LedgerRecords) read(ctx context.Context, addr ledger.PublicKey) ([]byte, bool, error) {
	acc, err := r.accounts.GetAccount(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read account %s: %w", addr, err)
	}
	return acc.Data, true, nil
}
