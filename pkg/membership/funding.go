package membership

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/creatorkit/membership/pkg/ledger"
)

const (
	// DefaultFeeBufferBps is 0.3%, the buffer covering streaming-service fees.
	DefaultFeeBufferBps = 30
	bpsDenominator      = 10_000
)

// WithFeeBuffer returns amount plus the default 0.3% fee buffer, rounded up.
// ErrInvalidPrice is returned when the sum does not fit in a uint64.
func WithFeeBuffer(amount uint64) (uint64, error) {
	return withFeeBufferBps(amount, DefaultFeeBufferBps)
}

// withFeeBufferBps computes amount + ceil(amount*bps/10000) without overflowing
// the intermediate product.
func withFeeBufferBps(amount, bps uint64) (uint64, error) {
	q, r := amount/bpsDenominator, amount%bpsDenominator
	fee := q*bps + (r*bps+bpsDenominator-1)/bpsDenominator
	sum, carry := bits.Add64(amount, fee, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d plus fee buffer overflows", ErrInvalidPrice, amount)
	}
	return sum, nil
}

// Funding is the token-funding prefix of a membership transaction.
type Funding struct {
	WrappedAccount ledger.PublicKey
	// Amount is the funded amount including the fee buffer.
	Amount       uint64
	Instructions []ledger.Instruction
}

// FundingBuilder assembles the instructions that move native currency into the
// subscriber's wrapped-currency account.
type FundingBuilder struct {
	records RecordReader
	bps     uint64
}

func NewFundingBuilder(records RecordReader, feeBufferBps uint64) *FundingBuilder {
	return &FundingBuilder{records: records, bps: feeBufferBps}
}

// Build returns, in order: an account creation when the wrapped account does
// not exist yet, the native transfer of amount plus fee buffer, and the balance
// sync. Nothing is submitted.
func (b *FundingBuilder) Build(ctx context.Context, subscriber ledger.PublicKey, amount uint64) (*Funding, error) {
	funded, err := withFeeBufferBps(amount, b.bps)
	if err != nil {
		return nil, err
	}
	wrapped, err := WrappedAccount(subscriber)
	if err != nil {
		return nil, fmt.Errorf("derive wrapped account: %w", err)
	}
	exists, err := b.records.AccountExists(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("check wrapped account: %w", err)
	}

	ixs := make([]ledger.Instruction, 0, 3)
	if !exists {
		create, err := ledger.CreateAssociatedTokenAccount(subscriber, subscriber, ledger.NativeMint)
		if err != nil {
			return nil, fmt.Errorf("create wrapped account: %w", err)
		}
		ixs = append(ixs, create)
	}
	ixs = append(ixs,
		ledger.SystemTransfer(subscriber, wrapped, funded),
		ledger.SyncNative(wrapped),
	)

	return &Funding{WrappedAccount: wrapped, Amount: funded, Instructions: ixs}, nil
}
