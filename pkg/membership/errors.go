package membership

import (
	"errors"
	"fmt"

	"github.com/creatorkit/membership/pkg/ledger"
)

var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrConfigNotFound     = errors.New("membership is not configured for this creator")
	ErrEcosystemNotFound  = fmt.Errorf("%w: platform membership is not configured", ErrConfigNotFound)
	ErrConfigInactive     = errors.New("membership is not currently accepting subscribers")
	ErrAlreadySubscribed  = errors.New("already subscribed")
	ErrCrossPeriodTopup   = errors.New("renewal period does not match the stream's billing period")
	ErrStreamNotFound     = errors.New("payment stream not found")
	ErrStreamLookupFailed = errors.New("could not verify the previous payment stream, try again")
	ErrTreasuryNotFound   = errors.New("platform treasury is not configured")
	ErrLedgerSubmission   = errors.New("transaction submission failed")
	ErrUnwrapFailed       = errors.New("could not unwrap remaining balance")
	ErrInvalidTarget      = errors.New("invalid membership target")
	ErrInvalidPeriod      = errors.New("invalid billing period")
	ErrInvalidPrice       = errors.New("membership price is out of range")
)

// Stable machine-readable codes for the errors above.
const (
	CodeWalletNotConnected = "WALLET_NOT_CONNECTED"
	CodeConfigNotFound     = "CONFIG_NOT_FOUND"
	CodeEcosystemNotFound  = "ECOSYSTEM_NOT_FOUND"
	CodeConfigInactive     = "CONFIG_INACTIVE"
	CodeAlreadySubscribed  = "ALREADY_SUBSCRIBED"
	CodeCrossPeriodTopup   = "CROSS_PERIOD_TOPUP"
	CodeStreamNotFound     = "STREAM_NOT_FOUND"
	CodeStreamLookupFailed = "STREAM_LOOKUP_FAILED"
	CodeTreasuryNotFound   = "TREASURY_NOT_FOUND"
	CodeLedgerSubmission   = "LEDGER_SUBMISSION_FAILED"
	CodeUnwrapFailed       = "UNWRAP_FAILED"
	CodeInvalidTarget      = "INVALID_TARGET"
	CodeInvalidPeriod      = "INVALID_PERIOD"
	CodeInvalidPrice       = "INVALID_PRICE"
	CodeInternal           = "INTERNAL"
)

// Order matters: ErrEcosystemNotFound wraps ErrConfigNotFound.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrWalletNotConnected, CodeWalletNotConnected},
	{ErrEcosystemNotFound, CodeEcosystemNotFound},
	{ErrConfigNotFound, CodeConfigNotFound},
	{ErrConfigInactive, CodeConfigInactive},
	{ErrAlreadySubscribed, CodeAlreadySubscribed},
	{ErrCrossPeriodTopup, CodeCrossPeriodTopup},
	{ErrStreamNotFound, CodeStreamNotFound},
	{ErrStreamLookupFailed, CodeStreamLookupFailed},
	{ErrTreasuryNotFound, CodeTreasuryNotFound},
	{ErrLedgerSubmission, CodeLedgerSubmission},
	{ErrUnwrapFailed, CodeUnwrapFailed},
	{ErrInvalidTarget, CodeInvalidTarget},
	{ErrInvalidPeriod, CodeInvalidPeriod},
	{ErrInvalidPrice, CodeInvalidPrice},
}

// ErrorCode maps err to its stable code, CodeInternal for anything unknown and
// "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// IsRejection reports whether err is a validation result produced before any
// transaction was built or submitted.
func IsRejection(err error) bool {
	switch ErrorCode(err) {
	case CodeWalletNotConnected, CodeConfigNotFound, CodeEcosystemNotFound, CodeConfigInactive,
		CodeAlreadySubscribed, CodeCrossPeriodTopup, CodeStreamNotFound, CodeStreamLookupFailed,
		CodeTreasuryNotFound, CodeInvalidTarget, CodeInvalidPeriod, CodeInvalidPrice:
		return true
	}
	return false
}

// CrossPeriodError names both periods of a rejected renewal. MonthlyPrice is
// set when the target's price is known, and then each period's price is named.
type CrossPeriodError struct {
	Requested    BillingPeriod
	Stream       BillingPeriod
	MonthlyPrice uint64
}

func (e *CrossPeriodError) Error() string {
	return fmt.Sprintf("this membership is billed %s%s; renew it with the %s plan or cancel and join again with the %s plan%s",
		e.Stream, e.price(e.Stream), e.Stream, e.Requested, e.price(e.Requested))
}

func (e *CrossPeriodError) price(p BillingPeriod) string {
	if e.MonthlyPrice == 0 {
		return ""
	}
	amount, err := p.Amount(e.MonthlyPrice)
	if err != nil {
		return ""
	}
	return " (" + ledger.FormatLamports(amount) + ")"
}

func (e *CrossPeriodError) Unwrap() error { return ErrCrossPeriodTopup }
