package stream

import (
	"context"
	"time"

	"github.com/creatorkit/membership/pkg/ledger"
)

// Stream is a time-released payment commitment owned by the streaming service.
// Times are unix seconds; CancelledAt is zero for streams that were never cancelled.
type Stream struct {
	ID              ledger.PublicKey `json:"id"`
	Name            string           `json:"name"`
	Sender          ledger.PublicKey `json:"sender"`
	Recipient       ledger.PublicKey `json:"recipient"`
	DepositedAmount uint64           `json:"deposited_amount"`
	WithdrawnAmount uint64           `json:"withdrawn_amount"`
	StartTime       int64            `json:"start_time"`
	EndTime         int64            `json:"end_time"`
	CancelledAt     int64            `json:"cancelled_at"`
}

func (s Stream) IsCancelled() bool {
	return s.CancelledAt != 0
}

// IsLiveAt reports whether the stream still pays out at now: funded, not cancelled
// and not past its end time. It does not look at the recipient.
func (s Stream) IsLiveAt(now time.Time) bool {
	return s.EndTime > now.Unix() && s.DepositedAmount > 0 && !s.IsCancelled()
}

// Remaining returns the deposited amount not yet withdrawn by the recipient.
func (s Stream) Remaining() uint64 {
	if s.WithdrawnAmount >= s.DepositedAmount {
		return 0
	}
	return s.DepositedAmount - s.WithdrawnAmount
}

func (s Stream) EndsAt() time.Time {
	return time.Unix(s.EndTime, 0).UTC()
}

// Reader looks streams up. Get returns ErrNotFound for unknown identifiers.
type Reader interface {
	Get(ctx context.Context, id ledger.PublicKey) (*Stream, error)
	ListBySender(ctx context.Context, sender ledger.PublicKey) ([]Stream, error)
}

// Service is the full streaming-service client. Topup and Cancel are signed by the
// wallet the service is bound to and return the transaction signature.
type Service interface {
	Reader
	Topup(ctx context.Context, id ledger.PublicKey, amount uint64) (string, error)
	Cancel(ctx context.Context, id ledger.PublicKey) (string, error)
}
