package membership

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/creatorkit/membership/pkg/stream"
)

// BillingPeriod is the cadence a stream was created for. It never changes for
// the life of a stream.
type BillingPeriod uint8

const (
	Monthly BillingPeriod = iota
	Yearly
)

// yearlyMonths is how many monthly prices a yearly membership costs.
const yearlyMonths = 10

// ParseBillingPeriod accepts "monthly" and "yearly" in any case.
func ParseBillingPeriod(s string) (BillingPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly":
		return Monthly, nil
	case "yearly":
		return Yearly, nil
	}
	return Monthly, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

func (p BillingPeriod) String() string {
	if p == Yearly {
		return "yearly"
	}
	return "monthly"
}

// Title is the capitalised form used in stream names.
func (p BillingPeriod) Title() string {
	if p == Yearly {
		return "Yearly"
	}
	return "Monthly"
}

func (p BillingPeriod) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *BillingPeriod) UnmarshalText(text []byte) error {
	parsed, err := ParseBillingPeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p BillingPeriod) valid() bool {
	return p == Monthly || p == Yearly
}

// Amount returns the price of one period: the monthly price, or ten of them for
// a yearly period. A yearly price that does not fit in a uint64 is ErrInvalidPrice.
func (p BillingPeriod) Amount(monthly uint64) (uint64, error) {
	if p != Yearly {
		return monthly, nil
	}
	hi, lo := bits.Mul64(monthly, yearlyMonths)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d x %d overflows", ErrInvalidPrice, monthly, yearlyMonths)
	}
	return lo, nil
}

// StreamName is the name written on streams created by Join. DetectPeriod
// recovers the period from it.
func StreamName(target Target, period BillingPeriod) string {
	return target.Label() + " membership - " + period.Title()
}

var yearlyMarkers = []string{"year", "yr", "annual"}

// DetectPeriod derives the billing period from a stream name. Topups never
// rename a stream.
func DetectPeriod(name string) BillingPeriod {
	lower := strings.ToLower(name)
	for _, marker := range yearlyMarkers {
		if strings.Contains(lower, marker) {
			return Yearly
		}
	}
	return Monthly
}

// GuardRenewal rejects a renewal whose period differs from the one the stream
// was created with.
func GuardRenewal(requested BillingPeriod, s *stream.Stream) error {
	if detected := DetectPeriod(s.Name); detected != requested {
		return &CrossPeriodError{Requested: requested, Stream: detected}
	}
	return nil
}
