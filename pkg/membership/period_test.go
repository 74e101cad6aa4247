package membership_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorkit/membership/pkg/membership"
	"github.com/creatorkit/membership/pkg/stream"
)

func TestBillingPeriod_Amount(t *testing.T) {
	t.Parallel()
	for _, price := range []uint64{0, 1, 500, 1_000_000_000} {
		monthly, err := membership.Monthly.Amount(price)
		require.NoError(t, err)
		assert.Equal(t, price, monthly)
		yearly, err := membership.Yearly.Amount(price)
		require.NoError(t, err)
		assert.Equal(t, price*10, yearly)
	}

	t.Run("yearly product past uint64 is rejected", func(t *testing.T) {
		t.Parallel()
		price := uint64(1_844_674_407_370_955_162)
		_, err := membership.Yearly.Amount(price)
		require.ErrorIs(t, err, membership.ErrInvalidPrice)
		assert.Equal(t, membership.CodeInvalidPrice, membership.ErrorCode(err))
		assert.True(t, membership.IsRejection(err))

		monthly, err := membership.Monthly.Amount(price)
		require.NoError(t, err)
		assert.Equal(t, price, monthly)
	})
}

func TestDetectPeriod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want membership.BillingPeriod
	}{
		{"Creator membership - Yearly", membership.Yearly},
		{"Platform membership - Monthly", membership.Monthly},
		{"ANNUAL pass", membership.Yearly},
		{"2yr deal", membership.Yearly},
		{"monthly", membership.Monthly},
		{"", membership.Monthly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, membership.DetectPeriod(tt.name))
		})
	}
}

func TestStreamName_RoundTripsPeriod(t *testing.T) {
	t.Parallel()
	targets := []membership.Target{membership.PlatformTarget(), membership.CreatorTarget(creator)}
	for _, target := range targets {
		for _, p := range []membership.BillingPeriod{membership.Monthly, membership.Yearly} {
			assert.Equal(t, p, membership.DetectPeriod(membership.StreamName(target, p)))
		}
	}
	assert.Equal(t, "Platform membership - Monthly", membership.StreamName(membership.PlatformTarget(), membership.Monthly))
}

func TestGuardRenewal(t *testing.T) {
	t.Parallel()
	yearly := &stream.Stream{Name: "Creator membership - Yearly"}
	monthly := &stream.Stream{Name: "Creator membership - Monthly"}

	assert.NoError(t, membership.GuardRenewal(membership.Yearly, yearly))
	assert.NoError(t, membership.GuardRenewal(membership.Monthly, monthly))

	err := membership.GuardRenewal(membership.Monthly, yearly)
	require.ErrorIs(t, err, membership.ErrCrossPeriodTopup)
	assert.Contains(t, err.Error(), "yearly")
	assert.Contains(t, err.Error(), "monthly")
	assert.NotContains(t, err.Error(), "SOL")

	err = membership.GuardRenewal(membership.Yearly, monthly)
	require.ErrorIs(t, err, membership.ErrCrossPeriodTopup)
	assert.Equal(t, membership.CodeCrossPeriodTopup, membership.ErrorCode(err))
}

func TestWithFeeBuffer(t *testing.T) {
	t.Parallel()
	tests := []struct {
		amount, want uint64
	}{
		{10_000_000_000, 10_030_000_000},
		{500, 502},
		{1, 2},
		{0, 0},
	}
	for _, tt := range tests {
		got, err := membership.WithFeeBuffer(tt.amount)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "amount %d", tt.amount)
	}

	big := uint64(math.MaxUint64 / 2)
	got, err := membership.WithFeeBuffer(big)
	require.NoError(t, err)
	assert.Greater(t, got, big, "no overflow in the intermediate product")

	_, err = membership.WithFeeBuffer(math.MaxUint64)
	require.ErrorIs(t, err, membership.ErrInvalidPrice)
	assert.Equal(t, membership.CodeInvalidPrice, membership.ErrorCode(err))
}

func TestParseBillingPeriod(t *testing.T) {
	t.Parallel()
	p, err := membership.ParseBillingPeriod("yearly")
	require.NoError(t, err)
	assert.Equal(t, membership.Yearly, p)

	p, err = membership.ParseBillingPeriod("monthly")
	require.NoError(t, err)
	assert.Equal(t, membership.Monthly, p)

	_, err = membership.ParseBillingPeriod("weekly")
	assert.ErrorIs(t, err, membership.ErrInvalidPeriod)

	text, err := membership.Yearly.MarshalText()
	require.NoError(t, err)
	var back membership.BillingPeriod
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, membership.Yearly, back)
}
