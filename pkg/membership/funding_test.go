package membership_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/membership"
)

func TestFundingBuilder_Build(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	wrapped, err := membership.WrappedAccount(subscriber)
	require.NoError(t, err)

	t.Run("creates the wrapped account when missing", func(t *testing.T) {
		t.Parallel()
		records := newFakeRecords()
		f, err := membership.NewFundingBuilder(records, membership.DefaultFeeBufferBps).Build(ctx, subscriber, 1_000)
		require.NoError(t, err)

		assert.Equal(t, wrapped, f.WrappedAccount)
		assert.Equal(t, uint64(1_003), f.Amount)
		require.Len(t, f.Instructions, 3)
		assert.Equal(t, ledger.AssociatedTokenProgramID, f.Instructions[0].ProgramID)
		assert.Equal(t, ledger.SystemProgramID, f.Instructions[1].ProgramID)
		assert.Equal(t, wrapped, f.Instructions[1].Accounts[1].PublicKey)
		assert.Equal(t, uint64(1_003), transferred(t, ledger.Transaction{Instructions: f.Instructions}))
		assert.Equal(t, []byte{17}, f.Instructions[2].Data)
	})

	t.Run("reuses an existing wrapped account", func(t *testing.T) {
		t.Parallel()
		records := newFakeRecords()
		records.accounts[wrapped] = true
		f, err := membership.NewFundingBuilder(records, membership.DefaultFeeBufferBps).Build(ctx, subscriber, 1_000)
		require.NoError(t, err)
		require.Len(t, f.Instructions, 2)
		assert.Equal(t, ledger.SystemProgramID, f.Instructions[0].ProgramID)
	})

	t.Run("custom buffer", func(t *testing.T) {
		t.Parallel()
		f, err := membership.NewFundingBuilder(newFakeRecords(), 100).Build(ctx, subscriber, 1_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_010), f.Amount)
	})

	t.Run("existence check failure", func(t *testing.T) {
		t.Parallel()
		records := newFakeRecords()
		records.err = errTransient
		_, err := membership.NewFundingBuilder(records, membership.DefaultFeeBufferBps).Build(ctx, subscriber, 1_000)
		assert.ErrorIs(t, err, errTransient)
	})
}
