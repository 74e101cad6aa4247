package ledger_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorkit/membership/pkg/ledger"
)

func TestPublicKey_Text(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		const encoded = "US517G5965aydkZ46HS38QLi7UQiSojurfbQfKCELFx"
		pk, err := ledger.ParsePublicKey(encoded)
		require.NoError(t, err)
		assert.Equal(t, encoded, pk.String())

		var want ledger.PublicKey
		for i := range want {
			want[i] = 7
		}
		assert.Equal(t, want, pk)
	})

	t.Run("system program is the zero key", func(t *testing.T) {
		t.Parallel()
		assert.True(t, ledger.SystemProgramID.IsZero())
		assert.False(t, ledger.TokenProgramID.IsZero())
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		_, err := ledger.ParsePublicKey("0OIl")
		assert.ErrorIs(t, err, ledger.ErrInvalidPublicKey)

		_, err = ledger.ParsePublicKey("abc")
		assert.ErrorIs(t, err, ledger.ErrInvalidPublicKey)
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		type payload struct {
			Key ledger.PublicKey `json:"key"`
		}
		in := payload{Key: ledger.NativeMint}
		raw, err := json.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{"key":"So11111111111111111111111111111111111111112"}`, string(raw))

		var out payload
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.Equal(t, in, out)
	})

	t.Run("empty text is zero", func(t *testing.T) {
		t.Parallel()
		pk := ledger.NativeMint
		require.NoError(t, pk.UnmarshalText(nil))
		assert.True(t, pk.IsZero())
	})
}

func TestFormatLamports(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10.03 SOL", ledger.FormatLamports(10_030_000_000))
	assert.Equal(t, "1 SOL", ledger.FormatLamports(1_000_000_000))
	assert.Equal(t, "1,500 SOL", ledger.FormatLamports(1_500*ledger.LamportsPerSOL))
}
