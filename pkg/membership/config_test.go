package membership_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorkit/membership/pkg/config"
	"github.com/creatorkit/membership/pkg/membership"
)

func TestConfig_Load(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load[membership.Config](config.WithEnvironment(map[string]string{
		"MEMBERSHIP_PROGRAM_ID":      programID.String(),
		"STREAM_PROGRAM_ID":          streamProgramID.String(),
		"MEMBERSHIP_SETTLE_DELAY":    "500ms",
		"MEMBERSHIP_VERIFY_ATTEMPTS": "4",
	}))
	require.NoError(t, err)

	want := membership.DefaultConfig(programID, streamProgramID)
	want.SettleDelay = 500 * time.Millisecond
	want.VerifyAttempts = 4
	assert.Equal(t, want, cfg)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	_, err := config.Load[membership.Config](config.WithEnvironment(map[string]string{}))
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	_, err = config.Load[membership.Config](config.WithEnvironment(map[string]string{
		"MEMBERSHIP_PROGRAM_ID":     programID.String(),
		"STREAM_PROGRAM_ID":         streamProgramID.String(),
		"MEMBERSHIP_FEE_BUFFER_BPS": "20000",
	}))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg := membership.DefaultConfig(programID, streamProgramID)
	require.NoError(t, cfg.Validate())
	cfg.VerifyAttempts = 0
	cfg.VerifyMaxInterval = 0
	assert.Error(t, cfg.Validate())

	t.Run("non-positive cache ttl", func(t *testing.T) {
		t.Parallel()
		for _, ttl := range []string{"0s", "-5s"} {
			_, err := config.Load[membership.Config](config.WithEnvironment(map[string]string{
				"MEMBERSHIP_PROGRAM_ID": programID.String(),
				"STREAM_PROGRAM_ID":     streamProgramID.String(),
				"MEMBERSHIP_CACHE_TTL":  ttl,
			}))
			require.ErrorIs(t, err, config.ErrInvalidConfig, ttl)
			assert.Contains(t, err.Error(), "cache ttl", ttl)
		}
	})
}
