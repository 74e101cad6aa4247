package membership_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/creatorkit/membership/pkg/membership"
)

func TestErrorCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err       error
		code      string
		rejection bool
	}{
		{nil, "", false},
		{membership.ErrEcosystemNotFound, membership.CodeEcosystemNotFound, true},
		{membership.ErrConfigNotFound, membership.CodeConfigNotFound, true},
		{fmt.Errorf("join: %w", membership.ErrConfigInactive), membership.CodeConfigInactive, true},
		{&membership.CrossPeriodError{Requested: membership.Monthly, Stream: membership.Yearly}, membership.CodeCrossPeriodTopup, true},
		{fmt.Errorf("%w: %w", membership.ErrLedgerSubmission, errors.New("blockhash expired")), membership.CodeLedgerSubmission, false},
		{membership.ErrUnwrapFailed, membership.CodeUnwrapFailed, false},
		{errors.New("boom"), membership.CodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.code, membership.ErrorCode(tt.err))
			assert.Equal(t, tt.rejection, membership.IsRejection(tt.err))
		})
	}
}

func TestEcosystemNotFoundIsConfigNotFound(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, membership.ErrEcosystemNotFound, membership.ErrConfigNotFound)
	assert.NotErrorIs(t, membership.ErrConfigNotFound, membership.ErrEcosystemNotFound)
}
