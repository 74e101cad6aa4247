package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorkit/membership/pkg/statemachine"
)

const (
	started   = statemachine.StringState("started")
	funded    = statemachine.StringState("funded")
	submitted = statemachine.StringState("submitted")
	failed    = statemachine.StringState("failed")

	fund   = statemachine.StringEvent("fund")
	submit = statemachine.StringEvent("submit")
	fail   = statemachine.StringEvent("fail")
)

func flow(t *testing.T, opts ...statemachine.Option) *statemachine.Definition {
	t.Helper()
	base := []statemachine.Option{
		statemachine.WithTransition(started, funded, fund),
		statemachine.WithTransition(funded, submitted, submit),
		statemachine.WithTransition(started, failed, fail),
		statemachine.WithTransition(funded, failed, fail),
	}
	d, err := statemachine.Define(started, append(base, opts...)...)
	require.NoError(t, err)
	return d
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("walks transitions and records history", func(t *testing.T) {
		t.Parallel()
		m := flow(t, statemachine.WithTerminal(submitted, failed)).Start()

		require.NoError(t, m.Fire(ctx, fund, nil))
		require.NoError(t, m.Fire(ctx, submit, nil))
		assert.Equal(t, submitted, m.Current())
		assert.True(t, m.Done())
		assert.Equal(t, []statemachine.Step{
			{From: started, To: funded, Event: fund},
			{From: funded, To: submitted, Event: submit},
		}, m.History())
	})

	t.Run("machines are independent", func(t *testing.T) {
		t.Parallel()
		d := flow(t)
		a, b := d.Start(), d.Start()
		require.NoError(t, a.Fire(ctx, fund, nil))
		assert.Equal(t, funded, a.Current())
		assert.Equal(t, started, b.Current())
	})

	t.Run("no transition", func(t *testing.T) {
		t.Parallel()
		m := flow(t).Start()
		err := m.Fire(ctx, submit, nil)

		assert.ErrorIs(t, err, statemachine.ErrNoTransition)
		var te *statemachine.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "started", te.State)
		assert.Equal(t, "submit", te.Event)
		assert.False(t, m.CanFire(ctx, submit, nil))
	})

	t.Run("terminal state rejects events", func(t *testing.T) {
		t.Parallel()
		m := flow(t, statemachine.WithTerminal(submitted, failed)).Start()
		require.NoError(t, m.Fire(ctx, fail, nil))
		assert.ErrorIs(t, m.Fire(ctx, fund, nil), statemachine.ErrTerminalState)
	})

	t.Run("nil event", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, flow(t).Start().Fire(ctx, nil, nil), statemachine.ErrInvalidEvent)
	})
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	large := statemachine.StringState("large")
	small := statemachine.StringState("small")
	isLarge := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		n, ok := data.(int)
		return ok && n > 100
	}
	isSmall := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		n, ok := data.(int)
		return ok && n > 0 && n <= 100
	}

	d := statemachine.MustDefine(started,
		statemachine.WithTransition(started, large, fund, statemachine.WithGuard(isLarge)),
		statemachine.WithTransition(started, small, fund, statemachine.WithGuard(isSmall)),
	)

	m := d.Start()
	require.NoError(t, m.Fire(ctx, fund, 500))
	assert.Equal(t, large, m.Current())

	m = d.Start()
	require.NoError(t, m.Fire(ctx, fund, 5))
	assert.Equal(t, small, m.Current())

	m = d.Start()
	assert.False(t, m.CanFire(ctx, fund, -1))
	assert.ErrorIs(t, m.Fire(ctx, fund, -1), statemachine.ErrTransitionRejected)
	assert.Equal(t, started, m.Current())
}

func TestMachine_Actions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("boom")

	var seen []string
	record := func(_ context.Context, from, to statemachine.State, _ statemachine.Event, _ any) error {
		seen = append(seen, from.Name()+"->"+to.Name())
		return nil
	}
	veto := func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
		return boom
	}

	d := statemachine.MustDefine(started,
		statemachine.WithTransition(started, funded, fund, statemachine.WithAction(record)),
		statemachine.WithTransition(funded, submitted, submit, statemachine.WithAction(veto)),
	)

	var observed []statemachine.Step
	m := d.Start(statemachine.OnTransition(func(_ context.Context, s statemachine.Step) {
		observed = append(observed, s)
	}))

	require.NoError(t, m.Fire(ctx, fund, nil))
	assert.Equal(t, []string{"started->funded"}, seen)

	err := m.Fire(ctx, submit, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, funded, m.Current())
	assert.Len(t, observed, 1)
}

func TestDefine_Errors(t *testing.T) {
	t.Parallel()

	_, err := statemachine.Define(nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidState)

	_, err = statemachine.Define(started, statemachine.WithTransition(started, nil, fund))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	_, err = statemachine.Define(started,
		statemachine.WithTerminal(funded),
		statemachine.WithTransition(funded, submitted, submit),
	)
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	_, err = statemachine.Define(started,
		statemachine.WithTransition(funded, submitted, submit),
		statemachine.WithTerminal(funded),
	)
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() { statemachine.MustDefine(nil) })
}

func TestMachine_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := flow(t, statemachine.WithTerminal(submitted, failed)).Start()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Fire(ctx, fail, nil) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, failed, m.Current())
}
