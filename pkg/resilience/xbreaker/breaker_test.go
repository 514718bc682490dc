package xbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xipfilter/pkg/resilience/xretry"
)

var errDown = errors.New("connection refused")

func TestConfig_Defaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), Config{}.withDefaults())

	custom := Config{ConsecutiveFailures: 2, Timeout: time.Second, MaxRequests: 3}
	assert.Equal(t, custom, custom.withDefaults())
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var transitions []string
	b := New("s3", Config{ConsecutiveFailures: 3, Timeout: time.Hour},
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
		WithLogger(nil),
	)
	assert.Equal(t, "s3", b.Name())

	calls := 0
	fail := func() error {
		calls++
		return errDown
	}
	for range 3 {
		assert.ErrorIs(t, b.Do(context.Background(), fail), errDown)
	}
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, []string{"closed->open"}, transitions)

	err := b.Do(context.Background(), fail)
	require.Error(t, err)
	assert.Equal(t, 3, calls, "open breaker must not call fn")
	assert.True(t, IsOpen(err))
	assert.True(t, IsBreakerError(err))
	assert.False(t, xretry.IsRecoverable(err))

	var be *BreakerError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "s3", be.Name)
	assert.Equal(t, StateOpen, be.State)
	assert.Equal(t, "breaker s3: circuit breaker is open", be.Error())
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := New("redis", Config{ConsecutiveFailures: 2})
	ctx := context.Background()

	assert.Error(t, b.Do(ctx, func() error { return errDown }))
	assert.NoError(t, b.Do(ctx, func() error { return nil }))
	assert.Error(t, b.Do(ctx, func() error { return errDown }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(1), b.Counts().ConsecutiveFailures)
}

func TestBreaker_IgnoredErrors(t *testing.T) {
	b := New("s3", Config{ConsecutiveFailures: 1})
	ctx := context.Background()

	missing := xretry.Unrecoverable(errors.New("object not found"))
	for range 3 {
		assert.Error(t, b.Do(ctx, func() error { return missing }))
		assert.Error(t, b.Do(ctx, func() error { return context.Canceled }))
	}
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, IsBreakerError(missing))
}

func TestBreaker_HalfOpen(t *testing.T) {
	b := New("s3", Config{ConsecutiveFailures: 1, Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	require.Error(t, b.Do(ctx, func() error { return errDown }))
	require.Equal(t, StateOpen, b.State())

	require.Eventually(t, func() bool {
		return b.State() == StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, b.Do(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestExecute(t *testing.T) {
	b := New("s3", Config{})

	got, err := Execute(context.Background(), b, func() ([]byte, error) {
		return []byte("body"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "body", string(got))

	got, err = Execute(context.Background(), nil, func() ([]byte, error) {
		return []byte("direct"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", string(got))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err = Execute(ctx, b, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithRetry_StopsWhenOpen(t *testing.T) {
	b := New("s3", Config{ConsecutiveFailures: 2, Timeout: time.Hour})
	calls := 0
	cfg := xretry.Config{Attempts: 5, Delay: time.Millisecond, MaxDelay: time.Millisecond}

	err := xretry.Do(context.Background(), func() error {
		return b.Do(context.Background(), func() error {
			calls++
			return errDown
		})
	}, cfg.Options()...)

	require.Error(t, err)
	assert.True(t, IsOpen(err))
	assert.Equal(t, 2, calls)
}
