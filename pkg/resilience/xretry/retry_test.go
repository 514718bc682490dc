package xretry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts uint) Config {
	return Config{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastConfig(5).Options()...)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	var retries []uint
	err := Do(context.Background(), func() error {
		calls++
		return boom
	}, append(fastConfig(3).Options(), OnRetry(func(n uint, _ error) {
		retries = append(retries, n)
	}))...)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []uint{0, 1, 2}, retries, "OnRetry fires after every failed attempt, the last included")
}

func TestDo_Unrecoverable(t *testing.T) {
	calls := 0
	missing := errors.New("missing")
	err := Do(context.Background(), func() error {
		calls++
		return Unrecoverable(missing)
	}, fastConfig(5).Options()...)
	assert.ErrorIs(t, err, missing)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func() error {
		calls++
		return errors.New("transient")
	}, Config{Attempts: 10, Delay: 50 * time.Millisecond}.Options()...)
	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	got, err := DoWithData(context.Background(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, fastConfig(3).Options()...)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestConfig_Options(t *testing.T) {
	assert.Len(t, Config{}.Options(), 4)
	assert.Equal(t, Config{Attempts: DefaultAttempts, Delay: DefaultDelay, MaxDelay: DefaultMaxDelay}, DefaultConfig())

	// 零值不会变成无限重试
	calls := 0
	_ = Do(context.Background(), func() error {
		calls++
		return errors.New("x")
	}, append(Config{}.Options(), Delay(time.Millisecond), MaxDelay(time.Millisecond))...)
	assert.Equal(t, DefaultAttempts, calls)
}
