package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryOptions {
	return RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	op := func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	}

	err := WithRetry(context.Background(), op, IsBusy, fastRetry())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	permanent := errors.New("constraint failed")
	op := func() error {
		calls++
		return permanent
	}

	err := WithRetry(context.Background(), op, IsBusy, fastRetry())
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	op := func() error {
		calls++
		return errors.New("database is locked")
	}

	err := WithRetry(context.Background(), op, IsBusy, fastRetry())
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := func() error { return errors.New("database is locked") }
	err := WithRetry(ctx, op, IsBusy, fastRetry())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsBusy(t *testing.T) {
	assert.True(t, IsBusy(errors.New("database is locked")))
	assert.True(t, IsBusy(errors.New("database table is locked")))
	assert.False(t, IsBusy(errors.New("UNIQUE constraint failed")))
	assert.False(t, IsBusy(nil))
}
