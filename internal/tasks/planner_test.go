package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expirerFunc func(ctx context.Context) (int, error)

func (f expirerFunc) ExpireStale(ctx context.Context) (int, error) { return f(ctx) }

func TestSweepLogsOutcome(t *testing.T) {
	logger, hook := test.NewNullLogger()

	s := NewScheduler(expirerFunc(func(ctx context.Context) (int, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return 3, nil
	}), logger, time.UTC)
	s.Sweep()
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 3, hook.LastEntry().Data["expired"])

	s = NewScheduler(expirerFunc(func(context.Context) (int, error) {
		return 1, errors.New("store down")
	}), logger, time.UTC)
	s.Sweep()
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestInitSweepRejectsBadSchedule(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewScheduler(expirerFunc(func(context.Context) (int, error) { return 0, nil }), logger, nil)

	assert.Error(t, s.InitSweep("every night"))
	// five fields are not enough once seconds are enabled
	assert.Error(t, s.InitSweep("5 0 * * *"))
	require.NoError(t, s.InitSweep("0 5 0 * * *"))
	assert.Len(t, s.Entries(), 1)
}

func TestSchedulerRunsSweep(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var runs atomic.Int32
	s := NewScheduler(expirerFunc(func(context.Context) (int, error) {
		runs.Add(1)
		return 0, nil
	}), logger, time.UTC)
	require.NoError(t, s.InitSweep("* * * * * *"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
