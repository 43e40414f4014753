package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/options_flow/internal/domain"
	"go.uber.org/zap"
)

func TestSupervisor_StartIfIdle(t *testing.T) {
	supervisor := NewSupervisor(zap.NewNop())
	release := make(chan struct{})

	err := supervisor.Start(context.Background(), "volume", func(ctx context.Context, report func(string)) (any, error) {
		report("working")
		<-release
		return "done-result", nil
	})
	require.NoError(t, err)

	// A second start while running is rejected, not queued.
	err = supervisor.Start(context.Background(), "volume", func(ctx context.Context, report func(string)) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, domain.ErrScanInProgress)

	status := supervisor.Status("volume")
	assert.True(t, status.Running)
	assert.Equal(t, ScanRunning, status.State)

	close(release)
	require.Eventually(t, func() bool {
		return supervisor.Status("volume").State == ScanDone
	}, time.Second, 5*time.Millisecond)

	result, ok := supervisor.Result("volume")
	require.True(t, ok)
	assert.Equal(t, "done-result", result)

	// Done slots accept a fresh start.
	err = supervisor.Start(context.Background(), "volume", func(ctx context.Context, report func(string)) (any, error) {
		return nil, nil
	})
	assert.NoError(t, err)
}

func TestSupervisor_FailureIsRecorded(t *testing.T) {
	supervisor := NewSupervisor(zap.NewNop())

	err := supervisor.Start(context.Background(), "volume", func(ctx context.Context, report func(string)) (any, error) {
		return nil, errors.New("feed unavailable")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return supervisor.Status("volume").State == ScanFailed
	}, time.Second, 5*time.Millisecond)

	status := supervisor.Status("volume")
	assert.Equal(t, "feed unavailable", status.Error)
	assert.False(t, status.Running)

	_, ok := supervisor.Result("volume")
	assert.False(t, ok)
}

func TestSupervisor_KindsAreIndependent(t *testing.T) {
	supervisor := NewSupervisor(zap.NewNop())
	release := make(chan struct{})
	defer close(release)

	err := supervisor.Start(context.Background(), "volume", func(ctx context.Context, report func(string)) (any, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	// A different kind starts while the first is running.
	err = supervisor.Start(context.Background(), "options", func(ctx context.Context, report func(string)) (any, error) {
		return nil, nil
	})
	assert.NoError(t, err)

	assert.Equal(t, ScanIdle, supervisor.Status("unknown").State)
}
