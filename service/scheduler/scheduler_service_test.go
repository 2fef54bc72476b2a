package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"datacontract-service/service/distributed_lock"
	"datacontract-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	ids []string
	err error
}

func (s *stubLister) ListActiveContractIDs(ctx context.Context) ([]string, error) {
	return s.ids, s.err
}

type recordingCalculator struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (c *recordingCalculator) CalculateDailyMetrics(ctx context.Context, contractID string, date time.Time) (*models.DailyMetrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, contractID+"@"+date.Format(models.MetricDateLayout))
	if err := c.fail[contractID]; err != nil {
		return nil, err
	}
	return &models.DailyMetrics{ContractID: contractID, MetricDate: date.Format(models.MetricDateLayout)}, nil
}

var day = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

func TestRunDailyMetrics_AllContracts(t *testing.T) {
	calc := &recordingCalculator{}
	s := NewSchedulerService(&stubLister{ids: []string{"a", "b"}}, calc, distributed_lock.NewLocalLock(), "")

	report, err := s.RunDailyMetrics(context.Background(), day)
	require.NoError(t, err)
	assert.True(t, report.Executed)
	assert.Equal(t, "2026-10-18", report.Date)
	assert.Equal(t, 2, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"a@2026-10-18", "b@2026-10-18"}, calc.calls)
}

func TestRunDailyMetrics_ContinuesAfterContractFailure(t *testing.T) {
	calc := &recordingCalculator{fail: map[string]error{"a": errors.New("db down")}}
	s := NewSchedulerService(&stubLister{ids: []string{"a", "b"}}, calc, distributed_lock.NewLocalLock(), "")

	report, err := s.RunDailyMetrics(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, "db down", report.Failed["a"])
	assert.Len(t, calc.calls, 2)
}

func TestRunDailyMetrics_SkipsWhenLocked(t *testing.T) {
	lock := distributed_lock.NewLocalLock()
	ok, err := lock.TryLock(context.Background(), "daily_metrics:2026-10-18", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	calc := &recordingCalculator{}
	s := NewSchedulerService(&stubLister{ids: []string{"a"}}, calc, lock, "")

	report, err := s.RunDailyMetrics(context.Background(), day)
	require.NoError(t, err)
	assert.False(t, report.Executed)
	assert.Empty(t, calc.calls)
}

func TestRunDailyMetrics_ListError(t *testing.T) {
	s := NewSchedulerService(&stubLister{err: errors.New("boom")}, &recordingCalculator{}, distributed_lock.NewLocalLock(), "")

	report, err := s.RunDailyMetrics(context.Background(), day)
	assert.Error(t, err)
	assert.True(t, report.Executed)
}

func TestRunScheduled_UsesPreviousUTCDay(t *testing.T) {
	calc := &recordingCalculator{}
	s := NewSchedulerService(&stubLister{ids: []string{"a"}}, calc, distributed_lock.NewLocalLock(), "")
	s.now = func() time.Time { return time.Date(2026, 10, 19, 0, 5, 0, 0, time.UTC) }

	s.runScheduled()
	assert.Equal(t, []string{"a@2026-10-18"}, calc.calls)
}

func TestStart_InvalidSpec(t *testing.T) {
	s := NewSchedulerService(&stubLister{}, &recordingCalculator{}, distributed_lock.NewLocalLock(), "not a cron")
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewSchedulerService(&stubLister{}, &recordingCalculator{}, distributed_lock.NewLocalLock(), "")
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
