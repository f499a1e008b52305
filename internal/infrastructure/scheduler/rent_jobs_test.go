package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRentCycleRunner struct {
	mock.Mock
}

func (m *mockRentCycleRunner) CurrentPeriod() rental.BillingPeriod {
	return m.Called().Get(0).(rental.BillingPeriod)
}

func (m *mockRentCycleRunner) GenerateMonthlyCycles(ctx context.Context, period rental.BillingPeriod) (*apprental.GenerateCyclesResult, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apprental.GenerateCyclesResult), args.Error(1)
}

func (m *mockRentCycleRunner) RefreshOverdue(ctx context.Context) (*apprental.RefreshOverdueResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apprental.RefreshOverdueResult), args.Error(1)
}

func TestGenerateCyclesJob(t *testing.T) {
	dec := rental.BillingPeriod{Month: 12, Year: 2024}
	jan := rental.BillingPeriod{Month: 1, Year: 2025}

	t.Run("covers the current and next period", func(t *testing.T) {
		runner := new(mockRentCycleRunner)
		runner.On("CurrentPeriod").Return(dec)
		runner.On("GenerateMonthlyCycles", mock.Anything, dec).Return(&apprental.GenerateCyclesResult{Period: dec, Existed: 3}, nil)
		runner.On("GenerateMonthlyCycles", mock.Anything, jan).Return(&apprental.GenerateCyclesResult{Period: jan, Created: 3}, nil)

		require.NoError(t, GenerateCyclesJob(runner, zap.NewNop())(context.Background()))
		runner.AssertExpectations(t)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		runner := new(mockRentCycleRunner)
		runner.On("CurrentPeriod").Return(dec)
		runner.On("GenerateMonthlyCycles", mock.Anything, dec).Return(nil, errors.New("db down"))

		err := GenerateCyclesJob(runner, zap.NewNop())(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "12/2024")
		runner.AssertNotCalled(t, "GenerateMonthlyCycles", mock.Anything, jan)
	})
}

func TestRefreshOverdueJob(t *testing.T) {
	runner := new(mockRentCycleRunner)
	runner.On("RefreshOverdue", mock.Anything).Return(&apprental.RefreshOverdueResult{MarkedOverdue: 2}, nil).Once()
	runner.On("RefreshOverdue", mock.Anything).Return(nil, errors.New("db down")).Once()

	job := RefreshOverdueJob(runner, zap.NewNop())
	assert.NoError(t, job(context.Background()))
	assert.ErrorContains(t, job(context.Background()), "db down")
	runner.AssertExpectations(t)
}

func TestRegisterRentJobs(t *testing.T) {
	period := rental.BillingPeriod{Month: 3, Year: 2024}
	runner := new(mockRentCycleRunner)
	runner.On("CurrentPeriod").Return(period)
	runner.On("GenerateMonthlyCycles", mock.Anything, mock.Anything).Return(&apprental.GenerateCyclesResult{}, nil)
	runner.On("RefreshOverdue", mock.Anything).Return(&apprental.RefreshOverdueResult{}, nil)

	s := newTestScheduler()
	require.NoError(t, RegisterRentJobs(s, runner, RentJobIntervals{Generation: time.Hour, Overdue: time.Hour}, nil))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	for _, name := range []string{JobRentCycleGeneration, JobOverdueRefresh} {
		assert.Eventually(t, func() bool {
			state, ok := s.State(name)
			return ok && state.Status == JobStatusSuccess
		}, time.Second, 5*time.Millisecond, name)
	}
	assert.ErrorIs(t, RegisterRentJobs(newTestScheduler(), runner, RentJobIntervals{}, nil), ErrInvalidConfig)
}
