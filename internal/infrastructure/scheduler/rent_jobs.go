package scheduler

import (
	"context"
	"fmt"
	"time"

	apprental "github.com/shantivaas/rental/internal/application/rental"
	"github.com/shantivaas/rental/internal/domain/rental"
	"go.uber.org/zap"
)

// Rent job names
const (
	JobRentCycleGeneration = "rent-cycle-generation"
	JobOverdueRefresh      = "overdue-refresh"
)

// RentCycleRunner is the slice of the rent cycle service the jobs drive
type RentCycleRunner interface {
	CurrentPeriod() rental.BillingPeriod
	GenerateMonthlyCycles(ctx context.Context, period rental.BillingPeriod) (*apprental.GenerateCyclesResult, error)
	RefreshOverdue(ctx context.Context) (*apprental.RefreshOverdueResult, error)
}

// RentJobIntervals sets how often each rent job runs
type RentJobIntervals struct {
	Generation time.Duration
	Overdue    time.Duration
}

// RegisterRentJobs adds the cycle generation and overdue refresh jobs.
// Both run once at start so a restarted server catches up immediately.
func RegisterRentJobs(s *Scheduler, runner RentCycleRunner, intervals RentJobIntervals, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := s.Register(Job{
		Name:       JobRentCycleGeneration,
		Interval:   intervals.Generation,
		RunOnStart: true,
		Run:        GenerateCyclesJob(runner, logger),
	}); err != nil {
		return err
	}

	return s.Register(Job{
		Name:       JobOverdueRefresh,
		Interval:   intervals.Overdue,
		RunOnStart: true,
		Run:        RefreshOverdueJob(runner, logger),
	})
}

// GenerateCyclesJob ensures the current and next period's cycles exist
func GenerateCyclesJob(runner RentCycleRunner, logger *zap.Logger) JobFunc {
	return func(ctx context.Context) error {
		current := runner.CurrentPeriod()
		for _, period := range []rental.BillingPeriod{current, current.Next()} {
			result, err := runner.GenerateMonthlyCycles(ctx, period)
			if err != nil {
				return fmt.Errorf("generate cycles for %s: %w", period, err)
			}
			if result.Created > 0 {
				logger.Info("Scheduled rent cycle generation created cycles",
					zap.String("period", period.String()),
					zap.Int("created", result.Created))
			}
		}
		return nil
	}
}

// RefreshOverdueJob flags overdue cycles and applies late fees
func RefreshOverdueJob(runner RentCycleRunner, logger *zap.Logger) JobFunc {
	return func(ctx context.Context) error {
		result, err := runner.RefreshOverdue(ctx)
		if err != nil {
			return fmt.Errorf("refresh overdue cycles: %w", err)
		}
		logger.Debug("Scheduled overdue refresh finished",
			zap.Int("marked_overdue", result.MarkedOverdue),
			zap.Int("late_fee_applied", result.LateFeeApplied))
		return nil
	}
}
