package scheduler

import (
	"context"
	"errors"
	"fmt"

	"sbr_farm/internal/domain"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/service"
)

// SweepCrops counts Ready crops and publishes the gauge. Readiness is derived
// from harvest_at, so the sweep changes nothing in the store.
func (l *Loop) SweepCrops(ctx context.Context) (int64, error) {
	n, err := l.crops.CountReady(ctx)
	if err != nil {
		return 0, fmt.Errorf("count ready crops: %w", err)
	}
	ReadyCrops.Set(float64(n))
	logger.Debug("crop sweep", "ready", n)
	return n, nil
}

// DistributeVIP grants today's VIP benefits.
func (l *Loop) DistributeVIP(ctx context.Context) (*service.DistributionReport, error) {
	report, err := l.vip.Distribute(ctx)
	if report != nil {
		VIPGrants.WithLabelValues("granted").Add(float64(report.Granted))
		VIPGrants.WithLabelValues("skipped").Add(float64(report.Skipped))
		VIPGrants.WithLabelValues("failed").Add(float64(report.Failed))
	}
	if err != nil {
		return report, fmt.Errorf("distribute vip benefits: %w", err)
	}
	return report, nil
}

// ContestReport summarizes one rollover pass over every contest type.
type ContestReport struct {
	Opened       int                       `json:"opened"`
	Rollovers    []*service.RolloverResult `json:"rollovers"`
	Settled      int                       `json:"settled"`
	SettleFailed int                       `json:"settle_failed"`
}

// RolloverContests makes sure every type has an active contest, ends the
// ones whose period is over and retries pending prize settlements. A failing
// type is logged and does not stop the others.
func (l *Loop) RolloverContests(ctx context.Context) (*ContestReport, error) {
	report := &ContestReport{Rollovers: []*service.RolloverResult{}}
	var errs []error

	opened, err := l.contests.EnsureActive(ctx)
	report.Opened = len(opened)
	if err != nil {
		errs = append(errs, fmt.Errorf("ensure active contests: %w", err))
	}

	for _, t := range domain.ContestTypes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := l.contests.Rollover(ctx, t)
		if err != nil {
			logger.Error("contest rollover failed", "type", t, "kind", domain.KindOf(err), "error", err)
			errs = append(errs, fmt.Errorf("rollover %s: %w", t, err))
			continue
		}
		if !res.Ended {
			continue
		}
		report.Rollovers = append(report.Rollovers, res)
		ContestWinners.WithLabelValues(string(t)).Add(float64(len(res.Winners)))
		SettlementFailures.Add(float64(res.SettleFailures))
	}

	report.Settled, report.SettleFailed, err = l.contests.SettlePending(ctx)
	SettlementFailures.Add(float64(report.SettleFailed))
	if err != nil {
		errs = append(errs, fmt.Errorf("settle pending prizes: %w", err))
	}

	return report, errors.Join(errs...)
}
