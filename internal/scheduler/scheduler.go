// Package scheduler runs the periodic jobs of the farm: the ready-crop sweep,
// the daily VIP benefit distribution and the end-of-day contest rollover.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/service"

	"github.com/go-co-op/gocron/v2"
)

const (
	JobCropSweep       = "crop_sweep"
	JobVIPBenefits     = "vip_benefits"
	JobContestRollover = "contest_rollover"
)

// JobNames lists every job in registration order.
var JobNames = []string{JobCropSweep, JobVIPBenefits, JobContestRollover}

// Schedule holds the job cadences. All times are UTC.
type Schedule struct {
	SweepEvery time.Duration
	VIPAt      [3]uint // hour, minute, second
	ContestAt  [3]uint
}

func DefaultSchedule() Schedule {
	return Schedule{
		SweepEvery: 5 * time.Minute,
		VIPAt:      [3]uint{0, 0, 0},
		ContestAt:  [3]uint{23, 30, 0},
	}
}

// Loop owns the gocron scheduler. The job bodies are also callable directly
// (RunNow) for admin endpoints and the CLI.
type Loop struct {
	crops    *service.Crops
	vip      *service.VIP
	contests *service.Contests
	clock    clock.Clock
	locker   gocron.Locker
	schedule Schedule

	mu     sync.Mutex
	sched  gocron.Scheduler
	cancel context.CancelFunc
}

// New builds a stopped loop. locker may be nil for a single replica.
func New(crops *service.Crops, vip *service.VIP, contests *service.Contests, clk clock.Clock, locker gocron.Locker, schedule Schedule) *Loop {
	return &Loop{crops: crops, vip: vip, contests: contests, clock: clk, locker: locker, schedule: schedule}
}

// Start registers the jobs and starts scheduling. Jobs run in singleton mode:
// a run that is still going when the next one is due pushes that one back.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sched != nil {
		return errors.New("scheduler: already started")
	}

	opts := []gocron.SchedulerOption{
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logger.Component("scheduler")),
		gocron.WithClock(l.clock),
		gocron.WithStopTimeout(time.Minute),
	}
	if l.locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(l.locker))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	at := func(t [3]uint) gocron.JobDefinition {
		return gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(t[0], t[1], t[2])))
	}
	defs := map[string]gocron.JobDefinition{
		JobCropSweep:       gocron.DurationJob(l.schedule.SweepEvery),
		JobVIPBenefits:     at(l.schedule.VIPAt),
		JobContestRollover: at(l.schedule.ContestAt),
	}
	for _, name := range JobNames {
		_, err := sched.NewJob(
			defs[name],
			gocron.NewTask(func() error {
				_, err := l.run(ctx, name)
				return err
			}),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			_ = sched.Shutdown()
			return fmt.Errorf("register %s: %w", name, err)
		}
	}

	sched.Start()
	l.sched, l.cancel = sched, cancel
	logger.Info("scheduler started", "sweep_every", l.schedule.SweepEvery,
		"vip_at", fmt.Sprintf("%02d:%02d", l.schedule.VIPAt[0], l.schedule.VIPAt[1]),
		"contest_at", fmt.Sprintf("%02d:%02d", l.schedule.ContestAt[0], l.schedule.ContestAt[1]),
		"distributed_lock", l.locker != nil)
	return nil
}

// Stop cancels the job context, so batch loops start no new user, then waits
// for in-flight runs to return.
func (l *Loop) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sched == nil {
		return nil
	}
	l.cancel()
	err := l.sched.Shutdown()
	l.sched = nil
	logger.Info("scheduler stopped")
	return err
}

// JobInfo describes a registered job for the admin API.
type JobInfo struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
}

// Jobs lists the registered jobs; it is empty while the loop is stopped.
func (l *Loop) Jobs() []JobInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sched == nil {
		return nil
	}
	var out []JobInfo
	for _, j := range l.sched.Jobs() {
		info := JobInfo{Name: j.Name()}
		info.NextRun, _ = j.NextRun()
		info.LastRun, _ = j.LastRun()
		out = append(out, info)
	}
	return out
}

// RunNow executes the named job synchronously with the caller's context and
// returns its report.
func (l *Loop) RunNow(ctx context.Context, name string) (any, error) {
	switch name {
	case JobCropSweep, JobVIPBenefits, JobContestRollover:
		return l.run(ctx, name)
	}
	return nil, fmt.Errorf("%w: unknown job %q", domain.ErrValidation, name)
}

func (l *Loop) run(ctx context.Context, name string) (report any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		result := "ok"
		if err != nil {
			result = "error"
			logger.Error("scheduler job failed", "job", name, "error", err)
		}
		JobRuns.WithLabelValues(name, result).Inc()
		JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	switch name {
	case JobCropSweep:
		return l.SweepCrops(ctx)
	case JobVIPBenefits:
		return l.DistributeVIP(ctx)
	default:
		return l.RolloverContests(ctx)
	}
}
