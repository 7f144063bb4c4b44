package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_scheduler_job_runs_total",
			Help: "Scheduler job runs by outcome",
		},
		[]string{"job", "result"},
	)
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farm_scheduler_job_duration_seconds",
			Help:    "Wall time of scheduler job runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"job"},
	)
	ReadyCrops = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "farm_ready_crops",
			Help: "Crops ready for harvest at the last sweep",
		},
	)
	VIPGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_vip_benefit_grants_total",
			Help: "VIP benefit grants by outcome (granted, skipped, failed)",
		},
		[]string{"result"},
	)
	ContestWinners = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_contest_winners_total",
			Help: "Winners drawn per contest type",
		},
		[]string{"type"},
	)
	SettlementFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farm_contest_settlement_failures_total",
			Help: "Prize settlements that failed and were left pending",
		},
	)
)

func init() {
	prometheus.MustRegister(JobRuns, JobDuration, ReadyCrops, VIPGrants, ContestWinners, SettlementFailures)
}
