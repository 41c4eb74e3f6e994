package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/domain/project"
	redisinfra "github.com/efilo-ai/compliance-engine/internal/infrastructure/database/redis"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/prometheus"
)

// Cron schedules, in UTC.  Severity classification runs hourly so WARNING
// and CRITICAL transitions land within the hour they occur; snapshots run
// after midnight in every US timezone; the digest opens the work week.
const (
	scheduleSeveritySweep = "0 * * * *"
	scheduleDailySnapshot = "0 2 * * *"
	scheduleWeeklyDigest  = "0 8 * * 1"
)

// scheduler owns the periodic jobs.  Every job runs under a redis lock so a
// single replica owns each tick.
type scheduler struct {
	locks     redisinfra.LockFactory
	deadlines appcompliance.DeadlineService
	scores    appcompliance.ScoreService
	alerts    appcompliance.AlertService
	deadRepo  domain.DeadlineRepository
	projects  project.Repository
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

func (s *scheduler) register(c *cron.Cron) error {
	jobs := []struct {
		spec    string
		name    string
		timeout time.Duration
		fn      func(ctx context.Context) error
	}{
		{scheduleSeveritySweep, "severity_sweep", 10 * time.Minute, s.severitySweep},
		{scheduleDailySnapshot, "daily_snapshot", 15 * time.Minute, s.dailySnapshot},
		{scheduleWeeklyDigest, "weekly_digest", 30 * time.Minute, s.weeklyDigest},
	}
	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(job.spec, func() {
			s.runLocked(job.name, job.timeout, job.fn)
		}); err != nil {
			return err
		}
	}
	return nil
}

// runLocked runs fn once per tick cluster-wide.  Losing the lock race means
// another replica owns the tick.
func (s *scheduler) runLocked(job string, timeout time.Duration, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	lock := s.locks.NewMutex("cron:"+job, redisinfra.WithLockTTL(timeout))
	acquired, err := lock.TryLock(ctx)
	if err != nil {
		s.logger.Warn("cron lock unavailable, skipping tick",
			logging.String("job", job), logging.Err(err))
		return
	}
	if !acquired {
		s.logger.Debug("cron tick owned by another replica", logging.String("job", job))
		return
	}
	defer func() {
		if err := lock.Unlock(context.Background()); err != nil {
			s.logger.Warn("cron lock release failed",
				logging.String("job", job), logging.Err(err))
		}
	}()

	start := time.Now()
	err = fn(ctx)
	prometheus.RecordCronRun(s.metrics, job, err, time.Since(start))
	if err != nil {
		s.logger.Error("cron job failed", logging.String("job", job), logging.Err(err))
		return
	}
	s.logger.Info("cron job completed",
		logging.String("job", job),
		logging.Duration("duration", time.Since(start)),
	)
}

// severitySweep reclassifies every open deadline and dispatches alerts for
// anything at WARNING or above.
func (s *scheduler) severitySweep(ctx context.Context) error {
	projects, err := s.deadRepo.ProjectsWithOpenDeadlines(ctx)
	if err != nil {
		return err
	}
	for _, projectID := range projects {
		if _, err := s.deadlines.RecalculateSeverities(ctx, projectID); err != nil {
			s.logger.Error("severity recalculation failed",
				logging.String("project_id", string(projectID)), logging.Err(err))
			continue
		}
		if _, err := s.alerts.CheckDeadlines(ctx, projectID); err != nil {
			s.logger.Error("deadline alert pass failed",
				logging.String("project_id", string(projectID)), logging.Err(err))
		}
	}
	return nil
}

// dailySnapshot writes one daily score history point per project.  Every
// project gets a point, open deadlines or not, so history lines never gap.
func (s *scheduler) dailySnapshot(ctx context.Context) error {
	projects, err := s.projects.ListProjectIDs(ctx)
	if err != nil {
		return err
	}
	for _, projectID := range projects {
		if _, err := s.scores.Snapshot(ctx, projectID, domain.PeriodDaily); err != nil {
			s.logger.Error("score snapshot failed",
				logging.String("project_id", string(projectID)), logging.Err(err))
			continue
		}
		s.metrics.ScoreSnapshotsTotal.WithLabelValues(string(domain.PeriodDaily)).Inc()
	}
	return nil
}

// weeklyDigest emails the compliance summary for every project.
func (s *scheduler) weeklyDigest(ctx context.Context) error {
	projects, err := s.projects.ListProjectIDs(ctx)
	if err != nil {
		return err
	}
	for _, projectID := range projects {
		if err := s.alerts.WeeklySummary(ctx, projectID); err != nil {
			s.logger.Error("weekly digest failed",
				logging.String("project_id", string(projectID)), logging.Err(err))
		}
	}
	return nil
}
