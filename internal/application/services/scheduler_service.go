package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/internal/metrics"
)

// Job names
const (
	JobExpireBudgets  = "expire_budgets"
	JobDeliverDue     = "deliver_due_projects"
	JobTaskReminders  = "task_reminders"
	JobOutboxCleanup  = "outbox_cleanup"
	jobMaxRuntime     = 10 * time.Minute
	outboxRetention   = 7 * 24 * time.Hour
	cleanupDailySpec  = "30 3 * * *"
	defaultDailySpec  = "0 7 * * *"
	lockStaleAfterJob = 2 * jobMaxRuntime
)

// JobLocker keeps one instance of each job running across replicas.
type JobLocker interface {
	EnsureJob(ctx context.Context, job string) error
	AcquireExecutionLock(ctx context.Context, job string, staleAfter time.Duration) (bool, error)
	ReleaseExecutionLock(ctx context.Context, job string, runErr error) error
	ListJobs(ctx context.Context) ([]persistence.JobLock, error)
}

// Job is one scheduled unit of work.
type Job struct {
	Name string
	Spec string
	// BusinessDaysOnly skips the run on weekends and holidays.
	BusinessDaysOnly bool
	Run              func(ctx context.Context) error
}

// SchedulerService runs the daily maintenance jobs on a cron schedule in
// the configured time zone.
type SchedulerService struct {
	cron   *cron.Cron
	locks  JobLocker
	days   businessDay
	jobs   map[string]Job
	log    *logrus.Entry
	wg     sync.WaitGroup
	mu     sync.Mutex
	active bool
}

// NewSchedulerService creates a scheduler. Jobs are added with Register.
func NewSchedulerService(locks JobLocker, days businessDay) *SchedulerService {
	loc := days.loc
	if loc == nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &SchedulerService{
		cron:  cron.New(cron.WithLocation(loc), cron.WithParser(parser)),
		locks: locks,
		days:  days,
		jobs:  make(map[string]Job),
		log:   logging.WithComponent("scheduler"),
	}
}

// Register adds a job to the schedule.
func (s *SchedulerService) Register(job Job) error {
	if job.Spec == "" {
		job.Spec = defaultDailySpec
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.runScheduled(job) }); err != nil {
		return fmt.Errorf("invalid cron expression for %s: %w", job.Name, err)
	}
	s.jobs[job.Name] = job
	return nil
}

// RegisterDefaults installs the standard maintenance jobs.
func (s *SchedulerService) RegisterDefaults(dailySpec string, budgets *BudgetService, projects *ProjectService, outbox *OutboxService, authSvc *AuthService) error {
	jobs := []Job{
		{
			Name: JobExpireBudgets, Spec: dailySpec, BusinessDaysOnly: true,
			Run: func(ctx context.Context) error {
				n, err := budgets.ExpireOverdue(ctx, s.days.today())
				if n > 0 {
					s.log.Infof("⌛ Expired %d budgets", n)
				}
				return err
			},
		},
		{
			Name: JobDeliverDue, Spec: dailySpec, BusinessDaysOnly: true,
			Run: func(ctx context.Context) error {
				n, err := projects.DeliverDue(ctx, s.days.today())
				if n > 0 {
					s.log.Infof("📦 Marked %d projects delivered", n)
				}
				return err
			},
		},
		{
			Name: JobTaskReminders, Spec: dailySpec, BusinessDaysOnly: true,
			Run: func(ctx context.Context) error {
				n, err := projects.RemindDueTasks(ctx)
				if n > 0 {
					s.log.Infof("🔔 Queued %d task reminders", n)
				}
				return err
			},
		},
		{
			Name: JobOutboxCleanup, Spec: cleanupDailySpec,
			Run: func(ctx context.Context) error {
				n, err := outbox.CleanupProcessed(ctx, outboxRetention)
				if err != nil {
					return err
				}
				expired, err := authSvc.CleanupSessions(ctx, s.days.now().UTC())
				if err != nil {
					return err
				}
				s.log.Infof("🧹 Removed %d outbox events and %d expired sessions", n, expired)
				return nil
			},
		},
	}
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// Start registers the job lock rows and starts the cron loop.
func (s *SchedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}
	for name := range s.jobs {
		if err := s.locks.EnsureJob(ctx, name); err != nil {
			return fmt.Errorf("failed to register job %s: %w", name, err)
		}
	}
	s.cron.Start()
	s.active = true
	s.log.Infof("⏰ Scheduler started with %d jobs", len(s.jobs))
	return nil
}

// Stop waits for running jobs to complete
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	s.log.Info("⏰ Scheduler service stopping...")
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("⏰ Scheduler service stopped")
}

// JobNames lists the registered jobs, sorted.
func (s *SchedulerService) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns the persisted run state of the jobs.
func (s *SchedulerService) Status(ctx context.Context) ([]persistence.JobLock, error) {
	return s.locks.ListJobs(ctx)
}

func (s *SchedulerService) runScheduled(job Job) {
	s.wg.Add(1)
	defer s.wg.Done()
	if _, err := s.RunJob(context.Background(), job.Name); err != nil {
		s.log.Warnf("⚠️ Job %s failed: %v", job.Name, err)
	}
}

// RunJob executes a job now with its safety guards. It reports false when
// the job was skipped because it is not a business day or another instance
// holds the lock.
func (s *SchedulerService) RunJob(ctx context.Context, name string) (ran bool, err error) {
	job, ok := s.jobs[name]
	if !ok {
		return false, fmt.Errorf("unknown job %q", name)
	}
	log := s.log.WithField("job", name)

	if job.BusinessDaysOnly && !s.days.cal.IsBusinessDay(s.days.today()) {
		log.Debug("⏭️ Not a business day, skipping")
		return false, nil
	}

	// 1. Atomically acquire execution lock
	acquired, err := s.locks.AcquireExecutionLock(ctx, name, lockStaleAfterJob)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		log.Info("⏭️ Job is already running, skipping")
		return false, nil
	}

	// 2. Ensure cleanup on exit (panic recovery)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 Panic in job: %v", r)
			ran, err = true, fmt.Errorf("panic: %v", r)
		}
		if relErr := s.locks.ReleaseExecutionLock(context.Background(), name, err); relErr != nil {
			log.Warnf("⚠️ Failed to release execution lock: %v", relErr)
		}
		metrics.RecordJob(name, err)
	}()

	// 3. Run with a timeout
	runCtx, cancel := context.WithTimeout(ctx, jobMaxRuntime)
	defer cancel()

	start := time.Now()
	if err = job.Run(runCtx); err != nil {
		log.Errorf("❌ Job failed after %v: %v", time.Since(start), err)
		return true, err
	}
	log.Infof("✅ Job completed in %v", time.Since(start))
	return true, nil
}
