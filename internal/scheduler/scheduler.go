package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"icsfix/internal/config"
	"icsfix/internal/fetch"
	"icsfix/internal/ics"
	appLog "icsfix/internal/log"
	"icsfix/internal/metrics"
	"icsfix/internal/model"
)

// maxParallelJobs bounds concurrent feed fetches during a refresh.
const maxParallelJobs = 4

// Fetcher loads the raw ICS text of a job source.
type Fetcher interface {
	Fetch(ctx context.Context, src fetch.Source) (fetch.Payload, error)
}

// Scheduler periodically re-fetches configured feeds, reshapes them and
// publishes the results into a Store.
type Scheduler struct {
	cfg     *config.Config
	fetcher Fetcher
	store   *Store
	now     func() time.Time

	cron *cron.Cron
}

func New(cfg *config.Config, fetcher Fetcher, store *Store) *Scheduler {
	for _, job := range cfg.Jobs {
		store.ensure(job.ID, job.Name)
	}
	return &Scheduler{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
	}
}

// Start runs one refresh immediately and then follows cfg.RefreshCron until
// ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.cfg.Jobs) == 0 {
		appLog.Info("no feed jobs configured; scheduler idle")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() {
		_ = s.RefreshAll(ctx)
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.cfg.RefreshCron, err)
	}

	_ = s.RefreshAll(ctx)
	s.cron.Start()
	appLog.Info("scheduler started", "refresh", s.cfg.RefreshCron, "jobs", len(s.cfg.Jobs))

	go func() {
		<-ctx.Done()
		stopped := s.cron.Stop()
		<-stopped.Done()
		appLog.Info("scheduler stopped")
	}()
	return nil
}

// RefreshAll refreshes every job. One failing job never blocks the others;
// the returned error joins all failures.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	started := time.Now()
	defer func() {
		metrics.JobRefreshDuration.Observe(time.Since(started).Seconds())
	}()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(maxParallelJobs)

	for _, job := range s.cfg.Jobs {
		job := job
		g.Go(func() error {
			if err := s.refreshJob(ctx, job); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		err := errors.Join(errs...)
		appLog.Error("feed refresh finished with failures", err, "failed", len(errs), "jobs", len(s.cfg.Jobs))
		return err
	}
	appLog.Debug("feed refresh finished", "jobs", len(s.cfg.Jobs))
	return nil
}

func (s *Scheduler) refreshJob(ctx context.Context, job config.JobConfig) error {
	now := s.now()

	res, fromCache, err := s.process(ctx, job, now)
	if err != nil {
		s.store.fail(job.ID, job.Name, err, now)
		metrics.JobRefreshes.WithLabelValues(job.ID, metrics.OutcomeFailed).Inc()
		return err
	}

	s.store.put(job.ID, job.Name, res, fromCache, now)
	metrics.JobRefreshes.WithLabelValues(job.ID, metrics.OutcomeOK).Inc()
	metrics.ObserveResult("scheduler", res)
	return nil
}

func (s *Scheduler) process(ctx context.Context, job config.JobConfig, now time.Time) (model.Result, bool, error) {
	start, err := ics.AnchorOption(job.StartDate, now.In(s.cfg.Location()))
	if err != nil {
		return model.Result{}, false, err
	}

	payload, err := s.fetcher.Fetch(ctx, fetch.Source{ID: job.ID, Location: job.URL})
	if err != nil {
		return model.Result{}, false, err
	}

	res, err := ics.Process(string(payload.Body), model.Options{
		StartDate:   start,
		Weekly:      job.Weekly,
		WeeklyCount: job.WeeklyCount,
		GeneratedAt: now,
	})
	if err != nil {
		return model.Result{}, false, err
	}
	return res, payload.FromCache, nil
}
