package vacancies

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/flock"

	"github.com/amishk599/vacancycache/internal/adapter"
	"github.com/amishk599/vacancycache/internal/cache"
	"github.com/amishk599/vacancycache/internal/model"
	"github.com/amishk599/vacancycache/internal/poller"
	"github.com/amishk599/vacancycache/internal/scheduler"
)

// RefreshJobName is the scheduler job that refreshes the snapshot.
const RefreshJobName = "workable_fetch_api_vacancies"

// Scheduler is the subset of the scheduler the service registers with.
type Scheduler interface {
	IsScheduled(name string) bool
	Schedule(name string, interval time.Duration, job scheduler.Job) bool
}

// Options configures a Service.
type Options struct {
	Subdomain   string
	AccessToken string
	Interval    time.Duration // defaults to hourly
	LockPath    string        // cross-process refresh lock; empty disables it

	HTTPClient     *http.Client
	AdapterOptions []adapter.Option
}

// Service is the entry point the rest of the application uses: it registers
// the periodic refresh and serves reads through the cache. Without a
// subdomain and access token it is inert and never talks to Workable.
type Service struct {
	cache    *cache.VacancyCache
	poller   *poller.VacancyPoller
	interval time.Duration
	lock     *flock.Flock
	logger   *slog.Logger
}

// New builds the service. The upstream client is only created when both
// credentials are present.
func New(opts Options, vc *cache.VacancyCache, logger *slog.Logger) *Service {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	s := &Service{
		cache:    vc,
		interval: interval,
		logger:   logger,
	}

	if opts.Subdomain == "" || opts.AccessToken == "" {
		logger.Warn("workable subdomain or access token missing, vacancy refresh disabled")
		return s
	}

	client := adapter.NewWorkableAdapter(opts.Subdomain, opts.AccessToken, opts.HTTPClient, logger, opts.AdapterOptions...)
	s.poller = poller.NewVacancyPoller(client, vc, logger)
	if opts.LockPath != "" {
		s.lock = flock.New(opts.LockPath)
	}

	logger.Info("workable vacancy service configured",
		"base_url", client.BaseURL(),
		"interval", interval.String(),
	)
	return s
}

// Active reports whether the service was configured with credentials.
func (s *Service) Active() bool {
	return s.poller != nil
}

// InitScheduler registers the hourly refresh unless an equivalent job is
// already scheduled. It returns true only when it added the job.
func (s *Service) InitScheduler(sched Scheduler) bool {
	if !s.Active() {
		return false
	}
	if sched.IsScheduled(RefreshJobName) {
		return false
	}
	return sched.Schedule(RefreshJobName, s.interval, s.RefreshJob)
}

// RefreshJob is the scheduled callback: it rebuilds and caches the snapshot
// without returning it. If another process holds the refresh lock the cycle
// is skipped.
func (s *Service) RefreshJob(ctx context.Context) error {
	if !s.Active() {
		return model.ErrNotConfigured
	}

	if s.lock != nil {
		locked, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring refresh lock %s: %w", s.lock.Path(), err)
		}
		if !locked {
			s.logger.Info("refresh already running elsewhere, skipping cycle", "lock", s.lock.Path())
			return nil
		}
		defer s.lock.Unlock()
	}

	return s.poller.Refresh(ctx)
}

// FetchVacancies runs a refresh cycle and returns the collection it cached.
func (s *Service) FetchVacancies(ctx context.Context) ([]model.Vacancy, error) {
	if !s.Active() {
		return nil, model.ErrNotConfigured
	}
	return s.poller.FetchVacancies(ctx)
}

// GetVacancies returns the cached snapshot. On a miss it refreshes
// synchronously. An inert service can only serve what is already cached.
func (s *Service) GetVacancies(ctx context.Context) ([]model.Vacancy, error) {
	if s.Active() {
		return s.cache.ReadThrough(ctx, s.poller)
	}

	vacancies, found, err := s.cache.Read(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, model.ErrNotConfigured
	}
	return vacancies, nil
}
