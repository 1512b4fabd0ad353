package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"shop-insights/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultInterval = 15 * time.Minute

// TenantSource lists the tenants a tick should ingest
type TenantSource interface {
	ListIngestableTenants(ctx context.Context) ([]*domain.Tenant, error)
}

// Ingester runs one ingestion for a tenant
type Ingester interface {
	IngestAll(ctx context.Context, tenant *domain.Tenant, trigger domain.Trigger) (*domain.IngestionRun, error)
}

// Config holds the scheduler settings
type Config struct {
	Interval time.Duration
	// MaxConcurrentTenants bounds how many tenants ingest at once, values below 1 mean one at a time
	MaxConcurrentTenants int
}

// DefaultConfig returns the default scheduler settings
func DefaultConfig() Config {
	return Config{
		Interval:             DefaultInterval,
		MaxConcurrentTenants: 1,
	}
}

// TenantResult is the outcome of one tenant within a tick
type TenantResult struct {
	TenantID domain.TenantID
	Run      *domain.IngestionRun
	Err      error
}

// TickReport summarizes one tick
type TickReport struct {
	StartedAt time.Time
	// Skipped is set when the tick did not run because the previous one was still busy
	Skipped bool
	// Err is set when the tenant list could not be loaded
	Err     error
	Results []TenantResult
}

// Failed returns how many tenants failed in the tick
func (r TickReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Scheduler re-runs ingestion for every connected tenant on a fixed interval.
// A tenant failure is logged and never stops the other tenants or the loop.
type Scheduler struct {
	tenants  TenantSource
	ingester Ingester
	config   Config
	logger   zerolog.Logger

	busy   atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new scheduler
func New(tenants TenantSource, ingester Ingester, config Config, logger zerolog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.MaxConcurrentTenants < 1 {
		config.MaxConcurrentTenants = 1
	}
	return &Scheduler{
		tenants:  tenants,
		ingester: ingester,
		config:   config,
		logger:   logger,
	}
}

// Start runs the tick loop in the background until Stop is called or ctx ends
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Int("maxConcurrentTenants", s.config.MaxConcurrentTenants).
		Msg("Scheduler started")
}

// Stop cancels the loop and waits for the running tick to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick ingests every eligible tenant once. It returns a skipped report when
// another tick is still running.
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	report := TickReport{StartedAt: time.Now()}
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("Previous sync tick still running, skipping")
		report.Skipped = true
		return report
	}
	defer s.busy.Store(false)

	tenants, err := s.tenants.ListIngestableTenants(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduler tick failed to list tenants")
		report.Err = err
		return report
	}

	report.Results = make([]TenantResult, len(tenants))
	g := new(errgroup.Group)
	g.SetLimit(s.config.MaxConcurrentTenants)
	for i, tenant := range tenants {
		g.Go(func() error {
			report.Results[i] = s.syncTenant(ctx, tenant)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info().
		Int("tenants", len(tenants)).
		Int("failed", report.Failed()).
		Dur("duration", time.Since(report.StartedAt)).
		Msg("Sync tick finished")
	return report
}

func (s *Scheduler) syncTenant(ctx context.Context, tenant *domain.Tenant) (result TenantResult) {
	result.TenantID = tenant.ID
	logger := s.logger.With().Uint("tenant", uint(tenant.ID)).Str("name", tenant.Name).Logger()

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("ingestion panicked: %v", r)
			logger.Error().Err(result.Err).Msg("Tenant sync error")
		}
	}()

	logger.Info().Msg("Starting tenant sync")
	run, err := s.ingester.IngestAll(ctx, tenant, domain.TriggerScheduler)
	result.Run = run
	result.Err = err
	if err != nil {
		logger.Error().Err(err).Msg("Tenant sync error")
		return result
	}
	logger.Info().
		Int("customers", run.Counts.Customers).
		Int("products", run.Counts.Products).
		Int("orders", run.Counts.Orders).
		Msg("Tenant sync done")
	return result
}
