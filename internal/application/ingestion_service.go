package application

import (
	"context"
	"errors"
	"iter"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const recordRunTimeout = 5 * time.Second

// IngestionOptions tunes IngestAll
type IngestionOptions struct {
	// Timeout bounds a whole IngestAll call, zero means no deadline
	Timeout time.Duration
	// SkipUnreachable ingests only the resources whose preflight probe succeeded
	SkipUnreachable bool
}

// IngestionObservers receive every finished run. Nil members are ignored.
type IngestionObservers struct {
	RunLog    ports.RunLog
	Publisher ports.RunPublisher
	Metrics   ports.IngestionMetrics
}

// IngestionService pulls customers, products and orders of one tenant into the local store
type IngestionService struct {
	client    ports.StorefrontClient
	store     ports.IngestRepository
	checker   *CredentialsService
	lock      ports.IngestionLock
	observers IngestionObservers
	options   IngestionOptions
	logger    zerolog.Logger
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	client ports.StorefrontClient,
	store ports.IngestRepository,
	checker *CredentialsService,
	lock ports.IngestionLock,
	observers IngestionObservers,
	options IngestionOptions,
	logger zerolog.Logger,
) *IngestionService {
	return &IngestionService{
		client:    client,
		store:     store,
		checker:   checker,
		lock:      lock,
		observers: observers,
		options:   options,
		logger:    logger,
	}
}

// IngestAll runs the preflight check and then the three resource passes concurrently.
// The returned run is always non-nil. On error its counts are left empty, since rows
// written before the failure stay in place and are corrected by the next run.
func (s *IngestionService) IngestAll(ctx context.Context, tenant *domain.Tenant, trigger domain.Trigger) (*domain.IngestionRun, error) {
	run := &domain.IngestionRun{
		ID:        uuid.NewString(),
		TenantID:  tenant.ID,
		Trigger:   trigger,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	creds := tenant.Credentials()
	run.ShopDomain = creds.ShopDomain

	logger := s.logger.With().
		Uint("tenant", uint(tenant.ID)).
		Str("shop", creds.ShopDomain).
		Str("trigger", string(trigger)).
		Str("run", run.ID).
		Logger()

	if err := creds.Validate(); err != nil {
		return s.fail(run, logger, err)
	}

	release, err := s.lock.Acquire(ctx, tenant.ID)
	if err != nil {
		if errors.Is(err, domain.ErrIngestionInProgress) {
			run.Finish(domain.RunStatusSkipped, err)
			s.record(run, logger)
			return run, err
		}
		return s.fail(run, logger, err)
	}
	defer release()

	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}

	logger.Info().Msg("Starting ingestion")
	s.publish(run, logger)

	check, err := s.checker.Check(ctx, creds)
	if err != nil {
		return s.fail(run, logger, err)
	}
	if !check.OK {
		return s.fail(run, logger, &domain.CredentialCheckError{Result: check})
	}

	resources := domain.AllResources()
	if s.options.SkipUnreachable {
		resources = check.Reachable()
		for _, r := range domain.AllResources() {
			if !check.Probe(r).OK {
				run.Skipped = append(run.Skipped, r)
			}
		}
		if len(run.Skipped) > 0 {
			logger.Warn().Interface("skipped", run.Skipped).Msg("Skipping resources the credentials cannot read")
		}
	}

	counts, err := s.runPasses(ctx, tenant.ID, creds, resources, logger)
	if err != nil {
		return s.fail(run, logger, err)
	}

	run.Counts = counts
	run.Finish(domain.RunStatusSucceeded, nil)
	logger.Info().
		Int("customers", counts.Customers).
		Int("products", counts.Products).
		Int("orders", counts.Orders).
		Dur("duration", run.Duration()).
		Msg("Ingestion finished")
	s.record(run, logger)
	return run, nil
}

// runPasses ingests each resource in its own goroutine. The first failure cancels the others.
func (s *IngestionService) runPasses(
	ctx context.Context,
	tenantID domain.TenantID,
	creds domain.Credentials,
	resources []domain.Resource,
	logger zerolog.Logger,
) (domain.IngestCounts, error) {
	counts := make([]int, len(resources))
	g, gctx := errgroup.WithContext(ctx)
	for i, resource := range resources {
		g.Go(func() error {
			n, err := s.ingestResource(gctx, tenantID, creds, resource)
			counts[i] = n
			if err != nil {
				logger.Error().Err(err).Str("resource", string(resource)).Int("processed", n).Msg("Ingestion pass failed")
				return err
			}
			logger.Debug().Str("resource", string(resource)).Int("processed", n).Msg("Ingestion pass finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.IngestCounts{}, err
	}

	var total domain.IngestCounts
	for i, resource := range resources {
		total.Add(resource, counts[i])
	}
	return total, nil
}

func (s *IngestionService) ingestResource(ctx context.Context, tenantID domain.TenantID, creds domain.Credentials, resource domain.Resource) (int, error) {
	switch resource {
	case domain.ResourceCustomers:
		return ingestPages(s.client.CustomerPages(ctx, creds), func(c goshopify.Customer) error {
			_, err := s.store.UpsertCustomer(ctx, tenantID, CustomerRecordFrom(c))
			return err
		})
	case domain.ResourceProducts:
		return ingestPages(s.client.ProductPages(ctx, creds), func(p goshopify.Product) error {
			_, err := s.store.UpsertProduct(ctx, tenantID, ProductRecordFrom(p))
			return err
		})
	case domain.ResourceOrders:
		return ingestPages(s.client.OrderPages(ctx, creds), func(o goshopify.Order) error {
			_, err := s.store.UpsertOrder(ctx, tenantID, OrderRecordFrom(o))
			return err
		})
	}
	return 0, nil
}

// ingestPages upserts each record as its page arrives and returns how many were written
func ingestPages[T any](seq iter.Seq2[[]T, error], upsert func(T) error) (int, error) {
	n := 0
	for page, err := range seq {
		if err != nil {
			return n, err
		}
		for _, item := range page {
			if err := upsert(item); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *IngestionService) fail(run *domain.IngestionRun, logger zerolog.Logger, err error) (*domain.IngestionRun, error) {
	run.Finish(domain.RunStatusFailed, err)
	logger.Error().Err(err).Msg("Ingestion failed")
	s.record(run, logger)
	return run, err
}

// publish announces a run that has started
func (s *IngestionService) publish(run *domain.IngestionRun, logger zerolog.Logger) {
	if s.observers.Publisher != nil {
		snapshot := *run
		s.observers.Publisher.Publish(&snapshot)
	}
	if s.observers.RunLog != nil {
		s.saveRun(run, logger)
	}
}

// record publishes a finished run to every observer. A failing run log never fails ingestion.
func (s *IngestionService) record(run *domain.IngestionRun, logger zerolog.Logger) {
	if s.observers.Metrics != nil {
		s.observers.Metrics.ObserveRun(run)
	}
	if s.observers.Publisher != nil {
		snapshot := *run
		s.observers.Publisher.Publish(&snapshot)
	}
	if s.observers.RunLog != nil {
		s.saveRun(run, logger)
	}
}

func (s *IngestionService) saveRun(run *domain.IngestionRun, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), recordRunTimeout)
	defer cancel()
	if err := s.observers.RunLog.SaveRun(ctx, run); err != nil {
		logger.Warn().Err(err).Msg("Failed to save ingestion run")
	}
}

// ListRuns returns the latest recorded runs of a tenant
func (s *IngestionService) ListRuns(ctx context.Context, tenantID domain.TenantID, limit int) ([]*domain.IngestionRun, error) {
	if s.observers.RunLog == nil {
		return []*domain.IngestionRun{}, nil
	}
	return s.observers.RunLog.ListRuns(ctx, tenantID, limit)
}
