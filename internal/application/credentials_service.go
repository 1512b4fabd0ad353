package application

import (
	"context"
	"errors"
	"fmt"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// CredentialsService checks storefront credentials before they are used for ingestion
type CredentialsService struct {
	client ports.StorefrontClient
	logger zerolog.Logger
}

// NewCredentialsService creates a new credentials service
func NewCredentialsService(client ports.StorefrontClient, logger zerolog.Logger) *CredentialsService {
	return &CredentialsService{
		client: client,
		logger: logger,
	}
}

// Check probes the shop endpoint, then one page of each resource concurrently.
// A failed shop probe ends the check with BaseOK false. Resource probes fail independently,
// and the check is OK when the shop probe and at least one resource probe succeed.
// The error is non-nil only for missing credentials.
func (s *CredentialsService) Check(ctx context.Context, creds domain.Credentials) (*domain.CredentialCheck, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	result := &domain.CredentialCheck{}

	shop, err := s.client.GetShop(ctx, creds)
	if err != nil {
		code, detail := describeFailure(err)
		s.logger.Warn().Err(err).Str("shop", creds.ShopDomain).Msg("Shopify auth check failed")
		result.StatusCode = code
		result.Error = fmt.Sprintf("Shopify auth check failed (%d): %s", code, detail)
		return result, nil
	}
	result.BaseOK = true
	result.Shop = creds.ShopDomain
	if shop != nil && shop.Name != "" {
		result.Shop = shop.Name
	}

	resources := domain.AllResources()
	probes := make([]domain.ResourceProbe, len(resources))

	var g errgroup.Group
	for i, resource := range resources {
		g.Go(func() error {
			probes[i] = s.probe(ctx, creds, resource)
			return nil
		})
	}
	_ = g.Wait()

	anyOK := false
	for i, resource := range resources {
		result.SetProbe(resource, probes[i])
		anyOK = anyOK || probes[i].OK
	}
	result.OK = result.BaseOK && anyOK

	s.logger.Info().
		Str("shop", creds.ShopDomain).
		Bool("ok", result.OK).
		Bool("orders", result.Orders.OK).
		Bool("customers", result.Customers.OK).
		Bool("products", result.Products.OK).
		Msg("Credential check finished")

	return result, nil
}

func (s *CredentialsService) probe(ctx context.Context, creds domain.Credentials, resource domain.Resource) domain.ResourceProbe {
	count, err := s.client.ProbeResource(ctx, creds, resource)
	if err != nil {
		code, detail := describeFailure(err)
		return domain.ResourceProbe{StatusCode: code, Error: detail}
	}
	return domain.ResourceProbe{OK: true, StatusCode: 200, Count: count}
}

// describeFailure extracts the upstream status code and detail of a client error
func describeFailure(err error) (int, string) {
	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Detail
	}
	return 0, err.Error()
}
