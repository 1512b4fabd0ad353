package application

import (
	"context"
	"errors"
	"strings"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	"github.com/rs/zerolog"
)

// TenantProfile is the tenant as shown to the dashboard. The token itself is never exposed.
type TenantProfile struct {
	ID             domain.TenantID `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	ShopDomain     string          `json:"shopDomain"`
	HasAccessToken bool            `json:"hasAccessToken"`
}

// ProfileOf builds the public profile of a tenant
func ProfileOf(t *domain.Tenant) *TenantProfile {
	return &TenantProfile{
		ID:             t.ID,
		Name:           t.Name,
		Email:          t.Email,
		ShopDomain:     t.ShopDomain,
		HasAccessToken: t.AccessToken != "",
	}
}

// TenantService manages the storefront connection of tenants
type TenantService struct {
	store   ports.TenantRepository
	checker *CredentialsService
	logger  zerolog.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(store ports.TenantRepository, checker *CredentialsService, logger zerolog.Logger) *TenantService {
	return &TenantService{
		store:   store,
		checker: checker,
		logger:  logger,
	}
}

// ParseCredentials normalizes user supplied credentials and rejects empty ones
func ParseCredentials(shopDomain, accessToken string) (domain.Credentials, error) {
	creds := domain.Credentials{
		ShopDomain:  domain.NormalizeShopDomain(shopDomain),
		AccessToken: strings.TrimSpace(accessToken),
	}
	if creds.ShopDomain == "" || creds.AccessToken == "" {
		return creds, &domain.ConfigurationError{Reason: "missing shopify config"}
	}
	return creds, nil
}

// Connect stores credentials for a tenant, creating it if needed. Switching to a different
// shop wipes the data ingested from the previous one so shops are never mixed.
func (s *TenantService) Connect(ctx context.Context, tenantID domain.TenantID, shopDomain, accessToken string) (*TenantProfile, error) {
	creds, err := ParseCredentials(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}

	wipe := false
	existing, err := s.store.GetTenant(ctx, tenantID)
	switch {
	case errors.Is(err, domain.ErrTenantNotFound):
	case err != nil:
		return nil, err
	default:
		wipe = existing.ShopDomain != "" && !strings.EqualFold(existing.ShopDomain, creds.ShopDomain)
	}

	tenant, err := s.store.SaveCredentials(ctx, tenantID, creds, wipe)
	if err != nil {
		s.logger.Error().Err(err).Uint("tenant", uint(tenantID)).Msg("Failed to save shopify credentials")
		return nil, err
	}

	event := s.logger.Info().Uint("tenant", uint(tenantID)).Str("shop", creds.ShopDomain)
	if wipe {
		event = event.Str("previousShop", existing.ShopDomain)
	}
	event.Bool("wiped", wipe).Msg("Shopify connected")
	return ProfileOf(tenant), nil
}

// Disconnect wipes the tenant's ingested data and clears its credentials
func (s *TenantService) Disconnect(ctx context.Context, tenantID domain.TenantID) (*TenantProfile, error) {
	tenant, err := s.store.SaveCredentials(ctx, tenantID, domain.Credentials{}, true)
	if err != nil {
		s.logger.Error().Err(err).Uint("tenant", uint(tenantID)).Msg("Failed to disconnect shopify")
		return nil, err
	}
	s.logger.Info().Uint("tenant", uint(tenantID)).Msg("Shopify disconnected")
	return ProfileOf(tenant), nil
}

// Get returns the tenant profile
func (s *TenantService) Get(ctx context.Context, tenantID domain.TenantID) (*TenantProfile, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return ProfileOf(tenant), nil
}

// Tenant returns the full tenant record, credentials included, for ingestion
func (s *TenantService) Tenant(ctx context.Context, tenantID domain.TenantID) (*domain.Tenant, error) {
	return s.store.GetTenant(ctx, tenantID)
}

// CheckStored checks the credentials saved for a tenant
func (s *TenantService) CheckStored(ctx context.Context, tenantID domain.TenantID) (*domain.CredentialCheck, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if errors.Is(err, domain.ErrTenantNotFound) {
		return nil, &domain.ConfigurationError{Reason: "connect shopify first"}
	}
	if err != nil {
		return nil, err
	}
	if !tenant.CanIngest() {
		return nil, &domain.ConfigurationError{Reason: "connect shopify first"}
	}
	return s.checker.Check(ctx, tenant.Credentials())
}

// CheckTyped checks credentials without saving them
func (s *TenantService) CheckTyped(ctx context.Context, shopDomain, accessToken string) (*domain.CredentialCheck, error) {
	creds, err := ParseCredentials(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	return s.checker.Check(ctx, creds)
}
