package ports

import (
	"context"
	"iter"

	"shop-insights/internal/domain"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// StorefrontClient defines the storefront admin API operations used by ingestion.
// Page streams fetch lazily: page N+1 is requested only after the consumer has taken page N.
// A failed request ends the stream with a *domain.ExternalAPIError.
type StorefrontClient interface {
	// Shop API (base credential probe)
	GetShop(ctx context.Context, creds domain.Credentials) (*shopify.Shop, error)

	// ProbeResource fetches one page with limit=1 and returns the number of records it held
	ProbeResource(ctx context.Context, creds domain.Credentials, resource domain.Resource) (int, error)

	// Paginated listings
	CustomerPages(ctx context.Context, creds domain.Credentials) iter.Seq2[[]shopify.Customer, error]
	ProductPages(ctx context.Context, creds domain.Credentials) iter.Seq2[[]shopify.Product, error]
	OrderPages(ctx context.Context, creds domain.Credentials) iter.Seq2[[]shopify.Order, error]
}
