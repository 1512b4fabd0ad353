package shopify

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultAPIVersion     = "2024-10"
	DefaultPageSize       = 250
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds the storefront API settings
type Config struct {
	APIVersion     string
	PageSize       int
	RequestTimeout time.Duration
	// Transport overrides the HTTP transport, nil uses http.DefaultTransport
	Transport http.RoundTripper
}

// DefaultConfig returns the production API settings
func DefaultConfig() Config {
	return Config{
		APIVersion:     DefaultAPIVersion,
		PageSize:       DefaultPageSize,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// RequestObserver is notified of every storefront request attempt
type RequestObserver interface {
	ObserveRequest(resource string, statusCode int, elapsed time.Duration)
}

type client struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	observer    RequestObserver
	logger      zerolog.Logger
}

// listOptions is encoded into the query string of the first page request.
// Follow-up pages use the cursor options parsed from the Link header instead.
type listOptions struct {
	Limit  int    `url:"limit,omitempty"`
	Status string `url:"status,omitempty"`
}

// NewClient creates a new storefront client adapter without rate limiting
func NewClient(config Config) ports.StorefrontClient {
	return NewClientWithOptions(config, nil, DefaultRetryConfig(), nil, zerolog.Nop())
}

// NewClientWithOptions creates a client with rate limiting, retry and request metrics
func NewClientWithOptions(
	config Config,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	observer RequestObserver,
	logger zerolog.Logger,
) ports.StorefrontClient {
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	return &client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.RequestTimeout,
			Transport: config.Transport,
		},
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		observer:    observer,
		logger:      logger,
	}
}

// createClient is a helper to create a goshopify client for one shop
func (c *client) createClient(creds domain.Credentials) (*goshopify.Client, error) {
	api, err := goshopify.NewClient(
		goshopify.App{},
		creds.ShopDomain,
		creds.AccessToken,
		goshopify.WithVersion(c.config.APIVersion),
		goshopify.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, &domain.ExternalAPIError{Detail: fmt.Sprintf("failed to create client: %v", err)}
	}
	return api, nil
}

// call runs one storefront request under the rate limiter and retry policy
func (c *client) call(ctx context.Context, shop string, resource domain.Resource, fn func() error) error {
	return withRetry(ctx, c.retryConfig, c.logger.With().Str("shop", shop).Str("resource", string(resource)).Logger(), func() error {
		if err := c.rateLimiter.Wait(ctx, shop); err != nil {
			return &domain.ExternalAPIError{Resource: string(resource), Detail: err.Error()}
		}
		started := time.Now()
		err := toAPIError(resource, fn())
		if c.observer != nil {
			c.observer.ObserveRequest(string(resource), statusOf(err), time.Since(started))
		}
		return err
	})
}

// Shop API

func (c *client) GetShop(ctx context.Context, creds domain.Credentials) (*goshopify.Shop, error) {
	api, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}
	var shop *goshopify.Shop
	err = c.call(ctx, creds.ShopDomain, "shop", func() error {
		var err error
		shop, err = api.Shop.Get(ctx, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return shop, nil
}

func (c *client) ProbeResource(ctx context.Context, creds domain.Credentials, resource domain.Resource) (int, error) {
	api, err := c.createClient(creds)
	if err != nil {
		return 0, err
	}
	opts := firstPageOptions(resource, 1)
	var count int
	err = c.call(ctx, creds.ShopDomain, resource, func() error {
		var err error
		switch resource {
		case domain.ResourceCustomers:
			var items []goshopify.Customer
			items, _, err = api.Customer.ListWithPagination(ctx, opts)
			count = len(items)
		case domain.ResourceProducts:
			var items []goshopify.Product
			items, _, err = api.Product.ListWithPagination(ctx, opts)
			count = len(items)
		case domain.ResourceOrders:
			var items []goshopify.Order
			items, _, err = api.Order.ListWithPagination(ctx, opts)
			count = len(items)
		default:
			err = fmt.Errorf("unknown resource %q", resource)
		}
		return err
	})
	return count, err
}

// Paginated listings

func (c *client) CustomerPages(ctx context.Context, creds domain.Credentials) iter.Seq2[[]goshopify.Customer, error] {
	return pages(c, ctx, creds, domain.ResourceCustomers,
		func(api *goshopify.Client, opts interface{}) ([]goshopify.Customer, *goshopify.Pagination, error) {
			return api.Customer.ListWithPagination(ctx, opts)
		})
}

func (c *client) ProductPages(ctx context.Context, creds domain.Credentials) iter.Seq2[[]goshopify.Product, error] {
	return pages(c, ctx, creds, domain.ResourceProducts,
		func(api *goshopify.Client, opts interface{}) ([]goshopify.Product, *goshopify.Pagination, error) {
			return api.Product.ListWithPagination(ctx, opts)
		})
}

func (c *client) OrderPages(ctx context.Context, creds domain.Credentials) iter.Seq2[[]goshopify.Order, error] {
	return pages(c, ctx, creds, domain.ResourceOrders,
		func(api *goshopify.Client, opts interface{}) ([]goshopify.Order, *goshopify.Pagination, error) {
			return api.Order.ListWithPagination(ctx, opts)
		})
}

// pages walks the Link header cursor one page at a time. Every range over the
// returned sequence starts again from the first page.
func pages[T any](
	c *client,
	ctx context.Context,
	creds domain.Credentials,
	resource domain.Resource,
	list func(api *goshopify.Client, opts interface{}) ([]T, *goshopify.Pagination, error),
) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		api, err := c.createClient(creds)
		if err != nil {
			yield(nil, err)
			return
		}

		var opts interface{} = firstPageOptions(resource, c.config.PageSize)
		for page := 1; ; page++ {
			var items []T
			var pagination *goshopify.Pagination
			err := c.call(ctx, creds.ShopDomain, resource, func() error {
				var err error
				items, pagination, err = list(api, opts)
				return err
			})
			if err != nil {
				yield(nil, err)
				return
			}

			c.logger.Debug().
				Str("shop", creds.ShopDomain).
				Str("resource", string(resource)).
				Int("page", page).
				Int("records", len(items)).
				Msg("Fetched page")

			if !yield(items, nil) {
				return
			}
			if pagination == nil || pagination.NextPageOptions == nil {
				return
			}
			opts = pagination.NextPageOptions
		}
	}
}

// FetchAll drains a page sequence into one slice, preserving page order
func FetchAll[T any](seq iter.Seq2[[]T, error]) ([]T, error) {
	var all []T
	for items, err := range seq {
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

func firstPageOptions(resource domain.Resource, limit int) listOptions {
	opts := listOptions{Limit: limit}
	if resource == domain.ResourceOrders {
		opts.Status = "any"
	}
	return opts
}

// toAPIError converts go-shopify and transport failures into *domain.ExternalAPIError
func toAPIError(resource domain.Resource, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) {
		return err
	}

	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.ExternalAPIError{
			Resource:   string(resource),
			StatusCode: rateErr.Status,
			Detail:     responseDetail(rateErr.ResponseError, err),
			RetryAfter: time.Duration(rateErr.RetryAfter) * time.Second,
		}
	}
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return &domain.ExternalAPIError{
			Resource:   string(resource),
			StatusCode: respErr.Status,
			Detail:     responseDetail(respErr, err),
		}
	}
	var respErrPtr *goshopify.ResponseError
	if errors.As(err, &respErrPtr) && respErrPtr != nil {
		return &domain.ExternalAPIError{
			Resource:   string(resource),
			StatusCode: respErrPtr.Status,
			Detail:     responseDetail(*respErrPtr, err),
		}
	}

	return &domain.ExternalAPIError{Resource: string(resource), Detail: err.Error(), Transport: isTransportError(err)}
}

// isTransportError reports whether the request failed before any response arrived
func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// responseDetail prefers the structured "errors" body over the raw message
func responseDetail(respErr goshopify.ResponseError, raw error) string {
	if respErr.Message != "" {
		return respErr.Message
	}
	if len(respErr.Errors) > 0 {
		return strings.Join(respErr.Errors, ", ")
	}
	return raw.Error()
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
