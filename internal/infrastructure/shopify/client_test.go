package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShop = "test-shop.myshopify.com"

// rewriteTransport sends every request to the stub server regardless of the shop host
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newTestClient(t *testing.T, handler http.Handler, retry RetryConfig) (ports.StorefrontClient, domain.Credentials) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RequestTimeout = 5 * time.Second
	cfg.Transport = rewriteTransport{target: target}

	c := NewClientWithOptions(cfg, nil, retry, nil, zerolog.Nop())
	return c, domain.Credentials{ShopDomain: testShop, AccessToken: "shpat_test"}
}

func fastRetry(n int) RetryConfig {
	return RetryConfig{
		MaxRetries:      n,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func nextLink(resource, cursor string) string {
	return fmt.Sprintf(`<https://%s/admin/api/%s/%s.json?limit=250&page_info=%s>; rel="next"`,
		testShop, DefaultAPIVersion, resource, cursor)
}

func TestClient_CustomerPages_FollowsLinkHeader(t *testing.T) {
	var requests []url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/"+DefaultAPIVersion+"/customers.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		requests = append(requests, r.URL.Query())

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page_info") {
		case "":
			w.Header().Set("Link", nextLink("customers", "page2"))
			fmt.Fprint(w, `{"customers":[{"id":1,"email":"one@example.com"},{"id":2}]}`)
		case "page2":
			w.Header().Set("Link", nextLink("customers", "page3"))
			fmt.Fprint(w, `{"customers":[{"id":3},{"id":4}]}`)
		case "page3":
			fmt.Fprint(w, `{"customers":[{"id":5}]}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	c, creds := newTestClient(t, mux, NoRetry())

	customers, err := FetchAll(c.CustomerPages(context.Background(), creds))
	require.NoError(t, err)

	ids := make([]uint64, 0, len(customers))
	for _, cu := range customers {
		ids = append(ids, cu.Id)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ids)
	assert.Equal(t, "one@example.com", customers[0].Email)

	require.Len(t, requests, 3)
	assert.Equal(t, "250", requests[0].Get("limit"))
	assert.Equal(t, "page2", requests[1].Get("page_info"))
	assert.Equal(t, "page3", requests[2].Get("page_info"))
}

func TestClient_OrderPages_RequestsAllStatuses(t *testing.T) {
	var status string
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/"+DefaultAPIVersion+"/orders.json", func(w http.ResponseWriter, r *http.Request) {
		status = r.URL.Query().Get("status")
		fmt.Fprint(w, `{"orders":[{"id":10,"total_price":"12.50"}]}`)
	})

	c, creds := newTestClient(t, mux, NoRetry())

	orders, err := FetchAll(c.OrderPages(context.Background(), creds))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, uint64(10), orders[0].Id)
	assert.Equal(t, "any", status)
}

func TestClient_Pages_StopFetchingWhenConsumerStops(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/"+DefaultAPIVersion+"/products.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Link", nextLink("products", "more"))
		fmt.Fprint(w, `{"products":[{"id":1,"title":"Mug"}]}`)
	})

	c, creds := newTestClient(t, mux, NoRetry())

	for items, err := range c.ProductPages(context.Background(), creds) {
		require.NoError(t, err)
		require.Len(t, items, 1)
		break
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantAuth   bool
	}{
		{
			name:       "unauthorized with structured errors",
			status:     http.StatusUnauthorized,
			body:       `{"errors":"[API] Invalid API key or access token"}`,
			wantDetail: "Invalid API key or access token",
			wantAuth:   true,
		},
		{
			name:       "forbidden scope",
			status:     http.StatusForbidden,
			body:       `{"errors":"This action requires merchant approval for read_customers scope."}`,
			wantDetail: "read_customers",
			wantAuth:   true,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       `{"errors":"Not Found"}`,
			wantDetail: "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("/admin/api/"+DefaultAPIVersion+"/customers.json", func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			c, creds := newTestClient(t, mux, fastRetry(3))

			_, err := FetchAll(c.CustomerPages(context.Background(), creds))
			require.Error(t, err)

			var apiErr *domain.ExternalAPIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "customers", apiErr.Resource)
			assert.Contains(t, apiErr.Detail, tt.wantDetail)
			assert.Equal(t, tt.wantAuth, apiErr.IsAuthFailure())
			assert.Equal(t, int32(1), hits.Load(), "client errors are not retried")
		})
	}
}

func TestClient_RetriesRateLimitedRequests(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/"+DefaultAPIVersion+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"errors":"Exceeded 2 calls per second for api client. Reduce request rates to resume uninterrupted service."}`)
			return
		}
		fmt.Fprint(w, `{"shop":{"id":7,"name":"Test Shop"}}`)
	})

	c, creds := newTestClient(t, mux, fastRetry(4))

	shop, err := c.GetShop(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "Test Shop", shop.Name)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_RetryExhaustionKeepsExternalAPIError(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/"+DefaultAPIVersion+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"errors":"upstream unavailable"}`)
	})

	c, creds := newTestClient(t, mux, fastRetry(2))

	_, err := c.GetShop(context.Background(), creds)
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}

// flakyTransport fails the first requests before any response, like a dropped connection
type flakyTransport struct {
	failures atomic.Int32
	next     http.RoundTripper
}

func (t *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.failures.Add(-1) >= 0 {
		return nil, errors.New("connection reset by peer")
	}
	return t.next.RoundTrip(req)
}

func TestClient_RetriesTransportFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"shop":{"id":7,"name":"Test Shop"}}`)
	}))
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	transport := &flakyTransport{next: rewriteTransport{target: target}}
	transport.failures.Store(2)

	cfg := DefaultConfig()
	cfg.RequestTimeout = 5 * time.Second
	cfg.Transport = transport
	c := NewClientWithOptions(cfg, nil, fastRetry(4), nil, zerolog.Nop())

	shop, err := c.GetShop(context.Background(), domain.Credentials{ShopDomain: testShop, AccessToken: "shpat_test"})
	require.NoError(t, err)
	assert.Equal(t, "Test Shop", shop.Name)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_UndecodableBodyIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/"+DefaultAPIVersion+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"shop":`)
	})

	c, creds := newTestClient(t, mux, fastRetry(4))

	_, err := c.GetShop(context.Background(), creds)
	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.False(t, apiErr.Retryable())
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_UnknownResourceIsNotRetried(t *testing.T) {
	c, creds := newTestClient(t, http.NotFoundHandler(), fastRetry(4))

	_, err := c.ProbeResource(context.Background(), creds, domain.Resource("gift_cards"))
	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.False(t, apiErr.Transport)
	assert.Contains(t, apiErr.Detail, "unknown resource")
}

func TestClient_ProbeResource(t *testing.T) {
	var limit string
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/api/"+DefaultAPIVersion+"/products.json", func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		w.Header().Set("Link", nextLink("products", "ignored"))
		fmt.Fprint(w, `{"products":[{"id":99,"title":"Tee"}]}`)
	})

	c, creds := newTestClient(t, mux, NoRetry())

	count, err := c.ProbeResource(context.Background(), creds, domain.ResourceProducts)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "1", limit)
}

func TestRateLimiter_SeparateBucketsPerShop(t *testing.T) {
	rl := NewRateLimiterWithRate(1, 1, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, "a.myshopify.com"))
	require.NoError(t, rl.Wait(ctx, "b.myshopify.com"))
	assert.Error(t, rl.Wait(ctx, "a.myshopify.com"), "second token for the same shop exceeds the deadline")
}
