package application

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"shop-insights/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/shopspring/decimal"
)

// fakeStorefront serves canned pages and failures per resource
type fakeStorefront struct {
	shopName  string
	shopErr   error
	probeErr  map[domain.Resource]error
	listErr   map[domain.Resource]error
	customers [][]goshopify.Customer
	products  [][]goshopify.Product
	orders    [][]goshopify.Order

	shopCalls  atomic.Int32
	probeCalls atomic.Int32
	listCalls  atomic.Int32
}

func (f *fakeStorefront) GetShop(_ context.Context, _ domain.Credentials) (*goshopify.Shop, error) {
	f.shopCalls.Add(1)
	if f.shopErr != nil {
		return nil, f.shopErr
	}
	return &goshopify.Shop{Name: f.shopName}, nil
}

func (f *fakeStorefront) ProbeResource(_ context.Context, _ domain.Credentials, resource domain.Resource) (int, error) {
	f.probeCalls.Add(1)
	if err := f.probeErr[resource]; err != nil {
		return 0, err
	}
	return 1, nil
}

func (f *fakeStorefront) CustomerPages(context.Context, domain.Credentials) iter.Seq2[[]goshopify.Customer, error] {
	return fakePages(f, f.customers, f.listErr[domain.ResourceCustomers])
}

func (f *fakeStorefront) ProductPages(context.Context, domain.Credentials) iter.Seq2[[]goshopify.Product, error] {
	return fakePages(f, f.products, f.listErr[domain.ResourceProducts])
}

func (f *fakeStorefront) OrderPages(context.Context, domain.Credentials) iter.Seq2[[]goshopify.Order, error] {
	return fakePages(f, f.orders, f.listErr[domain.ResourceOrders])
}

// fakePages yields every page, then the error if one is set
func fakePages[T any](f *fakeStorefront, pages [][]T, err error) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		f.listCalls.Add(1)
		for _, page := range pages {
			if !yield(page, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	runs []domain.IngestionRun
}

func (p *recordingPublisher) Publish(run *domain.IngestionRun) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, *run)
}

func (p *recordingPublisher) statuses() []domain.RunStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.RunStatus, 0, len(p.runs))
	for _, r := range p.runs {
		out = append(out, r.Status)
	}
	return out
}

type recordingMetrics struct {
	mu   sync.Mutex
	runs []domain.IngestionRun
}

func (m *recordingMetrics) ObserveRun(run *domain.IngestionRun) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
}

func forbidden(resource domain.Resource) error {
	return &domain.ExternalAPIError{Resource: string(resource), StatusCode: 403, Detail: "requires merchant approval"}
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
