package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultTopCustomers is how many customers TopCustomers returns
const DefaultTopCustomers = 5

// InsightsService computes the dashboard aggregates from the ingested tables
type InsightsService struct {
	store ports.InsightsRepository
}

// NewInsightsService creates a new insights service
func NewInsightsService(store ports.InsightsRepository) *InsightsService {
	return &InsightsService{store: store}
}

// Summary returns customer count, order count and total revenue
func (s *InsightsService) Summary(ctx context.Context, tenantID domain.TenantID) (*domain.Summary, error) {
	var summary domain.Summary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountCustomers(gctx, tenantID)
		summary.Customers = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountOrders(gctx, tenantID)
		summary.Orders = n
		return err
	})
	g.Go(func() error {
		total, err := s.store.SumRevenue(gctx, tenantID)
		summary.Revenue = total
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}

// RevenueByDate sums order totals per UTC day, ascending. Orders without a timestamp are left out.
func (s *InsightsService) RevenueByDate(ctx context.Context, tenantID domain.TenantID, start, end *time.Time) ([]domain.RevenuePoint, error) {
	orders, err := s.store.ListOrders(ctx, tenantID, ports.OrderFilter{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]decimal.Decimal)
	for _, o := range orders {
		if o.PlacedAt == nil {
			continue
		}
		day := o.PlacedAt.UTC().Format(time.DateOnly)
		byDate[day] = addTo(byDate, day, o.TotalPrice)
	}

	points := make([]domain.RevenuePoint, 0, len(byDate))
	for day, revenue := range byDate {
		points = append(points, domain.RevenuePoint{Date: day, Revenue: revenue})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// TopCustomers ranks customers by the sum of their order totals
func (s *InsightsService) TopCustomers(ctx context.Context, tenantID domain.TenantID, limit int) ([]domain.TopCustomer, error) {
	if limit <= 0 {
		limit = DefaultTopCustomers
	}

	orders, err := s.store.ListOrders(ctx, tenantID, ports.OrderFilter{CustomersOnly: true})
	if err != nil {
		return nil, err
	}

	spend := make(map[uint]decimal.Decimal)
	for _, o := range orders {
		if o.CustomerID == nil {
			continue
		}
		spend[*o.CustomerID] = addTo(spend, *o.CustomerID, o.TotalPrice)
	}

	top := make([]domain.TopCustomer, 0, len(spend))
	for id, total := range spend {
		top = append(top, domain.TopCustomer{CustomerID: id, Total: total})
	}
	sort.Slice(top, func(i, j int) bool {
		if c := top[i].Total.Cmp(top[j].Total); c != 0 {
			return c > 0
		}
		return top[i].CustomerID < top[j].CustomerID
	})
	if len(top) > limit {
		top = top[:limit]
	}
	if len(top) == 0 {
		return top, nil
	}

	ids := make([]uint, 0, len(top))
	for _, t := range top {
		ids = append(ids, t.CustomerID)
	}
	customers, err := s.store.GetCustomers(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]domain.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	for i := range top {
		c, ok := byID[top[i].CustomerID]
		top[i].Name = displayName(c, ok)
	}
	return top, nil
}

// displayName is "first last", else the email, else "Unknown"
func displayName(c domain.Customer, found bool) string {
	if !found {
		return "Unknown"
	}
	if name := strings.TrimSpace(c.FirstName + " " + c.LastName); name != "" {
		return name
	}
	if c.Email != "" {
		return c.Email
	}
	return "Unknown"
}

func addTo[K comparable](sums map[K]decimal.Decimal, key K, amount decimal.Decimal) decimal.Decimal {
	cur, ok := sums[key]
	if !ok {
		cur = decimal.Zero
	}
	return cur.Add(amount)
}
