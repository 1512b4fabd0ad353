package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resource is a storefront collection ingested into the local store
type Resource string

const (
	ResourceCustomers Resource = "customers"
	ResourceProducts  Resource = "products"
	ResourceOrders    Resource = "orders"
)

// AllResources lists the ingested collections in ingestion order
func AllResources() []Resource {
	return []Resource{ResourceCustomers, ResourceProducts, ResourceOrders}
}

// CustomerRecord is the local shape of an external customer
type CustomerRecord struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	// TotalSpent is nil when the source carries no spend (customers embedded in orders);
	// existing spend is then left untouched and new rows start at zero.
	TotalSpent *decimal.Decimal
}

// ProductRecord is the local shape of an external product
type ProductRecord struct {
	ExternalID string
	Title      string
	Price      decimal.Decimal
}

// OrderRecord is the local shape of an external order with its line items
type OrderRecord struct {
	ExternalID string
	Customer   *CustomerRecord
	TotalPrice decimal.Decimal
	PlacedAt   *time.Time
	Items      []OrderItemRecord
}

// OrderItemRecord is one line item of an order. ProductExternalID is empty for custom line items.
type OrderItemRecord struct {
	ProductExternalID string
	Title             string
	Quantity          int
	Price             decimal.Decimal
}

// Customer is an ingested customer row
type Customer struct {
	ID         uint            `json:"id"`
	TenantID   TenantID        `json:"tenant_id"`
	ExternalID string          `json:"external_id"`
	Email      string          `json:"email"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// Product is an ingested product row
type Product struct {
	ID         uint            `json:"id"`
	TenantID   TenantID        `json:"tenant_id"`
	ExternalID string          `json:"external_id"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
}

// Order is an ingested order row
type Order struct {
	ID         uint            `json:"id"`
	TenantID   TenantID        `json:"tenant_id"`
	ExternalID string          `json:"external_id"`
	CustomerID *uint           `json:"customer_id,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	PlacedAt   *time.Time      `json:"placed_at,omitempty"`
	Items      []OrderItem     `json:"items,omitempty"`
}

// OrderItem is an ingested line item, owned by its order
type OrderItem struct {
	ID        uint            `json:"id"`
	OrderID   uint            `json:"order_id"`
	ProductID *uint           `json:"product_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
