package entity

import (
	"time"

	"shop-insights/internal/domain"

	"github.com/shopspring/decimal"
)

// TenantModel is the persistence model for a tenant and its storefront credentials
type TenantModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"type:varchar(200);not null;default:''"`
	Email       string `gorm:"type:varchar(320);not null;default:''"`
	ShopDomain  string `gorm:"type:varchar(255);not null;default:''"`
	AccessToken string `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *domain.Tenant {
	return &domain.Tenant{
		ID:          domain.TenantID(m.ID),
		Name:        m.Name,
		Email:       m.Email,
		ShopDomain:  m.ShopDomain,
		AccessToken: m.AccessToken,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// CustomerModel is an ingested customer, unique per (tenant, external id)
type CustomerModel struct {
	ID         uint            `gorm:"primaryKey"`
	TenantID   uint            `gorm:"not null;uniqueIndex:idx_customers_tenant_external,priority:1"`
	ExternalID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_customers_tenant_external,priority:2"`
	Email      string          `gorm:"type:varchar(320);not null;default:''"`
	FirstName  string          `gorm:"type:varchar(200);not null;default:''"`
	LastName   string          `gorm:"type:varchar(200);not null;default:''"`
	TotalSpent decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() domain.Customer {
	return domain.Customer{
		ID:         m.ID,
		TenantID:   domain.TenantID(m.TenantID),
		ExternalID: m.ExternalID,
		Email:      m.Email,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		TotalSpent: m.TotalSpent,
	}
}

// ProductModel is an ingested product, unique per (tenant, external id)
type ProductModel struct {
	ID         uint            `gorm:"primaryKey"`
	TenantID   uint            `gorm:"not null;uniqueIndex:idx_products_tenant_external,priority:1"`
	ExternalID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_tenant_external,priority:2"`
	Title      string          `gorm:"type:varchar(500);not null;default:''"`
	Price      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() domain.Product {
	return domain.Product{
		ID:         m.ID,
		TenantID:   domain.TenantID(m.TenantID),
		ExternalID: m.ExternalID,
		Title:      m.Title,
		Price:      m.Price,
	}
}

// OrderModel is an ingested order, unique per (tenant, external id).
// PlacedAt is the storefront creation time, falling back to the processed time.
type OrderModel struct {
	ID         uint             `gorm:"primaryKey"`
	TenantID   uint             `gorm:"not null;uniqueIndex:idx_orders_tenant_external,priority:1"`
	ExternalID string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_orders_tenant_external,priority:2"`
	CustomerID *uint            `gorm:"index"`
	Customer   *CustomerModel   `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL"`
	TotalPrice decimal.Decimal  `gorm:"type:numeric(14,2);not null;default:0"`
	PlacedAt   *time.Time       `gorm:"index"`
	Items      []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() domain.Order {
	order := domain.Order{
		ID:         m.ID,
		TenantID:   domain.TenantID(m.TenantID),
		ExternalID: m.ExternalID,
		CustomerID: m.CustomerID,
		TotalPrice: m.TotalPrice,
		PlacedAt:   m.PlacedAt,
	}
	for i := range m.Items {
		order.Items = append(order.Items, m.Items[i].ToDomain())
	}
	return order
}

// OrderItemModel is a line item owned by an order. ProductID is nil for custom line items.
type OrderItemModel struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"not null;index"`
	ProductID *uint           `gorm:"index"`
	Product   *ProductModel   `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	Quantity  int             `gorm:"not null;default:1"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() domain.OrderItem {
	return domain.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		Price:     m.Price,
	}
}

// AllModels lists the relational models in dependency order
func AllModels() []interface{} {
	return []interface{}{
		&TenantModel{},
		&CustomerModel{},
		&ProductModel{},
		&OrderModel{},
		&OrderItemModel{},
	}
}
