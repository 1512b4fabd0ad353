package domain

import "github.com/shopspring/decimal"

// Summary holds the dashboard headline numbers for a tenant
type Summary struct {
	Customers int64           `json:"customers"`
	Orders    int64           `json:"orders"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// RevenuePoint is the revenue of all orders placed on one UTC day
type RevenuePoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopCustomer is a customer ranked by the sum of their order totals
type TopCustomer struct {
	CustomerID uint            `json:"customer_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
}
