package domain

import "time"

// IngestCounts holds the number of records processed per resource
type IngestCounts struct {
	Customers int `json:"customers" bson:"customers"`
	Products  int `json:"products" bson:"products"`
	Orders    int `json:"orders" bson:"orders"`
}

// Add records n processed records for a resource
func (c *IngestCounts) Add(resource Resource, n int) {
	switch resource {
	case ResourceCustomers:
		c.Customers += n
	case ResourceProducts:
		c.Products += n
	case ResourceOrders:
		c.Orders += n
	}
}

// Trigger names what started an ingestion run
type Trigger string

const (
	TriggerScheduler Trigger = "scheduler"
	TriggerManual    Trigger = "manual"
)

// RunStatus is the outcome of an ingestion run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// IngestionRun records one IngestAll invocation for a tenant
type IngestionRun struct {
	ID         string       `json:"id"`
	TenantID   TenantID     `json:"tenant_id"`
	ShopDomain string       `json:"shop_domain"`
	Trigger    Trigger      `json:"trigger"`
	Status     RunStatus    `json:"status"`
	Counts     IngestCounts `json:"counts"`
	Skipped    []Resource   `json:"skipped,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// Finish stamps the run with its final status
func (r *IngestionRun) Finish(status RunStatus, err error) {
	now := time.Now()
	r.Status = status
	r.FinishedAt = &now
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the run took, or zero while it is still running
func (r *IngestionRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
