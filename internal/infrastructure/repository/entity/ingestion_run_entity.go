package entity

import (
	"time"

	"shop-insights/internal/domain"
)

// MongoIngestionRunDoc represents an ingestion run in MongoDB
type MongoIngestionRunDoc struct {
	ID         string              `bson:"_id"`
	TenantID   uint                `bson:"tenantId"`
	ShopDomain string              `bson:"shopDomain"`
	Trigger    string              `bson:"trigger"`
	Status     string              `bson:"status"`
	Counts     domain.IngestCounts `bson:"counts"`
	Skipped    []string            `bson:"skipped,omitempty"`
	Error      string              `bson:"error,omitempty"`
	StartedAt  time.Time           `bson:"startedAt"`
	FinishedAt *time.Time          `bson:"finishedAt,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoIngestionRunDoc) ToDomain() *domain.IngestionRun {
	run := &domain.IngestionRun{
		ID:         d.ID,
		TenantID:   domain.TenantID(d.TenantID),
		ShopDomain: d.ShopDomain,
		Trigger:    domain.Trigger(d.Trigger),
		Status:     domain.RunStatus(d.Status),
		Counts:     d.Counts,
		Error:      d.Error,
		StartedAt:  d.StartedAt,
		FinishedAt: d.FinishedAt,
	}
	for _, r := range d.Skipped {
		run.Skipped = append(run.Skipped, domain.Resource(r))
	}
	return run
}

// MongoIngestionRunDocFromDomain converts a domain entity to a MongoDB document
func MongoIngestionRunDocFromDomain(run *domain.IngestionRun) *MongoIngestionRunDoc {
	doc := &MongoIngestionRunDoc{
		ID:         run.ID,
		TenantID:   uint(run.TenantID),
		ShopDomain: run.ShopDomain,
		Trigger:    string(run.Trigger),
		Status:     string(run.Status),
		Counts:     run.Counts,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	for _, r := range run.Skipped {
		doc.Skipped = append(doc.Skipped, string(r))
	}
	return doc
}
