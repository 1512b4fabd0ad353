package repository

import (
	"context"
	"fmt"

	"shop-insights/internal/domain"
	"shop-insights/internal/infrastructure/repository/entity"
	"shop-insights/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ingestionRunsCollection = "ingestion_runs"

// MongoRunLog implements RunLog using MongoDB
type MongoRunLog struct {
	runsCollection *mongo.Collection
}

var _ ports.RunLog = (*MongoRunLog)(nil)

// NewMongoRunLog creates a new MongoDB ingestion run log
func NewMongoRunLog(db *mongo.Database) *MongoRunLog {
	return &MongoRunLog{
		runsCollection: db.Collection(ingestionRunsCollection),
	}
}

// EnsureIndexes creates the tenant/start index used by ListRuns
func (r *MongoRunLog) EnsureIndexes(ctx context.Context) error {
	_, err := r.runsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "startedAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create ingestion run index: %w", err)
	}
	return nil
}

// SaveRun saves or replaces a run by id
func (r *MongoRunLog) SaveRun(ctx context.Context, run *domain.IngestionRun) error {
	doc := entity.MongoIngestionRunDocFromDomain(run)

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"_id": doc.ID}

	_, err := r.runsCollection.ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to save ingestion run: %w", err)
	}

	return nil
}

// ListRuns returns the latest runs of a tenant, newest first
func (r *MongoRunLog) ListRuns(ctx context.Context, tenantID domain.TenantID, limit int) ([]*domain.IngestionRun, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.runsCollection.Find(ctx, bson.M{"tenantId": uint(tenantID)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []*domain.IngestionRun
	for cursor.Next(ctx) {
		var doc entity.MongoIngestionRunDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode ingestion run: %w", err)
		}
		runs = append(runs, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return runs, nil
}
