package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ndvlabs/attendance-services/internal/attendsvc/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const syncRunRetention = 90 * 24 * time.Hour

// SyncRunStore keeps a rolling audit trail of sync attempts in mongo.
type SyncRunStore struct {
	col *mongo.Collection
}

func NewSyncRunStore(db *mongo.Database) *SyncRunStore {
	return &SyncRunStore{col: db.Collection("sync_runs")}
}

func (s *SyncRunStore) RecordRun(ctx context.Context, run models.SyncRun) error {
	run.ExpiresAt = run.FinishedAt.Add(syncRunRetention)

	if _, err := s.col.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

func (s *SyncRunStore) RecentRuns(ctx context.Context, limit int64) ([]models.SyncRun, error) {
	opts := options.Find().SetSort(bson.M{"started_at": -1}).SetLimit(limit)
	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []models.SyncRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode sync runs: %w", err)
	}
	return runs, nil
}
