package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

const collectionLocations = "location_samples"

// LocationRepository stores append-only rider samples.
type LocationRepository struct {
	col *mongo.Collection
	ttl time.Duration
}

// NewLocationRepository returns a repository over location_samples. A
// positive retention adds a TTL index on received_at.
func NewLocationRepository(db *mongo.Database, retention time.Duration) *LocationRepository {
	return &LocationRepository{col: db.Collection(collectionLocations), ttl: retention}
}

func (r *LocationRepository) SaveLocationSample(ctx context.Context, s *domain.LocationSample) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, s)
	return err
}

// LoadRecentLocations returns up to limit samples for awb, newest first.
func (r *LocationRepository) LoadRecentLocations(ctx context.Context, awb string, limit int) ([]domain.LocationSample, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{"awb": awb}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	samples := make([]domain.LocationSample, 0, limit)
	if err := cursor.All(ctx, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// EnsureIndexes creates the lookup indexes and, when configured, the
// retention TTL index.
func (r *LocationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "awb", Value: 1}, {Key: "received_at", Value: -1}}},
		{Keys: bson.D{{Key: "rider_id", Value: 1}, {Key: "captured_at", Value: -1}}},
	}
	if r.ttl > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(r.ttl.Seconds())),
		})
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
