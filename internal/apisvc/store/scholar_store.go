package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/db"
)

type ScholarStore struct {
	col *mongo.Collection
}

func NewScholarStore(d *mongo.Database) *ScholarStore {
	return &ScholarStore{col: d.Collection(db.ScholarsCollection)}
}

// ListScholars returns every scholar, newest first.
func (s *ScholarStore) ListScholars(ctx context.Context) ([]*models.Scholar, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	scholars := []*models.Scholar{}
	if err := cur.All(ctx, &scholars); err != nil {
		return nil, err
	}
	return scholars, nil
}

func (s *ScholarStore) findOne(ctx context.Context, filter bson.M) (*models.Scholar, error) {
	sc := &models.Scholar{}
	if err := s.col.FindOne(ctx, filter).Decode(sc); err != nil {
		return nil, translate(err)
	}
	return sc, nil
}

func (s *ScholarStore) GetByID(ctx context.Context, id string) (*models.Scholar, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *ScholarStore) GetByScholarID(ctx context.Context, scholarID string) (*models.Scholar, error) {
	return s.findOne(ctx, bson.M{"id": scholarID})
}

func (s *ScholarStore) FindConflict(ctx context.Context, scholarID, email string) (*models.Scholar, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"id": scholarID},
		bson.M{"email": email},
	}})
}

func (s *ScholarStore) CreateScholar(ctx context.Context, sc *models.Scholar) error {
	now := time.Now().UTC()
	sc.CreatedAt, sc.UpdatedAt = now, now

	res, err := s.col.InsertOne(ctx, sc)
	if err != nil {
		return fmt.Errorf("could not create scholar: %w", translate(err))
	}
	sc.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *ScholarStore) UpdateScholar(ctx context.Context, sc *models.Scholar) error {
	sc.UpdatedAt = time.Now().UTC()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": sc.ID}, sc)
	if err != nil {
		return fmt.Errorf("could not update scholar: %w", translate(err))
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ScholarStore) DeleteScholar(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return translate(err)
}

// CountCreatedBetween counts scholars created in [from, to).
func (s *ScholarStore) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": from, "$lt": to}})
}
