package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/db"
)

// ResetStore keeps one pending reset per email. Expired documents are
// removed by the TTL index on expires_at.
type ResetStore struct {
	col *mongo.Collection
}

func NewResetStore(d *mongo.Database) *ResetStore {
	return &ResetStore{col: d.Collection(db.PasswordResetsCollection)}
}

// SaveCode replaces any pending reset for the same email.
func (s *ResetStore) SaveCode(ctx context.Context, rc *models.ResetCode) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"email": rc.Email}, rc, options.Replace().SetUpsert(true))
	return translate(err)
}

func (s *ResetStore) GetCode(ctx context.Context, email string) (*models.ResetCode, error) {
	rc := &models.ResetCode{}
	if err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(rc); err != nil {
		return nil, translate(err)
	}
	return rc, nil
}

func (s *ResetStore) MarkVerified(ctx context.Context, email string) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"verified": true}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ResetStore) DeleteCode(ctx context.Context, email string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"email": email})
	return translate(err)
}
