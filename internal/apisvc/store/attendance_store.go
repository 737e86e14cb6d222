package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/db"
)

type AttendanceStore struct {
	checker *mongo.Collection
	self    *mongo.Collection
}

func NewAttendanceStore(d *mongo.Database) *AttendanceStore {
	return &AttendanceStore{
		checker: d.Collection(db.CheckerAttendanceCollection),
		self:    d.Collection(db.SelfAttendanceCollection),
	}
}

// InsertCheckRecord stores the record as-is. Repeated scans of the same
// student are separate documents.
func (s *AttendanceStore) InsertCheckRecord(ctx context.Context, rec *models.CheckerAttendance) error {
	rec.CreatedAt = time.Now().UTC()
	res, err := s.checker.InsertOne(ctx, rec)
	if err != nil {
		return translate(err)
	}
	rec.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// ListCheckRecords returns records newest first, filtered by student when
// studentID is not empty.
func (s *AttendanceStore) ListCheckRecords(ctx context.Context, studentID string) ([]*models.CheckerAttendance, error) {
	filter := bson.M{}
	if studentID != "" {
		filter["studentId"] = studentID
	}

	cur, err := s.checker.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "checkInTime", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	records := []*models.CheckerAttendance{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *AttendanceStore) InsertSelfAttendance(ctx context.Context, rec *models.SelfAttendance) error {
	rec.CreatedAt = time.Now().UTC()
	res, err := s.self.InsertOne(ctx, rec)
	if err != nil {
		return translate(err)
	}
	rec.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *AttendanceStore) ListSelfAttendance(ctx context.Context, userID string) ([]*models.SelfAttendance, error) {
	cur, err := s.self.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	records := []*models.SelfAttendance{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
