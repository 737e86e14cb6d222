package inmem

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hksamms/samms-services/internal/apisvc/models"
)

type AttendanceRepository struct {
	checks  *table[models.CheckerAttendance]
	selfies *table[models.SelfAttendance]
}

func NewAttendanceRepository(db *DB) *AttendanceRepository {
	return &AttendanceRepository{checks: db.checks, selfies: db.selfies}
}

func (r *AttendanceRepository) InsertCheckRecord(_ context.Context, rec *models.CheckerAttendance) error {
	r.checks.mutex.Lock()
	defer r.checks.mutex.Unlock()

	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = now()
	r.checks.put(rec.ID, *rec)
	return nil
}

func (r *AttendanceRepository) ListCheckRecords(_ context.Context, studentID string) ([]*models.CheckerAttendance, error) {
	r.checks.mutex.RLock()
	defer r.checks.mutex.RUnlock()

	return r.checks.newestFirst(func(c *models.CheckerAttendance) bool {
		return studentID == "" || c.StudentID == studentID
	}), nil
}

func (r *AttendanceRepository) InsertSelfAttendance(_ context.Context, rec *models.SelfAttendance) error {
	r.selfies.mutex.Lock()
	defer r.selfies.mutex.Unlock()

	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = now()
	r.selfies.put(rec.ID, *rec)
	return nil
}

func (r *AttendanceRepository) ListSelfAttendance(_ context.Context, userID string) ([]*models.SelfAttendance, error) {
	r.selfies.mutex.RLock()
	defer r.selfies.mutex.RUnlock()

	return r.selfies.newestFirst(func(s *models.SelfAttendance) bool {
		return s.UserID == userID
	}), nil
}
