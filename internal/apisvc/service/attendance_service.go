package service

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/attendance"
)

type (
	// PhotoStore keeps uploaded pictures and returns their public URL.
	PhotoStore interface {
		Save(ctx context.Context, filename string, r io.Reader) (string, error)
	}

	// AddressResolver turns coordinates into a readable address. It always
	// returns something displayable.
	AddressResolver interface {
		Resolve(ctx context.Context, lat, lng float64) string
	}
)

type SelfAttendanceInput struct {
	UserID    string
	Filename  string
	Photo     io.Reader
	Time      string
	Latitude  float64
	Longitude float64
	Address   string
}

type AttendanceService struct {
	records  AttendanceRepository
	photos   PhotoStore
	resolver AddressResolver
}

func NewAttendanceService(records AttendanceRepository, photos PhotoStore, resolver AddressResolver) *AttendanceService {
	return &AttendanceService{
		records:  records,
		photos:   photos,
		resolver: resolver,
	}
}

// CheckIn stores one scan as a new document. No uniqueness check is made and
// nothing else is written or sent.
func (s *AttendanceService) CheckIn(ctx context.Context, rec attendance.CheckRecord, checkedBy string) (*models.CheckerAttendance, error) {
	rec.StudentID = strings.TrimSpace(rec.StudentID)
	if err := Validate(rec); err != nil {
		return nil, err
	}
	if rec.CheckInTime.IsZero() {
		return nil, &InputError{Message: "checkInTime is required"}
	}
	if rec.Status == "" {
		rec.Status = attendance.StatusPresent
	}

	doc := &models.CheckerAttendance{
		StudentID:   rec.StudentID,
		StudentName: rec.StudentName,
		DutyType:    rec.DutyType,
		Location:    rec.Location,
		CheckInTime: rec.CheckInTime.UTC(),
		Status:      rec.Status,
		CheckedBy:   checkedBy,
	}
	if err := s.records.InsertCheckRecord(ctx, doc); err != nil {
		return nil, errors.Wrap(err, "insert check record")
	}

	if attendance.IsSynthetic(doc.StudentID) {
		log.Warnf("check-in %s stored with placeholder student id %s", doc.ID.Hex(), doc.StudentID)
	}
	return doc, nil
}

func (s *AttendanceService) ListCheckIns(ctx context.Context, studentID string) ([]*models.CheckerAttendance, error) {
	return s.records.ListCheckRecords(ctx, strings.TrimSpace(studentID))
}

// RecordSelf saves the photo and the GPS-tagged record. A missing address is
// resolved from the coordinates.
func (s *AttendanceService) RecordSelf(ctx context.Context, in SelfAttendanceInput) (*models.SelfAttendance, error) {
	if in.Photo == nil {
		return nil, &InputError{Message: "No photo uploaded - field must be named 'photo'"}
	}
	if in.Time == "" {
		return nil, &InputError{Message: "Missing required fields: time, latitude, longitude"}
	}

	url, err := s.photos.Save(ctx, in.Filename, in.Photo)
	if err != nil {
		return nil, errors.Wrap(err, "save photo")
	}

	address := strings.TrimSpace(in.Address)
	if address == "" && s.resolver != nil {
		address = s.resolver.Resolve(ctx, in.Latitude, in.Longitude)
	}

	rec := &models.SelfAttendance{
		UserID:    in.UserID,
		PhotoURL:  url,
		Time:      in.Time,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Address:   address,
	}
	if err := s.records.InsertSelfAttendance(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "insert self attendance")
	}
	return rec, nil
}

func (s *AttendanceService) ListSelf(ctx context.Context, userID string) ([]*models.SelfAttendance, error) {
	return s.records.ListSelfAttendance(ctx, userID)
}
