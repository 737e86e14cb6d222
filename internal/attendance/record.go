package attendance

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusPresent = "Present"

	DefaultName     = "N/A"
	DefaultDuty     = "N/A"
	DefaultLocation = "Room 101"

	syntheticPrefix = "NO-ID-"
)

// CheckRecord is what a scan station sends for one accepted scan.
type CheckRecord struct {
	StudentID   string    `json:"studentId" validate:"required"`
	StudentName string    `json:"studentName"`
	DutyType    string    `json:"dutyType"`
	Location    string    `json:"location"`
	CheckInTime time.Time `json:"checkInTime"`
	Status      string    `json:"status"`
}

// NewCheckRecord builds the record for a parsed payload accepted at acceptedAt.
// randn must return a value in [0, n).
//
// A payload without studentId gets a placeholder id. Such records can not be
// reconciled with a scholar; see IsSynthetic.
func NewCheckRecord(p QRPayload, acceptedAt time.Time, randn func(int) int) CheckRecord {
	id := p.StudentID
	if id == "" {
		id = SyntheticID(acceptedAt, randn)
	}

	return CheckRecord{
		StudentID:   id,
		StudentName: orDefault(p.StudentName, DefaultName),
		DutyType:    orDefault(p.DutyType, DefaultDuty),
		Location:    orDefault(p.Location, DefaultLocation),
		CheckInTime: acceptedAt.UTC().Truncate(time.Millisecond),
		Status:      StatusPresent,
	}
}

func SyntheticID(at time.Time, randn func(int) int) string {
	return fmt.Sprintf("%s%d-%d", syntheticPrefix, at.UnixMilli(), randn(1000))
}

func IsSynthetic(studentID string) bool {
	return strings.HasPrefix(studentID, syntheticPrefix)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
