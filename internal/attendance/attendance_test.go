package attendance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQRPayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    QRPayload
		wantErr bool
	}{
		{name: "full", raw: `{"studentId":"2021-001","studentName":"Ana Cruz","dutyType":"Library","location":"Room 204"}`,
			want: QRPayload{StudentID: "2021-001", StudentName: "Ana Cruz", DutyType: "Library", Location: "Room 204"}},
		{name: "empty object", raw: `{}`},
		{name: "unknown fields ignored", raw: `{"studentId":"7","shift":3}`, want: QRPayload{StudentID: "7"}},
		{name: "null field", raw: `{"studentId":null}`},
		{name: "surrounding whitespace", raw: " \n{\"location\":\" Gym \"}\n", want: QRPayload{Location: "Gym"}},
		{name: "empty frame", raw: "", wantErr: true},
		{name: "plain text", raw: "https://example.com/duty", wantErr: true},
		{name: "json string", raw: `"2021-001"`, wantErr: true},
		{name: "json array", raw: `[{"studentId":"1"}]`, wantErr: true},
		{name: "truncated", raw: `{"studentId":"1"`, wantErr: true},
		{name: "numeric id", raw: `{"studentId":20210001}`, want: QRPayload{StudentID: "20210001"}},
		{name: "large numeric id keeps digits", raw: `{"studentId":202100012345678901}`, want: QRPayload{StudentID: "202100012345678901"}},
		{name: "boolean id", raw: `{"studentId":true}`, wantErr: true},
		{name: "object field", raw: `{"location":{"room":"101"}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQRPayload(tt.raw)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCheckRecordDefaults(t *testing.T) {
	at := time.Date(2025, 3, 4, 8, 15, 30, 123456789, time.FixedZone("PHT", 8*3600))

	rec := NewCheckRecord(QRPayload{}, at, func(n int) int { return 42 })

	assert.Equal(t, "NO-ID-1741047330123-42", rec.StudentID)
	assert.True(t, IsSynthetic(rec.StudentID))
	assert.Equal(t, "N/A", rec.StudentName)
	assert.Equal(t, "N/A", rec.DutyType)
	assert.Equal(t, "Room 101", rec.Location)
	assert.Equal(t, "Present", rec.Status)
	assert.Equal(t, time.UTC, rec.CheckInTime.Location())
	assert.True(t, rec.CheckInTime.Equal(at.Truncate(time.Millisecond)))
}

func TestNewCheckRecordKeepsPayload(t *testing.T) {
	p := QRPayload{StudentID: "2021-001", StudentName: "Ana Cruz", DutyType: "Library", Location: "Room 204"}

	rec := NewCheckRecord(p, time.Now(), func(int) int { t.Fatal("randn must not be used"); return 0 })

	assert.Equal(t, "2021-001", rec.StudentID)
	assert.False(t, IsSynthetic(rec.StudentID))
	assert.Equal(t, "Ana Cruz", rec.StudentName)
	assert.Equal(t, "Library", rec.DutyType)
	assert.Equal(t, "Room 204", rec.Location)
}

func TestCheckRecordWireFormat(t *testing.T) {
	rec := CheckRecord{
		StudentID:   "1",
		CheckInTime: time.Date(2025, 1, 2, 3, 4, 5, 6000000, time.UTC),
		Status:      StatusPresent,
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"studentId":"1","studentName":"","dutyType":"","location":"","checkInTime":"2025-01-02T03:04:05.006Z","status":"Present"}`, string(data))
}
