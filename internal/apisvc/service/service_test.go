package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/apisvc/store/inmem"
	"github.com/hksamms/samms-services/internal/attendance"
	"github.com/hksamms/samms-services/internal/mail"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

func (f *fakeSender) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		out = append(out, m.Subject)
	}
	return out
}

type fixture struct {
	db       *inmem.DB
	users    *inmem.UserRepository
	scholars *inmem.ScholarRepository
	resets   *inmem.ResetRepository
	mailer   *fakeSender
	auth     *AuthService
	scholar  *ScholarService
}

func newFixture() *fixture {
	db := inmem.Open()
	f := &fixture{
		db:       db,
		users:    inmem.NewUserRepository(db),
		scholars: inmem.NewScholarRepository(db),
		resets:   inmem.NewResetRepository(db),
		mailer:   &fakeSender{},
	}
	f.auth = NewAuthService(f.users, f.resets, f.mailer)
	f.scholar = NewScholarService(f.scholars, f.users, f.mailer)
	return f
}

func validScholar() CreateScholarInput {
	return CreateScholarInput{
		Name:     "Maria Santos",
		ID:       "2021-0001",
		Email:    "maria@hk.test",
		Year:     "3",
		Course:   "BSIT",
		Duty:     "Library Checker",
		Password: "secret123",
	}
}

func TestCreateScholar(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sc, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sc.Status)
	assert.False(t, sc.ID.IsZero())

	u, err := f.users.GetByUsername(ctx, "2021-0001")
	require.NoError(t, err)
	assert.Equal(t, models.RoleChecker, u.Role)
	assert.Empty(t, u.EmployeeID)
	assert.NotEqual(t, "secret123", u.Password)

	assert.Equal(t, []string{"Account Created - HK-SAMMS"}, f.mailer.subjects())
	assert.Contains(t, f.mailer.sent[0].Text, "Username: 2021-0001")

	_, err = f.scholar.CreateScholar(ctx, validScholar())
	assert.ErrorIs(t, err, ErrScholarExists)
}

func TestCreateScholarRoles(t *testing.T) {
	tests := []struct {
		role, duty string
		want       string
	}{
		{"", "Student Facilitator", models.RoleFacilitator},
		{"", "Office Admin Assistant", models.RoleAdmin},
		{"", "Gate duty", models.RoleChecker},
		{"ADMIN", "Student Facilitator", models.RoleAdmin},
		{"janitor", "Facilitator", models.RoleFacilitator},
	}
	for _, tt := range tests {
		t.Run(tt.duty+"/"+tt.role, func(t *testing.T) {
			f := newFixture()
			in := validScholar()
			in.Role, in.Duty = tt.role, tt.duty

			_, err := f.scholar.CreateScholar(context.Background(), in)
			require.NoError(t, err)

			u, err := f.users.GetByUsername(context.Background(), in.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Role)
			if tt.want == models.RoleAdmin {
				assert.Equal(t, in.ID, u.EmployeeID)
			}
		})
	}
}

func TestCreateScholarMissingField(t *testing.T) {
	f := newFixture()
	in := validScholar()
	in.Course = ""

	_, err := f.scholar.CreateScholar(context.Background(), in)
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "All fields are required", ie.Message)
}

func TestCreateScholarRollsBackWhenEmailFails(t *testing.T) {
	f := newFixture()
	f.mailer.err = &mail.DeliveryError{Attempts: 3, Err: mail.ErrNoDeliveryID}
	ctx := context.Background()

	_, err := f.scholar.CreateScholar(ctx, validScholar())
	require.ErrorIs(t, err, ErrNotification)
	var de *mail.DeliveryError
	assert.ErrorAs(t, err, &de)

	list, _ := f.scholars.ListScholars(ctx)
	assert.Empty(t, list)
	_, err = f.users.GetByUsername(ctx, "2021-0001")
	assert.Error(t, err)
}

func TestUpdateScholar(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	name, course, role, pw := "Maria S. Santos", "BSCS", "admin", "newpass"
	same := "3"
	updated, err := f.scholar.UpdateScholar(ctx, sc.ID.Hex(), UpdateScholarInput{
		Name: &name, Course: &course, Year: &same, Role: &role, Password: &pw,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, course, updated.Course)

	u, err := f.users.GetByUsername(ctx, sc.ScholarID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, sc.ScholarID, u.EmployeeID)

	_, err = f.auth.Login(ctx, sc.ScholarID, "newpass")
	assert.NoError(t, err)

	last := f.mailer.sent[len(f.mailer.sent)-1]
	assert.Equal(t, "Account Updated - HK-SAMMS", last.Subject)
	assert.Contains(t, last.Text, `- name changed from "Maria Santos" to "Maria S. Santos"`)
	assert.Contains(t, last.Text, `- course changed from "BSIT" to "BSCS"`)
	assert.NotContains(t, last.Text, "year changed")
}

func TestUpdateScholarNoChangesNoEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	_, err = f.scholar.UpdateScholar(ctx, sc.ID.Hex(), UpdateScholarInput{})
	require.NoError(t, err)
	assert.Len(t, f.mailer.sent, 1)
}

func TestUpdateScholarKeepsWriteWhenEmailFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	f.mailer.err = errors.New("down")
	name := "Renamed"
	_, err = f.scholar.UpdateScholar(ctx, sc.ID.Hex(), UpdateScholarInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotification)

	got, err := f.scholars.GetByID(ctx, sc.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestUpdateScholarNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.scholar.UpdateScholar(context.Background(), "64b000000000000000000000", UpdateScholarInput{})
	assert.ErrorIs(t, err, ErrScholarNotFound)

	_, err = f.scholar.ToggleStatus(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrScholarNotFound)
}

func TestUpdateScholarToExistingID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	other := validScholar()
	other.ID, other.Email = "2021-0002", "juan@hk.test"
	_, err = f.scholar.CreateScholar(ctx, other)
	require.NoError(t, err)

	taken, takenEmail := "2021-0002", "juan@hk.test"
	_, err = f.scholar.UpdateScholar(ctx, first.ID.Hex(), UpdateScholarInput{ID: &taken})
	assert.ErrorIs(t, err, ErrScholarExists)
	_, err = f.scholar.UpdateScholar(ctx, first.ID.Hex(), UpdateScholarInput{Email: &takenEmail})
	assert.ErrorIs(t, err, ErrScholarExists)

	got, err := f.scholars.GetByID(ctx, first.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "2021-0001", got.ScholarID)
	assert.Equal(t, "maria@hk.test", got.Email)

	u, err := f.users.GetByUsername(ctx, "2021-0002")
	require.NoError(t, err)
	assert.Equal(t, "juan@hk.test", u.Email)
}

func TestUpdateScholarToExistingUsernameRestoresScholar(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	// an account without a scholar record, e.g. seeded staff
	require.NoError(t, f.users.CreateUser(ctx, &models.User{
		Username: "staff01", Email: "staff@hk.test", Role: models.RoleAdmin, Status: models.StatusActive,
	}))

	taken := "staff01"
	_, err = f.scholar.UpdateScholar(ctx, sc.ID.Hex(), UpdateScholarInput{ID: &taken})
	assert.ErrorIs(t, err, ErrScholarExists)

	got, err := f.scholars.GetByID(ctx, sc.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "2021-0001", got.ScholarID)

	_, err = f.auth.Login(ctx, "2021-0001", "secret123")
	assert.NoError(t, err)
	assert.Equal(t, []string{"Account Created - HK-SAMMS"}, f.mailer.subjects())
}

func TestToggleStatusAndLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	sc, err = f.scholar.ToggleStatus(ctx, sc.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, sc.Status)

	// inactive accounts are refused before the password is checked
	_, err = f.auth.Login(ctx, sc.ScholarID, "wrong")
	assert.ErrorIs(t, err, ErrInactive)
	assert.Equal(t, []string{
		"Account Created - HK-SAMMS",
		"Account Deactivated - HK-SAMMS",
		"Account Deactivated - HK-SAMMS",
	}, f.mailer.subjects())

	sc, err = f.scholar.ToggleStatus(ctx, sc.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sc.Status)

	u, err := f.auth.Login(ctx, sc.ScholarID, "secret123")
	require.NoError(t, err)
	assert.Equal(t, sc.ScholarID, u.Username)
}

func TestLoginErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "", "x")
	var ie *InputError
	assert.ErrorAs(t, err, &ie)

	_, err = f.auth.Login(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.auth.Login(ctx, "2021-0001", "bad")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestInactiveLoginWhenWarningFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)
	_, err = f.scholar.ToggleStatus(ctx, sc.ID.Hex())
	require.NoError(t, err)

	f.mailer.err = errors.New("down")
	_, err = f.auth.Login(ctx, sc.ScholarID, "secret123")
	assert.ErrorIs(t, err, ErrInactive)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	clock := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	f.auth.now = func() time.Time { return clock }
	f.auth.code = func() (string, error) { return "4821", nil }

	assert.ErrorIs(t, f.auth.ForgotPassword(ctx, "ghost@hk.test"), ErrEmailNotFound)
	require.NoError(t, f.auth.ForgotPassword(ctx, "maria@hk.test"))

	otp := f.mailer.sent[len(f.mailer.sent)-1]
	assert.Equal(t, "Your OTP Code - HK-SAMMS", otp.Subject)
	assert.Contains(t, otp.Text, "4821")

	// reset is refused until the code is verified
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, "maria@hk.test", "fresh"), ErrNotVerified)

	assert.ErrorIs(t, f.auth.VerifyCode(ctx, "maria@hk.test", "0000"), ErrInvalidCode)
	require.NoError(t, f.auth.VerifyCode(ctx, "maria@hk.test", "4821"))

	require.NoError(t, f.auth.ResetPassword(ctx, "maria@hk.test", "fresh"))
	assert.Equal(t, "Password Reset Confirmation - HK-SAMMS", f.mailer.sent[len(f.mailer.sent)-1].Subject)

	_, err = f.resets.GetCode(ctx, "maria@hk.test")
	assert.Error(t, err)

	_, err = f.auth.Login(ctx, "2021-0001", "fresh")
	assert.NoError(t, err)
}

func TestVerifyCodeExpired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	clock := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	f.auth.now = func() time.Time { return clock }
	f.auth.code = func() (string, error) { return "1234", nil }
	require.NoError(t, f.auth.ForgotPassword(ctx, "maria@hk.test"))

	clock = clock.Add(10 * time.Minute)
	assert.ErrorIs(t, f.auth.VerifyCode(ctx, "maria@hk.test", "1234"), ErrCodeExpired)
}

func TestForgotPasswordEmailFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.scholar.CreateScholar(ctx, validScholar())
	require.NoError(t, err)

	f.mailer.err = &mail.DeliveryError{Attempts: 3, Err: errors.New("down")}
	assert.ErrorIs(t, f.auth.ForgotPassword(ctx, "maria@hk.test"), ErrNotification)
}

func TestResetCodeFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := newResetCode()
		require.NoError(t, err)
		require.Len(t, code, 4)
		assert.NotEqual(t, byte('0'), code[0])
	}
}

func TestLookupAndCountByMonth(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, at := range []time.Time{
		time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, f.scholars.CreateScholar(ctx, &models.Scholar{
			ScholarID: at.Format("0102150405"),
			Email:     at.Format("0102150405") + "@hk.test",
			CreatedAt: at,
		}))
	}

	n, err := f.scholar.CountByMonth(ctx, 2025, 3, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.scholar.CountByMonth(ctx, 2025, 13, nil)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	sc, err := f.scholar.LookupScholar(ctx, "0301000000")
	require.NoError(t, err)
	require.NotNil(t, sc)

	sc, err = f.scholar.LookupScholar(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, sc)
}

type memPhotos struct {
	saved map[string][]byte
}

func (m *memPhotos) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved[filename] = b
	return "/uploads/" + filename, nil
}

type fixedResolver string

func (f fixedResolver) Resolve(context.Context, float64, float64) string { return string(f) }

func TestCheckIn(t *testing.T) {
	db := inmem.Open()
	repo := inmem.NewAttendanceRepository(db)
	svc := NewAttendanceService(repo, &memPhotos{saved: map[string][]byte{}}, nil)
	ctx := context.Background()
	at := time.Date(2025, 3, 4, 0, 15, 30, 0, time.UTC)

	rec := attendance.CheckRecord{StudentID: "S-001", StudentName: "Juan", CheckInTime: at}
	first, err := svc.CheckIn(ctx, rec, "user-1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, first.Status)
	assert.Equal(t, "user-1", first.CheckedBy)

	// duplicates are separate documents
	_, err = svc.CheckIn(ctx, rec, "user-2")
	require.NoError(t, err)
	list, err := svc.ListCheckIns(ctx, "S-001")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	synthetic := attendance.CheckRecord{StudentID: "NO-ID-1741047330123-42", CheckInTime: at}
	_, err = svc.CheckIn(ctx, synthetic, "")
	assert.NoError(t, err)

	var ie *InputError
	_, err = svc.CheckIn(ctx, attendance.CheckRecord{StudentID: "  ", CheckInTime: at}, "")
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "studentId is required", ie.Message)

	_, err = svc.CheckIn(ctx, attendance.CheckRecord{StudentID: "S-002"}, "")
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "checkInTime is required", ie.Message)
}

func TestRecordSelf(t *testing.T) {
	db := inmem.Open()
	photos := &memPhotos{saved: map[string][]byte{}}
	svc := NewAttendanceService(inmem.NewAttendanceRepository(db), photos, fixedResolver("Tarlac City, Tarlac, Philippines"))
	ctx := context.Background()

	rec, err := svc.RecordSelf(ctx, SelfAttendanceInput{
		UserID: "u1", Filename: "me.jpg", Photo: bytes.NewReader([]byte("jpeg")),
		Time: "08:15 AM", Latitude: 15.48, Longitude: 120.59,
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/me.jpg", rec.PhotoURL)
	assert.Equal(t, "Tarlac City, Tarlac, Philippines", rec.Address)
	assert.Equal(t, []byte("jpeg"), photos.saved["me.jpg"])

	rec, err = svc.RecordSelf(ctx, SelfAttendanceInput{
		UserID: "u1", Filename: "b.png", Photo: strings.NewReader("png"),
		Time: "09:00 AM", Address: "Capas, Tarlac",
	})
	require.NoError(t, err)
	assert.Equal(t, "Capas, Tarlac", rec.Address)

	list, err := svc.ListSelf(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "09:00 AM", list[0].Time)

	_, err = svc.RecordSelf(ctx, SelfAttendanceInput{UserID: "u1", Time: "x"})
	var ie *InputError
	assert.ErrorAs(t, err, &ie)
}
