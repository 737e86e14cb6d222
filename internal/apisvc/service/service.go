package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hksamms/samms-services/internal/apisvc/models"
)

var (
	ErrUserNotFound    = errors.New("User not found")
	ErrEmailNotFound   = errors.New("Email not found")
	ErrInactive        = errors.New("Your account is deactivated. Check your email.")
	ErrInvalidPassword = errors.New("Invalid password")
	ErrInvalidCode     = errors.New("Invalid verification code")
	ErrCodeExpired     = errors.New("Verification code expired")
	ErrNotVerified     = errors.New("Verification code not confirmed")
	ErrScholarNotFound = errors.New("Scholar not found")
	ErrScholarExists   = errors.New("Scholar or user with this ID/email already exists")
	ErrInvalidPeriod   = errors.New("year and month required")
	ErrNotification    = errors.New("notification failed")
)

// InputError carries a client-facing validation message.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

type (
	UserRepository interface {
		CreateUser(ctx context.Context, u *models.User) error
		GetByID(ctx context.Context, id string) (*models.User, error)
		GetByUsername(ctx context.Context, username string) (*models.User, error)
		GetByEmail(ctx context.Context, email string) (*models.User, error)
		FindConflict(ctx context.Context, scholarID, email string) (*models.User, error)
		UpdateUser(ctx context.Context, u *models.User) error
		DeleteUser(ctx context.Context, id primitive.ObjectID) error
	}

	ScholarRepository interface {
		ListScholars(ctx context.Context) ([]*models.Scholar, error)
		GetByID(ctx context.Context, id string) (*models.Scholar, error)
		GetByScholarID(ctx context.Context, scholarID string) (*models.Scholar, error)
		FindConflict(ctx context.Context, scholarID, email string) (*models.Scholar, error)
		CreateScholar(ctx context.Context, s *models.Scholar) error
		UpdateScholar(ctx context.Context, s *models.Scholar) error
		DeleteScholar(ctx context.Context, id primitive.ObjectID) error
		CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	}

	ResetCodeRepository interface {
		SaveCode(ctx context.Context, rc *models.ResetCode) error
		GetCode(ctx context.Context, email string) (*models.ResetCode, error)
		MarkVerified(ctx context.Context, email string) error
		DeleteCode(ctx context.Context, email string) error
	}

	AttendanceRepository interface {
		InsertCheckRecord(ctx context.Context, rec *models.CheckerAttendance) error
		ListCheckRecords(ctx context.Context, studentID string) ([]*models.CheckerAttendance, error)
		InsertSelfAttendance(ctx context.Context, rec *models.SelfAttendance) error
		ListSelfAttendance(ctx context.Context, userID string) ([]*models.SelfAttendance, error)
	}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags and turns the first failure into an InputError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	fe := fields[0]
	switch fe.Tag() {
	case "required":
		return &InputError{Message: fe.Field() + " is required"}
	case "email":
		return &InputError{Message: fe.Field() + " must be a valid email"}
	case "oneof":
		return &InputError{Message: fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())}
	}
	return &InputError{Message: fe.Field() + " is invalid"}
}

// notificationError keeps the delivery failure reachable through errors.As.
type notificationError struct {
	err error
}

func (e *notificationError) Error() string { return "notification failed: " + e.err.Error() }

func (e *notificationError) Is(target error) bool { return target == ErrNotification }

func (e *notificationError) Unwrap() error { return e.err }
