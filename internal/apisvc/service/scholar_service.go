package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/apisvc/store"
	"github.com/hksamms/samms-services/internal/mail"
)

type CreateScholarInput struct {
	Name     string `json:"name" validate:"required"`
	ID       string `json:"id" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Year     string `json:"year" validate:"required"`
	Course   string `json:"course" validate:"required"`
	Duty     string `json:"duty" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

// UpdateScholarInput holds the fields to change; nil means unchanged.
type UpdateScholarInput struct {
	Name     *string `json:"name"`
	ID       *string `json:"id"`
	Email    *string `json:"email"`
	Year     *string `json:"year"`
	Course   *string `json:"course"`
	Duty     *string `json:"duty"`
	Status   *string `json:"status"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

type ScholarService struct {
	scholars ScholarRepository
	users    UserRepository
	mailer   mail.Sender
}

func NewScholarService(scholars ScholarRepository, users UserRepository, mailer mail.Sender) *ScholarService {
	return &ScholarService{
		scholars: scholars,
		users:    users,
		mailer:   mailer,
	}
}

func (s *ScholarService) ListScholars(ctx context.Context) ([]*models.Scholar, error) {
	return s.scholars.ListScholars(ctx)
}

// CreateScholar creates the scholar and its login account, then sends the
// welcome email. When the email can not be delivered both records are removed.
func (s *ScholarService) CreateScholar(ctx context.Context, in CreateScholarInput) (*models.Scholar, error) {
	if err := Validate(in); err != nil {
		if _, ok := err.(*InputError); ok {
			return nil, &InputError{Message: "All fields are required"}
		}
		return nil, err
	}

	role := models.RoleFor(in.Role, in.Duty)

	if _, err := s.scholars.FindConflict(ctx, in.ID, in.Email); err == nil {
		return nil, ErrScholarExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrap(err, "check scholar conflict")
	}
	if _, err := s.users.FindConflict(ctx, in.ID, in.Email); err == nil {
		return nil, ErrScholarExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrap(err, "check user conflict")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	sc := &models.Scholar{
		ScholarID: in.ID,
		Name:      in.Name,
		Email:     in.Email,
		Year:      in.Year,
		Course:    in.Course,
		Duty:      in.Duty,
		Status:    models.StatusActive,
	}
	if err := s.scholars.CreateScholar(ctx, sc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrScholarExists
		}
		return nil, errors.Wrap(err, "create scholar")
	}

	u := &models.User{
		Username: in.ID,
		Email:    in.Email,
		Password: hash,
		Role:     role,
		Status:   models.StatusActive,
	}
	if role == models.RoleAdmin {
		u.EmployeeID = in.ID
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		s.rollback(ctx, sc, nil)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrScholarExists
		}
		return nil, errors.Wrap(err, "create user")
	}

	if _, err := s.mailer.Send(ctx, welcomeEmail(in.Email, in.Name, in.ID)); err != nil {
		s.rollback(ctx, sc, u)
		return nil, &notificationError{err: err}
	}

	log.Infof("scholar %s created with role %s", sc.ScholarID, role)
	return sc, nil
}

func (s *ScholarService) rollback(ctx context.Context, sc *models.Scholar, u *models.User) {
	// detached so a cancelled request still cleans up
	ctx = context.WithoutCancel(ctx)
	if u != nil {
		if err := s.users.DeleteUser(ctx, u.ID); err != nil {
			log.Errorf("rollback user %s: %v", u.Username, err)
		}
	}
	if err := s.scholars.DeleteScholar(ctx, sc.ID); err != nil {
		log.Errorf("rollback scholar %s: %v", sc.ScholarID, err)
	}
}

func (s *ScholarService) get(ctx context.Context, id string) (*models.Scholar, error) {
	sc, err := s.scholars.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrScholarNotFound
	}
	return sc, err
}

// linkedUser returns the account of a scholar, or nil when there is none.
func (s *ScholarService) linkedUser(ctx context.Context, scholarID string) (*models.User, error) {
	u, err := s.users.GetByUsername(ctx, scholarID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// UpdateScholar applies the provided fields to the scholar and its account
// and mails the list of changed profile fields. The update is kept when the
// email fails; the returned error then wraps ErrNotification.
func (s *ScholarService) UpdateScholar(ctx context.Context, id string, in UpdateScholarInput) (*models.Scholar, error) {
	sc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	u, err := s.linkedUser(ctx, sc.ScholarID)
	if err != nil {
		return nil, errors.Wrap(err, "load linked user")
	}

	orig := *sc
	var changes []string
	apply := func(field string, dst *string, v *string) {
		if v == nil || *v == "" {
			return
		}
		if *v != *dst {
			changes = append(changes, fmt.Sprintf("%s changed from %q to %q", field, *dst, *v))
		}
		*dst = *v
	}
	apply("name", &sc.Name, in.Name)
	apply("id", &sc.ScholarID, in.ID)
	apply("email", &sc.Email, in.Email)
	apply("year", &sc.Year, in.Year)
	apply("course", &sc.Course, in.Course)
	apply("duty", &sc.Duty, in.Duty)
	if in.Status != nil && (*in.Status == models.StatusActive || *in.Status == models.StatusInactive) {
		sc.Status = *in.Status
	}

	if err := s.scholars.UpdateScholar(ctx, sc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrScholarExists
		}
		return nil, errors.Wrap(err, "update scholar")
	}

	if u == nil {
		return sc, nil
	}

	if in.ID != nil && *in.ID != "" {
		u.Username = *in.ID
	}
	if in.Email != nil && *in.Email != "" {
		u.Email = *in.Email
	}
	if in.Role != nil {
		if r := strings.ToLower(*in.Role); models.ValidRole(r) {
			u.Role = r
		}
	}
	if u.Role == models.RoleAdmin {
		u.EmployeeID = u.Username
	} else {
		u.EmployeeID = ""
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	if err := s.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			if rerr := s.scholars.UpdateScholar(context.WithoutCancel(ctx), &orig); rerr != nil {
				log.Errorf("restore scholar %s: %v", orig.ID.Hex(), rerr)
			}
			return nil, ErrScholarExists
		}
		return nil, errors.Wrap(err, "update linked user")
	}

	if len(changes) > 0 {
		if _, err := s.mailer.Send(ctx, accountUpdatedEmail(u.Email, u.Username, changes)); err != nil {
			return sc, &notificationError{err: err}
		}
	}
	return sc, nil
}

// ToggleStatus flips Active/Inactive on the scholar and its account.
func (s *ScholarService) ToggleStatus(ctx context.Context, id string) (*models.Scholar, error) {
	sc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sc.Status == models.StatusActive {
		sc.Status = models.StatusInactive
	} else {
		sc.Status = models.StatusActive
	}
	if err := s.scholars.UpdateScholar(ctx, sc); err != nil {
		return nil, errors.Wrap(err, "update scholar status")
	}

	u, err := s.linkedUser(ctx, sc.ScholarID)
	if err != nil {
		return nil, errors.Wrap(err, "load linked user")
	}
	if u == nil {
		return sc, nil
	}

	u.Status = sc.Status
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, errors.Wrap(err, "update user status")
	}

	if _, err := s.mailer.Send(ctx, statusEmail(u.Email, u.Username, sc.Status)); err != nil {
		return sc, &notificationError{err: err}
	}
	return sc, nil
}

// LookupScholar finds a scholar by its school id. A missing scholar is not an
// error.
func (s *ScholarService) LookupScholar(ctx context.Context, scholarID string) (*models.Scholar, error) {
	sc, err := s.scholars.GetByScholarID(ctx, scholarID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return sc, err
}

// CountByMonth counts scholars created in the given calendar month.
func (s *ScholarService) CountByMonth(ctx context.Context, year, month int, loc *time.Location) (int64, error) {
	if year <= 0 || month < 1 || month > 12 {
		return 0, ErrInvalidPeriod
	}
	if loc == nil {
		loc = time.UTC
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return s.scholars.CountCreatedBetween(ctx, from, from.AddDate(0, 1, 0))
}
