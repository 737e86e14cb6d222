package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/apisvc/store"
	"github.com/hksamms/samms-services/internal/mail"
)

const (
	resetCodeTTL = 10 * time.Minute
	bcryptCost   = 10
)

type AuthService struct {
	users  UserRepository
	resets ResetCodeRepository
	mailer mail.Sender
	now    func() time.Time
	code   func() (string, error)
}

func NewAuthService(users UserRepository, resets ResetCodeRepository, mailer mail.Sender) *AuthService {
	return &AuthService{
		users:  users,
		resets: resets,
		mailer: mailer,
		now:    time.Now,
		code:   newResetCode,
	}
}

// newResetCode returns a 4 digit code in 1000..9999.
func newResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 1000+n.Int64()), nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// Login checks the credentials. An inactive account gets a warning email and
// ErrInactive whatever the password was.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, &InputError{Message: "Username and password are required"}
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}

	if u.IsInactive() {
		if _, err := s.mailer.Send(ctx, deactivatedLoginEmail(u.Email, u.Username)); err != nil {
			log.Warnf("deactivation warning to %s not delivered: %v", u.Email, err)
		}
		return nil, ErrInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return u, nil
}

// ForgotPassword stores a fresh reset code and mails it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return &InputError{Message: "Email is required"}
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrEmailNotFound
	}
	if err != nil {
		return errors.Wrap(err, "load user")
	}

	code, err := s.code()
	if err != nil {
		return errors.Wrap(err, "generate reset code")
	}

	now := s.now().UTC()
	rc := &models.ResetCode{
		Email:     u.Email,
		Code:      code,
		ExpiresAt: now.Add(resetCodeTTL),
		CreatedAt: now,
	}
	if err := s.resets.SaveCode(ctx, rc); err != nil {
		return errors.Wrap(err, "save reset code")
	}

	log.Infof("reset code issued for %s, expires %s", u.Username, rc.ExpiresAt.Format(time.RFC3339))

	if _, err := s.mailer.Send(ctx, otpEmail(u.Email, code)); err != nil {
		return &notificationError{err: err}
	}
	return nil
}

func (s *AuthService) VerifyCode(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return &InputError{Message: "Email and code are required"}
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEmailNotFound
		}
		return errors.Wrap(err, "load user")
	}

	rc, err := s.resets.GetCode(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return errors.Wrap(err, "load reset code")
	}

	if rc.Code != code {
		return ErrInvalidCode
	}
	if !s.now().Before(rc.ExpiresAt) {
		return ErrCodeExpired
	}

	return errors.Wrap(s.resets.MarkVerified(ctx, email), "mark reset verified")
}

// ResetPassword requires a verified, unexpired reset for the email. The new
// password is kept even when the confirmation email fails.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if newPassword == "" {
		return &InputError{Message: "New password is required"}
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrEmailNotFound
	}
	if err != nil {
		return errors.Wrap(err, "load user")
	}

	rc, err := s.resets.GetCode(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotVerified
	case err != nil:
		return errors.Wrap(err, "load reset code")
	case !rc.Verified:
		return ErrNotVerified
	case !s.now().Before(rc.ExpiresAt):
		return ErrCodeExpired
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return errors.Wrap(err, "update password")
	}
	if err := s.resets.DeleteCode(ctx, email); err != nil {
		log.Warnf("reset code for %s not removed: %v", email, err)
	}

	log.Infof("password updated for %s", u.Username)

	if _, err := s.mailer.Send(ctx, passwordResetEmail(u.Email, u.Username)); err != nil {
		return &notificationError{err: err}
	}
	return nil
}

// UserByID resolves a token subject.
func (s *AuthService) UserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
