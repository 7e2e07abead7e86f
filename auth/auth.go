package auth

import (
	"context"
	"strings"
	"time"

	"smartdine/middleware"
	"smartdine/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned for an unknown email or a wrong password.
var ErrBadCredentials = errors.New("invalid email or password")

const minPasswordLen = 8

type StaffStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Staff, error)
	Upsert(ctx context.Context, s *models.Staff) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

type Service struct {
	staff    StaffStore
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(staff StaffStore, secret []byte, tokenTTL time.Duration) *Service {
	return &Service{staff: staff, secret: secret, tokenTTL: tokenTTL, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks the credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Staff, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, errors.Wrap(models.ErrInvalidArgument, "email and password are required")
	}

	staff, err := s.staff.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, ErrBadCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrBadCredentials
	}

	now := s.now()
	claims := &middleware.Claims{
		Email:  staff.Email,
		UserID: staff.ID,
		Role:   staff.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   staff.ID,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, errors.Wrap(err, "sign token")
	}

	if err := s.staff.TouchLogin(ctx, staff.ID, now); err != nil {
		log.WithError(err).WithField("staff", staff.ID).Warn("record last login")
	}
	log.WithFields(log.Fields{"staff": staff.ID, "role": staff.Role}).Info("staff logged in")
	return token, staff, nil
}

// newStaff validates the input and hashes the password.
func newStaff(email, password, role string) (*models.Staff, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.Wrap(models.ErrInvalidArgument, "email is required")
	}
	if len(password) < minPasswordLen {
		return nil, errors.Wrapf(models.ErrInvalidArgument, "password must be at least %d characters", minPasswordLen)
	}
	if role != models.RoleChef && role != models.RoleAdmin {
		return nil, errors.Wrapf(models.ErrInvalidArgument, "unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	return &models.Staff{Email: email, PasswordHash: string(hash), Role: role}, nil
}

// SeedStaff creates a staff login or resets the password and role of an
// existing one.
func (s *Service) SeedStaff(ctx context.Context, email, password, role string) (*models.Staff, error) {
	staff, err := newStaff(email, password, role)
	if err != nil {
		return nil, err
	}
	if err := s.staff.Upsert(ctx, staff); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"email": staff.Email, "role": role}).Info("staff login saved")
	return staff, nil
}

// Register creates a new staff login. An email that is already taken is a
// models.ErrConflict; existing logins are never overwritten.
func (s *Service) Register(ctx context.Context, email, password, role string) (*models.Staff, error) {
	staff, err := newStaff(email, password, role)
	if err != nil {
		return nil, err
	}

	_, err = s.staff.FindByEmail(ctx, staff.Email)
	if err == nil {
		return nil, errors.Wrapf(models.ErrConflict, "staff %s already exists", staff.Email)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if err := s.staff.Upsert(ctx, staff); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"email": staff.Email, "role": role}).Info("staff registered")
	return staff, nil
}
