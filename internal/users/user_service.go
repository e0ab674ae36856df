package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/auth"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
)

var (
	ErrMissingField       = errors.New("required field is missing")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrAccountBlocked     = errors.New("account is blocked")
)

// Registration is the data collected by the sign-up form.
type Registration struct {
	Name      string
	RUN       string
	Email     string
	Birthdate string // "DD-MM-YYYY"
	Password  string
}

// Service owns account profiles. Passwords are hashed on the way in and only
// the credential record is stored; see internal/auth for the format.
type Service struct {
	repo repository.UserRepository
}

func NewService(repo repository.UserRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, reg Registration) (*domain.UserProfile, error) {
	required := []struct {
		field, value string
	}{
		{"name", reg.Name},
		{"run", reg.RUN},
		{"email", reg.Email},
		{"birthdate", reg.Birthdate},
		{"password", reg.Password},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, r.field)
		}
	}

	credential, err := auth.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.UserProfile{
		Name:      strings.TrimSpace(reg.Name),
		RUN:       strings.TrimSpace(reg.RUN),
		Email:     strings.TrimSpace(strings.ToLower(reg.Email)),
		Birthdate: strings.TrimSpace(reg.Birthdate),
	}

	// duplicate RUN / email surface as the repository's conflict sentinels
	if err := s.repo.InsertUser(ctx, user, credential); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate resolves the login (RUN or email) and verifies the password.
// Emails are stored lowercased, so a miss on the verbatim login retries with
// the lowered form. Lookup and verification failures collapse into one error
// so a caller cannot probe which accounts exist.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*domain.UserProfile, error) {
	login = strings.TrimSpace(login)

	user, credential, err := s.repo.GetUserByLogin(ctx, login)
	if errors.Is(err, repository.ErrUserNotFound) {
		if lowered := strings.ToLower(login); lowered != login {
			user, credential, err = s.repo.GetUserByLogin(ctx, lowered)
		}
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !auth.Verify(password, credential) {
		return nil, ErrInvalidCredentials
	}

	if user.IsBlocked {
		return nil, ErrAccountBlocked
	}

	return user, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.UserProfile, error) {
	return s.repo.GetUser(ctx, id)
}
