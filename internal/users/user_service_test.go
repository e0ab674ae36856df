package users

import (
	"context"
	"sync"
	"testing"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/auth"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m           sync.RWMutex
	nextID      int64
	users       map[int64]*domain.UserProfile
	credentials map[int64]string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:       make(map[int64]*domain.UserProfile),
		credentials: make(map[int64]string),
	}
}

func (m *mockRepository) InsertUser(_ context.Context, user *domain.UserProfile, credential string) error {
	m.m.Lock()
	defer m.m.Unlock()
	for _, existing := range m.users {
		if existing.RUN == user.RUN {
			return repository.ErrRUNTaken
		}
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.nextID++
	user.ID = m.nextID
	copied := *user
	m.users[user.ID] = &copied
	m.credentials[user.ID] = credential
	return nil
}

func (m *mockRepository) GetUser(_ context.Context, id int64) (*domain.UserProfile, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockRepository) GetUserByLogin(_ context.Context, login string) (*domain.UserProfile, string, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	for id, user := range m.users {
		if user.RUN == login || user.Email == login {
			copied := *user
			return &copied, m.credentials[id], nil
		}
	}
	return nil, "", repository.ErrUserNotFound
}

func validRegistration() Registration {
	return Registration{
		Name:      "Amanda Soto",
		RUN:       "12345678-5",
		Email:     "Amanda@Example.com",
		Birthdate: "10-03-1965",
		Password:  "secreto123",
	}
}

func TestRegister(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	assert.Positive(t, user.ID)
	assert.Equal(t, "amanda@example.com", user.Email, "emails are stored lowercased")

	// the stored credential is a salted hash, never the password itself
	credential := repo.credentials[user.ID]
	assert.NotEqual(t, "secreto123", credential)
	assert.True(t, auth.Verify("secreto123", credential))
}

func TestRegister_MissingFields(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Registration)
	}{
		{"name", func(r *Registration) { r.Name = "" }},
		{"run", func(r *Registration) { r.RUN = "  " }},
		{"email", func(r *Registration) { r.Email = "" }},
		{"birthdate", func(r *Registration) { r.Birthdate = "" }},
		{"password", func(r *Registration) { r.Password = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration()
			tt.mutate(&reg)
			_, err := svc.Register(ctx, reg)
			require.ErrorIs(t, err, ErrMissingField)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	sameRUN := validRegistration()
	sameRUN.Email = "otra@example.com"
	_, err = svc.Register(ctx, sameRUN)
	assert.ErrorIs(t, err, repository.ErrRUNTaken)

	sameEmail := validRegistration()
	sameEmail.RUN = "87654321-0"
	_, err = svc.Register(ctx, sameEmail)
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	byRUN, err := svc.Authenticate(ctx, "12345678-5", "secreto123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, byRUN.ID)

	byEmail, err := svc.Authenticate(ctx, "amanda@example.com", "secreto123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, byEmail.ID)

	_, err = svc.Authenticate(ctx, "12345678-5", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nadie@example.com", "secreto123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_MixedCaseEmail(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	// registration form had mixed case; the account stores the email lowered
	registered, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	require.Equal(t, "amanda@example.com", registered.Email)

	tests := []struct {
		name  string
		login string
	}{
		{"exactly as typed at registration", "Amanda@Example.com"},
		{"all caps", "AMANDA@EXAMPLE.COM"},
		{"stored form", "amanda@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tt.login, "secreto123")
			require.NoError(t, err)
			assert.Equal(t, registered.ID, user.ID)
		})
	}
}

func TestAuthenticate_LegacyPlaintextCredential(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	// pre-existing account stored before hashing was introduced
	legacy := &domain.UserProfile{Name: "Viejo", RUN: "1111111-1", Email: "viejo@example.com"}
	require.NoError(t, repo.InsertUser(ctx, legacy, "clave-antigua"))

	user, err := svc.Authenticate(ctx, "1111111-1", "clave-antigua")
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, user.ID)

	_, err = svc.Authenticate(ctx, "1111111-1", "otra-clave")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_BlockedAccount(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	repo.users[registered.ID].IsBlocked = true

	_, err = svc.Authenticate(ctx, "12345678-5", "secreto123")
	assert.ErrorIs(t, err, ErrAccountBlocked)
}
