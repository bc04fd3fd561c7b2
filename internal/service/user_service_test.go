package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/gradebook-api/internal/models"
	appErrors "github.com/campusworks/gradebook-api/pkg/errors"
)

type mockUserRepo struct {
	usersByID    map[string]*models.User
	usersByEmail map[string]*models.User
	listUsers    []models.User
	listTotal    int
	listErr      error
	created      *models.User
	updated      *models.User
	deletedID    string
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listUsers, m.listTotal, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.usersByID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.created = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func newTestUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop())
}

func strPtr(s string) *string { return &s }

func rolePtr(r models.UserRole) *models.UserRole { return &r }

func TestUserServiceListPagination(t *testing.T) {
	repo := &mockUserRepo{
		listUsers: []models.User{{ID: "u1"}, {ID: "u2"}},
		listTotal: 42,
	}
	svc := newTestUserService(repo)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}

func TestUserServiceListUnknownRole(t *testing.T) {
	svc := newTestUserService(&mockUserRepo{})
	bogus := models.UserRole("principal")

	_, _, err := svc.List(context.Background(), models.UserFilter{Role: &bogus})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Name:     "Ben",
		Email:    "Ben@Example.com",
		Password: "password",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ben@example.com", user.Email)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.NotEqual(t, "password", user.PasswordHash)
	require.NotNil(t, repo.created)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{usersByEmail: map[string]*models.User{
		"ben@example.com": {ID: "u1"},
	}}
	svc := newTestUserService(repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name:     "Ben",
		Email:    "ben@example.com",
		Password: "password",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestUserServiceCreateInvalidRole(t *testing.T) {
	svc := newTestUserService(&mockUserRepo{})

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name:     "Ben",
		Email:    "ben@example.com",
		Password: "password",
		Role:     "janitor",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdatePartial(t *testing.T) {
	repo := &mockUserRepo{usersByID: map[string]*models.User{
		"u1": {ID: "u1", Name: "Ben", Email: "ben@example.com", Role: models.RoleStudent, Institution: strPtr("Old U")},
	}}
	svc := newTestUserService(repo)

	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{
		Name: strPtr("Benjamin"),
		Role: rolePtr(models.RoleTeacher),
	})
	require.NoError(t, err)
	assert.Equal(t, "Benjamin", user.Name)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.Equal(t, "ben@example.com", user.Email)
	require.NotNil(t, user.Institution)
	assert.Equal(t, "Old U", *user.Institution)
}

func TestUserServiceUpdateExplicitEmptyInstitution(t *testing.T) {
	repo := &mockUserRepo{usersByID: map[string]*models.User{
		"u1": {ID: "u1", Name: "Ben", Email: "ben@example.com", Role: models.RoleStudent, Institution: strPtr("Old U")},
	}}
	svc := newTestUserService(repo)

	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{Institution: strPtr("")})
	require.NoError(t, err)
	require.NotNil(t, user.Institution)
	assert.Equal(t, "", *user.Institution)
}

func TestUserServiceUpdateEmailTaken(t *testing.T) {
	repo := &mockUserRepo{
		usersByID: map[string]*models.User{
			"u1": {ID: "u1", Email: "ben@example.com"},
		},
		usersByEmail: map[string]*models.User{
			"taken@example.com": {ID: "u2"},
		},
	}
	svc := newTestUserService(repo)

	_, err := svc.Update(context.Background(), "u1", UpdateUserRequest{Email: strPtr("taken@example.com")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateNotFound(t *testing.T) {
	svc := newTestUserService(&mockUserRepo{})

	_, err := svc.Update(context.Background(), "ghost", UpdateUserRequest{Name: strPtr("X")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDelete(t *testing.T) {
	repo := &mockUserRepo{usersByID: map[string]*models.User{"u1": {ID: "u1"}}}
	svc := newTestUserService(repo)

	require.NoError(t, svc.Delete(context.Background(), "u1"))
	assert.Equal(t, "u1", repo.deletedID)

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
