package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/gradebook-api/internal/models"
	appErrors "github.com/campusworks/gradebook-api/pkg/errors"
)

type mockCourseRepo struct {
	coursesByID    map[string]*models.Course
	detail         *models.CourseDetail
	listCourses    []models.CourseSummary
	listTotal      int
	listCalls      int
	created        *models.Course
	updated        *models.Course
	deletedID      string
	enrollInserted bool
	enrollErr      error
	enrolled       []models.CourseMember
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	m.created = course
	return nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.coursesByID[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if m.detail != nil && m.detail.ID == id {
		return m.detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error) {
	m.listCalls++
	return m.listCourses, m.listTotal, nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.updated = course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockCourseRepo) Enroll(ctx context.Context, courseID, studentID string) (bool, error) {
	if m.enrollErr != nil {
		return false, m.enrollErr
	}
	return m.enrollInserted, nil
}

func (m *mockCourseRepo) ListEnrolled(ctx context.Context, courseID string) ([]models.CourseMember, error) {
	return m.enrolled, nil
}

type mockGradeCounter struct {
	count int
}

func (m *mockGradeCounter) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return m.count, nil
}

type mockListCache struct {
	getCalls    int
	setCalls    int
	invalidated bool
}

func (m *mockListCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.getCalls++
	return appErrors.ErrCacheMiss
}

func (m *mockListCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalls++
	return nil
}

func (m *mockListCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = true
	return nil
}

func newTestCourseService(courses *mockCourseRepo, users *mockUserRepo, grades *mockGradeCounter, cache listCache) *CourseService {
	if users == nil {
		users = &mockUserRepo{}
	}
	if grades == nil {
		grades = &mockGradeCounter{}
	}
	return NewCourseService(courses, users, grades, cache, time.Minute, nil, validator.New(), zap.NewNop())
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func adminClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleAdmin}
}

func TestCourseServiceCreateTeacherOwnsCourse(t *testing.T) {
	courses := &mockCourseRepo{}
	users := &mockUserRepo{usersByID: map[string]*models.User{
		"t1": {ID: "t1", Role: models.RoleTeacher},
	}}
	svc := newTestCourseService(courses, users, nil, nil)

	// A teacher naming someone else still owns what they create.
	course, err := svc.Create(context.Background(), teacherClaims("t1"), CreateCourseRequest{
		Name:      "Algebra",
		TeacherID: "t2",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", course.TeacherID)
	require.NotNil(t, courses.created)
}

func TestCourseServiceCreateAdminNamesTeacher(t *testing.T) {
	courses := &mockCourseRepo{}
	users := &mockUserRepo{usersByID: map[string]*models.User{
		"t2": {ID: "t2", Role: models.RoleTeacher},
	}}
	svc := newTestCourseService(courses, users, nil, nil)

	course, err := svc.Create(context.Background(), adminClaims("a1"), CreateCourseRequest{
		Name:      "Algebra",
		TeacherID: "t2",
	})
	require.NoError(t, err)
	assert.Equal(t, "t2", course.TeacherID)
}

func TestCourseServiceCreateUnknownTeacher(t *testing.T) {
	svc := newTestCourseService(&mockCourseRepo{}, &mockUserRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), adminClaims("a1"), CreateCourseRequest{
		Name:      "Algebra",
		TeacherID: "ghost",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceListPopulatesCache(t *testing.T) {
	courses := &mockCourseRepo{
		listCourses: []models.CourseSummary{{Course: models.Course{ID: "c1", Name: "Algebra"}}},
		listTotal:   1,
	}
	cache := &mockListCache{}
	svc := newTestCourseService(courses, nil, nil, cache)

	got, pagination, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, cache.getCalls)
	assert.Equal(t, 1, cache.setCalls)
	assert.Equal(t, 1, courses.listCalls)
}

func TestCourseServiceGetAttachesMembers(t *testing.T) {
	courses := &mockCourseRepo{
		detail: &models.CourseDetail{Course: models.Course{ID: "c1", Name: "Algebra"}},
		enrolled: []models.CourseMember{
			{ID: "s1", Name: "Ana"},
		},
	}
	svc := newTestCourseService(courses, nil, nil, nil)

	detail, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, detail.EnrolledStudents, 1)
	assert.Equal(t, "s1", detail.EnrolledStudents[0].ID)
}

func TestCourseServiceUpdateRejectsEmptyName(t *testing.T) {
	courses := &mockCourseRepo{coursesByID: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Algebra", TeacherID: "t1"},
	}}
	svc := newTestCourseService(courses, nil, nil, nil)

	_, err := svc.Update(context.Background(), "c1", UpdateCourseRequest{Name: strPtr("")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, courses.updated)
}

func TestCourseServiceUpdateExplicitEmptyDescription(t *testing.T) {
	courses := &mockCourseRepo{coursesByID: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Algebra", Description: strPtr("intro"), TeacherID: "t1"},
	}}
	svc := newTestCourseService(courses, nil, nil, nil)

	course, err := svc.Update(context.Background(), "c1", UpdateCourseRequest{Description: strPtr("")})
	require.NoError(t, err)
	require.NotNil(t, course.Description)
	assert.Equal(t, "", *course.Description)
	assert.Equal(t, "Algebra", course.Name)
}

func TestCourseServiceEnrollSuccess(t *testing.T) {
	courses := &mockCourseRepo{
		coursesByID:    map[string]*models.Course{"c1": {ID: "c1", TeacherID: "t1"}},
		detail:         &models.CourseDetail{Course: models.Course{ID: "c1"}},
		enrollInserted: true,
	}
	users := &mockUserRepo{usersByID: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent},
	}}
	svc := newTestCourseService(courses, users, nil, nil)

	detail, err := svc.Enroll(context.Background(), teacherClaims("t1"), "c1", EnrollStudentRequest{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "c1", detail.ID)
}

func TestCourseServiceEnrollForeignCourseForbidden(t *testing.T) {
	courses := &mockCourseRepo{
		coursesByID: map[string]*models.Course{"c1": {ID: "c1", TeacherID: "t1"}},
	}
	svc := newTestCourseService(courses, nil, nil, nil)

	_, err := svc.Enroll(context.Background(), teacherClaims("t2"), "c1", EnrollStudentRequest{StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceEnrollDuplicate(t *testing.T) {
	courses := &mockCourseRepo{
		coursesByID:    map[string]*models.Course{"c1": {ID: "c1", TeacherID: "t1"}},
		enrollInserted: false,
	}
	users := &mockUserRepo{usersByID: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent},
	}}
	svc := newTestCourseService(courses, users, nil, nil)

	_, err := svc.Enroll(context.Background(), adminClaims("a1"), "c1", EnrollStudentRequest{StudentID: "s1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
}

func TestCourseServiceEnrollUnknownCourse(t *testing.T) {
	svc := newTestCourseService(&mockCourseRepo{}, nil, nil, nil)

	_, err := svc.Enroll(context.Background(), adminClaims("a1"), "ghost", EnrollStudentRequest{StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceDeleteWithGradesRejected(t *testing.T) {
	courses := &mockCourseRepo{coursesByID: map[string]*models.Course{"c1": {ID: "c1"}}}
	svc := newTestCourseService(courses, nil, &mockGradeCounter{count: 3}, nil)

	err := svc.Delete(context.Background(), "c1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, courses.deletedID)
}

func TestCourseServiceDeleteInvalidatesCache(t *testing.T) {
	courses := &mockCourseRepo{coursesByID: map[string]*models.Course{"c1": {ID: "c1"}}}
	cache := &mockListCache{}
	svc := newTestCourseService(courses, nil, &mockGradeCounter{count: 0}, cache)

	require.NoError(t, svc.Delete(context.Background(), "c1"))
	assert.Equal(t, "c1", courses.deletedID)
	assert.True(t, cache.invalidated)
}
