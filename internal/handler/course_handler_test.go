package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/gradebook-api/internal/middleware"
	"github.com/campusworks/gradebook-api/internal/models"
	"github.com/campusworks/gradebook-api/internal/service"
	appErrors "github.com/campusworks/gradebook-api/pkg/errors"
)

type courseServiceMock struct {
	course    *models.Course
	detail    *models.CourseDetail
	summaries []models.CourseSummary
	createErr error
	enrollErr error
	deleteErr error
	lastActor *models.JWTClaims
}

func (m *courseServiceMock) Create(ctx context.Context, actor *models.JWTClaims, req service.CreateCourseRequest) (*models.Course, error) {
	m.lastActor = actor
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.course, nil
}

func (m *courseServiceMock) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, *models.Pagination, error) {
	return m.summaries, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.summaries)}, nil
}

func (m *courseServiceMock) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	if m.detail == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return m.detail, nil
}

func (m *courseServiceMock) Update(ctx context.Context, id string, req service.UpdateCourseRequest) (*models.Course, error) {
	return m.course, nil
}

func (m *courseServiceMock) Enroll(ctx context.Context, actor *models.JWTClaims, courseID string, req service.EnrollStudentRequest) (*models.CourseDetail, error) {
	m.lastActor = actor
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return m.detail, nil
}

func (m *courseServiceMock) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

func testContext(t *testing.T, method, path string, payload interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestCourseHandlerCreate(t *testing.T) {
	mock := &courseServiceMock{course: &models.Course{ID: "c1", Name: "Algebra", TeacherID: "t1"}}
	h := NewCourseHandler(mock)

	c, w := testContext(t, http.MethodPost, "/courses", service.CreateCourseRequest{Name: "Algebra"})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.lastActor)
	assert.Equal(t, "t1", mock.lastActor.UserID)

	var envelope struct {
		Data models.Course `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "c1", envelope.Data.ID)
}

func TestCourseHandlerCreateInvalidBody(t *testing.T) {
	h := NewCourseHandler(&courseServiceMock{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseHandlerCreateMissingClaims(t *testing.T) {
	h := NewCourseHandler(&courseServiceMock{})

	c, w := testContext(t, http.MethodPost, "/courses", service.CreateCourseRequest{Name: "Algebra"})

	h.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCourseHandlerGetNotFound(t *testing.T) {
	h := NewCourseHandler(&courseServiceMock{})

	c, w := testContext(t, http.MethodGet, "/courses/ghost", nil)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCourseHandlerEnrollDuplicate(t *testing.T) {
	mock := &courseServiceMock{enrollErr: appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")}
	h := NewCourseHandler(mock)

	c, w := testContext(t, http.MethodPost, "/courses/c1/enroll", service.EnrollStudentRequest{StudentID: "s1"})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	h.Enroll(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCourseHandlerDeleteConflict(t *testing.T) {
	mock := &courseServiceMock{deleteErr: appErrors.Clone(appErrors.ErrConflict, "course has issued grades and cannot be deleted")}
	h := NewCourseHandler(mock)

	c, w := testContext(t, http.MethodDelete, "/courses/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	h.Delete(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCourseHandlerList(t *testing.T) {
	mock := &courseServiceMock{summaries: []models.CourseSummary{
		{Course: models.Course{ID: "c1", Name: "Algebra"}, TeacherName: "Ben"},
	}}
	h := NewCourseHandler(mock)

	c, w := testContext(t, http.MethodGet, "/courses?page=1", nil)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.CourseSummary `json:"data"`
		Pagination *models.Pagination     `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Ben", envelope.Data[0].TeacherName)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}
