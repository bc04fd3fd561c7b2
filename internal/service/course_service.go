package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/gradebook-api/internal/models"
	"github.com/campusworks/gradebook-api/internal/policy"
	appErrors "github.com/campusworks/gradebook-api/pkg/errors"
)

const courseCachePrefix = "courses:list:"

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	Enroll(ctx context.Context, courseID, studentID string) (bool, error)
	ListEnrolled(ctx context.Context, courseID string) ([]models.CourseMember, error)
}

type courseUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type courseGradeCounter interface {
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateCourseRequest is the course creation payload. TeacherID is only
// honored for admin actors.
type CreateCourseRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	Semester    *string `json:"semester"`
	TeacherID   string  `json:"teacher_id"`
}

// UpdateCourseRequest is a partial update: nil fields are left untouched,
// non-nil fields overwrite, including explicit empty strings.
type UpdateCourseRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Semester    *string `json:"semester"`
	TeacherID   *string `json:"teacher_id"`
}

// EnrollStudentRequest is the enrollment payload.
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// CourseService handles course registry workflows.
type CourseService struct {
	courses   courseRepository
	users     courseUserReader
	grades    courseGradeCounter
	cache     listCache
	cacheTTL  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates an instance of CourseService. The cache may be
// nil, in which case listings always hit the database.
func NewCourseService(courses courseRepository, users courseUserReader, grades courseGradeCounter, cache listCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{
		courses:   courses,
		users:     users,
		grades:    grades,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Create adds a new course. The owning teacher is resolved from the actor:
// a teacher always owns what they create, an admin may name any teacher.
func (s *CourseService) Create(ctx context.Context, actor *models.JWTClaims, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create course payload")
	}

	teacherID := policy.ResolveCourseTeacher(actor.Role, actor.UserID, req.TeacherID)

	if _, err := s.users.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
	}

	course := &models.Course{
		Name:        req.Name,
		Description: req.Description,
		Semester:    req.Semester,
		TeacherID:   teacherID,
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateListCache(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("teacher_id", teacherID))

	return course, nil
}

// List returns courses matching the filter with teacher names resolved.
// Results are served from the cache when one is configured.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, *models.Pagination, error) {
	type cached struct {
		Courses    []models.CourseSummary `json:"courses"`
		Pagination models.Pagination      `json:"pagination"`
	}

	key := fmt.Sprintf("%steacher=%s:semester=%s:page=%d:size=%d", courseCachePrefix, filter.TeacherID, filter.Semester, filter.Page, filter.PageSize)

	if s.cache != nil {
		var entry cached
		if err := s.cache.Get(ctx, key, &entry); err == nil {
			s.metrics.RecordCacheOperation(true)
			return entry.Courses, &entry.Pagination, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cached{Courses: courses, Pagination: *pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache course list", zap.Error(err))
		}
	}

	return courses, pagination, nil
}

// Get returns a course with its enrolled students resolved.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	detail, err := s.courses.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	members, err := s.courses.ListEnrolled(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled students")
	}
	if members == nil {
		members = []models.CourseMember{}
	}
	detail.EnrolledStudents = members

	return detail, nil
}

// Update modifies the provided attributes of a course. Only non-nil fields
// are applied, so an explicit empty value is honored rather than dropped.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course name cannot be empty")
		}
		course.Name = *req.Name
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.Semester != nil {
		course.Semester = req.Semester
	}
	if req.TeacherID != nil {
		if _, err := s.users.FindByID(ctx, *req.TeacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
		}
		course.TeacherID = *req.TeacherID
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateListCache(ctx)

	return course, nil
}

// Enroll appends a student to a course. Teachers may only enroll into
// their own courses. A repeated enrollment is rejected, not ignored.
func (s *CourseService) Enroll(ctx context.Context, actor *models.JWTClaims, courseID string, req EnrollStudentRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if !policy.CanEnroll(actor.Role, actor.UserID, course.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course teacher or an admin may enroll students")
	}

	if _, err := s.users.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}

	inserted, err := s.courses.Enroll(ctx, courseID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	if !inserted {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	}

	s.invalidateListCache(ctx)
	s.logger.Info("student enrolled", zap.String("course_id", courseID), zap.String("student_id", req.StudentID))

	return s.Get(ctx, courseID)
}

// Delete removes a course. Deletion is rejected while any grade still
// references the course so the ledger never orphans.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.courses.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	total, err := s.grades.CountByCourse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count course grades")
	}
	if total > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course has issued grades and cannot be deleted")
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.invalidateListCache(ctx)
	s.logger.Info("course deleted", zap.String("course_id", id))

	return nil
}

func (s *CourseService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, courseCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate course list cache", zap.Error(err))
	}
}
