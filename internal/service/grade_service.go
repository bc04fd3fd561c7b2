package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/gradebook-api/internal/grading"
	"github.com/campusworks/gradebook-api/internal/models"
	"github.com/campusworks/gradebook-api/internal/policy"
	appErrors "github.com/campusworks/gradebook-api/pkg/errors"
	"github.com/campusworks/gradebook-api/pkg/export"
)

type gradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentGrade, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseGrade, error)
}

type gradeCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

type gradeUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type tableExporter interface {
	Render(table export.Table) ([]byte, error)
}

// AddGradeRequest is the grade creation payload.
type AddGradeRequest struct {
	CourseID  string  `json:"course_id" validate:"required"`
	StudentID string  `json:"student_id" validate:"required"`
	Marks     int     `json:"marks"`
	Comments  *string `json:"comments"`
}

// GradeExport is a rendered grade report ready to be served as a download.
type GradeExport struct {
	FileName    string
	ContentType string
	Content     []byte
}

// GradeService handles the append-only grade ledger.
type GradeService struct {
	grades            gradeRepository
	courses           gradeCourseReader
	users             gradeUserReader
	csv               tableExporter
	pdf               tableExporter
	requireEnrollment bool
	metrics           *MetricsService
	validator         *validator.Validate
	logger            *zap.Logger
}

// NewGradeService creates an instance of GradeService. When
// requireEnrollment is set, grades for students not enrolled in the
// course are rejected; otherwise auditors may be graded too.
func NewGradeService(grades gradeRepository, courses gradeCourseReader, users gradeUserReader, requireEnrollment bool, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{
		grades:            grades,
		courses:           courses,
		users:             users,
		csv:               export.NewCSVExporter(),
		pdf:               export.NewPDFExporter(),
		requireEnrollment: requireEnrollment,
		metrics:           metrics,
		validator:         validate,
		logger:            logger,
	}
}

// Add issues a grade. Marks are validated before anything is persisted
// and the letter grade is derived, never taken from the request.
func (s *GradeService) Add(ctx context.Context, actor *models.JWTClaims, req AddGradeRequest) (*models.Grade, error) {
	if !policy.CanAddGrade(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers may issue grades")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	if !grading.ValidMarks(req.Marks) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("marks must be between %d and %d", grading.MinMarks, grading.MaxMarks))
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if _, err := s.users.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}

	if s.requireEnrollment {
		enrolled, err := s.courses.IsEnrolled(ctx, req.CourseID, req.StudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in this course")
		}
	}

	grade := &models.Grade{
		StudentID:   req.StudentID,
		CourseID:    req.CourseID,
		Marks:       req.Marks,
		LetterGrade: grading.Letter(req.Marks),
		Comments:    req.Comments,
	}

	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade")
	}

	s.metrics.RecordGradeIssued()
	s.logger.Info("grade issued",
		zap.String("grade_id", grade.ID),
		zap.String("course_id", grade.CourseID),
		zap.String("student_id", grade.StudentID),
		zap.String("letter", grade.LetterGrade),
	)

	return grade, nil
}

// StudentGrades returns all grades for a student with course names
// resolved. Students may only read their own; an empty history is not an
// error.
func (s *GradeService) StudentGrades(ctx context.Context, actor *models.JWTClaims, studentID string) ([]models.StudentGrade, error) {
	if !policy.CanReadStudentGrades(actor.Role, actor.UserID, studentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you may only view your own grades")
	}

	grades, err := s.grades.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student grades")
	}
	if grades == nil {
		grades = []models.StudentGrade{}
	}
	return grades, nil
}

// CourseGrades returns all grades issued for a course with student
// identity resolved.
func (s *GradeService) CourseGrades(ctx context.Context, courseID string) ([]models.CourseGrade, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	grades, err := s.grades.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course grades")
	}
	if grades == nil {
		grades = []models.CourseGrade{}
	}
	return grades, nil
}

// ExportCourseGrades renders the grade report of a course as CSV or PDF.
func (s *GradeService) ExportCourseGrades(ctx context.Context, courseID, format string) (*GradeExport, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	grades, err := s.grades.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course grades")
	}

	table := export.Table{
		Title:   fmt.Sprintf("%s grade report", course.Name),
		Headers: []string{"Student", "Email", "Marks", "Grade", "Assigned"},
	}
	for _, g := range grades {
		table.Rows = append(table.Rows, []string{
			g.StudentName,
			g.StudentEmail,
			strconv.Itoa(g.Marks),
			g.LetterGrade,
			g.AssignedAt.Format("2006-01-02"),
		})
	}

	switch format {
	case "csv", "":
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &GradeExport{
			FileName:    fmt.Sprintf("grades-%s.csv", courseID),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case "pdf":
		content, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &GradeExport{
			FileName:    fmt.Sprintf("grades-%s.pdf", courseID),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
