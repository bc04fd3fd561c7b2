package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/gradebook-api/internal/models"
	"github.com/campusworks/gradebook-api/internal/service"
	appErrors "github.com/campusworks/gradebook-api/pkg/errors"
	"github.com/campusworks/gradebook-api/pkg/response"
)

type gradeService interface {
	Add(ctx context.Context, actor *models.JWTClaims, req service.AddGradeRequest) (*models.Grade, error)
	StudentGrades(ctx context.Context, actor *models.JWTClaims, studentID string) ([]models.StudentGrade, error)
	CourseGrades(ctx context.Context, courseID string) ([]models.CourseGrade, error)
	ExportCourseGrades(ctx context.Context, courseID, format string) (*service.GradeExport, error)
}

// GradeHandler exposes the grade ledger endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Add godoc
// @Summary Issue grade
// @Description Marks must be within 0-100; the letter grade is derived
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.AddGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Add(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AddGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	grade, err := h.grades.Add(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, grade)
}

// StudentGrades godoc
// @Summary List a student's grades
// @Description Students may only request their own grades
// @Tags Grades
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades/student/{studentId} [get]
func (h *GradeHandler) StudentGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	grades, err := h.grades.StudentGrades(c.Request.Context(), claims, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grades, nil)
}

// CourseGrades godoc
// @Summary List a course's grades
// @Tags Grades
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades/course/{courseId} [get]
func (h *GradeHandler) CourseGrades(c *gin.Context) {
	grades, err := h.grades.CourseGrades(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grades, nil)
}

// ExportCourseGrades godoc
// @Summary Export a course grade report
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /grades/course/{courseId}/export [get]
func (h *GradeHandler) ExportCourseGrades(c *gin.Context) {
	report, err := h.grades.ExportCourseGrades(c.Request.Context(), c.Param("courseId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
