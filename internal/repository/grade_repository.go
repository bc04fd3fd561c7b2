package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/gradebook-api/internal/models"
)

// GradeRepository handles persistence of the append-only grade ledger.
// There is deliberately no update or delete method.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a new grade record.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.AssignedAt.IsZero() {
		grade.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grades (id, student_id, course_id, marks, letter_grade, comments, assigned_at)
        VALUES (:id, :student_id, :course_id, :marks, :letter_grade, :comments, :assigned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// ListByStudent returns all grades for a student with course names resolved.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentGrade, error) {
	const query = `SELECT g.id, g.student_id, g.course_id, g.marks, g.letter_grade, g.comments, g.assigned_at,
        COALESCE(c.name, '') AS course_name
        FROM grades g
        LEFT JOIN courses c ON c.id = g.course_id
        WHERE g.student_id = $1
        ORDER BY g.assigned_at ASC`
	var grades []models.StudentGrade
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// ListByCourse returns all grades for a course with student identity resolved.
func (r *GradeRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseGrade, error) {
	const query = `SELECT g.id, g.student_id, g.course_id, g.marks, g.letter_grade, g.comments, g.assigned_at,
        COALESCE(u.name, '') AS student_name, COALESCE(u.email, '') AS student_email
        FROM grades g
        LEFT JOIN users u ON u.id = g.student_id
        WHERE g.course_id = $1
        ORDER BY g.assigned_at ASC`
	var grades []models.CourseGrade
	if err := r.db.SelectContext(ctx, &grades, query, courseID); err != nil {
		return nil, fmt.Errorf("list course grades: %w", err)
	}
	return grades, nil
}

// CountByCourse returns how many grade rows reference the course.
func (r *GradeRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM grades WHERE course_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, courseID); err != nil {
		return 0, fmt.Errorf("count course grades: %w", err)
	}
	return total, nil
}
