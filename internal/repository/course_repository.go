package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/gradebook-api/internal/models"
)

// CourseRepository handles persistence of courses and their enrollments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, name, description, semester, teacher_id, created_at, updated_at)
        VALUES (:id, :name, :description, :semester, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, description, semester, teacher_id, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses matching the filter, each with the teacher's name
// resolved, ordered by insertion.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error) {
	base := `FROM courses c
LEFT JOIN users t ON t.id = c.teacher_id`
	clause := " WHERE 1=1"
	var args []interface{}

	if filter.TeacherID != "" {
		clause += fmt.Sprintf(" AND c.teacher_id = $%d", len(args)+1)
		args = append(args, filter.TeacherID)
	}
	if filter.Semester != "" {
		clause += fmt.Sprintf(" AND c.semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.name, c.description, c.semester, c.teacher_id, c.created_at, c.updated_at,
        COALESCE(t.name, '') AS teacher_name
        %s ORDER BY c.created_at ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var courses []models.CourseSummary
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindDetailByID returns a course with the teacher's name resolved.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	const query = `SELECT c.id, c.name, c.description, c.semester, c.teacher_id, c.created_at, c.updated_at,
        COALESCE(t.name, '') AS teacher_name
        FROM courses c
        LEFT JOIN users t ON t.id = c.teacher_id
        WHERE c.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update persists the mutable fields of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, description = :description, semester = :semester, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course record. Enrollment rows cascade via the schema.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// Enroll appends a student to a course if not already present. The insert
// is conditional at the database so two concurrent enrollments of the same
// student cannot both succeed; the returned bool is false when the student
// was already enrolled.
func (r *CourseRepository) Enroll(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `INSERT INTO course_enrollments (id, course_id, student_id, enrolled_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (course_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, uuid.NewString(), courseID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("enroll student: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll student rows affected: %w", err)
	}
	return inserted > 0, nil
}

// ListEnrolled returns the enrolled students of a course with name and
// email resolved, in enrollment order.
func (r *CourseRepository) ListEnrolled(ctx context.Context, courseID string) ([]models.CourseMember, error) {
	const query = `SELECT u.id, u.name, u.email, e.enrolled_at
        FROM course_enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY e.enrolled_at ASC`
	var members []models.CourseMember
	if err := r.db.SelectContext(ctx, &members, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return members, nil
}

// IsEnrolled reports whether the student is enrolled in the course.
func (r *CourseRepository) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM course_enrollments WHERE course_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}
