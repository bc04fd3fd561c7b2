package models

import "time"

// Course represents a course owned by a teacher.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Semester    *string   `db:"semester" json:"semester,omitempty"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseSummary enriches Course with the teacher's display name for listings.
type CourseSummary struct {
	Course
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// CourseDetail enriches Course with teacher info and the enrolled roster.
type CourseDetail struct {
	Course
	TeacherName      string         `db:"teacher_name" json:"teacher_name"`
	EnrolledStudents []CourseMember `json:"enrolled_students"`
}

// CourseMember is an enrolled student as exposed on a course detail.
type CourseMember struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	TeacherID string
	Semester  string
	Page      int
	PageSize  int
}
