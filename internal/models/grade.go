package models

import "time"

// Grade is an issued grade record. Grades are append-only: once created
// there is no update or delete path.
type Grade struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Marks       int       `db:"marks" json:"marks"`
	LetterGrade string    `db:"letter_grade" json:"letter_grade"`
	Comments    *string   `db:"comments" json:"comments,omitempty"`
	AssignedAt  time.Time `db:"assigned_at" json:"assigned_at"`
}

// StudentGrade is a grade with its course name resolved, as returned when
// listing a student's grades.
type StudentGrade struct {
	Grade
	CourseName string `db:"course_name" json:"course_name"`
}

// CourseGrade is a grade with the student resolved, as returned when
// listing a course's grades.
type CourseGrade struct {
	Grade
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}
