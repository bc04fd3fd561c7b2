// Package policy holds the authorization rules as pure predicates. Every
// reading or mutating operation consults these before touching storage;
// the functions have no side effects and never hit the database.
package policy

import "github.com/campusworks/gradebook-api/internal/models"

// CanManageUsers permits user creation, update, deletion and listing.
func CanManageUsers(role models.UserRole) bool {
	return role == models.RoleAdmin
}

// CanCreateCourse permits course creation.
func CanCreateCourse(role models.UserRole) bool {
	return role == models.RoleTeacher || role == models.RoleAdmin
}

// CanUpdateCourse permits course field updates and teacher reassignment.
func CanUpdateCourse(role models.UserRole) bool {
	return role == models.RoleAdmin
}

// CanDeleteCourse permits course deletion.
func CanDeleteCourse(role models.UserRole) bool {
	return role == models.RoleAdmin
}

// CanEnroll permits enrollment mutation on a given course. Teachers may
// only touch their own courses; admins may touch any.
func CanEnroll(role models.UserRole, actorID, courseTeacherID string) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return actorID == courseTeacherID
	}
	return false
}

// CanAddGrade permits issuing a grade.
func CanAddGrade(role models.UserRole) bool {
	return role == models.RoleTeacher
}

// CanReadStudentGrades permits reading a student's grade history. A
// student may only read their own.
func CanReadStudentGrades(role models.UserRole, actorID, studentID string) bool {
	switch role {
	case models.RoleAdmin, models.RoleTeacher:
		return true
	case models.RoleStudent:
		return actorID == studentID
	}
	return false
}

// CanReadCourseGrades permits reading every grade issued for a course.
func CanReadCourseGrades(role models.UserRole) bool {
	return role == models.RoleTeacher || role == models.RoleAdmin
}

// ResolveCourseTeacher decides which teacher a new course is assigned to.
// A teacher actor always owns the course they create, whatever teacher id
// the request carried. An admin may name any teacher and defaults to
// themselves when the request names none.
func ResolveCourseTeacher(role models.UserRole, actorID, requestedTeacherID string) string {
	if role == models.RoleAdmin && requestedTeacherID != "" {
		return requestedTeacherID
	}
	return actorID
}
