package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusworks/gradebook-api/internal/models"
)

func TestCanManageUsers(t *testing.T) {
	assert.True(t, CanManageUsers(models.RoleAdmin))
	assert.False(t, CanManageUsers(models.RoleTeacher))
	assert.False(t, CanManageUsers(models.RoleStudent))
}

func TestCanEnroll(t *testing.T) {
	cases := []struct {
		name           string
		role           models.UserRole
		actorID        string
		courseTeacher  string
		expect         bool
	}{
		{"admin any course", models.RoleAdmin, "a1", "t9", true},
		{"teacher own course", models.RoleTeacher, "t1", "t1", true},
		{"teacher other course", models.RoleTeacher, "t1", "t2", false},
		{"student", models.RoleStudent, "s1", "t1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, CanEnroll(tc.role, tc.actorID, tc.courseTeacher))
		})
	}
}

func TestCanReadStudentGrades(t *testing.T) {
	cases := []struct {
		name      string
		role      models.UserRole
		actorID   string
		studentID string
		expect    bool
	}{
		{"student own grades", models.RoleStudent, "s1", "s1", true},
		{"student other grades", models.RoleStudent, "s1", "s2", false},
		{"teacher any grades", models.RoleTeacher, "t1", "s2", true},
		{"admin any grades", models.RoleAdmin, "a1", "s2", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, CanReadStudentGrades(tc.role, tc.actorID, tc.studentID))
		})
	}
}

func TestResolveCourseTeacher(t *testing.T) {
	// a teacher always ends up owning the course they create
	assert.Equal(t, "t1", ResolveCourseTeacher(models.RoleTeacher, "t1", ""))
	assert.Equal(t, "t1", ResolveCourseTeacher(models.RoleTeacher, "t1", "t99"))

	// an admin may name a teacher, defaulting to themselves
	assert.Equal(t, "t99", ResolveCourseTeacher(models.RoleAdmin, "a1", "t99"))
	assert.Equal(t, "a1", ResolveCourseTeacher(models.RoleAdmin, "a1", ""))
}

func TestCanAddGrade(t *testing.T) {
	assert.True(t, CanAddGrade(models.RoleTeacher))
	assert.False(t, CanAddGrade(models.RoleAdmin))
	assert.False(t, CanAddGrade(models.RoleStudent))
}
