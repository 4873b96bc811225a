package enrollment

import (
	"fmt"
	"time"
)

// Enrollment statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusDropped   = "dropped"
)

type (
	// Subject is a taught subject at a specific grade level.
	Subject struct {
		ID         string    `db:"id" json:"id"`
		Name       string    `db:"name" json:"name"`
		GradeLevel string    `db:"grade_level" json:"grade_level"`
		CreatedAt  time.Time `db:"created_at" json:"created_at"` // UTC
	}

	// Enrollment links a student to a subject for an academic year.
	Enrollment struct {
		ID           string    `db:"id" json:"id"`
		StudentID    string    `db:"student_id" json:"student_id"`
		SubjectID    string    `db:"subject_id" json:"subject_id"`
		AcademicYear string    `db:"academic_year" json:"academic_year"`
		Status       string    `db:"status" json:"status"`
		EnrolledAt   time.Time `db:"enrolled_at" json:"enrolled_at"` // UTC
	}
)

// canonicalSubjects is the fixed subject list per grade level. Every student at
// a grade is enrolled into exactly these subjects on account creation.
var canonicalSubjects = map[string][]string{
	"grade-1": {"Mathematics", "English", "Science", "Social Studies", "Art"},
	"grade-2": {"Mathematics", "English", "Science", "Social Studies", "Art"},
	"grade-3": {"Mathematics", "English", "Science", "Social Studies", "Art"},
	"grade-4": {"Mathematics", "English", "Science", "Social Studies", "ICT"},
	"grade-5": {"Mathematics", "English", "Science", "Social Studies", "ICT"},
	"grade-6": {"Mathematics", "English", "Science", "Social Studies", "ICT"},
	"grade-7": {"Mathematics", "English", "Science", "Social Studies", "ICT"},
	"grade-8": {"Mathematics", "English", "Science", "Social Studies", "ICT"},

	"grade-9":  {"Mathematics", "English", "Biology", "Chemistry", "Physics", "History", "Geography"},
	"grade-10": {"Mathematics", "English", "Biology", "Chemistry", "Physics", "History", "Geography"},
	"grade-11": {"Mathematics", "English", "Biology", "Chemistry", "Physics", "History", "Geography"},
	"grade-12": {"Mathematics", "English", "Biology", "Chemistry", "Physics", "History", "Geography"},
}

// CanonicalSubjects returns the fixed subject-name list for a grade level.
func CanonicalSubjects(gradeLevel string) ([]string, bool) {
	names, ok := canonicalSubjects[gradeLevel]
	return names, ok
}

// GradeLevels returns all known grade-level keys.
func GradeLevels() []string {
	grades := make([]string, 0, len(canonicalSubjects))
	for g := range canonicalSubjects {
		grades = append(grades, g)
	}
	return grades
}

// AcademicYear derives the "YYYY-YYYY+1" academic year from the calendar year at t.
func AcademicYear(t time.Time) string {
	y := t.Year()
	return fmt.Sprintf("%d-%d", y, y+1)
}
