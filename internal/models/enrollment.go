package models

import "time"

// TeacherSubject records the teacher of record for a curriculum subject.
// A partial unique index on (curriculum_subject_id) WHERE active guarantees
// at most one active claim per subject.
type TeacherSubject struct {
	ID                  string    `db:"id" json:"id"`
	TeacherID           string    `db:"teacher_id" json:"teacher_id"`
	CurriculumSubjectID string    `db:"curriculum_subject_id" json:"curriculum_subject_id"`
	Active              bool      `db:"active" json:"active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// StudentTeacherSubject is the enrollment edge between a student and the
// teacher of record for one curriculum subject. TeacherID stays nil until a
// teacher claims the subject; the backfill sweep sets it and it is never
// cleared afterwards. A partial unique index on (student_id,
// curriculum_subject_id) WHERE is_active keeps one live row per pair.
// Lifecycle: created -> active -> completed; completed rows are immutable
// and a retake becomes a new row (is_dragged).
type StudentTeacherSubject struct {
	ID                  string     `db:"id" json:"id"`
	StudentID           string     `db:"student_id" json:"student_id"`
	TeacherID           *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	CurriculumSubjectID string     `db:"curriculum_subject_id" json:"curriculum_subject_id"`
	Semester            int        `db:"semester" json:"semester"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	IsDragged           bool       `db:"is_dragged" json:"is_dragged"`
	CompletedAt         *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches the enrollment edge with display names.
type EnrollmentDetail struct {
	StudentTeacherSubject
	SubjectName     string  `db:"subject_name" json:"subject_name"`
	SubjectSemester int     `db:"subject_semester" json:"subject_semester"`
	TeacherName     *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// TaughtSubject pairs a teacher's claim with its roster size.
type TaughtSubject struct {
	TeacherSubject
	SubjectName  string `db:"subject_name" json:"subject_name"`
	Semester     int    `db:"semester" json:"semester"`
	CurriculumID string `db:"curriculum_id" json:"curriculum_id"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// SubjectMatch is the unit fed to the matching primitive during onboarding.
type SubjectMatch struct {
	CurriculumSubjectID string
	Semester            int
	IsDragged           bool
}
