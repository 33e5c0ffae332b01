package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AcademicStatus tracks whether the student is still enrolled.
type AcademicStatus string

const (
	AcademicStatusStudying  AcademicStatus = "studying"
	AcademicStatusGraduated AcademicStatus = "graduated"
)

// TeacherVisibility controls who can discover a teacher profile.
type TeacherVisibility string

const (
	VisibilityAllCareer    TeacherVisibility = "all_career"
	VisibilityOwnSemesters TeacherVisibility = "own_semesters"
)

// SemesterRecord is one archived semester in a student's history.
type SemesterRecord struct {
	Semester   int      `json:"semester"`
	Year       int      `json:"year"`
	SubjectIDs []string `json:"subject_ids"`
}

// SemesterHistory maps the append-only JSONB history column.
type SemesterHistory []SemesterRecord

// Value implements driver.Valuer.
func (h SemesterHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner.
func (h *SemesterHistory) Scan(src interface{}) error {
	return scanJSON(src, h)
}

// StudentProfile is the one-to-one academic profile of a student user.
type StudentProfile struct {
	ID                string          `db:"id" json:"id"`
	UserID            string          `db:"user_id" json:"user_id"`
	CurriculumID      string          `db:"curriculum_id" json:"curriculum_id"`
	CurrentSemester   int             `db:"current_semester" json:"current_semester"`
	AcademicStatus    AcademicStatus  `db:"academic_status" json:"academic_status"`
	Bio               *string         `db:"bio" json:"bio,omitempty"`
	AcademicInterests StringList      `db:"academic_interests" json:"academic_interests"`
	DraggedSubjects   IDList          `db:"dragged_subjects" json:"dragged_subjects"`
	SemesterHistory   SemesterHistory `db:"semester_history" json:"semester_history"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// TeacherProfile is the one-to-one profile of a teacher user.
// SemesterIDs is derived from the semesters of the claimed subjects.
type TeacherProfile struct {
	ID                 string            `db:"id" json:"id"`
	UserID             string            `db:"user_id" json:"user_id"`
	CurriculumIDs      IDList            `db:"curriculum_ids" json:"curriculum_ids"`
	SemesterIDs        IntList           `db:"semester_ids" json:"semester_ids"`
	InstitutionalEmail *string           `db:"institutional_email" json:"institutional_email,omitempty"`
	Bio                *string           `db:"bio" json:"bio,omitempty"`
	Visibility         TeacherVisibility `db:"visibility" json:"visibility"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
}
