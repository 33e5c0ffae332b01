package models

import "time"

// Curriculum represents a study plan (malla curricular).
type Curriculum struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	University     string    `db:"university" json:"university"`
	Career         string    `db:"career" json:"career"`
	TotalSemesters int       `db:"total_semesters" json:"total_semesters"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CurriculumSubject is immutable reference data seeded once per curriculum.
type CurriculumSubject struct {
	ID           string    `db:"id" json:"id"`
	CurriculumID string    `db:"curriculum_id" json:"curriculum_id"`
	Name         string    `db:"name" json:"name"`
	Code         *string   `db:"code" json:"code,omitempty"`
	Semester     int       `db:"semester" json:"semester"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
