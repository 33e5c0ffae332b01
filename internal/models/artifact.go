package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ArtifactKind discriminates the three owned academic record tables.
type ArtifactKind string

const (
	ArtifactExam       ArtifactKind = "exam"
	ArtifactAssignment ArtifactKind = "assignment"
	ArtifactProject    ArtifactKind = "project"
)

// Attachment references a binary hosted by the object-storage collaborator.
type Attachment struct {
	URL        string    `json:"url"`
	StorageID  string    `json:"storage_id"`
	Filename   string    `json:"filename"`
	Kind       string    `json:"kind"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// AttachmentList maps the JSONB attachments column.
type AttachmentList []Attachment

// Value implements driver.Valuer.
func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *AttachmentList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// Artifact is the shared shape of exams, assignments and projects.
// Date holds the occurrence date for exams and the due date otherwise.
type Artifact struct {
	ID                  string         `db:"id" json:"id"`
	UserID              string         `db:"user_id" json:"user_id"`
	CurriculumSubjectID string         `db:"curriculum_subject_id" json:"curriculum_subject_id"`
	Title               string         `db:"title" json:"title"`
	Description         *string        `db:"description" json:"description,omitempty"`
	Date                time.Time      `db:"date" json:"date"`
	Attachments         AttachmentList `db:"attachments" json:"attachments"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// LinkedEntity is the tagged union resolved from a post's weak reference.
// Exactly one of the pointers is set; a dangling reference leaves all nil
// and Missing true.
type LinkedEntity struct {
	Kind       ArtifactKind `json:"kind"`
	Exam       *Artifact    `json:"exam,omitempty"`
	Assignment *Artifact    `json:"assignment,omitempty"`
	Project    *Artifact    `json:"project,omitempty"`
	Missing    bool         `json:"missing,omitempty"`
}

// Artifact returns whichever variant is populated.
func (l *LinkedEntity) Artifact() *Artifact {
	if l == nil {
		return nil
	}
	switch l.Kind {
	case ArtifactExam:
		return l.Exam
	case ArtifactAssignment:
		return l.Assignment
	case ArtifactProject:
		return l.Project
	}
	return nil
}
