package models

import "time"

// PostType discriminates manual posts from artifact-emitted ones. The type
// selects the table LinkedEntityID points into; the reference is weak and
// never an ownership link.
type PostType string

const (
	PostGeneral    PostType = "general"
	PostExam       PostType = "exam"
	PostAssignment PostType = "assignment"
	PostProject    PostType = "project"
	PostResource   PostType = "resource"
)

// ArtifactKind maps an artifact-backed post type to its table tag.
func (t PostType) ArtifactKind() (ArtifactKind, bool) {
	switch t {
	case PostExam:
		return ArtifactExam, true
	case PostAssignment:
		return ArtifactAssignment, true
	case PostProject:
		return ArtifactProject, true
	}
	return "", false
}

// Post is one feed entry.
type Post struct {
	ID                  string         `db:"id" json:"id"`
	AuthorID            string         `db:"author_id" json:"author_id"`
	Content             string         `db:"content" json:"content"`
	Type                PostType       `db:"type" json:"type"`
	LinkedEntityID      *string        `db:"linked_entity_id" json:"linked_entity_id,omitempty"`
	CurriculumSubjectID *string        `db:"curriculum_subject_id" json:"curriculum_subject_id,omitempty"`
	Attachments         AttachmentList `db:"attachments" json:"attachments"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// Hashtag is a shared label; Name is stored normalized (lowercase, no '#').
// Hashtags survive deletion of every post carrying them.
type Hashtag struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// HashtagCount ranks hashtags by usage.
type HashtagCount struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	PostCount int    `db:"post_count" json:"post_count"`
}

// PostFilter captures feed listing criteria; all set filters are ANDed.
type PostFilter struct {
	Search              string
	Hashtag             string
	AuthorID            string
	Type                PostType
	CurriculumSubjectID string
	Page                int
	PageSize            int
}

// PostDetail is a fully dereferenced feed entry.
type PostDetail struct {
	Post
	Author         PublicUser    `json:"author"`
	AuthorName     string        `db:"author_name" json:"-"`
	AuthorRole     UserRole      `db:"author_role" json:"-"`
	SubjectName    *string       `json:"subject_name,omitempty"`
	LinkedEntity   *LinkedEntity `json:"linked_entity,omitempty"`
	Hashtags       []Hashtag     `json:"hashtags"`
	LikeCount      int           `json:"like_count"`
	CommentCount   int           `json:"comment_count"`
	HighlightCount int           `json:"highlight_count"`
	HasLiked       bool          `json:"has_liked"`
}
