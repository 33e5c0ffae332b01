package models

import "time"

// Like is unique per (post, user).
type Like struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LikeDetail enriches a like with the liker's display data.
type LikeDetail struct {
	Like
	UserName string `db:"user_name" json:"user_name"`
}

// Comment is owned by its post and cascades with it.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CommentDetail enriches a comment with the author's display data.
type CommentDetail struct {
	Comment
	UserName string   `db:"user_name" json:"user_name"`
	UserRole UserRole `db:"user_role" json:"user_role"`
}

// Highlight marks a post as noteworthy; unique per (post, teacher) and
// reserved to teacher accounts.
type Highlight struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HighlightDetail enriches a highlight with the teacher's display data.
type HighlightDetail struct {
	Highlight
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}
