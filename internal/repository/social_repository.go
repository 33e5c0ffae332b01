package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Julius266/proyecto-final/internal/models"
)

// ErrDuplicateAnnotation reports a second like or highlight by the same user
// on the same post. The unique constraints are the backstop.
var ErrDuplicateAnnotation = errors.New("annotation already exists")

// SocialRepository persists the per-post annotations: likes, comments and
// teacher highlights.
type SocialRepository struct {
	db *sqlx.DB
}

// NewSocialRepository constructs the repository.
func NewSocialRepository(db *sqlx.DB) *SocialRepository {
	return &SocialRepository{db: db}
}

// CreateLike records a like; at most one per (post, user).
func (r *SocialRepository) CreateLike(ctx context.Context, like *models.Like) error {
	if like.ID == "" {
		like.ID = uuid.NewString()
	}
	like.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO likes (id, post_id, user_id, created_at)
        VALUES (:id, :post_id, :user_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, like); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAnnotation
		}
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

// DeleteLike removes a user's like from a post.
func (r *SocialRepository) DeleteLike(ctx context.Context, postID, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListLikes returns the likes on a post with liker names.
func (r *SocialRepository) ListLikes(ctx context.Context, postID string) ([]models.LikeDetail, error) {
	const query = `SELECT l.id, l.post_id, l.user_id, l.created_at, u.full_name AS user_name
        FROM likes l JOIN users u ON u.id = l.user_id
        WHERE l.post_id = $1 ORDER BY l.created_at DESC`
	var likes []models.LikeDetail
	if err := r.db.SelectContext(ctx, &likes, query, postID); err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	return likes, nil
}

// CreateComment records a comment on a post.
func (r *SocialRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO comments (id, post_id, user_id, content, created_at)
        VALUES (:id, :post_id, :user_id, :content, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// FindCommentByID returns a comment by its ID.
func (r *SocialRepository) FindCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	const query = `SELECT id, post_id, user_id, content, created_at FROM comments WHERE id = $1`
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment.
func (r *SocialRepository) DeleteComment(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListComments returns the comments on a post oldest first.
func (r *SocialRepository) ListComments(ctx context.Context, postID string) ([]models.CommentDetail, error) {
	const query = `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at,
        u.full_name AS user_name, u.role AS user_role
        FROM comments c JOIN users u ON u.id = c.user_id
        WHERE c.post_id = $1 ORDER BY c.created_at ASC, c.id ASC`
	var comments []models.CommentDetail
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// CreateHighlight records a teacher highlight; at most one per (post,
// teacher).
func (r *SocialRepository) CreateHighlight(ctx context.Context, highlight *models.Highlight) error {
	if highlight.ID == "" {
		highlight.ID = uuid.NewString()
	}
	highlight.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO highlights (id, post_id, teacher_id, comment, created_at)
        VALUES (:id, :post_id, :teacher_id, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, highlight); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAnnotation
		}
		return fmt.Errorf("create highlight: %w", err)
	}
	return nil
}

// DeleteHighlight removes a teacher's highlight from a post.
func (r *SocialRepository) DeleteHighlight(ctx context.Context, postID, teacherID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM highlights WHERE post_id = $1 AND teacher_id = $2`, postID, teacherID)
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListHighlights returns the highlights on a post with teacher names.
func (r *SocialRepository) ListHighlights(ctx context.Context, postID string) ([]models.HighlightDetail, error) {
	const query = `SELECT h.id, h.post_id, h.teacher_id, h.comment, h.created_at, u.full_name AS teacher_name
        FROM highlights h JOIN users u ON u.id = h.teacher_id
        WHERE h.post_id = $1 ORDER BY h.created_at DESC`
	var highlights []models.HighlightDetail
	if err := r.db.SelectContext(ctx, &highlights, query, postID); err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	return highlights, nil
}

// ListHighlightsByTeacher returns everything one teacher has highlighted,
// newest first.
func (r *SocialRepository) ListHighlightsByTeacher(ctx context.Context, teacherID string) ([]models.HighlightDetail, error) {
	const query = `SELECT h.id, h.post_id, h.teacher_id, h.comment, h.created_at, u.full_name AS teacher_name
        FROM highlights h JOIN users u ON u.id = h.teacher_id
        WHERE h.teacher_id = $1 ORDER BY h.created_at DESC`
	var highlights []models.HighlightDetail
	if err := r.db.SelectContext(ctx, &highlights, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher highlights: %w", err)
	}
	return highlights, nil
}

// LikeCounts aggregates like totals for a post batch in one round trip.
func (r *SocialRepository) LikeCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	return r.countByPost(ctx, "likes", postIDs)
}

// CommentCounts aggregates comment totals for a post batch.
func (r *SocialRepository) CommentCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	return r.countByPost(ctx, "comments", postIDs)
}

// HighlightCounts aggregates highlight totals for a post batch.
func (r *SocialRepository) HighlightCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	return r.countByPost(ctx, "highlights", postIDs)
}

func (r *SocialRepository) countByPost(ctx context.Context, table string, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	query, args := inClause(`SELECT post_id, COUNT(*) FROM `+table+` WHERE post_id IN (%s) GROUP BY post_id`, postIDs)
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var postID string
		var count int
		if err := rows.Scan(&postID, &count); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", table, err)
		}
		counts[postID] = count
	}
	return counts, nil
}

// LikedSet reports which posts of a batch the viewer has liked.
func (r *SocialRepository) LikedSet(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}
	placeholders := make([]string, len(postIDs))
	args := make([]interface{}, 0, len(postIDs)+1)
	args = append(args, userID)
	for i, id := range postIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT post_id FROM likes WHERE user_id = $1 AND post_id IN (%s)`,
		strings.Join(placeholders, ","))
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("load liked set: %w", err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
