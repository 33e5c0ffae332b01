package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Julius266/proyecto-final/internal/models"
)

// PostRepository persists feed posts and the hashtag vocabulary.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository constructs the repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// CreateWithHashtags inserts the post and attaches its hashtags in one
// transaction. Hashtags are found-or-created by normalized name, so
// concurrent posts converge on the same row.
func (r *PostRepository) CreateWithHashtags(ctx context.Context, post *models.Post, hashtagNames []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	const postQuery = `INSERT INTO posts (id, author_id, content, type, linked_entity_id, curriculum_subject_id, attachments, created_at)
        VALUES (:id, :author_id, :content, :type, :linked_entity_id, :curriculum_subject_id, :attachments, :created_at)`
	if _, err := tx.NamedExecContext(ctx, postQuery, post); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create post: %w", err)
	}

	// DO UPDATE instead of DO NOTHING so RETURNING always yields the row.
	const hashtagQuery = `INSERT INTO hashtags (id, name) VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`
	const linkQuery = `INSERT INTO post_hashtags (post_id, hashtag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, name := range hashtagNames {
		var hashtagID string
		if err := tx.GetContext(ctx, &hashtagID, hashtagQuery, uuid.NewString(), name); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert hashtag: %w", err)
		}
		if _, err := tx.ExecContext(ctx, linkQuery, post.ID, hashtagID); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("link hashtag: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit post create: %w", err)
	}
	return nil
}

// FindByID returns a post with its author's display fields.
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.PostDetail, error) {
	const query = `SELECT p.id, p.author_id, p.content, p.type, p.linked_entity_id, p.curriculum_subject_id, p.attachments, p.created_at,
        u.full_name AS author_name, u.role AS author_role
        FROM posts p JOIN users u ON u.id = p.author_id WHERE p.id = $1`
	var detail models.PostDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// likeEscaper neutralizes the LIKE metacharacters so a search term matches
// literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildPostFilter(filter models.PostFilter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	if filter.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("p.content ILIKE $%d", len(args)))
	}
	if filter.Hashtag != "" {
		args = append(args, filter.Hashtag)
		conditions = append(conditions, fmt.Sprintf(`EXISTS (SELECT 1 FROM post_hashtags ph JOIN hashtags h ON h.id = ph.hashtag_id
            WHERE ph.post_id = p.id AND h.name = $%d)`, len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("p.type = $%d", len(args)))
	}
	if filter.CurriculumSubjectID != "" {
		args = append(args, filter.CurriculumSubjectID)
		conditions = append(conditions, fmt.Sprintf("p.curriculum_subject_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// List returns a page of posts matching the filter, newest first with id as
// the tie break, plus the total match count for pagination.
func (r *PostRepository) List(ctx context.Context, filter models.PostFilter) ([]models.PostDetail, int, error) {
	where, args := buildPostFilter(filter)

	countQuery := `SELECT COUNT(*) FROM posts p` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	query := `SELECT p.id, p.author_id, p.content, p.type, p.linked_entity_id, p.curriculum_subject_id, p.attachments, p.created_at,
        u.full_name AS author_name, u.role AS author_role
        FROM posts p JOIN users u ON u.id = p.author_id` + where
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var posts []models.PostDetail
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return posts, total, nil
}

// Delete removes a post and its owned annotations in one transaction.
// Hashtag rows stay; only the join rows go.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	statements := []string{
		`DELETE FROM post_hashtags WHERE post_id = $1`,
		`DELETE FROM likes WHERE post_id = $1`,
		`DELETE FROM comments WHERE post_id = $1`,
		`DELETE FROM highlights WHERE post_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("cascade post delete: %w", err)
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("check deleted post rows: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit post delete: %w", err)
	}
	return nil
}

// ListHashtags returns the vocabulary, optionally prefix-filtered.
func (r *PostRepository) ListHashtags(ctx context.Context, search string) ([]models.Hashtag, error) {
	query := `SELECT id, name FROM hashtags`
	args := []interface{}{}
	if search != "" {
		query += ` WHERE name LIKE $1`
		args = append(args, search+"%")
	}
	query += ` ORDER BY name ASC`
	var hashtags []models.Hashtag
	if err := r.db.SelectContext(ctx, &hashtags, query, args...); err != nil {
		return nil, fmt.Errorf("list hashtags: %w", err)
	}
	return hashtags, nil
}

// FindHashtagByName returns a hashtag by its normalized name.
func (r *PostRepository) FindHashtagByName(ctx context.Context, name string) (*models.Hashtag, error) {
	var hashtag models.Hashtag
	if err := r.db.GetContext(ctx, &hashtag, `SELECT id, name FROM hashtags WHERE name = $1`, name); err != nil {
		return nil, err
	}
	return &hashtag, nil
}

// PopularHashtags ranks hashtags by post usage.
func (r *PostRepository) PopularHashtags(ctx context.Context, limit int) ([]models.HashtagCount, error) {
	const query = `SELECT h.id, h.name, COUNT(ph.post_id) AS post_count
        FROM hashtags h JOIN post_hashtags ph ON ph.hashtag_id = h.id
        GROUP BY h.id, h.name ORDER BY post_count DESC, h.name ASC LIMIT $1`
	var counts []models.HashtagCount
	if err := r.db.SelectContext(ctx, &counts, query, limit); err != nil {
		return nil, fmt.Errorf("rank hashtags: %w", err)
	}
	return counts, nil
}

// HashtagsForPosts loads the hashtags of a post batch in one round trip.
func (r *PostRepository) HashtagsForPosts(ctx context.Context, postIDs []string) (map[string][]models.Hashtag, error) {
	result := make(map[string][]models.Hashtag, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	query, args := inClause(`SELECT ph.post_id, h.id, h.name FROM post_hashtags ph
        JOIN hashtags h ON h.id = ph.hashtag_id WHERE ph.post_id IN (%s) ORDER BY h.name ASC`, postIDs)
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load post hashtags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var postID string
		var hashtag models.Hashtag
		if err := rows.Scan(&postID, &hashtag.ID, &hashtag.Name); err != nil {
			return nil, fmt.Errorf("scan post hashtag: %w", err)
		}
		result[postID] = append(result[postID], hashtag)
	}
	return result, nil
}

func inClause(format string, ids []string) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return fmt.Sprintf(format, strings.Join(placeholders, ",")), args
}
