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

// ArtifactRepository persists exams, assignments and projects. The three
// tables share one shape, so the kind selects the table and the queries are
// built once.
type ArtifactRepository struct {
	db *sqlx.DB
}

// NewArtifactRepository constructs the repository.
func NewArtifactRepository(db *sqlx.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

func artifactTable(kind models.ArtifactKind) string {
	switch kind {
	case models.ArtifactExam:
		return "exams"
	case models.ArtifactAssignment:
		return "assignments"
	case models.ArtifactProject:
		return "projects"
	}
	return ""
}

func postTypeFor(kind models.ArtifactKind) models.PostType {
	switch kind {
	case models.ArtifactExam:
		return models.PostExam
	case models.ArtifactAssignment:
		return models.PostAssignment
	case models.ArtifactProject:
		return models.PostProject
	}
	return models.PostGeneral
}

// CreateWithPost inserts the artifact and its emitted feed post in one
// transaction. The post keeps only a weak reference; deleting the artifact
// later leaves the post in place.
func (r *ArtifactRepository) CreateWithPost(ctx context.Context, kind models.ArtifactKind, artifact *models.Artifact, content string) (*models.Post, error) {
	table := artifactTable(kind)
	if table == "" {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	artifact.CreatedAt = now
	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, curriculum_subject_id, title, description, date, attachments, created_at)
        VALUES (:id, :user_id, :curriculum_subject_id, :title, :description, :date, :attachments, :created_at)`, table)
	if _, err := tx.NamedExecContext(ctx, query, artifact); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}

	post := &models.Post{
		ID:                  uuid.NewString(),
		AuthorID:            artifact.UserID,
		Content:             content,
		Type:                postTypeFor(kind),
		LinkedEntityID:      &artifact.ID,
		CurriculumSubjectID: &artifact.CurriculumSubjectID,
		Attachments:         artifact.Attachments,
		CreatedAt:           now,
	}
	const postQuery = `INSERT INTO posts (id, author_id, content, type, linked_entity_id, curriculum_subject_id, attachments, created_at)
        VALUES (:id, :author_id, :content, :type, :linked_entity_id, :curriculum_subject_id, :attachments, :created_at)`
	if _, err := tx.NamedExecContext(ctx, postQuery, post); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("emit %s post: %w", kind, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s create: %w", kind, err)
	}
	return post, nil
}

// FindByID returns one artifact of the given kind.
func (r *ArtifactRepository) FindByID(ctx context.Context, kind models.ArtifactKind, id string) (*models.Artifact, error) {
	table := artifactTable(kind)
	if table == "" {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
	query := fmt.Sprintf(`SELECT id, user_id, curriculum_subject_id, title, description, date, attachments, created_at
        FROM %s WHERE id = $1`, table)
	var artifact models.Artifact
	if err := r.db.GetContext(ctx, &artifact, query, id); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// ListByUser returns a user's artifacts of one kind, optionally scoped to a
// subject.
func (r *ArtifactRepository) ListByUser(ctx context.Context, kind models.ArtifactKind, userID, subjectID string) ([]models.Artifact, error) {
	table := artifactTable(kind)
	if table == "" {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
	query := fmt.Sprintf(`SELECT id, user_id, curriculum_subject_id, title, description, date, attachments, created_at
        FROM %s WHERE user_id = $1`, table)
	args := []interface{}{userID}
	if subjectID != "" {
		query += ` AND curriculum_subject_id = $2`
		args = append(args, subjectID)
	}
	query += ` ORDER BY date DESC, created_at DESC`
	var artifacts []models.Artifact
	if err := r.db.SelectContext(ctx, &artifacts, query, args...); err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	return artifacts, nil
}

// Update persists the mutable artifact fields.
func (r *ArtifactRepository) Update(ctx context.Context, kind models.ArtifactKind, artifact *models.Artifact) error {
	table := artifactTable(kind)
	if table == "" {
		return fmt.Errorf("unknown artifact kind %q", kind)
	}
	query := fmt.Sprintf(`UPDATE %s SET title = :title, description = :description, date = :date, attachments = :attachments
        WHERE id = :id`, table)
	result, err := r.db.NamedExecContext(ctx, query, artifact)
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the artifact. Emitted posts keep their weak reference and
// are rendered with the entity marked missing.
func (r *ArtifactRepository) Delete(ctx context.Context, kind models.ArtifactKind, id string) error {
	table := artifactTable(kind)
	if table == "" {
		return fmt.Errorf("unknown artifact kind %q", kind)
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FetchByIDs loads artifacts of one kind in a single round trip, keyed by
// id. IDs without a row are simply absent from the map.
func (r *ArtifactRepository) FetchByIDs(ctx context.Context, kind models.ArtifactKind, ids []string) (map[string]*models.Artifact, error) {
	table := artifactTable(kind)
	if table == "" {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
	byID := make(map[string]*models.Artifact, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, user_id, curriculum_subject_id, title, description, date, attachments, created_at
        FROM %s WHERE id IN (%s)`, table, strings.Join(placeholders, ","))
	var artifacts []models.Artifact
	if err := r.db.SelectContext(ctx, &artifacts, query, args...); err != nil {
		return nil, fmt.Errorf("fetch %ss: %w", kind, err)
	}
	for i := range artifacts {
		byID[artifacts[i].ID] = &artifacts[i]
	}
	return byID, nil
}
