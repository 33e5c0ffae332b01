package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Julius266/proyecto-final/internal/models"
)

// CurriculumRepository reads the curriculum catalog. The catalog is seeded
// once and treated as immutable reference data afterwards.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs the repository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// ListCurricula returns all active curricula.
func (r *CurriculumRepository) ListCurricula(ctx context.Context) ([]models.Curriculum, error) {
	const query = `SELECT id, name, university, career, total_semesters, active, created_at
        FROM curricula WHERE active = true ORDER BY name ASC`
	var curricula []models.Curriculum
	if err := r.db.SelectContext(ctx, &curricula, query); err != nil {
		return nil, fmt.Errorf("list curricula: %w", err)
	}
	return curricula, nil
}

// CountCurricula reports whether the catalog has been seeded.
func (r *CurriculumRepository) CountCurricula(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM curricula`); err != nil {
		return 0, fmt.Errorf("count curricula: %w", err)
	}
	return count, nil
}

// ListSubjects returns active subjects for a curriculum, optionally scoped
// to one semester.
func (r *CurriculumRepository) ListSubjects(ctx context.Context, curriculumID string, semester int) ([]models.CurriculumSubject, error) {
	query := `SELECT id, curriculum_id, name, code, semester, active, created_at
        FROM curriculum_subjects WHERE curriculum_id = $1 AND active = true`
	args := []interface{}{curriculumID}
	if semester > 0 {
		query += ` AND semester = $2`
		args = append(args, semester)
	}
	query += ` ORDER BY semester ASC, name ASC`
	var subjects []models.CurriculumSubject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list curriculum subjects: %w", err)
	}
	return subjects, nil
}

// FindSubjectByID returns a subject by its ID.
func (r *CurriculumRepository) FindSubjectByID(ctx context.Context, id string) (*models.CurriculumSubject, error) {
	const query = `SELECT id, curriculum_id, name, code, semester, active, created_at
        FROM curriculum_subjects WHERE id = $1`
	var subject models.CurriculumSubject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindSubjectsByIDs returns active subjects for the given ids.
func (r *CurriculumRepository) FindSubjectsByIDs(ctx context.Context, ids []string) ([]models.CurriculumSubject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, curriculum_id, name, code, semester, active, created_at
        FROM curriculum_subjects WHERE active = true AND id IN (%s)`, strings.Join(placeholders, ","))
	var subjects []models.CurriculumSubject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("find curriculum subjects: %w", err)
	}
	return subjects, nil
}

// SubjectNamesByIDs resolves display names for feed dereferencing in one
// round trip.
func (r *CurriculumRepository) SubjectNamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, name FROM curriculum_subjects WHERE id IN (%s)`, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve subject names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan subject name: %w", err)
		}
		names[id] = name
	}
	return names, nil
}

// SeedCurriculum inserts a curriculum with its subjects in one transaction.
func (r *CurriculumRepository) SeedCurriculum(ctx context.Context, curriculum *models.Curriculum, subjects []models.CurriculumSubject) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if curriculum.ID == "" {
		curriculum.ID = uuid.NewString()
	}
	curriculum.CreatedAt = now
	const curriculumQuery = `INSERT INTO curricula (id, name, university, career, total_semesters, active, created_at)
        VALUES (:id, :name, :university, :career, :total_semesters, :active, :created_at)`
	if _, err := tx.NamedExecContext(ctx, curriculumQuery, curriculum); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("seed curriculum: %w", err)
	}
	const subjectQuery = `INSERT INTO curriculum_subjects (id, curriculum_id, name, code, semester, active, created_at)
        VALUES (:id, :curriculum_id, :name, :code, :semester, :active, :created_at)`
	for i := range subjects {
		if subjects[i].ID == "" {
			subjects[i].ID = uuid.NewString()
		}
		subjects[i].CurriculumID = curriculum.ID
		subjects[i].CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, subjectQuery, subjects[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("seed curriculum subject: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit curriculum seed: %w", err)
	}
	return nil
}
