package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Julius266/proyecto-final/internal/models"
)

// UserRepository handles persistence of user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists a new user account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, email, password_hash, full_name, role, profile_completed, profile_image_url, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :full_name, :role, :profile_completed, :profile_image_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID returns a user by its ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, role, profile_completed, profile_image_url, created_at, updated_at
        FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns a user by its unique email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, role, profile_completed, profile_image_url, created_at, updated_at
        FROM users WHERE email = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail checks email uniqueness before registration.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE email = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check user email: %w", err)
	}
	return true, nil
}

// UpdatePassword rotates the stored credential hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

// UpdateProfileImage stores the object-store reference for the avatar.
func (r *UserRepository) UpdateProfileImage(ctx context.Context, id, imageURL string) error {
	const query = `UPDATE users SET profile_image_url = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, imageURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("update profile image: %w", err)
	}
	return nil
}

// ListTeachers returns completed teacher accounts for onboarding pickers.
func (r *UserRepository) ListTeachers(ctx context.Context) ([]models.PublicUser, error) {
	const query = `SELECT id, full_name, role, profile_image_url FROM users
        WHERE role = $1 AND profile_completed = true ORDER BY full_name ASC`
	var teachers []models.PublicUser
	if err := r.db.SelectContext(ctx, &teachers, query, models.RoleTeacher); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// Delete removes a user and all social content it owns in one transaction.
// Enrollment rows are kept for the counterpart's history.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	statements := []string{
		`DELETE FROM likes WHERE user_id = $1`,
		`DELETE FROM comments WHERE user_id = $1`,
		`DELETE FROM highlights WHERE teacher_id = $1`,
		`DELETE FROM post_hashtags WHERE post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
		`DELETE FROM likes WHERE post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
		`DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
		`DELETE FROM highlights WHERE post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
		`DELETE FROM posts WHERE author_id = $1`,
		`DELETE FROM exams WHERE user_id = $1`,
		`DELETE FROM assignments WHERE user_id = $1`,
		`DELETE FROM projects WHERE user_id = $1`,
		`DELETE FROM student_profiles WHERE user_id = $1`,
		`DELETE FROM teacher_profiles WHERE user_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("cascade user delete: %w", err)
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("check deleted user rows: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user delete: %w", err)
	}
	return nil
}
