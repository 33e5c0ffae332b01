package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Julius266/proyecto-final/internal/models"
)

// ProfileRepository reads and updates the role-specific profile rows.
// Creation happens inside the onboarding transactions owned by
// EnrollmentRepository.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindStudentProfile returns the student profile for a user.
func (r *ProfileRepository) FindStudentProfile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	const query = `SELECT id, user_id, curriculum_id, current_semester, academic_status, bio, academic_interests, dragged_subjects, semester_history, created_at, updated_at
        FROM student_profiles WHERE user_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindTeacherProfile returns the teacher profile for a user.
func (r *ProfileRepository) FindTeacherProfile(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	const query = `SELECT id, user_id, curriculum_ids, semester_ids, institutional_email, bio, visibility, created_at
        FROM teacher_profiles WHERE user_id = $1`
	var profile models.TeacherProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateStudentProfile persists the mutable student profile fields.
func (r *ProfileRepository) UpdateStudentProfile(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles
        SET academic_status = :academic_status, bio = :bio, academic_interests = :academic_interests, dragged_subjects = :dragged_subjects, updated_at = :updated_at
        WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}

// UpdateTeacherProfile persists the mutable teacher profile fields.
func (r *ProfileRepository) UpdateTeacherProfile(ctx context.Context, profile *models.TeacherProfile) error {
	const query = `UPDATE teacher_profiles
        SET institutional_email = :institutional_email, bio = :bio, visibility = :visibility
        WHERE user_id = :user_id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update teacher profile: %w", err)
	}
	return nil
}
