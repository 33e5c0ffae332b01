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
	"github.com/lib/pq"

	"github.com/Julius266/proyecto-final/internal/models"
)

// ErrSubjectClaimed reports that another teacher already holds the active
// claim for a curriculum subject. The partial unique index on
// teacher_subjects(curriculum_subject_id) WHERE active is the backstop for
// concurrent claims.
var ErrSubjectClaimed = errors.New("subject already claimed by another teacher")

// ErrAlreadyEnrolled reports a second active enrollment for the same
// (student, subject) pair.
var ErrAlreadyEnrolled = errors.New("student already enrolled in subject")

// EnrollmentRepository owns the bipartite student/teacher relationship keyed
// through curriculum subjects. The multi-step invariants (onboarding, claim
// plus backfill, semester transition) are transactional here.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindActiveTeacherForSubject resolves the teacher of record, or nil when
// the subject is unclaimed.
func (r *EnrollmentRepository) FindActiveTeacherForSubject(ctx context.Context, subjectID string) (*models.TeacherSubject, error) {
	const query = `SELECT id, teacher_id, curriculum_subject_id, active, created_at
        FROM teacher_subjects WHERE curriculum_subject_id = $1 AND active = true`
	var ts models.TeacherSubject
	if err := r.db.GetContext(ctx, &ts, query, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find teacher for subject: %w", err)
	}
	return &ts, nil
}

// EnrollStudent executes student onboarding as one unit: the profile row,
// one enrollment edge per matched subject (teacher resolved inside the
// transaction), the role switch and the completion flag commit together or
// not at all.
func (r *EnrollmentRepository) EnrollStudent(ctx context.Context, profile *models.StudentProfile, matches []models.SubjectMatch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.CreatedAt = now
	profile.UpdatedAt = now
	const profileQuery = `INSERT INTO student_profiles (id, user_id, curriculum_id, current_semester, academic_status, bio, academic_interests, dragged_subjects, semester_history, created_at, updated_at)
        VALUES (:id, :user_id, :curriculum_id, :current_semester, :academic_status, :bio, :academic_interests, :dragged_subjects, :semester_history, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, profileQuery, profile); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create student profile: %w", err)
	}

	for _, match := range matches {
		if err := matchSubjectTx(ctx, tx, profile.UserID, match, now); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET role = $2, profile_completed = true, updated_at = $3 WHERE id = $1`,
		profile.UserID, models.RoleStudent, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("mark student profile complete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student onboarding: %w", err)
	}
	return nil
}

// matchSubjectTx is the matching primitive: look up the active teacher of
// record and create the enrollment edge, teacher id left null when the
// subject is unclaimed.
func matchSubjectTx(ctx context.Context, tx *sqlx.Tx, studentID string, match models.SubjectMatch, now time.Time) error {
	var teacherID *string
	var claimed string
	err := tx.GetContext(ctx, &claimed,
		`SELECT teacher_id FROM teacher_subjects WHERE curriculum_subject_id = $1 AND active = true`,
		match.CurriculumSubjectID)
	switch {
	case err == nil:
		teacherID = &claimed
	case err == sql.ErrNoRows:
		teacherID = nil
	default:
		return fmt.Errorf("resolve teacher for subject: %w", err)
	}

	row := models.StudentTeacherSubject{
		ID:                  uuid.NewString(),
		StudentID:           studentID,
		TeacherID:           teacherID,
		CurriculumSubjectID: match.CurriculumSubjectID,
		Semester:            match.Semester,
		IsActive:            true,
		IsDragged:           match.IsDragged,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	const query = `INSERT INTO student_teacher_subjects (id, student_id, teacher_id, curriculum_subject_id, semester, is_active, is_dragged, completed_at, created_at, updated_at)
        VALUES (:id, :student_id, :teacher_id, :curriculum_subject_id, :semester, :is_active, :is_dragged, :completed_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyEnrolled
		}
		return fmt.Errorf("create enrollment edge: %w", err)
	}
	return nil
}

// ClaimSubjectsAndBackfill executes teacher onboarding as one unit: the
// profile row, one active claim per subject, the backfill sweep over
// teacherless enrollment rows and the completion flag. A concurrent claim
// on any subject aborts the whole transaction with ErrSubjectClaimed.
func (r *EnrollmentRepository) ClaimSubjectsAndBackfill(ctx context.Context, profile *models.TeacherProfile, subjectIDs []string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.CreatedAt = now
	const profileQuery = `INSERT INTO teacher_profiles (id, user_id, curriculum_ids, semester_ids, institutional_email, bio, visibility, created_at)
        VALUES (:id, :user_id, :curriculum_ids, :semester_ids, :institutional_email, :bio, :visibility, :created_at)`
	if _, err := tx.NamedExecContext(ctx, profileQuery, profile); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("create teacher profile: %w", err)
	}

	const claimQuery = `INSERT INTO teacher_subjects (id, teacher_id, curriculum_subject_id, active, created_at)
        VALUES ($1, $2, $3, true, $4)`
	for _, subjectID := range subjectIDs {
		if _, err := tx.ExecContext(ctx, claimQuery, uuid.NewString(), profile.UserID, subjectID, now); err != nil {
			tx.Rollback() //nolint:errcheck
			if isUniqueViolation(err) {
				return 0, ErrSubjectClaimed
			}
			return 0, fmt.Errorf("claim subject: %w", err)
		}
	}

	backfilled := 0
	if len(subjectIDs) > 0 {
		placeholders := make([]string, len(subjectIDs))
		args := make([]interface{}, 0, len(subjectIDs)+2)
		args = append(args, profile.UserID, now)
		for i, id := range subjectIDs {
			placeholders[i] = fmt.Sprintf("$%d", i+3)
			args = append(args, id)
		}
		sweep := fmt.Sprintf(`UPDATE student_teacher_subjects SET teacher_id = $1, updated_at = $2
            WHERE teacher_id IS NULL AND curriculum_subject_id IN (%s)`, strings.Join(placeholders, ","))
		result, err := tx.ExecContext(ctx, sweep, args...)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, fmt.Errorf("backfill enrollments: %w", err)
		}
		if affected, err := result.RowsAffected(); err == nil {
			backfilled = int(affected)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET role = $2, profile_completed = true, updated_at = $3 WHERE id = $1`,
		profile.UserID, models.RoleTeacher, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("mark teacher profile complete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit teacher onboarding: %w", err)
	}
	return backfilled, nil
}

// TransitionSemester archives the student's active enrollment set and bumps
// the profile semester in one transaction. Rows never return to active; a
// retaken subject becomes a new row.
func (r *EnrollmentRepository) TransitionSemester(ctx context.Context, studentID string, newSemester int) (*models.SemesterRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	var profile models.StudentProfile
	const profileQuery = `SELECT id, user_id, curriculum_id, current_semester, academic_status, bio, academic_interests, dragged_subjects, semester_history, created_at, updated_at
        FROM student_profiles WHERE user_id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &profile, profileQuery, studentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}

	var subjectIDs []string
	if err := tx.SelectContext(ctx, &subjectIDs,
		`SELECT curriculum_subject_id FROM student_teacher_subjects
         WHERE student_id = $1 AND is_active = true ORDER BY created_at ASC`, studentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("snapshot active subjects: %w", err)
	}

	record := models.SemesterRecord{
		Semester:   profile.CurrentSemester,
		Year:       now.Year(),
		SubjectIDs: subjectIDs,
	}
	history := append(profile.SemesterHistory, record)

	if _, err := tx.ExecContext(ctx,
		`UPDATE student_teacher_subjects SET is_active = false, completed_at = $2, updated_at = $2
         WHERE student_id = $1 AND is_active = true`, studentID, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("archive active enrollments: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE student_profiles SET current_semester = $2, semester_history = $3, updated_at = $4 WHERE user_id = $1`,
		studentID, newSemester, history, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("advance profile semester: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit semester transition: %w", err)
	}
	return &record, nil
}

// CreateEnrollments matches additional subjects for an already-onboarded
// student, resolving the teacher of record per subject inside one
// transaction.
func (r *EnrollmentRepository) CreateEnrollments(ctx context.Context, studentID string, matches []models.SubjectMatch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, match := range matches {
		if err := matchSubjectTx(ctx, tx, studentID, match, now); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollments: %w", err)
	}
	return nil
}

// ListByStudent returns enrollment edges for a student with display names.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string, activeOnly bool) ([]models.EnrollmentDetail, error) {
	query := `SELECT sts.id, sts.student_id, sts.teacher_id, sts.curriculum_subject_id, sts.semester, sts.is_active, sts.is_dragged, sts.completed_at, sts.created_at, sts.updated_at,
        cs.name AS subject_name, cs.semester AS subject_semester, u.full_name AS teacher_name
        FROM student_teacher_subjects sts
        JOIN curriculum_subjects cs ON cs.id = sts.curriculum_subject_id
        LEFT JOIN users u ON u.id = sts.teacher_id
        WHERE sts.student_id = $1`
	if activeOnly {
		query += ` AND sts.is_active = true`
	}
	query += ` ORDER BY sts.created_at DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return details, nil
}

// ListTaughtSubjects returns a teacher's active claims with roster sizes.
func (r *EnrollmentRepository) ListTaughtSubjects(ctx context.Context, teacherID string) ([]models.TaughtSubject, error) {
	const query = `SELECT ts.id, ts.teacher_id, ts.curriculum_subject_id, ts.active, ts.created_at,
        cs.name AS subject_name, cs.semester AS semester, cs.curriculum_id AS curriculum_id,
        (SELECT COUNT(*) FROM student_teacher_subjects sts
         WHERE sts.curriculum_subject_id = ts.curriculum_subject_id AND sts.teacher_id = ts.teacher_id AND sts.is_active = true) AS student_count
        FROM teacher_subjects ts
        JOIN curriculum_subjects cs ON cs.id = ts.curriculum_subject_id
        WHERE ts.teacher_id = $1 AND ts.active = true
        ORDER BY cs.semester ASC, cs.name ASC`
	var subjects []models.TaughtSubject
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list taught subjects: %w", err)
	}
	return subjects, nil
}

// ListRosterForSubject returns the active students taught by a teacher for
// one subject.
func (r *EnrollmentRepository) ListRosterForSubject(ctx context.Context, teacherID, subjectID string) ([]models.PublicUser, error) {
	const query = `SELECT u.id, u.full_name, u.role, u.profile_image_url
        FROM student_teacher_subjects sts
        JOIN users u ON u.id = sts.student_id
        WHERE sts.teacher_id = $1 AND sts.curriculum_subject_id = $2 AND sts.is_active = true
        ORDER BY u.full_name ASC`
	var students []models.PublicUser
	if err := r.db.SelectContext(ctx, &students, query, teacherID, subjectID); err != nil {
		return nil, fmt.Errorf("list subject roster: %w", err)
	}
	return students, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
