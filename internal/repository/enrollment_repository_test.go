package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Julius266/proyecto-final/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindActiveTeacherForSubject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "curriculum_subject_id", "active", "created_at"}).
		AddRow("ts-1", "teacher-1", "subj-1", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_subjects WHERE curriculum_subject_id = $1 AND active = true")).
		WithArgs("subj-1").
		WillReturnRows(rows)

	ts, err := repo.FindActiveTeacherForSubject(context.Background(), "subj-1")
	require.NoError(t, err)
	require.NotNil(t, ts)
	require.Equal(t, "teacher-1", ts.TeacherID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindActiveTeacherForSubjectUnclaimed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_subjects WHERE curriculum_subject_id = $1 AND active = true")).
		WithArgs("subj-unclaimed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "curriculum_subject_id", "active", "created_at"}))

	ts, err := repo.FindActiveTeacherForSubject(context.Background(), "subj-unclaimed")
	require.NoError(t, err)
	require.Nil(t, ts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO student_profiles").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// claimed subject resolves the teacher of record
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id FROM teacher_subjects WHERE curriculum_subject_id = $1 AND active = true")).
		WithArgs("subj-1").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}).AddRow("teacher-1"))
	mock.ExpectExec("INSERT INTO student_teacher_subjects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// unclaimed subject enrolls with a null teacher
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id FROM teacher_subjects WHERE curriculum_subject_id = $1 AND active = true")).
		WithArgs("subj-2").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}))
	mock.ExpectExec("INSERT INTO student_teacher_subjects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET role").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	profile := &models.StudentProfile{UserID: "student-1", CurriculumID: "cur-1", CurrentSemester: 3}
	matches := []models.SubjectMatch{
		{CurriculumSubjectID: "subj-1", Semester: 3},
		{CurriculumSubjectID: "subj-2", Semester: 3},
	}
	err := repo.EnrollStudent(context.Background(), profile, matches)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollStudentDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO student_profiles").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id FROM teacher_subjects")).
		WithArgs("subj-1").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}))
	mock.ExpectExec("INSERT INTO student_teacher_subjects").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	profile := &models.StudentProfile{UserID: "student-1", CurriculumID: "cur-1", CurrentSemester: 3}
	err := repo.EnrollStudent(context.Background(), profile, []models.SubjectMatch{{CurriculumSubjectID: "subj-1", Semester: 3}})
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryClaimSubjectsAndBackfill(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teacher_profiles").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO teacher_subjects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO teacher_subjects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE student_teacher_subjects SET teacher_id").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE users SET role").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	profile := &models.TeacherProfile{UserID: "teacher-1", Visibility: models.VisibilityAllCareer}
	backfilled, err := repo.ClaimSubjectsAndBackfill(context.Background(), profile, []string{"subj-1", "subj-2"})
	require.NoError(t, err)
	require.Equal(t, 3, backfilled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryClaimSubjectsConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teacher_profiles").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO teacher_subjects").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	profile := &models.TeacherProfile{UserID: "teacher-1"}
	_, err := repo.ClaimSubjectsAndBackfill(context.Background(), profile, []string{"subj-taken"})
	require.ErrorIs(t, err, ErrSubjectClaimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransitionSemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	profileRows := sqlmock.NewRows([]string{"id", "user_id", "curriculum_id", "current_semester", "academic_status", "bio", "academic_interests", "dragged_subjects", "semester_history", "created_at", "updated_at"}).
		AddRow("sp-1", "student-1", "cur-1", 3, "studying", nil, "[]", "[]", "[]", time.Now(), time.Now())
	mock.ExpectQuery("FROM student_profiles WHERE user_id").
		WithArgs("student-1").
		WillReturnRows(profileRows)
	mock.ExpectQuery("SELECT curriculum_subject_id FROM student_teacher_subjects").
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"curriculum_subject_id"}).AddRow("subj-1").AddRow("subj-2"))
	mock.ExpectExec("UPDATE student_teacher_subjects SET is_active = false").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE student_profiles SET current_semester").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	record, err := repo.TransitionSemester(context.Background(), "student-1", 4)
	require.NoError(t, err)
	require.Equal(t, 3, record.Semester)
	require.Equal(t, []string{"subj-1", "subj-2"}, record.SubjectIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "teacher_id", "curriculum_subject_id", "semester", "is_active", "is_dragged", "completed_at", "created_at", "updated_at", "subject_name", "subject_semester", "teacher_name"}).
		AddRow("sts-1", "student-1", nil, "subj-1", 3, true, false, nil, time.Now(), time.Now(), "Bases de Datos I", 4, nil)
	mock.ExpectQuery("FROM student_teacher_subjects sts").
		WithArgs("student-1").
		WillReturnRows(rows)

	details, err := repo.ListByStudent(context.Background(), "student-1", true)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Nil(t, details[0].TeacherID)
	require.Equal(t, "Bases de Datos I", details[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}
