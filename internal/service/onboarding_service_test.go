package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	"github.com/Julius266/proyecto-final/internal/repository"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
)

type mockOnboardingUsers struct {
	users    map[string]*models.User
	teachers []models.PublicUser
}

func (m *mockOnboardingUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockOnboardingUsers) ListTeachers(_ context.Context) ([]models.PublicUser, error) {
	return m.teachers, nil
}

type mockOnboardingCurriculum struct {
	subjects map[string]models.CurriculumSubject
}

func (m *mockOnboardingCurriculum) ListSubjects(_ context.Context, curriculumID string, semester int) ([]models.CurriculumSubject, error) {
	found := []models.CurriculumSubject{}
	for _, subject := range m.subjects {
		if subject.CurriculumID == curriculumID && subject.Semester == semester {
			found = append(found, subject)
		}
	}
	return found, nil
}

func (m *mockOnboardingCurriculum) FindSubjectsByIDs(_ context.Context, ids []string) ([]models.CurriculumSubject, error) {
	found := []models.CurriculumSubject{}
	for _, id := range ids {
		if subject, ok := m.subjects[id]; ok {
			found = append(found, subject)
		}
	}
	return found, nil
}

type mockOnboardingEnrollments struct {
	enrollErr      error
	claimErr       error
	backfilled     int
	enrolled       []models.SubjectMatch
	claimedProfile *models.TeacherProfile
	enrollments    []models.EnrollmentDetail
	taught         []models.TaughtSubject
	roster         []models.PublicUser
}

func (m *mockOnboardingEnrollments) EnrollStudent(_ context.Context, _ *models.StudentProfile, matches []models.SubjectMatch) error {
	if m.enrollErr != nil {
		return m.enrollErr
	}
	m.enrolled = matches
	return nil
}

func (m *mockOnboardingEnrollments) ClaimSubjectsAndBackfill(_ context.Context, profile *models.TeacherProfile, _ []string) (int, error) {
	if m.claimErr != nil {
		return 0, m.claimErr
	}
	m.claimedProfile = profile
	return m.backfilled, nil
}

func (m *mockOnboardingEnrollments) CreateEnrollments(_ context.Context, _ string, matches []models.SubjectMatch) error {
	if m.enrollErr != nil {
		return m.enrollErr
	}
	m.enrolled = append(m.enrolled, matches...)
	return nil
}

func (m *mockOnboardingEnrollments) ListByStudent(_ context.Context, _ string, _ bool) ([]models.EnrollmentDetail, error) {
	return m.enrollments, nil
}

func (m *mockOnboardingEnrollments) ListTaughtSubjects(_ context.Context, _ string) ([]models.TaughtSubject, error) {
	return m.taught, nil
}

func (m *mockOnboardingEnrollments) ListRosterForSubject(_ context.Context, _, _ string) ([]models.PublicUser, error) {
	return m.roster, nil
}

func newOnboardingFixture() (*mockOnboardingUsers, *mockOnboardingCurriculum, *mockOnboardingEnrollments, *OnboardingService) {
	users := &mockOnboardingUsers{users: map[string]*models.User{
		"pending-1": {ID: "pending-1", Email: "ana@umss.edu", Role: models.RoleStudent},
		"student-1": {ID: "student-1", Email: "luis@umss.edu", Role: models.RoleStudent, ProfileCompleted: true},
	}}
	curriculum := &mockOnboardingCurriculum{subjects: map[string]models.CurriculumSubject{
		"subj-calc1": {ID: "subj-calc1", CurriculumID: "cur-1", Name: "Cálculo I", Semester: 1},
		"subj-bd1":   {ID: "subj-bd1", CurriculumID: "cur-1", Name: "Bases de Datos I", Semester: 3},
		"subj-redes": {ID: "subj-redes", CurriculumID: "cur-1", Name: "Redes I", Semester: 3},
		"subj-ing":   {ID: "subj-ing", CurriculumID: "cur-2", Name: "Inglés Técnico", Semester: 1},
	}}
	enrollments := &mockOnboardingEnrollments{}
	svc := NewOnboardingService(users, curriculum, enrollments, validator.New(), zap.NewNop())
	return users, curriculum, enrollments, svc
}

func TestCompleteStudentOnboarding(t *testing.T) {
	_, _, enrollments, svc := newOnboardingFixture()
	enrollments.enrollments = []models.EnrollmentDetail{{SubjectName: "Bases de Datos I"}, {SubjectName: "Redes I"}, {SubjectName: "Cálculo I"}}

	result, err := svc.CompleteStudentOnboarding(context.Background(), "pending-1", StudentOnboardingRequest{
		CurriculumID:      "cur-1",
		CurrentSemester:   3,
		DraggedSubjectIDs: []string{"subj-calc1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, result.Role)
	assert.Len(t, result.Enrollments, 3)

	// every active subject of the semester enrolls, not a selection
	require.Len(t, enrollments.enrolled, 3)
	byID := map[string]models.SubjectMatch{}
	for _, match := range enrollments.enrolled {
		byID[match.CurriculumSubjectID] = match
	}
	assert.False(t, byID["subj-bd1"].IsDragged)
	assert.Equal(t, 3, byID["subj-bd1"].Semester)
	assert.False(t, byID["subj-redes"].IsDragged)
	assert.Equal(t, 3, byID["subj-redes"].Semester)
	assert.True(t, byID["subj-calc1"].IsDragged)
	assert.Equal(t, 1, byID["subj-calc1"].Semester)
}

func TestCompleteStudentOnboardingEmptySemester(t *testing.T) {
	_, _, enrollments, svc := newOnboardingFixture()

	_, err := svc.CompleteStudentOnboarding(context.Background(), "pending-1", StudentOnboardingRequest{
		CurriculumID:    "cur-1",
		CurrentSemester: 5,
	})
	requireStatus(t, err, http.StatusNotFound)
	assert.Empty(t, enrollments.enrolled)
}

func TestCompleteStudentOnboardingDraggedFromCurrentSemester(t *testing.T) {
	_, _, _, svc := newOnboardingFixture()

	_, err := svc.CompleteStudentOnboarding(context.Background(), "pending-1", StudentOnboardingRequest{
		CurriculumID:      "cur-1",
		CurrentSemester:   3,
		DraggedSubjectIDs: []string{"subj-bd1"},
	})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestCompleteStudentOnboardingWrongCurriculum(t *testing.T) {
	_, _, _, svc := newOnboardingFixture()

	_, err := svc.CompleteStudentOnboarding(context.Background(), "pending-1", StudentOnboardingRequest{
		CurriculumID:      "cur-1",
		CurrentSemester:   3,
		DraggedSubjectIDs: []string{"subj-ing"},
	})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestCompleteStudentOnboardingUnknownSubject(t *testing.T) {
	_, _, _, svc := newOnboardingFixture()

	_, err := svc.CompleteStudentOnboarding(context.Background(), "pending-1", StudentOnboardingRequest{
		CurriculumID:      "cur-1",
		CurrentSemester:   3,
		DraggedSubjectIDs: []string{"subj-ghost"},
	})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestCompleteStudentOnboardingAlreadyCompleted(t *testing.T) {
	_, _, _, svc := newOnboardingFixture()

	_, err := svc.CompleteStudentOnboarding(context.Background(), "student-1", StudentOnboardingRequest{
		CurriculumID:    "cur-1",
		CurrentSemester: 3,
	})
	requireStatus(t, err, http.StatusConflict)
}

func TestCompleteStudentOnboardingDuplicateEnrollment(t *testing.T) {
	_, _, enrollments, svc := newOnboardingFixture()
	enrollments.enrollErr = repository.ErrAlreadyEnrolled

	_, err := svc.CompleteStudentOnboarding(context.Background(), "pending-1", StudentOnboardingRequest{
		CurriculumID:    "cur-1",
		CurrentSemester: 3,
	})
	requireStatus(t, err, http.StatusConflict)
}

func TestCompleteTeacherOnboarding(t *testing.T) {
	_, _, enrollments, svc := newOnboardingFixture()
	enrollments.backfilled = 4
	enrollments.taught = []models.TaughtSubject{{SubjectName: "Cálculo I"}, {SubjectName: "Bases de Datos I"}}

	result, err := svc.CompleteTeacherOnboarding(context.Background(), "pending-1", TeacherOnboardingRequest{
		SubjectIDs: []string{"subj-calc1", "subj-bd1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, result.Role)
	assert.Equal(t, 4, result.Backfilled)
	assert.Len(t, result.Subjects, 2)

	require.NotNil(t, enrollments.claimedProfile)
	assert.Equal(t, models.VisibilityAllCareer, enrollments.claimedProfile.Visibility)
	assert.ElementsMatch(t, models.IDList{"cur-1"}, enrollments.claimedProfile.CurriculumIDs)
	assert.ElementsMatch(t, models.IntList{1, 3}, enrollments.claimedProfile.SemesterIDs)
}

func TestCompleteTeacherOnboardingSubjectClaimed(t *testing.T) {
	_, _, enrollments, svc := newOnboardingFixture()
	enrollments.claimErr = repository.ErrSubjectClaimed

	_, err := svc.CompleteTeacherOnboarding(context.Background(), "pending-1", TeacherOnboardingRequest{
		SubjectIDs: []string{"subj-calc1"},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestAddEnrollmentsRequiresOnboardedStudent(t *testing.T) {
	_, _, _, svc := newOnboardingFixture()

	_, err := svc.AddEnrollments(context.Background(), "pending-1", []string{"subj-bd1"}, false)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestAddEnrollments(t *testing.T) {
	_, _, enrollments, svc := newOnboardingFixture()
	enrollments.enrollments = []models.EnrollmentDetail{{SubjectName: "Bases de Datos I"}}

	details, err := svc.AddEnrollments(context.Background(), "student-1", []string{"subj-bd1"}, false)
	require.NoError(t, err)
	assert.Len(t, details, 1)
	require.Len(t, enrollments.enrolled, 1)
	assert.Equal(t, "subj-bd1", enrollments.enrolled[0].CurriculumSubjectID)
}
