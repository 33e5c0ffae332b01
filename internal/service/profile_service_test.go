package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	"github.com/Julius266/proyecto-final/pkg/export"
	"github.com/Julius266/proyecto-final/pkg/storage"
)

type mockProfileUsers struct {
	users     map[string]*models.User
	imageURLs map[string]string
	updateErr error
}

func (m *mockProfileUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockProfileUsers) UpdateProfileImage(_ context.Context, id, imageURL string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.imageURLs[id] = imageURL
	return nil
}

func (m *mockProfileUsers) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

type mockProfiles struct {
	students map[string]*models.StudentProfile
	teachers map[string]*models.TeacherProfile
}

func (m *mockProfiles) FindStudentProfile(_ context.Context, userID string) (*models.StudentProfile, error) {
	profile, ok := m.students[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return profile, nil
}

func (m *mockProfiles) FindTeacherProfile(_ context.Context, userID string) (*models.TeacherProfile, error) {
	profile, ok := m.teachers[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return profile, nil
}

func (m *mockProfiles) UpdateStudentProfile(_ context.Context, profile *models.StudentProfile) error {
	m.students[profile.UserID] = profile
	return nil
}

func (m *mockProfiles) UpdateTeacherProfile(_ context.Context, profile *models.TeacherProfile) error {
	m.teachers[profile.UserID] = profile
	return nil
}

type mockProfileEnrollments struct {
	record      *models.SemesterRecord
	enrollments []models.EnrollmentDetail
	taught      []models.TaughtSubject
	transitions []int
}

func (m *mockProfileEnrollments) TransitionSemester(_ context.Context, _ string, newSemester int) (*models.SemesterRecord, error) {
	m.transitions = append(m.transitions, newSemester)
	return m.record, nil
}

func (m *mockProfileEnrollments) ListByStudent(_ context.Context, _ string, _ bool) ([]models.EnrollmentDetail, error) {
	return m.enrollments, nil
}

func (m *mockProfileEnrollments) ListTaughtSubjects(_ context.Context, _ string) ([]models.TaughtSubject, error) {
	return m.taught, nil
}

type mockSubjectResolver struct {
	names map[string]string
}

func (m *mockSubjectResolver) SubjectNamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	names := map[string]string{}
	for _, id := range ids {
		if name, ok := m.names[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

type mockStore struct {
	uploads   int
	deleted   []string
	uploadErr error
}

func (m *mockStore) Upload(_ context.Context, _ []byte, kind storage.Kind, filename string) (storage.Object, error) {
	if m.uploadErr != nil {
		return storage.Object{}, m.uploadErr
	}
	m.uploads++
	id := fmt.Sprintf("%s/%d-%s", kind, m.uploads, filename)
	return storage.Object{URL: "/uploads/" + id, StorageID: id}, nil
}

func (m *mockStore) Delete(_ context.Context, storageID string) error {
	m.deleted = append(m.deleted, storageID)
	return nil
}

func newProfileFixture() (*mockProfileUsers, *mockProfiles, *mockProfileEnrollments, *mockStore, *ProfileService) {
	users := &mockProfileUsers{
		users: map[string]*models.User{
			"student-1": {ID: "student-1", Email: "ana@umss.edu", FullName: "Ana Flores", Role: models.RoleStudent, ProfileCompleted: true},
		},
		imageURLs: map[string]string{},
	}
	profiles := &mockProfiles{
		students: map[string]*models.StudentProfile{
			"student-1": {UserID: "student-1", CurriculumID: "cur-1", CurrentSemester: 3, SemesterHistory: models.SemesterHistory{
				{Semester: 1, Year: 2024, SubjectIDs: []string{"subj-calc1"}},
				{Semester: 2, Year: 2024, SubjectIDs: []string{"subj-calc2", "subj-calc1"}},
			}},
		},
		teachers: map[string]*models.TeacherProfile{},
	}
	enrollments := &mockProfileEnrollments{}
	subjects := &mockSubjectResolver{names: map[string]string{
		"subj-calc1": "Cálculo I",
		"subj-calc2": "Cálculo II",
	}}
	store := &mockStore{}
	svc := NewProfileService(users, profiles, enrollments, subjects, store, export.NewPDFExporter(), validator.New(), zap.NewNop())
	return users, profiles, enrollments, store, svc
}

func TestGetPublicProfileHidesEmail(t *testing.T) {
	_, _, _, _, svc := newProfileFixture()

	view, err := svc.GetPublicProfile(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Empty(t, view.User.Email)
	assert.Equal(t, "Ana Flores", view.User.FullName)
	require.NotNil(t, view.Student)
}

func TestGetProfilePendingSkipsRoleProfile(t *testing.T) {
	users, _, _, _, svc := newProfileFixture()
	users.users["pending-1"] = &models.User{ID: "pending-1", Role: models.RoleStudent}

	view, err := svc.GetProfile(context.Background(), "pending-1")
	require.NoError(t, err)
	assert.Nil(t, view.Student)
	assert.Nil(t, view.Enrollments)
}

func TestTransitionSemester(t *testing.T) {
	_, _, enrollments, _, svc := newProfileFixture()
	enrollments.record = &models.SemesterRecord{Semester: 3, Year: 2026, SubjectIDs: []string{"subj-bd1"}}

	record, err := svc.TransitionSemester(context.Background(), "student-1", TransitionSemesterRequest{NewSemester: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, record.Semester)
	assert.Equal(t, []int{4}, enrollments.transitions)
}

func TestTransitionSemesterMustAdvance(t *testing.T) {
	_, _, enrollments, _, svc := newProfileFixture()

	_, err := svc.TransitionSemester(context.Background(), "student-1", TransitionSemesterRequest{NewSemester: 3})
	requireStatus(t, err, http.StatusBadRequest)
	assert.Empty(t, enrollments.transitions)

	_, err = svc.TransitionSemester(context.Background(), "student-1", TransitionSemesterRequest{NewSemester: 2})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestUpdateStudentProfile(t *testing.T) {
	_, profiles, _, _, svc := newProfileFixture()
	bio := "Estudiante de software"

	profile, err := svc.UpdateStudentProfile(context.Background(), "student-1", UpdateStudentProfileRequest{
		Bio:            &bio,
		AcademicStatus: models.AcademicStatusGraduated,
	})
	require.NoError(t, err)
	assert.Equal(t, &bio, profile.Bio)
	assert.Equal(t, models.AcademicStatusGraduated, profiles.students["student-1"].AcademicStatus)
}

func TestUpdateProfileImage(t *testing.T) {
	users, _, _, _, svc := newProfileFixture()

	object, err := svc.UpdateProfileImage(context.Background(), "student-1", "avatar.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, object.URL, users.imageURLs["student-1"])
}

func TestUpdateProfileImageCleansOrphan(t *testing.T) {
	users, _, _, store, svc := newProfileFixture()
	users.updateErr = errors.New("db down")

	_, err := svc.UpdateProfileImage(context.Background(), "student-1", "avatar.png", []byte("png-bytes"))
	require.Error(t, err)
	require.Len(t, store.deleted, 1)
}

func TestGetStudentHistory(t *testing.T) {
	_, _, _, _, svc := newProfileFixture()

	history, names, err := svc.GetStudentHistory(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Cálculo I", names["subj-calc1"])
	assert.Equal(t, "Cálculo II", names["subj-calc2"])
}

func TestExportHistoryPDF(t *testing.T) {
	_, _, _, _, svc := newProfileFixture()

	payload, filename, err := svc.ExportHistoryPDF(context.Background(), "student-1")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Regexp(t, `^academic-history-\d{8}\.pdf$`, filename)
}

func TestDeleteAccountMissing(t *testing.T) {
	_, _, _, _, svc := newProfileFixture()

	err := svc.DeleteAccount(context.Background(), "ghost")
	requireStatus(t, err, http.StatusNotFound)
}
