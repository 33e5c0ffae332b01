package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
)

type mockCurriculumRepo struct {
	count    int
	seeded   *models.Curriculum
	subjects []models.CurriculumSubject
}

func (m *mockCurriculumRepo) ListCurricula(_ context.Context) ([]models.Curriculum, error) {
	if m.seeded == nil {
		return nil, nil
	}
	return []models.Curriculum{*m.seeded}, nil
}

func (m *mockCurriculumRepo) CountCurricula(_ context.Context) (int, error) {
	return m.count, nil
}

func (m *mockCurriculumRepo) ListSubjects(_ context.Context, curriculumID string, semester int) ([]models.CurriculumSubject, error) {
	found := []models.CurriculumSubject{}
	for _, subject := range m.subjects {
		if subject.CurriculumID != curriculumID {
			continue
		}
		if semester > 0 && subject.Semester != semester {
			continue
		}
		found = append(found, subject)
	}
	return found, nil
}

func (m *mockCurriculumRepo) FindSubjectByID(_ context.Context, id string) (*models.CurriculumSubject, error) {
	for i := range m.subjects {
		if m.subjects[i].ID == id {
			return &m.subjects[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCurriculumRepo) SeedCurriculum(_ context.Context, curriculum *models.Curriculum, subjects []models.CurriculumSubject) error {
	curriculum.ID = "cur-seeded"
	for i := range subjects {
		subjects[i].CurriculumID = curriculum.ID
	}
	m.seeded = curriculum
	m.subjects = subjects
	m.count = 1
	return nil
}

func TestEnsureSeeded(t *testing.T) {
	repo := &mockCurriculumRepo{}
	svc := NewCurriculumService(repo, zap.NewNop())

	err := svc.EnsureSeeded(context.Background())
	require.NoError(t, err)
	require.NotNil(t, repo.seeded)
	assert.NotEmpty(t, repo.subjects)

	// subjects stay inside the declared semester range
	for _, subject := range repo.subjects {
		assert.GreaterOrEqual(t, subject.Semester, 1)
		assert.LessOrEqual(t, subject.Semester, repo.seeded.TotalSemesters)
		assert.Equal(t, repo.seeded.ID, subject.CurriculumID)
		require.NotNil(t, subject.Code)
		assert.NotEmpty(t, *subject.Code)
	}
}

func TestEnsureSeededIdempotent(t *testing.T) {
	repo := &mockCurriculumRepo{count: 1}
	svc := NewCurriculumService(repo, zap.NewNop())

	err := svc.EnsureSeeded(context.Background())
	require.NoError(t, err)
	assert.Nil(t, repo.seeded)
}

func TestGetSubjectNotFound(t *testing.T) {
	repo := &mockCurriculumRepo{}
	svc := NewCurriculumService(repo, zap.NewNop())

	_, err := svc.GetSubject(context.Background(), "ghost")
	require.Error(t, err)
}

func TestListSubjectsRequiresCurriculum(t *testing.T) {
	repo := &mockCurriculumRepo{}
	svc := NewCurriculumService(repo, zap.NewNop())

	_, err := svc.ListSubjects(context.Background(), "", 0)
	require.Error(t, err)
}
