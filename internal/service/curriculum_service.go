package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
)

type curriculumRepository interface {
	ListCurricula(ctx context.Context) ([]models.Curriculum, error)
	CountCurricula(ctx context.Context) (int, error)
	ListSubjects(ctx context.Context, curriculumID string, semester int) ([]models.CurriculumSubject, error)
	FindSubjectByID(ctx context.Context, id string) (*models.CurriculumSubject, error)
	SeedCurriculum(ctx context.Context, curriculum *models.Curriculum, subjects []models.CurriculumSubject) error
}

// CurriculumService exposes the read-mostly curriculum catalog.
type CurriculumService struct {
	repo   curriculumRepository
	logger *zap.Logger
}

// NewCurriculumService constructs a CurriculumService instance.
func NewCurriculumService(repo curriculumRepository, logger *zap.Logger) *CurriculumService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{repo: repo, logger: logger}
}

// EnsureSeeded loads the default catalog when the table is empty. Safe to
// call on every startup.
func (s *CurriculumService) EnsureSeeded(ctx context.Context) error {
	count, err := s.repo.CountCurricula(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect catalog")
	}
	if count > 0 {
		return nil
	}
	curriculum, subjects := defaultCatalog()
	if err := s.repo.SeedCurriculum(ctx, curriculum, subjects); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed catalog")
	}
	s.logger.Info("curriculum catalog seeded",
		zap.String("curriculum", curriculum.Name),
		zap.Int("subjects", len(subjects)))
	return nil
}

// ListCurricula returns all active curricula.
func (s *CurriculumService) ListCurricula(ctx context.Context) ([]models.Curriculum, error) {
	curricula, err := s.repo.ListCurricula(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list curricula")
	}
	return curricula, nil
}

// ListSubjects returns the subjects of a curriculum, optionally one semester.
func (s *CurriculumService) ListSubjects(ctx context.Context, curriculumID string, semester int) ([]models.CurriculumSubject, error) {
	if curriculumID == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "curriculum id is required")
	}
	subjects, err := s.repo.ListSubjects(ctx, curriculumID, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// GetSubject returns one curriculum subject.
func (s *CurriculumService) GetSubject(ctx context.Context, id string) (*models.CurriculumSubject, error) {
	subject, err := s.repo.FindSubjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}
	return subject, nil
}

// defaultCatalog is the software engineering study plan loaded on first
// boot.
func defaultCatalog() (*models.Curriculum, []models.CurriculumSubject) {
	curriculum := &models.Curriculum{
		Name:           "Ingeniería de Software 2023",
		University:     "Universidad Mayor de San Simón",
		Career:         "Ingeniería de Software",
		TotalSemesters: 10,
		Active:         true,
	}
	plan := []struct {
		name     string
		code     string
		semester int
	}{
		{"Cálculo I", "MAT-101", 1},
		{"Álgebra Lineal", "MAT-102", 1},
		{"Introducción a la Programación", "INF-101", 1},
		{"Física General", "FIS-101", 1},
		{"Cálculo II", "MAT-201", 2},
		{"Programación Orientada a Objetos", "INF-201", 2},
		{"Estructuras Discretas", "INF-202", 2},
		{"Estructuras de Datos", "INF-301", 3},
		{"Arquitectura de Computadoras", "INF-302", 3},
		{"Probabilidad y Estadística", "MAT-301", 3},
		{"Bases de Datos I", "INF-401", 4},
		{"Algoritmos Avanzados", "INF-402", 4},
		{"Sistemas Operativos", "INF-403", 4},
		{"Bases de Datos II", "INF-501", 5},
		{"Ingeniería de Software I", "INF-502", 5},
		{"Redes de Computadoras", "INF-503", 5},
		{"Ingeniería de Software II", "INF-601", 6},
		{"Desarrollo Web", "INF-602", 6},
		{"Sistemas Distribuidos", "INF-603", 6},
		{"Arquitectura de Software", "INF-701", 7},
		{"Inteligencia Artificial", "INF-702", 7},
		{"Seguridad Informática", "INF-703", 7},
		{"Gestión de Proyectos", "INF-801", 8},
		{"Calidad de Software", "INF-802", 8},
		{"Computación en la Nube", "INF-803", 8},
		{"Taller de Grado I", "INF-901", 9},
		{"Tópicos Avanzados de Software", "INF-902", 9},
		{"Taller de Grado II", "INF-1001", 10},
	}
	subjects := make([]models.CurriculumSubject, 0, len(plan))
	for _, entry := range plan {
		code := entry.code
		subjects = append(subjects, models.CurriculumSubject{
			Name:     entry.name,
			Code:     &code,
			Semester: entry.semester,
			Active:   true,
		})
	}
	return curriculum, subjects
}
