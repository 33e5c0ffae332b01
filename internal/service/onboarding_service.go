package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	"github.com/Julius266/proyecto-final/internal/repository"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
)

type onboardingUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListTeachers(ctx context.Context) ([]models.PublicUser, error)
}

type onboardingCurriculumRepository interface {
	ListSubjects(ctx context.Context, curriculumID string, semester int) ([]models.CurriculumSubject, error)
	FindSubjectsByIDs(ctx context.Context, ids []string) ([]models.CurriculumSubject, error)
}

type onboardingEnrollmentRepository interface {
	EnrollStudent(ctx context.Context, profile *models.StudentProfile, matches []models.SubjectMatch) error
	ClaimSubjectsAndBackfill(ctx context.Context, profile *models.TeacherProfile, subjectIDs []string) (int, error)
	CreateEnrollments(ctx context.Context, studentID string, matches []models.SubjectMatch) error
	ListByStudent(ctx context.Context, studentID string, activeOnly bool) ([]models.EnrollmentDetail, error)
	ListTaughtSubjects(ctx context.Context, teacherID string) ([]models.TaughtSubject, error)
	ListRosterForSubject(ctx context.Context, teacherID, subjectID string) ([]models.PublicUser, error)
}

// StudentOnboardingRequest is the one-shot student enrollment payload. The
// semester's subjects are not selectable; the engine enrolls all of them.
// Dragged subjects come from earlier semesters the student retakes.
type StudentOnboardingRequest struct {
	CurriculumID      string   `json:"curriculum_id" validate:"required"`
	CurrentSemester   int      `json:"current_semester" validate:"required,min=1,max=20"`
	DraggedSubjectIDs []string `json:"dragged_subject_ids" validate:"omitempty,dive,required"`
	Bio               *string  `json:"bio" validate:"omitempty,max=500"`
	AcademicInterests []string `json:"academic_interests" validate:"omitempty,dive,min=1"`
}

// TeacherOnboardingRequest is the one-shot teacher claim payload.
type TeacherOnboardingRequest struct {
	SubjectIDs         []string                 `json:"subject_ids" validate:"required,min=1,dive,required"`
	InstitutionalEmail *string                  `json:"institutional_email" validate:"omitempty,email"`
	Bio                *string                  `json:"bio" validate:"omitempty,max=500"`
	Visibility         models.TeacherVisibility `json:"visibility" validate:"omitempty,oneof=all_career own_semesters"`
}

// OnboardingResult reports what the onboarding transaction produced.
type OnboardingResult struct {
	Role        models.UserRole           `json:"role"`
	Enrollments []models.EnrollmentDetail `json:"enrollments,omitempty"`
	Subjects    []models.TaughtSubject    `json:"subjects,omitempty"`
	Backfilled  int                       `json:"backfilled_enrollments,omitempty"`
}

// OnboardingService runs the one-shot profile completion flows and the
// student/teacher matching they trigger.
type OnboardingService struct {
	users       onboardingUserRepository
	curriculum  onboardingCurriculumRepository
	enrollments onboardingEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewOnboardingService constructs an OnboardingService instance.
func NewOnboardingService(users onboardingUserRepository, curriculum onboardingCurriculumRepository, enrollments onboardingEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *OnboardingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OnboardingService{
		users:       users,
		curriculum:  curriculum,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
	}
}

// CompleteStudentOnboarding creates the student profile and enrolls the
// student into every active subject of the current semester, plus the
// dragged subjects retaken from earlier semesters. Unclaimed subjects
// enroll with a null teacher and get matched later by the backfill sweep.
func (s *OnboardingService) CompleteStudentOnboarding(ctx context.Context, userID string, req StudentOnboardingRequest) (*OnboardingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid onboarding payload")
	}
	if err := s.requirePendingProfile(ctx, userID); err != nil {
		return nil, err
	}

	semesterSubjects, err := s.curriculum.ListSubjects(ctx, req.CurriculumID, req.CurrentSemester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subjects")
	}
	if len(semesterSubjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active subjects for the selected curriculum and semester")
	}
	matches := make([]models.SubjectMatch, 0, len(semesterSubjects)+len(req.DraggedSubjectIDs))
	for _, subject := range semesterSubjects {
		matches = append(matches, models.SubjectMatch{
			CurriculumSubjectID: subject.ID,
			Semester:            subject.Semester,
		})
	}

	seen := make(map[string]bool, len(req.DraggedSubjectIDs))
	draggedIDs := make([]string, 0, len(req.DraggedSubjectIDs))
	for _, id := range req.DraggedSubjectIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		draggedIDs = append(draggedIDs, id)
	}
	if len(draggedIDs) > 0 {
		draggedSubjects, err := s.curriculum.FindSubjectsByIDs(ctx, draggedIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subjects")
		}
		if len(draggedSubjects) != len(draggedIDs) {
			return nil, appErrors.Clone(appErrors.ErrBadRequest, "one or more dragged subjects do not exist")
		}
		for _, subject := range draggedSubjects {
			if subject.CurriculumID != req.CurriculumID {
				return nil, appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("subject %s does not belong to the selected curriculum", subject.ID))
			}
			if subject.Semester >= req.CurrentSemester {
				return nil, appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("dragged subject %s must come from an earlier semester", subject.ID))
			}
			matches = append(matches, models.SubjectMatch{
				CurriculumSubjectID: subject.ID,
				Semester:            subject.Semester,
				IsDragged:           true,
			})
		}
	}

	profile := &models.StudentProfile{
		UserID:            userID,
		CurriculumID:      req.CurriculumID,
		CurrentSemester:   req.CurrentSemester,
		AcademicStatus:    models.AcademicStatusStudying,
		Bio:               req.Bio,
		AcademicInterests: req.AcademicInterests,
		DraggedSubjects:   draggedIDs,
		SemesterHistory:   models.SemesterHistory{},
	}
	if err := s.enrollments.EnrollStudent(ctx, profile, matches); err != nil {
		if errors.Is(err, repository.ErrAlreadyEnrolled) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate enrollment for subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}

	details, err := s.enrollments.ListByStudent(ctx, userID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	s.logger.Info("student onboarding completed",
		zap.String("user_id", userID),
		zap.Int("enrollments", len(details)))
	return &OnboardingResult{Role: models.RoleStudent, Enrollments: details}, nil
}

// CompleteTeacherOnboarding creates the teacher profile, claims the selected
// subjects and backfills every teacherless enrollment on them.
func (s *OnboardingService) CompleteTeacherOnboarding(ctx context.Context, userID string, req TeacherOnboardingRequest) (*OnboardingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid onboarding payload")
	}
	if err := s.requirePendingProfile(ctx, userID); err != nil {
		return nil, err
	}

	subjects, err := s.curriculum.FindSubjectsByIDs(ctx, req.SubjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subjects")
	}
	if len(subjects) != len(req.SubjectIDs) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "one or more subjects do not exist")
	}

	curriculumIDs := models.IDList{}
	semesters := models.IntList{}
	seenCurriculum := map[string]bool{}
	seenSemester := map[int]bool{}
	for _, subject := range subjects {
		if !seenCurriculum[subject.CurriculumID] {
			seenCurriculum[subject.CurriculumID] = true
			curriculumIDs = append(curriculumIDs, subject.CurriculumID)
		}
		if !seenSemester[subject.Semester] {
			seenSemester[subject.Semester] = true
			semesters = append(semesters, subject.Semester)
		}
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityAllCareer
	}
	profile := &models.TeacherProfile{
		UserID:             userID,
		CurriculumIDs:      curriculumIDs,
		SemesterIDs:        semesters,
		InstitutionalEmail: req.InstitutionalEmail,
		Bio:                req.Bio,
		Visibility:         visibility,
	}
	backfilled, err := s.enrollments.ClaimSubjectsAndBackfill(ctx, profile, req.SubjectIDs)
	if err != nil {
		if errors.Is(err, repository.ErrSubjectClaimed) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a selected subject already has an active teacher")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim subjects")
	}

	taught, err := s.enrollments.ListTaughtSubjects(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load taught subjects")
	}
	s.logger.Info("teacher onboarding completed",
		zap.String("user_id", userID),
		zap.Int("subjects", len(taught)),
		zap.Int("backfilled", backfilled))
	return &OnboardingResult{Role: models.RoleTeacher, Subjects: taught, Backfilled: backfilled}, nil
}

// AddEnrollments matches extra subjects for a student after onboarding.
func (s *OnboardingService) AddEnrollments(ctx context.Context, userID string, subjectIDs []string, dragged bool) ([]models.EnrollmentDetail, error) {
	if len(subjectIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "subject ids are required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.Role != models.RoleStudent || !user.ProfileCompleted {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only onboarded students can enroll in subjects")
	}

	subjects, err := s.curriculum.FindSubjectsByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subjects")
	}
	if len(subjects) != len(subjectIDs) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "one or more subjects do not exist")
	}
	matches := make([]models.SubjectMatch, 0, len(subjects))
	for _, subject := range subjects {
		matches = append(matches, models.SubjectMatch{
			CurriculumSubjectID: subject.ID,
			Semester:            subject.Semester,
			IsDragged:           dragged,
		})
	}
	if err := s.enrollments.CreateEnrollments(ctx, userID, matches); err != nil {
		if errors.Is(err, repository.ErrAlreadyEnrolled) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate enrollment for subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return s.enrollments.ListByStudent(ctx, userID, true)
}

// ListTeachers returns the onboarded teachers for discovery pickers.
func (s *OnboardingService) ListTeachers(ctx context.Context) ([]models.PublicUser, error) {
	teachers, err := s.users.ListTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// ListMyEnrollments returns the caller's enrollment edges.
func (s *OnboardingService) ListMyEnrollments(ctx context.Context, userID string, activeOnly bool) ([]models.EnrollmentDetail, error) {
	details, err := s.enrollments.ListByStudent(ctx, userID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, nil
}

// ListTaughtSubjects returns a teacher's active claims with roster sizes.
func (s *OnboardingService) ListTaughtSubjects(ctx context.Context, teacherID string) ([]models.TaughtSubject, error) {
	taught, err := s.enrollments.ListTaughtSubjects(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list taught subjects")
	}
	return taught, nil
}

// ListSubjectRoster returns the active students of one taught subject.
func (s *OnboardingService) ListSubjectRoster(ctx context.Context, teacherID, subjectID string) ([]models.PublicUser, error) {
	if subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "subject id is required")
	}
	roster, err := s.enrollments.ListRosterForSubject(ctx, teacherID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return roster, nil
}

func (s *OnboardingService) requirePendingProfile(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.ProfileCompleted {
		return appErrors.Clone(appErrors.ErrConflict, "profile already completed")
	}
	return nil
}
