package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
	"github.com/Julius266/proyecto-final/pkg/export"
	"github.com/Julius266/proyecto-final/pkg/storage"
)

type profileUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfileImage(ctx context.Context, id, imageURL string) error
	Delete(ctx context.Context, id string) error
}

type profileRepository interface {
	FindStudentProfile(ctx context.Context, userID string) (*models.StudentProfile, error)
	FindTeacherProfile(ctx context.Context, userID string) (*models.TeacherProfile, error)
	UpdateStudentProfile(ctx context.Context, profile *models.StudentProfile) error
	UpdateTeacherProfile(ctx context.Context, profile *models.TeacherProfile) error
}

type profileEnrollmentRepository interface {
	TransitionSemester(ctx context.Context, studentID string, newSemester int) (*models.SemesterRecord, error)
	ListByStudent(ctx context.Context, studentID string, activeOnly bool) ([]models.EnrollmentDetail, error)
	ListTaughtSubjects(ctx context.Context, teacherID string) ([]models.TaughtSubject, error)
}

type profileSubjectResolver interface {
	SubjectNamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// UpdateStudentProfileRequest carries the mutable student profile fields.
type UpdateStudentProfileRequest struct {
	Bio               *string               `json:"bio" validate:"omitempty,max=500"`
	AcademicInterests []string              `json:"academic_interests" validate:"omitempty,dive,min=1"`
	AcademicStatus    models.AcademicStatus `json:"academic_status" validate:"omitempty,oneof=studying graduated"`
}

// TransitionSemesterRequest advances a student to the next semester.
type TransitionSemesterRequest struct {
	NewSemester int `json:"new_semester" validate:"required,min=1,max=20"`
}

// UpdateTeacherProfileRequest carries the mutable teacher profile fields.
type UpdateTeacherProfileRequest struct {
	InstitutionalEmail *string                  `json:"institutional_email" validate:"omitempty,email"`
	Bio                *string                  `json:"bio" validate:"omitempty,max=500"`
	Visibility         models.TeacherVisibility `json:"visibility" validate:"omitempty,oneof=all_career own_semesters"`
}

// ProfileView combines the account with its role-specific profile.
type ProfileView struct {
	User        models.UserInfo           `json:"user"`
	ImageURL    *string                   `json:"profile_image_url,omitempty"`
	Student     *models.StudentProfile    `json:"student_profile,omitempty"`
	Teacher     *models.TeacherProfile    `json:"teacher_profile,omitempty"`
	Enrollments []models.EnrollmentDetail `json:"enrollments,omitempty"`
	Subjects    []models.TaughtSubject    `json:"subjects,omitempty"`
}

// ProfileService reads and mutates role-specific profiles, including the
// semester transition and the academic history export.
type ProfileService struct {
	users       profileUserRepository
	profiles    profileRepository
	enrollments profileEnrollmentRepository
	subjects    profileSubjectResolver
	store       storage.Store
	exporter    *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(users profileUserRepository, profiles profileRepository, enrollments profileEnrollmentRepository, subjects profileSubjectResolver, store storage.Store, exporter *export.PDFExporter, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{
		users:       users,
		profiles:    profiles,
		enrollments: enrollments,
		subjects:    subjects,
		store:       store,
		exporter:    exporter,
		validator:   validate,
		logger:      logger,
	}
}

// GetProfile assembles the full profile view for a user.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	view := &ProfileView{
		User: models.UserInfo{
			ID:               user.ID,
			Email:            user.Email,
			FullName:         user.FullName,
			Role:             user.Role,
			ProfileCompleted: user.ProfileCompleted,
		},
		ImageURL: user.ProfileImageURL,
	}
	if !user.ProfileCompleted {
		return view, nil
	}

	switch user.Role {
	case models.RoleStudent:
		profile, err := s.profiles.FindStudentProfile(ctx, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student profile")
		}
		view.Student = profile
		enrollments, err := s.enrollments.ListByStudent(ctx, userID, true)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
		}
		view.Enrollments = enrollments
	case models.RoleTeacher:
		profile, err := s.profiles.FindTeacherProfile(ctx, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher profile")
		}
		view.Teacher = profile
		subjects, err := s.enrollments.ListTaughtSubjects(ctx, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list taught subjects")
		}
		view.Subjects = subjects
	}
	return view, nil
}

// GetPublicProfile returns the profile view stripped of the private email.
func (s *ProfileService) GetPublicProfile(ctx context.Context, userID string) (*ProfileView, error) {
	view, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.User.Email = ""
	return view, nil
}

// UpdateStudentProfile applies the mutable student profile fields.
func (s *ProfileService) UpdateStudentProfile(ctx context.Context, userID string, req UpdateStudentProfileRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	profile, err := s.profiles.FindStudentProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student profile")
	}

	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.AcademicInterests != nil {
		profile.AcademicInterests = req.AcademicInterests
	}
	if req.AcademicStatus != "" {
		profile.AcademicStatus = req.AcademicStatus
	}
	if err := s.profiles.UpdateStudentProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
	}
	return profile, nil
}

// TransitionSemester archives the active enrollment set into history and
// advances the profile semester.
func (s *ProfileService) TransitionSemester(ctx context.Context, userID string, req TransitionSemesterRequest) (*models.SemesterRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	profile, err := s.profiles.FindStudentProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student profile")
	}
	if req.NewSemester <= profile.CurrentSemester {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "new semester must be greater than the current one")
	}

	record, err := s.enrollments.TransitionSemester(ctx, userID, req.NewSemester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition semester")
	}
	s.logger.Info("semester transition completed",
		zap.String("user_id", userID),
		zap.Int("archived_subjects", len(record.SubjectIDs)),
		zap.Int("new_semester", req.NewSemester))
	return record, nil
}

// UpdateTeacherProfile applies the mutable teacher profile fields.
func (s *ProfileService) UpdateTeacherProfile(ctx context.Context, userID string, req UpdateTeacherProfileRequest) (*models.TeacherProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	profile, err := s.profiles.FindTeacherProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher profile")
	}

	if req.InstitutionalEmail != nil {
		profile.InstitutionalEmail = req.InstitutionalEmail
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.Visibility != "" {
		profile.Visibility = req.Visibility
	}
	if err := s.profiles.UpdateTeacherProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher profile")
	}
	return profile, nil
}

// UpdateProfileImage uploads the avatar and stores its reference.
func (s *ProfileService) UpdateProfileImage(ctx context.Context, userID, filename string, data []byte) (*storage.Object, error) {
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "image payload is empty")
	}
	object, err := s.store.Upload(ctx, data, storage.KindImage, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upload image")
	}
	if err := s.users.UpdateProfileImage(ctx, userID, object.URL); err != nil {
		if deleteErr := s.store.Delete(ctx, object.StorageID); deleteErr != nil {
			s.logger.Warn("failed to remove orphaned image", zap.Error(deleteErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image reference")
	}
	return &object, nil
}

// GetStudentHistory returns the archived semester records with resolved
// subject names.
func (s *ProfileService) GetStudentHistory(ctx context.Context, userID string) (models.SemesterHistory, map[string]string, error) {
	profile, err := s.profiles.FindStudentProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student profile")
	}

	idSet := map[string]bool{}
	ids := []string{}
	for _, record := range profile.SemesterHistory {
		for _, id := range record.SubjectIDs {
			if !idSet[id] {
				idSet[id] = true
				ids = append(ids, id)
			}
		}
	}
	names, err := s.subjects.SubjectNamesByIDs(ctx, ids)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject names")
	}
	return profile.SemesterHistory, names, nil
}

// ExportHistoryPDF renders the academic history as a downloadable PDF.
func (s *ProfileService) ExportHistoryPDF(ctx context.Context, userID string) ([]byte, string, error) {
	history, names, err := s.GetStudentHistory(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{Headers: []string{"Semester", "Year", "Subjects"}}
	for _, record := range history {
		subjectNames := make([]string, 0, len(record.SubjectIDs))
		for _, id := range record.SubjectIDs {
			if name, ok := names[id]; ok {
				subjectNames = append(subjectNames, name)
			} else {
				subjectNames = append(subjectNames, id)
			}
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Semester": strconv.Itoa(record.Semester),
			"Year":     strconv.Itoa(record.Year),
			"Subjects": strings.Join(subjectNames, ", "),
		})
	}

	payload, err := s.exporter.Render(dataset, "Academic History")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render history pdf")
	}
	filename := fmt.Sprintf("academic-history-%s.pdf", time.Now().UTC().Format("20060102"))
	return payload, filename, nil
}

// DeleteAccount removes the account and its owned content.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}
	return nil
}
