package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
	"github.com/Julius266/proyecto-final/pkg/storage"
)

type artifactRepository interface {
	CreateWithPost(ctx context.Context, kind models.ArtifactKind, artifact *models.Artifact, content string) (*models.Post, error)
	FindByID(ctx context.Context, kind models.ArtifactKind, id string) (*models.Artifact, error)
	ListByUser(ctx context.Context, kind models.ArtifactKind, userID, subjectID string) ([]models.Artifact, error)
	Update(ctx context.Context, kind models.ArtifactKind, artifact *models.Artifact) error
	Delete(ctx context.Context, kind models.ArtifactKind, id string) error
}

type artifactSubjectRepository interface {
	FindSubjectByID(ctx context.Context, id string) (*models.CurriculumSubject, error)
}

// CreateArtifactRequest is the shared creation payload for exams,
// assignments and projects. Date is the occurrence date for exams and the
// due date otherwise.
type CreateArtifactRequest struct {
	CurriculumSubjectID string    `json:"curriculum_subject_id" validate:"required"`
	Title               string    `json:"title" validate:"required,min=1,max=200"`
	Description         *string   `json:"description" validate:"omitempty,max=2000"`
	Date                time.Time `json:"date" validate:"required"`
}

// UpdateArtifactRequest carries the mutable artifact fields.
type UpdateArtifactRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Date        *time.Time `json:"date"`
}

// ArtifactCreated pairs the stored artifact with its emitted feed post.
type ArtifactCreated struct {
	Artifact *models.Artifact `json:"artifact"`
	Post     *models.Post     `json:"post"`
}

var artifactLabels = map[models.ArtifactKind]string{
	models.ArtifactExam:       "examen",
	models.ArtifactAssignment: "tarea",
	models.ArtifactProject:    "proyecto",
}

// ArtifactService manages the owned academic records and the feed posts
// they emit on creation.
type ArtifactService struct {
	artifacts artifactRepository
	subjects  artifactSubjectRepository
	store     storage.Store
	validator *validator.Validate
	logger    *zap.Logger
}

// NewArtifactService constructs an ArtifactService instance.
func NewArtifactService(artifacts artifactRepository, subjects artifactSubjectRepository, store storage.Store, validate *validator.Validate, logger *zap.Logger) *ArtifactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ArtifactService{
		artifacts: artifacts,
		subjects:  subjects,
		store:     store,
		validator: validate,
		logger:    logger,
	}
}

// Create stores the artifact and emits its feed post in one transaction.
func (s *ArtifactService) Create(ctx context.Context, kind models.ArtifactKind, userID string, req CreateArtifactRequest) (*ArtifactCreated, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid artifact payload")
	}
	subject, err := s.subjects.FindSubjectByID(ctx, req.CurriculumSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrBadRequest, "curriculum subject does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
	}

	artifact := &models.Artifact{
		UserID:              userID,
		CurriculumSubjectID: req.CurriculumSubjectID,
		Title:               req.Title,
		Description:         req.Description,
		Date:                req.Date,
		Attachments:         models.AttachmentList{},
	}
	content := fmt.Sprintf("Nuevo %s: %s (%s)", artifactLabels[kind], req.Title, subject.Name)
	post, err := s.artifacts.CreateWithPost(ctx, kind, artifact, content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create artifact")
	}
	s.logger.Info("artifact created",
		zap.String("kind", string(kind)),
		zap.String("artifact_id", artifact.ID),
		zap.String("post_id", post.ID))
	return &ArtifactCreated{Artifact: artifact, Post: post}, nil
}

// Get returns one artifact.
func (s *ArtifactService) Get(ctx context.Context, kind models.ArtifactKind, id string) (*models.Artifact, error) {
	artifact, err := s.artifacts.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", kind))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch artifact")
	}
	return artifact, nil
}

// ListMine returns the caller's artifacts of one kind, optionally scoped to
// a subject.
func (s *ArtifactService) ListMine(ctx context.Context, kind models.ArtifactKind, userID, subjectID string) ([]models.Artifact, error) {
	artifacts, err := s.artifacts.ListByUser(ctx, kind, userID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list artifacts")
	}
	return artifacts, nil
}

// Update applies the mutable fields; only the owner may update.
func (s *ArtifactService) Update(ctx context.Context, kind models.ArtifactKind, userID, id string, req UpdateArtifactRequest) (*models.Artifact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid artifact payload")
	}
	artifact, err := s.ownedArtifact(ctx, kind, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		artifact.Title = *req.Title
	}
	if req.Description != nil {
		artifact.Description = req.Description
	}
	if req.Date != nil {
		artifact.Date = *req.Date
	}
	if err := s.artifacts.Update(ctx, kind, artifact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update artifact")
	}
	return artifact, nil
}

// Delete removes the artifact and best-effort deletes its stored binaries.
// Emitted posts stay and render with the entity marked missing.
func (s *ArtifactService) Delete(ctx context.Context, kind models.ArtifactKind, userID, id string) error {
	artifact, err := s.ownedArtifact(ctx, kind, userID, id)
	if err != nil {
		return err
	}
	if err := s.artifacts.Delete(ctx, kind, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete artifact")
	}
	for _, attachment := range artifact.Attachments {
		if err := s.store.Delete(ctx, attachment.StorageID); err != nil {
			s.logger.Warn("failed to delete attachment binary",
				zap.String("storage_id", attachment.StorageID),
				zap.Error(err))
		}
	}
	return nil
}

// AddAttachment uploads a binary and appends its reference to the artifact.
func (s *ArtifactService) AddAttachment(ctx context.Context, kind models.ArtifactKind, userID, id, filename string, contentKind storage.Kind, data []byte) (*models.Artifact, error) {
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "attachment payload is empty")
	}
	artifact, err := s.ownedArtifact(ctx, kind, userID, id)
	if err != nil {
		return nil, err
	}

	object, err := s.store.Upload(ctx, data, contentKind, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upload attachment")
	}
	artifact.Attachments = append(artifact.Attachments, models.Attachment{
		URL:        object.URL,
		StorageID:  object.StorageID,
		Filename:   filename,
		Kind:       string(contentKind),
		UploadedAt: time.Now().UTC(),
	})
	if err := s.artifacts.Update(ctx, kind, artifact); err != nil {
		if deleteErr := s.store.Delete(ctx, object.StorageID); deleteErr != nil {
			s.logger.Warn("failed to remove orphaned attachment", zap.Error(deleteErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment reference")
	}
	return artifact, nil
}

// RemoveAttachment detaches a binary reference and best-effort deletes the
// stored object.
func (s *ArtifactService) RemoveAttachment(ctx context.Context, kind models.ArtifactKind, userID, id, storageID string) (*models.Artifact, error) {
	artifact, err := s.ownedArtifact(ctx, kind, userID, id)
	if err != nil {
		return nil, err
	}

	kept := make(models.AttachmentList, 0, len(artifact.Attachments))
	found := false
	for _, attachment := range artifact.Attachments {
		if attachment.StorageID == storageID {
			found = true
			continue
		}
		kept = append(kept, attachment)
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	artifact.Attachments = kept
	if err := s.artifacts.Update(ctx, kind, artifact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update artifact")
	}
	if err := s.store.Delete(ctx, storageID); err != nil {
		s.logger.Warn("failed to delete attachment binary",
			zap.String("storage_id", storageID),
			zap.Error(err))
	}
	return artifact, nil
}

func (s *ArtifactService) ownedArtifact(ctx context.Context, kind models.ArtifactKind, userID, id string) (*models.Artifact, error) {
	artifact, err := s.artifacts.FindByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", kind))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch artifact")
	}
	if artifact.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "artifact belongs to another user")
	}
	return artifact, nil
}
