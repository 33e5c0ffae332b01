package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	"github.com/Julius266/proyecto-final/internal/repository"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
)

type socialRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, postID, userID string) error
	ListLikes(ctx context.Context, postID string) ([]models.LikeDetail, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	FindCommentByID(ctx context.Context, id string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ListComments(ctx context.Context, postID string) ([]models.CommentDetail, error)
	CreateHighlight(ctx context.Context, highlight *models.Highlight) error
	DeleteHighlight(ctx context.Context, postID, teacherID string) error
	ListHighlights(ctx context.Context, postID string) ([]models.HighlightDetail, error)
	ListHighlightsByTeacher(ctx context.Context, teacherID string) ([]models.HighlightDetail, error)
}

type socialPostRepository interface {
	FindByID(ctx context.Context, id string) (*models.PostDetail, error)
}

// CreateCommentRequest is the comment payload.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// CreateHighlightRequest is the optional highlight annotation payload.
type CreateHighlightRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=500"`
}

// SocialService manages the per-post annotations. Highlights are reserved
// to teacher accounts.
type SocialService struct {
	social    socialRepository
	posts     socialPostRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSocialService constructs a SocialService instance.
func NewSocialService(social socialRepository, posts socialPostRepository, validate *validator.Validate, logger *zap.Logger) *SocialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SocialService{social: social, posts: posts, validator: validate, logger: logger}
}

// Like records a like; a second like by the same user is a conflict.
func (s *SocialService) Like(ctx context.Context, postID, userID string) (*models.Like, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	like := &models.Like{PostID: postID, UserID: userID}
	if err := s.social.CreateLike(ctx, like); err != nil {
		if errors.Is(err, repository.ErrDuplicateAnnotation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "post already liked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to like post")
	}
	return like, nil
}

// Unlike removes the caller's like; absent likes are not found.
func (s *SocialService) Unlike(ctx context.Context, postID, userID string) error {
	if err := s.social.DeleteLike(ctx, postID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "like not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlike post")
	}
	return nil
}

// ListLikes returns the likes on a post.
func (s *SocialService) ListLikes(ctx context.Context, postID string) ([]models.LikeDetail, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	likes, err := s.social.ListLikes(ctx, postID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list likes")
	}
	return likes, nil
}

// AddComment records a comment on a post.
func (s *SocialService) AddComment(ctx context.Context, postID, userID string, req CreateCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	comment := &models.Comment{PostID: postID, UserID: userID, Content: req.Content}
	if err := s.social.CreateComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return comment, nil
}

// DeleteComment removes a comment; allowed for its author, the post author
// and admins.
func (s *SocialService) DeleteComment(ctx context.Context, commentID, actorID string, actorRole models.UserRole) error {
	comment, err := s.social.FindCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch comment")
	}
	if comment.UserID != actorID && actorRole != models.RoleAdmin {
		post, err := s.posts.FindByID(ctx, comment.PostID)
		if err != nil || post.AuthorID != actorID {
			return appErrors.Clone(appErrors.ErrForbidden, "comment belongs to another user")
		}
	}
	if err := s.social.DeleteComment(ctx, commentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	return nil
}

// ListComments returns the comments on a post oldest first.
func (s *SocialService) ListComments(ctx context.Context, postID string) ([]models.CommentDetail, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.social.ListComments(ctx, postID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// Highlight marks a post as noteworthy; teacher accounts only, once per
// post.
func (s *SocialService) Highlight(ctx context.Context, postID, actorID string, actorRole models.UserRole, req CreateHighlightRequest) (*models.Highlight, error) {
	if actorRole != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can highlight posts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid highlight payload")
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	highlight := &models.Highlight{PostID: postID, TeacherID: actorID, Comment: req.Comment}
	if err := s.social.CreateHighlight(ctx, highlight); err != nil {
		if errors.Is(err, repository.ErrDuplicateAnnotation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "post already highlighted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to highlight post")
	}
	return highlight, nil
}

// Unhighlight removes the caller's highlight.
func (s *SocialService) Unhighlight(ctx context.Context, postID, teacherID string) error {
	if err := s.social.DeleteHighlight(ctx, postID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "highlight not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove highlight")
	}
	return nil
}

// ListHighlights returns the highlights on a post.
func (s *SocialService) ListHighlights(ctx context.Context, postID string) ([]models.HighlightDetail, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	highlights, err := s.social.ListHighlights(ctx, postID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list highlights")
	}
	return highlights, nil
}

// MyHighlights returns everything the calling teacher has highlighted.
func (s *SocialService) MyHighlights(ctx context.Context, teacherID string) ([]models.HighlightDetail, error) {
	highlights, err := s.social.ListHighlightsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list highlights")
	}
	return highlights, nil
}

func (s *SocialService) requirePost(ctx context.Context, postID string) error {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch post")
	}
	return nil
}
