package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
)

type feedPostRepository interface {
	CreateWithHashtags(ctx context.Context, post *models.Post, hashtagNames []string) error
	FindByID(ctx context.Context, id string) (*models.PostDetail, error)
	List(ctx context.Context, filter models.PostFilter) ([]models.PostDetail, int, error)
	Delete(ctx context.Context, id string) error
	ListHashtags(ctx context.Context, search string) ([]models.Hashtag, error)
	PopularHashtags(ctx context.Context, limit int) ([]models.HashtagCount, error)
	HashtagsForPosts(ctx context.Context, postIDs []string) (map[string][]models.Hashtag, error)
}

type feedArtifactRepository interface {
	FetchByIDs(ctx context.Context, kind models.ArtifactKind, ids []string) (map[string]*models.Artifact, error)
}

type feedSubjectResolver interface {
	SubjectNamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type feedSocialRepository interface {
	LikeCounts(ctx context.Context, postIDs []string) (map[string]int, error)
	CommentCounts(ctx context.Context, postIDs []string) (map[string]int, error)
	HighlightCounts(ctx context.Context, postIDs []string) (map[string]int, error)
	LikedSet(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

type feedCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreatePostRequest is the manual post payload. Artifact-backed post types
// are emitted by artifact creation and cannot be posted directly.
type CreatePostRequest struct {
	Content             string   `json:"content" validate:"required,min=1,max=2000"`
	Type                string   `json:"type" validate:"omitempty,oneof=general resource"`
	CurriculumSubjectID *string  `json:"curriculum_subject_id"`
	Hashtags            []string `json:"hashtags" validate:"omitempty,dive,min=1"`
}

// FeedConfig tunes the aggregated feed queries.
type FeedConfig struct {
	PopularHashtagLimit int
	PopularCacheTTL     time.Duration
}

const popularHashtagsCacheKey = "feed:hashtags:popular"

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// FeedService aggregates the polymorphic feed: posts, their authors, linked
// artifacts, hashtags and annotation counts, all dereferenced in batches.
type FeedService struct {
	posts     feedPostRepository
	artifacts feedArtifactRepository
	subjects  feedSubjectResolver
	social    feedSocialRepository
	cache     feedCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    FeedConfig
}

// NewFeedService constructs a FeedService instance.
func NewFeedService(posts feedPostRepository, artifacts feedArtifactRepository, subjects feedSubjectResolver, social feedSocialRepository, cache feedCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config FeedConfig) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.PopularHashtagLimit <= 0 {
		config.PopularHashtagLimit = 10
	}
	if config.PopularCacheTTL <= 0 {
		config.PopularCacheTTL = 5 * time.Minute
	}
	return &FeedService{
		posts:     posts,
		artifacts: artifacts,
		subjects:  subjects,
		social:    social,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// normalizeHashtag lowercases and strips the leading '#'. Empty results are
// discarded by the caller.
func normalizeHashtag(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "#")
	return strings.ToLower(name)
}

// collectHashtags merges the explicit tags with the ones embedded in the
// content, normalized and deduplicated.
func collectHashtags(content string, explicit []string) []string {
	seen := map[string]bool{}
	tags := []string{}
	add := func(raw string) {
		name := normalizeHashtag(raw)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		tags = append(tags, name)
	}
	for _, raw := range explicit {
		add(raw)
	}
	for _, match := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		add(match[1])
	}
	return tags
}

// CreatePost stores a manual post with its hashtags.
func (s *FeedService) CreatePost(ctx context.Context, authorID string, req CreatePostRequest) (*models.PostDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	postType := models.PostGeneral
	if req.Type != "" {
		postType = models.PostType(req.Type)
	}
	post := &models.Post{
		AuthorID:            authorID,
		Content:             req.Content,
		Type:                postType,
		CurriculumSubjectID: req.CurriculumSubjectID,
		Attachments:         models.AttachmentList{},
	}
	tags := collectHashtags(req.Content, req.Hashtags)
	if err := s.posts.CreateWithHashtags(ctx, post, tags); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	s.invalidateHashtagCache(ctx)
	return s.GetPost(ctx, post.ID, authorID)
}

// GetPost returns one fully dereferenced post.
func (s *FeedService) GetPost(ctx context.Context, postID, viewerID string) (*models.PostDetail, error) {
	detail, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch post")
	}
	posts := []models.PostDetail{*detail}
	if err := s.dereference(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// ListPosts returns a dereferenced feed page.
func (s *FeedService) ListPosts(ctx context.Context, filter models.PostFilter, viewerID string) ([]models.PostDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.Hashtag != "" {
		filter.Hashtag = normalizeHashtag(filter.Hashtag)
	}

	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	if err := s.dereference(ctx, posts, viewerID); err != nil {
		return nil, nil, err
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return posts, pagination, nil
}

// dereference resolves authors, linked artifacts, subject names, hashtags
// and annotation counts for a post batch with one query per concern.
func (s *FeedService) dereference(ctx context.Context, posts []models.PostDetail, viewerID string) error {
	if len(posts) == 0 {
		return nil
	}
	s.metrics.ObserveFeedBatch(len(posts))

	postIDs := make([]string, 0, len(posts))
	linkedByKind := map[models.ArtifactKind][]string{}
	subjectIDs := []string{}
	seenSubject := map[string]bool{}
	for i := range posts {
		postIDs = append(postIDs, posts[i].ID)
		if kind, ok := posts[i].Type.ArtifactKind(); ok && posts[i].LinkedEntityID != nil {
			linkedByKind[kind] = append(linkedByKind[kind], *posts[i].LinkedEntityID)
		}
		if posts[i].CurriculumSubjectID != nil && !seenSubject[*posts[i].CurriculumSubjectID] {
			seenSubject[*posts[i].CurriculumSubjectID] = true
			subjectIDs = append(subjectIDs, *posts[i].CurriculumSubjectID)
		}
	}

	artifactsByKind := map[models.ArtifactKind]map[string]*models.Artifact{}
	for kind, ids := range linkedByKind {
		batch, err := s.artifacts.FetchByIDs(ctx, kind, ids)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to dereference linked entities")
		}
		artifactsByKind[kind] = batch
	}

	subjectNames, err := s.subjects.SubjectNamesByIDs(ctx, subjectIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject names")
	}
	hashtags, err := s.posts.HashtagsForPosts(ctx, postIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hashtags")
	}
	likeCounts, err := s.social.LikeCounts(ctx, postIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count likes")
	}
	commentCounts, err := s.social.CommentCounts(ctx, postIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count comments")
	}
	highlightCounts, err := s.social.HighlightCounts(ctx, postIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count highlights")
	}
	liked := map[string]bool{}
	if viewerID != "" {
		liked, err = s.social.LikedSet(ctx, viewerID, postIDs)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load liked set")
		}
	}

	for i := range posts {
		post := &posts[i]
		post.Author = models.PublicUser{ID: post.AuthorID, FullName: post.AuthorName, Role: post.AuthorRole}
		if post.CurriculumSubjectID != nil {
			if name, ok := subjectNames[*post.CurriculumSubjectID]; ok {
				post.SubjectName = &name
			}
		}
		if kind, ok := post.Type.ArtifactKind(); ok && post.LinkedEntityID != nil {
			post.LinkedEntity = buildLinkedEntity(kind, artifactsByKind[kind][*post.LinkedEntityID])
		}
		if tags, ok := hashtags[post.ID]; ok {
			post.Hashtags = tags
		} else {
			post.Hashtags = []models.Hashtag{}
		}
		post.LikeCount = likeCounts[post.ID]
		post.CommentCount = commentCounts[post.ID]
		post.HighlightCount = highlightCounts[post.ID]
		post.HasLiked = liked[post.ID]
	}
	return nil
}

// buildLinkedEntity wraps the artifact in its union variant; a nil artifact
// marks the reference as dangling instead of failing the feed.
func buildLinkedEntity(kind models.ArtifactKind, artifact *models.Artifact) *models.LinkedEntity {
	entity := &models.LinkedEntity{Kind: kind}
	if artifact == nil {
		entity.Missing = true
		return entity
	}
	switch kind {
	case models.ArtifactExam:
		entity.Exam = artifact
	case models.ArtifactAssignment:
		entity.Assignment = artifact
	case models.ArtifactProject:
		entity.Project = artifact
	}
	return entity
}

// DeletePost removes a post; only the author or an admin may delete.
func (s *FeedService) DeletePost(ctx context.Context, postID, actorID string, actorRole models.UserRole) error {
	detail, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch post")
	}
	if detail.AuthorID != actorID && actorRole != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "post belongs to another user")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}
	s.invalidateHashtagCache(ctx)
	return nil
}

// ListHashtags returns the vocabulary, optionally prefix-filtered.
func (s *FeedService) ListHashtags(ctx context.Context, search string) ([]models.Hashtag, error) {
	if search != "" {
		search = normalizeHashtag(search)
	}
	hashtags, err := s.posts.ListHashtags(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hashtags")
	}
	return hashtags, nil
}

// PopularHashtags returns the most used hashtags, served from cache when
// fresh.
func (s *FeedService) PopularHashtags(ctx context.Context) ([]models.HashtagCount, error) {
	var cached []models.HashtagCount
	if err := s.cache.Get(ctx, popularHashtagsCacheKey, &cached); err == nil {
		s.metrics.RecordCacheOperation(true)
		return cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("popular hashtag cache read failed", zap.Error(err))
	}
	s.metrics.RecordCacheOperation(false)

	counts, err := s.posts.PopularHashtags(ctx, s.config.PopularHashtagLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank hashtags")
	}
	if err := s.cache.Set(ctx, popularHashtagsCacheKey, counts, s.config.PopularCacheTTL); err != nil {
		s.logger.Warn("popular hashtag cache write failed", zap.Error(err))
	}
	return counts, nil
}

func (s *FeedService) invalidateHashtagCache(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, "feed:hashtags:*"); err != nil {
		s.logger.Warn("hashtag cache invalidation failed", zap.Error(err))
	}
}
