package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Julius266/proyecto-final/internal/models"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
)

type mockFeedPosts struct {
	posts        map[string]*models.PostDetail
	list         []models.PostDetail
	listedFilter models.PostFilter
	createdTags  []string
	hashtags     map[string][]models.Hashtag
	popular      []models.HashtagCount
	popularCalls int
	deleted      []string
}

func (m *mockFeedPosts) CreateWithHashtags(_ context.Context, post *models.Post, hashtagNames []string) error {
	post.ID = "post-new"
	m.createdTags = hashtagNames
	m.posts[post.ID] = &models.PostDetail{Post: *post, AuthorName: "Ana Flores", AuthorRole: models.RoleStudent}
	return nil
}

func (m *mockFeedPosts) FindByID(_ context.Context, id string) (*models.PostDetail, error) {
	detail, ok := m.posts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return detail, nil
}

func (m *mockFeedPosts) List(_ context.Context, filter models.PostFilter) ([]models.PostDetail, int, error) {
	m.listedFilter = filter
	return m.list, len(m.list), nil
}

func (m *mockFeedPosts) Delete(_ context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.posts, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockFeedPosts) ListHashtags(_ context.Context, _ string) ([]models.Hashtag, error) {
	return nil, nil
}

func (m *mockFeedPosts) PopularHashtags(_ context.Context, _ int) ([]models.HashtagCount, error) {
	m.popularCalls++
	return m.popular, nil
}

func (m *mockFeedPosts) HashtagsForPosts(_ context.Context, _ []string) (map[string][]models.Hashtag, error) {
	if m.hashtags == nil {
		return map[string][]models.Hashtag{}, nil
	}
	return m.hashtags, nil
}

type mockFeedArtifacts struct {
	artifacts map[models.ArtifactKind]map[string]*models.Artifact
}

func (m *mockFeedArtifacts) FetchByIDs(_ context.Context, kind models.ArtifactKind, ids []string) (map[string]*models.Artifact, error) {
	byID := map[string]*models.Artifact{}
	for _, id := range ids {
		if artifact, ok := m.artifacts[kind][id]; ok {
			byID[id] = artifact
		}
	}
	return byID, nil
}

type mockFeedSubjects struct {
	names map[string]string
}

func (m *mockFeedSubjects) SubjectNamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	names := map[string]string{}
	for _, id := range ids {
		if name, ok := m.names[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

type mockFeedSocial struct {
	likes      map[string]int
	comments   map[string]int
	highlights map[string]int
	liked      map[string]bool
}

func (m *mockFeedSocial) LikeCounts(_ context.Context, _ []string) (map[string]int, error) {
	return m.likes, nil
}

func (m *mockFeedSocial) CommentCounts(_ context.Context, _ []string) (map[string]int, error) {
	return m.comments, nil
}

func (m *mockFeedSocial) HighlightCounts(_ context.Context, _ []string) (map[string]int, error) {
	return m.highlights, nil
}

func (m *mockFeedSocial) LikedSet(_ context.Context, _ string, _ []string) (map[string]bool, error) {
	return m.liked, nil
}

type mockFeedCache struct {
	popular     []models.HashtagCount
	hasPopular  bool
	sets        int
	invalidated []string
}

func (m *mockFeedCache) Get(_ context.Context, _ string, dest interface{}) error {
	if !m.hasPopular {
		return appErrors.ErrCacheMiss
	}
	*dest.(*[]models.HashtagCount) = m.popular
	return nil
}

func (m *mockFeedCache) Set(_ context.Context, _ string, value interface{}, _ time.Duration) error {
	m.popular = value.([]models.HashtagCount)
	m.hasPopular = true
	m.sets++
	return nil
}

func (m *mockFeedCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	m.hasPopular = false
	return nil
}

func newFeedFixture() (*mockFeedPosts, *mockFeedArtifacts, *mockFeedSocial, *mockFeedCache, *FeedService) {
	posts := &mockFeedPosts{posts: map[string]*models.PostDetail{}}
	artifacts := &mockFeedArtifacts{artifacts: map[models.ArtifactKind]map[string]*models.Artifact{}}
	subjects := &mockFeedSubjects{names: map[string]string{"subj-1": "Cálculo I"}}
	social := &mockFeedSocial{
		likes:      map[string]int{},
		comments:   map[string]int{},
		highlights: map[string]int{},
		liked:      map[string]bool{},
	}
	cache := &mockFeedCache{}
	svc := NewFeedService(posts, artifacts, subjects, social, cache, nil, validator.New(), zap.NewNop(), FeedConfig{})
	return posts, artifacts, social, cache, svc
}

func TestCollectHashtags(t *testing.T) {
	tags := collectHashtags("Repasando #Calculo y #calculo antes del parcial", []string{"#Algebra", "lineal", ""})
	assert.Equal(t, []string{"algebra", "lineal", "calculo"}, tags)
}

func TestCreatePostNormalizesHashtags(t *testing.T) {
	posts, _, _, cache, svc := newFeedFixture()

	detail, err := svc.CreatePost(context.Background(), "user-1", CreatePostRequest{
		Content:  "Compartiendo apuntes de #Calculo",
		Hashtags: []string{"#Apuntes"},
	})
	require.NoError(t, err)
	assert.Equal(t, "post-new", detail.ID)
	assert.Equal(t, []string{"apuntes", "calculo"}, posts.createdTags)
	assert.Contains(t, cache.invalidated, "feed:hashtags:*")
}

func TestCreatePostRejectsArtifactType(t *testing.T) {
	_, _, _, _, svc := newFeedFixture()

	_, err := svc.CreatePost(context.Background(), "user-1", CreatePostRequest{
		Content: "intento de examen manual",
		Type:    "exam",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestListPostsDereference(t *testing.T) {
	posts, artifacts, social, _, svc := newFeedFixture()

	examID := "exam-1"
	goneID := "proj-gone"
	subjectID := "subj-1"
	posts.list = []models.PostDetail{
		{
			Post:       models.Post{ID: "post-1", AuthorID: "user-2", Type: models.PostExam, LinkedEntityID: &examID, CurriculumSubjectID: &subjectID},
			AuthorName: "Luis Rojas", AuthorRole: models.RoleStudent,
		},
		{
			Post:       models.Post{ID: "post-2", AuthorID: "user-3", Type: models.PostProject, LinkedEntityID: &goneID},
			AuthorName: "Ana Flores", AuthorRole: models.RoleStudent,
		},
	}
	artifacts.artifacts[models.ArtifactExam] = map[string]*models.Artifact{
		examID: {ID: examID, Title: "Primer parcial"},
	}
	social.likes = map[string]int{"post-1": 3}
	social.liked = map[string]bool{"post-1": true}

	result, pagination, err := svc.ListPosts(context.Background(), models.PostFilter{}, "user-1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 2, pagination.TotalCount)

	first := result[0]
	require.NotNil(t, first.LinkedEntity)
	assert.False(t, first.LinkedEntity.Missing)
	require.NotNil(t, first.LinkedEntity.Exam)
	assert.Equal(t, "Primer parcial", first.LinkedEntity.Exam.Title)
	require.NotNil(t, first.SubjectName)
	assert.Equal(t, "Cálculo I", *first.SubjectName)
	assert.Equal(t, "Luis Rojas", first.Author.FullName)
	assert.Equal(t, 3, first.LikeCount)
	assert.True(t, first.HasLiked)

	second := result[1]
	require.NotNil(t, second.LinkedEntity)
	assert.True(t, second.LinkedEntity.Missing)
	assert.Nil(t, second.LinkedEntity.Project)
	assert.False(t, second.HasLiked)
}

func TestListPostsNormalizesFilter(t *testing.T) {
	posts, _, _, _, svc := newFeedFixture()

	_, _, err := svc.ListPosts(context.Background(), models.PostFilter{Hashtag: "#Calculo", PageSize: 500}, "")
	require.NoError(t, err)
	assert.Equal(t, "calculo", posts.listedFilter.Hashtag)
	assert.Equal(t, 1, posts.listedFilter.Page)
	assert.Equal(t, 20, posts.listedFilter.PageSize)
}

func TestDeletePostForbidden(t *testing.T) {
	posts, _, _, _, svc := newFeedFixture()
	posts.posts["post-1"] = &models.PostDetail{Post: models.Post{ID: "post-1", AuthorID: "user-1"}}

	err := svc.DeletePost(context.Background(), "post-1", "user-2", models.RoleStudent)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestDeletePostAsAdmin(t *testing.T) {
	posts, _, _, cache, svc := newFeedFixture()
	posts.posts["post-1"] = &models.PostDetail{Post: models.Post{ID: "post-1", AuthorID: "user-1"}}

	err := svc.DeletePost(context.Background(), "post-1", "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"post-1"}, posts.deleted)
	assert.Contains(t, cache.invalidated, "feed:hashtags:*")
}

func TestDeletePostNotFound(t *testing.T) {
	_, _, _, _, svc := newFeedFixture()

	err := svc.DeletePost(context.Background(), "missing", "user-1", models.RoleStudent)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestPopularHashtagsUsesCache(t *testing.T) {
	posts, _, _, cache, svc := newFeedFixture()
	posts.popular = []models.HashtagCount{{Name: "calculo", PostCount: 12}}

	first, err := svc.PopularHashtags(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Equal(t, 1, posts.popularCalls)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.PopularHashtags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, posts.popularCalls)
}
