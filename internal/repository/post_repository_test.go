package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Julius266/proyecto-final/internal/models"
)

func TestPostRepositoryCreateWithHashtags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO posts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tag-1"))
	mock.ExpectExec("INSERT INTO post_hashtags").
		WithArgs(sqlmock.AnyArg(), "tag-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tag-2"))
	mock.ExpectExec("INSERT INTO post_hashtags").
		WithArgs(sqlmock.AnyArg(), "tag-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	post := &models.Post{AuthorID: "user-1", Content: "Repasando #calculo y #algebra", Type: models.PostGeneral}
	err := repo.CreateWithHashtags(context.Background(), post, []string{"calculo", "algebra"})
	require.NoError(t, err)
	require.NotEmpty(t, post.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts p")).
		WithArgs("%examen%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows([]string{"id", "author_id", "content", "type", "linked_entity_id", "curriculum_subject_id", "attachments", "created_at", "author_name", "author_role"}).
		AddRow("post-1", "user-1", "Primer examen parcial", "general", nil, nil, []byte("[]"), time.Now(), "Ana Flores", "STUDENT")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3")).
		WithArgs("%examen%", 20, 0).
		WillReturnRows(rows)

	posts, total, err := repo.List(context.Background(), models.PostFilter{Search: "examen", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, posts, 1)
	require.Equal(t, "Ana Flores", posts[0].AuthorName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryListEscapesSearchWildcards(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	// "%" and "_" in a search term match literally, not as LIKE wildcards
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts p")).
		WithArgs(`%100\%\_listo%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3")).
		WithArgs(`%100\%\_listo%`, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "content", "type", "linked_entity_id", "curriculum_subject_id", "attachments", "created_at", "author_name", "author_role"}))

	posts, total, err := repo.List(context.Background(), models.PostFilter{Search: "100%_listo", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, posts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM post_hashtags WHERE post_id").WithArgs("post-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM likes WHERE post_id").WithArgs("post-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM comments WHERE post_id").WithArgs("post-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM highlights WHERE post_id").WithArgs("post-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM posts WHERE id").WithArgs("post-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "post-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM post_hashtags WHERE post_id").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM likes WHERE post_id").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM comments WHERE post_id").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM highlights WHERE post_id").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM posts WHERE id").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryPopularHashtags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "post_count"}).
		AddRow("tag-1", "calculo", 12).
		AddRow("tag-2", "algebra", 7)
	mock.ExpectQuery("GROUP BY h.id, h.name ORDER BY post_count DESC").
		WithArgs(10).
		WillReturnRows(rows)

	counts, err := repo.PopularHashtags(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	require.Equal(t, "calculo", counts[0].Name)
	require.Equal(t, 12, counts[0].PostCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryHashtagsForPosts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	rows := sqlmock.NewRows([]string{"post_id", "id", "name"}).
		AddRow("post-1", "tag-1", "algebra").
		AddRow("post-1", "tag-2", "calculo").
		AddRow("post-2", "tag-2", "calculo")
	mock.ExpectQuery("FROM post_hashtags ph").
		WithArgs("post-1", "post-2").
		WillReturnRows(rows)

	byPost, err := repo.HashtagsForPosts(context.Background(), []string{"post-1", "post-2"})
	require.NoError(t, err)
	require.Len(t, byPost["post-1"], 2)
	require.Len(t, byPost["post-2"], 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
