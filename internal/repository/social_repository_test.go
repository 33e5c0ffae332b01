package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Julius266/proyecto-final/internal/models"
)

func TestSocialRepositoryCreateLike(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSocialRepository(db)

	mock.ExpectExec("INSERT INTO likes").
		WillReturnResult(sqlmock.NewResult(0, 1))

	like := &models.Like{PostID: "post-1", UserID: "user-1"}
	err := repo.CreateLike(context.Background(), like)
	require.NoError(t, err)
	require.NotEmpty(t, like.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialRepositoryCreateLikeDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSocialRepository(db)

	mock.ExpectExec("INSERT INTO likes").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateLike(context.Background(), &models.Like{PostID: "post-1", UserID: "user-1"})
	require.ErrorIs(t, err, ErrDuplicateAnnotation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialRepositoryDeleteLikeMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSocialRepository(db)

	mock.ExpectExec("DELETE FROM likes WHERE post_id").
		WithArgs("post-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteLike(context.Background(), "post-1", "user-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialRepositoryCreateHighlightDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSocialRepository(db)

	mock.ExpectExec("INSERT INTO highlights").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateHighlight(context.Background(), &models.Highlight{PostID: "post-1", TeacherID: "teacher-1"})
	require.ErrorIs(t, err, ErrDuplicateAnnotation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialRepositoryLikeCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSocialRepository(db)

	rows := sqlmock.NewRows([]string{"post_id", "count"}).
		AddRow("post-1", 3).
		AddRow("post-2", 1)
	mock.ExpectQuery("SELECT post_id, COUNT").
		WithArgs("post-1", "post-2", "post-3").
		WillReturnRows(rows)

	counts, err := repo.LikeCounts(context.Background(), []string{"post-1", "post-2", "post-3"})
	require.NoError(t, err)
	require.Equal(t, 3, counts["post-1"])
	require.Equal(t, 1, counts["post-2"])
	require.Zero(t, counts["post-3"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialRepositoryLikedSet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSocialRepository(db)

	mock.ExpectQuery("SELECT post_id FROM likes WHERE user_id").
		WithArgs("user-1", "post-1", "post-2").
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow("post-2"))

	liked, err := repo.LikedSet(context.Background(), "user-1", []string{"post-1", "post-2"})
	require.NoError(t, err)
	require.False(t, liked["post-1"])
	require.True(t, liked["post-2"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialRepositoryListComments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSocialRepository(db)

	rows := sqlmock.NewRows([]string{"id", "post_id", "user_id", "content", "created_at", "user_name", "user_role"}).
		AddRow("c-1", "post-1", "user-1", "Buen apunte", time.Now(), "Ana Flores", "STUDENT").
		AddRow("c-2", "post-1", "user-2", "Gracias", time.Now(), "Luis Rojas", "TEACHER")
	mock.ExpectQuery("FROM comments c JOIN users u").
		WithArgs("post-1").
		WillReturnRows(rows)

	comments, err := repo.ListComments(context.Background(), "post-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "Ana Flores", comments[0].UserName)
	require.NoError(t, mock.ExpectationsWereMet())
}
