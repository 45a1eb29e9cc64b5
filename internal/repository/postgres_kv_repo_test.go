package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresKeyValueRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresKeyValueRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store WHERE key = $1")).
		WithArgs("token").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("tok1"))

	v, found, err := repo.Get(ctx, "token")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok1", v)

	// 存在しないキー
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store WHERE key = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	v, found, err = repo.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKeyValueRepo_Get_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresKeyValueRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store")).
		WithArgs("token").
		WillReturnError(errors.New("connection reset"))

	_, _, err = repo.Get(context.Background(), "token")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get value")
}

func TestPostgresKeyValueRepo_SetUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresKeyValueRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_store (key, value, updated_at)")).
		WithArgs("token", "tok1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.Set(context.Background(), "token", "tok1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKeyValueRepo_RemoveMissingKeyIsNotError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresKeyValueRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_store WHERE key = $1")).
		WithArgs("token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Remove(context.Background(), "token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
