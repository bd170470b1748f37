package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardianRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGuardianRepositoryFindByLineUserID(t *testing.T) {
	db, mock, cleanup := newGuardianRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "phone", "line_user_id", "created_at", "updated_at"}).
		AddRow(3, "Khun Nok", nil, "U1234", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, phone, line_user_id, created_at, updated_at FROM guardians WHERE line_user_id = $1")).
		WithArgs("U1234").
		WillReturnRows(rows)

	guardian, err := repo.FindByLineUserID(context.Background(), "U1234")
	require.NoError(t, err)
	assert.Equal(t, int64(3), guardian.ID)
	assert.True(t, guardian.Reachable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardianRepositoryIsLinked(t *testing.T) {
	db, mock, cleanup := newGuardianRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM guardian_students WHERE guardian_id = $1 AND student_id = $2)")).
		WithArgs(int64(3), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	linked, err := repo.IsLinked(context.Background(), 3, 9)
	require.NoError(t, err)
	assert.True(t, linked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardianRepositoryBindLineUserID(t *testing.T) {
	db, mock, cleanup := newGuardianRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE guardians SET line_user_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs(int64(3), "U1234", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.BindLineUserID(context.Background(), 3, "U1234"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
