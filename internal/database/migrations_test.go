package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_RunsEveryStatement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for _, m := range migrations {
		mock.ExpectExec(regexp.QuoteMeta(m)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	db := &DB{Pool: mock}
	assert.NoError(t, db.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(migrations[0])).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(migrations[1])).WillReturnError(errors.New("boom"))

	db := &DB{Pool: mock}
	err = db.Migrate(context.Background())
	assert.EqualError(t, err, "migration 2 failed: boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO identities").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	db := &DB{Pool: mock}
	err = db.InTx(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), "INSERT INTO identities (email) VALUES ('a@b.c')")
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	db := &DB{Pool: mock}
	err = db.InTx(context.Background(), func(tx pgx.Tx) error {
		return errors.New("hook failed")
	})
	assert.EqualError(t, err, "hook failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
