package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, app TEXT, username TEXT)`)
	require.NoError(t, err)
	return db
}

func users(t *testing.T, db *sql.DB) int {
	t.Helper()
	n, err := Count(context.Background(), db, `SELECT COUNT(*) FROM users`)
	require.NoError(t, err)
	return n
}

func insert(ctx context.Context, tx DBTX, name string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users (app, username) VALUES ('siteA', ?)`, name)
	return err
}

func TestWithTx(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func(ctx context.Context, tx DBTX) error
		wantErr error
		want    int
	}{
		{
			name: "commits every statement",
			fn: func(ctx context.Context, tx DBTX) error {
				if err := insert(ctx, tx, "admin"); err != nil {
					return err
				}
				return insert(ctx, tx, "demo")
			},
			want: 2,
		},
		{
			name: "rolls back on error",
			fn: func(ctx context.Context, tx DBTX) error {
				if err := insert(ctx, tx, "admin"); err != nil {
					return err
				}
				return boom
			},
			wantErr: boom,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openDB(t)
			err := WithTx(context.Background(), db, nil, tt.fn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, users(t, db))
		})
	}
}

func TestWithTx_RollsBackAndRepanics(t *testing.T) {
	db := openDB(t)

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insert(ctx, tx, "admin"))
			panic("kaput")
		})
	})
	assert.Equal(t, 0, users(t, db))
}

func TestWithTx_BeginAndCommitErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("locked"))
	err = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error { return nil })
	assert.ErrorContains(t, err, "begin")

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))
	err = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error { return nil })
	assert.ErrorContains(t, err, "commit")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	require.NoError(t, insert(ctx, db, "admin"))

	n, err := Count(ctx, db, `SELECT COUNT(*) FROM users WHERE app = ?`, "siteA")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = Count(ctx, db, `SELECT COUNT(*) FROM missing`)
	assert.Error(t, err)
}
