package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-auth-service/internal/utils"
)

var refreshCols = []string{"id", "user_id", "token", "token_hash", "created_at", "updated_at"}

func TestRefreshTokenRepo_FindActiveForUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRefreshTokenRepo(db)

	q := "SELECT id, user_id, token, token_hash, created_at, updated_at FROM refresh_tokens WHERE user_id = ? AND NOT EXISTS " +
		"(SELECT 1 FROM blacklisted_tokens b WHERE b.token_hash = refresh_tokens.token_hash) ORDER BY created_at DESC LIMIT 1"
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(refreshCols).AddRow("r-1", "u-1", "tok", utils.TokenDigest("tok"), fixedNow(), fixedNow()))
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WithArgs("u-2").
		WillReturnRows(sqlmock.NewRows(refreshCols))

	rt, err := repo.FindActiveForUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", rt.Token)

	_, err = repo.FindActiveForUser(context.Background(), "u-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshTokenRepo_Store(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRefreshTokenRepo(db)
	repo.now = fixedNow

	// Tokens grow with the email they carry; the indexed column is the
	// fixed-width digest.
	long := strings.Repeat("x", 600)
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO refresh_tokens (id, user_id, token, token_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)")).
		WithArgs(sqlmock.AnyArg(), "u-1", long, utils.TokenDigest(long), fixedNow(), fixedNow()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Store(context.Background(), "u-1", long))
	assert.Len(t, utils.TokenDigest(long), 64)
}

func TestBlacklistRepo_Contains(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBlacklistRepo(db)

	q := regexp.QuoteMeta("SELECT COUNT(*) FROM blacklisted_tokens WHERE token_hash = ?")
	mock.ExpectQuery(q).WithArgs(utils.TokenDigest("revoked")).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(q).WithArgs(utils.TokenDigest("fresh")).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(q).WithArgs(utils.TokenDigest("broken")).WillReturnError(errors.New("io timeout"))

	ok, err := repo.Contains(context.Background(), "revoked")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Contains(context.Background(), "fresh")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Contains(context.Background(), "broken")
	assert.Error(t, err)
}

func TestBlacklistRepo_AddIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBlacklistRepo(db)
	repo.now = fixedNow

	q := regexp.QuoteMeta(
		"INSERT IGNORE INTO blacklisted_tokens (id, user_id, token_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)")
	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg(), "u-1", utils.TokenDigest("tok"), fixedNow(), fixedNow()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg(), "u-1", utils.TokenDigest("tok"), fixedNow(), fixedNow()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Add(context.Background(), "u-1", "tok"))
	require.NoError(t, repo.Add(context.Background(), "u-1", "tok"))
}
